package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/sagecry/sagebot/internal/engine"
	"github.com/sagecry/sagebot/internal/events"
	"github.com/sagecry/sagebot/internal/ledger"
	"github.com/sagecry/sagebot/internal/logger"
	"github.com/sagecry/sagebot/internal/metrics"
)

// Server exposes the bot's read-only status surface over HTTP: session
// state, open positions, the recent event stream, and Prometheus metrics.
// It never mutates trading state.
type Server struct {
	scheduler *engine.Scheduler
	book      *ledger.Ledger
	ring      *events.RingSink
	settings  map[string]string
	log       *logger.Logger

	listener   net.Listener
	httpServer *http.Server
}

// NewServer creates a status server. settings is the masked configuration
// summary shown on the status endpoint.
func NewServer(
	scheduler *engine.Scheduler,
	book *ledger.Ledger,
	ring *events.RingSink,
	settings map[string]string,
	log *logger.Logger,
) *Server {
	return &Server{
		scheduler: scheduler,
		book:      book,
		ring:      ring,
		settings:  settings,
		log:       log,
	}
}

// Router builds the HTTP route table. Exposed separately so tests can
// exercise handlers without a listener.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	router.HandleFunc("/api/status", s.handleStatus).Methods("GET")
	router.HandleFunc("/api/positions", s.handlePositions).Methods("GET")
	router.HandleFunc("/api/events", s.handleEvents).Methods("GET")
	router.Handle("/metrics", metrics.Handler()).Methods("GET")

	return router
}

// Start begins serving on the given address. If address is ":0" a random
// available port is used; see Address.
func (s *Server) Start(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	s.listener = listener

	s.httpServer = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != http.ErrServerClosed {
			s.log.Error("status server error", zap.Error(err))
		}
	}()

	s.log.Info("status server listening", zap.String("address", s.Address()))

	return nil
}

// Stop shuts the server down, draining in-flight requests.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(ctx)
}

// Address returns the address the server is listening on.
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

type statusResponse struct {
	State         string            `json:"state"`
	RunID         string            `json:"run_id,omitempty"`
	OpenPositions int               `json:"open_positions"`
	Wallet        *float64          `json:"wallet,omitempty"`
	Settings      map[string]string `json:"settings"`
}

type positionResponse struct {
	Symbol        string    `json:"symbol"`
	EntryPrice    float64   `json:"entry_price"`
	Quantity      float64   `json:"quantity"`
	EntryNotional float64   `json:"entry_notional"`
	OpenedAt      time.Time `json:"opened_at"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{
		State:         string(s.scheduler.State()),
		RunID:         s.scheduler.RunID(),
		OpenPositions: s.book.Count(),
		Settings:      s.settings,
	}

	if s.book.WalletEnabled() {
		wallet := s.book.Wallet()
		resp.Wallet = &wallet
	}

	s.writeJSON(w, resp)
}

func (s *Server) handlePositions(w http.ResponseWriter, _ *http.Request) {
	snap := s.book.Snapshot()

	out := make([]positionResponse, 0, len(snap))
	for _, pos := range snap {
		out = append(out, positionResponse{
			Symbol:        pos.Symbol,
			EntryPrice:    pos.EntryPrice,
			Quantity:      pos.Quantity,
			EntryNotional: pos.EntryNotional(),
			OpenedAt:      pos.OpenedAt,
		})
	}

	s.writeJSON(w, out)
}

func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, s.ring.Snapshot())
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("failed to encode response", zap.Error(err))
	}
}
