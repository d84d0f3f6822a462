package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/sagecry/sagebot/internal/config"
	"github.com/sagecry/sagebot/internal/engine"
	"github.com/sagecry/sagebot/internal/events"
	"github.com/sagecry/sagebot/internal/gateway"
	"github.com/sagecry/sagebot/internal/ledger"
	"github.com/sagecry/sagebot/internal/logger"
	"github.com/sagecry/sagebot/internal/market"
	"github.com/sagecry/sagebot/internal/scan"
	"github.com/sagecry/sagebot/internal/server"
)

// stopTimeout bounds how long shutdown waits for the in-flight cycle.
const stopTimeout = 30 * time.Second

func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	if addr := cmd.String("listen"); addr != "" {
		cfg.ListenAddr = addr
	}

	l, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer l.Sync()

	for key, value := range cfg.Summary() {
		l.Info("session setting", zap.String("name", key), zap.String("value", value))
	}

	// Event fan-out: structured log always, in-memory ring for the HTTP
	// surface, JSON-lines file when configured.
	ring := events.NewRingSink(cfg.EventBufferSize)
	sinks := []events.Sink{events.NewLoggerSink(l), ring}

	if cfg.EventLogPath != "" {
		fileSink, err := events.NewFileSink(cfg.EventLogPath)
		if err != nil {
			return err
		}
		defer fileSink.Close()

		sinks = append(sinks, fileSink)
	}

	sink := events.NewMultiSink(sinks...)

	provider := market.NewBinanceProvider(cfg.APIKey, cfg.SecretKey, cfg.Testnet)

	var orders gateway.Gateway
	if cfg.Mode == config.ModeReal {
		orders = gateway.NewBinanceGateway(cfg.APIKey, cfg.SecretKey, cfg.Testnet)
	} else {
		orders = gateway.NewSimulatedGateway(provider)
	}

	book := ledger.New(cfg.MaxOpenPositions, cfg.WalletOption())
	ranker := scan.NewRanker(cfg.QuoteSuffix, sink)
	eng := engine.NewEngine(cfg, provider, orders, book, ranker, sink, l)
	sched := engine.NewScheduler(eng, provider, cfg.CycleInterval(), sink, l)

	if cfg.ListenAddr != "" {
		srv := server.NewServer(sched, book, ring, cfg.Summary(), l)
		if err := srv.Start(cfg.ListenAddr); err != nil {
			return err
		}
		defer func() {
			if err := srv.Stop(); err != nil {
				l.Error("status server shutdown failed", zap.Error(err))
			}
		}()
	}

	if err := sched.Start(ctx); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		l.Info("received signal, stopping", zap.String("signal", sig.String()))
	case <-ctx.Done():
		l.Info("context cancelled, stopping")
	}

	sched.Stop()

	if !sched.Wait(stopTimeout) {
		l.Warn("trading loop did not stop in time", zap.Duration("timeout", stopTimeout))
	}

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "sagebot",
		Usage: "Momentum trading bot for Binance spot markets",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "Path to the YAML session config",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "listen",
				Aliases: []string{"l"},
				Usage:   "HTTP status/metrics listen address (overrides config)",
			},
		},
		Action: runAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
