package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeMissingParameter     ErrorCode = 102

	// Market data errors (200-299)
	ErrCodeTransientFetch ErrorCode = 200
	ErrCodeUnknownSymbol  ErrorCode = 201

	// Ledger errors (300-399)
	ErrCodeDuplicatePosition ErrorCode = 300
	ErrCodeNoSuchPosition    ErrorCode = 301
	ErrCodeInsufficientFunds ErrorCode = 302
	ErrCodePositionLimit     ErrorCode = 303

	// Order errors (400-499)
	ErrCodeRejectedOrder             ErrorCode = 400
	ErrCodeInsufficientExchangeFunds ErrorCode = 401
	ErrCodeOrderFailed               ErrorCode = 402

	// Scheduler errors (500-599)
	ErrCodeClientUnavailable ErrorCode = 500
	ErrCodeAlreadyRunning    ErrorCode = 501
)
