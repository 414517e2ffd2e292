package exchange

import "fmt"

// ExchangeError is a typed error from a venue API. IsRetryable tells
// the safety layer whether a repeat attempt can help.
type ExchangeError struct {
	Code        string
	Message     string
	Err         error
	IsRetryable bool
}

func (e *ExchangeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ExchangeError) Unwrap() error { return e.Err }

// Retryable implements safety.Retryable.
func (e *ExchangeError) Retryable() bool { return e.IsRetryable }

// NewAPIError wraps a transport or server failure, which is worth
// retrying.
func NewAPIError(message string, err error) *ExchangeError {
	return &ExchangeError{Code: "API_ERROR", Message: message, Err: err, IsRetryable: true}
}

// NewRejectedError marks a request the venue refused; retrying the
// same request cannot succeed.
func NewRejectedError(message string) *ExchangeError {
	return &ExchangeError{Code: "REJECTED", Message: message, IsRetryable: false}
}
