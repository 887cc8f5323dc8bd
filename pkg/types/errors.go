package types

import "errors"

// Error taxonomy shared by the quote, allowance, submit and receipt stages.
// Stages wrap these with fmt.Errorf("%w: ...") so callers can classify with errors.Is.
var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrNotConnected         = errors.New("wallet not connected")
	ErrQuoteUnavailable     = errors.New("quote unavailable")
	ErrTokenListUnavailable = errors.New("token list unavailable")
	ErrApprovalFailed       = errors.New("approval failed")
	ErrUserRejected         = errors.New("user rejected transaction")
	ErrSubmissionFailed     = errors.New("transaction submission failed")
	ErrReceiptTimeout       = errors.New("timed out waiting for transaction receipt")
	ErrOnChainRevert        = errors.New("transaction reverted")

	// ErrStaleQuote is returned for a price result whose inputs were superseded while in flight.
	ErrStaleQuote = errors.New("quote superseded by newer input")
)
