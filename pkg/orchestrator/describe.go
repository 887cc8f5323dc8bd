package orchestrator

import (
	"errors"

	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/types"
)

// Alert is what the user is shown for an error
type Alert struct {
	Header  string
	Message string

	// Soft alerts do not mean the action failed
	Soft bool
}

// Describe maps an error to a user-facing alert
func Describe(err error) Alert {
	if err == nil {
		return Alert{}
	}

	switch {
	case errors.Is(err, types.ErrApprovalFailed) && errors.Is(err, types.ErrReceiptTimeout):
		return Alert{
			Header:  "Approval not confirmed",
			Message: "The approval was sent but is not confirmed yet, so nothing else was sent. Try again once it is mined.",
		}
	case errors.Is(err, types.ErrApprovalFailed):
		return Alert{Header: "Approval failed", Message: err.Error()}
	case errors.Is(err, types.ErrReceiptTimeout):
		return Alert{
			Header:  "Transaction pending",
			Message: "The transaction was sent but is not confirmed yet. It may still complete; check its status before trying again.",
			Soft:    true,
		}
	case errors.Is(err, types.ErrUserRejected):
		return Alert{Header: "Transaction rejected", Message: "The signature request was declined."}
	case errors.Is(err, types.ErrOnChainRevert):
		return Alert{Header: "Transaction failed", Message: err.Error()}
	case errors.Is(err, types.ErrSubmissionFailed):
		return Alert{Header: "Transaction not sent", Message: err.Error()}
	case errors.Is(err, types.ErrNotConnected):
		return Alert{Header: "Wallet not connected", Message: "Connect a wallet and try again."}
	case errors.Is(err, types.ErrStaleQuote):
		return Alert{Header: "Price changed", Message: "The inputs changed; fetch a new price.", Soft: true}
	case errors.Is(err, types.ErrQuoteUnavailable):
		return Alert{Header: "Price unavailable", Message: err.Error(), Soft: true}
	case errors.Is(err, types.ErrTokenListUnavailable):
		return Alert{Header: "Token list unavailable", Message: err.Error(), Soft: true}
	case errors.Is(err, types.ErrInvalidInput):
		return Alert{Header: "Invalid input", Message: err.Error(), Soft: true}
	default:
		return Alert{Header: "Error", Message: err.Error()}
	}
}
