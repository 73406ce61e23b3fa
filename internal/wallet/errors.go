package wallet

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/quantumauth-io/prediction-market-client/internal/constants"
)

type Kind int

const (
	KindConnectionFailed Kind = iota
	KindProviderUnavailable
	KindChainSwitchFailed
	KindUserRejected
	KindNoAccountsReturned
)

func (k Kind) String() string {
	switch k {
	case KindProviderUnavailable:
		return "ProviderUnavailable"
	case KindChainSwitchFailed:
		return "ChainSwitchFailed"
	case KindUserRejected:
		return "UserRejected"
	case KindNoAccountsReturned:
		return "NoAccountsReturned"
	default:
		return "ConnectionFailed"
	}
}

// User-facing messages
const (
	MsgProviderUnavailable = "MetaMask not detected"
	MsgUserRejected        = "Connection request rejected in MetaMask"
	MsgConnectionFailed    = "Failed to connect to MetaMask"
	MsgNoAccountsReturned  = "No accounts returned"
)

// rejectionPhrase marks a user rejection in providers that do not send code 4001.
const rejectionPhrase = "User rejected"

// ProviderError is a normalized wallet failure. Message is stable and safe to display;
// Cause keeps the raw provider error for diagnostics.
type ProviderError struct {
	Kind    Kind
	Code    int
	Message string
	Cause   error
}

func (e *ProviderError) Error() string {
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// ErrorCode exposes the provider code the same way go-ethereum rpc errors do.
func (e *ProviderError) ErrorCode() int {
	return e.Code
}

// Format prints the cause with %+v.
func (e *ProviderError) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') && e.Cause != nil {
		_, _ = fmt.Fprintf(s, "%s (%s, code %d): %+v", e.Message, e.Kind, e.Code, e.Cause)
		return
	}
	_, _ = fmt.Fprint(s, e.Message)
}

// KindOf returns the kind of the first ProviderError in err's chain.
// Errors that are not ProviderErrors report KindConnectionFailed.
func KindOf(err error) Kind {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return KindConnectionFailed
}

// IsKind reports whether any ProviderError in err's chain is of kind k, so a
// ConnectionFailed wrapping a ChainSwitchFailed matches both kinds.
func IsKind(err error, k Kind) bool {
	for ; err != nil; err = errors.UnwrapOnce(err) {
		if perr, ok := err.(*ProviderError); ok && perr.Kind == k {
			return true
		}
	}
	return false
}

// ErrorCode extracts the numeric provider code from err, 0 when there is none.
func ErrorCode(err error) int {
	var coded interface{ ErrorCode() int }
	if errors.As(err, &coded) {
		return coded.ErrorCode()
	}
	return 0
}

func isUserRejection(err error) bool {
	if err == nil {
		return false
	}
	return ErrorCode(err) == constants.ProviderErrorCodeUserRejected ||
		strings.Contains(err.Error(), rejectionPhrase) ||
		strings.Contains(errors.UnwrapAll(err).Error(), rejectionPhrase)
}

func providerUnavailable(cause error) *ProviderError {
	return &ProviderError{
		Kind:    KindProviderUnavailable,
		Message: MsgProviderUnavailable,
		Cause:   cause,
	}
}

// chainSwitchFailed surfaces the provider's message verbatim.
func chainSwitchFailed(cause error) *ProviderError {
	return &ProviderError{
		Kind:    KindChainSwitchFailed,
		Code:    ErrorCode(cause),
		Message: cause.Error(),
		Cause:   cause,
	}
}

func userRejected(cause error) *ProviderError {
	return &ProviderError{
		Kind:    KindUserRejected,
		Code:    constants.ProviderErrorCodeUserRejected,
		Message: MsgUserRejected,
		Cause:   cause,
	}
}

func noAccountsReturned() *ProviderError {
	return &ProviderError{
		Kind:    KindNoAccountsReturned,
		Message: MsgNoAccountsReturned,
	}
}

func connectionFailed(cause error) *ProviderError {
	return &ProviderError{
		Kind:    KindConnectionFailed,
		Code:    ErrorCode(cause),
		Message: MsgConnectionFailed,
		Cause:   cause,
	}
}
