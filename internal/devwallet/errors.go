package devwallet

import (
	"fmt"

	"github.com/quantumauth-io/prediction-market-client/internal/constants"
)

// RPCError is returned from wallet methods. The rpc server sends Code and Data on the wire.
type RPCError struct {
	Code    int
	Message string
	Data    any
}

func (e *RPCError) Error() string          { return e.Message }
func (e *RPCError) ErrorCode() int         { return e.Code }
func (e *RPCError) ErrorData() interface{} { return e.Data }

func errUserRejected() *RPCError {
	return &RPCError{
		Code:    constants.ProviderErrorCodeUserRejected,
		Message: "User rejected the request.",
	}
}

func errUnrecognizedChain(chainID string) *RPCError {
	return &RPCError{
		Code: constants.ProviderErrorCodeUnrecognizedChain,
		Message: fmt.Sprintf(
			"Unrecognized chain ID %q. Try adding the chain using %s first.",
			chainID, constants.MethodWalletAddChain,
		),
	}
}

func errUnauthorized(account string) *RPCError {
	return &RPCError{
		Code:    constants.ProviderErrorCodeUnauthorized,
		Message: "The requested account and/or method has not been authorized by the user.",
		Data:    account,
	}
}

func errRequestPending(method string) *RPCError {
	return &RPCError{
		Code:    constants.JSONRPCErrorCodeResourceUnavailable,
		Message: fmt.Sprintf("Request of type '%s' already pending", method),
	}
}

func errInvalidParams(detail string) *RPCError {
	return &RPCError{
		Code:    constants.JSONRPCErrorCodeInvalidParams,
		Message: "Invalid parameters: " + detail,
	}
}

func errInternal(msg string, cause error) *RPCError {
	e := &RPCError{
		Code:    constants.JSONRPCErrorCodeInternalError,
		Message: msg,
	}
	if cause != nil {
		e.Data = cause.Error()
	}
	return e
}
