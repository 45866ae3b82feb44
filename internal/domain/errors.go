package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain layer. Every error surfaced to a caller of
// the gateway client wraps exactly one of these.
var (
	// ErrConnectionClosed reports a transport-level failure or closure.
	// All calls pending on that connection are rejected with this sentinel.
	ErrConnectionClosed = fmt.Errorf("gateway connection closed")

	// ErrAuthFailed reports that the challenge-response handshake was
	// rejected by the gateway or did not complete before its deadline.
	ErrAuthFailed = fmt.Errorf("gateway authentication failed")

	// ErrCallTimeout reports that no response frame matched a call's id
	// before its deadline elapsed.
	ErrCallTimeout = fmt.Errorf("rpc call timed out")

	// ErrProtocol reports malformed or unparseable inbound data. Offending
	// frames are dropped locally; this sentinel only surfaces in diagnostics.
	ErrProtocol = fmt.Errorf("malformed gateway frame")

	// Target store errors.
	ErrTargetNotFound  = fmt.Errorf("target not found")
	ErrTargetDuplicate = fmt.Errorf("target already exists")

	// Configuration errors.
	ErrConfigLoad = fmt.Errorf("failed to load configuration")
)

// RPCError is returned when the gateway explicitly answered a call with
// ok=false. Message is the remote-supplied error text.
type RPCError struct {
	Method  string
	Message string
}

func (e *RPCError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("rpc %s: remote error", e.Method)
	}
	return fmt.Sprintf("rpc %s: %s", e.Method, e.Message)
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ErrorCode is a machine-parseable error category for monitoring and alerting.
type ErrorCode string

const (
	CodeUnknown          ErrorCode = "UNKNOWN"
	CodeConnectionClosed ErrorCode = "CONNECTION_CLOSED"
	CodeAuthFailed       ErrorCode = "AUTH_FAILED"
	CodeCallTimeout      ErrorCode = "CALL_TIMEOUT"
	CodeProtocol         ErrorCode = "PROTOCOL"
	CodeRPCFailure       ErrorCode = "RPC_FAILURE"
	CodeTargetNotFound   ErrorCode = "TARGET_NOT_FOUND"
	CodeTargetDuplicate  ErrorCode = "TARGET_DUPLICATE"
	CodeConfigLoad       ErrorCode = "CONFIG_LOAD"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrConnectionClosed: CodeConnectionClosed,
	ErrAuthFailed:       CodeAuthFailed,
	ErrCallTimeout:      CodeCallTimeout,
	ErrProtocol:         CodeProtocol,
	ErrTargetNotFound:   CodeTargetNotFound,
	ErrTargetDuplicate:  CodeTargetDuplicate,
	ErrConfigLoad:       CodeConfigLoad,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It uses errors.Is to match sentinel errors anywhere in the chain and
// errors.As to recognize RPCError. Returns CodeUnknown if nothing matches.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return CodeRPCFailure
	}

	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	return CodeUnknown
}
