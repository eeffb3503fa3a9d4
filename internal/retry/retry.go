// Package retry classifies errors raised by chain collaborators and stores.
// The watcher retries every failure; the class only feeds logs and metrics.
package retry

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/rpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/circuitbreaker"
)

type Class string

const (
	ClassTerminal  Class = "terminal"
	ClassTransient Class = "transient"
)

type Decision struct {
	Class  Class
	Reason string
}

func (d Decision) IsTransient() bool {
	return d.Class == ClassTransient
}

type classifiedError struct {
	err    error
	class  Class
	reason string
}

func (e *classifiedError) Error() string {
	return e.err.Error()
}

func (e *classifiedError) Unwrap() error {
	return e.err
}

// Transient marks err as retryable regardless of its message.
func Transient(err error) error {
	return mark(err, ClassTransient, "explicit_transient")
}

// Terminal marks err as structural, e.g. a misconfigured collaborator.
func Terminal(err error) error {
	return mark(err, ClassTerminal, "explicit_terminal")
}

func mark(err error, class Class, reason string) error {
	if err == nil {
		return nil
	}
	return &classifiedError{err: err, class: class, reason: reason}
}

func Classify(err error) Decision {
	if err == nil {
		return Decision{Class: ClassTerminal, Reason: "nil_error"}
	}

	var marked *classifiedError
	if errors.As(err, &marked) {
		return Decision{Class: marked.class, Reason: marked.reason}
	}

	switch {
	case errors.Is(err, context.Canceled):
		return Decision{Class: ClassTerminal, Reason: "context_canceled"}
	case errors.Is(err, context.DeadlineExceeded):
		return Decision{Class: ClassTransient, Reason: "context_deadline_exceeded"}
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		return Decision{Class: ClassTransient, Reason: "circuit_open"}
	case errors.Is(err, ethereum.NotFound):
		return Decision{Class: ClassTransient, Reason: "block_not_found"}
	}

	if grpcStatus, ok := status.FromError(err); ok && grpcStatus.Code() != codes.Unknown {
		switch grpcStatus.Code() {
		case codes.Canceled:
			return Decision{Class: ClassTerminal, Reason: "grpc_canceled"}
		case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted, codes.Internal:
			return Decision{Class: ClassTransient, Reason: "grpc_" + strings.ToLower(grpcStatus.Code().String())}
		default:
			return Decision{Class: ClassTerminal, Reason: "grpc_" + strings.ToLower(grpcStatus.Code().String())}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Decision{Class: ClassTransient, Reason: "net_timeout"}
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return classifyJSONRPCCode(rpcErr.ErrorCode())
	}
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == 429 || httpErr.StatusCode >= 500 {
			return Decision{Class: ClassTransient, Reason: "http_status"}
		}
		return Decision{Class: ClassTerminal, Reason: "http_status"}
	}

	lower := strings.ToLower(err.Error())
	if containsAny(lower, terminalMessageTokens) {
		return Decision{Class: ClassTerminal, Reason: "message_terminal"}
	}
	if containsAny(lower, transientMessageTokens) {
		return Decision{Class: ClassTransient, Reason: "message_transient"}
	}

	return Decision{Class: ClassTerminal, Reason: "unknown_terminal_default"}
}

func classifyJSONRPCCode(code int) Decision {
	if code == -32603 || code == -32005 {
		return Decision{Class: ClassTransient, Reason: "jsonrpc_server_transient"}
	}
	if code <= -32000 && code >= -32099 {
		return Decision{Class: ClassTransient, Reason: "jsonrpc_server_range"}
	}
	return Decision{Class: ClassTerminal, Reason: "jsonrpc_terminal"}
}

func containsAny(msg string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(msg, token) {
			return true
		}
	}
	return false
}

var transientMessageTokens = []string{
	"timeout",
	"timed out",
	"temporar",
	"unavailable",
	"connection reset",
	"connection refused",
	"broken pipe",
	"too many requests",
	"rate limit",
	"header not found",
	"unknown block",
	"http status 429",
	"http status 502",
	"http status 503",
	"http status 504",
	"eof",
}

var terminalMessageTokens = []string{
	"block range too wide",
	"batch limit exceeded",
	"query returned more than",
	"invalid argument",
	"invalid params",
	"method not found",
	"parse error",
	"execution reverted",
	"constraint violation",
}
