package source

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"

	"address_vision/internal/domain/entity"

	"github.com/ethereum/go-ethereum/rpc"
)

type Class string

const (
	ClassTerminal  Class = "terminal"
	ClassTransient Class = "transient"
)

// Decision is the outcome of classifying a source failure.
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

// Transient marks err as retryable regardless of its content.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{err: err, class: ClassTransient, reason: "explicit_transient"}
}

// Terminal marks err as not retryable regardless of its content.
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{err: err, class: ClassTerminal, reason: "explicit_terminal"}
}

// Classify decides whether a failed fetch may be retried.
// Network errors, timeouts, 429 and 5xx are transient; other 4xx are terminal.
func Classify(err error) Decision {
	if err == nil {
		return Decision{Class: ClassTerminal, Reason: "nil_error"}
	}

	var marked *classifiedError
	if errors.As(err, &marked) {
		return Decision{Class: marked.class, Reason: marked.reason}
	}

	if errors.Is(err, context.Canceled) {
		return Decision{Class: ClassTerminal, Reason: "context_canceled"}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Decision{Class: ClassTransient, Reason: "context_deadline_exceeded"}
	}

	var srcErr *entity.SourceError
	if errors.As(err, &srcErr) && srcErr.StatusCode != 0 {
		return classifyHTTPStatus(srcErr.StatusCode)
	}
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return classifyHTTPStatus(httpErr.StatusCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return Decision{Class: ClassTransient, Reason: "net_timeout"}
		}
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return classifyJSONRPCCode(rpcErr.ErrorCode())
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

func classifyHTTPStatus(code int) Decision {
	reason := "http_status_" + strconv.Itoa(code)
	if code == 429 || code == 408 || code >= 500 {
		return Decision{Class: ClassTransient, Reason: reason}
	}
	return Decision{Class: ClassTerminal, Reason: reason}
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
	"connection closed",
	"broken pipe",
	"no such host",
	"econnreset",
	"econnrefused",
	"too many requests",
	"rate limit",
	"http status 429",
	"http status 502",
	"http status 503",
	"http status 504",
	"server closed idle connection",
}

var terminalMessageTokens = []string{
	"invalid argument",
	"invalid params",
	"invalid address",
	"method not found",
	"parse error",
	"execution reverted",
	"unauthorized",
	"forbidden",
	"no alchemy network",
	"no moralis identifier",
	"no opensea identifier",
}
