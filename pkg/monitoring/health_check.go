package monitoring

import (
	"context"
	"fmt"
)

type HealthCheckType string

const (
	HealthCheckTypeMemory HealthCheckType = "memory"
	HealthCheckTypeHTTP   HealthCheckType = "http"
	HealthCheckTypeGRPC   HealthCheckType = "grpc"
)

// ReasonCode tells operators why a check tripped. CodeCheckFailed means the
// check could not determine health at all, which is treated as unhealthy.
type ReasonCode string

const (
	CodeNone         ReasonCode = ""
	CodeOverLimit    ReasonCode = "over_limit"
	CodeCheckFailed  ReasonCode = "check_failed"
	CodeHTTPStatus   ReasonCode = "http_status"
	CodeRequestError ReasonCode = "request_error"
	CodeGRPCStatus   ReasonCode = "grpc_status"
)

// Result of a single evaluation; produced fresh on every poll. Err keeps the
// DomainError behind a check_failed or request_error result.
type Result struct {
	Healthy bool       `json:"healthy"`
	Code    ReasonCode `json:"code,omitempty"`
	Reason  string     `json:"reason"`
	Err     error      `json:"-"`
}

func Healthy(format string, args ...interface{}) Result {
	return Result{Healthy: true, Reason: fmt.Sprintf(format, args...)}
}

func Unhealthy(code ReasonCode, format string, args ...interface{}) Result {
	return Result{Healthy: false, Code: code, Reason: fmt.Sprintf(format, args...)}
}

// Failed builds an Unhealthy result that carries err
func Failed(code ReasonCode, err error, format string, args ...interface{}) Result {
	r := Unhealthy(code, format, args...)
	r.Err = err
	return r
}

func (r Result) String() string {
	if r.Healthy {
		return "healthy: " + r.Reason
	}
	return fmt.Sprintf("unhealthy (%s): %s", r.Code, r.Reason)
}

// HealthCheck is one pass/fail test of the supervised program. Check never
// panics or returns an error for expected failures such as a vanished
// process, a refused connection or a timeout; those become Unhealthy.
type HealthCheck interface {
	Name() string
	Type() HealthCheckType
	Check(ctx context.Context) Result
}
