package monitoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ProbeStatus encodes the outcome of a health check.
type ProbeStatus string

const (
	StatusUp       ProbeStatus = "up"
	StatusDegraded ProbeStatus = "degraded"
	StatusDown     ProbeStatus = "down"
)

func (s ProbeStatus) rank() int {
	switch s {
	case StatusUp:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// WorstStatus returns the more severe of two statuses. Unknown values count as down.
func WorstStatus(a, b ProbeStatus) ProbeStatus {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

// ProbeResult captures a single dependency check outcome.
type ProbeResult struct {
	Component string        `json:"component"`
	Status    ProbeStatus   `json:"status"`
	Details   string        `json:"details,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// HealthReport aggregates check results for a liveness or readiness evaluation.
type HealthReport struct {
	Success bool          `json:"success"`
	Status  ProbeStatus   `json:"status"`
	Checks  []ProbeResult `json:"checks"`
}

// Check is one named dependency check.
//
// Optional marks a dependency the relay can answer without, such as GitHub while
// cached issues are still served. A down result from an optional check degrades the
// report instead of failing it.
type Check struct {
	Name     string
	Timeout  time.Duration
	Optional bool
	Run      func(ctx context.Context) ProbeResult
}

// NewCheck constructs a check with the provided name and function.
func NewCheck(name string, fn func(ctx context.Context) ProbeResult) Check {
	if fn == nil {
		fn = func(context.Context) ProbeResult {
			return ProbeResult{Status: StatusDown, Details: "check not implemented"}
		}
	}
	return Check{Name: name, Run: fn}
}

// WithTimeout bounds each run of the check.
func (c Check) WithTimeout(timeout time.Duration) Check {
	c.Timeout = timeout
	return c
}

// AsOptional marks the check optional.
func (c Check) AsOptional() Check {
	c.Optional = true
	return c
}

// HealthManager coordinates liveness and readiness checks.
type HealthManager struct {
	mu        sync.RWMutex
	liveness  []Check
	readiness []Check
}

// NewHealthManager constructs an empty health manager.
func NewHealthManager() *HealthManager {
	return &HealthManager{}
}

// RegisterLiveness appends a liveness check. Checks without a name are ignored.
func (m *HealthManager) RegisterLiveness(check Check) {
	if check.Name == "" {
		return
	}
	m.mu.Lock()
	m.liveness = append(m.liveness, check)
	m.mu.Unlock()
}

// RegisterReadiness appends a readiness check. Checks without a name are ignored.
func (m *HealthManager) RegisterReadiness(check Check) {
	if check.Name == "" {
		return
	}
	m.mu.Lock()
	m.readiness = append(m.readiness, check)
	m.mu.Unlock()
}

// EvaluateLiveness runs every liveness check.
func (m *HealthManager) EvaluateLiveness(ctx context.Context) HealthReport {
	m.mu.RLock()
	registered := append([]Check(nil), m.liveness...)
	m.mu.RUnlock()
	return evaluate(ctx, registered)
}

// EvaluateReadiness runs every readiness check.
func (m *HealthManager) EvaluateReadiness(ctx context.Context) HealthReport {
	m.mu.RLock()
	registered := append([]Check(nil), m.readiness...)
	m.mu.RUnlock()
	return evaluate(ctx, registered)
}

func evaluate(ctx context.Context, registered []Check) HealthReport {
	report := HealthReport{
		Status: StatusUp,
		Checks: make([]ProbeResult, 0, len(registered)),
	}
	for _, check := range registered {
		result := runCheck(ctx, check)
		report.Checks = append(report.Checks, result)

		status := result.Status
		if check.Optional && status == StatusDown {
			status = StatusDegraded
		}
		report.Status = WorstStatus(report.Status, status)
	}
	report.Success = report.Status == StatusUp
	return report
}

func runCheck(ctx context.Context, check Check) (result ProbeResult) {
	if ctx == nil {
		ctx = context.Background()
	}
	if check.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, check.Timeout)
		defer cancel()
	}
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			result = ProbeResult{Status: StatusDown, Details: panicDetails(rec)}
		}
		result.Component = check.Name
		if result.Status == "" {
			result.Status = StatusDown
		}
		if result.Duration == 0 {
			result.Duration = time.Since(start)
		}
	}()

	return check.Run(ctx)
}

func panicDetails(rec any) string {
	switch v := rec.(type) {
	case string:
		return v
	case error:
		return v.Error()
	default:
		return fmt.Sprintf("panic: %v", v)
	}
}

// MergeReports combines liveness and readiness results into a single payload. The merged
// status is the worst of the two, so optional checks stay capped at degraded.
func MergeReports(live, ready HealthReport) HealthReport {
	checks := make([]ProbeResult, 0, len(live.Checks)+len(ready.Checks))
	checks = append(checks, live.Checks...)
	checks = append(checks, ready.Checks...)

	status := WorstStatus(orUp(live.Status), orUp(ready.Status))
	return HealthReport{
		Success: status == StatusUp,
		Status:  status,
		Checks:  checks,
	}
}

func orUp(status ProbeStatus) ProbeStatus {
	if status == "" {
		return StatusUp
	}
	return status
}

// ResultFromError converts an error into a ProbeResult. Timeouts and cancellations
// degrade rather than fail.
func ResultFromError(component string, err error, duration time.Duration) ProbeResult {
	if duration < 0 {
		duration = 0
	}
	if err == nil {
		return ProbeResult{Component: component, Status: StatusUp, Duration: duration}
	}

	status := StatusDown
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		status = StatusDegraded
	}
	return ProbeResult{
		Component: component,
		Status:    status,
		Details:   err.Error(),
		Duration:  duration,
	}
}
