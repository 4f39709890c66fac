package health

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sundayezeilo/shortlinks/internal/httpx"
)

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusDown     = "down"
)

// DefaultCheckTimeout bounds a full Check.
const DefaultCheckTimeout = 2 * time.Second

type dependency struct {
	name   string
	pinger Pinger
}

// Checker pings every registered dependency.
type Checker struct {
	deps    []dependency
	timeout time.Duration
}

func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}
	return &Checker{timeout: timeout}
}

// Add registers a dependency. It must not be called concurrently with Check.
func (c *Checker) Add(name string, p Pinger) {
	c.deps = append(c.deps, dependency{name: name, pinger: p})
}

// Report is the outcome of Check.
type Report struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies,omitempty"`

	// failures holds the ping errors behind each "down" entry. They are
	// logged, never serialized.
	failures map[string]error
}

// Healthy reports whether every dependency answered.
func (r Report) Healthy() bool { return r.Status == StatusOK }

// Check pings all dependencies concurrently.
func (c *Checker) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	report := Report{
		Status:       StatusOK,
		Dependencies: make(map[string]string, len(c.deps)),
		failures:     make(map[string]error),
	}
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, d := range c.deps {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := d.pinger.Ping(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Dependencies[d.name] = StatusDown
				report.failures[d.name] = err
				report.Status = StatusDegraded
				return
			}
			report.Dependencies[d.name] = StatusOK
		}()
	}
	wg.Wait()
	return report
}

// HTTPResponse is the body of the health endpoint.
type HTTPResponse struct {
	Report
	Service string `json:"service"`
	Version string `json:"version"`
}

// Handler serves the report as JSON, with 503 when any dependency is down.
func (c *Checker) Handler(service, version string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Check(r.Context())

		status := http.StatusOK
		if !report.Healthy() {
			status = http.StatusServiceUnavailable
			for name, err := range report.failures {
				logger.WarnContext(r.Context(), "health check failed",
					"request_id", httpx.GetRequestID(r.Context()),
					"dependency", name,
					"error", err,
				)
			}
		}

		httpx.WriteJSON(w, status, HTTPResponse{
			Report:  report,
			Service: service,
			Version: version,
		})
	}
}
