package middleware

import (
	"net/http"
	"regexp"

	"github.com/nestfund/savings_layer/internal/logging"
)

// TraceHeader carries the request trace id in both directions.
const TraceHeader = "X-Trace-ID"

var traceIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// TracingMiddleware adds trace ID to all requests
type TracingMiddleware struct {
	logger *logging.Logger
}

// NewTracingMiddleware creates a new tracing middleware
func NewTracingMiddleware(logger *logging.Logger) *TracingMiddleware {
	if logger == nil {
		logger = logging.NewDiscard()
	}
	return &TracingMiddleware{
		logger: logger,
	}
}

// Handler accepts a well-formed inbound trace id or mints a new one, and
// echoes it on the response.
func (m *TracingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(TraceHeader)
		if !traceIDPattern.MatchString(traceID) {
			if traceID != "" {
				m.logger.WithContext(r.Context()).WithField("rejected_trace_id_len", len(traceID)).Debug("Replacing malformed trace id")
			}
			traceID = logging.NewTraceID()
		}

		w.Header().Set(TraceHeader, traceID)
		next.ServeHTTP(w, r.WithContext(logging.WithTraceID(r.Context(), traceID)))
	})
}
