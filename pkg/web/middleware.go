package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ritzau/pdg-diff/pkg/engine"
	"github.com/ritzau/pdg-diff/pkg/logging"
)

const requestIDHeader = "X-Request-ID"

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pdgdiff_http_requests_total",
		Help: "HTTP requests by route template, method and status",
	}, []string{"route", "method", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pdgdiff_http_request_duration_seconds",
		Help:    "Time spent serving HTTP requests by route template",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

// diffNote is filled in by handlers that ran a diff, for the access log
type diffNote struct {
	run      string
	strategy string
	recovery string
	distance int
}

type noteKey struct{}

// noteDiff attaches the outcome of a diff to the request's access log line
func noteDiff(ctx context.Context, r *engine.Result) {
	if note, ok := ctx.Value(noteKey{}).(*diffNote); ok {
		note.run = r.RunID
		note.strategy = string(r.Strategy)
		note.recovery = string(r.Recovery)
		note.distance = r.Distance
	}
}

// routeTemplate names the matched route; mux runs middleware only after a match
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

// accessLog tags each request with an id, counts it per route template and
// writes one log line when it completes. Diff requests also log the run id,
// strategies and distance.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		note := &diffNote{}
		ctx := context.WithValue(logging.WithRequestID(r.Context(), id), noteKey{}, note)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		route := routeTemplate(r)

		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))
		elapsed := time.Since(start)

		httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())

		args := []any{"method", r.Method, "route", route, "status", rec.status, "duration", elapsed}
		if note.run != "" {
			args = append(args, "run", note.run, "strategy", note.strategy,
				"recovery", note.recovery, "distance", note.distance)
		}
		switch {
		case rec.status >= http.StatusInternalServerError:
			logging.ErrorContext(ctx, "Request failed", args...)
		case rec.status >= http.StatusBadRequest:
			logging.WarnContext(ctx, "Request rejected", args...)
		default:
			logging.InfoContext(ctx, "Request served", args...)
		}
	})
}

// statusRecorder keeps the response status and still lets event streams flush
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
