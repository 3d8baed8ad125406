package web

import (
	"context"
	"log"
	"net/http"
	"regexp"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"fieldservice/internal/core"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	accessLogKey contextKey = "access_log"
)

var validRequestID = regexp.MustCompile(`^[a-zA-Z0-9\-]{1,64}$`)

func requestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// RequestID tags each request with an id, echoed in X-Request-ID and in error bodies.
// A caller-supplied id is kept only if it is 1-64 letters, digits or hyphens.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if !validRequestID.MatchString(id) {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// accessEntry collects what inner handlers learn about a request for the access log.
type accessEntry struct {
	operator string
}

// noteOperator records the authenticated operator on the access log line.
func noteOperator(ctx context.Context, op core.Operator) {
	if e, ok := ctx.Value(accessLogKey).(*accessEntry); ok {
		e.operator = op.Name
	}
}

// Logger writes one line per request: request id, method, route pattern, status,
// bytes, duration, then the operator and the reception token when there is one.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		entry := &accessEntry{}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), accessLogKey, entry)))

		route := r.URL.Path
		var token string
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
			token = rctx.URLParam("token")
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		var b strings.Builder
		b.WriteString(requestIDFromContext(r.Context()))
		b.WriteString(" ")
		b.WriteString(r.Method)
		b.WriteString(" ")
		b.WriteString(route)
		if entry.operator != "" {
			b.WriteString(" op=" + entry.operator)
		}
		if token != "" {
			b.WriteString(" reception=" + token)
		}
		log.Printf("%s %d %dB %s", b.String(), status, ww.BytesWritten(), time.Since(start))
	})
}

// Recoverer turns a panic into a 500 JSON error and logs the stack.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rv := recover(); rv != nil {
				if rv == http.ErrAbortHandler {
					panic(rv)
				}
				log.Printf("panic in %s %s [%s]: %v\n%s", r.Method, r.URL.Path, requestIDFromContext(r.Context()), rv, debug.Stack())
				writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// CORS allows the configured origins. With no origins configured, no CORS header
// is ever sent.
func CORS(origins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && slices.Contains(origins, origin) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
				h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				h.Set("Access-Control-Expose-Headers", "X-Request-ID, Content-Disposition")
				h.Add("Vary", "Origin")
			}
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestBodyLimit rejects a declared Content-Length above maxBytes with 413 before
// the handler runs; bodies without a length are cut at maxBytes while decoding.
func RequestBodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
