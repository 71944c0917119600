package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/coffeeshop/drinks/internal/httputil"
	"github.com/coffeeshop/drinks/internal/logger"
	"github.com/elnormous/contenttype"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

var jsonMediaType = contenttype.NewMediaType("application/json")

// RequestContext attaches request data for log records. An incoming
// X-Request-ID is reused, otherwise a new one is generated and echoed back.
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := logger.WithRequestData(r.Context(), &logger.RequestData{
			RequestID:  id,
			Method:     r.Method,
			Path:       r.URL.Path,
			RemoteAddr: r.RemoteAddr,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// RequestLogger logs one line per completed request.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		logger.InfoContext(r.Context(), "http.request",
			"status", status,
			"bytes", rec.bytes,
			"duration", time.Since(start),
		)
	})
}

// Recoverer turns a handler panic into a 500 envelope. A response that has
// already started is left as is; the panic is only logged.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w}
		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				logger.ErrorContext(r.Context(), "Handler panic",
					"panic", p,
					"status_written", rec.status,
					"stack", string(debug.Stack()),
				)
				if rec.status == 0 {
					httputil.WriteFailure(w, http.StatusInternalServerError, "")
				}
			}
		}()
		next.ServeHTTP(rec, r)
	})
}

// CORS allows browser clients from origin to call the API. Preflight requests
// are answered directly with 204.
func CORS(origin string) Middleware {
	if origin == "" {
		origin = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Headers", "Content-Type,Authorization,true")
			h.Set("Access-Control-Allow-Methods", "GET,PATCH,POST,DELETE,OPTIONS")
			if origin != "*" {
				h.Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireJSON rejects request bodies that are not application/json with 415.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctype, err := contenttype.GetMediaType(r)
		if err != nil || !ctype.Matches(jsonMediaType) {
			httputil.WriteError(w, r, http.StatusUnsupportedMediaType, "content_type", r.Header.Get("Content-Type"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
