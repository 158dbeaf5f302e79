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

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Headers a till sends with every call. They only label log lines and error
// responses; authorization still goes through manager approval in the body.
const (
	headerRequestID = "X-Request-ID"
	headerTerminal  = "X-Terminal-ID"
	headerCashier   = "X-Cashier-Email"
)

type contextKey struct{}

// tillContext identifies which till and cashier a request came from.
type tillContext struct {
	RequestID string
	Terminal  string
	Cashier   string
}

var (
	validRequestID = regexp.MustCompile(`^[a-zA-Z0-9\-]{1,64}$`)
	validLabel     = regexp.MustCompile(`^[a-zA-Z0-9@._+\-]{1,128}$`)
)

func tillFromContext(ctx context.Context) tillContext {
	v, _ := ctx.Value(contextKey{}).(tillContext)
	return v
}

// requestIDFromContext returns the request ID from ctx, or empty string.
func requestIDFromContext(ctx context.Context) string {
	return tillFromContext(ctx).RequestID
}

// label renders the till identity for log lines, e.g. "term=SN-1 cashier=ana@x".
func (t tillContext) label() string {
	var b strings.Builder
	b.WriteString("term=")
	b.WriteString(orDash(t.Terminal))
	b.WriteString(" cashier=")
	b.WriteString(orDash(t.Cashier))
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// TillContext tags each request with a request id and the calling till's
// terminal and cashier. A caller-supplied X-Request-ID is kept only when it is a
// short alphanumeric/hyphen string; terminal and cashier headers that fail
// validation are dropped rather than echoed into logs.
func TillContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc := tillContext{
			RequestID: r.Header.Get(headerRequestID),
			Terminal:  r.Header.Get(headerTerminal),
			Cashier:   strings.ToLower(r.Header.Get(headerCashier)),
		}
		if !validRequestID.MatchString(tc.RequestID) {
			tc.RequestID = uuid.NewString()
		}
		if !validLabel.MatchString(tc.Terminal) {
			tc.Terminal = ""
		}
		if !validLabel.MatchString(tc.Cashier) {
			tc.Cashier = ""
		}
		w.Header().Set(headerRequestID, tc.RequestID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, tc)))
	})
}

// Logger writes one line per request. Mutating calls that fail are marked so a
// rejected void or finalize stands out in the till's history.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		mark := ""
		if status >= http.StatusBadRequest && r.Method != http.MethodGet {
			mark = " REJECTED"
		}
		tc := tillFromContext(r.Context())
		log.Printf("[%s] %s %s %s -> %d (%dB, %s)%s",
			tc.RequestID, tc.label(), r.Method, r.URL.Path, status, ww.BytesWritten(), time.Since(start).Round(time.Millisecond), mark)
	})
}

// Recoverer turns a handler panic into a 500 and logs the stack with the till
// that triggered it.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rv := recover()
			if rv == nil {
				return
			}
			if rv == http.ErrAbortHandler {
				panic(rv)
			}
			tc := tillFromContext(r.Context())
			log.Printf("[%s] panic %s %s %s: %v\n%s", tc.RequestID, tc.label(), r.Method, r.URL.Path, rv, debug.Stack())
			writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
		}()
		next.ServeHTTP(w, r)
	})
}

// CORS answers browsers on the listed till origins. An empty list disables it.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowHeaders := strings.Join([]string{"Content-Type", headerRequestID, headerTerminal, headerCashier}, ", ")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && slices.Contains(allowedOrigins, origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Expose-Headers", headerRequestID)
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestBodyLimit caps request bodies; decodeJSON reports overflow as 413.
func RequestBodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
