package middleware

import (
	"net/http"
	"time"

	"github.com/kbukum/testserver/logger"
	"github.com/kbukum/testserver/observability"
)

// RequestLogger logs each request with method, target, status and duration
// and records it in ins. A nil ins records nothing.
func RequestLogger(log *logger.Logger, ins *observability.Instruments) Middleware {
	if ins == nil {
		ins = observability.NopInstruments()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)
			duration := time.Since(start)

			ins.RecordRequest(r.Context(), r.Method, sw.status, duration)

			fields := logger.Fields(
				"method", r.Method,
				"target", r.RequestURI,
				"proto", r.Proto,
				logger.FieldStatus, sw.status,
				logger.FieldDuration, duration.Milliseconds(),
				"bytes", sw.bytes,
			)
			if id := RequestIDFrom(r.Context()); id != "" {
				fields[logger.FieldRequestID] = id
			}
			logByStatus(log, fields, sw.status)
		})
	}
}

func logByStatus(log *logger.Logger, fields map[string]interface{}, status int) {
	switch {
	case status >= 500:
		log.Error("Request completed", fields)
	case status >= 400:
		log.Warn("Request completed", fields)
	default:
		log.Debug("Request completed", fields)
	}
}
