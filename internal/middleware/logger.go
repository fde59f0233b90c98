package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapRequestLogger is a middleware that logs requests using zap.
func ZapRequestLogger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			// RequireAuth runs further down the chain; it fills holder in.
			holder := &identityHolder{}
			r = r.WithContext(withHolder(r.Context(), holder))

			defer func() {
				isDev := logger.Core().Enabled(zapcore.DebugLevel)
				elapsed := time.Since(start)

				fields := []zap.Field{
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", elapsed),
					zap.String("remote_ip", r.RemoteAddr),
				}
				if reqID := middleware.GetReqID(r.Context()); reqID != "" {
					fields = append(fields, zap.String("request_id", reqID))
				}
				if holder.user != "" {
					fields = append(fields, zap.String("user_id", string(holder.user)))
				}

				msg := "request completed"
				if isDev {
					msg = fmt.Sprintf("%s %s %d %s", r.Method, r.URL.Path, ww.Status(), elapsed)
				}
				switch {
				case ww.Status() >= http.StatusInternalServerError:
					logger.Error(msg, fields...)
				default:
					logger.Info(msg, fields...)
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
