package router

import (
	"net/http"

	"github.com/adamskt/Coalesce/internal/config"
	"github.com/adamskt/Coalesce/internal/handler"
	"github.com/adamskt/Coalesce/internal/logger"
)

// InitRoutes registers the API routes with CORS, request logging and
// (when enabled) JWT authentication.
func InitRoutes(cfg *config.Config) error {
	handler.Init(cfg)

	authn, err := newAuthMiddleware(cfg.Auth)
	if err != nil {
		return err
	}

	wrap := func(h http.HandlerFunc) http.HandlerFunc {
		return withCORS(cfg.CORS.AllowOrigin, cfg.CORS.AllowCredentials, withLogging(authn(h)))
	}

	http.HandleFunc("/api/list", wrap(handler.ListHandler))
	http.HandleFunc("/api/get", wrap(handler.ItemHandler))
	http.HandleFunc("/api/count", wrap(handler.CountHandler))
	return nil
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next(sw, r)
		level := "info"
		if sw.status >= 500 {
			level = "error"
		} else if sw.status >= 400 {
			level = "warn"
		}
		fields := map[string]any{
			"method": r.Method,
			"path":   r.URL.Path,
			"status": sw.status,
		}
		switch level {
		case "error":
			logger.Error("response", fields)
		case "warn":
			logger.Warn("response", fields)
		default:
			logger.Info("response", fields)
		}
	}
}
