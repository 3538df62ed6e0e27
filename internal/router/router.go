package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/maplewind/maplewind-api/internal/auth"
	"github.com/maplewind/maplewind-api/internal/character"
	"github.com/maplewind/maplewind-api/internal/comment"
	"github.com/maplewind/maplewind-api/internal/system"
	"github.com/maplewind/maplewind-api/internal/user"
	"github.com/maplewind/maplewind-api/pkg/utilities"
)

const (
	APIPrefix       = "/api/v1"
	RequestIDHeader = "X-Request-ID"
)

type requestIDKey struct{}

// RequestID returns the id assigned by RequestIDMiddleware, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestIDMiddleware keeps an incoming X-Request-ID or assigns a KSUID, and
// echoes it on the response.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = utilities.NewKSUID()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// LoggingMiddleware logs each request at debug level, 5xx responses at error.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log := logger.Debugw
			if status >= http.StatusInternalServerError {
				log = logger.Errorw
			}
			log("http request",
				"request_id", RequestID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
				"size", ww.BytesWritten(),
			)
		})
	}
}

// SecurityHeadersMiddleware sets common HTTP security headers. HSTS is only
// sent over TLS.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer-when-downgrade")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			if h.Get("Content-Security-Policy") == "" {
				h.Set("Content-Security-Policy", "default-src 'self'; object-src 'none'; base-uri 'self';")
			}
			if r.TLS != nil {
				h.Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Deps are the handlers mounted under APIPrefix.
type Deps struct {
	Auth           *auth.Handler
	AuthSvc        *auth.Service
	User           *user.Handler
	Character      *character.Handler
	Comment        *comment.Handler
	System         *system.Handler
	AllowedOrigins []string
}

// RegisterRoutes builds the HTTP handler for the whole API.
func RegisterRoutes(logger *zap.SugaredLogger, d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(SecurityHeadersMiddleware())
	if len(d.AllowedOrigins) > 0 {
		r.Use(cors.Handler(corsOptions(d.AllowedOrigins)))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utilities.WriteDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utilities.WriteDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	requireUser := auth.RequireUser(d.AuthSvc, logger)

	r.Route(APIPrefix, func(r chi.Router) {
		r.Get("/health", d.System.Health)
		r.Get("/system/notices", d.System.Notices)

		r.Route("/users", func(r chi.Router) {
			r.Post("/signup", d.Auth.Signup)
			r.Post("/login", d.Auth.Login)
			r.Post("/refresh", d.Auth.Refresh)
			r.Get("/kakao/login", d.Auth.KakaoLogin)
			r.Get("/kakao/callback", d.Auth.KakaoCallback)
			r.Post("/kakao/register", d.Auth.KakaoRegister)

			r.Group(func(r chi.Router) {
				r.Use(requireUser)
				r.Post("/logout", d.Auth.Logout)
				r.Get("/me", d.User.Me)
				r.Delete("/me", d.Auth.Withdraw)
			})
		})

		r.Get("/characters", d.Character.List)
		r.Get("/characters/{id}", d.Character.Get)
		r.Get("/characters/{id}/settlements", d.Character.Settlements)
		r.Get("/settlements/{id}", d.Character.Settlement)

		r.Get("/comments", d.Comment.List)
		r.With(requireUser).Post("/comments", d.Comment.Create)
	})
	return r
}

// corsOptions allows credentials so the refresh cookie reaches the API. Only
// the listed origins are honoured; with none, the API is same-origin only.
func corsOptions(origins []string) cors.Options {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return cors.Options{
		AllowOriginFunc:  func(_ *http.Request, origin string) bool { return allowed[origin] },
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader, "X-Total-Count"},
		AllowCredentials: true,
		MaxAge:           300,
	}
}
