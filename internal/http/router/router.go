package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/rlagosf/rafc-go-backend/internal/http/handler"
	"github.com/rlagosf/rafc-go-backend/internal/http/middleware"
	"github.com/rlagosf/rafc-go-backend/internal/http/response"
)

type Dependencies struct {
	SigningHandler *handler.SigningHandler
	Authenticator  *middleware.Authenticator
	PublicLimiter  middleware.Limiter

	PublicRateLimitRPM int
	RateLimitFailMode  middleware.FailureMode
}

func New(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		response.JSON(w, req, http.StatusOK, map[string]string{"status": "ok"})
	})

	publicLimit := middleware.NewRateLimiter(
		dep.PublicLimiter,
		dep.PublicRateLimitRPM,
		time.Minute,
		dep.RateLimitFailMode,
		"firma_public",
	)

	r.Route("/api/v1/firma-tokens", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(dep.Authenticator.Middleware())
			r.Use(middleware.RequireAnyRole("staff", "admin"))
			r.Post("/", dep.SigningHandler.Issue)
		})
		r.Group(func(r chi.Router) {
			r.Use(publicLimit.Middleware())
			r.Get("/{token}", dep.SigningHandler.Validate)
			r.Post("/{token}/firmar", dep.SigningHandler.Sign)
		})
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		response.Error(w, req, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})

	return r
}
