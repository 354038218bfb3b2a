package httpapi

import (
	"net/http"
	"time"

	"restauro/internal/http/handlers"
	mw "restauro/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Options carries the middleware settings of the router.
type Options struct {
	AllowedOrigins  []string
	DefaultLocale   string
	CountryLookup   mw.CountryLookup
	RateLimitPerMin int
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RealIP,
		mw.RequestID,
		middleware.Recoverer,
		mw.CORS(opts.AllowedOrigins),
		mw.I18N(opts.DefaultLocale, opts.CountryLookup),
		mw.Logger(*app.Logger),
	)

	// Health
	r.Get("/v1/healthz", app.Health)

	r.Route("/api", func(r chi.Router) {
		if opts.RateLimitPerMin > 0 {
			r.Use(mw.RateLimit(opts.RateLimitPerMin, time.Minute))
		}
		r.Post("/process-image", app.ProcessImage)
		r.Post("/merge-images", app.MergeImages)
		r.Post("/generate-image", app.GenerateImage)
		r.Post("/chat", app.Chat)
	})

	return r
}
