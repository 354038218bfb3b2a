package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"restauro/internal/http/handlers"
	httpapi "restauro/internal/http/httpapi"
	"restauro/internal/infra"
	"restauro/internal/infra/credentials"
	"restauro/internal/infra/geoip"
	"restauro/internal/providers/genai"
	"restauro/internal/retry"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)
	ctx := context.Background()

	// The database only supplies the Gemini key when the environment does not.
	var store *credentials.Store
	if cfg.GeminiAPIKey == "" && cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer pool.Close()
		store = credentials.NewStore(infra.NewSQLRunner(pool, logger))
	}
	apiKey, err := store.Resolve(ctx, credentials.Gemini, cfg.GeminiAPIKey)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load gemini api key from database")
	}
	if apiKey == "" {
		logger.Warn().Msg("GEMINI_API_KEY is not set; generation requests will fail with a configuration error")
	}

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	defer resolver.Close()

	policy := retry.Default()
	policy.Retries = cfg.RetryCount
	policy.BaseDelay = cfg.RetryBaseDelay
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		logger.Warn().Err(err).Int("attempt", attempt+1).Dur("delay", delay).Msg("upstream rate limited, retrying")
	}

	client := genai.NewClient(genai.Options{
		APIKey:     apiKey,
		BaseURL:    cfg.GeminiBaseURL,
		ImageModel: cfg.GeminiImageModel,
		TextModel:  cfg.GeminiTextModel,
		Logger:     &logger,
		Retry:      policy,
	})

	app := handlers.NewApp(cfg, &logger, client)
	router := httpapi.NewRouter(app, httpapi.Options{
		AllowedOrigins:  cfg.AllowedOrigins,
		DefaultLocale:   cfg.DefaultLocale,
		CountryLookup:   resolver.Lookup(),
		RateLimitPerMin: cfg.RateLimitPerMin,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("addr", server.Addr()).Str("image_model", client.ImageModel()).Msg("API listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
