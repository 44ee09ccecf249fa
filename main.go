// File: servicefinder/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"servicefinder/config"
	"servicefinder/database"
	dialogueRepo "servicefinder/database/repository/dialogue"
	"servicefinder/handlers"
	"servicefinder/middleware"
	"servicefinder/routes"
	"servicefinder/services/dialogue"
	"servicefinder/services/geocoding"
	"servicefinder/services/intent"
	"servicefinder/services/search"
	"servicefinder/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "servicefinder",
	Short: "Conversational search for local service providers",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.LoadConfig()
	},
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat API server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, chatCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newSearcher selects the search backend named by SEARCH_BACKEND. The returned close
// function releases backend resources.
func newSearcher(ctx context.Context, cfg config.Config, logger *zap.Logger) (search.Searcher, func(), error) {
	switch cfg.SearchBackend {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, nil, errors.New("SEARCH_BACKEND=gemini requires GEMINI_API_KEY")
		}
		client, err := search.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, err
		}
		return search.NewGeminiSearcher(client, cfg.ResultCount), func() { _ = client.Close() }, nil
	case "http", "":
		return search.NewHTTPClient(cfg.SearchURL, cfg.SearchTimeout(), logger), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown SEARCH_BACKEND %q", cfg.SearchBackend)
	}
}

// newGeocoder returns nil when no Google API key is configured; shared positions are then
// ignored and the user is asked to type a location.
func newGeocoder(cfg config.Config, logger *zap.Logger) geocoding.Geocoder {
	if cfg.GoogleAPIKey == "" {
		return nil
	}
	return geocoding.NewGoogleGeocoder(cfg.GoogleAPIKey, "", logger)
}

// engineOptions holds the settings shared by both commands. Progress phases are logged;
// the chat command replaces the observer to print them instead.
func engineOptions(cfg config.Config, logger *zap.Logger) dialogue.Options {
	return dialogue.Options{
		Resolver: intent.NewResolver(intent.NewLibrary(cfg.ServiceNouns(), cfg.Cities())),
		Logger:   logger,
		Observer: dialogue.PhaseObserverFunc(func(conversationID string, phase dialogue.Phase) {
			logger.Debug("Turn progress", zap.String("conversation", conversationID), zap.String("phase", string(phase)))
		}),
		PhaseDelays: dialogue.PhaseDelays{
			Searching:  time.Duration(cfg.PhaseSearchingMs) * time.Millisecond,
			Organizing: time.Duration(cfg.PhaseOrganizingMs) * time.Millisecond,
		},
		ResultCount:   cfg.ResultCount,
		SearchTimeout: cfg.SearchTimeout(),
	}
}

func runServer() error {
	cfg := config.AppConfig
	logger := utils.GetLogger()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database.InitDB()
	redisClient := utils.GetContextCacheClient()
	defer redisClient.Close()

	searcher, closeSearcher, err := newSearcher(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSearcher()

	var transcriber handlers.Transcriber
	if st, err := handlers.NewSpeechTranscriber(ctx, cfg.GoogleServiceAccountFile); err != nil {
		logger.Warn("main: voice input disabled", zap.Error(err))
	} else {
		defer st.Close()
		transcriber = st
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := engineOptions(cfg, logger)
	opts.Store = dialogueRepo.NewRedisContextStore(redisClient, cfg.ContextTTL(), cfg.BusyTTL())
	opts.Turns = dialogueRepo.NewMongoTurnLog()
	opts.Searcher = searcher
	opts.Geocoder = newGeocoder(cfg, logger)
	opts.Metrics = dialogue.NewMetrics(registry)
	engine := dialogue.NewEngine(opts)

	utils.StartHealthMonitor(ctx, 60*time.Second,
		func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		database.Ping,
	)

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware(cfg.MaxRequestsPerMin, logger))

	handlerBundle := handlers.NewChatBundle(handlers.NewChatHandler(engine, transcriber, logger))
	handlerBundle.HealthHandler = handlers.HealthHandler
	handlerBundle.MetricsHandler = gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	routes.RegisterRoutes(router, handlerBundle)

	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
	}
	logger.Sugar().Info("main: server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if err := database.Disconnect(shutdownCtx); err != nil {
		logger.Warn("main: mongo disconnect failed", zap.Error(err))
	}

	logger.Sugar().Info("main: server stopped gracefully")
	return nil
}
