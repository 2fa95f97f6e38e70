package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/feedpulse/feedpulse/internal/config"
	"github.com/feedpulse/feedpulse/internal/coordination"
	"github.com/feedpulse/feedpulse/internal/feeds"
	"github.com/feedpulse/feedpulse/internal/fetcher"
	"github.com/feedpulse/feedpulse/internal/ingest"
	"github.com/feedpulse/feedpulse/internal/judge"
	"github.com/feedpulse/feedpulse/internal/models"
	"github.com/feedpulse/feedpulse/internal/quotes"
	"github.com/feedpulse/feedpulse/internal/scheduler"
	"github.com/feedpulse/feedpulse/internal/search"
	"github.com/feedpulse/feedpulse/internal/sources"
	"github.com/feedpulse/feedpulse/internal/store"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting feedpulse")

	// Coordination store: Redis when configured, in-process otherwise
	var coordStore coordination.Store
	if cfg.RedisAddr != "" {
		redisStore, err := coordination.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logrus.Fatalf("Failed to connect to Redis: %v", err)
		}
		coordStore = redisStore
	} else {
		logrus.Info("REDIS_ADDR not set, using in-process coordination")
		coordStore = coordination.NewMemoryStore()
	}

	budget := coordination.NewBudgetTracker(coordStore, cfg.Location(), map[string]int{
		coordination.SourceSearch: cfg.SearchBudget,
		coordination.SourceDeals:  cfg.DealBudget,
		coordination.SourceGossip: cfg.GossipBudget,
		coordination.SourceJudge:  cfg.JudgeBudget,
	})
	lock := coordination.NewLock(coordStore)

	// Item store: Postgres when configured, in-memory otherwise
	var itemStore store.ItemStore
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			logrus.Fatalf("Failed to initialize database: %v", err)
		}
		defer pg.Close()
		itemStore = pg
	} else {
		logrus.Info("DATABASE_URL not set, using in-memory item store")
		itemStore = store.NewMemoryStore()
	}

	searchClient := search.NewClient(cfg.SearchEndpoint, cfg.SearchAPIKey, 15*time.Second)
	pageFetcher := fetcher.New(cfg.FetchTimeout, cfg.LoginWallPhrases)
	orchestrator := ingest.New(ingest.DefaultQueries(), searchClient, pageFetcher, itemStore, budget, lock)

	var judgeSvc feeds.Judge
	if cfg.JudgeEndpoint != "" {
		judgeSvc = judge.NewService(cfg.JudgeEndpoint, cfg.JudgeAPIKey, cfg.JudgeCacheTTL, budget, lock)
	}
	feedService := feeds.NewService(itemStore, budget, lock, judgeSvc)
	quoteClient := quotes.NewClient(cfg.QuoteEndpoint, 10*time.Second)

	var rss *sources.RSS
	if len(cfg.RSSFeeds) > 0 {
		rss = sources.NewRSS(cfg.RSSFeeds, cfg.FetchTimeout)
	}

	schedulerService := scheduler.NewService(cfg, orchestrator, rss)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheckHandler).Methods("GET")
	router.HandleFunc("/metrics", metricsHandler(orchestrator)).Methods("GET")
	router.HandleFunc("/api/feed", feedHandler(feedService)).Methods("GET")
	router.HandleFunc("/api/deals", dealsHandler(feedService)).Methods("GET")
	router.HandleFunc("/api/daily-pick", pickHandler(feedService)).Methods("GET")
	router.HandleFunc("/api/items/{id}/view", engagementHandler(feedService.RecordView)).Methods("POST")
	router.HandleFunc("/api/items/{id}/save", engagementHandler(feedService.RecordSave)).Methods("POST")
	router.HandleFunc("/api/quote", quoteHandler(quoteClient)).Methods("GET")
	router.HandleFunc("/trigger", triggerHandler(cfg, orchestrator)).Methods("POST")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

func metricsHandler(orchestrator *ingest.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, orchestrator.LastReport())
	}
}

func feedHandler(feedService *feeds.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		resp := feedService.Feed(r.Context(), feeds.Request{
			Category: r.URL.Query().Get("category"),
			City:     r.URL.Query().Get("city"),
			Platform: models.Platform(r.URL.Query().Get("platform")),
			Limit:    limit,
		})
		writeJSON(w, http.StatusOK, resp)
	}
}

func dealsHandler(feedService *feeds.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		deals, freshness := feedService.Deals(r.Context(), limit)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"deals":          deals,
			"data_freshness": freshness,
		})
	}
}

func pickHandler(feedService *feeds.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, feedService.Pick(r.Context()))
	}
}

func engagementHandler(record func(context.Context, string) (*models.ContentItem, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := record(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

func quoteHandler(quoteClient *quotes.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ticker := r.URL.Query().Get("ticker")
		if ticker == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "ticker is required"})
			return
		}
		shares, _ := strconv.ParseFloat(r.URL.Query().Get("shares"), 64)
		costBasis, _ := strconv.ParseFloat(r.URL.Query().Get("cost_basis"), 64)
		if shares <= 0 {
			shares = 1
		}

		value := quotes.CurrentValue(r.Context(), quoteClient, ticker, shares, costBasis)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ticker": ticker,
			"value":  value,
		})
	}
}

func triggerHandler(cfg *config.Config, orchestrator *ingest.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.AdminToken == "" || r.Header.Get("Authorization") != "Bearer "+cfg.AdminToken {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}

		go func() {
			report := orchestrator.Run(context.Background())
			logrus.Infof("Manual ingestion run completed: %d inserted", report.ItemsInserted)
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{"message": "Ingestion triggered"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Errorf("Response encoding failed: %v", err)
	}
}
