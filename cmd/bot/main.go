package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cublic-github/team-summary-bot/internal/config"
	"github.com/cublic-github/team-summary-bot/internal/digest"
	"github.com/cublic-github/team-summary-bot/internal/discord"
	"github.com/cublic-github/team-summary-bot/internal/notifications"
	"github.com/cublic-github/team-summary-bot/internal/roster"
	"github.com/cublic-github/team-summary-bot/internal/scheduler"
	"github.com/cublic-github/team-summary-bot/internal/summarizer"
	"github.com/cublic-github/team-summary-bot/internal/transcript"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	// Initialize configuration
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

	logrus.Info("Starting Team Summary Bot")

	// Load the member roster
	memberRoster, err := roster.Load(cfg.MemberRosterJSON, cfg.MemberRosterFile, cfg.UseMemberRoster)
	if err != nil {
		logrus.Fatalf("Failed to load member roster: %v", err)
	}
	logrus.Infof("Member roster loaded with %d entries", memberRoster.Size())

	// Operational side channel (best-effort, optional)
	notifier := notifications.NewWebhookNotifier(cfg.LogWebhookURL)

	// Discord REST client and transcript builder
	discordClient := discord.NewClient(cfg.DiscordToken, cfg.GuildID, discord.DefaultBaseURL, notifier)
	builder := transcript.NewBuilder(discordClient, memberRoster, cfg.IncludeArchivedThreads)

	// Gemini-backed summarizer with candidate fallback
	generator := summarizer.NewGeminiGenerator(cfg.GeminiAPIKey)
	defer generator.Close()
	summaryService := summarizer.New(generator, cfg.ModelCandidates, notifier)

	// Digest delivery and orchestration
	deliveryService := notifications.NewService(cfg)
	digestService := digest.NewService(builder, summaryService, deliveryService, notifier)

	// Optional in-process schedule
	schedulerService := scheduler.NewService(cfg, digestService)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	// Set up HTTP server
	router := mux.NewRouter()

	// Health check endpoint
	router.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// Metrics endpoint
	router.HandleFunc("/metrics", metricsHandler(digestService)).Methods("GET")

	// Digest trigger endpoint: runs one job synchronously
	router.HandleFunc("/api/daily-summary", dailySummaryHandler(digestService, notifier)).Methods("GET", "POST")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Minute, // a run blocks on many upstream calls
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in a goroutine
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

func metricsHandler(digestService *digest.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(digestService.GetMetrics()))
	}
}

// dailySummaryHandler is the job boundary: every failure below it, panics
// included, is logged, forwarded best-effort to the operational channel, and
// returned as a generic error response without taking the process down.
func dailySummaryHandler(digestService *digest.Service, notifier notifications.Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				msg := fmt.Sprintf("panic in daily-summary: %v", rec)
				logrus.Error(msg)
				notifier.Notify("🔥 unhandled: " + msg)
				writeJSON(w, http.StatusInternalServerError, map[string]string{
					"status":  "error",
					"message": msg,
				})
			}
		}()

		// Runs are not cancelled when the caller disconnects.
		report, err := digestService.Run(context.Background())
		if err != nil {
			logrus.Errorf("daily-summary run failed: %v", err)
			notifier.Notify(fmt.Sprintf("🔥 unhandled: %v", err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"status":  "error",
				"message": err.Error(),
			})
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "success",
			"summary": report.Summary,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.Errorf("Failed to encode response: %v", err)
	}
}
