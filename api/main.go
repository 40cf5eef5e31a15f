package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/trkd-health/feed-backend/internal/config"
	"github.com/trkd-health/feed-backend/internal/feedstore"
	"github.com/trkd-health/feed-backend/internal/gemini"
	"github.com/trkd-health/feed-backend/internal/generator"
	"github.com/trkd-health/feed-backend/internal/logger"
	"github.com/trkd-health/feed-backend/internal/models"
	"github.com/trkd-health/feed-backend/internal/prompt"
	"github.com/trkd-health/feed-backend/internal/publish"
	"github.com/trkd-health/feed-backend/internal/search"
	"github.com/trkd-health/feed-backend/internal/validate"
)

func main() {
	_ = godotenv.Load()

	log := logger.New("api")
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	store, err := feedstore.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, log)
	if err != nil {
		log.Error("init feed store", slog.Any("err", err))
		os.Exit(1)
	}
	defer store.Close()

	index, err := search.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
	if err != nil {
		log.Error("init search index", slog.Any("err", err))
		os.Exit(1)
	}

	model, err := gemini.New(cfg.GeminiAPIKey, cfg.GeminiBaseURL, cfg.GeminiModel)
	if err != nil {
		log.Error("init gemini client", slog.Any("err", err))
		os.Exit(1)
	}

	srv := &server{
		log:       log,
		cfg:       cfg,
		store:     store,
		index:     index,
		generator: generator.New(model, cfg.CategoryPause, log),
		publisher: publish.New(store, cfg.FeedRootPath, index, log),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", srv.handleHealth)
	r.Post("/feed/generate/{category}", srv.handleGenerateCategory)
	r.Post("/feed/generate-all", srv.handleGenerateAll)
	r.Get("/feed/{category}", srv.handleGetCategory)
	r.Post("/feed/upload", srv.handleUpload)
	r.Get("/feed/search", srv.handleSearch)

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      10 * time.Minute,
	}

	go func() {
		log.Info("api server starting", slog.String("addr", cfg.BindAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}

type server struct {
	log       *slog.Logger
	cfg       *config.API
	store     *feedstore.RedisStore
	index     *search.Client
	generator *generator.Generator
	publisher *publish.Manager
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Health(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err := s.index.Health(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *server) handleGenerateCategory(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	if !models.ValidCategory(category) {
		writeError(w, http.StatusBadRequest, "unknown category: "+category)
		return
	}

	count := clampInt(r.URL.Query().Get("count"), s.cfg.ItemsPerCategory, 100)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	items, err := s.generator.Category(ctx, category, count)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	report := validate.Section(category, items)
	if !report.Valid() {
		writeError(w, http.StatusUnprocessableEntity, strings.Join(report.Errors, "; "))
		return
	}

	if err := s.publisher.PublishCategory(ctx, category, items); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"category":       category,
		"itemsGenerated": len(items),
		"warnings":       report.Warnings,
	})
}

func (s *server) handleGenerateAll(w http.ResponseWriter, r *http.Request) {
	count := clampInt(r.URL.Query().Get("count"), s.cfg.ItemsPerCategory, 100)

	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Minute)
	defer cancel()

	results := s.generator.All(ctx, models.Categories, count)

	counts := make(map[string]int, len(results))
	var failures []string
	var warnings []string
	for _, category := range models.Categories {
		result := results[category]
		if result.Err != nil {
			counts[category] = 0
			failures = append(failures, category+": "+result.Err.Error())
			continue
		}

		report := validate.Section(category, result.Items)
		warnings = append(warnings, report.Warnings...)
		if !report.Valid() {
			failures = append(failures, category+": "+strings.Join(report.Errors, "; "))
			continue
		}

		if err := s.publisher.PublishCategory(ctx, category, result.Items); err != nil {
			failures = append(failures, category+": "+err.Error())
			continue
		}
		counts[category] = len(result.Items)
	}

	rec := publish.RunRecord{
		PromptVersion: prompt.Version,
		Categories:    counts,
		Failures:      failures,
	}
	if _, err := s.publisher.RecordRun(ctx, rec); err != nil {
		s.log.Warn("record run failed", slog.Any("err", err))
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"results":  counts,
		"failures": failures,
		"warnings": warnings,
	})
}

func (s *server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	if !models.ValidCategory(category) {
		writeError(w, http.StatusBadRequest, "unknown category: "+category)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var items map[string]models.FoodItem
	found, err := s.store.Get(ctx, s.cfg.FeedRootPath+"/"+category+"/items", &items)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		items = map[string]models.FoodItem{}
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"category": category,
		"items":    items,
		"count":    len(items),
	})
}

func (s *server) handleUpload(w http.ResponseWriter, r *http.Request) {
	var doc models.FeedDocument
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid feed document: "+err.Error())
		return
	}

	report := validate.Document(doc, models.Categories)
	if !report.Valid() {
		writeError(w, http.StatusUnprocessableEntity, strings.Join(report.Errors, "; "))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Minute)
	defer cancel()

	if err := s.publisher.PublishDocument(ctx, doc); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	counts, err := s.publisher.Verify(ctx, doc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "published but verification failed: "+err.Error())
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"message":  "feed uploaded",
		"counts":   counts,
		"warnings": report.Warnings,
	})
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	params := search.Params{
		Query:    strings.TrimSpace(r.URL.Query().Get("q")),
		Keywords: parseCSV(r.URL.Query().Get("keywords")),
		Category: strings.TrimSpace(r.URL.Query().Get("category")),
		From:     clampInt(r.URL.Query().Get("from"), 0, 10_000),
		Size:     clampInt(r.URL.Query().Get("size"), 20, 200),
	}

	result, err := s.index.SearchItems(ctx, params)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"total": result.Total,
		"items": result.Items,
	})
}

func parseCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func clampInt(raw string, fallback, max int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	if value <= 0 {
		return fallback
	}
	if value > max {
		return max
	}
	return value
}

func writeSuccess(w http.ResponseWriter, status int, payload map[string]any) {
	envelope := map[string]any{
		"success":   true,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range payload {
		envelope[k] = v
	}
	writeJSON(w, status, envelope)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"success":   false,
		"error":     message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// nothing better to do
	}
}
