package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/segmentio/kafka-go"

	"github.com/trkd-health/feed-backend/internal/config"
	"github.com/trkd-health/feed-backend/internal/dedupe"
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

// generationJob is the message format on the job topic. The scheduler (or an
// operator with a kafka CLI) publishes one per requested feed refresh.
type generationJob struct {
	JobID       string   `json:"job_id"`
	Categories  []string `json:"categories"`
	Count       int      `json:"count"`
	RequestedAt string   `json:"requested_at"`
}

// feedGenerator and feedPublisher are the slices of the pipeline the job
// runner needs; tests stub them.
type feedGenerator interface {
	All(ctx context.Context, categories []string, count int) map[string]generator.CategoryResult
}

type feedPublisher interface {
	PublishCategory(ctx context.Context, category string, items map[string]models.FoodItem) error
	RecordRun(ctx context.Context, rec publish.RunRecord) (string, error)
}

func main() {
	_ = godotenv.Load()

	log := logger.New("worker")
	cfg, err := config.LoadWorker()
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

	gen := generator.New(model, cfg.CategoryPause, log)
	pub := publish.New(store, cfg.FeedRootPath, index, log)
	cache := dedupe.NewCache(cfg.DedupeCapacity, cfg.DedupeTTL)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.KafkaTopic,
		GroupID:        cfg.KafkaConsumer,
		MinBytes:       1,
		MaxBytes:       1e6,
		CommitInterval: 0, // Disable auto-commit; manual commit only
	})
	defer reader.Close()

	dlqWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaTopic + "_dlq",
		MaxAttempts: 3,
	})
	defer dlqWriter.Close()

	log.Info("worker started",
		slog.String("topic", cfg.KafkaTopic),
		slog.String("group", cfg.KafkaConsumer),
		slog.String("dlq_topic", cfg.KafkaTopic+"_dlq"),
	)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("context canceled, stopping")
				return
			}
			log.Error("fetch message", slog.Any("err", err))
			continue
		}

		if err := runJob(ctx, log, gen, pub, cache, msg.Value); err != nil {
			log.Warn("job failed, sending to DLQ",
				slog.Any("err", err),
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
			)

			dlqMsg := kafka.Message{
				Value: msg.Value,
				Headers: append(msg.Headers,
					kafka.Header{Key: "original_partition", Value: []byte(fmt.Sprintf("%d", msg.Partition))},
					kafka.Header{Key: "original_offset", Value: []byte(fmt.Sprintf("%d", msg.Offset))},
					kafka.Header{Key: "error", Value: []byte(err.Error())},
					kafka.Header{Key: "timestamp", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
				),
			}

			if dlqErr := writeWithBackoff(ctx, dlqWriter, dlqMsg, log); dlqErr != nil {
				log.Error("DLQ write exhausted retries, leaving message uncommitted",
					slog.Int("partition", msg.Partition),
					slog.Int64("offset", msg.Offset),
				)
				continue
			}
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit message", slog.Any("err", err))
		}
	}
}

// runJob parses and executes one generation job. Per-category generation
// failures are recorded in the run log but do not fail the job; only a job
// that produces nothing at all (or cannot be parsed) is an error.
func runJob(ctx context.Context, log *slog.Logger, gen feedGenerator, pub feedPublisher, cache *dedupe.Cache, payload []byte) error {
	var job generationJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return fmt.Errorf("decode job: %w", err)
	}
	if job.JobID == "" {
		return errors.New("job missing job_id")
	}

	if cache.Observe(job.JobID) {
		log.Debug("duplicate job", slog.String("job_id", job.JobID))
		return nil
	}

	categories := job.Categories
	if len(categories) == 0 {
		categories = models.Categories
	}
	for _, category := range categories {
		if !models.ValidCategory(category) {
			return fmt.Errorf("job %s: unknown category %q", job.JobID, category)
		}
	}
	count := job.Count
	if count <= 0 {
		count = 25
	}

	results := gen.All(ctx, categories, count)

	counts := make(map[string]int, len(results))
	var failures []string
	for _, category := range categories {
		result := results[category]
		if result.Err != nil {
			counts[category] = 0
			failures = append(failures, category+": "+result.Err.Error())
			continue
		}

		report := validate.Section(category, result.Items)
		for _, warning := range report.Warnings {
			log.Warn("validation warning", slog.String("job_id", job.JobID), slog.String("warning", warning))
		}
		if !report.Valid() {
			failures = append(failures, category+": "+strings.Join(report.Errors, "; "))
			continue
		}

		if err := pub.PublishCategory(ctx, category, result.Items); err != nil {
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
	if _, err := pub.RecordRun(ctx, rec); err != nil {
		log.Warn("record run failed", slog.Any("err", err))
	}

	published := 0
	for _, n := range counts {
		published += n
	}
	if published == 0 {
		return fmt.Errorf("job %s published nothing: %s", job.JobID, strings.Join(failures, "; "))
	}

	log.Info("job completed",
		slog.String("job_id", job.JobID),
		slog.Int("items", published),
		slog.Int("failed_categories", len(failures)),
	)
	return nil
}

func writeWithBackoff(ctx context.Context, w *kafka.Writer, msg kafka.Message, log *slog.Logger) error {
	var lastErr error
	for attempt := 0; attempt < 5; attempt++ {
		if err := w.WriteMessages(ctx, msg); err == nil {
			return nil
		} else {
			lastErr = err
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			log.Warn("DLQ write failed, retrying",
				slog.Any("err", err),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}
