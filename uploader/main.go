// Command uploader loads a pre-built static feed file, validates it, and
// publishes it to the store, bypassing generation entirely. Exit code is
// non-zero when any hard error occurs.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/trkd-health/feed-backend/internal/config"
	"github.com/trkd-health/feed-backend/internal/feedstore"
	"github.com/trkd-health/feed-backend/internal/logger"
	"github.com/trkd-health/feed-backend/internal/models"
	"github.com/trkd-health/feed-backend/internal/publish"
	"github.com/trkd-health/feed-backend/internal/search"
	"github.com/trkd-health/feed-backend/internal/validate"
)

func main() {
	_ = godotenv.Load()

	feedFile := flag.String("file", "feed.json", "path to the static feed document")
	skipValidation := flag.Bool("skip-validation", false, "publish without running the schema validator")
	validateOnly := flag.Bool("validate-only", false, "validate the feed file and exit without publishing")
	noIndex := flag.Bool("no-index", false, "skip mirroring items into the search index")
	flag.Parse()

	log := logger.New("uploader")
	cfg, err := config.LoadUploader(*feedFile)
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	doc, err := loadFeed(cfg.FeedFile)
	if err != nil {
		log.Error("load feed file", slog.Any("err", err))
		fmt.Fprintf(os.Stderr, "hint: check that %s exists and contains a full feed document\n", cfg.FeedFile)
		os.Exit(1)
	}

	if !*skipValidation {
		report := validate.Document(doc, models.Categories)
		for _, warning := range report.Warnings {
			fmt.Printf("warning: %s\n", warning)
		}
		if !report.Valid() {
			for _, e := range report.Errors {
				fmt.Fprintf(os.Stderr, "error: %s\n", e)
			}
			fmt.Fprintln(os.Stderr, "hint: fix the errors above before uploading (root must hold exactly breakfast, lunch, dinner, each with an items map)")
			os.Exit(1)
		}
		fmt.Println("feed structure is valid")
	}

	if *validateOnly {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store, err := feedstore.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, log)
	if err != nil {
		log.Error("init feed store", slog.Any("err", err))
		os.Exit(1)
	}
	defer store.Close()

	var index publish.Indexer
	if !*noIndex {
		client, err := search.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
		if err != nil {
			log.Error("init search index", slog.Any("err", err))
			os.Exit(1)
		}
		index = client
	}

	pub := publish.New(store, cfg.FeedRootPath, index, log)

	if err := pub.PublishDocument(ctx, doc); err != nil {
		log.Error("publish feed", slog.Any("err", err))
		fmt.Fprintln(os.Stderr, "hint: categories already written stay written; re-run after fixing the store connection")
		os.Exit(1)
	}

	counts, err := pub.Verify(ctx, doc)
	if err != nil {
		log.Error("verify feed", slog.Any("err", err))
		os.Exit(1)
	}

	fmt.Println("upload verified:")
	for _, category := range models.Categories {
		fmt.Printf("  %s: %d items\n", category, counts[category])
	}
}

func loadFeed(path string) (models.FeedDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var doc models.FeedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}
