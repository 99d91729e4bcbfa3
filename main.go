package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/The-culture-connection/businessesgrabber/config"
	"github.com/The-culture-connection/businessesgrabber/helpers"
	"github.com/The-culture-connection/businessesgrabber/internal/scraper"
	"github.com/The-culture-connection/businessesgrabber/logger"
	"github.com/The-culture-connection/businessesgrabber/services/cache"
	"github.com/The-culture-connection/businessesgrabber/services/exporter"
	"github.com/The-culture-connection/businessesgrabber/services/publisher"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// All resource cleanup happens via defers inside run; main only
	// translates the result into an exit code so the browser session and
	// publisher are always released, even on a failed run
	if err := run(log); err != nil {
		log.Error().Err(err).Msg("Run failed")
		os.Exit(1)
	}
}

func run(log *logger.Logger) error {
	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	helpers.SetTimeout(cfg.FetchTimeout)

	log.Info().
		Str("environment", cfg.Environment).
		Str("strategy", cfg.DiscoveryMethod).
		Str("entry", cfg.EntryURL).
		Msg("Starting business directory scraper")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling: first signal flushes and stops
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("Received shutdown signal, saving progress")
		cancel()
	}()

	// Initialize optional services
	var cacheSvc cache.CacheService
	if cfg.MemcacheAddr != "" {
		cacheSvc = cache.NewMemcacheService(cfg.MemcacheAddr)
	}

	var pub publisher.Publisher
	if cfg.RedisAddr != "" {
		redisPub := publisher.NewRedisPublisher(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.RedisStreamPrefix, cfg.RedisStreamCount, cfg.RedisStreamMaxLen)
		defer redisPub.Close()
		pub = redisPub
	}

	fetcher := &scraper.HTTPFetcher{
		CacheSvc:  cacheSvc,
		BlockKey:  blockKey(cfg.BaseURL),
		BlockTime: time.Duration(cfg.BlockTime) * time.Second,
	}

	// The browser session is only started for the browser strategy and
	// must be released on every exit path
	var session scraper.BrowserSession
	if cfg.DiscoveryMethod == config.StrategyBrowser {
		chromeSession, err := scraper.NewChromeSession(ctx, cfg.ChromeHeadless)
		if err != nil {
			return fmt.Errorf("failed to start browser: %w", err)
		}
		defer chromeSession.Close()
		session = chromeSession
	}

	discoverer, err := scraper.NewDiscoverer(&cfg, fetcher, session)
	if err != nil {
		return fmt.Errorf("failed to create discoverer: %w", err)
	}

	ids, err := discoverer.Discover(ctx)
	if err != nil {
		return fmt.Errorf("discovery failed (%s): %w", discoverer.GetName(), err)
	}
	if ids.Len() == 0 {
		log.Warn().Msg("No listings discovered, nothing to do")
		return nil
	}
	log.Info().Int("listings", ids.Len()).Msg("Discovery finished")

	// Resume from a previous checkpoint if requested
	var state *scraper.State
	if cfg.ResumeFrom != "" {
		state, err = scraper.LoadCheckpoint(cfg.ResumeFrom)
		if err != nil {
			log.Warn().Err(err).Msg("Could not resume from checkpoint, starting fresh")
			state = nil
		} else {
			log.Info().
				Int("records", len(state.Records)).
				Int("processed", len(state.Processed)).
				Msg("Resumed from checkpoint")
		}
	}

	exp := &exporter.FileExporter{CategorySheets: cfg.CategorySheets}
	checkpointPath := filepath.Join(cfg.OutputDir, cfg.OutputBasename+"_checkpoint.json")
	aggregator := scraper.NewAggregator(extractorFor(cfg, fetcher), exp, pub, cfg.CheckpointInterval, checkpointPath, cfg.RequestDelay)

	state, runErr := aggregator.Run(ctx, ids.Slice(), state)

	if pub != nil {
		if err := pub.TrimStreams(); err != nil {
			log.Warn().Err(err).Msg("Failed to trim record streams")
		}
	}

	// Export whatever was collected, even for an interrupted run
	writeOutputs(&cfg, exp, state, log)
	logSummary(state, log)

	return runErr
}

func extractorFor(cfg config.Config, fetcher scraper.PageFetcher) *scraper.Extractor {
	return scraper.NewExtractor(fetcher, cfg.BaseURL, cfg.CategoryPath)
}

func writeOutputs(cfg *config.Config, exp *exporter.FileExporter, state *scraper.State, log *logger.Logger) {
	records := scraper.DeduplicateByName(state.Records)
	for _, format := range cfg.Formats {
		path := filepath.Join(cfg.OutputDir, cfg.OutputBasename+"."+format)
		var err error
		switch format {
		case "xlsx":
			err = exp.WriteExcel(path, records)
		case "csv":
			err = exp.WriteCSV(path, records)
		case "json":
			err = exp.WriteJSON(path, records)
		}
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("Export failed")
			continue
		}
		log.Info().Str("path", path).Int("records", len(records)).Msg("Export written")
	}
}

func logSummary(state *scraper.State, log *logger.Logger) {
	coverage := state.Coverage()
	log.Info().
		Int("total", coverage.Total).
		Int("with_phone", coverage.WithPhone).
		Int("with_email", coverage.WithEmail).
		Int("with_address", coverage.WithAddress).
		Int("with_website", coverage.WithWebsite).
		Msg("Scraping summary")
}

func blockKey(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return "block:directory"
	}
	return "block:" + strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}
