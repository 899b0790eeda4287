// Command catalog-etl crawls a storefront listing, stores the raw pages and
// exports the products as a bulk-import file.
//
//	catalog-etl <crawl|search|products|export|retry|serve> [flags]
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

	"github.com/spf13/pflag"
	"github.com/user/catalog-etl/internal/delivery/http/handler"
	"github.com/user/catalog-etl/internal/delivery/http/router"
	"github.com/user/catalog-etl/internal/entity"
	"github.com/user/catalog-etl/pkg/config"
	"github.com/user/catalog-etl/pkg/logger"
	"go.uber.org/zap"
)

const usage = `usage: catalog-etl <command> [flags]

commands:
  crawl      discover, fetch search and product pages, then export
  search     discover the page count and store every search page
  products   store the product pages linked from stored search pages
  export     extract stored product pages and write the bulk-import file
  retry      re-fetch URLs recorded as failed
  serve      run the ops API and execute queued runs
`

func main() {
	if len(os.Args) < 2 || os.Args[1] == "-h" || os.Args[1] == "--help" {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]
	if command != "serve" && !entity.ValidStage(command) {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		os.Exit(2)
	}

	fs := pflag.NewFlagSet(command, pflag.ExitOnError)
	envFile := fs.String("env-file", ".env", "path of the .env configuration file")
	config.RegisterFlags(fs)
	_ = fs.Parse(os.Args[2:])

	// --- Configuration ---
	cfg, err := config.Load(*envFile, fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		log.Fatal("could not initialize", zap.Error(err))
	}
	defer a.Close()

	if command == "serve" {
		err = serve(ctx, a)
	} else {
		err = runStage(ctx, a, command)
	}
	if err != nil {
		log.Error("command failed", zap.String("command", command), zap.Error(err))
		a.Close()
		log.Sync()
		os.Exit(1)
	}
}

func runStage(ctx context.Context, a *app, stage string) error {
	start := time.Now()
	sum, err := a.crawler.Run(ctx, a.cfg.ListingURL, stage)
	a.logger.Info("Run summary",
		zap.String("stage", stage),
		zap.Duration("duration", time.Since(start)),
		zap.Int("page_count", sum.PageCount),
		zap.Int("search_pages_stored", sum.SearchPagesStored),
		zap.Int("product_urls", sum.ProductURLs),
		zap.Int("product_pages_stored", sum.ProductPagesStored),
		zap.Int("skipped_visited", sum.SkippedVisited),
		zap.Int("fetch_failures", sum.FetchFailures),
		zap.Int("products", sum.Products),
		zap.Int("extraction_failures", sum.ExtractionFailures),
		zap.Int("rejected_records", sum.RejectedRecords),
		zap.Int("rows_exported", sum.RowsExported),
	)
	return err
}

func serve(ctx context.Context, a *app) error {
	if a.runs == nil {
		return errors.New("serve needs REDIS_ADDR for the run queue")
	}

	checks := map[string]handler.HealthCheck{
		"store": a.documents.Ping,
		"redis": func(ctx context.Context) error { return a.rdb.Ping(ctx).Err() },
	}
	h := handler.NewHandler(a.runs, checks, a.logger)

	server := &http.Server{
		Addr:         ":" + a.cfg.ServerPort,
		Handler:      router.New(h, a.metrics, a.registry, a.logger),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 70 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		processRuns(ctx, a)
	}()

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("Starting server", zap.String("port", a.cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("could not listen on port %s: %w", a.cfg.ServerPort, err)
		}
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	<-workerDone
	a.logger.Info("server exiting")
	return nil
}

// processRuns drains the run queue on every poll tick until ctx is done.
func processRuns(ctx context.Context, a *app) {
	ticker := time.NewTicker(a.cfg.RunPollInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		for ctx.Err() == nil {
			processed, err := a.runs.ProcessRunFromQueue(ctx)
			if err != nil {
				a.logger.Error("Failed to process run", zap.Error(err))
				break
			}
			if !processed {
				break
			}
		}
	}
}
