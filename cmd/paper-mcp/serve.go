// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meshintel/paper-mcp/internal/biblio"
	"github.com/meshintel/paper-mcp/internal/breaker"
	"github.com/meshintel/paper-mcp/internal/cache"
	"github.com/meshintel/paper-mcp/internal/cascade"
	"github.com/meshintel/paper-mcp/internal/categorize"
	"github.com/meshintel/paper-mcp/internal/config"
	"github.com/meshintel/paper-mcp/internal/downloader"
	"github.com/meshintel/paper-mcp/internal/httpclient"
	"github.com/meshintel/paper-mcp/internal/logging"
	"github.com/meshintel/paper-mcp/internal/metasearch"
	"github.com/meshintel/paper-mcp/internal/pdfparse"
	"github.com/meshintel/paper-mcp/internal/provider"
	"github.com/meshintel/paper-mcp/internal/ratelimit"
	"github.com/meshintel/paper-mcp/internal/rpcshell"
	"github.com/meshintel/paper-mcp/internal/tool"
	"github.com/meshintel/paper-mcp/pkg/types"
)

var logMode string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the paper-mcp server over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgFile, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg.Identification.Version = version

		logger, err := logging.New(logging.ModeFromString(logMode))
		if err != nil {
			return fmt.Errorf("serve: building logger: %w", err)
		}
		defer logger.Sync()

		shell, snap, err := buildShell(cfg, logger)
		if err != nil {
			return err
		}
		if snap != nil {
			defer snap.Close()
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		go func() {
			<-ctx.Done()
			active := shell.ActiveRequests()
			logger.Info("shutdown signal received, cancelling in-flight requests", zap.Int("active_requests", len(active)))
			for _, id := range active {
				shell.Cancel(id)
			}
		}()

		return shell.Serve()
	},
}

func init() {
	serveCmd.Flags().StringVar(&logMode, "log-mode", "production", "logging mode: production or development")
	rootCmd.AddCommand(serveCmd)
}

// buildShell assembles the full dependency graph: hardened HTTP client,
// per-provider rate limiters and circuit breakers, the eight provider
// adapters, the meta-search orchestrator, the cascade resolver, the
// streaming downloader, the advisory cache, the three §6.5 collaborator
// defaults, every internal/tool.Command, and the request shell that
// exposes them over stdio. The returned *cache.Snapshot is nil when no
// snapshot path is configured; when one is opened it is only closed on
// exit, and the advisory cache is neither loaded from it nor saved to it.
func buildShell(cfg types.Config, logger *zap.Logger) (*rpcshell.Shell, *cache.Snapshot, error) {
	httpOpts := httpclient.DefaultOptions()
	httpOpts.ContactEmail = cfg.Identification.ContactEmail
	httpOpts.AppVersion = cfg.Identification.Version
	client := httpclient.New(httpOpts)

	limiters := ratelimit.NewRegistry()
	breakers := breaker.NewRegistry(breaker.Settings{
		FailureThreshold:  uint32(cfg.CircuitBreaker.FailureThreshold),
		FailureRatio:      0.5,
		OpenTimeout:       time.Duration(cfg.CircuitBreaker.RecoverySecs) * time.Second,
		HalfOpenMaxProbes: uint32(cfg.CircuitBreaker.HalfOpenProbes),
	})

	reg := provider.NewRegistry()
	adapters := buildAdapters(client, cfg)
	for _, p := range adapters {
		reg.Register(p)
		d := p.Descriptor()
		limiters.Register(d.Name, cfg.RateFor(d.Name), d.RateLimit.Burst)
	}

	tracker := metasearch.NewTracker(breakers)
	orchestrator := metasearch.New(reg, limiters, breakers, tracker, cfg.Request.MaxConcurrent)

	resolver := cascade.New(reg, limiters, breakers, client)

	dlOpts := downloader.DefaultOptions(cfg.Download.Directory)
	dlOpts.MaxFileSize = int64(cfg.Download.MaxFileSizeMB) * 1024 * 1024
	dlClient := httpclient.New(httpOpts)
	dl := downloader.New(dlClient, dlOpts)

	advCache := cache.NewWithCapacity(cfg.Cache.Capacity)
	advCache.SetTTL(cache.CategorySearch, cfg.SearchTTL())
	advCache.SetTTL(cache.CategoryMetadata, cfg.MetadataTTL())
	advCache.SetTTL(cache.CategoryNegative, cfg.NegativeTTL())

	var snap *cache.Snapshot
	if cfg.Cache.SnapshotPath != "" {
		s, err := cache.OpenSnapshot(cfg.Cache.SnapshotPath)
		if err != nil {
			logger.Warn("cache snapshot unavailable, continuing without warm start", zap.Error(err))
		} else {
			snap = s
		}
	}

	parser := pdfparse.New()
	formatter := biblio.New()
	categorizer := categorize.New()

	tools := tool.NewRegistry()
	tools.Register(tool.SearchPapers{Orchestrator: orchestrator, Cache: advCache})
	tools.Register(tool.DownloadPaper{Resolver: resolver, Downloader: dl, Root: cfg.Download.Directory})
	tools.Register(tool.ExtractMetadata{Parser: parser})
	tools.Register(tool.GenerateBibliography{Orchestrator: orchestrator, Formatter: formatter})
	tools.Register(tool.CategorizePapers{Categorizer: categorizer, Parser: parser})
	tools.Register(tool.SearchCode{DefaultDir: "."})

	shell := rpcshell.New(cfg.Identification.Product, cfg.Identification.Version, tools, cfg, logger)
	return shell, snap, nil
}

// buildAdapters constructs every C5 provider adapter, pulling per-provider
// API keys from secrets files (see internal/secrets) when present. Without
// a key, Semantic Scholar and PatentsView send their requests with no key
// header; CORE's Search and Health return a validation error instead.
func buildAdapters(client *http.Client, cfg types.Config) []provider.Provider {
	ua := httpclient.UserAgent(cfg.Identification.Product, httpclient.Options{
		AppVersion:   cfg.Identification.Version,
		ContactEmail: cfg.Identification.ContactEmail,
	})
	email := cfg.Identification.ContactEmail

	return []provider.Provider{
		&provider.Arxiv{Client: client, UserAgent: ua},
		&provider.SemanticScholar{Client: client, UserAgent: ua, APIKey: secretOrEnv("semantic-scholar-api-key", "")},
		&provider.OpenAlex{Client: client, UserAgent: ua, Email: email},
		&provider.Crossref{Client: client, UserAgent: ua},
		&provider.PatentsView{Client: client, UserAgent: ua, APIKey: secretOrEnv("patentsview-api-key", "")},
		&provider.Unpaywall{Client: client, UserAgent: ua, Email: email},
		&provider.DOAJ{Client: client, UserAgent: ua},
		&provider.Core{Client: client, UserAgent: ua, APIKey: secretOrEnv("core-api-key", "")},
	}
}
