// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/autobrr/prowlfeed/internal/api"
	"github.com/autobrr/prowlfeed/internal/buildinfo"
	"github.com/autobrr/prowlfeed/internal/config"
	"github.com/autobrr/prowlfeed/internal/database"
	"github.com/autobrr/prowlfeed/internal/domain"
	"github.com/autobrr/prowlfeed/internal/metrics"
	"github.com/autobrr/prowlfeed/internal/models"
	"github.com/autobrr/prowlfeed/internal/services/discovery"
	"github.com/autobrr/prowlfeed/internal/services/downloads"
)

func main() {
	config.InitDefaultLogger(buildinfo.Version)

	// A missing .env is fine; real environment variables still apply.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Failed to load .env file")
	}

	var rootCmd = &cobra.Command{
		Use:   "prowlfeed",
		Short: "Torrent discovery across RSS feeds and Prowlarr",
		Long: `prowlfeed - aggregates Torznab/RSS feeds and Prowlarr searches into one
filterable, paginated catalogue enriched with TMDB metadata.`,
	}

	rootCmd.Version = buildinfo.Version

	rootCmd.AddCommand(RunServeCommand())
	rootCmd.AddCommand(RunVersionCommand(buildinfo.String()))
	rootCmd.AddCommand(RunGenerateConfigCommand())
	rootCmd.AddCommand(RunSearchCommand())
	rootCmd.AddCommand(RunFetchCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func RunServeCommand() *cobra.Command {
	var (
		configDir string
		dataDir   string
		logPath   string
		pprofFlag bool
	)

	var command = &cobra.Command{
		Use:   "serve",
		Short: "Start the server",
	}

	command.Flags().StringVar(&configDir, "config-dir", "", "config directory path (default is OS-specific: ~/.config/prowlfeed/ or %APPDATA%\\prowlfeed\\). Can also be a direct path to a .toml file")
	command.Flags().StringVar(&dataDir, "data-dir", "", "data directory for the database (default is next to config file)")
	command.Flags().StringVar(&logPath, "log-path", "", "log file path (default is stdout)")
	command.Flags().BoolVar(&pprofFlag, "pprof", false, "enable pprof server on :6060")

	command.Run = func(cmd *cobra.Command, args []string) {
		app := NewApplication(configDir, dataDir, logPath, pprofFlag)
		app.runServer()
	}

	return command
}

func RunVersionCommand(version string) *cobra.Command {
	var command = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of prowlfeed",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}

	return command
}

func RunGenerateConfigCommand() *cobra.Command {
	var configDir string

	command := &cobra.Command{
		Use:   "generate-config",
		Short: "Generate a default configuration file",
		Long: `Generate a default configuration file without starting the server.

If no --config-dir is specified, uses the OS-specific default location:
- Linux/macOS: ~/.config/prowlfeed/config.toml
- Windows: %APPDATA%\prowlfeed\config.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := resolveConfigFile(configDir)

			if _, err := os.Stat(configPath); err == nil {
				cmd.Printf("Configuration file already exists at: %s\n", configPath)
				cmd.Println("Skipping generation to avoid overwriting existing configuration.")
				return nil
			}

			if err := config.WriteDefaultConfig(configPath); err != nil {
				return errors.Wrap(err, "failed to create configuration file")
			}

			cmd.Printf("Configuration file created successfully at: %s\n", configPath)
			return nil
		},
	}

	command.Flags().StringVar(&configDir, "config-dir", "",
		"config directory or file path (defaults to OS-specific location)")

	return command
}

func resolveConfigFile(configDir string) string {
	if configDir == "" {
		return filepath.Join(config.GetDefaultConfigDir(), "config.toml")
	}
	if strings.HasSuffix(strings.ToLower(configDir), ".toml") {
		return configDir
	}
	if info, err := os.Stat(configDir); err == nil && !info.IsDir() {
		return configDir
	}
	return filepath.Join(configDir, "config.toml")
}

// queryFlags are the filter and paging flags shared by search and fetch.
type queryFlags struct {
	category string
	sort     string
	order    string
	page     int
	pageSize int
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.category, "category", "all", "category filter (all, movie, tv, anime, music, software, books, other)")
	cmd.Flags().StringVar(&f.sort, "sort", "", "sort field (name, size, seeds, peers, date)")
	cmd.Flags().StringVar(&f.order, "order", "desc", "sort order (asc or desc)")
	cmd.Flags().IntVar(&f.page, "page", 1, "page number")
	cmd.Flags().IntVar(&f.pageSize, "page-size", 0, "items per page (defaults to the configured page size)")
}

func (f *queryFlags) query() (discovery.Query, error) {
	values := url.Values{}
	values.Set("category", f.category)
	values.Set("sort", f.sort)
	values.Set("order", f.order)
	values.Set("page", fmt.Sprint(f.page))
	if f.pageSize > 0 {
		values.Set("pageSize", fmt.Sprint(f.pageSize))
	}
	return discovery.ParseQuery(values)
}

func RunSearchCommand() *cobra.Command {
	var (
		configDir string
		flags     queryFlags
	)

	command := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the configured Prowlarr instance",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := flags.query()
			if err != nil {
				return err
			}

			cfg, err := config.New(configDir, buildinfo.Version)
			if err != nil {
				return errors.Wrap(err, "failed to initialize configuration")
			}
			cfg.ApplyLogConfig()

			deps, opts := discovery.PipelineFromConfig(cfg.Config, nil, nil)
			service := discovery.NewService(deps, opts)

			page, err := service.Search(cmd.Context(), strings.Join(args, " "), q)
			if err != nil {
				return errors.Wrap(err, "search failed")
			}

			return printJSON(cmd, page)
		},
	}

	command.Flags().StringVar(&configDir, "config-dir", "",
		"config directory or file path (defaults to OS-specific location)")
	flags.register(command)

	return command
}

func RunFetchCommand() *cobra.Command {
	var (
		configDir string
		noEnrich  bool
		flags     queryFlags
	)

	command := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Fetch a single RSS/Torznab feed and print one page of listings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := flags.query()
			if err != nil {
				return err
			}

			cfg, err := config.New(configDir, buildinfo.Version)
			if err != nil {
				return errors.Wrap(err, "failed to initialize configuration")
			}
			cfg.ApplyLogConfig()

			deps, opts := discovery.PipelineFromConfig(cfg.Config, nil, nil)
			service := discovery.NewService(deps, opts)

			page, err := service.ParseFeed(cmd.Context(), args[0], q, !noEnrich)
			if err != nil {
				return errors.Wrap(err, "fetch failed")
			}

			return printJSON(cmd, page)
		},
	}

	command.Flags().StringVar(&configDir, "config-dir", "",
		"config directory or file path (defaults to OS-specific location)")
	command.Flags().BoolVar(&noEnrich, "no-enrich", false, "skip TMDB lookups")
	flags.register(command)

	return command
}

func printJSON(cmd *cobra.Command, v any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

type Application struct {
	configDir string
	dataDir   string
	logPath   string
	pprofFlag bool
}

func NewApplication(configDir, dataDir, logPath string, pprofFlag bool) *Application {
	return &Application{
		configDir: configDir,
		dataDir:   dataDir,
		logPath:   logPath,
		pprofFlag: pprofFlag,
	}
}

func (app *Application) runServer() {
	cfg, err := config.New(app.configDir, buildinfo.Version)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize configuration")
	}

	// Override with CLI flags if provided
	if app.dataDir != "" {
		os.Setenv("PROWLFEED__DATA_DIR", app.dataDir)
		cfg.SetDataDir(app.dataDir)
	}
	if app.logPath != "" {
		os.Setenv("PROWLFEED__LOG_PATH", app.logPath)
		cfg.Config.LogPath = app.logPath
	}

	cfg.ApplyLogConfig()

	log.Info().Str("version", buildinfo.Version).Msg("Starting prowlfeed")

	db, err := database.Open(context.Background(), cfg.GetDatabasePath())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	feedSourceStore := models.NewFeedSourceStore(db)

	registry, pipelineMetrics := metrics.NewRegistry()

	deps, opts := discovery.PipelineFromConfig(cfg.Config, feedSourceStore, pipelineMetrics)
	discoveryService := discovery.NewService(deps, opts)
	if !discoveryService.EnrichmentEnabled() {
		log.Warn().Msg("No TMDB access token configured - metadata enrichment is disabled")
	}

	downloadService := downloads.NewService(cfg.Config, pipelineMetrics)

	cfg.RegisterReloadListener(func(conf *domain.Config) {
		deps, opts := discovery.PipelineFromConfig(conf, feedSourceStore, pipelineMetrics)
		discoveryService.Reload(deps, opts)
		downloadService.Reload(conf)
		log.Info().Msg("Pipeline reloaded from configuration")
	})

	httpServer := api.NewServer(&api.Dependencies{
		Config:          cfg,
		Version:         buildinfo.Version,
		FeedSourceStore: feedSourceStore,
		Discovery:       discoveryService,
		Downloads:       downloadService,
	})

	errorChannel := make(chan error)
	serverReady := make(chan struct{}, 1)
	go func() {
		if err := httpServer.ListenAndServeReady(serverReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errorChannel <- err
		}
	}()

	select {
	case <-serverReady:
	case err := <-errorChannel:
		log.Fatal().Err(err).Msg("failed to start HTTP server")
	}

	if cfg.Config.MetricsEnabled {
		go func() {
			metricsServer := metrics.NewServer(
				registry,
				cfg.Config.MetricsHost,
				cfg.Config.MetricsPort,
				cfg.Config.MetricsBasicAuthUsers,
			)

			errorChannel <- metricsServer.ListenAndServe()
		}()
	}

	if app.pprofFlag {
		go func() {
			log.Info().Msg("Starting pprof server on :6060")
			log.Info().Msg("Access profiling at: http://localhost:6060/debug/pprof/")
			if err := http.ListenAndServe(":6060", nil); err != nil {
				log.Error().Err(err).Msg("Profiling server failed")
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Msgf("got signal %v, shutting down server", sig.String())
	case err := <-errorChannel:
		log.Error().Err(err).Msg("got unexpected error from server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("got error during graceful http shutdown")
		db.Close()
		os.Exit(1)
	}

	log.Info().Msg("Server stopped")
}
