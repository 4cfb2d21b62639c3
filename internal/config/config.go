// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/autobrr/prowlfeed/internal/domain"
)

var envPrefix = "PROWLFEED__"

type AppConfig struct {
	Config  *domain.Config
	viper   *viper.Viper
	dataDir string
	version string

	listenersMu sync.RWMutex
	listeners   []func(*domain.Config)
}

func New(configDirOrPath string, versions ...string) (*AppConfig, error) {
	version := "dev"
	if len(versions) > 0 && strings.TrimSpace(versions[0]) != "" {
		version = versions[0]
	}

	c := &AppConfig{
		viper:   viper.New(),
		Config:  &domain.Config{},
		version: version,
	}

	c.defaults()

	if err := c.load(configDirOrPath); err != nil {
		return nil, err
	}

	// Environment wins over the file
	if err := c.loadFromEnv(); err != nil {
		return nil, err
	}

	if err := c.viper.Unmarshal(c.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	c.Config.Version = c.version

	c.resolveDataDir()

	c.watchConfig()

	return c, nil
}

func (c *AppConfig) defaults() {
	host := "localhost"
	if detectContainer() {
		host = "0.0.0.0"
	}

	c.viper.SetDefault("host", host)
	c.viper.SetDefault("port", 7480)
	c.viper.SetDefault("baseUrl", "/")
	c.viper.SetDefault("apiKey", "")
	c.viper.SetDefault("logLevel", "INFO")
	c.viper.SetDefault("logPath", "")
	c.viper.SetDefault("logMaxSize", 50)
	c.viper.SetDefault("logMaxBackups", 3)
	c.viper.SetDefault("dataDir", "")

	c.viper.SetDefault("indexerUrl", "")
	c.viper.SetDefault("indexerApiKey", "")
	c.viper.SetDefault("minSeeds", 3)

	c.viper.SetDefault("tmdbAccessToken", "")
	c.viper.SetDefault("tmdbLanguage", "fr-FR")
	c.viper.SetDefault("tmdbRequestsPerSecond", 20)

	c.viper.SetDefault("feedTimeoutSeconds", 20)
	c.viper.SetDefault("feedItemLimit", 100)
	c.viper.SetDefault("feedConcurrency", 8)
	c.viper.SetDefault("enrichConcurrency", 8)
	c.viper.SetDefault("pageSize", 25)

	c.viper.SetDefault("qbittorrentHost", "")
	c.viper.SetDefault("qbittorrentUsername", "")
	c.viper.SetDefault("qbittorrentPassword", "")
	c.viper.SetDefault("qbittorrentCategory", "")
	c.viper.SetDefault("qbittorrentBasicUser", "")
	c.viper.SetDefault("qbittorrentBasicPass", "")
	c.viper.SetDefault("qbittorrentTlsSkipVerify", false)

	c.viper.SetDefault("metricsEnabled", false)
	c.viper.SetDefault("metricsHost", "127.0.0.1")
	c.viper.SetDefault("metricsPort", 9078)
	c.viper.SetDefault("metricsBasicAuthUsers", "")
}

func (c *AppConfig) load(configDirOrPath string) error {
	c.viper.SetConfigType("toml")

	if configDirOrPath != "" {
		configPath := c.resolveConfigPath(configDirOrPath)
		c.viper.SetConfigFile(configPath)

		if err := c.viper.ReadInConfig(); err != nil {
			if !isConfigNotFound(err, configPath) {
				return fmt.Errorf("failed to read config: %w", err)
			}
			if err := c.writeDefaultConfig(configPath); err != nil {
				return err
			}
			if err := c.viper.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read newly created config: %w", err)
			}
		}
		return nil
	}

	c.viper.SetConfigName("config")
	c.viper.AddConfigPath(".")
	c.viper.AddConfigPath(GetDefaultConfigDir())

	if err := c.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}

		defaultConfigPath := filepath.Join(GetDefaultConfigDir(), "config.toml")
		if err := c.writeDefaultConfig(defaultConfigPath); err != nil {
			return err
		}
		c.viper.SetConfigFile(defaultConfigPath)
		if err := c.viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read newly created config: %w", err)
		}
		c.dataDir = filepath.Dir(defaultConfigPath)
	}

	return nil
}

// isConfigNotFound reports whether a read failed because the explicit config file is absent.
// viper returns an fs error rather than ConfigFileNotFoundError when SetConfigFile is used.
func isConfigNotFound(err error, path string) bool {
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		return true
	}
	_, statErr := os.Stat(path)
	return os.IsNotExist(statErr)
}

func (c *AppConfig) loadFromEnv() error {
	// Bind explicitly; AutomaticEnv would pick up unrelated variables.
	c.viper.BindEnv("host", envPrefix+"HOST")
	c.viper.BindEnv("port", envPrefix+"PORT")
	c.viper.BindEnv("baseUrl", envPrefix+"BASE_URL")
	c.viper.BindEnv("logLevel", envPrefix+"LOG_LEVEL")
	c.viper.BindEnv("logPath", envPrefix+"LOG_PATH")
	c.viper.BindEnv("logMaxSize", envPrefix+"LOG_MAX_SIZE")
	c.viper.BindEnv("logMaxBackups", envPrefix+"LOG_MAX_BACKUPS")
	c.viper.BindEnv("dataDir", envPrefix+"DATA_DIR")

	c.viper.BindEnv("indexerUrl", envPrefix+"INDEXER_URL")
	c.viper.BindEnv("minSeeds", envPrefix+"MIN_SEEDS")
	c.viper.BindEnv("tmdbLanguage", envPrefix+"TMDB_LANGUAGE")
	c.viper.BindEnv("tmdbRequestsPerSecond", envPrefix+"TMDB_REQUESTS_PER_SECOND")
	c.viper.BindEnv("feedTimeoutSeconds", envPrefix+"FEED_TIMEOUT_SECONDS")
	c.viper.BindEnv("feedItemLimit", envPrefix+"FEED_ITEM_LIMIT")
	c.viper.BindEnv("feedConcurrency", envPrefix+"FEED_CONCURRENCY")
	c.viper.BindEnv("enrichConcurrency", envPrefix+"ENRICH_CONCURRENCY")
	c.viper.BindEnv("pageSize", envPrefix+"PAGE_SIZE")

	c.viper.BindEnv("qbittorrentHost", envPrefix+"QBITTORRENT_HOST")
	c.viper.BindEnv("qbittorrentUsername", envPrefix+"QBITTORRENT_USERNAME")
	c.viper.BindEnv("qbittorrentCategory", envPrefix+"QBITTORRENT_CATEGORY")
	c.viper.BindEnv("qbittorrentBasicUser", envPrefix+"QBITTORRENT_BASIC_USER")
	c.viper.BindEnv("qbittorrentTlsSkipVerify", envPrefix+"QBITTORRENT_TLS_SKIP_VERIFY")

	c.viper.BindEnv("metricsEnabled", envPrefix+"METRICS_ENABLED")
	c.viper.BindEnv("metricsHost", envPrefix+"METRICS_HOST")
	c.viper.BindEnv("metricsPort", envPrefix+"METRICS_PORT")
	c.viper.BindEnv("metricsBasicAuthUsers", envPrefix+"METRICS_BASIC_AUTH_USERS")

	for viperVar, envVar := range map[string]string{
		"apiKey":               envPrefix + "API_KEY",
		"indexerApiKey":        envPrefix + "INDEXER_API_KEY",
		"tmdbAccessToken":      envPrefix + "TMDB_ACCESS_TOKEN",
		"qbittorrentPassword":  envPrefix + "QBITTORRENT_PASSWORD",
		"qbittorrentBasicPass": envPrefix + "QBITTORRENT_BASIC_PASS",
	} {
		if err := c.bindOrReadFromFile(viperVar, envVar); err != nil {
			return err
		}
	}

	return nil
}

// bindOrReadFromFile sets viperVar from the file named by envVar_FILE when present,
// otherwise binds it to envVar.
func (c *AppConfig) bindOrReadFromFile(viperVar string, envVar string) error {
	envVarFile := envVar + "_FILE"
	if filePath := os.Getenv(envVarFile); filePath != "" {
		content, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("could not read %s: %w", envVarFile, err)
		}
		c.viper.Set(viperVar, strings.TrimSpace(string(content)))
		return nil
	}

	return c.viper.BindEnv(viperVar, envVar)
}

func (c *AppConfig) watchConfig() {
	c.viper.WatchConfig()
	c.viper.OnConfigChange(func(e fsnotify.Event) {
		log.Info().Msgf("Config file changed: %s", e.Name)

		if err := c.viper.Unmarshal(c.Config); err != nil {
			log.Error().Err(err).Msg("Failed to reload configuration")
			return
		}

		c.applyDynamicChanges()
	})
}

func (c *AppConfig) applyDynamicChanges() {
	c.Config.Version = c.version
	c.ApplyLogConfig()
	c.notifyListeners()
}

// RegisterReloadListener registers a callback that's invoked when the configuration file is reloaded.
func (c *AppConfig) RegisterReloadListener(fn func(*domain.Config)) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *AppConfig) notifyListeners() {
	c.listenersMu.RLock()
	listeners := append([]func(*domain.Config){}, c.listeners...)
	c.listenersMu.RUnlock()

	if len(listeners) == 0 {
		return
	}

	copied := *c.Config
	for _, listener := range listeners {
		listener(&copied)
	}
}

const configTemplate = `# config.toml - Auto-generated on first run

# Hostname / IP
# Default: "localhost" (or "0.0.0.0" in containers)
host = "{{ .host }}"

# Port
# Default: 7480
port = {{ .port }}

# Base URL
# Set custom baseUrl eg /prowlfeed/ to serve in subdirectory.
# Optional
#baseUrl = "/prowlfeed/"

# API key
# When set, every /api request must carry it in the X-API-Key header or the apikey query parameter.
# Optional
#apiKey = ""

# Log file path
# If not defined, logs to stdout
# Optional
#logPath = "log/prowlfeed.log"

# Log rotation
# Maximum log file size in megabytes before rotation
# Default: {{ .logMaxSize }}
#logMaxSize = {{ .logMaxSize }}

# Number of rotated log files to retain (0 keeps all)
# Default: {{ .logMaxBackups }}
#logMaxBackups = {{ .logMaxBackups }}

# Data directory (default: next to config file)
# Database file (prowlfeed.db) will be created inside this directory
#dataDir = "/var/db/prowlfeed"

# Log level
# Default: "INFO"
# Options: "ERROR", "DEBUG", "INFO", "WARN", "TRACE"
logLevel = "{{ .logLevel }}"

# Prowlarr
# Base URL and API key of the Prowlarr instance used for search
#indexerUrl = "http://localhost:9696"
#indexerApiKey = ""

# Minimum seeders for search results
# Default: {{ .minSeeds }}
#minSeeds = {{ .minSeeds }}

# TMDB
# API read access token (v4 auth). Leave empty to disable poster matching.
#tmdbAccessToken = ""

# Language used for TMDB lookups
# Default: "{{ .tmdbLanguage }}"
#tmdbLanguage = "{{ .tmdbLanguage }}"

# Client side rate limit for TMDB lookups
# Default: {{ .tmdbRequestsPerSecond }}
#tmdbRequestsPerSecond = {{ .tmdbRequestsPerSecond }}

# Feeds
# Per feed fetch timeout in seconds
# Default: {{ .feedTimeoutSeconds }}
#feedTimeoutSeconds = {{ .feedTimeoutSeconds }}

# Maximum items kept per feed (most recent first)
# Default: {{ .feedItemLimit }}
#feedItemLimit = {{ .feedItemLimit }}

# Concurrent feed fetches and metadata lookups
#feedConcurrency = {{ .feedConcurrency }}
#enrichConcurrency = {{ .enrichConcurrency }}

# Items per page
# Default: {{ .pageSize }}
#pageSize = {{ .pageSize }}

# qBittorrent
# Used by the download endpoint. Leave host empty to disable.
#qbittorrentHost = "http://localhost:8080"
#qbittorrentUsername = ""
#qbittorrentPassword = ""
#qbittorrentCategory = ""

# Basic auth in front of the WebUI (reverse proxy), and TLS verification
#qbittorrentBasicUser = ""
#qbittorrentBasicPass = ""
#qbittorrentTlsSkipVerify = false

# Prometheus Metrics
# Enable Prometheus metrics on separate port
# Default: false
#metricsEnabled = false

# Metrics server host (bind address for metrics endpoint)
# Default: "127.0.0.1"
#metricsHost = "127.0.0.1"

# Metrics server port
# Default: 9078
#metricsPort = 9078

# Basic authentication for metrics endpoint (optional)
# Format: "username:bcrypt_hash" or "user1:hash1,user2:hash2" for multiple users
#metricsBasicAuthUsers = ""
`

func (c *AppConfig) writeDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		log.Debug().Msgf("Config file already exists at: %s", path)
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}
	log.Debug().Msgf("Created config directory: %s", dir)

	data := map[string]any{
		"host":                  c.viper.GetString("host"),
		"port":                  c.viper.GetInt("port"),
		"logLevel":              c.viper.GetString("logLevel"),
		"logMaxSize":            c.viper.GetInt("logMaxSize"),
		"logMaxBackups":         c.viper.GetInt("logMaxBackups"),
		"minSeeds":              c.viper.GetInt("minSeeds"),
		"tmdbLanguage":          c.viper.GetString("tmdbLanguage"),
		"tmdbRequestsPerSecond": c.viper.GetFloat64("tmdbRequestsPerSecond"),
		"feedTimeoutSeconds":    c.viper.GetInt("feedTimeoutSeconds"),
		"feedItemLimit":         c.viper.GetInt("feedItemLimit"),
		"feedConcurrency":       c.viper.GetInt("feedConcurrency"),
		"enrichConcurrency":     c.viper.GetInt("enrichConcurrency"),
		"pageSize":              c.viper.GetInt("pageSize"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse config template: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := tmpl.Execute(f, data); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	log.Info().Msgf("Created default config file: %s", path)
	return nil
}

// GetDefaultConfigDir returns the OS-specific config directory
func GetDefaultConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		// Docker images mount /config directly
		if xdgConfig == "/config" {
			return xdgConfig
		}
		return filepath.Join(xdgConfig, "prowlfeed")
	}

	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "prowlfeed")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "AppData", "Roaming", "prowlfeed")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "prowlfeed")
	}
}

func detectContainer() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	if _, err := os.Stat("/dev/.lxc-boot-id"); err == nil {
		return true
	}
	return os.Getpid() == 1
}

func (c *AppConfig) ApplyLogConfig() {
	zerolog.TimeFieldFormat = time.RFC3339

	setLogLevel(c.Config.LogLevel)

	writer := baseLogWriter(c.version)

	if c.Config.LogPath != "" {
		multiWriter, err := setupLogFile(c.Config.LogPath, writer, c.Config.LogMaxSize, c.Config.LogMaxBackups)
		if err != nil {
			log.Error().Err(err).Msg("Failed to setup log file")
		} else {
			writer = multiWriter
		}
	}

	log.Logger = log.Logger.Output(writer)
}

func setLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Logger.Level(lvl)
}

func setupLogFile(path string, base io.Writer, maxSize, maxBackups int) (io.Writer, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	if maxSize <= 0 {
		maxSize = 50
	}
	if maxBackups < 0 {
		maxBackups = 0
	}

	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
	}

	return io.MultiWriter(base, rotator), nil
}

func baseLogWriter(version string) io.Writer {
	if !isDevBuild(version) {
		return os.Stderr
	}

	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	writer.PartsOrder = []string{zerolog.TimestampFieldName, zerolog.LevelFieldName, zerolog.MessageFieldName}
	writer.FormatMessage = func(i any) string {
		if i == nil {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(i))
	}
	return writer
}

// InitDefaultLogger configures zerolog with the default writer for this version.
// This is used by CLI entry points before a configuration file is loaded.
func InitDefaultLogger(version string) {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Logger.Output(baseLogWriter(version))
}

func isDevBuild(version string) bool {
	v := strings.ToLower(strings.TrimSpace(version))
	return v == "" || v == "dev" || strings.HasSuffix(v, "-dev")
}

// resolveConfigPath determines the actual config file path from the provided directory or file path
func (c *AppConfig) resolveConfigPath(configDirOrPath string) string {
	if strings.HasSuffix(strings.ToLower(configDirOrPath), ".toml") {
		return configDirOrPath
	}

	if info, err := os.Stat(configDirOrPath); err == nil && !info.IsDir() {
		return configDirOrPath
	}

	return filepath.Join(configDirOrPath, "config.toml")
}

func (c *AppConfig) resolveDataDir() {
	switch {
	case c.Config.DataDir != "":
		c.dataDir = c.Config.DataDir
	case c.dataDir != "":
	case c.viper.ConfigFileUsed() != "":
		c.dataDir = filepath.Dir(c.viper.ConfigFileUsed())
	default:
		c.dataDir = "."
	}
}

// GetDatabasePath returns the path to the feed source database
func (c *AppConfig) GetDatabasePath() string {
	return filepath.Join(c.dataDir, "prowlfeed.db")
}

// GetDataDir returns the resolved data directory path.
func (c *AppConfig) GetDataDir() string {
	return c.dataDir
}

// SetDataDir sets the data directory (used by CLI flags)
func (c *AppConfig) SetDataDir(dir string) {
	c.dataDir = dir
}

// WriteDefaultConfig writes a commented config.toml to path unless one exists.
func WriteDefaultConfig(path string) error {
	c := &AppConfig{
		viper: viper.New(),
	}

	c.defaults()

	return c.writeDefaultConfig(path)
}
