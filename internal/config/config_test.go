// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/prowlfeed/internal/domain"
)

func TestDatabasePathResolution(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T, tmpDir string) (configPath string, envDataDir string, expectedDBPath string)
	}{
		{
			name: "default_next_to_config",
			prepare: func(t *testing.T, tmpDir string) (string, string, string) {
				configPath := filepath.Join(tmpDir, "config.toml")
				content := "host = \"localhost\"\nport = 8080\n"
				require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))
				return configPath, "", filepath.Join(tmpDir, "prowlfeed.db")
			},
		},
		{
			name: "explicit_data_dir_in_config",
			prepare: func(t *testing.T, tmpDir string) (string, string, string) {
				configPath := filepath.Join(tmpDir, "config.toml")
				dataDir := filepath.Join(tmpDir, "data")
				require.NoError(t, os.MkdirAll(dataDir, 0o755))
				content := fmt.Sprintf("host = \"localhost\"\nport = 8080\ndataDir = %q\n", dataDir)
				require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))
				return configPath, "", filepath.Join(dataDir, "prowlfeed.db")
			},
		},
		{
			name: "env_var_override",
			prepare: func(t *testing.T, tmpDir string) (string, string, string) {
				configPath := filepath.Join(tmpDir, "config.toml")
				configDataDir := filepath.Join(tmpDir, "config-data")
				envDataDir := filepath.Join(tmpDir, "env-data")
				require.NoError(t, os.MkdirAll(configDataDir, 0o755))
				require.NoError(t, os.MkdirAll(envDataDir, 0o755))
				content := fmt.Sprintf("host = \"localhost\"\nport = 8080\ndataDir = %q\n", configDataDir)
				require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))
				return configPath, envDataDir, filepath.Join(envDataDir, "prowlfeed.db")
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			configPath, envValue, expectedDBPath := tt.prepare(t, tmpDir)
			if envValue != "" {
				t.Setenv(envPrefix+"DATA_DIR", envValue)
			}

			cfg, err := New(configPath)
			require.NoError(t, err)

			assert.Equal(t, filepath.Clean(expectedDBPath), filepath.Clean(cfg.GetDatabasePath()))
		})
	}
}

func TestDefaultsApplied(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("port = 8080\n"), 0o644))

	cfg, err := New(configPath)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Config.MinSeeds)
	assert.Equal(t, "fr-FR", cfg.Config.TMDBLanguage)
	assert.Equal(t, 100, cfg.Config.FeedItemLimit)
	assert.Equal(t, 25, cfg.Config.PageSize)
	assert.Equal(t, 20*time.Second, cfg.Config.FeedTimeout())
}

func TestNewCreatesMissingConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg, err := New(configPath)
	require.NoError(t, err)

	content, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "#indexerUrl")
	assert.Contains(t, string(content), "logLevel = \"INFO\"")
	assert.Equal(t, 7480, cfg.Config.Port)
}

func TestConfigDirResolution(t *testing.T) {
	tests := []struct {
		name           string
		input          string
		setupFile      bool
		fileIsDir      bool
		expectedSuffix string
	}{
		{
			name:           "toml_file_extension",
			input:          "/path/to/custom.toml",
			expectedSuffix: "custom.toml",
		},
		{
			name:           "TOML_file_extension_uppercase",
			input:          "/path/to/CONFIG.TOML",
			expectedSuffix: "CONFIG.TOML",
		},
		{
			name:           "directory_path",
			input:          "/path/to/config",
			expectedSuffix: "config.toml",
		},
		{
			name:           "existing_file_without_toml",
			input:          "/path/to/configfile",
			setupFile:      true,
			expectedSuffix: "configfile",
		},
		{
			name:           "existing_directory",
			input:          "/path/to/configdir",
			setupFile:      true,
			fileIsDir:      true,
			expectedSuffix: "config.toml",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			inputPath := filepath.Join(tmpDir, filepath.Base(tt.input))

			if tt.setupFile {
				if tt.fileIsDir {
					require.NoError(t, os.MkdirAll(inputPath, 0o755))
				} else {
					require.NoError(t, os.WriteFile(inputPath, []byte("test"), 0o644))
				}
			}

			c := &AppConfig{}
			result := c.resolveConfigPath(inputPath)
			assert.True(t, strings.HasSuffix(result, tt.expectedSuffix),
				"Expected result %s to end with %s", result, tt.expectedSuffix)
		})
	}
}

func TestBindOrReadFromFile(t *testing.T) {
	writeKeyFile := func(t *testing.T) string {
		path := filepath.Join(t.TempDir(), "key-file.txt")
		require.NoError(t, os.WriteFile(path, []byte("key-from-file\n"), 0o644))
		return path
	}

	tests := []struct {
		name          string
		envValue      string
		withFile      bool
		expectedValue string
	}{
		{
			name:          "only_file_env_var",
			withFile:      true,
			expectedValue: "key-from-file",
		},
		{
			name:          "only_plain_env_var",
			envValue:      "key-not-from-file",
			expectedValue: "key-not-from-file",
		},
		{
			name:          "file_wins_over_plain",
			envValue:      "key-not-from-file",
			withFile:      true,
			expectedValue: "key-from-file",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			envVar := envPrefix + "INDEXER_API_KEY"

			if tt.envValue != "" {
				t.Setenv(envVar, tt.envValue)
			}
			if tt.withFile {
				t.Setenv(envVar+"_FILE", writeKeyFile(t))
			}

			configPath := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(configPath, []byte("port = 8080\n"), 0o644))

			cfg, err := New(configPath)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedValue, cfg.Config.IndexerAPIKey)
		})
	}
}

func TestQbittorrentEnvBinding(t *testing.T) {
	t.Setenv(envPrefix+"QBITTORRENT_BASIC_USER", "proxy")
	t.Setenv(envPrefix+"QBITTORRENT_BASIC_PASS", "proxypass")
	t.Setenv(envPrefix+"QBITTORRENT_TLS_SKIP_VERIFY", "true")

	configPath := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("port = 8080\n"), 0o644))

	cfg, err := New(configPath)
	require.NoError(t, err)
	assert.Equal(t, "proxy", cfg.Config.QbittorrentBasicUser)
	assert.Equal(t, "proxypass", cfg.Config.QbittorrentBasicPass)
	assert.True(t, cfg.Config.QbittorrentTLSSkipVerify)
}

func TestBindOrReadFromFileMissingFile(t *testing.T) {
	t.Setenv(envPrefix+"TMDB_ACCESS_TOKEN_FILE", filepath.Join(t.TempDir(), "missing"))

	configPath := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("port = 8080\n"), 0o644))

	_, err := New(configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TMDB_ACCESS_TOKEN_FILE")
}

func TestReloadListenersReceiveCopy(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("port = 8080\nminSeeds = 5\n"), 0o644))

	cfg, err := New(configPath)
	require.NoError(t, err)

	var got int
	cfg.RegisterReloadListener(func(c *domain.Config) {
		got = c.MinSeeds
		c.MinSeeds = 99
	})
	cfg.notifyListeners()

	assert.Equal(t, 5, got)
	assert.Equal(t, 5, cfg.Config.MinSeeds)
}
