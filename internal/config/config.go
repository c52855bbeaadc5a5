package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cesargomez89/musicdl/internal/constants"
)

// Config holds all application configuration
type Config struct {
	Port         string
	DBPath       string
	DownloadsDir string
	DataDir      string
	YTDLPBin     string
	FFmpegBin    string
	Tagger       string
	AudioFormat  string
	CatalogURL   string
	LogLevel     string
	LogFormat    string
	Concurrency  int
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	home, _ := os.UserHomeDir()
	dataDir := getEnv("DATA_DIR", defaultDataDir(home))

	return &Config{
		Port:         getEnv("PORT", constants.DefaultPort),
		DBPath:       getEnv("DB_PATH", constants.DefaultDBPath),
		DownloadsDir: getEnv("DOWNLOADS_DIR", filepath.Join(home, "Music")),
		DataDir:      dataDir,
		YTDLPBin:     getEnv("YTDLP_BIN", ManagedYTDLPBin(dataDir)),
		FFmpegBin:    getEnv("FFMPEG_BIN", constants.DefaultFFmpegBin),
		Tagger:       getEnv("TAGGER", constants.DefaultTagger),
		AudioFormat:  strings.ToLower(getEnv("AUDIO_FORMAT", constants.DefaultAudioFormat)),
		CatalogURL:   getEnv("CATALOG_URL", constants.DefaultCatalogURL),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "text"),
		Concurrency:  getEnvInt("CONCURRENCY", constants.DefaultConcurrency),
	}
}

// ManagedYTDLPBin returns the yt-dlp binary kept in the data directory when it
// exists, otherwise the bare name so it is looked up on PATH.
func ManagedYTDLPBin(dataDir string) string {
	if dataDir != "" {
		managed := filepath.Join(dataDir, constants.DefaultYTDLPBin)
		if _, err := os.Stat(managed); err == nil {
			return managed
		}
	}
	return constants.DefaultYTDLPBin
}

// AudioExt returns the expected audio file extension with a leading dot.
func (c *Config) AudioExt() string {
	return "." + c.AudioFormat
}

// Validate validates the configuration and returns detailed errors
func (c *Config) Validate() error {
	var errors []string

	if c.Port == "" {
		errors = append(errors, "PORT cannot be empty")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("PORT must be a valid number, got: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("PORT must be between 1 and 65535, got: %d", port))
		}
	}

	if c.DBPath == "" {
		errors = append(errors, "DB_PATH cannot be empty")
	}

	if c.DownloadsDir == "" {
		errors = append(errors, "DOWNLOADS_DIR cannot be empty")
	}

	if c.YTDLPBin == "" {
		errors = append(errors, "YTDLP_BIN cannot be empty")
	}

	if c.FFmpegBin == "" && c.Tagger == constants.TaggerFFmpeg {
		errors = append(errors, "FFMPEG_BIN cannot be empty when TAGGER is ffmpeg")
	}

	if c.Tagger != constants.TaggerFFmpeg && c.Tagger != constants.TaggerNative {
		errors = append(errors, fmt.Sprintf("TAGGER must be one of: ffmpeg, native, got: %s", c.Tagger))
	}

	if c.AudioFormat != constants.FormatMP3 && c.AudioFormat != constants.FormatFLAC {
		errors = append(errors, fmt.Sprintf("AUDIO_FORMAT must be one of: mp3, flac, got: %s", c.AudioFormat))
	}

	if c.Concurrency < 1 || c.Concurrency > constants.MaxConcurrency {
		errors = append(errors, fmt.Sprintf("CONCURRENCY must be between 1 and %d, got: %d", constants.MaxConcurrency, c.Concurrency))
	}

	if c.CatalogURL == "" {
		errors = append(errors, "CATALOG_URL cannot be empty")
	} else if c.CatalogURL != constants.MockCatalog {
		if u, err := url.Parse(c.CatalogURL); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("CATALOG_URL is not a valid URL: %s", c.CatalogURL))
		}
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: debug, info, warn, error, got: %s", c.LogLevel))
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.LogFormat] {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: text, json, got: %s", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func defaultDataDir(home string) string {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, constants.DataDirName)
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// getEnvInt is getEnv for integers; an unparsable value yields -1 so Validate reports it.
func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return -1
	}
	return n
}
