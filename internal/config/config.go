package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// DefaultUserAgent is sent to YouTube by the fetch tool.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config holds application configuration.
type Config struct {
	Port          int    `toml:"port" yaml:"port"`
	PublicBaseURL string `toml:"public_base_url" yaml:"public_base_url"`

	YtDlpPath  string `toml:"ytdlp_path" yaml:"ytdlp_path"`
	FFmpegPath string `toml:"ffmpeg_path" yaml:"ffmpeg_path"`

	// OutputFolder is the URL path segment the output directory is served under.
	OutputFolder string `toml:"output_folder" yaml:"output_folder"`
	OutputDir    string `toml:"output_dir" yaml:"output_dir"`
	TempDir      string `toml:"temp_dir" yaml:"temp_dir"`
	LogDir       string `toml:"log_dir" yaml:"log_dir"`
	CookiesPath  string `toml:"cookies_path" yaml:"cookies_path"`

	Format        string `toml:"format" yaml:"format"`
	MergeFormat   string `toml:"merge_format" yaml:"merge_format"`
	UserAgent     string `toml:"user_agent" yaml:"user_agent"`
	ExtractorArgs string `toml:"extractor_args" yaml:"extractor_args"`

	MaxExecutionTime time.Duration `toml:"max_execution_time" yaml:"max_execution_time"`
	MemoryLimit      string        `toml:"memory_limit" yaml:"memory_limit"`
	JanitorInterval  time.Duration `toml:"janitor_interval" yaml:"janitor_interval"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:             8080,
		YtDlpPath:        "/usr/local/bin/yt-dlp",
		FFmpegPath:       "/usr/bin/ffmpeg",
		OutputFolder:     "youtube_downloads",
		OutputDir:        "youtube_downloads",
		TempDir:          "temp_yt_downloads",
		CookiesPath:      "youtube_cookies.txt",
		Format:           "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]",
		MergeFormat:      "mp4",
		UserAgent:        DefaultUserAgent,
		ExtractorArgs:    "youtube:player_client=android",
		MaxExecutionTime: 20 * time.Minute,
		MemoryLimit:      "1024M",
		JanitorInterval:  10 * time.Minute,
	}
}

// Load builds Config from defaults, an optional TOML or YAML file and
// YTCLIP_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if cfg.LogDir == "" {
		cfg.LogDir = cfg.OutputDir
	}
	cfg.OutputDir = ExpandPath(cfg.OutputDir)
	cfg.TempDir = ExpandPath(cfg.TempDir)
	cfg.LogDir = ExpandPath(cfg.LogDir)
	cfg.CookiesPath = ExpandPath(cfg.CookiesPath)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		if _, err := toml.Decode(string(data), c); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	return nil
}

func (c *Config) applyEnv() {
	if port := os.Getenv("YTCLIP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Port = p
		}
	}
	strOverrides := map[string]*string{
		"YTCLIP_PUBLIC_BASE_URL": &c.PublicBaseURL,
		"YTCLIP_YTDLP_PATH":      &c.YtDlpPath,
		"YTCLIP_FFMPEG_PATH":     &c.FFmpegPath,
		"YTCLIP_OUTPUT_DIR":      &c.OutputDir,
		"YTCLIP_TEMP_DIR":        &c.TempDir,
		"YTCLIP_LOG_DIR":         &c.LogDir,
		"YTCLIP_COOKIES":         &c.CookiesPath,
		"YTCLIP_FORMAT":          &c.Format,
		"YTCLIP_MEMORY_LIMIT":    &c.MemoryLimit,
	}
	for key, dst := range strOverrides {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("YTCLIP_MAX_EXECUTION_TIME"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.MaxExecutionTime = d
		}
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("invalid port %d", c.Port)
	case c.YtDlpPath == "":
		return errors.New("ytdlp_path is required")
	case c.FFmpegPath == "":
		return errors.New("ffmpeg_path is required")
	case c.OutputDir == "" || c.TempDir == "":
		return errors.New("output_dir and temp_dir are required")
	case c.OutputFolder == "" || strings.ContainsAny(c.OutputFolder, `/\`):
		return fmt.Errorf("output_folder %q must be a single path segment", c.OutputFolder)
	case c.MaxExecutionTime <= 0:
		return errors.New("max_execution_time must be positive")
	case c.JanitorInterval <= 0:
		return errors.New("janitor_interval must be positive")
	}
	if _, err := c.MemoryLimitBytes(); err != nil {
		return err
	}
	return nil
}

// MemoryLimitBytes parses MemoryLimit ("1024M", "2GiB"). Zero means unlimited.
func (c *Config) MemoryLimitBytes() (int64, error) {
	if c.MemoryLimit == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(c.MemoryLimit)
	if err != nil {
		return 0, fmt.Errorf("invalid memory_limit %q: %w", c.MemoryLimit, err)
	}
	return int64(n), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
