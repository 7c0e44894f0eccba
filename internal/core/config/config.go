package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Dev-derah/simple-content-ai/internal/core/crypto"
)

const (
	ConfigFileName = "config.yml"
	AppDirName     = "contentai"
)

// ConfigDir returns the standard config directory for contentai.
// Windows: %APPDATA%\contentai\
// macOS/Linux: ~/.config/contentai/
func ConfigDir() (string, error) {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, AppDirName), nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppDirName), nil
}

// ConfigPath returns the path to the config file.
// e.g., ~/.config/contentai/config.yml
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

type Config struct {
	// Root directory for instance folders (videos/, audio/, metadata/)
	DownloadDir string `yaml:"download_dir,omitempty"`

	Scraper       ScraperConfig             `yaml:"scraper,omitempty"`
	Download      DownloadConfig            `yaml:"download,omitempty"`
	Audio         AudioConfig               `yaml:"audio,omitempty"`
	Transcription TranscriptionConfig       `yaml:"transcription,omitempty"`
	Generation    GenerationConfig          `yaml:"generation,omitempty"`
	Platforms     map[string]PlatformConfig `yaml:"platforms,omitempty"`
	Pipeline      PipelineConfig            `yaml:"pipeline,omitempty"`
	Cache         CacheConfig               `yaml:"cache,omitempty"`
	Server        ServerConfig              `yaml:"server,omitempty"`
}

// ScraperConfig controls the headless browser used for listing pages.
type ScraperConfig struct {
	Headless *bool `yaml:"headless,omitempty"`

	// BrowserBin overrides the browser rod downloads (also ROD_BROWSER)
	BrowserBin string `yaml:"browser_bin,omitempty"`

	ScrollCount int           `yaml:"scroll_count,omitempty"`
	NavTimeout  time.Duration `yaml:"nav_timeout,omitempty"`
	NavAttempts int           `yaml:"nav_attempts,omitempty"`
}

// IsHeadless reports whether the browser runs without a window (default true).
func (s ScraperConfig) IsHeadless() bool {
	return s.Headless == nil || *s.Headless
}

// DownloadConfig holds yt-dlp settings.
type DownloadConfig struct {
	YtDlpBin string `yaml:"ytdlp_bin,omitempty"`
	Format   string `yaml:"format,omitempty"`

	// MinBytes is the smallest file accepted as a complete download
	MinBytes int64         `yaml:"min_bytes,omitempty"`
	Attempts int           `yaml:"attempts,omitempty"`
	Delay    time.Duration `yaml:"delay,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`

	// YouTubeCookies is a Netscape cookies.txt exported from a logged-in browser
	YouTubeCookies string `yaml:"youtube_cookies,omitempty"`

	// Proxy is a single proxy URL; ProxyFile lists one per line and takes precedence
	Proxy     string `yaml:"proxy,omitempty"`
	ProxyFile string `yaml:"proxy_file,omitempty"`
}

// AudioConfig holds ffmpeg settings.
type AudioConfig struct {
	FFmpegBin  string        `yaml:"ffmpeg_bin,omitempty"`
	SampleRate int           `yaml:"sample_rate,omitempty"`
	Timeout    time.Duration `yaml:"timeout,omitempty"`
}

// AIServiceConfig describes one remote model endpoint.
type AIServiceConfig struct {
	Provider string        `yaml:"provider,omitempty"`
	Model    string        `yaml:"model,omitempty"`
	BaseURL  string        `yaml:"base_url,omitempty"`
	APIKey   string        `yaml:"api_key,omitempty"`
	Attempts int           `yaml:"attempts,omitempty"`
	Backoff  time.Duration `yaml:"backoff,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
}

// TranscriptionConfig adds speech-to-text hints to the endpoint settings.
type TranscriptionConfig struct {
	AIServiceConfig `yaml:",inline"`

	// Language is an ISO-639-1 hint such as "en"; empty lets the model detect it.
	Language string `yaml:"language,omitempty"`
	// Prompt primes the model with spelling of names and jargon.
	Prompt string `yaml:"prompt,omitempty"`
}

type GenerationConfig struct {
	AIServiceConfig `yaml:",inline"`

	// RatePerMinute caps generation calls; 0 disables limiting (also RATE_LIMIT)
	RatePerMinute int     `yaml:"rate_per_minute,omitempty"`
	MaxTokens     int     `yaml:"max_tokens,omitempty"`
	Temperature   float64 `yaml:"temperature,omitempty"`
}

// PlatformConfig overrides the built-in constraints for one output platform.
type PlatformConfig struct {
	MaxLength    int    `yaml:"max_length,omitempty"`
	HashtagCount int    `yaml:"hashtag_count,omitempty"`
	Tone         string `yaml:"tone,omitempty"`
}

type PipelineConfig struct {
	MaxConcurrent int `yaml:"max_concurrent,omitempty"`
	DefaultLimit  int `yaml:"default_limit,omitempty"`

	// DefaultPlatforms are the output platforms used when a request names none
	DefaultPlatforms []string `yaml:"default_platforms,omitempty"`
}

// CacheConfig enables the Redis transcript cache when RedisAddr is set.
type CacheConfig struct {
	RedisAddr string        `yaml:"redis_addr,omitempty"`
	Password  string        `yaml:"password,omitempty"`
	DB        int           `yaml:"db,omitempty"`
	TTL       time.Duration `yaml:"ttl,omitempty"`
}

// ServerConfig holds HTTP server settings for `contentai serve`
type ServerConfig struct {
	// Port is the HTTP listen port (default: 3000)
	Port int `yaml:"port,omitempty"`

	// MaxConcurrent is the max number of concurrent jobs (default: 2)
	MaxConcurrent int `yaml:"max_concurrent,omitempty"`

	// APIKey for authentication (optional, if set all requests must include X-API-Key header)
	APIKey string `yaml:"api_key,omitempty"`

	// RequestsPerWindow caps requests per client IP every 15 minutes (default: 15, negative disables)
	RequestsPerWindow int `yaml:"requests_per_window,omitempty"`
}

// DefaultDownloadDir returns the default download directory
func DefaultDownloadDir() string {
	if IsRunningInDocker() {
		return "/data/downloads"
	}
	return "downloads"
}

// IsRunningInDocker detects if we're running inside a Docker container
func IsRunningInDocker() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	if data, err := os.ReadFile("/proc/1/cgroup"); err == nil {
		content := string(data)
		if strings.Contains(content, "docker") || strings.Contains(content, "containerd") {
			return true
		}
	}
	return os.Getenv("KUBERNETES_SERVICE_HOST") != ""
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		DownloadDir: DefaultDownloadDir(),
		Scraper: ScraperConfig{
			ScrollCount: 3,
			NavTimeout:  30 * time.Second,
			NavAttempts: 3,
		},
		Download: DownloadConfig{
			YtDlpBin: "yt-dlp",
			Format:   "bestvideo[ext=mp4]+bestaudio[ext=m4a]/bestvideo+bestaudio/best",
			MinBytes: 100 * 1024,
			Attempts: 3,
			Delay:    3 * time.Second,
			Timeout:  2 * time.Minute,
		},
		Audio: AudioConfig{
			FFmpegBin:  "ffmpeg",
			SampleRate: 16000,
			Timeout:    2 * time.Minute,
		},
		Transcription: TranscriptionConfig{
			AIServiceConfig: AIServiceConfig{
				Provider: "openai",
				Model:    "whisper-1",
				Attempts: 3,
				Backoff:  3 * time.Second,
				Timeout:  5 * time.Minute,
			},
		},
		Generation: GenerationConfig{
			AIServiceConfig: AIServiceConfig{
				Provider: "openai",
				Model:    "gpt-4o-mini",
				Attempts: 3,
				Backoff:  time.Second,
				Timeout:  2 * time.Minute,
			},
			MaxTokens:   4000,
			Temperature: 0.7,
		},
		Pipeline: PipelineConfig{
			MaxConcurrent:    2,
			DefaultLimit:     10,
			DefaultPlatforms: []string{"linkedin", "twitter", "tiktok"},
		},
		Cache: CacheConfig{
			TTL: 48 * time.Hour,
		},
		Server: ServerConfig{
			Port:              3000,
			MaxConcurrent:     2,
			RequestsPerWindow: 15,
		},
	}
}

// Exists checks if config file exists
func Exists() bool {
	path, err := ConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Load reads the config from ~/.config/contentai/config.yml on top of the defaults
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads a config file at path. Unset fields keep their defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cfg.DownloadDir = expandPath(cfg.DownloadDir)
	cfg.Download.YouTubeCookies = expandPath(cfg.Download.YouTubeCookies)
	cfg.Download.ProxyFile = expandPath(cfg.Download.ProxyFile)

	return cfg, nil
}

// expandPath expands the tilde (~) in the path to the user's home directory.
// It handles both forward and backward slashes to ensure cross-platform compatibility
// for configuration files.
func expandPath(path string) string {
	if path == "" {
		return ""
	}

	if strings.HasPrefix(path, "~") {
		// Only expand if it's explicitly "~", "~/", or "~\"
		if len(path) == 1 || path[1] == '/' || path[1] == '\\' {
			home, err := os.UserHomeDir()
			if err == nil {
				subPath := path[1:]
				if len(subPath) > 0 && (subPath[0] == '/' || subPath[0] == '\\') {
					subPath = subPath[1:]
				}
				return filepath.Join(home, subPath)
			}
		}
	}

	return path
}

// ApplyEnv overlays environment variables on cfg. A .env file in the working
// directory is read first; variables already set in the environment win.
func ApplyEnv(cfg *Config) {
	_ = godotenv.Load()
	applyEnv(cfg, os.Getenv)
}

func applyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv("CONTENTAI_DOWNLOAD_DIR"); v != "" {
		cfg.DownloadDir = expandPath(v)
	}
	if v := getenv("HEADLESS"); v != "" {
		headless := v != "false" && v != "0"
		cfg.Scraper.Headless = &headless
	}
	if v := getenv("ROD_BROWSER"); v != "" {
		cfg.Scraper.BrowserBin = v
	}
	if v := getenv("YOUTUBE_COOKIES"); v != "" {
		cfg.Download.YouTubeCookies = expandPath(v)
	}
	if v := getenv("PROXY_URL"); v != "" {
		cfg.Download.Proxy = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := getenv("RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Generation.RatePerMinute = n
		}
	}
	if v := getenv("CONTENTAI_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}

	for _, err := range openSecrets(cfg, getenv("CONTENTAI_PASSPHRASE")) {
		log.Printf("[config] %v", err)
	}

	if cfg.Transcription.APIKey == "" {
		cfg.Transcription.APIKey = providerKey(cfg.Transcription.Provider, getenv)
	}
	if cfg.Generation.APIKey == "" {
		cfg.Generation.APIKey = providerKey(cfg.Generation.Provider, getenv)
	}
}

// Secrets returns the config fields that may hold sealed values, by key.
func (c *Config) Secrets() map[string]*string {
	return map[string]*string{
		"transcription.api_key": &c.Transcription.APIKey,
		"generation.api_key":    &c.Generation.APIKey,
		"server.api_key":        &c.Server.APIKey,
		"cache.password":        &c.Cache.Password,
	}
}

// openSecrets decrypts sealed fields in place. A field that cannot be
// opened is cleared so environment keys can take its place.
func openSecrets(cfg *Config, passphrase string) []error {
	var errs []error
	for key, field := range cfg.Secrets() {
		if !crypto.IsSealed(*field) {
			continue
		}
		if passphrase == "" {
			errs = append(errs, fmt.Errorf("%s is encrypted; set CONTENTAI_PASSPHRASE to use it", key))
			*field = ""
			continue
		}
		plain, err := crypto.Open(*field, passphrase)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			*field = ""
			continue
		}
		*field = plain
	}
	return errs
}

// providerKey returns the conventional API key variable for a provider.
func providerKey(provider string, getenv func(string) string) string {
	switch provider {
	case "anthropic":
		return getenv("ANTHROPIC_API_KEY")
	case "qwen":
		return getenv("DASHSCOPE_API_KEY")
	default:
		return getenv("OPENAI_API_KEY")
	}
}

// Save writes the config to ~/.config/contentai/config.yml
func Save(cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	configPath, err := ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	header := "# contentai configuration file\n# Run 'contentai init' to regenerate with defaults\n# API keys are read from the environment (or .env) when left empty\n\n"
	content := header + string(data)

	return os.WriteFile(configPath, []byte(content), 0644)
}

// SavePath returns the path where config will be saved
func SavePath() string {
	if path, err := ConfigPath(); err == nil {
		return path
	}
	return "config.yml"
}

// Init creates a new config.yml with default values
func Init() error {
	if Exists() {
		path, _ := ConfigPath()
		return fmt.Errorf("%s already exists", path)
	}
	return Save(DefaultConfig())
}

// LoadOrDefault loads config if it exists, otherwise returns defaults.
// Environment overrides are applied either way.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		cfg = DefaultConfig()
	}
	ApplyEnv(cfg)
	return cfg
}
