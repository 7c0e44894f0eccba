package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Dev-derah/simple-content-ai/internal/core/config"
	"github.com/Dev-derah/simple-content-ai/internal/core/crypto"
	"github.com/Dev-derah/simple-content-ai/internal/core/repurpose"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage contentai configuration",
	Long:  "View and modify contentai settings",
}

// contentai config show - show current config
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		masked := *cfg
		masked.Transcription.APIKey = maskSecret(cfg.Transcription.APIKey)
		masked.Generation.APIKey = maskSecret(cfg.Generation.APIKey)
		masked.Server.APIKey = maskSecret(cfg.Server.APIKey)
		masked.Cache.Password = maskSecret(cfg.Cache.Password)

		data, err := yaml.Marshal(&masked)
		if err != nil {
			return err
		}
		fmt.Printf("# %s\n", config.SavePath())
		fmt.Print(string(data))
		return nil
	},
}

// contentai config path - show config file path
var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show config file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(config.SavePath())
	},
}

const supportedKeys = `Supported keys:
  download_dir                     Root directory for instance folders
  scraper.headless                 Run the browser without a window (true/false)
  scraper.browser_bin              Browser executable for listing pages
  scraper.scroll_count             Scrolls per listing page
  download.ytdlp_bin               yt-dlp executable
  download.format                  yt-dlp format selector
  download.youtube_cookies         Netscape cookies.txt for YouTube
  download.proxy                   Proxy URL for downloads
  download.proxy_file              File with one proxy URL per line
  audio.ffmpeg_bin                 ffmpeg executable ("wasm" for the embedded build)
  transcription.provider           openai or groq
  transcription.model              Speech-to-text model
  transcription.base_url           OpenAI-compatible endpoint
  transcription.api_key            API key for transcription
  transcription.language           Spoken language hint (en, es, ...)
  transcription.prompt             Names and jargon to spell correctly
  generation.provider              openai, anthropic or qwen
  generation.model                 Text model
  generation.base_url              OpenAI-compatible endpoint
  generation.api_key               API key for generation
  generation.rate_per_minute       Max generation calls per minute (0 = unlimited)
  generation.max_tokens            Max tokens per response
  generation.temperature           Sampling temperature
  pipeline.max_concurrent          Items processed in parallel
  pipeline.default_limit           Items per source when no limit is given
  pipeline.default_platforms       Comma separated output platforms
  platforms.<name>.max_length      Character limit for one platform
  platforms.<name>.hashtag_count   Hashtags for one platform
  platforms.<name>.tone            Tone for one platform
  cache.redis_addr                 Redis address for the transcript cache
  cache.ttl                        Transcript cache lifetime (e.g. 48h)
  server.port                      Server listen port
  server.max_concurrent            Max concurrent jobs
  server.api_key                   Server API key
  server.requests_per_window       Requests per client every 15 minutes`

// contentai config set KEY VALUE - set a config value
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: "Set a configuration value in config.yml.\n\n" + supportedKeys + `

Examples:
  contentai config set generation.provider anthropic
  contentai config set pipeline.default_platforms linkedin,twitter
  contentai config set platforms.linkedin.tone casual`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		cfg := loadRawConfig()
		if err := setConfigValue(cfg, key, value); err != nil {
			return err
		}
		if err := config.Save(cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		fmt.Printf("Set %s = %s\n", key, value)
		return nil
	},
}

// contentai config get KEY - get a config value
var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long:  "Get a configuration value from config.yml.\n\n" + supportedKeys,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := getConfigValue(loadRawConfig(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil
	},
}

// contentai config unset KEY - reset a config value to its default
var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Reset a configuration value to its default",
	Long:  "Reset a configuration value in config.yml to its default.\n\n" + supportedKeys,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]

		cfg := loadRawConfig()
		if err := unsetConfigValue(cfg, key); err != nil {
			return err
		}
		if err := config.Save(cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		fmt.Printf("Unset %s\n", key)
		return nil
	},
}

// contentai config seal KEY - store an encrypted secret
var configSealCmd = &cobra.Command{
	Use:   "seal <key>",
	Short: "Store an API key encrypted with a passphrase",
	Long: `Prompt for a secret and store it in config.yml encrypted with a passphrase.
Set CONTENTAI_PASSPHRASE when running contentai so the value can be decrypted.

Keys:
  generation.api_key
  transcription.api_key
  server.api_key
  cache.password`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		cfg := loadRawConfig()
		field, ok := cfg.Secrets()[key]
		if !ok {
			return fmt.Errorf("%s cannot be sealed\nRun 'contentai config seal --help' to see supported keys", key)
		}

		value, err := readSecret(key + ": ")
		if err != nil || value == "" {
			return err
		}
		passphrase, err := readSecret("Passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := readSecret("Repeat passphrase: ")
		if err != nil {
			return err
		}
		if passphrase != confirm {
			return fmt.Errorf("passphrases do not match")
		}

		sealed, err := crypto.Seal(value, passphrase)
		if err != nil {
			return err
		}
		*field = sealed
		if err := config.Save(cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		fmt.Printf("Sealed %s\n", key)
		return nil
	},
}

func unknownKey(key, verb string) error {
	return fmt.Errorf("unknown config key: %s\nRun 'contentai config %s --help' to see supported keys", key, verb)
}

// setConfigValue sets a config value by key
func setConfigValue(cfg *config.Config, key, value string) error {
	if name, field, ok := platformKey(key); ok {
		return setPlatformValue(cfg, name, field, value)
	}

	switch key {
	case "download_dir":
		cfg.DownloadDir = value
	case "scraper.headless":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %s", value)
		}
		cfg.Scraper.Headless = &b
	case "scraper.browser_bin":
		cfg.Scraper.BrowserBin = value
	case "scraper.scroll_count":
		return setInt(&cfg.Scraper.ScrollCount, value)
	case "download.ytdlp_bin":
		cfg.Download.YtDlpBin = value
	case "download.format":
		cfg.Download.Format = value
	case "download.youtube_cookies":
		cfg.Download.YouTubeCookies = value
	case "download.proxy":
		cfg.Download.Proxy = value
	case "download.proxy_file":
		cfg.Download.ProxyFile = value
	case "audio.ffmpeg_bin":
		cfg.Audio.FFmpegBin = value
	case "transcription.provider":
		cfg.Transcription.Provider = value
	case "transcription.model":
		cfg.Transcription.Model = value
	case "transcription.base_url":
		cfg.Transcription.BaseURL = value
	case "transcription.api_key":
		cfg.Transcription.APIKey = value
	case "transcription.language":
		cfg.Transcription.Language = value
	case "transcription.prompt":
		cfg.Transcription.Prompt = value
	case "generation.provider":
		cfg.Generation.Provider = value
	case "generation.model":
		cfg.Generation.Model = value
	case "generation.base_url":
		cfg.Generation.BaseURL = value
	case "generation.api_key":
		cfg.Generation.APIKey = value
	case "generation.rate_per_minute":
		return setInt(&cfg.Generation.RatePerMinute, value)
	case "generation.max_tokens":
		return setInt(&cfg.Generation.MaxTokens, value)
	case "generation.temperature":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid number: %s", value)
		}
		cfg.Generation.Temperature = f
	case "pipeline.max_concurrent":
		return setInt(&cfg.Pipeline.MaxConcurrent, value)
	case "pipeline.default_limit":
		return setInt(&cfg.Pipeline.DefaultLimit, value)
	case "pipeline.default_platforms":
		platforms, err := repurpose.ParsePlatforms(splitList(value))
		if err != nil {
			return err
		}
		names := make([]string, len(platforms))
		for i, p := range platforms {
			names[i] = string(p)
		}
		cfg.Pipeline.DefaultPlatforms = names
	case "cache.redis_addr":
		cfg.Cache.RedisAddr = value
	case "cache.ttl":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %s", value)
		}
		cfg.Cache.TTL = d
	case "server.port":
		var port int
		if _, err := fmt.Sscanf(value, "%d", &port); err != nil {
			return fmt.Errorf("invalid port number: %s", value)
		}
		cfg.Server.Port = port
	case "server.max_concurrent":
		return setInt(&cfg.Server.MaxConcurrent, value)
	case "server.api_key":
		cfg.Server.APIKey = value
	case "server.requests_per_window":
		return setInt(&cfg.Server.RequestsPerWindow, value)
	default:
		return unknownKey(key, "set")
	}
	return nil
}

// getConfigValue gets a config value by key
func getConfigValue(cfg *config.Config, key string) (string, error) {
	if name, field, ok := platformKey(key); ok {
		pc := cfg.Platforms[name]
		switch field {
		case "max_length":
			return strconv.Itoa(pc.MaxLength), nil
		case "hashtag_count":
			return strconv.Itoa(pc.HashtagCount), nil
		default:
			return pc.Tone, nil
		}
	}

	switch key {
	case "download_dir":
		return cfg.DownloadDir, nil
	case "scraper.headless":
		return strconv.FormatBool(cfg.Scraper.IsHeadless()), nil
	case "scraper.browser_bin":
		return cfg.Scraper.BrowserBin, nil
	case "scraper.scroll_count":
		return strconv.Itoa(cfg.Scraper.ScrollCount), nil
	case "download.ytdlp_bin":
		return cfg.Download.YtDlpBin, nil
	case "download.format":
		return cfg.Download.Format, nil
	case "download.youtube_cookies":
		return cfg.Download.YouTubeCookies, nil
	case "download.proxy":
		return cfg.Download.Proxy, nil
	case "download.proxy_file":
		return cfg.Download.ProxyFile, nil
	case "audio.ffmpeg_bin":
		return cfg.Audio.FFmpegBin, nil
	case "transcription.provider":
		return cfg.Transcription.Provider, nil
	case "transcription.model":
		return cfg.Transcription.Model, nil
	case "transcription.base_url":
		return cfg.Transcription.BaseURL, nil
	case "transcription.api_key":
		return cfg.Transcription.APIKey, nil
	case "transcription.language":
		return cfg.Transcription.Language, nil
	case "transcription.prompt":
		return cfg.Transcription.Prompt, nil
	case "generation.provider":
		return cfg.Generation.Provider, nil
	case "generation.model":
		return cfg.Generation.Model, nil
	case "generation.base_url":
		return cfg.Generation.BaseURL, nil
	case "generation.api_key":
		return cfg.Generation.APIKey, nil
	case "generation.rate_per_minute":
		return strconv.Itoa(cfg.Generation.RatePerMinute), nil
	case "generation.max_tokens":
		return strconv.Itoa(cfg.Generation.MaxTokens), nil
	case "generation.temperature":
		return strconv.FormatFloat(cfg.Generation.Temperature, 'g', -1, 64), nil
	case "pipeline.max_concurrent":
		return strconv.Itoa(cfg.Pipeline.MaxConcurrent), nil
	case "pipeline.default_limit":
		return strconv.Itoa(cfg.Pipeline.DefaultLimit), nil
	case "pipeline.default_platforms":
		return strings.Join(cfg.Pipeline.DefaultPlatforms, ","), nil
	case "cache.redis_addr":
		return cfg.Cache.RedisAddr, nil
	case "cache.ttl":
		return cfg.Cache.TTL.String(), nil
	case "server.port":
		return strconv.Itoa(cfg.Server.Port), nil
	case "server.max_concurrent":
		return strconv.Itoa(cfg.Server.MaxConcurrent), nil
	case "server.api_key":
		return cfg.Server.APIKey, nil
	case "server.requests_per_window":
		return strconv.Itoa(cfg.Server.RequestsPerWindow), nil
	default:
		return "", unknownKey(key, "get")
	}
}

// unsetConfigValue resets a config value to its default
func unsetConfigValue(cfg *config.Config, key string) error {
	if name, _, ok := platformKey(key); ok {
		platforms, err := repurpose.ParsePlatforms([]string{name})
		if err != nil {
			return err
		}
		delete(cfg.Platforms, string(platforms[0]))
		return nil
	}

	def, err := getConfigValue(config.DefaultConfig(), key)
	if err != nil {
		return unknownKey(key, "unset")
	}
	if key == "scraper.headless" {
		cfg.Scraper.Headless = nil
		return nil
	}
	if key == "pipeline.default_platforms" {
		cfg.Pipeline.DefaultPlatforms = nil
		return nil
	}
	return setConfigValue(cfg, key, def)
}

// platformKey splits "platforms.<name>.<field>".
func platformKey(key string) (name, field string, ok bool) {
	parts := strings.Split(key, ".")
	if len(parts) != 3 || parts[0] != "platforms" {
		return "", "", false
	}
	switch parts[2] {
	case "max_length", "hashtag_count", "tone":
		return strings.ToLower(parts[1]), parts[2], true
	}
	return "", "", false
}

func setPlatformValue(cfg *config.Config, name, field, value string) error {
	platforms, err := repurpose.ParsePlatforms([]string{name})
	if err != nil {
		return err
	}
	name = string(platforms[0])

	if cfg.Platforms == nil {
		cfg.Platforms = make(map[string]config.PlatformConfig)
	}
	pc := cfg.Platforms[name]
	switch field {
	case "max_length":
		if err := setInt(&pc.MaxLength, value); err != nil {
			return err
		}
	case "hashtag_count":
		if err := setInt(&pc.HashtagCount, value); err != nil {
			return err
		}
	case "tone":
		pc.Tone = value
	}
	cfg.Platforms[name] = pc
	return nil
}

func setInt(dst *int, value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid number: %s", value)
	}
	*dst = n
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configUnsetCmd)
	configCmd.AddCommand(configSealCmd)

	rootCmd.AddCommand(configCmd)
}

