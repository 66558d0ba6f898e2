package model

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/spf13/viper"
)

// EmailConfig holds the IMAP connection settings.
type EmailConfig struct {
	// Server is the IMAP server hostname.
	Server string `mapstructure:"server" yaml:"server"`

	// Port is the IMAP server port (usually 993 for SSL).
	Port int `mapstructure:"port" yaml:"port"`

	// UseSSL selects implicit TLS; when false, STARTTLS is used.
	UseSSL bool `mapstructure:"use_ssl" yaml:"use_ssl"`

	// Username is the mailbox login name.
	Username string `mapstructure:"username" yaml:"username"`

	// Password is the mailbox password. Leave empty to have it looked
	// up in the system keyring instead.
	Password string `mapstructure:"password" yaml:"password"`

	// Folder is the mailbox to search (defaults to INBOX).
	Folder string `mapstructure:"folder" yaml:"folder"`
}

// ParsingConfig holds the keyword and pattern lists that drive extraction.
// All lists are ordered; earlier entries win when more than one applies.
type ParsingConfig struct {
	// EODKeywords are the section header keywords, matched
	// case-insensitively at the start of a line.
	EODKeywords []string `mapstructure:"eod_keywords" yaml:"eod_keywords"`

	// TimePatterns are regular expressions that locate the time-spent
	// substring within a task line.
	TimePatterns []string `mapstructure:"time_patterns" yaml:"time_patterns"`

	// SectionEndMarkers are line prefixes (signatures, quoted headers)
	// that terminate an EOD section.
	SectionEndMarkers []string `mapstructure:"section_end_markers" yaml:"section_end_markers"`
}

// CacheConfig holds settings for the local raw-message cache.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// OutputConfig holds output rendering preferences.
type OutputConfig struct {
	DefaultFormat string `mapstructure:"default_format" yaml:"default_format"`
}

// Config is the top-level application configuration.
type Config struct {
	Email   EmailConfig   `mapstructure:"email" yaml:"email"`
	Parsing ParsingConfig `mapstructure:"parsing" yaml:"parsing"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output"`
}

// DefaultKeywords is the stock list of EOD section header keywords.
var DefaultKeywords = []string{
	"EOD",
	"End of Day",
	"End of Day Summary",
	"Daily Summary",
	"Task Summary",
}

// DefaultTimePatterns is the stock list of time-spent regex patterns.
var DefaultTimePatterns = []string{
	`\d+\s*min`,
	`\d+:\d+\s*hrs?`,
	`\d+\.\d+\s*hrs?`,
	`\d+\s*hrs?`,
}

// DefaultSectionEndMarkers is the stock list of section-terminating
// line prefixes (signatures and quoted reply headers).
var DefaultSectionEndMarkers = []string{
	"Best regards",
	"Thanks",
	"Regards",
	"Sincerely",
	"From:",
	"Sent:",
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/eodex/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "eodex", "config.yaml")
}

// DefaultCachePath returns the default location of the message cache
// database, next to the default config file.
func DefaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "messages.db")
	}
	return filepath.Join(home, ".config", "eodex", "messages.db")
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() *Config {
	return &Config{
		Email: EmailConfig{
			Port:   993,
			UseSSL: true,
			Folder: "INBOX",
		},
		Parsing: ParsingConfig{
			EODKeywords:       DefaultKeywords,
			TimePatterns:      DefaultTimePatterns,
			SectionEndMarkers: DefaultSectionEndMarkers,
		},
		Cache: CacheConfig{
			Enabled: true,
		},
		Output: OutputConfig{
			DefaultFormat: "json",
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns the default configuration.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("email.port", 993)
	v.SetDefault("email.use_ssl", true)
	v.SetDefault("email.folder", "INBOX")
	v.SetDefault("parsing.eod_keywords", DefaultKeywords)
	v.SetDefault("parsing.time_patterns", DefaultTimePatterns)
	v.SetDefault("parsing.section_end_markers", DefaultSectionEndMarkers)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("output.default_format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return DefaultConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.ValidateParsing(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ValidateParsing checks the parsing settings: the keyword list must be
// non-empty and every time pattern must compile. This runs at load time so
// a bad pattern is rejected before any network connection is opened.
func (c *Config) ValidateParsing() error {
	if len(c.Parsing.EODKeywords) == 0 {
		return fmt.Errorf("config: parsing.eod_keywords must not be empty")
	}
	for _, p := range c.Parsing.TimePatterns {
		if _, err := regexp.Compile("(?i)" + p); err != nil {
			return fmt.Errorf("config: invalid time pattern %q: %w", p, err)
		}
	}
	return nil
}

// ValidateConnection checks that the settings needed for a network run are
// present. Offline commands (demo, config init) skip this.
func (c *Config) ValidateConnection() error {
	if c.Email.Server == "" {
		return fmt.Errorf("config: email.server is required")
	}
	if c.Email.Username == "" {
		return fmt.Errorf("config: email.username is required")
	}
	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("email", cfg.Email)
	v.Set("parsing", cfg.Parsing)
	v.Set("cache", cfg.Cache)
	v.Set("output", cfg.Output)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
