package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/example/slotwatch/internal/common"
	"gopkg.in/yaml.v3"
)

const (
	// Monitor defaults
	DefaultCheckIntervalMs = 300000 // 5 minutes
	DefaultMaxCycles       = 0      // run indefinitely
	DefaultRetentionDays   = 30

	// Fetch modes
	FetchModeBrowser = "browser"
	FetchModeStatic  = "static"

	// Fetcher defaults
	DefaultFetchMode           = FetchModeBrowser
	DefaultPageLoadTimeoutSecs = 30
	DefaultWaitAfterLoadMs     = 1500
	DefaultStaticTimeoutSecs   = 20
	DefaultUserAgent           = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// Storage defaults
	DefaultStorageBaseDir = "data"
	DefaultSessionDBPath  = "data/sessions/session_history.db"

	// Log defaults
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
	DefaultMaxLogSizeMB  = 100
	DefaultMaxLogBackups = 3

	// Notification defaults
	DefaultNotificationLogFile = "data/notifications.log"

	// Resource limiter defaults
	DefaultMaxMemoryPercent = 85.0
)

// GlobalConfig aggregates all component configurations.
type GlobalConfig struct {
	ClassifierConfig   ClassifierConfig   `json:"classifier_config,omitempty" yaml:"classifier_config,omitempty"`
	FetcherConfig      FetcherConfig      `json:"fetcher_config,omitempty" yaml:"fetcher_config,omitempty"`
	FilterConfig       FilterConfig       `json:"filter_config,omitempty" yaml:"filter_config,omitempty"`
	LogConfig          LogConfig          `json:"log_config,omitempty" yaml:"log_config,omitempty"`
	MonitorConfig      MonitorConfig      `json:"monitor_config,omitempty" yaml:"monitor_config,omitempty"`
	NotificationConfig NotificationConfig `json:"notification_config,omitempty" yaml:"notification_config,omitempty"`
	RetryConfig        RetryConfig        `json:"retry_config,omitempty" yaml:"retry_config,omitempty"`
	StorageConfig      StorageConfig      `json:"storage_config,omitempty" yaml:"storage_config,omitempty"`
}

// NewDefaultGlobalConfig creates a GlobalConfig with all defaults applied.
func NewDefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		ClassifierConfig:   NewDefaultClassifierConfig(),
		FetcherConfig:      NewDefaultFetcherConfig(),
		FilterConfig:       NewDefaultFilterConfig(),
		LogConfig:          NewDefaultLogConfig(),
		MonitorConfig:      NewDefaultMonitorConfig(),
		NotificationConfig: NewDefaultNotificationConfig(),
		RetryConfig:        NewDefaultRetryConfig(),
		StorageConfig:      NewDefaultStorageConfig(),
	}
}

// MonitorConfig defines configuration for the monitor lifecycle controller.
type MonitorConfig struct {
	CheckIntervalMs  int           `json:"check_interval_ms,omitempty" yaml:"check_interval_ms,omitempty" validate:"omitempty,min=1"`
	CheckInterval    time.Duration `json:"-" yaml:"-"`
	MaxCycles        int           `json:"max_cycles,omitempty" yaml:"max_cycles,omitempty" validate:"omitempty,min=0"`
	RetentionDays    int           `json:"retention_days,omitempty" yaml:"retention_days,omitempty" validate:"omitempty,min=1"`
	MaxMemoryPercent float64       `json:"max_memory_percent,omitempty" yaml:"max_memory_percent,omitempty" validate:"omitempty,gt=0,lte=100"`
}

// NewDefaultMonitorConfig creates default monitor configuration.
func NewDefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		CheckIntervalMs:  DefaultCheckIntervalMs,
		CheckInterval:    time.Duration(DefaultCheckIntervalMs) * time.Millisecond,
		MaxCycles:        DefaultMaxCycles,
		RetentionDays:    DefaultRetentionDays,
		MaxMemoryPercent: DefaultMaxMemoryPercent,
	}
}

// Interval resolves the effective check interval.
func (mc MonitorConfig) Interval() time.Duration {
	if mc.CheckInterval > 0 {
		return mc.CheckInterval
	}
	if mc.CheckIntervalMs > 0 {
		return time.Duration(mc.CheckIntervalMs) * time.Millisecond
	}
	return time.Duration(DefaultCheckIntervalMs) * time.Millisecond
}

// Retention resolves the effective tracking retention window.
func (mc MonitorConfig) Retention() time.Duration {
	days := mc.RetentionDays
	if days <= 0 {
		days = DefaultRetentionDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// FilterConfig narrows which slots are kept from each fetch.
type FilterConfig struct {
	Cities     []string `json:"cities,omitempty" yaml:"cities,omitempty"`
	ExamModels []string `json:"exam_models,omitempty" yaml:"exam_models,omitempty"`
	Months     []int    `json:"months,omitempty" yaml:"months,omitempty" validate:"omitempty,dive,min=1,max=12"`
}

// NewDefaultFilterConfig creates default filter configuration (no filtering).
func NewDefaultFilterConfig() FilterConfig {
	return FilterConfig{
		Cities:     []string{},
		ExamModels: []string{},
		Months:     []int{},
	}
}

// BrowserConfig configures the headless browser fetch mode.
type BrowserConfig struct {
	ChromePath          string `json:"chrome_path,omitempty" yaml:"chrome_path,omitempty"`
	UserDataDir         string `json:"user_data_dir,omitempty" yaml:"user_data_dir,omitempty"`
	PageLoadTimeoutSecs int    `json:"page_load_timeout_secs,omitempty" yaml:"page_load_timeout_secs,omitempty" validate:"omitempty,min=1"`
	WaitAfterLoadMs     int    `json:"wait_after_load_ms,omitempty" yaml:"wait_after_load_ms,omitempty" validate:"omitempty,min=0"`
	DisableImages       bool   `json:"disable_images" yaml:"disable_images"`
	IgnoreHTTPSErrors   bool   `json:"ignore_https_errors" yaml:"ignore_https_errors"`
}

// FetcherConfig configures the fetch collaborator.
type FetcherConfig struct {
	SourceURL         string        `json:"source_url,omitempty" yaml:"source_url,omitempty" validate:"omitempty,url"`
	Mode              string        `json:"mode,omitempty" yaml:"mode,omitempty" validate:"omitempty,fetchmode"`
	SlotRowSelector   string        `json:"slot_row_selector,omitempty" yaml:"slot_row_selector,omitempty"`
	StaticTimeoutSecs int           `json:"static_timeout_secs,omitempty" yaml:"static_timeout_secs,omitempty" validate:"omitempty,min=1"`
	UserAgent         string        `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	Browser           BrowserConfig `json:"browser,omitempty" yaml:"browser,omitempty"`
}

// NewDefaultFetcherConfig creates default fetcher configuration.
func NewDefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		SourceURL:         "",
		Mode:              DefaultFetchMode,
		SlotRowSelector:   "table.appointments tr.slot, .appointment-card, .exam-slot",
		StaticTimeoutSecs: DefaultStaticTimeoutSecs,
		UserAgent:         DefaultUserAgent,
		Browser: BrowserConfig{
			PageLoadTimeoutSecs: DefaultPageLoadTimeoutSecs,
			WaitAfterLoadMs:     DefaultWaitAfterLoadMs,
			DisableImages:       true,
			IgnoreHTTPSErrors:   true,
		},
	}
}

// RetryConfig defines the centralized retry policy for fetch attempts.
type RetryConfig struct {
	MaxAttempts   int     `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty" validate:"omitempty,min=1,max=10"`
	BaseDelayMs   int     `json:"base_delay_ms,omitempty" yaml:"base_delay_ms,omitempty" validate:"omitempty,min=1"`
	MaxDelayMs    int     `json:"max_delay_ms,omitempty" yaml:"max_delay_ms,omitempty" validate:"omitempty,min=1"`
	EnableJitter  bool    `json:"enable_jitter" yaml:"enable_jitter"`
	NetworkFactor float64 `json:"network_factor,omitempty" yaml:"network_factor,omitempty" validate:"omitempty,gt=0"`
	TimeoutFactor float64 `json:"timeout_factor,omitempty" yaml:"timeout_factor,omitempty" validate:"omitempty,gt=0"`
	ParsingFactor float64 `json:"parsing_factor,omitempty" yaml:"parsing_factor,omitempty" validate:"omitempty,gt=0"`
}

// NewDefaultRetryConfig creates default retry configuration.
func NewDefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		BaseDelayMs:   2000,
		MaxDelayMs:    60000,
		EnableJitter:  true,
		NetworkFactor: 2.0,
		TimeoutFactor: 3.0,
		ParsingFactor: 1.0,
	}
}

// StorageConfig configures on-disk persistence.
type StorageConfig struct {
	BaseDir       string `json:"base_dir,omitempty" yaml:"base_dir,omitempty"`
	SessionDBPath string `json:"session_db_path,omitempty" yaml:"session_db_path,omitempty"`
}

// NewDefaultStorageConfig creates default storage configuration.
func NewDefaultStorageConfig() StorageConfig {
	return StorageConfig{
		BaseDir:       DefaultStorageBaseDir,
		SessionDBPath: DefaultSessionDBPath,
	}
}

// NotificationConfig configures the notification channels. Each channel is
// independent: one failing never blocks the others.
type NotificationConfig struct {
	DesktopEnabled bool     `json:"desktop_enabled" yaml:"desktop_enabled"`
	AudioEnabled   bool     `json:"audio_enabled" yaml:"audio_enabled"`
	AudioFile      string   `json:"audio_file,omitempty" yaml:"audio_file,omitempty"`
	LogFileEnabled bool     `json:"log_file_enabled" yaml:"log_file_enabled"`
	LogFilePath    string   `json:"log_file_path,omitempty" yaml:"log_file_path,omitempty"`
	WebhookURL     string   `json:"webhook_url,omitempty" yaml:"webhook_url,omitempty" validate:"omitempty,url"`
	MentionRoleIDs []string `json:"mention_role_ids,omitempty" yaml:"mention_role_ids,omitempty"`
}

// NewDefaultNotificationConfig creates default notification configuration.
func NewDefaultNotificationConfig() NotificationConfig {
	return NotificationConfig{
		DesktopEnabled: true,
		AudioEnabled:   true,
		AudioFile:      "",
		LogFileEnabled: true,
		LogFilePath:    DefaultNotificationLogFile,
		WebhookURL:     "",
		MentionRoleIDs: []string{},
	}
}

// ClassifierConfig extends the built-in phrase dictionaries. New indicators
// are data, not new branches.
type ClassifierConfig struct {
	ExtraCapacityFullPhrases  []string `json:"extra_capacity_full_phrases,omitempty" yaml:"extra_capacity_full_phrases,omitempty"`
	ExtraOpenPhrases          []string `json:"extra_open_phrases,omitempty" yaml:"extra_open_phrases,omitempty"`
	ExtraPendingPhrases       []string `json:"extra_pending_phrases,omitempty" yaml:"extra_pending_phrases,omitempty"`
	ExtraWindowElapsedPhrases []string `json:"extra_window_elapsed_phrases,omitempty" yaml:"extra_window_elapsed_phrases,omitempty"`
	ExtraDomainKeywords       []string `json:"extra_domain_keywords,omitempty" yaml:"extra_domain_keywords,omitempty"`
}

// NewDefaultClassifierConfig creates default classifier configuration.
func NewDefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{}
}

// LogConfig configures application logging.
type LogConfig struct {
	LogFile       string `json:"log_file,omitempty" yaml:"log_file,omitempty"`
	LogFormat     string `json:"log_format,omitempty" yaml:"log_format,omitempty" validate:"omitempty,logformat"`
	LogLevel      string `json:"log_level,omitempty" yaml:"log_level,omitempty" validate:"omitempty,loglevel"`
	MaxLogBackups int    `json:"max_log_backups,omitempty" yaml:"max_log_backups,omitempty"`
	MaxLogSizeMB  int    `json:"max_log_size_mb,omitempty" yaml:"max_log_size_mb,omitempty"`
}

// NewDefaultLogConfig creates default log configuration.
func NewDefaultLogConfig() LogConfig {
	return LogConfig{
		LogFile:       "",
		LogFormat:     DefaultLogFormat,
		LogLevel:      DefaultLogLevel,
		MaxLogBackups: DefaultMaxLogBackups,
		MaxLogSizeMB:  DefaultMaxLogSizeMB,
	}
}

// LoadGlobalConfig loads configuration from a file or default locations.
// YAML is preferred if the file extension is .yaml or .yml; otherwise JSON.
// A missing file yields pure defaults, not an error.
func LoadGlobalConfig(providedPath string) (*GlobalConfig, error) {
	cfg := NewDefaultGlobalConfig()

	filePath := GetConfigPath(providedPath)
	if filePath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, common.WrapError(err, "failed to read config file")
	}

	if err := parseConfigContent(data, filePath, cfg); err != nil {
		return nil, common.WrapError(err, "failed to parse config content")
	}

	if cfg.MonitorConfig.CheckIntervalMs > 0 {
		cfg.MonitorConfig.CheckInterval = time.Duration(cfg.MonitorConfig.CheckIntervalMs) * time.Millisecond
	}

	return cfg, nil
}

// SaveGlobalConfig writes the configuration to a file, format chosen by extension.
func SaveGlobalConfig(cfg *GlobalConfig, filePath string) error {
	if cfg == nil {
		return common.NewValidationError("config", cfg, "config cannot be nil")
	}

	var data []byte
	var err error
	if isYAMLFile(filepath.Ext(filePath)) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return common.WrapError(err, "failed to marshal config")
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return common.WrapError(err, "failed to create config directory")
	}
	return os.WriteFile(filePath, data, 0644)
}

// MarshalSnapshot renders the active configuration as compact JSON for
// session records.
func (c *GlobalConfig) MarshalSnapshot() (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", common.WrapError(err, "failed to marshal config snapshot")
	}
	return string(data), nil
}

func parseConfigContent(data []byte, filePath string, cfg *GlobalConfig) error {
	if isYAMLFile(filepath.Ext(filePath)) {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return common.NewError("failed to unmarshal YAML from '%s': %w", filePath, err)
		}
		return nil
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return common.NewError("failed to unmarshal JSON from '%s': %w", filePath, err)
	}
	return nil
}

func isYAMLFile(ext string) bool {
	return ext == ".yaml" || ext == ".yml"
}
