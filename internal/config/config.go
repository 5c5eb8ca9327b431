// Package config provides configuration loading and management for the sync service.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/coursesync/sisu-moodle-sync/internal/telemetry"
)

// EnvPrefix is the prefix of every environment variable read by the service
const EnvPrefix = "SISU_MOODLE_SYNC"

const (
	// StorageTypeDatabase stores courses, locks and run state in PostgreSQL
	StorageTypeDatabase = "database"

	// StorageTypeMemory keeps courses and locks in process memory and run state in files
	StorageTypeMemory = "memory"
)

// Run types that can be scheduled
const (
	RunTypeFull   = "full"
	RunTypeUnlock = "unlock"
)

const (
	defaultWorkers    = 8
	defaultBatchSize  = 300
	defaultStatusPath = "./data/status"
	defaultCacheSize  = 10000
	defaultCacheTTL   = time.Hour
	defaultTimeout    = 30 * time.Second

	defaultMinimumRelease = "3.9"
)

var defaultLanguages = []string{"fi", "en", "sv"}

// action types accepted as threshold keys
var validActionTypes = map[string]bool{
	"add_enrollment":        true,
	"add_roles":             true,
	"remove_roles":          true,
	"suspend_enrollment":    true,
	"reactivate_enrollment": true,
}

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	Sisu      SisuConfig        `yaml:"sisu"`
	Identity  IdentityConfig    `yaml:"identity"`
	Moodle    MoodleConfig      `yaml:"moodle"`
	Sync      SyncConfig        `yaml:"sync"`
	Storage   string            `yaml:"storage,omitempty"`
	Database  *DatabaseConfig   `yaml:"database,omitempty"`
	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`

	// StatusPath is the directory for run status files when storage is "memory"
	StatusPath string `yaml:"statusPath,omitempty"`
}

// SisuConfig defines how the study registry is reached
type SisuConfig struct {
	// BaseURL is the base URL of the registry REST API
	BaseURL string `yaml:"baseURL"`

	// APIKeyFile is the path to a file containing the API key
	APIKeyFile string `yaml:"apiKeyFile,omitempty"`

	// Timeout is the request timeout (e.g., "30s")
	Timeout string `yaml:"timeout,omitempty"`
}

// IdentityConfig defines the identity lookup service
type IdentityConfig struct {
	BaseURL string `yaml:"baseURL"`
	Timeout string `yaml:"timeout,omitempty"`

	// CacheSize is the number of resolved accounts kept in memory
	CacheSize int `yaml:"cacheSize,omitempty"`

	// CacheTTL is how long a resolved account is trusted (e.g., "1h")
	CacheTTL string `yaml:"cacheTTL,omitempty"`
}

// MoodleConfig defines the Moodle web service connection
type MoodleConfig struct {
	// BaseURL is the Moodle site root, e.g. "https://moodle.example.org"
	BaseURL string `yaml:"baseURL"`

	// TokenFile is the path to a file containing the web service token
	TokenFile string `yaml:"tokenFile,omitempty"`

	Timeout string `yaml:"timeout,omitempty"`

	Roles RolesConfig `yaml:"roles"`

	// CategoryID is the course category new courses are created in
	CategoryID int64 `yaml:"categoryID,omitempty"`

	// ServiceLanguage is the language the service account normally uses
	ServiceLanguage string `yaml:"serviceLanguage,omitempty"`

	// MinimumRelease is the oldest Moodle release reported ready (e.g., "3.9")
	MinimumRelease string `yaml:"minimumRelease,omitempty"`
}

// RolesConfig holds the Moodle role ids the engine manages
type RolesConfig struct {
	Student int64 `yaml:"student"`
	Teacher int64 `yaml:"teacher"`
	Synced  int64 `yaml:"synced"`
}

// SyncConfig defines the reconciliation behaviour
type SyncConfig struct {
	// Workers bounds how many courses are processed in parallel
	Workers int `yaml:"workers,omitempty"`

	// BatchSize bounds how many enrolments go into one bulk call
	BatchSize int `yaml:"batchSize,omitempty"`

	// CourseEndedAfter is how long after its end date a course counts as ended
	CourseEndedAfter string `yaml:"courseEndedAfter,omitempty"`

	// Groups enables group synchronization as part of every course sync
	Groups bool `yaml:"groups,omitempty"`

	// Languages is the preference order for localized names
	Languages []string `yaml:"languages,omitempty"`

	Schedules  []ScheduleConfig           `yaml:"schedules,omitempty"`
	Thresholds map[string]ThresholdConfig `yaml:"thresholds,omitempty"`
}

// ScheduleConfig defines a periodically executed run
type ScheduleConfig struct {
	Type     string `yaml:"type"`
	Interval string `yaml:"interval"`
}

// ThresholdConfig limits one action type per course run
type ThresholdConfig struct {
	// Limit rejects the action when it would touch this many users or more
	Limit *int `yaml:"limit,omitempty"`

	// PreventAll rejects the action when it would touch every user of a course
	// and there are at least this many users
	PreventAll *int `yaml:"preventAll,omitempty"`
}

// DatabaseConfig defines database connection settings
type DatabaseConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	User string `yaml:"user"`

	// PasswordFile is the path to a file containing the database password
	PasswordFile string `yaml:"passwordFile,omitempty"`

	Database string `yaml:"database"`

	// SSLMode is the SSL mode for the connection (disable, require, verify-ca, verify-full)
	SSLMode string `yaml:"sslMode,omitempty"`

	MaxOpenConns    int32  `yaml:"maxOpenConns,omitempty"`
	ConnMaxLifetime string `yaml:"connMaxLifetime,omitempty"`
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate reports every invalid or missing setting of the configuration
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	var errs []error
	if c.Sisu.BaseURL == "" {
		errs = append(errs, fmt.Errorf("sisu.baseURL is required"))
	}
	if c.Identity.BaseURL == "" {
		errs = append(errs, fmt.Errorf("identity.baseURL is required"))
	}
	if c.Moodle.BaseURL == "" {
		errs = append(errs, fmt.Errorf("moodle.baseURL is required"))
	}
	if c.Moodle.MinimumRelease != "" {
		if _, err := semver.NewVersion(c.Moodle.MinimumRelease); err != nil {
			errs = append(errs, fmt.Errorf("moodle.minimumRelease must be a version: %w", err))
		}
	}
	if err := c.Moodle.Roles.validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Sync.validate(); err != nil {
		errs = append(errs, err)
	}

	switch c.GetStorageType() {
	case StorageTypeDatabase:
		if c.Database == nil {
			errs = append(errs, fmt.Errorf("database configuration is required when storage is %s", StorageTypeDatabase))
		}
	case StorageTypeMemory:
	default:
		errs = append(errs, fmt.Errorf("storage must be %s or %s, got %s",
			StorageTypeDatabase, StorageTypeMemory, c.Storage))
	}

	if err := c.Telemetry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("telemetry: %w", err))
	}

	return errors.Join(errs...)
}

func (r RolesConfig) validate() error {
	if r.Student == 0 || r.Teacher == 0 || r.Synced == 0 {
		return fmt.Errorf("moodle.roles.student, moodle.roles.teacher and moodle.roles.synced are required")
	}
	if r.Student == r.Teacher || r.Student == r.Synced || r.Teacher == r.Synced {
		return fmt.Errorf("moodle.roles must be distinct role ids")
	}
	return nil
}

func (s *SyncConfig) validate() error {
	if s.Workers < 0 {
		return fmt.Errorf("sync.workers must not be negative")
	}
	if s.BatchSize < 0 {
		return fmt.Errorf("sync.batchSize must not be negative")
	}
	if s.CourseEndedAfter != "" {
		if _, err := time.ParseDuration(s.CourseEndedAfter); err != nil {
			return fmt.Errorf("sync.courseEndedAfter must be a valid duration: %w", err)
		}
	}
	for i, sched := range s.Schedules {
		if sched.Type != RunTypeFull && sched.Type != RunTypeUnlock {
			return fmt.Errorf("sync.schedules[%d]: type must be %s or %s, got %q", i, RunTypeFull, RunTypeUnlock, sched.Type)
		}
		if _, err := time.ParseDuration(sched.Interval); err != nil {
			return fmt.Errorf("sync.schedules[%d]: interval must be a valid duration (e.g., '30m', '1h'): %w", i, err)
		}
	}
	for action, limit := range s.Thresholds {
		if !validActionTypes[action] {
			return fmt.Errorf("sync.thresholds: unknown action type %q", action)
		}
		if limit.Limit != nil && *limit.Limit < 1 {
			return fmt.Errorf("sync.thresholds.%s.limit must be positive", action)
		}
		if limit.PreventAll != nil && *limit.PreventAll < 1 {
			return fmt.Errorf("sync.thresholds.%s.preventAll must be positive", action)
		}
	}
	return nil
}

// GetStorageType returns the storage type, defaulting to memory
func (c *Config) GetStorageType() string {
	if c.Storage == "" {
		return StorageTypeMemory
	}
	return c.Storage
}

// GetStatusPath returns the run status directory used by file-backed state
func (c *Config) GetStatusPath() string {
	if c.StatusPath == "" {
		return defaultStatusPath
	}
	return c.StatusPath
}

// GetWorkers returns the worker pool size
func (s *SyncConfig) GetWorkers() int {
	if s.Workers == 0 {
		return defaultWorkers
	}
	return s.Workers
}

// GetBatchSize returns the bulk call batch size
func (s *SyncConfig) GetBatchSize() int {
	if s.BatchSize == 0 {
		return defaultBatchSize
	}
	return s.BatchSize
}

// GetCourseEndedAfter returns the grace period after a course end date
func (s *SyncConfig) GetCourseEndedAfter() time.Duration {
	d, err := time.ParseDuration(s.CourseEndedAfter)
	if err != nil {
		return 0
	}
	return d
}

// GetLanguages returns the localized name preference order
func (s *SyncConfig) GetLanguages() []string {
	if len(s.Languages) == 0 {
		return defaultLanguages
	}
	return s.Languages
}

// GetAPIKey returns the registry API key from APIKeyFile or the environment
func (s *SisuConfig) GetAPIKey() (string, error) {
	return readSecret(s.APIKeyFile, EnvPrefix+"_SISU_API_KEY", "sisu API key")
}

// GetTimeout returns the registry request timeout
func (s *SisuConfig) GetTimeout() time.Duration {
	return parseTimeout(s.Timeout)
}

// GetTimeout returns the identity request timeout
func (i *IdentityConfig) GetTimeout() time.Duration {
	return parseTimeout(i.Timeout)
}

// GetCacheSize returns the resolver cache size
func (i *IdentityConfig) GetCacheSize() int {
	if i.CacheSize <= 0 {
		return defaultCacheSize
	}
	return i.CacheSize
}

// GetCacheTTL returns the resolver cache entry lifetime
func (i *IdentityConfig) GetCacheTTL() time.Duration {
	d, err := time.ParseDuration(i.CacheTTL)
	if err != nil || d <= 0 {
		return defaultCacheTTL
	}
	return d
}

// GetToken returns the Moodle web service token from TokenFile or the environment
func (m *MoodleConfig) GetToken() (string, error) {
	return readSecret(m.TokenFile, EnvPrefix+"_MOODLE_TOKEN", "moodle token")
}

// GetTimeout returns the Moodle request timeout
func (m *MoodleConfig) GetTimeout() time.Duration {
	return parseTimeout(m.Timeout)
}

// GetServiceLanguage returns the language the service account is reset to
func (m *MoodleConfig) GetServiceLanguage() string {
	if m.ServiceLanguage == "" {
		return "en"
	}
	return m.ServiceLanguage
}

// GetMinimumRelease returns the oldest supported Moodle release
func (m *MoodleConfig) GetMinimumRelease() string {
	if m.MinimumRelease == "" {
		return defaultMinimumRelease
	}
	return m.MinimumRelease
}

// GetPassword returns the database password using the following priority:
// 1. Read from PasswordFile if specified
// 2. Read from SISU_MOODLE_SYNC_DATABASE_PASSWORD environment variable
func (d *DatabaseConfig) GetPassword() (string, error) {
	return readSecret(d.PasswordFile, EnvPrefix+"_DATABASE_PASSWORD", "database password")
}

// GetConnectionString builds a PostgreSQL connection string with proper password handling.
// The password is URL-escaped to handle special characters safely.
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}

	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User,
		url.QueryEscape(password),
		d.Host,
		d.Port,
		d.Database,
		sslMode,
	), nil
}

func readSecret(path, envVar, what string) (string, error) {
	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return "", fmt.Errorf("failed to read %s from file %s: %w", what, path, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if v := os.Getenv(envVar); v != "" {
		return v, nil
	}

	return "", fmt.Errorf("no %s configured: set a file path or the %s environment variable", what, envVar)
}

func parseTimeout(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultTimeout
	}
	return d
}
