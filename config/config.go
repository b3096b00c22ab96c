package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/nomis52/dinamicisland/logging"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override,
// e.g. DINAMICISLAND_PROJECT_BUNDLE_IDENTIFIER. Multi-word fields are split
// on word boundaries.
const EnvPrefix = "DINAMICISLAND"

const (
	defaultIOSDir          = "ios"
	defaultScaffoldTimeout = 2 * time.Minute

	defaultNotificationUsage = "This app uses notifications to show live activities on your Dynamic Island and lock screen."

	defaultMetricsPrefix = "dinamicisland"
	defaultJobName       = "dinamicisland"
	defaultPushTimeout   = 10 * time.Second
)

// Config represents the complete application configuration.
type Config struct {
	Project    ProjectConfig    `yaml:"project"`
	Scaffold   ScaffoldConfig   `yaml:"scaffold"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    logging.Config   `yaml:"logging"`
}

// ProjectConfig locates the host application project.
type ProjectConfig struct {
	// Root is the application root containing the native project directory.
	Root string `yaml:"root"`

	// IOSDir is the native project directory, relative to Root.
	IOSDir string `yaml:"ios_dir" split_words:"true"`

	// XcodeProject optionally names the .xcodeproj inside IOSDir. When empty
	// the directory must contain exactly one.
	XcodeProject string `yaml:"xcodeproj" split_words:"true"`

	// BundleIdentifier overrides the host application's bundle identifier.
	// When empty it is read from the main target's build settings.
	BundleIdentifier string `yaml:"bundle_identifier" split_words:"true"`

	// InfoPlist and Entitlements override the host's file locations, relative to IOSDir.
	InfoPlist    string `yaml:"info_plist" split_words:"true"`
	Entitlements string `yaml:"entitlements"`
}

// ScaffoldConfig controls which scaffolding phases run.
type ScaffoldConfig struct {
	// EnableLiveActivities declares the push and Live Activity entitlements
	// and the host Info.plist keys. Defaults to true.
	EnableLiveActivities *bool `yaml:"enable_live_activities" split_words:"true"`

	// AutoScaffold provisions the widget extension target. Defaults to true.
	AutoScaffold *bool `yaml:"auto_scaffold" split_words:"true"`

	// TemplatesDir replaces the embedded Swift templates with an on-disk bundle.
	TemplatesDir string `yaml:"templates_dir" split_words:"true"`

	// NotificationUsageDescription is written to the host Info.plist when absent.
	NotificationUsageDescription string `yaml:"notification_usage_description" split_words:"true"`

	// Timeout bounds a whole scaffold run.
	Timeout time.Duration `yaml:"timeout"`
}

// LiveActivitiesEnabled reports the effective enable_live_activities value.
func (s ScaffoldConfig) LiveActivitiesEnabled() bool {
	return s.EnableLiveActivities == nil || *s.EnableLiveActivities
}

// AutoScaffoldEnabled reports the effective auto_scaffold value.
func (s ScaffoldConfig) AutoScaffoldEnabled() bool {
	return s.AutoScaffold == nil || *s.AutoScaffold
}

// MonitoringConfig holds metrics push settings. Metrics are only pushed
// when URL is set.
type MonitoringConfig struct {
	URL           string        `yaml:"url"`
	MetricsPrefix string        `yaml:"metrics_prefix" split_words:"true"`
	JobName       string        `yaml:"jobname" split_words:"true"`
	Timeout       time.Duration `yaml:"timeout"`
}

// IOSPath returns the absolute-or-relative path of the native project directory.
func (p ProjectConfig) IOSPath() string {
	return filepath.Join(p.Root, p.IOSDir)
}

// Validate performs basic validation on the configuration.
func (c *Config) Validate() error {
	if c.Project.Root == "" {
		return errors.New("project root is required")
	}
	if filepath.IsAbs(c.Project.IOSDir) {
		return fmt.Errorf("project ios_dir %q must be relative to the project root", c.Project.IOSDir)
	}
	if c.Project.XcodeProject != "" && filepath.Ext(c.Project.XcodeProject) != ".xcodeproj" {
		return fmt.Errorf("project xcodeproj %q must end in .xcodeproj", c.Project.XcodeProject)
	}
	if id := c.Project.BundleIdentifier; id != "" {
		if strings.ContainsAny(id, " \t\n/") || strings.HasPrefix(id, ".") || strings.HasSuffix(id, ".") {
			return fmt.Errorf("project bundle_identifier %q is not a valid bundle identifier", id)
		}
	}
	if c.Scaffold.Timeout <= 0 {
		return errors.New("scaffold timeout must be positive")
	}
	if c.Monitoring.URL != "" {
		u, err := url.Parse(c.Monitoring.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("monitoring url %q is not an absolute URL", c.Monitoring.URL)
		}
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

// SetDefaults sets reasonable default values for optional fields.
func (c *Config) SetDefaults() {
	if c.Project.Root == "" {
		c.Project.Root = "."
	}
	if c.Project.IOSDir == "" {
		c.Project.IOSDir = defaultIOSDir
	}
	if c.Scaffold.EnableLiveActivities == nil {
		c.Scaffold.EnableLiveActivities = boolPtr(true)
	}
	if c.Scaffold.AutoScaffold == nil {
		c.Scaffold.AutoScaffold = boolPtr(true)
	}
	if c.Scaffold.NotificationUsageDescription == "" {
		c.Scaffold.NotificationUsageDescription = defaultNotificationUsage
	}
	if c.Scaffold.Timeout == 0 {
		c.Scaffold.Timeout = defaultScaffoldTimeout
	}
	if c.Monitoring.MetricsPrefix == "" {
		c.Monitoring.MetricsPrefix = defaultMetricsPrefix
	}
	if c.Monitoring.JobName == "" {
		c.Monitoring.JobName = defaultJobName
	}
	if c.Monitoring.Timeout == 0 {
		c.Monitoring.Timeout = defaultPushTimeout
	}
	c.Logging.SetDefaults()
}

// LoadConfig reads the YAML config file at path, applies environment
// overrides, fills defaults and validates the result. An empty path skips
// the file so the CLI can run from flags and environment alone.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		defer f.Close()
		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return cfg, fmt.Errorf("decoding %s: %w", path, err)
		}
	}
	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overlays DINAMICISLAND_* environment variables onto cfg.
// Variables that are not set leave the existing value untouched.
func ApplyEnv(cfg *Config) error {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return fmt.Errorf("environment overrides: %w", err)
	}
	return nil
}

func boolPtr(b bool) *bool {
	return &b
}
