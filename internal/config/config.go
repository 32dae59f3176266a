package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete taskguard configuration
type Config struct {
	Hooks       HooksConfig       `mapstructure:"hooks"`
	Git         GitConfig         `mapstructure:"git"`
	Validation  ValidationConfig  `mapstructure:"validation"`
	Integration IntegrationConfig `mapstructure:"integration"`
	PR          PRConfig          `mapstructure:"pr"`
	Generation  GenerationConfig  `mapstructure:"generation"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Paths       PathsConfig       `mapstructure:"paths"`
}

// HooksConfig controls which lifecycle hooks are enabled
type HooksConfig struct {
	// PlanCaptureEnabled controls whether approved plans are captured as tasks
	PlanCaptureEnabled bool `mapstructure:"plan_capture_enabled"`
	// SessionReviewEnabled controls whether session-pause reviews run
	SessionReviewEnabled bool `mapstructure:"session_review_enabled"`
	// CompletionEnabled controls whether task completion is handled
	CompletionEnabled bool `mapstructure:"completion_enabled"`
}

// GitConfig controls branch behavior
type GitConfig struct {
	// DefaultBranch overrides default-branch resolution ("" = auto-resolve)
	DefaultBranch string `mapstructure:"default_branch"`
	// BranchingEnabled controls whether plan capture opens a task branch
	BranchingEnabled bool `mapstructure:"branching_enabled"`
}

// ValidationConfig holds the validator command strings.
// Empty commands mean the check is not configured and is skipped.
type ValidationConfig struct {
	// Typecheck is the type-check command (e.g. "go vet ./...")
	Typecheck string `mapstructure:"typecheck"`
	// Lint is the lint command (e.g. "golangci-lint run")
	Lint string `mapstructure:"lint"`
	// Test is the test command (e.g. "go test ./...")
	Test string `mapstructure:"test"`
	// TimeoutSeconds bounds each check invocation
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// IntegrationConfig controls how completed branches are integrated
type IntegrationConfig struct {
	// Mode selects the integration path: "merge" or "pr"
	Mode string `mapstructure:"mode"`
	// AutoCreateIssue files a tracker issue when a plan is captured
	AutoCreateIssue bool `mapstructure:"auto_create_issue"`
	// AutoCreatePR creates the pull request after pushing the branch
	AutoCreatePR bool `mapstructure:"auto_create_pr"`
	// Repository is the tracker repository reference (e.g. "owner/repo")
	Repository string `mapstructure:"repository"`
}

// PRConfig controls pull request metadata
type PRConfig struct {
	// Draft creates PRs as drafts by default
	Draft bool `mapstructure:"draft"`
	// Labels to add to all PRs by default
	Labels []string `mapstructure:"labels"`
	// Reviewers configuration for automatic reviewer assignment
	Reviewers ReviewerConfig `mapstructure:"reviewers"`
}

// ReviewerConfig controls automatic reviewer assignment
type ReviewerConfig struct {
	// Default reviewers to always assign
	Default []string `mapstructure:"default"`
	// ByPath maps file path patterns to reviewers (glob patterns supported)
	ByPath map[string][]string `mapstructure:"by_path"`
}

// GenerationConfig controls the text-generation backend
type GenerationConfig struct {
	// ModelFast is used for low-stakes generation (branch names, commit messages)
	ModelFast string `mapstructure:"model_fast"`
	// ModelQuality is used for plan expansion and session classification
	ModelQuality string `mapstructure:"model_quality"`
	// TimeoutSeconds bounds each generation request
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	// Enabled controls whether file logging is active
	Enabled bool `mapstructure:"enabled"`
	// Level is the minimum log level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Dir is the directory for log files ("" = stderr)
	Dir string `mapstructure:"dir"`
	// MaxSizeMB is the log rotation threshold
	MaxSizeMB int `mapstructure:"max_size_mb"`
}

// PathsConfig controls where taskguard keeps its documents
type PathsConfig struct {
	// TaskguardDir is the per-repo directory for task documents
	TaskguardDir string `mapstructure:"taskguard_dir"`
}

// Integration modes
const (
	IntegrationMerge = "merge"
	IntegrationPR    = "pr"
)

// Default returns a Config with all default values
func Default() *Config {
	return &Config{
		Hooks: HooksConfig{
			PlanCaptureEnabled:   true,
			SessionReviewEnabled: true,
			CompletionEnabled:    true,
		},
		Git: GitConfig{
			DefaultBranch:    "",
			BranchingEnabled: true,
		},
		Validation: ValidationConfig{
			TimeoutSeconds: 120,
		},
		Integration: IntegrationConfig{
			Mode: IntegrationMerge,
		},
		PR: PRConfig{
			Draft:  false,
			Labels: []string{},
			Reviewers: ReviewerConfig{
				Default: []string{},
				ByPath:  map[string][]string{},
			},
		},
		Generation: GenerationConfig{
			ModelFast:      "claude-3-5-haiku-latest",
			ModelQuality:   "claude-sonnet-4-20250514",
			TimeoutSeconds: 30,
		},
		Logging: LoggingConfig{
			Enabled:   true,
			Level:     "info",
			Dir:       "",
			MaxSizeMB: 10,
		},
		Paths: PathsConfig{
			TaskguardDir: ".taskguard",
		},
	}
}

// ValidationTimeout returns the validator timeout as a duration
func (v *ValidationConfig) ValidationTimeout() time.Duration {
	if v.TimeoutSeconds <= 0 {
		return 120 * time.Second
	}
	return time.Duration(v.TimeoutSeconds) * time.Second
}

// GenerationTimeout returns the generation timeout as a duration
func (g *GenerationConfig) GenerationTimeout() time.Duration {
	if g.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("hooks.plan_capture_enabled", defaults.Hooks.PlanCaptureEnabled)
	viper.SetDefault("hooks.session_review_enabled", defaults.Hooks.SessionReviewEnabled)
	viper.SetDefault("hooks.completion_enabled", defaults.Hooks.CompletionEnabled)

	viper.SetDefault("git.default_branch", defaults.Git.DefaultBranch)
	viper.SetDefault("git.branching_enabled", defaults.Git.BranchingEnabled)

	viper.SetDefault("validation.typecheck", defaults.Validation.Typecheck)
	viper.SetDefault("validation.lint", defaults.Validation.Lint)
	viper.SetDefault("validation.test", defaults.Validation.Test)
	viper.SetDefault("validation.timeout_seconds", defaults.Validation.TimeoutSeconds)

	viper.SetDefault("integration.mode", defaults.Integration.Mode)
	viper.SetDefault("integration.auto_create_issue", defaults.Integration.AutoCreateIssue)
	viper.SetDefault("integration.auto_create_pr", defaults.Integration.AutoCreatePR)
	viper.SetDefault("integration.repository", defaults.Integration.Repository)

	viper.SetDefault("pr.draft", defaults.PR.Draft)
	viper.SetDefault("pr.labels", defaults.PR.Labels)
	viper.SetDefault("pr.reviewers.default", defaults.PR.Reviewers.Default)
	viper.SetDefault("pr.reviewers.by_path", defaults.PR.Reviewers.ByPath)

	viper.SetDefault("generation.model_fast", defaults.Generation.ModelFast)
	viper.SetDefault("generation.model_quality", defaults.Generation.ModelQuality)
	viper.SetDefault("generation.timeout_seconds", defaults.Generation.TimeoutSeconds)

	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)

	viper.SetDefault("paths.taskguard_dir", defaults.Paths.TaskguardDir)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "taskguard")
	}
	// Fall back to ~/.config/taskguard
	home, err := os.UserHomeDir()
	if err != nil {
		return ".taskguard"
	}
	return filepath.Join(home, ".config", "taskguard")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ValidIntegrationModes returns the list of valid integration mode values
func ValidIntegrationModes() []string {
	return []string{IntegrationMerge, IntegrationPR}
}

// IsValidIntegrationMode checks if the given mode is valid
func IsValidIntegrationMode(mode string) bool {
	for _, valid := range ValidIntegrationModes() {
		if mode == valid {
			return true
		}
	}
	return false
}
