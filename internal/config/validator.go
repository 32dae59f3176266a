package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "validation.timeout_seconds")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateValidation()...)
	errors = append(errors, c.validateIntegration()...)
	errors = append(errors, c.validateGeneration()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validatePaths()...)

	return errors
}

func (c *Config) validateValidation() []ValidationError {
	var errors []ValidationError

	if c.Validation.TimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "validation.timeout_seconds",
			Value:   c.Validation.TimeoutSeconds,
			Message: "must be non-negative",
		})
	}

	return errors
}

func (c *Config) validateIntegration() []ValidationError {
	var errors []ValidationError

	if c.Integration.Mode != "" && !IsValidIntegrationMode(c.Integration.Mode) {
		errors = append(errors, ValidationError{
			Field:   "integration.mode",
			Value:   c.Integration.Mode,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidIntegrationModes(), ", ")),
		})
	}

	if c.Integration.AutoCreatePR && c.Integration.Mode != IntegrationPR {
		errors = append(errors, ValidationError{
			Field:   "integration.auto_create_pr",
			Value:   c.Integration.AutoCreatePR,
			Message: "requires integration.mode to be \"pr\"",
		})
	}

	if c.Integration.Repository != "" && !strings.Contains(c.Integration.Repository, "/") {
		errors = append(errors, ValidationError{
			Field:   "integration.repository",
			Value:   c.Integration.Repository,
			Message: "must be in owner/repo form",
		})
	}

	return errors
}

func (c *Config) validateGeneration() []ValidationError {
	var errors []ValidationError

	if c.Generation.TimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "generation.timeout_seconds",
			Value:   c.Generation.TimeoutSeconds,
			Message: "must be non-negative",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be non-negative",
		})
	}

	return errors
}

func (c *Config) validatePaths() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Paths.TaskguardDir) == "" {
		errors = append(errors, ValidationError{
			Field:   "paths.taskguard_dir",
			Value:   c.Paths.TaskguardDir,
			Message: "must not be empty",
		})
	}

	return errors
}
