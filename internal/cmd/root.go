// Package cmd implements the taskguard CLI surface. Each subcommand is a
// short-lived invocation triggered by an external event source (an editor
// hook, a session-pause hook, or the user); all coordination state lives in
// git and in the task documents, never in the process.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/taskguard/taskguard/internal/config"
	"github.com/taskguard/taskguard/internal/gen"
	"github.com/taskguard/taskguard/internal/gitx"
	"github.com/taskguard/taskguard/internal/issue"
	"github.com/taskguard/taskguard/internal/logging"
	"github.com/taskguard/taskguard/internal/task"
)

var rootCmd = &cobra.Command{
	Use:   "taskguard",
	Short: "Task and session lifecycle guard for AI-assisted coding",
	Long: `Taskguard keeps AI-assisted coding sessions honest. It captures an
approved plan as a durable task record, reviews each paused session
against that task and checkpoints the work as WIP commits, and on
completion validates, squashes the session history, and integrates
the branch.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/taskguard/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/taskguard")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("TASKGUARD")
	// Replace dots with underscores for nested keys in env vars
	// e.g., TASKGUARD_INTEGRATION_MODE for integration.mode
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// app bundles the collaborators every subcommand needs, built once per
// invocation from config and the working directory.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	store     *task.Store
	inspector *gitx.Inspector
	branches  *gitx.BranchManager
	client    gen.Client
	issues    *issue.Service
}

func buildApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logDir := ""
	if cfg.Logging.Enabled {
		logDir = cfg.Logging.Dir
	}
	logger, err := logging.NewLogger(logDir, cfg.Logging.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: 3,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}

	inspector := gitx.NewInspector(cwd)
	if cfg.Git.DefaultBranch != "" {
		inspector.SetDefaultBranchOverride(cfg.Git.DefaultBranch)
	}

	// Generation stays best-effort: without an API key every caller falls
	// back to its deterministic path instead of failing the invocation.
	var client gen.Client
	client, err = gen.NewAnthropicClient(
		gen.WithFastModel(cfg.Generation.ModelFast),
		gen.WithQualityModel(cfg.Generation.ModelQuality),
		gen.WithTimeout(cfg.Generation.GenerationTimeout()),
	)
	if err != nil {
		logger.Warn("generation backend unavailable", "error", err.Error())
		client = &gen.UnavailableClient{Reason: err.Error()}
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		store:     task.NewStore(filepath.Join(cwd, cfg.Paths.TaskguardDir)),
		inspector: inspector,
		branches:  gitx.NewBranchManager(cwd),
		client:    client,
		issues:    issue.NewService(logger),
	}, nil
}

func (a *app) close() {
	if a.logger != nil {
		_ = a.logger.Close()
	}
}
