// Copyright 2026 CICD AI Toolkit. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");

package main

import (
	"github.com/cicd-ai-toolkit/cicd-status/pkg/auth"
	"github.com/cicd-ai-toolkit/cicd-status/pkg/config"
	"github.com/cicd-ai-toolkit/cicd-status/pkg/errors"
	"github.com/cicd-ai-toolkit/cicd-status/pkg/observability"
	"github.com/cicd-ai-toolkit/cicd-status/pkg/platform"
	"github.com/cicd-ai-toolkit/cicd-status/pkg/version"
	"github.com/spf13/cobra"
)

// app holds state shared by every subcommand once the root has loaded the
// configuration.
type app struct {
	configPath string
	logLevel   string
	logFormat  string
	owner      string
	repo       string

	cfg     *config.Config
	logger  observability.Logger
	metrics *observability.Metrics
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "cicd-status",
		Short: "Pull request branch resolution and commit status reporting",
		Long: `cicd-status connects a CI server to GitHub.

It resolves the destination branch of pull request builds and reports
build outcomes as commit statuses.`,
		Version:       version.FullString(),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.metrics.Log(a.logger)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Path to configuration file (default: search for .cicd-status.yaml)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "", "Log format: console, json")
	flags.StringVar(&a.owner, "owner", "", "Repository owner (overrides github.owner)")
	flags.StringVar(&a.repo, "repo", "", "Repository name (overrides github.repo)")

	rootCmd.AddCommand(
		newResolveCmd(a),
		newStatusCmd(a),
		newParentsCmd(a),
		newInjectCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

// load reads the configuration and applies flag overrides.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.NewLoader().WithPath(a.configPath).Load()
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if a.owner != "" {
		cfg.GitHub.Owner = a.owner
	}
	if a.repo != "" {
		cfg.GitHub.Repo = a.repo
	}
	if err := config.NewValidator().ValidateLog(&cfg.Log); err != nil {
		return err
	}

	a.cfg = cfg
	a.metrics = observability.NewMetrics()
	a.logger = observability.New(observability.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Writer: cmd.ErrOrStderr(),
	})
	return nil
}

// clientOptions are the API client options derived from the configuration.
func (a *app) clientOptions() []platform.Option {
	return []platform.Option{
		platform.WithTimeout(a.cfg.HTTP.Timeout),
		platform.WithLogger(a.logger),
		platform.WithStatusContext(a.cfg.GitHub.StatusContext),
		platform.WithSSRFProtection(a.cfg.HTTP.SSRFProtection),
		platform.WithMetrics(a.metrics),
	}
}

// commitSHA returns sha, or the commit the surrounding CI build runs on.
func commitSHA(sha string) (string, error) {
	if sha != "" {
		return sha, nil
	}
	env := platform.DetectBuildEnv()
	if env.CommitSHA == "" {
		return "", errors.ValidationError("--sha is required outside a supported CI build", nil).
			WithContext("ci", env.Name)
	}
	return env.CommitSHA, nil
}

// client opens the API client and returns the target repository.
func (a *app) client() (*platform.GitHubClient, string, string, error) {
	settings := a.cfg.FeatureSettings()

	creds, err := auth.Resolve(settings)
	if err != nil {
		return nil, "", "", err
	}
	owner, repo, err := auth.Repository(settings)
	if err != nil {
		return nil, "", "", err
	}

	client, err := platform.NewGitHubClient(creds, a.clientOptions()...)
	if err != nil {
		return nil, "", "", err
	}
	return client, owner, repo, nil
}
