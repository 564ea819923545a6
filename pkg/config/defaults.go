// Copyright 2026 CICD AI Toolkit. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package config

import (
	"time"

	"github.com/cicd-ai-toolkit/cicd-status/pkg/auth"
	"github.com/cicd-ai-toolkit/cicd-status/pkg/platform"
)

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		GitHub: DefaultGitHubConfig(),
		HTTP: HTTPConfig{
			Timeout: platform.DefaultTimeout,
		},
		Retry: RetryConfig{
			MaxElapsed:      2 * time.Minute,
			MaxRetries:      5,
			InitialInterval: 500 * time.Millisecond,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// DefaultGitHubConfig returns the default GitHub section.
func DefaultGitHubConfig() GitHubConfig {
	return GitHubConfig{
		Host:          "https://api.github.com",
		AuthType:      string(auth.TokenAuth),
		TokenEnv:      "GITHUB_TOKEN",
		PasswordEnv:   "GITHUB_PASSWORD",
		StatusContext: platform.DefaultStatusContext,
	}
}

// applyDefaults fills zero values left by a partial file.
func applyDefaults(cfg *Config) {
	def := DefaultConfig()

	if cfg.GitHub.Host == "" {
		cfg.GitHub.Host = def.GitHub.Host
	}
	if cfg.GitHub.AuthType == "" {
		cfg.GitHub.AuthType = def.GitHub.AuthType
	}
	if cfg.GitHub.TokenEnv == "" {
		cfg.GitHub.TokenEnv = def.GitHub.TokenEnv
	}
	if cfg.GitHub.PasswordEnv == "" {
		cfg.GitHub.PasswordEnv = def.GitHub.PasswordEnv
	}
	if cfg.GitHub.StatusContext == "" {
		cfg.GitHub.StatusContext = def.GitHub.StatusContext
	}

	if cfg.HTTP.Timeout == 0 {
		cfg.HTTP.Timeout = def.HTTP.Timeout
	}

	if cfg.Retry.MaxElapsed == 0 {
		cfg.Retry.MaxElapsed = def.Retry.MaxElapsed
	}
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry.MaxRetries = def.Retry.MaxRetries
	}
	if cfg.Retry.InitialInterval == 0 {
		cfg.Retry.InitialInterval = def.Retry.InitialInterval
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}
}
