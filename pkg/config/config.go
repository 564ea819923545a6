// Copyright 2026 CICD AI Toolkit. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package config loads the cicd-status configuration file.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/cicd-ai-toolkit/cicd-status/pkg/auth"
)

// Config is the top-level configuration.
type Config struct {
	GitHub GitHubConfig `yaml:"github"`
	HTTP   HTTPConfig   `yaml:"http"`
	Retry  RetryConfig  `yaml:"retry"`
	Log    LogConfig    `yaml:"log"`
}

// GitHubConfig describes the remote repository and how to authenticate.
// Secrets are never stored in the file; TokenEnv and PasswordEnv name the
// environment variables holding them.
type GitHubConfig struct {
	Host          string `yaml:"host"`
	AuthType      string `yaml:"auth_type"`
	Username      string `yaml:"username"`
	TokenEnv      string `yaml:"token_env"`
	PasswordEnv   string `yaml:"password_env"`
	Owner         string `yaml:"owner"`
	Repo          string `yaml:"repo"`
	StatusContext string `yaml:"status_context"`
}

// HTTPConfig tunes the API client.
type HTTPConfig struct {
	Timeout        time.Duration `yaml:"timeout"`
	SSRFProtection bool          `yaml:"ssrf_protection"`
}

// RetryConfig bounds status delivery retries.
type RetryConfig struct {
	MaxElapsed      time.Duration `yaml:"max_elapsed"`
	MaxRetries      uint64        `yaml:"max_retries"`
	InitialInterval time.Duration `yaml:"initial_interval"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// FeatureSettings flattens the GitHub section into the settings map read by
// auth.Resolve. Secrets are looked up from the environment at call time.
func (c *Config) FeatureSettings() map[string]string {
	g := c.GitHub
	settings := map[string]string{
		auth.KeyServerURL:       g.Host,
		auth.KeyAuthType:        g.AuthType,
		auth.KeyUsername:        g.Username,
		auth.KeyRepositoryOwner: g.Owner,
		auth.KeyRepositoryName:  g.Repo,
	}
	if g.TokenEnv != "" {
		settings[auth.KeyAccessToken] = strings.TrimSpace(os.Getenv(g.TokenEnv))
	}
	if g.PasswordEnv != "" {
		settings[auth.KeyPassword] = os.Getenv(g.PasswordEnv)
	}
	return settings
}
