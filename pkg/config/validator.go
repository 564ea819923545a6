// Copyright 2026 CICD AI Toolkit. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/cicd-ai-toolkit/cicd-status/pkg/auth"
)

// Validator validates configuration.
type Validator struct{}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates a configuration.
func (v *Validator) Validate(cfg *Config) error {
	if err := v.ValidateGitHub(&cfg.GitHub); err != nil {
		return err
	}
	if err := v.ValidateHTTP(&cfg.HTTP); err != nil {
		return err
	}
	if err := v.ValidateRetry(&cfg.Retry); err != nil {
		return err
	}
	return v.ValidateLog(&cfg.Log)
}

// ValidateGitHub validates the GitHub section. Owner and repo may be left
// empty here and supplied on the command line.
func (v *Validator) ValidateGitHub(cfg *GitHubConfig) error {
	u, err := url.Parse(cfg.Host)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ValidationError{
			Field:   "github.host",
			Value:   cfg.Host,
			Message: "must be an http(s) URL",
		}
	}

	authType, ok := auth.ParseAuthType(cfg.AuthType)
	if !ok {
		return &ValidationError{
			Field:   "github.auth_type",
			Value:   cfg.AuthType,
			Message: fmt.Sprintf("must be one of: %s, %s", auth.PasswordAuth, auth.TokenAuth),
		}
	}
	if authType == auth.PasswordAuth && cfg.Username == "" {
		return &ValidationError{
			Field:   "github.username",
			Message: "must be set for password authentication",
		}
	}
	return nil
}

// ValidateHTTP validates the HTTP section.
func (v *Validator) ValidateHTTP(cfg *HTTPConfig) error {
	if cfg.Timeout < 0 {
		return &ValidationError{
			Field:   "http.timeout",
			Value:   cfg.Timeout,
			Message: "must be positive",
		}
	}
	return nil
}

// ValidateRetry validates the retry section.
func (v *Validator) ValidateRetry(cfg *RetryConfig) error {
	if cfg.MaxElapsed < 0 {
		return &ValidationError{
			Field:   "retry.max_elapsed",
			Value:   cfg.MaxElapsed,
			Message: "must be non-negative",
		}
	}
	if cfg.InitialInterval < 0 {
		return &ValidationError{
			Field:   "retry.initial_interval",
			Value:   cfg.InitialInterval,
			Message: "must be non-negative",
		}
	}
	return nil
}

// ValidateLog validates the log section.
func (v *Validator) ValidateLog(cfg *LogConfig) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	if !containsFold(validLevels, cfg.Level) {
		return &ValidationError{
			Field:   "log.level",
			Value:   cfg.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(validLevels, ", ")),
		}
	}

	validFormats := []string{"console", "json"}
	if !containsFold(validFormats, cfg.Format) {
		return &ValidationError{
			Field:   "log.format",
			Value:   cfg.Format,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(validFormats, ", ")),
		}
	}
	return nil
}

func containsFold(values []string, s string) bool {
	for _, v := range values {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation error for %s: %s (got: %v)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("validation error for %s: %s", e.Field, e.Message)
}
