// Copyright 2026 CICD AI Toolkit. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package auth maps feature settings onto connection credentials for the
// remote code-review service.
package auth

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/cicd-ai-toolkit/cicd-status/pkg/errors"
	"github.com/go-playground/validator/v10"
)

// Feature setting keys.
const (
	KeyServerURL       = "github_host"
	KeyAuthType        = "github_auth_type"
	KeyUsername        = "github_username"
	KeyPassword        = "secure:github_password"
	KeyAccessToken     = "secure:github_access_token"
	KeyRepositoryOwner = "github_owner"
	KeyRepositoryName  = "github_repo"
)

// AuthType selects how requests are authenticated.
type AuthType string

const (
	PasswordAuth AuthType = "PASSWORD_AUTH"
	TokenAuth    AuthType = "TOKEN_AUTH"
)

// ParseAuthType accepts exactly PASSWORD_AUTH or TOKEN_AUTH.
func ParseAuthType(s string) (AuthType, bool) {
	switch s {
	case string(PasswordAuth):
		return PasswordAuth, true
	case string(TokenAuth):
		return TokenAuth, true
	default:
		return "", false
	}
}

// Method is one of Password or Token.
type Method interface {
	apply(req *http.Request)
	authType() AuthType
}

// Password authenticates with HTTP basic auth.
type Password struct {
	Username string
	Password string
}

func (p Password) apply(req *http.Request) { req.SetBasicAuth(p.Username, p.Password) }
func (Password) authType() AuthType        { return PasswordAuth }

// Token authenticates with a bearer token.
type Token struct {
	Token string
}

func (t Token) apply(req *http.Request) { req.Header.Set("Authorization", "Bearer "+t.Token) }
func (Token) authType() AuthType        { return TokenAuth }

// Credentials are resolved once from settings and never mutated.
type Credentials struct {
	ServerURL string
	Method    Method
}

// Type reports the active authentication mode.
func (c *Credentials) Type() AuthType {
	return c.Method.authType()
}

// Apply sets the authentication header on req.
func (c *Credentials) Apply(req *http.Request) {
	c.Method.apply(req)
}

// FeatureSettings is the validated view of the settings map.
type FeatureSettings struct {
	ServerURL string `validate:"required"`
	AuthType  string `validate:"required,oneof=PASSWORD_AUTH TOKEN_AUTH"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func settingsValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Resolve produces credentials from a feature settings map.
func Resolve(settings map[string]string) (*Credentials, error) {
	fs := FeatureSettings{
		ServerURL: strings.TrimSpace(settings[KeyServerURL]),
		AuthType:  settings[KeyAuthType],
	}

	if err := settingsValidator().Struct(fs); err != nil {
		return nil, settingsError(err, settings[KeyAuthType])
	}

	authType, _ := ParseAuthType(fs.AuthType)
	switch authType {
	case PasswordAuth:
		return &Credentials{
			ServerURL: fs.ServerURL,
			Method: Password{
				Username: settings[KeyUsername],
				Password: settings[KeyPassword],
			},
		}, nil
	case TokenAuth:
		return &Credentials{
			ServerURL: fs.ServerURL,
			Method:    Token{Token: settings[KeyAccessToken]},
		}, nil
	default:
		return nil, errors.ConfigError(fmt.Sprintf("unparseable authentication type: %q", settings[KeyAuthType]), nil)
	}
}

// settingsError turns the first validator failure into a ConfigurationError.
func settingsError(err error, rawAuthType string) error {
	var verrs validator.ValidationErrors
	if !asValidationErrors(err, &verrs) || len(verrs) == 0 {
		return errors.ConfigError("invalid feature settings", err)
	}

	switch verrs[0].Field() {
	case "ServerURL":
		return errors.ConfigError("failed to read server URL from the feature settings", nil).
			WithContext("key", KeyServerURL)
	default:
		return errors.ConfigError(fmt.Sprintf("unparseable authentication type: %q", rawAuthType), nil).
			WithContext("key", KeyAuthType)
	}
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors)
	if ok {
		*target = verrs
	}
	return ok
}

// Repository returns the owner and repository name from settings.
func Repository(settings map[string]string) (owner, repo string, err error) {
	owner = strings.TrimSpace(settings[KeyRepositoryOwner])
	repo = strings.TrimSpace(settings[KeyRepositoryName])
	if owner == "" || repo == "" {
		return "", "", errors.ConfigError("repository owner and name must be set", nil).
			WithContext("owner", owner).
			WithContext("repo", repo)
	}
	return owner, repo, nil
}
