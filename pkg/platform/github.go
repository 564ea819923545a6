// Copyright 2026 CICD AI Toolkit. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");

package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/cicd-ai-toolkit/cicd-status/pkg/auth"
	"github.com/cicd-ai-toolkit/cicd-status/pkg/errors"
	"github.com/cicd-ai-toolkit/cicd-status/pkg/observability"
	"github.com/cicd-ai-toolkit/cicd-status/pkg/version"
	"github.com/google/uuid"
)

const (
	// DefaultTimeout bounds every request made by the client.
	DefaultTimeout = 30 * time.Second
	// DefaultStatusContext labels statuses posted by this toolkit.
	DefaultStatusContext = "continuous-integration/cicd-status"
	// maxDescriptionLength is the API limit for status descriptions.
	maxDescriptionLength = 140
	// maxErrorBody caps how much of a failed response is kept on the error.
	maxErrorBody = 4096
)

var _ API = (*GitHubClient)(nil)

// GitHubClient talks to the GitHub REST API (github.com or Enterprise).
// Each call is a single blocking attempt; retries belong to the caller.
type GitHubClient struct {
	creds         *auth.Credentials
	paths         Paths
	client        *http.Client
	logger        observability.Logger
	userAgent     string
	statusContext string
	blockPrivate  bool
	metrics       *observability.Metrics
}

// Option configures a GitHubClient.
type Option func(*GitHubClient)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *GitHubClient) { g.client = c }
}

// WithTimeout sets the per-request transport timeout. The HTTP client is
// copied first, so a shared client such as http.DefaultClient is untouched.
func WithTimeout(d time.Duration) Option {
	return func(g *GitHubClient) {
		if d > 0 {
			c := *g.client
			c.Timeout = d
			g.client = &c
		}
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l observability.Logger) Option {
	return func(g *GitHubClient) { g.logger = l }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(g *GitHubClient) { g.userAgent = ua }
}

// WithStatusContext overrides the context label of posted statuses.
func WithStatusContext(c string) Option {
	return func(g *GitHubClient) {
		if c != "" {
			g.statusContext = c
		}
	}
}

// WithMetrics counts requests per operation and status code.
func WithMetrics(m *observability.Metrics) Option {
	return func(g *GitHubClient) { g.metrics = m }
}

// WithSSRFProtection rejects API hosts on private networks.
func WithSSRFProtection(enabled bool) Option {
	return func(g *GitHubClient) { g.blockPrivate = enabled }
}

// NewGitHubClient creates a client for the server named in creds.
func NewGitHubClient(creds *auth.Credentials, opts ...Option) (*GitHubClient, error) {
	if creds == nil || creds.ServerURL == "" {
		return nil, errors.ConfigError("server URL is required", nil)
	}
	if creds.Method == nil {
		return nil, errors.ConfigError("authentication method is required", nil).
			WithContext("url", creds.ServerURL)
	}

	g := &GitHubClient{
		creds:         creds,
		paths:         NewPaths(creds.ServerURL),
		client:        &http.Client{Timeout: DefaultTimeout},
		logger:        observability.Nop(),
		userAgent:     version.UserAgent(),
		statusContext: DefaultStatusContext,
	}
	for _, opt := range opts {
		opt(g)
	}

	if err := validateBaseURL(g.paths.Base(), g.blockPrivate); err != nil {
		return nil, errors.ConfigError("invalid server URL", err).WithContext("url", creds.ServerURL)
	}

	return g, nil
}

// Name returns the platform name.
func (g *GitHubClient) Name() string {
	return "github"
}

// IsPullRequestMergeBranch reports whether ref is refs/pull/<n>/merge.
func (g *GitHubClient) IsPullRequestMergeBranch(ref string) bool {
	return IsPullRequestMergeBranch(ref)
}

type combinedStatus struct {
	State string `json:"state"`
	SHA   string `json:"sha"`
}

// ReadChangeStatus returns the combined status of a commit.
func (g *GitHubClient) ReadChangeStatus(ctx context.Context, owner, repo, sha string) (ChangeState, error) {
	if sha == "" {
		return "", errors.ValidationError("commit SHA cannot be empty", nil)
	}

	var result combinedStatus
	if err := g.getJSON(ctx, g.paths.CombinedStatus(owner, repo, sha), "read commit status", &result); err != nil {
		return "", err
	}

	state := ChangeState(result.State)
	if !state.Valid() {
		return "", errors.APIError(fmt.Sprintf("unexpected commit state %q", result.State), http.StatusOK, "")
	}
	return state, nil
}

type statusRequest struct {
	State       ChangeState `json:"state"`
	TargetURL   string      `json:"target_url,omitempty"`
	Description string      `json:"description,omitempty"`
	Context     string      `json:"context"`
}

// SetChangeStatus posts a commit status. The API answers 422 for a sha it
// does not know, which is reported as NotFound alongside 404.
func (g *GitHubClient) SetChangeStatus(ctx context.Context, owner, repo, sha string, state ChangeState, targetURL, description string) error {
	if sha == "" {
		return errors.ValidationError("commit SHA cannot be empty", nil)
	}
	if !state.Valid() {
		return errors.ValidationError(fmt.Sprintf("invalid change state %q", state), nil)
	}

	payload := statusRequest{
		State:       state,
		TargetURL:   targetURL,
		Description: truncate(description, maxDescriptionLength),
		Context:     g.statusContext,
	}

	resp, err := g.doRequest(ctx, "set status", http.MethodPost, g.paths.Statuses(owner, repo, sha), payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnprocessableEntity {
		body := readErrorBody(resp)
		return errors.NotFoundError("failed to set status: unknown commit", nil).
			WithResponse(resp.StatusCode, body).
			WithContext("sha", sha)
	}
	if err := checkResponse(resp, "failed to set status"); err != nil {
		return err
	}

	g.logger.Debug("commit status set",
		observability.String("owner", owner),
		observability.String("repo", repo),
		observability.String("sha", sha),
		observability.String("state", state.String()))
	return nil
}

// FindPullRequestCommit fetches the pull request referenced by branchSpec.
// Specs that are not pull request refs, and pull requests the API does not
// know, yield (nil, nil).
func (g *GitHubClient) FindPullRequestCommit(ctx context.Context, owner, repo, branchSpec string) (*PullRequestInfo, error) {
	number, ok := PullRequestNumber(branchSpec)
	if !ok {
		return nil, nil
	}

	var pr PullRequestInfo
	err := g.getJSON(ctx, g.paths.PullRequest(owner, repo, number), "fetch pull request", &pr)
	if errors.IsType(err, errors.ErrNotFound) {
		g.logger.Debug("pull request not found",
			observability.String("owner", owner),
			observability.String("repo", repo),
			observability.Int("number", number))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if pr.Number == 0 {
		pr.Number = number
	}
	return &pr, nil
}

type commitResponse struct {
	SHA     string `json:"sha"`
	Parents []struct {
		SHA string `json:"sha"`
	} `json:"parents"`
}

// GetCommitParents lists the parent shas of a commit, first parent first.
func (g *GitHubClient) GetCommitParents(ctx context.Context, owner, repo, sha string) ([]string, error) {
	if sha == "" {
		return nil, errors.ValidationError("commit SHA cannot be empty", nil)
	}

	resp, err := g.doRequest(ctx, "read commit", http.MethodGet, g.paths.Commit(owner, repo, sha), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnprocessableEntity {
		return nil, errors.NotFoundError("failed to get commit: unknown commit", nil).
			WithResponse(resp.StatusCode, readErrorBody(resp)).
			WithContext("sha", sha)
	}
	if err := checkResponse(resp, "failed to get commit"); err != nil {
		return nil, err
	}

	var commit commitResponse
	if err := json.NewDecoder(resp.Body).Decode(&commit); err != nil {
		return nil, errors.APIError("failed to decode commit response", resp.StatusCode, err.Error())
	}

	parents := make([]string, 0, len(commit.Parents))
	for _, p := range commit.Parents {
		parents = append(parents, p.SHA)
	}
	return parents, nil
}

// getJSON performs a GET and decodes a 2xx body into out.
func (g *GitHubClient) getJSON(ctx context.Context, apiURL, what string, out any) error {
	resp, err := g.doRequest(ctx, what, http.MethodGet, apiURL, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkResponse(resp, "failed to "+what); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.APIError(fmt.Sprintf("failed to decode %s response", what), resp.StatusCode, err.Error())
	}
	return nil
}

// doRequest sends an authenticated request and counts it under op.
// Transport failures come back as NetworkError; the caller owns status code
// handling.
func (g *GitHubClient) doRequest(ctx context.Context, op, method, apiURL string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.ValidationError("failed to marshal request", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, body)
	if err != nil {
		return nil, errors.ValidationError("failed to create request", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("X-Request-Id", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	g.creds.Apply(req)

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		g.metrics.RecordRequest(op, 0, time.Since(start))
		g.logger.Warn("request failed",
			observability.String("method", method),
			observability.String("url", apiURL),
			observability.String("request_id", requestID),
			observability.Err(err))
		return nil, errors.NetworkError(fmt.Sprintf("%s %s", method, apiURL), err)
	}

	g.metrics.RecordRequest(op, resp.StatusCode, time.Since(start))
	g.logger.Debug("request completed",
		observability.String("method", method),
		observability.String("url", apiURL),
		observability.String("request_id", requestID),
		observability.Int("status", resp.StatusCode),
		observability.Duration("took", time.Since(start)))
	return resp, nil
}

// checkResponse maps non-2xx responses onto the error taxonomy.
func checkResponse(resp *http.Response, message string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return errors.FromResponse(message, resp.StatusCode, readErrorBody(resp))
}

func readErrorBody(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return string(data)
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}
