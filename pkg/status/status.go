// Copyright 2026 CICD AI Toolkit. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package status reports build outcomes as commit statuses.
package status

import (
	"context"
	"fmt"
	"strings"

	"github.com/cicd-ai-toolkit/cicd-status/pkg/observability"
	"github.com/cicd-ai-toolkit/cicd-status/pkg/platform"
)

// Outcome is the toolkit's view of how a build went.
type Outcome string

const (
	OutcomeStarted     Outcome = "started"
	OutcomeSucceeded   Outcome = "succeeded"
	OutcomeFailed      Outcome = "failed"
	OutcomeErrored     Outcome = "errored"
	OutcomeInterrupted Outcome = "interrupted"
)

// ChangeState maps an outcome onto the remote commit state.
func (o Outcome) ChangeState() (platform.ChangeState, error) {
	switch o {
	case OutcomeStarted:
		return platform.StatePending, nil
	case OutcomeSucceeded:
		return platform.StateSuccess, nil
	case OutcomeFailed:
		return platform.StateFailure, nil
	case OutcomeErrored, OutcomeInterrupted:
		return platform.StateError, nil
	default:
		return "", fmt.Errorf("unknown build outcome %q", o)
	}
}

// ParseOutcome parses an outcome name case-insensitively.
func ParseOutcome(s string) (Outcome, error) {
	o := Outcome(strings.ToLower(strings.TrimSpace(s)))
	if _, err := o.ChangeState(); err != nil {
		return "", err
	}
	return o, nil
}

// Update is one status event for a commit. It is sent once and not kept.
type Update struct {
	Owner       string
	Repo        string
	CommitSHA   string
	State       platform.ChangeState
	TargetURL   string
	Description string
}

// NewUpdate builds an update from a build outcome.
func NewUpdate(owner, repo, sha string, outcome Outcome, targetURL, description string) (Update, error) {
	state, err := outcome.ChangeState()
	if err != nil {
		return Update{}, err
	}
	return Update{
		Owner:       owner,
		Repo:        repo,
		CommitSHA:   sha,
		State:       state,
		TargetURL:   targetURL,
		Description: description,
	}, nil
}

// StatusSetter is the subset of platform.API the reporter needs.
type StatusSetter interface {
	SetChangeStatus(ctx context.Context, owner, repo, sha string, state platform.ChangeState, targetURL, description string) error
}

// Sender is anything that can deliver an Update.
type Sender interface {
	Report(ctx context.Context, u Update) error
}

// Reporter makes a single attempt per Report call and returns the error
// unchanged so callers can decide whether to retry.
type Reporter struct {
	setter StatusSetter
	logger observability.Logger
}

// NewReporter creates a reporter. A nil logger discards diagnostics.
func NewReporter(setter StatusSetter, logger observability.Logger) *Reporter {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Reporter{setter: setter, logger: logger}
}

// Report sends u to the remote service.
func (r *Reporter) Report(ctx context.Context, u Update) error {
	err := r.setter.SetChangeStatus(ctx, u.Owner, u.Repo, u.CommitSHA, u.State, u.TargetURL, u.Description)
	if err != nil {
		r.logger.Warn("failed to report commit status",
			observability.String("sha", u.CommitSHA),
			observability.String("state", u.State.String()),
			observability.Err(err))
		return err
	}

	r.logger.Info("commit status reported",
		observability.String("sha", u.CommitSHA),
		observability.String("state", u.State.String()))
	return nil
}
