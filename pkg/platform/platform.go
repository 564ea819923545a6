// Copyright 2026 CICD AI Toolkit. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package platform provides the GitHub REST client used to resolve pull
// request branches and report commit statuses.
package platform

import (
	"context"
	"fmt"
	"strings"
)

// API is the set of remote operations the rest of the toolkit relies on.
type API interface {
	// ReadChangeStatus returns the combined status of a commit.
	ReadChangeStatus(ctx context.Context, owner, repo, sha string) (ChangeState, error)

	// SetChangeStatus posts a status for a commit.
	SetChangeStatus(ctx context.Context, owner, repo, sha string, state ChangeState, targetURL, description string) error

	// FindPullRequestCommit fetches the pull request named by a refs/pull/<n>/... spec.
	// A nil result with a nil error means there is no such pull request.
	FindPullRequestCommit(ctx context.Context, owner, repo, branchSpec string) (*PullRequestInfo, error)

	// GetCommitParents lists the parent shas of a commit in order.
	GetCommitParents(ctx context.Context, owner, repo, sha string) ([]string, error)

	// IsPullRequestMergeBranch reports whether ref is a synthetic merge ref.
	IsPullRequestMergeBranch(ref string) bool
}

// ChangeState represents the state of a commit status.
type ChangeState string

const (
	StatePending ChangeState = "pending"
	StateSuccess ChangeState = "success"
	StateError   ChangeState = "error"
	StateFailure ChangeState = "failure"
)

// String returns the string representation of the state
func (s ChangeState) String() string {
	return string(s)
}

// Valid reports whether s is one of the four states the API accepts.
func (s ChangeState) Valid() bool {
	switch s {
	case StatePending, StateSuccess, StateError, StateFailure:
		return true
	default:
		return false
	}
}

// ParseChangeState parses a state name case-insensitively.
func ParseChangeState(s string) (ChangeState, error) {
	state := ChangeState(strings.ToLower(strings.TrimSpace(s)))
	if !state.Valid() {
		return "", fmt.Errorf("unknown change state %q (want pending, success, error or failure)", s)
	}
	return state, nil
}

// PullRequestInfo describes the two sides of a pull request.
type PullRequestInfo struct {
	Number int            `json:"number"`
	State  string         `json:"state"`
	Head   PullRequestRef `json:"head"`
	Base   PullRequestRef `json:"base"`
}

// PullRequestRef is one side of a pull request.
type PullRequestRef struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}
