// Copyright 2026 CICD AI Toolkit. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package resolver finds the destination branch of a pull request from the
// synthetic merge ref a build was started on.
package resolver

import (
	"context"
	"strings"

	"github.com/cicd-ai-toolkit/cicd-status/pkg/observability"
	"github.com/cicd-ai-toolkit/cicd-status/pkg/platform"
)

// PullRequestFinder is the subset of platform.API the resolver needs.
type PullRequestFinder interface {
	FindPullRequestCommit(ctx context.Context, owner, repo, branchSpec string) (*platform.PullRequestInfo, error)
	IsPullRequestMergeBranch(ref string) bool
}

// Resolver turns refs/pull/<n>/merge into the pull request's base branch.
type Resolver struct {
	finder PullRequestFinder
	logger observability.Logger
}

// New creates a resolver. A nil logger discards diagnostics.
func New(finder PullRequestFinder, logger observability.Logger) *Resolver {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Resolver{finder: finder, logger: logger}
}

// DestinationBranch returns the base branch for branchSpec. It never fails:
// anything short of a pull request with a base ref yields ("", false), and
// remote errors are logged rather than returned.
func (r *Resolver) DestinationBranch(ctx context.Context, owner, repo, branchSpec string) (string, bool) {
	if !r.finder.IsPullRequestMergeBranch(branchSpec) {
		r.logger.Debug("branch is not a pull request merge ref", observability.String("branch", branchSpec))
		return "", false
	}

	log := r.logger.With(
		observability.String("owner", owner),
		observability.String("repo", repo),
		observability.String("branch", branchSpec))

	pr, err := r.finder.FindPullRequestCommit(ctx, owner, repo, branchSpec)
	if err != nil {
		log.Error("failed to resolve pull request destination branch", observability.Err(err))
		return "", false
	}
	if pr == nil {
		log.Info("pull request not found")
		return "", false
	}

	base := strings.TrimSpace(pr.Base.Ref)
	if base == "" {
		log.Warn("pull request has no base ref", observability.Int("number", pr.Number))
		return "", false
	}

	log.Debug("resolved pull request destination branch",
		observability.Int("number", pr.Number),
		observability.String("base", base))
	return base, true
}

// Lookup returns the raw pull request for a merge ref, propagating errors.
// Non merge refs yield (nil, nil).
func (r *Resolver) Lookup(ctx context.Context, owner, repo, branchSpec string) (*platform.PullRequestInfo, error) {
	if !r.finder.IsPullRequestMergeBranch(branchSpec) {
		return nil, nil
	}
	return r.finder.FindPullRequestCommit(ctx, owner, repo, branchSpec)
}
