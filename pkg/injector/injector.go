// Copyright 2026 CICD AI Toolkit. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package injector adds the pull request destination branch to a build's
// parameters, resolving it at most once per build.
package injector

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/cicd-ai-toolkit/cicd-status/pkg/auth"
	"github.com/cicd-ai-toolkit/cicd-status/pkg/cache"
	"github.com/cicd-ai-toolkit/cicd-status/pkg/observability"
	"github.com/cicd-ai-toolkit/cicd-status/pkg/platform"
	"github.com/cicd-ai-toolkit/cicd-status/pkg/resolver"
	"golang.org/x/sync/singleflight"
)

const (
	// DestinationBranchParameter receives the resolved base branch.
	DestinationBranchParameter = "system.PullRequestDestinationBranch"
	// BranchParameterPrefix prefixes the per VCS root branch parameter.
	BranchParameterPrefix = "teamcity.build.vcs.branch."
	// DefaultMemoTTL is how long a resolved build is remembered.
	DefaultMemoTTL = 24 * time.Hour
)

// VCSRootEntry is a VCS root attached to a build.
type VCSRootEntry struct {
	Name string
}

// Build is the host's view of a running build.
type Build struct {
	ID         int64
	ProjectID  string
	VCSRoots   []VCSRootEntry
	Parameters map[string]string
}

// FinderFactory opens a pull request finder for resolved credentials.
type FinderFactory func(creds *auth.Credentials) (resolver.PullRequestFinder, error)

// GitHubFinderFactory returns a factory backed by platform.GitHubClient.
func GitHubFinderFactory(opts ...platform.Option) FinderFactory {
	return func(creds *auth.Credentials) (resolver.PullRequestFinder, error) {
		return platform.NewGitHubClient(creds, opts...)
	}
}

type resolution struct {
	BuildID int64
	Branch  string
}

// Injector memoizes resolutions per build ID, so builds running side by side
// never observe each other's state.
type Injector struct {
	factory FinderFactory
	logger  observability.Logger
	ttl     time.Duration
	memo    *cache.MemoryCache[int64, resolution]
	group   singleflight.Group
}

// Option configures an Injector.
type Option func(*Injector)

// WithLogger sets the logger.
func WithLogger(l observability.Logger) Option {
	return func(i *Injector) { i.logger = l }
}

// WithMemoTTL sets how long a resolved build is remembered.
func WithMemoTTL(d time.Duration) Option {
	return func(i *Injector) { i.ttl = d }
}

// New creates an injector.
func New(factory FinderFactory, opts ...Option) *Injector {
	i := &Injector{
		factory: factory,
		logger:  observability.Nop(),
		ttl:     DefaultMemoTTL,
		memo:    cache.NewMemoryCache[int64, resolution](),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// BranchParameterKey is the parameter holding the branch of a VCS root.
func BranchParameterKey(projectID, vcsRootName string) string {
	if projectID == "" {
		return BranchParameterPrefix + vcsRootName
	}
	return BranchParameterPrefix + projectID + "_" + vcsRootName
}

// InjectIfNeeded sets DestinationBranchParameter on b.Parameters when the
// build runs on a pull request merge ref. Once a build is resolved, later
// calls for it are no-ops that report the remembered branch. Failures leave
// the build unresolved so the next call tries again.
//
// Concurrent calls for the same build share one resolution, and only the
// call that performed it writes to the parameters.
func (i *Injector) InjectIfNeeded(ctx context.Context, b Build, settings map[string]string) (string, bool) {
	if b.Parameters == nil {
		i.logger.Warn("build has no parameter map", observability.Int64("build_id", b.ID))
		return "", false
	}

	if r, err := i.memo.Get(b.ID); err == nil {
		return r.Branch, true
	}

	v, _, _ := i.group.Do(strconv.FormatInt(b.ID, 10), func() (any, error) {
		if r, err := i.memo.Get(b.ID); err == nil {
			return r.Branch, nil
		}

		branch, ok := i.resolve(ctx, b, settings)
		if !ok {
			return "", nil
		}
		b.Parameters[DestinationBranchParameter] = branch

		// finished builds that were never forgotten expire here
		if n := i.memo.Purge(); n > 0 {
			i.logger.Debug("purged expired resolutions", observability.Int("count", n))
		}
		i.memo.Set(b.ID, resolution{BuildID: b.ID, Branch: branch}, i.ttl)
		return branch, nil
	})

	branch, _ := v.(string)
	return branch, branch != ""
}

// Forget drops what is remembered about a build, typically once it finishes.
func (i *Injector) Forget(buildID int64) {
	i.memo.Delete(buildID)
}

// Purge drops expired resolutions.
func (i *Injector) Purge() int {
	return i.memo.Purge()
}

func (i *Injector) resolve(ctx context.Context, b Build, settings map[string]string) (string, bool) {
	log := i.logger.With(observability.Int64("build_id", b.ID))

	vcsName := lastVCSRootName(b.VCSRoots)
	key := BranchParameterKey(b.ProjectID, vcsName)
	branchSpec := strings.TrimSpace(b.Parameters[key])
	if branchSpec == "" {
		log.Debug("no branch parameter for build", observability.String("key", key))
		return "", false
	}

	creds, err := auth.Resolve(settings)
	if err != nil {
		log.Error("invalid feature settings", observability.Err(err))
		return "", false
	}
	owner, repo, err := auth.Repository(settings)
	if err != nil {
		log.Error("invalid feature settings", observability.Err(err))
		return "", false
	}

	finder, err := i.factory(creds)
	if err != nil {
		log.Error("failed to open API client", observability.Err(err))
		return "", false
	}

	branch, ok := resolver.New(finder, log).DestinationBranch(ctx, owner, repo, branchSpec)
	if ok {
		log.Info("injecting pull request destination branch",
			observability.String("branch", branchSpec),
			observability.String("destination", branch))
	}
	return branch, ok
}

// lastVCSRootName returns the name of the last VCS root. When several roots
// are attached the last one wins.
// TODO: make the VCS root used for pull request lookup configurable per feature.
func lastVCSRootName(roots []VCSRootEntry) string {
	name := ""
	for _, r := range roots {
		name = r.Name
	}
	return name
}
