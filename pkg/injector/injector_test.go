package injector

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cicd-ai-toolkit/cicd-status/pkg/auth"
	"github.com/cicd-ai-toolkit/cicd-status/pkg/errors"
	"github.com/cicd-ai-toolkit/cicd-status/pkg/platform"
	"github.com/cicd-ai-toolkit/cicd-status/pkg/platform/fake"
	"github.com/cicd-ai-toolkit/cicd-status/pkg/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingFinder serves base branches by pull request number.
type countingFinder struct {
	mu    sync.Mutex
	bases map[int]string
	err   error
	calls atomic.Int32
	gate  chan struct{}
}

func (f *countingFinder) FindPullRequestCommit(ctx context.Context, owner, repo, spec string) (*platform.PullRequestInfo, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	n, _ := platform.PullRequestNumber(spec)
	base, ok := f.bases[n]
	if !ok {
		return nil, nil
	}
	return &platform.PullRequestInfo{Number: n, Base: platform.PullRequestRef{Ref: base}}, nil
}

func (f *countingFinder) IsPullRequestMergeBranch(ref string) bool {
	return platform.IsPullRequestMergeBranch(ref)
}

func (f *countingFinder) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func factoryFor(f *countingFinder) FinderFactory {
	return func(*auth.Credentials) (resolver.PullRequestFinder, error) { return f, nil }
}

func settings() map[string]string {
	return map[string]string{
		auth.KeyServerURL:       "https://api.github.com",
		auth.KeyAuthType:        "TOKEN_AUTH",
		auth.KeyAccessToken:     "token",
		auth.KeyRepositoryOwner: "jonnyzzz",
		auth.KeyRepositoryName:  "TeamCity.GitHub",
	}
}

func newBuild(id int64, spec string) Build {
	return Build{
		ID:        id,
		ProjectID: "Project",
		VCSRoots:  []VCSRootEntry{{Name: "GitHub"}},
		Parameters: map[string]string{
			BranchParameterKey("Project", "GitHub"): spec,
		},
	}
}

func TestBranchParameterKey(t *testing.T) {
	assert.Equal(t, "teamcity.build.vcs.branch.Project_GitHub", BranchParameterKey("Project", "GitHub"))
	assert.Equal(t, "teamcity.build.vcs.branch.GitHub", BranchParameterKey("", "GitHub"))
}

func TestInjectIfNeeded(t *testing.T) {
	finder := &countingFinder{bases: map[int]string{1: "master"}}
	inj := New(factoryFor(finder))

	b := newBuild(100, "refs/pull/1/merge")
	branch, ok := inj.InjectIfNeeded(context.Background(), b, settings())

	require.True(t, ok)
	assert.Equal(t, "master", branch)
	assert.Equal(t, "master", b.Parameters[DestinationBranchParameter])
}

func TestInjectIfNeededSameBuildResolvesOnce(t *testing.T) {
	finder := &countingFinder{bases: map[int]string{1: "master"}}
	inj := New(factoryFor(finder))
	ctx := context.Background()

	b := newBuild(100, "refs/pull/1/merge")
	inj.InjectIfNeeded(ctx, b, settings())
	inj.InjectIfNeeded(ctx, b, settings())

	fresh := newBuild(100, "refs/pull/1/merge")
	branch, ok := inj.InjectIfNeeded(ctx, fresh, settings())

	assert.Equal(t, int32(1), finder.calls.Load())
	assert.True(t, ok)
	assert.Equal(t, "master", branch)
	assert.Equal(t, "master", b.Parameters[DestinationBranchParameter])
	assert.NotContains(t, fresh.Parameters, DestinationBranchParameter, "a resolved build is not touched again")
}

func TestInjectIfNeededPurgesExpiredBuilds(t *testing.T) {
	finder := &countingFinder{bases: map[int]string{1: "master"}}
	inj := New(factoryFor(finder), WithMemoTTL(time.Millisecond))
	ctx := context.Background()

	for id := int64(1); id <= 50; id++ {
		inj.InjectIfNeeded(ctx, newBuild(id, "refs/pull/1/merge"), settings())
	}
	require.LessOrEqual(t, inj.memo.Len(), 50)

	time.Sleep(5 * time.Millisecond)
	_, ok := inj.InjectIfNeeded(ctx, newBuild(51, "refs/pull/1/merge"), settings())
	require.True(t, ok)
	assert.Equal(t, 1, inj.memo.Len())
}

func TestInjectIfNeededDifferentBuildsResolveIndependently(t *testing.T) {
	finder := &countingFinder{bases: map[int]string{1: "master", 2: "release/1.x"}}
	inj := New(factoryFor(finder))
	ctx := context.Background()

	first := newBuild(1, "refs/pull/1/merge")
	second := newBuild(2, "refs/pull/2/merge")
	plain := newBuild(3, "refs/heads/feature")

	inj.InjectIfNeeded(ctx, first, settings())
	inj.InjectIfNeeded(ctx, second, settings())
	inj.InjectIfNeeded(ctx, plain, settings())
	inj.InjectIfNeeded(ctx, first, settings())

	assert.Equal(t, int32(2), finder.calls.Load())
	assert.Equal(t, "master", first.Parameters[DestinationBranchParameter])
	assert.Equal(t, "release/1.x", second.Parameters[DestinationBranchParameter])
	assert.NotContains(t, plain.Parameters, DestinationBranchParameter)
}

func TestInjectIfNeededRetriesAfterFailure(t *testing.T) {
	finder := &countingFinder{bases: map[int]string{1: "master"}}
	finder.setErr(errors.NetworkError("connection refused", nil))
	inj := New(factoryFor(finder))
	ctx := context.Background()

	b := newBuild(7, "refs/pull/1/merge")
	_, ok := inj.InjectIfNeeded(ctx, b, settings())
	assert.False(t, ok)
	assert.NotContains(t, b.Parameters, DestinationBranchParameter)

	finder.setErr(nil)
	branch, ok := inj.InjectIfNeeded(ctx, b, settings())
	assert.True(t, ok)
	assert.Equal(t, "master", branch)
	assert.Equal(t, int32(2), finder.calls.Load())
}

func TestInjectIfNeededSkips(t *testing.T) {
	tests := []struct {
		name     string
		build    Build
		settings map[string]string
	}{
		{
			name:     "no branch parameter",
			build:    Build{ID: 1, ProjectID: "Project", VCSRoots: []VCSRootEntry{{Name: "GitHub"}}, Parameters: map[string]string{}},
			settings: settings(),
		},
		{
			name:     "no vcs roots",
			build:    Build{ID: 1, ProjectID: "Project", Parameters: map[string]string{"teamcity.build.vcs.branch.Project_GitHub": "refs/pull/1/merge"}},
			settings: settings(),
		},
		{
			name:     "nil parameters",
			build:    Build{ID: 1},
			settings: settings(),
		},
		{
			name:  "blank server url",
			build: newBuild(1, "refs/pull/1/merge"),
			settings: func() map[string]string {
				s := settings()
				s[auth.KeyServerURL] = " "
				return s
			}(),
		},
		{
			name:  "unknown auth type",
			build: newBuild(1, "refs/pull/1/merge"),
			settings: func() map[string]string {
				s := settings()
				s[auth.KeyAuthType] = "KERBEROS"
				return s
			}(),
		},
		{
			name:  "missing repository",
			build: newBuild(1, "refs/pull/1/merge"),
			settings: func() map[string]string {
				s := settings()
				delete(s, auth.KeyRepositoryName)
				return s
			}(),
		},
		{
			name:     "pull request not found",
			build:    newBuild(1, "refs/pull/99/merge"),
			settings: settings(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			finder := &countingFinder{bases: map[int]string{1: "master"}}
			inj := New(factoryFor(finder))

			_, ok := inj.InjectIfNeeded(context.Background(), tt.build, tt.settings)
			assert.False(t, ok)
			assert.NotContains(t, tt.build.Parameters, DestinationBranchParameter)
		})
	}
}

func TestInjectIfNeededLastVCSRootWins(t *testing.T) {
	finder := &countingFinder{bases: map[int]string{1: "first-base", 2: "second-base"}}
	inj := New(factoryFor(finder))

	b := Build{
		ID:        5,
		ProjectID: "Project",
		VCSRoots:  []VCSRootEntry{{Name: "Library"}, {Name: "App"}},
		Parameters: map[string]string{
			BranchParameterKey("Project", "Library"): "refs/pull/1/merge",
			BranchParameterKey("Project", "App"):     "refs/pull/2/merge",
		},
	}

	branch, ok := inj.InjectIfNeeded(context.Background(), b, settings())
	require.True(t, ok)
	assert.Equal(t, "second-base", branch)
}

func TestInjectIfNeededFactoryError(t *testing.T) {
	inj := New(func(*auth.Credentials) (resolver.PullRequestFinder, error) {
		return nil, errors.ConfigError("invalid server URL", nil)
	})

	b := newBuild(1, "refs/pull/1/merge")
	_, ok := inj.InjectIfNeeded(context.Background(), b, settings())
	assert.False(t, ok)
}

func TestForget(t *testing.T) {
	finder := &countingFinder{bases: map[int]string{1: "master"}}
	inj := New(factoryFor(finder), WithMemoTTL(time.Hour))
	ctx := context.Background()

	inj.InjectIfNeeded(ctx, newBuild(1, "refs/pull/1/merge"), settings())
	inj.Forget(1)
	inj.InjectIfNeeded(ctx, newBuild(1, "refs/pull/1/merge"), settings())

	assert.Equal(t, int32(2), finder.calls.Load())
	assert.Equal(t, 0, inj.Purge())
}

func TestInjectIfNeededConcurrentSameBuild(t *testing.T) {
	finder := &countingFinder{bases: map[int]string{1: "master"}, gate: make(chan struct{})}
	inj := New(factoryFor(finder))

	const callers = 8
	b := newBuild(42, "refs/pull/1/merge")
	branches := make([]string, callers)
	var started, done sync.WaitGroup
	for i := 0; i < callers; i++ {
		started.Add(1)
		done.Add(1)
		go func(i int) {
			defer done.Done()
			started.Done()
			branches[i], _ = inj.InjectIfNeeded(context.Background(), b, settings())
		}(i)
	}

	started.Wait()
	require.Eventually(t, func() bool { return finder.calls.Load() == 1 }, time.Second, time.Millisecond)
	close(finder.gate)
	done.Wait()

	assert.Equal(t, int32(1), finder.calls.Load())
	assert.Equal(t, "master", b.Parameters[DestinationBranchParameter])
	for _, branch := range branches {
		assert.Equal(t, "master", branch)
	}
}

func TestInjectIfNeededConcurrentBuilds(t *testing.T) {
	bases := make(map[int]string)
	for n := 1; n <= 20; n++ {
		bases[n] = fmt.Sprintf("base-%d", n)
	}
	finder := &countingFinder{bases: bases}
	inj := New(factoryFor(finder))

	builds := make([]Build, 0, len(bases))
	for n := 1; n <= 20; n++ {
		builds = append(builds, newBuild(int64(n), fmt.Sprintf("refs/pull/%d/merge", n)))
	}

	var wg sync.WaitGroup
	for _, b := range builds {
		wg.Add(1)
		go func(b Build) {
			defer wg.Done()
			for j := 0; j < 3; j++ {
				inj.InjectIfNeeded(context.Background(), b, settings())
			}
		}(b)
	}
	wg.Wait()

	assert.Equal(t, int32(20), finder.calls.Load())
	for _, b := range builds {
		assert.Equal(t, fmt.Sprintf("base-%d", b.ID), b.Parameters[DestinationBranchParameter])
	}
}

func TestInjectIfNeededAgainstAPI(t *testing.T) {
	srv := fake.NewServer("jonnyzzz", "TeamCity.GitHub")
	t.Cleanup(srv.Close)
	srv.RequireToken("token")
	srv.AddPullRequest(fake.PullRequest{Number: 1, BaseRef: "master", BaseSHA: "4e86fc6dcef23c733f36bc8bbf35fb292edc9cdb"})

	s := settings()
	s[auth.KeyServerURL] = srv.URL
	inj := New(GitHubFinderFactory(platform.WithTimeout(5 * time.Second)))
	ctx := context.Background()

	b := newBuild(1, "refs/pull/1/merge")
	inj.InjectIfNeeded(ctx, b, s)
	inj.InjectIfNeeded(ctx, b, s)

	assert.Equal(t, "master", b.Parameters[DestinationBranchParameter])
	assert.Equal(t, 1, srv.Calls(fake.RoutePullRequest))
}
