package status

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/cicd-ai-toolkit/cicd-status/pkg/auth"
	"github.com/cicd-ai-toolkit/cicd-status/pkg/errors"
	"github.com/cicd-ai-toolkit/cicd-status/pkg/platform"
	"github.com/cicd-ai-toolkit/cicd-status/pkg/platform/fake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sha = "605e36e23f7a64515691da631190baaf45fdaed9"

// scriptedSetter returns errs in order, then nil.
type scriptedSetter struct {
	errs  []error
	calls int
	last  Update
}

func (s *scriptedSetter) SetChangeStatus(ctx context.Context, owner, repo, sha string, state platform.ChangeState, targetURL, description string) error {
	s.calls++
	s.last = Update{Owner: owner, Repo: repo, CommitSHA: sha, State: state, TargetURL: targetURL, Description: description}
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

func fastPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		MaxElapsedTime:  time.Second,
		MaxRetries:      3,
	}
}

func TestOutcomeChangeState(t *testing.T) {
	tests := []struct {
		outcome Outcome
		want    platform.ChangeState
	}{
		{OutcomeStarted, platform.StatePending},
		{OutcomeSucceeded, platform.StateSuccess},
		{OutcomeFailed, platform.StateFailure},
		{OutcomeErrored, platform.StateError},
		{OutcomeInterrupted, platform.StateError},
	}

	for _, tt := range tests {
		t.Run(string(tt.outcome), func(t *testing.T) {
			got, err := tt.outcome.ChangeState()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Outcome("skipped").ChangeState()
	assert.Error(t, err)
}

func TestParseOutcome(t *testing.T) {
	o, err := ParseOutcome(" Succeeded ")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, o)

	_, err = ParseOutcome("done")
	assert.Error(t, err)
}

func TestNewUpdate(t *testing.T) {
	u, err := NewUpdate("o", "r", sha, OutcomeFailed, "https://ci/build/1", "2 tests failed")
	require.NoError(t, err)
	assert.Equal(t, platform.StateFailure, u.State)
	assert.Equal(t, sha, u.CommitSHA)

	_, err = NewUpdate("o", "r", sha, Outcome("bogus"), "", "")
	assert.Error(t, err)
}

func TestReporterSingleAttempt(t *testing.T) {
	setter := &scriptedSetter{errs: []error{errors.NetworkError("reset", nil)}}
	r := NewReporter(setter, nil)

	err := r.Report(context.Background(), Update{Owner: "o", Repo: "r", CommitSHA: sha, State: platform.StatePending})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrNetwork))
	assert.Equal(t, 1, setter.calls)

	require.NoError(t, r.Report(context.Background(), Update{Owner: "o", Repo: "r", CommitSHA: sha, State: platform.StateSuccess, Description: "ok"}))
	assert.Equal(t, 2, setter.calls)
	assert.Equal(t, "ok", setter.last.Description)
}

func TestRetryingReporter(t *testing.T) {
	tests := []struct {
		name      string
		errs      []error
		wantErr   errors.ErrorType
		wantOK    bool
		wantCalls int
	}{
		{
			name:      "succeeds first time",
			wantOK:    true,
			wantCalls: 1,
		},
		{
			name:      "retries network errors",
			errs:      []error{errors.NetworkError("reset", nil), errors.NetworkError("reset", nil)},
			wantOK:    true,
			wantCalls: 3,
		},
		{
			name:      "retries server errors",
			errs:      []error{errors.APIError("unavailable", http.StatusServiceUnavailable, "")},
			wantOK:    true,
			wantCalls: 2,
		},
		{
			name:      "authentication is permanent",
			errs:      []error{errors.AuthenticationError("bad credentials", nil)},
			wantErr:   errors.ErrAuthentication,
			wantCalls: 1,
		},
		{
			name:      "unknown sha is permanent",
			errs:      []error{errors.NotFoundError("no commit", nil)},
			wantErr:   errors.ErrNotFound,
			wantCalls: 1,
		},
		{
			name: "gives up after max retries",
			errs: []error{
				errors.NetworkError("1", nil), errors.NetworkError("2", nil),
				errors.NetworkError("3", nil), errors.NetworkError("4", nil),
				errors.NetworkError("5", nil),
			},
			wantErr:   errors.ErrNetwork,
			wantCalls: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setter := &scriptedSetter{errs: tt.errs}
			r := NewRetryingReporter(NewReporter(setter, nil), fastPolicy(), nil)

			err := r.Report(context.Background(), Update{Owner: "o", Repo: "r", CommitSHA: sha, State: platform.StatePending})
			if tt.wantOK {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, errors.IsType(err, tt.wantErr), "got %v", err)
			}
			assert.Equal(t, tt.wantCalls, setter.calls)
		})
	}
}

func TestRetryingReporterStopsOnCancel(t *testing.T) {
	setter := &scriptedSetter{errs: []error{errors.NetworkError("reset", nil), errors.NetworkError("reset", nil)}}
	r := NewRetryingReporter(NewReporter(setter, nil), RetryPolicy{InitialInterval: time.Hour, MaxElapsedTime: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Report(ctx, Update{CommitSHA: sha, State: platform.StatePending})
	require.Error(t, err)
	assert.Equal(t, 1, setter.calls)
}

func TestReporterAgainstAPI(t *testing.T) {
	srv := fake.NewServer("jonnyzzz", "TeamCity.GitHub")
	t.Cleanup(srv.Close)
	srv.RequireToken("secret")
	srv.AddCommit(sha)

	client, err := platform.NewGitHubClient(&auth.Credentials{ServerURL: srv.URL, Method: auth.Token{Token: "secret"}})
	require.NoError(t, err)

	r := NewRetryingReporter(NewReporter(client, nil), fastPolicy(), nil)
	srv.FailNext(fake.RouteCreateStatus, http.StatusBadGateway, 1)

	u, err := NewUpdate("jonnyzzz", "TeamCity.GitHub", sha, OutcomeSucceeded, "http://teamcity.jetbrains.com", "test status")
	require.NoError(t, err)
	require.NoError(t, r.Report(context.Background(), u))

	posted := srv.Statuses(sha)
	require.Len(t, posted, 1)
	assert.Equal(t, "success", posted[0].State)
	assert.Equal(t, 2, srv.Calls(fake.RouteCreateStatus))

	u.CommitSHA = "wrong_hash"
	err = r.Report(context.Background(), u)
	assert.True(t, errors.IsType(err, errors.ErrNotFound))
	assert.Empty(t, srv.Statuses("wrong_hash"))
	assert.Equal(t, 3, srv.Calls(fake.RouteCreateStatus))
}
