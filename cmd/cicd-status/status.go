package main

import (
	"fmt"

	"github.com/cicd-ai-toolkit/cicd-status/pkg/errors"
	"github.com/cicd-ai-toolkit/cicd-status/pkg/platform"
	"github.com/cicd-ai-toolkit/cicd-status/pkg/status"
	"github.com/spf13/cobra"
)

func newStatusCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Read or set commit statuses",
	}
	cmd.AddCommand(newStatusGetCmd(a), newStatusSetCmd(a))
	return cmd
}

func newStatusGetCmd(a *app) *cobra.Command {
	var sha string

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print the combined status of a commit",
		RunE: func(cmd *cobra.Command, args []string) error {
			commit, err := commitSHA(sha)
			if err != nil {
				return err
			}
			client, owner, repo, err := a.client()
			if err != nil {
				return err
			}

			state, err := client.ReadChangeStatus(cmd.Context(), owner, repo, commit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderState(out, state))
			return nil
		},
	}

	cmd.Flags().StringVar(&sha, "sha", "", "Commit SHA (default: detected from the CI environment)")
	return cmd
}

type statusSetFlags struct {
	sha         string
	state       string
	outcome     string
	targetURL   string
	description string
	retry       bool
}

func newStatusSetCmd(a *app) *cobra.Command {
	var opts statusSetFlags

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set the status of a commit",
		Long: `Set the status of a commit.

The state is given directly with --state (pending, success, error, failure)
or derived from a build outcome with --outcome (started, succeeded, failed,
errored, interrupted).`,
		Example: `  cicd-status status set --sha 605e36e --outcome succeeded --target-url https://ci/build/1
  cicd-status status set --sha 605e36e --state failure --description "2 tests failed" --retry`,
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := opts.changeState()
			if err != nil {
				return err
			}
			sha, err := commitSHA(opts.sha)
			if err != nil {
				return err
			}

			client, owner, repo, err := a.client()
			if err != nil {
				return err
			}

			var sender status.Sender = status.NewReporter(client, a.logger)
			if opts.retry {
				sender = status.NewRetryingReporter(sender, a.retryPolicy(), a.logger)
			}

			u := status.Update{
				Owner:       owner,
				Repo:        repo,
				CommitSHA:   sha,
				State:       state,
				TargetURL:   opts.targetURL,
				Description: opts.description,
			}
			if err := sender.Report(cmd.Context(), u); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", renderDim(out, sha), renderState(out, state))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.sha, "sha", "", "Commit SHA (default: detected from the CI environment)")
	flags.StringVar(&opts.state, "state", "", "Commit state: pending, success, error, failure")
	flags.StringVar(&opts.outcome, "outcome", "", "Build outcome: started, succeeded, failed, errored, interrupted")
	flags.StringVar(&opts.targetURL, "target-url", "", "Link shown next to the status")
	flags.StringVarP(&opts.description, "description", "d", "", "Short description of the status")
	flags.BoolVar(&opts.retry, "retry", false, "Retry transient failures with exponential backoff")
	cmd.MarkFlagsMutuallyExclusive("state", "outcome")
	cmd.MarkFlagsOneRequired("state", "outcome")
	return cmd
}

func (o statusSetFlags) changeState() (platform.ChangeState, error) {
	if o.outcome != "" {
		outcome, err := status.ParseOutcome(o.outcome)
		if err != nil {
			return "", errors.ValidationError(err.Error(), nil)
		}
		return outcome.ChangeState()
	}
	return platform.ParseChangeState(o.state)
}

func (a *app) retryPolicy() status.RetryPolicy {
	p := status.DefaultRetryPolicy()
	p.InitialInterval = a.cfg.Retry.InitialInterval
	p.MaxElapsedTime = a.cfg.Retry.MaxElapsed
	p.MaxRetries = a.cfg.Retry.MaxRetries
	return p
}
