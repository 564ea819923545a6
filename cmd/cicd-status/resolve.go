package main

import (
	"fmt"

	"github.com/cicd-ai-toolkit/cicd-status/pkg/resolver"
	"github.com/spf13/cobra"
)

type resolveFlags struct {
	branch  string
	details bool
}

func newResolveCmd(a *app) *cobra.Command {
	var opts resolveFlags

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Print the destination branch of a pull request merge ref",
		Long: `Resolve the destination (base) branch of a pull request build.

Prints nothing and exits successfully when the branch is not a pull
request merge ref or the pull request cannot be found.`,
		Example: `  cicd-status resolve --branch refs/pull/42/merge`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, owner, repo, err := a.client()
			if err != nil {
				return err
			}
			r := resolver.New(client, a.logger)
			out := cmd.OutOrStdout()

			if opts.details {
				info, err := r.Lookup(cmd.Context(), owner, repo, opts.branch)
				if err != nil {
					return err
				}
				if info == nil {
					return nil
				}
				fmt.Fprintf(out, "#%d %s -> %s %s\n", info.Number, info.Head.Ref, info.Base.Ref, renderDim(out, info.Base.SHA))
				return nil
			}

			if branch, ok := r.DestinationBranch(cmd.Context(), owner, repo, opts.branch); ok {
				fmt.Fprintln(out, branch)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.branch, "branch", "b", "", "Branch spec, e.g. refs/pull/1/merge")
	cmd.Flags().BoolVar(&opts.details, "details", false, "Print pull request number, head and base, and fail on API errors")
	_ = cmd.MarkFlagRequired("branch")
	return cmd
}
