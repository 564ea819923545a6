package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newParentsCmd(a *app) *cobra.Command {
	var sha string

	cmd := &cobra.Command{
		Use:   "parents",
		Short: "List the parent commits of a commit, one per line",
		RunE: func(cmd *cobra.Command, args []string) error {
			commit, err := commitSHA(sha)
			if err != nil {
				return err
			}
			client, owner, repo, err := a.client()
			if err != nil {
				return err
			}

			parents, err := client.GetCommitParents(cmd.Context(), owner, repo, commit)
			if err != nil {
				return err
			}
			for _, p := range parents {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sha, "sha", "", "Commit SHA (default: detected from the CI environment)")
	return cmd
}
