package main

import (
	"fmt"
	"io"
	"os"

	"github.com/cicd-ai-toolkit/cicd-status/pkg/errors"
	"github.com/cicd-ai-toolkit/cicd-status/pkg/injector"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type injectFlags struct {
	buildID  int64
	project  string
	vcsRoots []string
	params   string
	output   string
}

func newInjectCmd(a *app) *cobra.Command {
	var opts injectFlags

	cmd := &cobra.Command{
		Use:   "inject",
		Short: "Add the pull request destination branch to a build parameter file",
		Long: `Read a YAML map of build parameters, add
system.PullRequestDestinationBranch when the build runs on a pull request
merge ref, and write the resulting map.

The branch parameter consulted is teamcity.build.vcs.branch.<project>_<vcs-root>
for the last --vcs-root given. Resolution failures are logged and leave the
parameters unchanged.`,
		Example: `  cicd-status inject --build-id 42 --project Project --vcs-root GitHub --params params.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := readParams(opts.params)
			if err != nil {
				return err
			}

			roots := make([]injector.VCSRootEntry, 0, len(opts.vcsRoots))
			for _, name := range opts.vcsRoots {
				roots = append(roots, injector.VCSRootEntry{Name: name})
			}
			build := injector.Build{
				ID:         opts.buildID,
				ProjectID:  opts.project,
				VCSRoots:   roots,
				Parameters: params,
			}

			inj := injector.New(injector.GitHubFinderFactory(a.clientOptions()...), injector.WithLogger(a.logger))
			inj.InjectIfNeeded(cmd.Context(), build, a.cfg.FeatureSettings())

			return writeParams(cmd.OutOrStdout(), opts.output, build.Parameters)
		},
	}

	flags := cmd.Flags()
	flags.Int64Var(&opts.buildID, "build-id", 0, "Build ID")
	flags.StringVar(&opts.project, "project", "", "Project ID used in the branch parameter name")
	flags.StringArrayVar(&opts.vcsRoots, "vcs-root", nil, "VCS root name attached to the build (repeatable)")
	flags.StringVar(&opts.params, "params", "", "YAML file with the build parameters")
	flags.StringVarP(&opts.output, "output", "o", "", "Write parameters to this file instead of stdout")
	_ = cmd.MarkFlagRequired("build-id")
	_ = cmd.MarkFlagRequired("params")
	return cmd
}

func readParams(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ConfigError(fmt.Sprintf("failed to read parameters: %s", path), err)
	}

	params := make(map[string]string)
	if err := yaml.Unmarshal(data, &params); err != nil {
		return nil, errors.ConfigError(fmt.Sprintf("failed to parse parameters: %s", path), err)
	}
	if params == nil {
		params = make(map[string]string)
	}
	return params, nil
}

func writeParams(stdout io.Writer, path string, params map[string]string) error {
	data, err := yaml.Marshal(params)
	if err != nil {
		return err
	}
	if path == "" {
		_, err = stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
