package platform

import "os"

// BuildEnv describes the CI server a command runs under.
type BuildEnv struct {
	Name      string
	IsCI      bool
	CommitSHA string
	VarName   string // variable the commit SHA was read from
}

// buildEnvChecks is ordered; the first CI whose marker is set wins.
var buildEnvChecks = []struct {
	name   string
	marker func(getenv func(string) string) bool
	shaVar string
}{
	{"teamcity", func(g func(string) string) bool { return g("TEAMCITY_VERSION") != "" }, "BUILD_VCS_NUMBER"},
	{"github", func(g func(string) string) bool { return g("GITHUB_ACTIONS") == "true" }, "GITHUB_SHA"},
	{"gitlab", func(g func(string) string) bool { return g("GITLAB_CI") == "true" }, "CI_COMMIT_SHA"},
	{"jenkins", func(g func(string) string) bool { return g("JENKINS_URL") != "" || g("JENKINS_HOME") != "" }, "GIT_COMMIT"},
	{"circleci", func(g func(string) string) bool { return g("CIRCLECI") == "true" }, "CIRCLE_SHA1"},
	{"drone", func(g func(string) string) bool { return g("DRONE") == "true" }, "DRONE_COMMIT_SHA"},
}

// DetectBuildEnv inspects the process environment.
func DetectBuildEnv() BuildEnv {
	return DetectBuildEnvFrom(os.Getenv)
}

// DetectBuildEnvFrom inspects the environment exposed by getenv.
func DetectBuildEnvFrom(getenv func(string) string) BuildEnv {
	for _, c := range buildEnvChecks {
		if c.marker(getenv) {
			return BuildEnv{
				Name:      c.name,
				IsCI:      true,
				CommitSHA: getenv(c.shaVar),
				VarName:   c.shaVar,
			}
		}
	}
	return BuildEnv{Name: "local"}
}
