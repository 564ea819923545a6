package platform

import (
	"regexp"
	"strconv"
)

// pullRequestRefPattern matches refs/pull/<n>/merge and refs/pull/<n>/head.
var pullRequestRefPattern = regexp.MustCompile(`^/?refs/pull/([0-9]+)/(merge|head)$`)

// PullRequestNumber extracts the pull request number from a PR ref of either
// flavour. Numbers that are zero or do not fit an int are rejected.
func PullRequestNumber(ref string) (int, bool) {
	m := pullRequestRefPattern.FindStringSubmatch(ref)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// IsPullRequestMergeBranch reports whether ref is refs/pull/<n>/merge.
// The /head form names the source branch, not a merge commit.
func IsPullRequestMergeBranch(ref string) bool {
	if _, ok := PullRequestNumber(ref); !ok {
		return false
	}
	return pullRequestRefPattern.FindStringSubmatch(ref)[2] == "merge"
}
