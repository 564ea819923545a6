package platform

import (
	"fmt"
	"net/url"
	"strings"
)

// Paths builds REST endpoint URLs against an API base.
type Paths struct {
	base string
}

// NewPaths normalizes serverURL into an API base. The public web host
// github.com is mapped to api.github.com; enterprise bases such as
// https://ghe.example.com/api/v3 are kept as given.
func NewPaths(serverURL string) Paths {
	base := strings.TrimRight(strings.TrimSpace(serverURL), "/")
	if u, err := url.Parse(base); err == nil && strings.EqualFold(u.Host, "github.com") && (u.Path == "" || u.Path == "/") {
		base = u.Scheme + "://api.github.com"
	}
	return Paths{base: base}
}

// Base returns the normalized API base URL.
func (p Paths) Base() string {
	return p.base
}

func (p Paths) repo(owner, repo string) string {
	return fmt.Sprintf("%s/repos/%s/%s", p.base, url.PathEscape(owner), url.PathEscape(repo))
}

// CombinedStatus is GET /repos/{owner}/{repo}/commits/{sha}/status.
func (p Paths) CombinedStatus(owner, repo, sha string) string {
	return fmt.Sprintf("%s/commits/%s/status", p.repo(owner, repo), url.PathEscape(sha))
}

// Statuses is POST /repos/{owner}/{repo}/statuses/{sha}.
func (p Paths) Statuses(owner, repo, sha string) string {
	return fmt.Sprintf("%s/statuses/%s", p.repo(owner, repo), url.PathEscape(sha))
}

// PullRequest is GET /repos/{owner}/{repo}/pulls/{number}.
func (p Paths) PullRequest(owner, repo string, number int) string {
	return fmt.Sprintf("%s/pulls/%d", p.repo(owner, repo), number)
}

// Commit is GET /repos/{owner}/{repo}/commits/{sha}.
func (p Paths) Commit(owner, repo, sha string) string {
	return fmt.Sprintf("%s/commits/%s", p.repo(owner, repo), url.PathEscape(sha))
}
