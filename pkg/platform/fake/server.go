// Package fake provides an in-process GitHub API double for tests.
package fake

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Route names accepted by Calls and FailNext.
const (
	RoutePullRequest    = "pull"
	RouteCombinedStatus = "combined-status"
	RouteCommit         = "commit"
	RouteCreateStatus   = "create-status"
)

// PullRequest is the fixture shape served for /pulls/{number}.
type PullRequest struct {
	Number  int
	HeadRef string
	HeadSHA string
	BaseRef string
	BaseSHA string
}

// Status is a status posted by the client under test.
type Status struct {
	State       string `json:"state"`
	TargetURL   string `json:"target_url"`
	Description string `json:"description"`
	Context     string `json:"context"`
}

type failure struct {
	status int
	left   int
}

// Server serves a single repository.
type Server struct {
	*httptest.Server

	Owner string
	Repo  string

	mu       sync.Mutex
	token    string
	username string
	password string
	pulls    map[int]PullRequest
	parents  map[string][]string
	statuses map[string][]Status
	calls    map[string]int
	failures map[string]*failure
	lastAuth string
}

// NewServer starts a fake API for owner/repo. Close it with t.Cleanup.
func NewServer(owner, repo string) *Server {
	s := &Server{
		Owner:    owner,
		Repo:     repo,
		pulls:    make(map[int]PullRequest),
		parents:  make(map[string][]string),
		statuses: make(map[string][]Status),
		calls:    make(map[string]int),
		failures: make(map[string]*failure),
	}

	r := chi.NewRouter()
	r.Use(s.authenticate)
	r.Route("/repos/{owner}/{repo}", func(r chi.Router) {
		r.Use(s.repository)
		r.Get("/pulls/{number}", s.route(RoutePullRequest, s.getPullRequest))
		r.Get("/commits/{sha}/status", s.route(RouteCombinedStatus, s.getCombinedStatus))
		r.Get("/commits/{sha}", s.route(RouteCommit, s.getCommit))
		r.Post("/statuses/{sha}", s.route(RouteCreateStatus, s.createStatus))
	})

	s.Server = httptest.NewServer(r)
	return s
}

// RequireToken makes every request need "Authorization: Bearer <token>".
func (s *Server) RequireToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// RequireBasic makes every request need HTTP basic credentials.
func (s *Server) RequireBasic(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username, s.password = username, password
}

// AddPullRequest registers a pull request fixture.
func (s *Server) AddPullRequest(pr PullRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pulls[pr.Number] = pr
}

// AddCommit registers a commit and its ordered parents.
func (s *Server) AddCommit(sha string, parents ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parents[sha] = append([]string{}, parents...)
}

// Statuses returns the statuses posted for sha.
func (s *Server) Statuses(sha string) []Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Status(nil), s.statuses[sha]...)
}

// Calls returns how many requests reached route.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// LastAuthorization returns the Authorization header of the last request.
func (s *Server) LastAuthorization() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAuth
}

// FailNext makes the next n requests to route answer with status.
func (s *Server) FailNext(route string, status, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = &failure{status: status, left: n}
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.lastAuth = r.Header.Get("Authorization")
		token, username, password := s.token, s.username, s.password
		s.mu.Unlock()

		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			writeMessage(w, http.StatusUnauthorized, "Bad credentials")
			return
		}
		if username != "" {
			u, p, ok := r.BasicAuth()
			if !ok || u != username || p != password {
				writeMessage(w, http.StatusUnauthorized, "Bad credentials")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) repository(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "owner") != s.Owner || chi.URLParam(r, "repo") != s.Repo {
			writeMessage(w, http.StatusNotFound, "Not Found")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// route counts calls and applies injected failures before h runs.
func (s *Server) route(name string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[name]++
		f := s.failures[name]
		status := 0
		if f != nil && f.left > 0 {
			f.left--
			status = f.status
		}
		s.mu.Unlock()

		if status != 0 {
			writeMessage(w, status, http.StatusText(status))
			return
		}
		h(w, r)
	}
}

func (s *Server) getPullRequest(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil {
		writeMessage(w, http.StatusNotFound, "Not Found")
		return
	}

	s.mu.Lock()
	pr, ok := s.pulls[number]
	s.mu.Unlock()
	if !ok {
		writeMessage(w, http.StatusNotFound, "Not Found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"number": pr.Number,
		"state":  "open",
		"head":   map[string]string{"ref": pr.HeadRef, "sha": pr.HeadSHA},
		"base":   map[string]string{"ref": pr.BaseRef, "sha": pr.BaseSHA},
	})
}

func (s *Server) getCombinedStatus(w http.ResponseWriter, r *http.Request) {
	sha := chi.URLParam(r, "sha")

	s.mu.Lock()
	_, known := s.parents[sha]
	posted := s.statuses[sha]
	s.mu.Unlock()

	if !known {
		writeMessage(w, http.StatusNotFound, fmt.Sprintf("No commit found for SHA: %s", sha))
		return
	}

	state := "pending"
	if len(posted) > 0 {
		state = posted[len(posted)-1].State
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": state, "sha": sha})
}

func (s *Server) getCommit(w http.ResponseWriter, r *http.Request) {
	sha := chi.URLParam(r, "sha")

	s.mu.Lock()
	parents, ok := s.parents[sha]
	s.mu.Unlock()
	if !ok {
		writeMessage(w, http.StatusUnprocessableEntity, fmt.Sprintf("No commit found for SHA: %s", sha))
		return
	}

	list := make([]map[string]string, 0, len(parents))
	for _, p := range parents {
		list = append(list, map[string]string{"sha": p})
	}
	writeJSON(w, http.StatusOK, map[string]any{"sha": sha, "parents": list})
}

func (s *Server) createStatus(w http.ResponseWriter, r *http.Request) {
	sha := chi.URLParam(r, "sha")

	var st Status
	if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
		writeMessage(w, http.StatusBadRequest, "Problems parsing JSON")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.parents[sha]; !ok {
		writeMessage(w, http.StatusUnprocessableEntity, fmt.Sprintf("No commit found for SHA: %s", sha))
		return
	}
	s.statuses[sha] = append(s.statuses[sha], st)
	writeJSON(w, http.StatusCreated, st)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
