package testhelpers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
)

// MockJob is a scripted job. Every GET advances Statuses and every trace
// request advances Traces; the last entry sticks.
type MockJob struct {
	ID       int
	Name     string
	Statuses []string
	Traces   []string

	statusReads int
	traceReads  int
}

func (j *MockJob) status() string {
	return scripted(j.Statuses, j.statusReads)
}

// MockPipeline is a scripted pipeline; every GET advances Statuses
type MockPipeline struct {
	ID       int
	Ref      string
	SHA      string
	Statuses []string
	Jobs     []*MockJob
	Canceled bool

	statusReads int
}

func (p *MockPipeline) status() string {
	if p.Canceled {
		return "canceled"
	}
	return scripted(p.Statuses, p.statusReads)
}

func scripted(values []string, reads int) string {
	if len(values) == 0 {
		return ""
	}
	if reads >= len(values) {
		return values[len(values)-1]
	}
	return values[reads]
}

// MockGitLabServerConfig configures the behavior of a mock GitLab server
type MockGitLabServerConfig struct {
	mu sync.Mutex

	// Project is the project ID used in API paths
	Project string
	// Pipelines are served by ID
	Pipelines map[int]*MockPipeline
	// NextPipeline is returned by pipeline creation and triggers
	NextPipeline *MockPipeline
	// TriggerToken is the token trigger requests must carry
	TriggerToken string
	// JobsPerPage limits job list pages regardless of the requested size
	JobsPerPage int
	// FailCancel makes cancel requests fail
	FailCancel bool
	// Branches and Tags are the references that can be deleted
	Branches map[string]bool
	Tags     map[string]bool
	// Requests records "METHOD path" of every API call
	Requests []string
}

// NewMockGitLabServerConfig creates a mock server config with defaults
func NewMockGitLabServerConfig() *MockGitLabServerConfig {
	return &MockGitLabServerConfig{
		Project:   "42",
		Pipelines: make(map[int]*MockPipeline),
		Branches:  make(map[string]bool),
		Tags:      make(map[string]bool),
	}
}

// AddPipeline registers a pipeline
func (c *MockGitLabServerConfig) AddPipeline(p *MockPipeline) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Pipelines[p.ID] = p
}

// Pipeline returns a registered pipeline
func (c *MockGitLabServerConfig) Pipeline(id int) *MockPipeline {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Pipelines[id]
}

// RecordedRequests returns a copy of the recorded requests
func (c *MockGitLabServerConfig) RecordedRequests() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.Requests...)
}

func (c *MockGitLabServerConfig) findJob(id int) *MockJob {
	for _, p := range c.Pipelines {
		for _, j := range p.Jobs {
			if j.ID == id {
				return j
			}
		}
	}
	return nil
}

func pipelineJSON(p *MockPipeline, serverURL string) map[string]any {
	return map[string]any{
		"id":      p.ID,
		"ref":     p.Ref,
		"sha":     p.SHA,
		"status":  p.status(),
		"web_url": fmt.Sprintf("%s/pipelines/%d", serverURL, p.ID),
	}
}

func jobJSON(j *MockJob, serverURL string) map[string]any {
	return map[string]any{
		"id":      j.ID,
		"name":    j.Name,
		"status":  j.status(),
		"web_url": fmt.Sprintf("%s/jobs/%d", serverURL, j.ID),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "404 Not Found"})
}

// NewMockGitLabServer creates an httptest server that mocks the GitLab v4 API
// endpoints gchl uses. Its URL is the server URL to pass to clients.
func NewMockGitLabServer(t *testing.T, config *MockGitLabServerConfig) *httptest.Server {
	t.Helper()
	if config == nil {
		config = NewMockGitLabServerConfig()
	}

	var server *httptest.Server
	mux := http.NewServeMux()
	base := "/api/v4/projects/" + config.Project

	handle := func(pattern string, h func(w http.ResponseWriter, r *http.Request)) {
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			config.mu.Lock()
			defer config.mu.Unlock()
			config.Requests = append(config.Requests, r.Method+" "+r.URL.Path)
			h(w, r)
		})
	}

	create := func(w http.ResponseWriter, ref string) {
		p := config.NextPipeline
		if p == nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "no pipeline scripted"})
			return
		}
		if p.Ref == "" {
			p.Ref = ref
		}
		config.Pipelines[p.ID] = p
		config.NextPipeline = nil
		writeJSON(w, http.StatusCreated, pipelineJSON(p, server.URL))
	}

	handle("POST "+base+"/pipeline", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Ref string `json:"ref"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		create(w, body.Ref)
	})

	handle("POST "+base+"/trigger/pipeline", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		var body struct {
			Ref   string `json:"ref"`
			Token string `json:"token"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Token == "" {
			body.Token = r.Form.Get("token")
			body.Ref = r.Form.Get("ref")
		}
		if config.TriggerToken != "" && body.Token != config.TriggerToken {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "401 Unauthorized"})
			return
		}
		create(w, body.Ref)
	})

	handle("GET "+base+"/pipelines/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.Atoi(r.PathValue("id"))
		p, ok := config.Pipelines[id]
		if !ok {
			notFound(w)
			return
		}
		body := pipelineJSON(p, server.URL)
		p.statusReads++
		writeJSON(w, http.StatusOK, body)
	})

	handle("POST "+base+"/pipelines/{id}/cancel", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.Atoi(r.PathValue("id"))
		p, ok := config.Pipelines[id]
		if !ok {
			notFound(w)
			return
		}
		if config.FailCancel {
			writeJSON(w, http.StatusForbidden, map[string]string{"message": "403 Forbidden"})
			return
		}
		p.Canceled = true
		writeJSON(w, http.StatusCreated, pipelineJSON(p, server.URL))
	})

	handle("GET "+base+"/pipelines/{id}/jobs", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.Atoi(r.PathValue("id"))
		p, ok := config.Pipelines[id]
		if !ok {
			notFound(w)
			return
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page < 1 {
			page = 1
		}
		perPage := config.JobsPerPage
		if perPage <= 0 {
			perPage = len(p.Jobs) + 1
		}
		start := (page - 1) * perPage
		end := min(start+perPage, len(p.Jobs))
		jobs := []map[string]any{}
		for i := start; i < end; i++ {
			jobs = append(jobs, jobJSON(p.Jobs[i], server.URL))
		}
		if end < len(p.Jobs) {
			w.Header().Set("X-Next-Page", strconv.Itoa(page+1))
		}
		w.Header().Set("X-Page", strconv.Itoa(page))
		writeJSON(w, http.StatusOK, jobs)
	})

	handle("GET "+base+"/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.Atoi(r.PathValue("id"))
		j := config.findJob(id)
		if j == nil {
			notFound(w)
			return
		}
		body := jobJSON(j, server.URL)
		j.statusReads++
		writeJSON(w, http.StatusOK, body)
	})

	handle("GET "+base+"/jobs/{id}/trace", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.Atoi(r.PathValue("id"))
		j := config.findJob(id)
		if j == nil {
			notFound(w)
			return
		}
		trace := scripted(j.Traces, j.traceReads)
		j.traceReads++
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(trace))
	})

	deleteRef := func(refs map[string]bool) func(w http.ResponseWriter, r *http.Request) {
		return func(w http.ResponseWriter, r *http.Request) {
			name := r.PathValue("name")
			if !refs[name] {
				notFound(w)
				return
			}
			delete(refs, name)
			w.WriteHeader(http.StatusNoContent)
		}
	}
	handle("DELETE "+base+"/repository/branches/{name}", deleteRef(config.Branches))
	handle("DELETE "+base+"/repository/tags/{name}", deleteRef(config.Tags))

	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// MockGitHubServerConfig configures the behavior of a mock GitHub server
type MockGitHubServerConfig struct {
	mu sync.Mutex

	Owner string
	Repo  string
	// Refs are the existing references, such as "heads/main" or "tags/v1"
	Refs map[string]bool
	// Authorizations records the Authorization header of every request
	Authorizations []string
}

// NewMockGitHubServerConfig creates a new mock server config with defaults
func NewMockGitHubServerConfig() *MockGitHubServerConfig {
	return &MockGitHubServerConfig{
		Owner: "owner",
		Repo:  "repo",
		Refs:  make(map[string]bool),
	}
}

// HasRef reports whether ref still exists
func (c *MockGitHubServerConfig) HasRef(ref string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Refs[ref]
}

// NewMockGitHubServer creates an httptest server that mocks the GitHub git
// refs API. Its URL with a trailing slash is the API URL to pass to clients.
func NewMockGitHubServer(t *testing.T, config *MockGitHubServerConfig) *httptest.Server {
	t.Helper()
	if config == nil {
		config = NewMockGitHubServerConfig()
	}

	mux := http.NewServeMux()
	pattern := fmt.Sprintf("DELETE /repos/%s/%s/git/refs/{ref...}", config.Owner, config.Repo)
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		config.mu.Lock()
		defer config.mu.Unlock()
		config.Authorizations = append(config.Authorizations, r.Header.Get("Authorization"))

		ref := r.PathValue("ref")
		if !config.Refs[ref] {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "Reference does not exist"})
			return
		}
		delete(config.Refs, ref)
		w.WriteHeader(http.StatusNoContent)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}
