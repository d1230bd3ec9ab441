package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repofetch/repofetch/internal/core"
	"github.com/repofetch/repofetch/internal/data"
	"github.com/repofetch/repofetch/internal/domain/model"
	"github.com/repofetch/repofetch/internal/export"
	"github.com/repofetch/repofetch/internal/plugin"
	"github.com/repofetch/repofetch/internal/service"
)

// stubLauncher drives state transitions synchronously so handler tests never
// depend on executor goroutines.
type stubLauncher struct {
	repo core.JobRepository
}

func (l *stubLauncher) Launch(ctx context.Context, id string) error {
	_, err := l.repo.MarkRunning(ctx, id)
	return err
}

func (l *stubLauncher) Cancel(ctx context.Context, id string) error {
	_, err := l.repo.Finish(ctx, id, model.JobFinish{State: model.StateCancelled})
	return err
}

type testServer struct {
	handler http.Handler
	repo    *data.MemoryJobRepo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	repo := data.NewMemoryJobRepo()
	svc := service.NewJobService(repo, &stubLauncher{repo: repo}, nil)

	registry := plugin.NewRegistry()
	require.NoError(t, registry.Register(plugin.LanguageMetricsID, plugin.LanguageMetricsAnalyzer))

	exporter := export.NewExporter(t.TempDir(), "http://files.local")
	runner := plugin.NewRunner(registry, repo, exporter, nil)

	return &testServer{
		handler: NewRouter(RouterServices{
			Jobs:           svc,
			PluginRunner:   runner,
			PluginRegistry: registry,
			Exporter:       exporter,
		}),
		repo: repo,
	}
}

func (s *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

const createJobBody = `{
	"name": "go repos",
	"platform": "GITHUB",
	"mode": "ASSISTANT",
	"settings": {"repo_count": 2, "max_mrs": 1, "search_term": "", "programming_language": ""},
	"requested_fields": [{"name": "name"}, {"name": "languages"}]
}`

func createJob(t *testing.T, s *testServer) model.Job {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/jobs", createJobBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var job model.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	return job
}

func TestCreateJob(t *testing.T) {
	s := newTestServer(t)
	job := createJob(t, s)

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, model.StateCreated, job.State)
	assert.Equal(t, model.PlatformGitHub, job.Platform)
}

func TestCreateJobValidationError(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/jobs", `{"name":"x","platform":"GITHUB","mode":"ASSISTANT"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "validation", body["error"])
}

func TestCreateJobInvalidJSON(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/jobs", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_json")
}

func TestGetJobsListsAll(t *testing.T) {
	s := newTestServer(t)
	first := createJob(t, s)
	second := createJob(t, s)

	rec := s.do(t, http.MethodGet, "/api/jobs", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var jobs []model.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &jobs))
	require.Len(t, jobs, 2)
	assert.Equal(t, first.ID, jobs[0].ID)
	assert.Equal(t, second.ID, jobs[1].ID)
}

func TestGetJobsUnknownIDIsEmptyList(t *testing.T) {
	s := newTestServer(t)
	createJob(t, s)

	rec := s.do(t, http.MethodGet, "/api/jobs?jobId=00000000-0000-0000-0000-000000000000", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var jobs []model.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &jobs))
	assert.Empty(t, jobs)
}

func TestStartJob(t *testing.T) {
	s := newTestServer(t)
	job := createJob(t, s)

	rec := s.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/start", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var started model.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	assert.Equal(t, model.StateRunning, started.State)
}

func TestStartJobMalformedID(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/jobs/not-a-uuid/start", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "jobId")
}

func TestCancelJob(t *testing.T) {
	s := newTestServer(t)
	job := createJob(t, s)

	rec := s.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var cancelled model.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cancelled))
	assert.Equal(t, model.StateCancelled, cancelled.State)
}

func TestUpdateJob(t *testing.T) {
	s := newTestServer(t)
	job := createJob(t, s)

	rec := s.do(t, http.MethodPut, "/api/jobs/"+job.ID, `{"name":"renamed"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated model.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "renamed", updated.Name)
}

func TestUpdateJobAfterStartConflicts(t *testing.T) {
	s := newTestServer(t)
	job := createJob(t, s)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/start", "").Code)

	rec := s.do(t, http.MethodPut, "/api/jobs/"+job.ID, `{"name":"too late"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_state")
}

func TestListPlugins(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/plugins", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{plugin.LanguageMetricsID}, body["plugins"])
}

func TestExecutePluginJobNotReady(t *testing.T) {
	s := newTestServer(t)
	job := createJob(t, s)

	rec := s.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/plugins/"+plugin.LanguageMetricsID, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "job_not_ready")
}

func TestExecutePluginUnknownPlugin(t *testing.T) {
	s := newTestServer(t)
	job := createJob(t, s)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/start", "").Code)
	_, err := s.repo.Finish(context.Background(), job.ID, model.JobFinish{State: model.StateDone})
	require.NoError(t, err)

	rec := s.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/plugins/NOPE", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown_plugin")
}

func TestExportJobNotDone(t *testing.T) {
	s := newTestServer(t)
	job := createJob(t, s)

	rec := s.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/export", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "job_not_ready")
}

func TestExportJobUnknown(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/jobs/00000000-0000-0000-0000-000000000000/export", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportJobDone(t *testing.T) {
	s := newTestServer(t)
	job := createJob(t, s)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/start", "").Code)

	name := "alpha"
	_, err := s.repo.Finish(context.Background(), job.ID, model.JobFinish{
		State: model.StateDone,
		Repos: []model.RepoData{{Name: &name, Languages: []string{"Go"}}},
	})
	require.NoError(t, err)

	rec := s.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/export?local=true", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["location"], job.ID+".csv")
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
