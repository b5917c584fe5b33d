package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/code-editor-backend/internal/execution/domain"
	"github.com/GoSim-25-26J-441/code-editor-backend/internal/execution/repository"
	"github.com/GoSim-25-26J-441/code-editor-backend/internal/execution/runner"
	"github.com/GoSim-25-26J-441/code-editor-backend/internal/execution/service"
)

func setupRouter(t *testing.T, r service.Runner, timeout time.Duration) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	base := t.TempDir()
	svc := service.NewExecutionService(r, repository.NewHistoryRepository(filepath.Join(base, "outputs")), service.Options{
		WorkspaceDir: filepath.Join(base, "projects"),
		Timeout:      timeout,
		HistoryLimit: 10,
	})

	router := gin.New()
	New(svc).Register(router)
	return router
}

func post(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestExecuteCode(t *testing.T) {
	router := setupRouter(t, runner.New("sh", t.TempDir()), 5*time.Second)

	rr := post(t, router, "/execute-code", gin.H{"projectId": "fresh", "code": "echo $((1+1))"})
	require.Equal(t, http.StatusOK, rr.Code)

	var res domain.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Contains(t, res.CurrentOutput.Stdout, "2")
	assert.Equal(t, 0, res.CurrentOutput.ReturnCode)
	assert.Len(t, res.ExecutionHistory, 1)
	assert.NotEmpty(t, res.FilePath)

	rr = get(router, "/get-code/fresh/"+res.CurrentOutput.FileName)
	require.Equal(t, http.StatusOK, rr.Code)
	var code map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &code))
	assert.Equal(t, "echo $((1+1))", code["code"])
	assert.Equal(t, res.CurrentOutput.FileName, code["file_name"])

	rr = get(router, "/get-execution-history/fresh")
	require.Equal(t, http.StatusOK, rr.Code)
	var hist []domain.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &hist))
	assert.Len(t, hist, 1)
}

func TestExecuteCode_MissingFields(t *testing.T) {
	router := setupRouter(t, runner.New("sh", t.TempDir()), time.Second)

	rr := post(t, router, "/execute-code", gin.H{"projectId": "p1"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid or missing 'code'")
}

func TestExecuteCode_Timeout(t *testing.T) {
	router := setupRouter(t, runner.New("sh", t.TempDir()), 200*time.Millisecond)

	rr := post(t, router, "/execute-code", gin.H{"projectId": "loop", "code": "while :; do :; done"})
	require.Equal(t, http.StatusRequestTimeout, rr.Code)

	var body struct {
		Error         string        `json:"error"`
		CurrentOutput domain.Record `json:"current_output"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "Execution timed out after 0.2 seconds", body.Error)
	assert.Equal(t, domain.TimeoutMarker, body.CurrentOutput.Error)

	rr = get(router, "/get-execution-history/loop")
	var hist []domain.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &hist))
	require.Len(t, hist, 1)
	assert.True(t, hist[0].TimedOut())
}

type failingRunner struct{}

func (failingRunner) Run(context.Context, string, time.Duration) (runner.Output, error) {
	return runner.Output{}, errors.New("fork failed")
}

func (failingRunner) QuickRun(context.Context, string) (string, error) {
	return "", errors.New("fork failed")
}

func TestExecuteCode_SandboxFailure(t *testing.T) {
	router := setupRouter(t, failingRunner{}, time.Second)

	rr := post(t, router, "/execute-code", gin.H{"projectId": "p1", "code": "print(1)"})
	require.Equal(t, http.StatusInternalServerError, rr.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "An unexpected error occurred.", body["error"])
	assert.Equal(t, "fork failed", body["details"])
	assert.NotEmpty(t, body["traceback"])
}

func TestHistory_EmptyProject(t *testing.T) {
	router := setupRouter(t, runner.New("sh", t.TempDir()), time.Second)

	rr := get(router, "/get-execution-history/unknown")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())
}

func TestHistory_RejectsParentDirectory(t *testing.T) {
	gin.SetMode(gin.TestMode)
	base := t.TempDir()
	outputs := filepath.Join(base, "outputs")
	require.NoError(t, os.MkdirAll(outputs, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "secret.json"), []byte(`{"stdout":"LEAKED"}`), 0o644))

	svc := service.NewExecutionService(runner.New("sh", t.TempDir()), repository.NewHistoryRepository(outputs), service.Options{
		WorkspaceDir: filepath.Join(base, "projects"),
		Timeout:      time.Second,
		HistoryLimit: 10,
	})
	router := gin.New()
	New(svc).Register(router)

	for _, path := range []string{"/get-execution-history/..", "/get-execution-history/%2e%2e", "/get-execution-history/a..b"} {
		rr := get(router, path)
		assert.Equal(t, http.StatusNotFound, rr.Code, path)
		assert.NotContains(t, rr.Body.String(), "LEAKED", path)
	}
}

func TestGetCode_Missing(t *testing.T) {
	router := setupRouter(t, runner.New("sh", t.TempDir()), time.Second)

	rr := get(router, "/get-code/p1/nothing.py")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestQuickRunEndpoint(t *testing.T) {
	router := setupRouter(t, runner.New("sh", t.TempDir()), time.Second)

	rr := post(t, router, "/execute", gin.H{"codeFromEditor": "echo hi"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"result":"hi\n"}`, rr.Body.String())

	rr = post(t, router, "/execute", gin.H{"codeFromEditor": "echo bad >&2; exit 2"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"result":"bad\n"}`, rr.Body.String())
}
