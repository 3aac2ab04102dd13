package integration

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/incidentops/tracker/internal/app"
	"github.com/incidentops/tracker/internal/config"
	"github.com/incidentops/tracker/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()

	storePath := filepath.Join(t.TempDir(), "incidents.json")
	cfg := config.Default()
	cfg.Store.Path = storePath
	cfg.Log.Level = "error"

	application, err := app.New(&cfg)
	require.NoError(t, err)

	server := httptest.NewServer(application.Router())
	t.Cleanup(server.Close)
	return server, storePath
}

func decodeData(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	require.NoError(t, json.Unmarshal(body, &envelope), "body: %s", body)
	require.NoError(t, json.Unmarshal(envelope.Data, v))
}

func createIncident(t *testing.T, server *httptest.Server, title string) domain.Incident {
	t.Helper()
	body := fmt.Sprintf(
		`{"title":%q,"description":"Production server unresponsive since 10am","category":"IT","severity":"HIGH"}`,
		title)

	resp, err := http.Post(server.URL+"/api/v1/incidents", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var incident domain.Incident
	decodeData(t, resp, &incident)
	return incident
}

func patchStatus(t *testing.T, server *httptest.Server, id, status string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPatch,
		server.URL+"/api/v1/incidents/"+id+"/status",
		strings.NewReader(fmt.Sprintf(`{"status":%q}`, status)))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func post(t *testing.T, server *httptest.Server, path string) *http.Response {
	t.Helper()
	resp, err := http.Post(server.URL+path, "application/json", nil)
	require.NoError(t, err)
	return resp
}

func TestIncidentLifecycle(t *testing.T) {
	server, _ := newTestServer(t)

	incident := createIncident(t, server, "Server outage down")
	assert.Equal(t, domain.StatusOpen, incident.Status)
	assert.NotEmpty(t, incident.ID)
	assert.False(t, incident.ReportedAt.IsZero())

	resp := patchStatus(t, server, incident.ID, "INVESTIGATING")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = patchStatus(t, server, incident.ID, "RESOLVED")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// the resolved->archived edge belongs to the archive operation only
	resp = patchStatus(t, server, incident.ID, "ARCHIVED")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = post(t, server, "/api/v1/incidents/"+incident.ID+"/archive")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var archived domain.Incident
	decodeData(t, resp, &archived)
	assert.Equal(t, domain.StatusArchived, archived.Status)

	// archived incidents only reopen through reset
	resp = patchStatus(t, server, incident.ID, "OPEN")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = post(t, server, "/api/v1/incidents/"+incident.ID+"/reset")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var reset domain.Incident
	decodeData(t, resp, &reset)
	assert.Equal(t, domain.StatusOpen, reset.Status)
	assert.Equal(t, incident.ReportedAt, reset.ReportedAt, "reportedAt is set exactly once")
}

func TestListFiltersArchived(t *testing.T) {
	server, _ := newTestServer(t)

	keep := createIncident(t, server, "Visible incident one")
	gone := createIncident(t, server, "Archived incident two")

	resp := post(t, server, "/api/v1/incidents/"+gone.ID+"/archive")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	var visible []domain.Incident
	resp, err := http.Get(server.URL + "/api/v1/incidents")
	require.NoError(t, err)
	decodeData(t, resp, &visible)
	require.Len(t, visible, 1)
	assert.Equal(t, keep.ID, visible[0].ID)

	var all []domain.Incident
	resp, err = http.Get(server.URL + "/api/v1/incidents?include_archived=true")
	require.NoError(t, err)
	decodeData(t, resp, &all)
	require.Len(t, all, 2)
	assert.Equal(t, keep.ID, all[0].ID)
	assert.Equal(t, gone.ID, all[1].ID)
}

func TestStateSurvivesRestart(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "incidents.json")

	cfg := config.Default()
	cfg.Store.Path = storePath
	cfg.Log.Level = "error"

	first, err := app.New(&cfg)
	require.NoError(t, err)
	server := httptest.NewServer(first.Router())

	created := createIncident(t, server, "Server outage down")
	resp := patchStatus(t, server, created.ID, "INVESTIGATING")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	server.Close()

	// a fresh process over the same data file sees identical state
	second, err := app.New(&cfg)
	require.NoError(t, err)
	server = httptest.NewServer(second.Router())
	defer server.Close()

	resp, err = http.Get(server.URL + "/api/v1/incidents/" + created.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reloaded domain.Incident
	decodeData(t, resp, &reloaded)
	assert.Equal(t, domain.StatusInvestigating, reloaded.Status)
	assert.Equal(t, created.Title, reloaded.Title)
	assert.True(t, created.ReportedAt.Equal(reloaded.ReportedAt))
}

func TestBulkImport(t *testing.T) {
	server, _ := newTestServer(t)

	csv := "title,description,category,severity\n" +
		"First incident report,Something broke in the first place,IT,HIGH\n" +
		"bad,too short,IT,HIGH\n" +
		"Third incident here,Something broke in the third place,FACILITIES,LOW\n"

	resp, err := http.Post(server.URL+"/api/v1/incidents/import", "text/csv", strings.NewReader(csv))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summary struct {
		TotalRows int `json:"total_rows"`
		Created   int `json:"created"`
		Skipped   int `json:"skipped"`
	}
	decodeData(t, resp, &summary)
	assert.Equal(t, 3, summary.TotalRows)
	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, 1, summary.Skipped)

	// created rows appear in input order
	var all []domain.Incident
	resp, err = http.Get(server.URL + "/api/v1/incidents")
	require.NoError(t, err)
	decodeData(t, resp, &all)
	require.Len(t, all, 2)
	assert.Equal(t, "First incident report", all[0].Title)
	assert.Equal(t, "Third incident here", all[1].Title)
}

func TestBulkImport_BadHeader(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Post(server.URL+"/api/v1/incidents/import", "text/csv",
		strings.NewReader("title,description\nfoo,bar\n"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthAndVersionEndpoints(t *testing.T) {
	server, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(server.URL + path)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		resp.Body.Close()
	}

	resp, err := http.Get(server.URL + "/version")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnparseableStoreFileFailsStartup(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "incidents.json")
	require.NoError(t, os.WriteFile(storePath, []byte("{definitely not json"), 0o600))

	cfg := config.Default()
	cfg.Store.Path = storePath
	cfg.Log.Level = "error"

	_, err := app.New(&cfg)
	assert.Error(t, err)
}
