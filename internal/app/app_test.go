package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/testgrid/internal/campaign"
	"github.com/specialistvlad/testgrid/internal/model"
	"github.com/specialistvlad/testgrid/internal/registry"
	"github.com/specialistvlad/testgrid/internal/testutil"
	tgassert "github.com/specialistvlad/testgrid/modules/assert"
	"github.com/specialistvlad/testgrid/modules/print"
	"github.com/specialistvlad/testgrid/modules/report"
)

const suiteHCL = `
environment "qa" {
  variables = { expected = "3" }
}

campaign "suite" {
  environment     = "qa"
  tests           = ["count", "broken", "never"]
  stop_on_failure = true
}

test "count" {
  campaign  = "suite"
  variables = ["n"]
  action "set" {
    output = { value = "n" }
  }
  action "assert" {
    config = { expression = "n == {{expected}}" }
  }
}

test "broken" {
  campaign = "suite"
  action "assert" {
    config = { expression = "1 == 2", message = "math is broken" }
  }
}

test "never" {
  campaign = "suite"
  action "print" {}
}
`

func testModules() []registry.Module {
	return []registry.Module{
		testutil.Plugins{"set": testutil.Pass(map[string]any{"value": 3})}.Module(),
		&tgassert.Module{},
		&print.Module{},
		&report.Module{},
	}
}

func newTestApp(t *testing.T, hcl string) *App {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "suite.hcl"), []byte(hcl), 0o644))
	a, _ := SetupAppTest(t, &Config{DefinitionsPath: dir, StoreDriver: StoreMemory}, testModules()...)
	return a
}

func TestApp_RunCampaignStopsOnFailure(t *testing.T) {
	// --- Arrange ---
	ctx := context.Background()
	a := newTestApp(t, suiteHCL)
	stats, err := a.LoadDefinitions(ctx)
	require.NoError(t, err)
	require.Equal(t, 5, stats.Created)

	// --- Act ---
	rep, err := a.RunCampaign(ctx, campaign.LaunchRequest{CampaignID: "suite"})

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, model.RunCompleted, rep.Status)
	assert.Equal(t, model.ResultFailure, rep.Result)
	assert.Equal(t, 100, rep.Progress)
	require.Len(t, rep.Results, 3)
	assert.Equal(t, model.TestPassed, rep.Results[0].Status)
	assert.Equal(t, model.TestFailed, rep.Results[1].Status)
	assert.Contains(t, rep.Results[1].Log, "math is broken")
	assert.Equal(t, model.TestSkipped, rep.Results[2].Status)
}

func TestApp_RunTest(t *testing.T) {
	// --- Arrange ---
	ctx := context.Background()
	a := newTestApp(t, suiteHCL)
	_, err := a.LoadDefinitions(ctx)
	require.NoError(t, err)

	// --- Act ---
	passed, err := a.RunTest(ctx, campaign.TestRunRequest{TestID: "count", Environment: "qa"})
	require.NoError(t, err)
	failed, err := a.RunTest(ctx, campaign.TestRunRequest{TestID: "count"})
	require.NoError(t, err)

	// --- Assert ---
	assert.Equal(t, model.TestPassed, passed.Status)
	assert.Contains(t, passed.Log, "Test passed")
	assert.Equal(t, model.TestFailed, failed.Status, "without the environment {{expected}} stays unresolved")
	assert.NotEqual(t, passed.RunID, failed.RunID)
}

func TestApp_ReloadUpdatesDefinitions(t *testing.T) {
	// --- Arrange ---
	ctx := context.Background()
	a := newTestApp(t, suiteHCL)
	_, err := a.LoadDefinitions(ctx)
	require.NoError(t, err)
	updated := strings.Replace(suiteHCL, `expected = "3"`, `expected = "4"`, 1)
	require.NoError(t, os.WriteFile(filepath.Join(a.config.DefinitionsPath, "suite.hcl"), []byte(updated), 0o644))

	// --- Act ---
	require.NoError(t, a.Reload(ctx))
	out, err := a.RunTest(ctx, campaign.TestRunRequest{TestID: "count", Environment: "qa"})

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, model.TestFailed, out.Status)
}

func TestApp_LoadDefinitionsWithEnvFiles(t *testing.T) {
	// --- Arrange ---
	ctx := context.Background()
	defs, envs := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(defs, "t.hcl"), []byte(`test "hello" { action "print" {} }`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(envs, "qa.yaml"), []byte("name: qa\nvariables:\n  host: qa.local\n"), 0o644))
	a, _ := SetupAppTest(t, &Config{DefinitionsPath: defs, EnvFilesPath: envs, StoreDriver: StoreMemory}, testModules()...)

	// --- Act ---
	stats, err := a.LoadDefinitions(ctx)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Created)
	v, err := a.Store().Variables().FindByID(ctx, "qa.host")
	require.NoError(t, err)
	assert.Equal(t, "qa.local", v.Value)
}

func TestApp_LoadDefinitionsRejectsEnvironmentDeclaredTwice(t *testing.T) {
	defs, envs := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(defs, "e.hcl"), []byte(`environment "qa" { variables = { a = "1" } }`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(envs, "qa.yaml"), []byte("name: qa\nvariables: {b: 2}\n"), 0o644))
	a, _ := SetupAppTest(t, &Config{DefinitionsPath: defs, EnvFilesPath: envs, StoreDriver: StoreMemory}, testModules()...)

	_, err := a.LoadDefinitions(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), `environment "qa" is declared both`)
}

func TestApp_NewAppFailsOnDuplicatePlugins(t *testing.T) {
	cfg := &Config{DefinitionsPath: t.TempDir(), StoreDriver: StoreMemory, Workers: 1, QueueSize: 1}

	_, err := NewApp(context.Background(), &testutil.SafeBuffer{}, cfg, &print.Module{}, &print.Module{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "plugin discovery failed")
}

func TestApp_HTTPRoutes(t *testing.T) {
	// --- Arrange ---
	ctx := context.Background()
	a := newTestApp(t, suiteHCL)
	_, err := a.LoadDefinitions(ctx)
	require.NoError(t, err)
	rep, err := a.RunCampaign(ctx, campaign.LaunchRequest{CampaignID: "suite"})
	require.NoError(t, err)
	srv := httptest.NewServer(a.routes())
	t.Cleanup(srv.Close)

	get := func(path string) *http.Response {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	// --- Act & Assert ---
	health := get("/health")
	require.Equal(t, http.StatusOK, health.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(health.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 5, body["plugins"])

	stored := get("/reports/" + rep.ID)
	require.Equal(t, http.StatusOK, stored.StatusCode)
	var got model.Report
	require.NoError(t, json.NewDecoder(stored.Body).Decode(&got))
	assert.Equal(t, rep.ID, got.ID)

	html := get("/reports/" + rep.ID + "/render?theme=dark")
	assert.Equal(t, http.StatusOK, html.StatusCode)
	assert.Contains(t, html.Header.Get("Content-Disposition"), ".html")

	assert.Equal(t, http.StatusNotFound, get("/reports/nope").StatusCode)
	assert.Equal(t, http.StatusNotFound, get("/reports/"+rep.ID+"/render?format=pdf").StatusCode)
}
