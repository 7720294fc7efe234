package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polymerwire/modelhub/common/config"
	"github.com/polymerwire/modelhub/ingest/internal/models"
	"github.com/polymerwire/modelhub/ingest/internal/timestamp"
)

const mixedModel = `{
  "modelInformation": {"name": "bridge_240101_120000", "units": "metric"},
  "payload": [
    {"vertices": [[0,0,0],[1,0,0]], "metadata": {"id": "beam-1"}},
    {"vertices": [[0,0,0],[1,0,0],[0,1,0]], "metadata": {"id": "slab-1"}}
  ]
}`

func init() {
	color.NoColor = true
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs modelctl with args against an isolated config file.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	dir := t.TempDir()
	t.Setenv("MODELCTL_CONFIG_DIR", dir)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(dir, "config.yaml")}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func writeModel(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	return path
}

func TestCommandsRegistered(t *testing.T) {
	expected := map[string]bool{
		"stamp": false, "validate": false, "submit": false,
		"status": false, "models": false, "get": false, "login": false,
	}
	for _, c := range rootCmd.Commands() {
		if _, ok := expected[c.Name()]; ok {
			expected[c.Name()] = true
		}
	}
	for name, found := range expected {
		assert.True(t, found, "expected command %q to be registered", name)
	}
}

func TestStamp(t *testing.T) {
	out, err := execute(t, "stamp", "bridge")
	require.NoError(t, err)

	name := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(name, "bridge_"))
	assert.NoError(t, timestamp.Validate(name))
}

func TestStamp_Restamps(t *testing.T) {
	out, err := execute(t, "stamp", "bridge_200101_000000")
	require.NoError(t, err)

	name := strings.TrimSpace(out)
	assert.NotEqual(t, "bridge_200101_000000", name)
	base, err := timestamp.Base(name)
	require.NoError(t, err)
	assert.Equal(t, "bridge", base)
}

func TestStamp_Parse(t *testing.T) {
	out, err := execute(t, "stamp", "--parse", "bridge_231231_235959")
	require.NoError(t, err)
	assert.Equal(t, "2023-12-31T23:59:59Z", strings.TrimSpace(out))

	_, err = execute(t, "stamp", "--parse", "bridge")
	assert.ErrorIs(t, err, timestamp.ErrInvalid)
}

func TestValidate(t *testing.T) {
	out, err := execute(t, "validate", writeModel(t, mixedModel), "-o", "json")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	payload := doc["payload"].(map[string]any)
	assert.Len(t, payload["linearElements"], 1)
	assert.Len(t, payload["planarElements"], 1)
}

func TestValidate_Table(t *testing.T) {
	out, err := execute(t, "validate", writeModel(t, mixedModel))
	require.NoError(t, err)

	assert.Contains(t, out, "bridge_240101_120000 is valid")
	assert.Contains(t, out, "staged for tessellation")
}

func TestValidate_Rejected(t *testing.T) {
	doc := strings.Replace(mixedModel, `"metric"`, `"Metric"`, 1)
	_, err := execute(t, "validate", writeModel(t, doc))

	assert.ErrorIs(t, err, models.ErrInvalidUnits)
	assert.EqualError(t, err, models.ErrInvalidUnits.Message)
}

func TestSubmit_Stamp(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer env-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()
	t.Setenv("MODELCTL_URL", server.URL)
	t.Setenv("MODELCTL_TOKEN", "env-token")

	doc := strings.Replace(mixedModel, "bridge_240101_120000", "bridge", 1)
	out, err := execute(t, "submit", writeModel(t, doc), "--stamp")
	require.NoError(t, err)

	assert.Contains(t, out, "model staged for tessellation")
	name := got["modelInformation"].(map[string]any)["name"].(string)
	assert.True(t, strings.HasPrefix(name, "bridge_"))
	assert.NoError(t, timestamp.Validate(name))
}

func TestSubmit_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"File with this name already exists in S3 bucket. Please rename file and try again."}`))
	}))
	defer server.Close()
	t.Setenv("MODELCTL_URL", server.URL)

	out, err := execute(t, "submit", writeModel(t, mixedModel))
	require.NoError(t, err)
	assert.Contains(t, out, "rejected (409)")
}

func TestStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/get-model-status/bridge_240101_120000", r.URL.Path)
		w.Write([]byte(`{"name":"bridge_240101_120000","latestStatus":202,"latestLogMessage":"STAGED_FOR_TESSELLATION: models-staging"}`))
	}))
	defer server.Close()
	t.Setenv("MODELCTL_URL", server.URL)

	out, err := execute(t, "status", "bridge_240101_120000")
	require.NoError(t, err)
	assert.Contains(t, out, "STAGED_FOR_TESSELLATION: models-staging")
	assert.Contains(t, out, "202")
}

func TestModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"model":"bridge_240101_120000","s3_attributes":{"units":"metric","uploadTime":"2024-01-01 12:00:00"}}]`))
	}))
	defer server.Close()
	t.Setenv("MODELCTL_URL", server.URL)

	out, err := execute(t, "models")
	require.NoError(t, err)
	assert.Contains(t, out, "bridge_240101_120000")
	assert.Contains(t, out, "units=metric")
}

func TestLogin(t *testing.T) {
	resetFlags(rootCmd)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	rootCmd.SetOut(io.Discard)
	rootCmd.SetArgs([]string{"--config", path, "login", "--token", "abc", "--url", "https://models.example.com"})
	require.NoError(t, rootCmd.Execute())

	saved, err := config.LoadCLI(path)
	require.NoError(t, err)
	p := saved.Resolve("")
	assert.Equal(t, "https://models.example.com", p.IngestURL)
	assert.Equal(t, "abc", p.Token)
}

func TestLogin_RequiresToken(t *testing.T) {
	_, err := execute(t, "login")
	assert.Error(t, err)
}
