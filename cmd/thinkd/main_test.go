package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// setupHome points HOME at a temp dir and returns the thinkd config dir.
func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return filepath.Join(home, ".config", "thinkd")
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0700))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	require.NoError(t, os.Chmod(path, 0600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version:    dev")
	assert.Contains(t, out, "Commit:")
}

func TestConfigCmd(t *testing.T) {
	dir := setupHome(t)
	path := writeConfig(t, dir, `
chain:
  max_depth: 4
coherence:
  enabled: true
  api_key: sk-abcdefghijklmnop
logging:
  level: debug
telemetry:
  service_name: thinkd-test
`)
	t.Setenv("FEATURES_MCP_DEBUG", "true")

	out, err := execute(t, "config", "--config", path)
	require.NoError(t, err)
	assert.NotContains(t, out, "sk-abcdefghijklmnop")

	var got struct {
		Chain struct {
			MaxDepth int `json:"maxDepth"`
		} `json:"chain"`
		Features struct {
			MCPDebug bool `json:"mcpDebug"`
		} `json:"features"`
		Coherence struct {
			APIKey string
		} `json:"coherence"`
		Logging struct {
			Level string
		} `json:"logging"`
		Telemetry struct {
			ServiceName string
		} `json:"telemetry"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 4, got.Chain.MaxDepth)
	assert.True(t, got.Features.MCPDebug)
	assert.Equal(t, "[REDACTED]", got.Coherence.APIKey)
	assert.Equal(t, "debug", got.Logging.Level)
	assert.Equal(t, "thinkd-test", got.Telemetry.ServiceName)
}

func TestConfigCmd_Init(t *testing.T) {
	dir := setupHome(t)
	_, err := execute(t, "config", "--init")
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLoadEffective_RejectsInvalidSections(t *testing.T) {
	tests := map[string]string{
		"logging":   "logging:\n  format: xml\n",
		"telemetry": "telemetry:\n  enabled: true\n  protocol: carrier-pigeon\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			dir := setupHome(t)
			path := writeConfig(t, dir, content)
			_, err := loadEffective(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), name)
		})
	}
}

func TestNewApp(t *testing.T) {
	setupHome(t)
	eff, err := loadEffective("")
	require.NoError(t, err)
	eff.Logging.Output.Stderr = false
	eff.Logging.Output.OTEL = true
	eff.Server.HTTPEnabled = true
	eff.Coherence.Enabled = true
	eff.Embeddings.Enabled = true

	ctx := context.Background()
	a, err := newApp(ctx, eff)
	require.NoError(t, err)
	t.Cleanup(a.close)
	require.NotNil(t, a.http)

	serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()
	ss, err := a.mcp.Connect(ctx, serverTransport)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })

	res, err := cs.CallTool(ctx, &sdkmcp.CallToolParams{
		Name: "sequentialThought",
		Arguments: map[string]any{
			"thoughtNumber":     1,
			"totalThoughts":     2,
			"content":           "start",
			"nextThoughtNeeded": true,
			"confidence":        0.6,
			"sessionId":         "wired",
		},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	rec := httptest.NewRecorder()
	a.http.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/wired", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewScorers(t *testing.T) {
	setupHome(t)
	eff, err := loadEffective("")
	require.NoError(t, err)

	scorers, err := newScorers(eff, zap.NewNop())
	require.NoError(t, err)
	assert.Empty(t, scorers)

	eff.Coherence.Enabled = true
	eff.Embeddings.Enabled = true
	scorers, err = newScorers(eff, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, scorers, 2)
	assert.Equal(t, "coherence", scorers[0].Name())
	assert.Equal(t, "similarity", scorers[1].Name())

	eff.Coherence.BaseURL = ""
	_, err = newScorers(eff, zap.NewNop())
	assert.Error(t, err)
}
