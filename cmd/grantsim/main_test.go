package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/grant/pkg/diagnostics"
	"github.com/go-drift/grant/pkg/grant"
)

func TestRunCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camera.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
schema: v1.0.0
permissions: [camera]
initial:
  camera: denied
results:
  camera: [denied_always]
steps:
  - action: request
  - action: confirm_rationale
  - action: confirm_settings
`), 0o644))
	t.Setenv("GRANT_STORE", "file")
	t.Setenv("GRANT_STORE_PATH", filepath.Join(t.TempDir(), "state.yaml"))
	t.Setenv("GRANT_LOG_LEVEL", "error")

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs([]string{"run", "--metrics", path})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		runMetrics = false
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "dialog=rationale")
	assert.Contains(t, out.String(), "dialog=settings")
	assert.Contains(t, out.String(), "settings opened: 1")
	assert.Contains(t, out.String(), `grant_handler_transitions_total{from="rationale",op="rationale_confirmed",to="settings"} 1`)
	assert.Empty(t, errOut.String())
}

func TestPermissionsCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"permissions"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "NSCameraUsageDescription")
	assert.Contains(t, out.String(), string(grant.LocationAlways))
}

func TestWriteMetricsSkipsZeroSamples(t *testing.T) {
	m := diagnostics.NewMetricsSink()
	m.Transition(diagnostics.Transition{Op: "request", From: "hidden", To: "rationale"})

	var out bytes.Buffer
	require.NoError(t, writeMetrics(&out, m.Registry))
	assert.Equal(t, "metrics:\n  grant_handler_transitions_total{from=\"hidden\",op=\"request\",to=\"rationale\"} 1\n", out.String())
}
