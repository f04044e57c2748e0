package cmd

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBackend struct {
	mu    sync.Mutex
	paths []string
}

func (b *recordingBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.paths = append(b.paths, r.Method+" "+r.URL.Path)
	b.mu.Unlock()
	switch r.URL.Path {
	case "/api/get-workloads", "/api/active-workloads":
		_, _ = w.Write([]byte(`[]`))
	default:
		_, _ = w.Write([]byte(`0`))
	}
}

func (b *recordingBackend) received() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string{}, b.paths...)
}

func execute(t *testing.T, args ...string) error {
	t.Cleanup(viper.Reset)
	cmd := RootCmd()
	cmd.SetArgs(args)
	return cmd.Execute()
}

func TestOneShotCommands_UseConfigFile(t *testing.T) {
	tests := map[string]struct {
		args         []string
		expectedPath string
	}{
		"list":           {args: []string{"workloads", "list"}, expectedPath: "GET /api/get-workloads"},
		"active":         {args: []string{"workloads", "active"}, expectedPath: "GET /api/active-workloads"},
		"active as yaml": {args: []string{"workloads", "active", "-o", "yaml"}, expectedPath: "GET /api/active-workloads"},
		"create table":   {args: []string{"admin", "create-table"}, expectedPath: "GET /api/create-table"},
		"truncate table": {args: []string{"admin", "truncate-table"}, expectedPath: "GET /api/truncate-table"},
		"simulate":       {args: []string{"admin", "simulate", "updates", "2", "10"}, expectedPath: "GET /api/simulate-updates/2/10"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			backend := &recordingBackend{}
			server := httptest.NewServer(backend)
			defer server.Close()

			configFile := filepath.Join(t.TempDir(), "loadscope.yaml")
			require.NoError(t, os.WriteFile(configFile, []byte("resultsService:\n  url: "+server.URL+"\n"), 0o600))

			require.NoError(t, execute(t, append(tc.args, "--config", configFile)...))
			assert.Equal(t, []string{tc.expectedPath}, backend.received())
		})
	}
}

func TestOneShotCommands_UrlFlagWins(t *testing.T) {
	backend := &recordingBackend{}
	server := httptest.NewServer(backend)
	defer server.Close()

	configFile := filepath.Join(t.TempDir(), "loadscope.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("resultsService:\n  url: http://localhost:1\n"), 0o600))

	require.NoError(t, execute(t, "workloads", "list", "--config", configFile, "--resultsUrl", server.URL))
	assert.Equal(t, []string{"GET /api/get-workloads"}, backend.received())
}

func TestArgumentErrors(t *testing.T) {
	tests := map[string][]string{
		"simulate threads not a number": {"admin", "simulate", "updates", "many", "10"},
		"simulate missing requests":     {"admin", "simulate", "updates", "4"},
		"invoke without id":             {"workloads", "invoke"},
		"serve with arguments":          {"serve", "now"},
		"unknown output format":         {"workloads", "list", "-o", "xml"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, execute(t, args...))
		})
	}
}

func TestVersionCommand(t *testing.T) {
	assert.NoError(t, execute(t, "version"))
}
