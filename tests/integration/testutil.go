// Package integration exercises the full stack end to end: the table,
// sorted-index, and session layers over real backends, and the shelf
// CLI as a built binary.
package integration

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/mesh-intelligence/shelf/pkg/store"
	"github.com/mesh-intelligence/shelf/pkg/table"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

var (
	// shelfBin is the path to the built shelf binary.
	shelfBin string
	// buildErr captures any build error from TestMain.
	buildErr error
)

// backends lists the store configurations every cross-backend test
// runs against. Redis is covered by its own env-gated backend tests.
func backends(t *testing.T) map[string]types.Config {
	t.Helper()
	return map[string]types.Config{
		"memory": {Backend: types.BackendMemory},
		"sqlite": {Backend: types.BackendSQLite, DataDir: t.TempDir()},
	}
}

// openBackend opens one backend and registers its cleanup.
func openBackend(t *testing.T, cfg types.Config) types.Store {
	t.Helper()
	st, err := store.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("opening %s backend: %v", cfg.Backend, err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// newTables wraps a backend in the table layer.
func newTables(st types.Store) *table.Store {
	return table.New(st)
}

// findProjectRoot walks up from the working directory to the go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

// TestEnv is an isolated config and data directory for CLI runs.
type TestEnv struct {
	t         *testing.T
	ConfigDir string
	DataDir   string
}

// NewTestEnv creates an isolated environment backed by sqlite.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	if buildErr != nil {
		t.Fatalf("failed to build shelf: %v", buildErr)
	}
	if shelfBin == "" {
		t.Fatal("shelf binary not built")
	}

	tempDir := t.TempDir()
	configDir := filepath.Join(tempDir, "config")
	dataDir := filepath.Join(tempDir, "data")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("creating config dir: %v", err)
	}
	content := "backend: sqlite\ndata_dir: " + dataDir + "\n"
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	return &TestEnv{t: t, ConfigDir: configDir, DataDir: dataDir}
}

// CmdResult holds one shelf command's output.
type CmdResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Run executes the shelf CLI against this environment.
func (e *TestEnv) Run(args ...string) CmdResult {
	e.t.Helper()

	allArgs := append([]string{"--config-dir", e.ConfigDir, "--data-dir", e.DataDir}, args...)
	cmd := exec.Command(shelfBin, allArgs...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	code := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		code = exitErr.ExitCode()
	} else if err != nil {
		e.t.Fatalf("running shelf %v: %v", args, err)
	}
	return CmdResult{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: code}
}

// MustRun executes the shelf CLI and fails the test on a nonzero exit.
func (e *TestEnv) MustRun(args ...string) CmdResult {
	e.t.Helper()
	res := e.Run(args...)
	if res.ExitCode != 0 {
		e.t.Fatalf("shelf %v exited %d\nstdout: %s\nstderr: %s",
			args, res.ExitCode, res.Stdout, res.Stderr)
	}
	return res
}
