// CLI integration tests: the shelf binary driven end to end against
// an isolated sqlite environment.
package integration

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// TestMain builds the shelf binary once before running tests.
func TestMain(m *testing.M) {
	projectRoot, err := findProjectRoot()
	if err != nil {
		buildErr = err
		os.Exit(m.Run())
	}

	tmpDir, err := os.MkdirTemp("", "shelf-test-*")
	if err != nil {
		buildErr = err
		os.Exit(m.Run())
	}
	shelfBin = filepath.Join(tmpDir, "shelf")

	cmd := exec.Command("go", "build", "-o", shelfBin, "./cmd/shelf")
	cmd.Dir = projectRoot
	if output, err := cmd.CombinedOutput(); err != nil {
		buildErr = fmt.Errorf("%w: %s", err, output)
	}

	code := m.Run()
	os.RemoveAll(tmpDir)
	os.Exit(code)
}

func TestCLIInit(t *testing.T) {
	env := NewTestEnv(t)

	res := env.MustRun("init")
	if !strings.Contains(res.Stdout, "Initialized") {
		t.Errorf("unexpected init output: %q", res.Stdout)
	}
	if _, err := os.Stat(filepath.Join(env.DataDir, "shelf.db")); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestCLITableRoundTrip(t *testing.T) {
	env := NewTestEnv(t)

	env.MustRun("schema", "create", "users", "--fields", "name,email")

	res := env.MustRun("insert", "users",
		"--field", "name=ada", "--field", "email=ada@example.com", "--json")
	var inserted map[string]string
	if err := json.Unmarshal([]byte(res.Stdout), &inserted); err != nil {
		t.Fatalf("parsing insert output %q: %v", res.Stdout, err)
	}
	if inserted["id"] != "1" {
		t.Errorf("expected id 1, got %q", inserted["id"])
	}

	res = env.MustRun("get", "users", "1")
	if !strings.Contains(res.Stdout, "name: ada") {
		t.Errorf("get output missing field: %q", res.Stdout)
	}

	res = env.MustRun("find", "users", "name", "ada", "--json")
	var rows []struct {
		ID   string            `json:"id"`
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal([]byte(res.Stdout), &rows); err != nil {
		t.Fatalf("parsing find output %q: %v", res.Stdout, err)
	}
	if len(rows) != 1 || rows[0].ID != "1" {
		t.Errorf("unexpected find result: %+v", rows)
	}

	env.MustRun("update", "users", "1", "--field", "email=new@example.com")
	res = env.MustRun("get", "users", "1")
	if !strings.Contains(res.Stdout, "email: new@example.com") {
		t.Errorf("update not reflected: %q", res.Stdout)
	}

	res = env.MustRun("count", "users")
	if strings.TrimSpace(res.Stdout) != "1" {
		t.Errorf("expected count 1, got %q", res.Stdout)
	}

	env.MustRun("delete", "users", "1")
	res = env.Run("get", "users", "1")
	if res.ExitCode != 1 {
		t.Errorf("expected exit 1 for absent row, got %d (stderr %q)", res.ExitCode, res.Stderr)
	}
}

func TestCLISchemaErrors(t *testing.T) {
	env := NewTestEnv(t)

	env.MustRun("schema", "create", "t", "--fields", "a")

	// Re-creating is a user error.
	res := env.Run("schema", "create", "t", "--fields", "a")
	if res.ExitCode != 1 {
		t.Errorf("expected exit 1 for duplicate schema, got %d", res.ExitCode)
	}

	// Inserting with a wrong field set is a user error.
	res = env.Run("insert", "t", "--field", "b=1")
	if res.ExitCode != 1 {
		t.Errorf("expected exit 1 for field mismatch, got %d", res.ExitCode)
	}

	env.MustRun("schema", "drop", "t")
	res = env.Run("schema", "show", "t")
	if res.ExitCode != 1 {
		t.Errorf("expected exit 1 for dropped table, got %d", res.ExitCode)
	}
}

func TestCLICountByEmptyValue(t *testing.T) {
	env := NewTestEnv(t)

	env.MustRun("schema", "create", "t", "--fields", "a")
	env.MustRun("insert", "t", "--field", "a=")
	env.MustRun("insert", "t", "--field", "a=x")

	// The empty string is a legal value to count by.
	res := env.MustRun("count", "t", "--by-field", "a", "--value", "")
	if strings.TrimSpace(res.Stdout) != "1" {
		t.Errorf("expected count 1 for empty value, got %q", res.Stdout)
	}

	res = env.Run("count", "t", "--by-field", "a")
	if res.ExitCode != 1 {
		t.Errorf("expected exit 1 for --by-field without --value, got %d", res.ExitCode)
	}
}

func TestCLITablesList(t *testing.T) {
	env := NewTestEnv(t)

	env.MustRun("schema", "create", "aa", "--fields", "x")
	env.MustRun("schema", "create", "bb", "--fields", "y")

	res := env.MustRun("tables", "--json")
	var names []string
	if err := json.Unmarshal([]byte(res.Stdout), &names); err != nil {
		t.Fatalf("parsing tables output %q: %v", res.Stdout, err)
	}
	if len(names) != 2 {
		t.Errorf("expected 2 tables, got %v", names)
	}
}

func TestCLISessionLifecycle(t *testing.T) {
	env := NewTestEnv(t)

	res := env.MustRun("session", "create", "--subject", "u1", "--ttl", "1h")
	id := strings.TrimSpace(res.Stdout)
	if id == "" {
		t.Fatal("expected a session id")
	}

	res = env.MustRun("session", "get", id)
	if strings.TrimSpace(res.Stdout) != "u1" {
		t.Errorf("expected subject u1, got %q", res.Stdout)
	}

	env.MustRun("session", "refresh", id, "--ttl", "2h")
	env.MustRun("session", "delete", id)

	res = env.Run("session", "get", id)
	if res.ExitCode != 1 {
		t.Errorf("expected exit 1 for deleted session, got %d", res.ExitCode)
	}
}
