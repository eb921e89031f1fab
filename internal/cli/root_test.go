package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dmitrijs2005/t3vo/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRoot(t *testing.T, a *App, args ...string) error {
	t.Helper()
	if args == nil {
		// cobra falls back to os.Args on nil
		args = []string{}
	}
	cmd := NewRootCommand(a)
	cmd.SetArgs(args)
	cmd.SetOut(a.out)
	cmd.SetErr(a.out)
	return cmd.ExecuteContext(context.Background())
}

func TestRootCommand_Records(t *testing.T) {
	a, out := newTestApp(t, testConfig(t), "correct-horse")

	feed(a, "Go", "https://go.dev", "")
	require.NoError(t, runRoot(t, a, "add", "bookmark"))
	id := onlyID(t, a, models.Bookmarks)

	out.Reset()
	require.NoError(t, runRoot(t, a, "ls", "bookmarks", "--sort", "updated"))
	assert.Contains(t, out.String(), id)

	out.Reset()
	require.NoError(t, runRoot(t, a, "show", "bookmarks", id))
	assert.Contains(t, out.String(), "https://go.dev")

	require.NoError(t, runRoot(t, a, "delete", "bookmarks", id, "--force"))
	out.Reset()
	require.NoError(t, runRoot(t, a, "list", "bookmarks"))
	assert.Contains(t, out.String(), "0 bookmarks")
}

func TestRootCommand_ArgumentErrors(t *testing.T) {
	a, _ := newTestApp(t, testConfig(t), "correct-horse")

	assert.Error(t, runRoot(t, a, "show", "notes"))
	assert.ErrorContains(t, runRoot(t, a, "list", "cards"), "unknown collection")
	assert.ErrorContains(t, runRoot(t, a, "list", "notes", "--sort", "size"), "unknown sort order")
	assert.ErrorContains(t, runRoot(t, a, "restore", "missing", "--target", "file"), "not found")
}

func TestRootCommand_BackupList(t *testing.T) {
	a, out := newTestApp(t, testConfig(t), "correct-horse")

	require.NoError(t, runRoot(t, a, "backup", "weekly"))
	out.Reset()
	require.NoError(t, runRoot(t, a, "backup", "--list"))
	assert.Contains(t, out.String(), "weekly.t3vo.json")
	assert.Contains(t, out.String(), "1 backup(s)")
}

func TestRootCommand_Shell(t *testing.T) {
	a, out := newTestApp(t, testConfig(t), "correct-horse")

	feed(a, "add note", "From shell", "line", "", "", "list notes", "exit")
	require.NoError(t, runRoot(t, a))
	assert.Contains(t, out.String(), "t3vo (type 'help' for commands)")
	assert.Contains(t, out.String(), "From shell")
	assert.Contains(t, out.String(), "1 notes")
	assert.Contains(t, out.String(), "Bye!")
}

func TestExecute_ConfigFileAndFlags(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "vaults")
	cfgFile := filepath.Join(dir, "t3vo.toml")
	toml := fmt.Sprintf(`data_dir = %q

[kdf]
memory_kib = 1024
iterations = 1
parallelism = 1

[log]
level = "error"
`, filepath.Join(dir, "ignored"))
	require.NoError(t, os.WriteFile(cfgFile, []byte(toml), 0o600))
	t.Setenv(PassphraseEnv, "correct-horse")

	var out, errOut bytes.Buffer
	err := Execute(context.Background(),
		[]string{"-c", cfgFile, "-d", dataDir, "list", "notes"},
		strings.NewReader(""), &out, &errOut)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Created new database")
	assert.Contains(t, out.String(), "0 notes")

	entries, err := os.ReadDir(dataDir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
	assert.NoDirExists(t, filepath.Join(dir, "ignored"))
}
