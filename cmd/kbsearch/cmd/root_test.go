package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kberrors "github.com/Aman-CERP/kbsearch/internal/errors"
)

// cliEnv isolates configuration, registry, indexes and logs in a temp dir.
type cliEnv struct {
	dir string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("KBSEARCH_REGISTRY", filepath.Join(dir, "config", "knowledge-bases.yaml"))
	t.Setenv("KBSEARCH_DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("KBSEARCH_WORKERS", "2")
	return &cliEnv{dir: dir}
}

// run executes one CLI invocation and returns its combined output.
func (c *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a := &app{workDir: c.dir}
	defer a.teardown()

	cmd := newRootCmd(a)
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// docs writes files under a new directory and returns its path.
func (c *cliEnv) docs(t *testing.T, name string, files map[string]string) string {
	t.Helper()
	root := filepath.Join(c.dir, name)
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestRootCmd_CommandTable(t *testing.T) {
	// Given: the root command
	cmd := NewRootCmd()

	// When: listing subcommands
	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}

	// Then: every command is registered
	for _, want := range []string{"add", "remove", "enable", "disable", "list", "info", "index", "search", "status", "serve", "version"} {
		assert.Contains(t, names, want)
	}
	assert.NotNil(t, cmd.PersistentFlags().Lookup("debug"))
}

func TestRootCmd_VersionFlag(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "--version")

	require.NoError(t, err)
	assert.Contains(t, out, "kbsearch version")
}

func TestRootCmd_InvalidProjectConfig(t *testing.T) {
	// Given: a project config with an invalid BM25 parameter
	env := newCLIEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.dir, ".kbsearch.yaml"), []byte("bm25:\n  b: 3\n"), 0o644))

	// When
	_, err := env.run(t, "list")

	// Then
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestRootCmd_DebugLogsToFile(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "--debug", "list")

	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(env.dir, ".kbsearch", "logs", "kbsearch.log"))
}

func TestReportError(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "text",
			args: []string{"search", "x"},
			want: "Error: knowledge base \"ghost\" not found\n  Hint: run 'kbsearch list' to see registered knowledge bases\n  Code: ERR_302_KB_NOT_FOUND\n",
		},
		{
			name: "json",
			args: []string{"search", "x", "--format", "json"},
			want: `"code":"ERR_302_KB_NOT_FOUND"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a parsed search command
			cmd := newSearchCmd(&app{})
			require.NoError(t, cmd.ParseFlags(tt.args[2:]))
			buf := &bytes.Buffer{}
			cmd.SetErr(buf)

			// When
			reportError(cmd, kberrors.NotFoundError("ghost"))

			// Then
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}
