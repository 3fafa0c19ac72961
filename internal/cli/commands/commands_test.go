package commands

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-iacgen/pkg/forminput"
	"github.com/goliatone/go-iacgen/pkg/testsupport"
)

const echoCatalog = `
routes:
  - id: echo
    path: /tools/echo
    title: Echo
    group: testing
    request:
      path: /echo
    response: json
    filename: "{{ body.name }}.txt"
    form:
      fields:
        - name: name
          type: string
          required: true
        - name: env
          type: select
          default: dev
          options:
            - {label: Development, value: dev}
            - {label: Production, value: prod}
`

type cliEnv struct {
	server *testsupport.Server
	output string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	work := t.TempDir()
	t.Chdir(work)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	catalogDir := filepath.Join(work, "catalog")
	require.NoError(t, os.MkdirAll(catalogDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(catalogDir, "echo.yaml"), []byte(echoCatalog), 0o644))

	srv := testsupport.NewServer(t)
	output := filepath.Join(work, "out")
	require.NoError(t, os.MkdirAll(output, 0o755))

	t.Setenv("IACGEN_GENERATOR_URL", srv.URL)
	t.Setenv("IACGEN_TEMPLATES_URL", srv.URL+"/templates")
	t.Setenv("IACGEN_CATALOG_DIR", catalogDir)
	t.Setenv("IACGEN_OUTPUT_DIR", output)
	t.Setenv("IACGEN_AUTH_SESSION_FILE", filepath.Join(work, "session.json"))
	return &cliEnv{server: srv, output: output}
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(""))
	err := run(root, append(args, "--no-color"), &stderr)
	return stdout.String(), stderr.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "iacgen version: dev")
}

func TestListCommand(t *testing.T) {
	newCLIEnv(t)

	out, _, err := execute(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "echo")
	assert.Contains(t, out, "/tools/echo")

	_, stderr, err := execute(t, "list", "nope")
	require.Error(t, err)
	assert.Contains(t, stderr, `no generators in group "nope"`)
}

func TestShowCommand(t *testing.T) {
	newCLIEnv(t)

	out, _, err := execute(t, "show", "/tools/echo")
	require.NoError(t, err)
	assert.Contains(t, out, "POST generator/echo")
	assert.Contains(t, out, "dev, prod")

	_, _, err = execute(t, "show", "missing")
	assert.Error(t, err)
}

func TestGenerateSavesArtifact(t *testing.T) {
	env := newCLIEnv(t)
	env.server.JSON("POST", "/echo", 200, map[string]any{"output": "hello"})

	out, stderr, err := execute(t, "generate", "echo", "--set", "name=demo", "--no-input")
	require.NoError(t, err, stderr)
	assert.Contains(t, out, "Saved")

	data, err := os.ReadFile(filepath.Join(env.output, "demo.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	reqs := env.server.RequestsTo("/echo")
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `{"name":"demo","env":"dev"}`, string(reqs[0].Body))
}

func TestGenerateValuesFileToStdout(t *testing.T) {
	env := newCLIEnv(t)
	env.server.JSON("POST", "/echo", 200, map[string]any{"output": "from file"})
	values := filepath.Join(t.TempDir(), "values.yaml")
	require.NoError(t, os.WriteFile(values, []byte("name: demo\nenv: Production\n"), 0o644))

	out, _, err := execute(t, "generate", "/tools/echo", "-f", values, "--stdout", "--no-input")
	require.NoError(t, err)
	assert.Equal(t, "from file", out)

	reqs := env.server.RequestsTo("/echo")
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `{"name":"demo","env":"prod"}`, string(reqs[0].Body))
}

func TestGenerateInvalidInputMakesNoRequest(t *testing.T) {
	env := newCLIEnv(t)

	_, stderr, err := execute(t, "generate", "echo", "--no-input")
	require.ErrorIs(t, err, ErrReported)
	assert.Contains(t, stderr, "name is required")
	assert.Empty(t, env.server.Requests())
}

func TestGenerateServerValidationError(t *testing.T) {
	env := newCLIEnv(t)
	env.server.JSON("POST", "/echo", 422, map[string]any{
		"detail": []map[string]any{
			{"type": "value_error", "loc": []string{"body", "name"}, "msg": "Name is taken"},
		},
	})

	_, stderr, err := execute(t, "generate", "echo", "--set", "name=demo", "--no-input")
	require.True(t, errors.Is(err, ErrReported))
	assert.Contains(t, stderr, "name Name is taken")
	entries, readErr := os.ReadDir(env.output)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestGenerateUnknownField(t *testing.T) {
	newCLIEnv(t)

	_, stderr, err := execute(t, "generate", "echo", "--set", "nmae=demo", "--no-input")
	require.Error(t, err)
	assert.Contains(t, stderr, `unknown field "nmae"`)
}

func TestAuthCommandsWithoutProvider(t *testing.T) {
	newCLIEnv(t)

	_, stderr, err := execute(t, "login")
	require.Error(t, err)
	assert.Contains(t, stderr, "no identity provider configured")

	_, stderr, err = execute(t, "whoami")
	require.Error(t, err)
	assert.Contains(t, stderr, "iacgen login")

	out, _, err := execute(t, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out")
}

func TestMergeValuesKeepsGroupDefaults(t *testing.T) {
	base := forminput.Values{
		"name": "db",
		"tls":  forminput.Off(forminput.Values{"ca": "default-ca", "verify": true}),
		"pool": forminput.Values{"min": 1, "max": 10},
	}
	over := forminput.Values{
		"tls":  forminput.On(forminput.Values{"ca": "mine"}),
		"pool": forminput.Values{"max": 20},
	}

	got := mergeValues(base, over)

	want := forminput.Values{
		"name": "db",
		"tls":  forminput.On(forminput.Values{"ca": "mine", "verify": true}),
		"pool": forminput.Values{"min": 1, "max": 20},
	}
	assert.Equal(t, want, got)
	assert.Equal(t, forminput.Values{"min": 1, "max": 10}, base["pool"], "base is not modified")
}
