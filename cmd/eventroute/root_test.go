package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const testRoutes = `
routes:
  - name: users
    kind: uri
    pattern: /users/{id}
    handler: print
  - kind: glob
    pattern: "order.*"
    handler: log
  - pattern: ping
    handler: discard
`

func writeRoutes(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "routes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testRoutes), 0o644))
	return path
}

// execute runs the CLI with args and returns stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--no-color"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "eventroute version dev")
}

func TestMatch_RequiresRoutes(t *testing.T) {
	_, err := execute(t, "", "match", "x")
	assert.ErrorIs(t, err, errNoRoutes)
}

func TestMatch_Table(t *testing.T) {
	path := writeRoutes(t)

	out, err := execute(t, "", "--routes", path, "match", "/users/42", "order.created", "nothing")
	require.NoError(t, err)

	assert.Contains(t, out, "users")
	assert.Contains(t, out, "id=42")
	assert.Contains(t, out, "glob:order.*")
	assert.Contains(t, out, "nothing")
}

func TestMatch_JSON(t *testing.T) {
	path := writeRoutes(t)

	out, err := execute(t, "", "--routes", path, "match", "--json", "ping", "/users/7", "nothing")
	require.NoError(t, err)
	require.True(t, gjson.Valid(out), out)

	doc := gjson.Parse(out)
	matches := doc.Get("matches").Array()
	require.Len(t, matches, 2)
	assert.Equal(t, "ping", matches[0].Get("key").String())
	assert.Equal(t, "exact", matches[0].Get("kind").String())
	assert.Equal(t, "users", matches[1].Get("route").String())
	assert.Equal(t, "7", matches[1].Get("params.id").String())
	assert.Equal(t, []any{"nothing"}, doc.Get("unmatched").Value())
}

func TestMatch_AsyncDispatch(t *testing.T) {
	path := writeRoutes(t)
	t.Setenv("EVENTROUTE_DISPATCH__MODE", "async")

	out, err := execute(t, "", "--routes", path, "match", "--json", "/users/1", "/users/2")
	require.NoError(t, err)

	keys := gjson.Get(out, "matches.#.key").Array()
	require.Len(t, keys, 2)
	assert.Equal(t, "/users/1", keys[0].String())
	assert.Equal(t, "/users/2", keys[1].String())
}

func TestMatch_BadConfig(t *testing.T) {
	t.Setenv("EVENTROUTE_DISPATCH__MODE", "sometimes")

	_, err := execute(t, "", "--routes", writeRoutes(t), "match", "x")
	assert.Error(t, err)
}

func TestWatch_RoutesStdin(t *testing.T) {
	path := writeRoutes(t)

	out, err := execute(t, "/users/5\n\nping\norder.x\nnowhere\n", "--routes", path, "watch")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1, "only the print handler writes to stdout")
	assert.True(t, strings.HasPrefix(lines[0], "/users/5\t"))
	assert.True(t, strings.HasSuffix(lines[0], "\tid=5"))
}

func TestWatch_Metrics(t *testing.T) {
	path := writeRoutes(t)
	t.Setenv("EVENTROUTE_METRICS__ENABLED", "true")

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader("ping\n"))
	cmd.SetArgs([]string{"--no-color", "--routes", path, "watch"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, errOut.String(), "eventroute_bus_notify_total 1")
	assert.Contains(t, errOut.String(), `eventroute_registry_lookups_total{path="direct"} 1`)
}
