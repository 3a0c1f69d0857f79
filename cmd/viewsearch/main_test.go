package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugr-lab/viewsearch/internal/serialize"
)

const testConfig = `
[[analyzers]]
name = "text_en"
type = "text"
properties = { locale = "en" }

[[views]]
name = "docs"
[views.root]
includeAllFields = true
[views.root.fields.body]
analyzers = ["identity", "text_en"]
`

const testDocs = `[
  {"_key": "1", "n": 1, "body": "quick fox"},
  {"_key": "2", "n": 2, "body": "lazy dog"},
  {"_key": "3", "n": 3, "body": "quick dog"}
]`

const gtOne = `{"kind":"gt","children":[{"kind":"attribute","path":"d.n"},{"kind":"value","value":1}]}`

func writeFiles(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := filepath.Join(dir, "views.toml")
	docs := filepath.Join(dir, "docs.json")
	require.NoError(t, os.WriteFile(cfg, []byte(testConfig), 0o644))
	require.NoError(t, os.WriteFile(docs, []byte(testDocs), 0o644))
	return cfg, docs
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func keys(t *testing.T, out string) []string {
	t.Helper()
	var keys []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		start := strings.Index(line, `"_key":"`)
		require.GreaterOrEqual(t, start, 0, line)
		rest := line[start+len(`"_key":"`):]
		keys = append(keys, rest[:strings.Index(rest, `"`)])
	}
	return keys
}

func TestSearchCommand(t *testing.T) {
	cfg, docs := writeFiles(t)

	out, err := run(t, "search", "-c", cfg, "--docs", docs, "--filter", gtOne)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3"}, keys(t, out))

	out, err = run(t, "search", "-c", cfg, "--docs", docs, "--sort", "n:desc", "--limit", "2")
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "2"}, keys(t, out))

	out, err = run(t, "search", "-c", cfg, "--docs", docs, "--score", "--filter",
		`{"kind":"call","name":"ANALYZER","children":[`+
			`{"kind":"eq","children":[{"kind":"attribute","path":"d.body"},{"kind":"value","value":"quick"}]},`+
			`{"kind":"value","value":"text_en"}]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, keys(t, out))
	assert.Contains(t, out, `"scores":{"tf":1}`)
}

func TestIndexCommand(t *testing.T) {
	cfg, docs := writeFiles(t)
	idx := filepath.Join(t.TempDir(), "docs.vsix")

	out, err := run(t, "index", "-c", cfg, "--docs", docs, "-o", idx)
	require.NoError(t, err)
	assert.Contains(t, out, "indexed 3 documents")

	out, err = run(t, "search", "-c", cfg, "--index", idx, "--filter", gtOne)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3"}, keys(t, out))
}

func TestArrowOutput(t *testing.T) {
	cfg, docs := writeFiles(t)

	out, err := run(t, "search", "-c", cfg, "--docs", docs, "--format", "arrow", "--column", "n")
	require.NoError(t, err)

	schema, records, err := serialize.ReadIPC(strings.NewReader(out), nil)
	require.NoError(t, err)
	defer func() {
		for _, r := range records {
			r.Release()
		}
	}()
	require.Len(t, records, 1)
	assert.Equal(t, int64(3), records[0].NumRows())
	assert.Equal(t, "n", schema.Field(schema.NumFields()-1).Name)
}

func TestExplainCommand(t *testing.T) {
	cfg, _ := writeFiles(t)

	out, err := run(t, "explain", "-c", cfg, "--filter", gtOne)
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(out))

	_, err = run(t, "explain", "-c", cfg, "--filter", `{"kind":"bogus"}`)
	assert.Error(t, err)
}

func TestCommandErrors(t *testing.T) {
	cfg, docs := writeFiles(t)

	_, err := run(t, "search", "--docs", docs)
	assert.Error(t, err, "config required")

	_, err = run(t, "search", "-c", cfg, "--view", "missing", "--docs", docs)
	assert.Error(t, err)

	_, err = run(t, "search", "-c", cfg, "--docs", docs, "--format", "xml")
	assert.Error(t, err)

	_, err = run(t, "search", "-c", cfg, "--log-level", "loud")
	assert.Error(t, err)

	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)
}
