package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableFormatterCollections(t *testing.T) {
	body := json.RawMessage(`{"mtree":[{"id":"1","name":"/data/col1/a"},{"id":"2","name":"/data/col1/b","size_bytes":2048}]}`)
	out := (&TableFormatter{}).Format(body)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"ID", "NAME", "SIZE_BYTES"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"1", "/data/col1/a"}, strings.Fields(lines[1]))
	assert.Contains(t, lines[2], "2.0 KiB")

	assert.Equal(t, "No resources found.\n", (&TableFormatter{}).Format(json.RawMessage(`{"exports":[]}`)))
}

func TestTableFormatterObject(t *testing.T) {
	out := (&TableFormatter{}).Format(json.RawMessage(`{"name":"/data/col1/a","clients":[{"name":"*"}]}`))
	assert.Contains(t, out, "clients:")
	assert.Contains(t, out, `[{"name":"*"}]`)
	assert.Contains(t, out, "name:")

	assert.Equal(t, "", (&TableFormatter{}).Format(json.RawMessage(``)))
	assert.Equal(t, "plain\n", (&TableFormatter{}).Format([]byte("plain")))
}

func TestNewFormatter(t *testing.T) {
	for _, f := range []string{"", "table", "JSON", "yaml"} {
		_, err := NewFormatter(f)
		assert.NoError(t, err, f)
	}
	_, err := NewFormatter("xml")
	assert.Error(t, err)

	j, _ := NewFormatter("json")
	assert.Equal(t, "{\n  \"a\": 1\n}\n", j.Format(json.RawMessage(`{"a":1}`)))
	y, _ := NewFormatter("yaml")
	assert.Equal(t, "a: 1\n", y.Format(json.RawMessage(`{"a":1}`)))
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadConfig(filepath.Join(dir, "missing.yaml"), nil)
	require.NoError(t, err)
	assert.Equal(t, &Config{Output: "table"}, cfg)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("host: dd01\npassword: pw\n"), 0o644))
	var warn strings.Builder
	cfg, err = LoadConfig(path, &warn)
	require.NoError(t, err)
	assert.Equal(t, "dd01", cfg.Host)
	assert.Equal(t, "table", cfg.Output)
	assert.Contains(t, warn.String(), "expected 0600")

	require.NoError(t, os.WriteFile(path, []byte("host: [unterminated\n"), 0o600))
	_, err = LoadConfig(path, nil)
	assert.Error(t, err)
}
