package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin []byte, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetIn(bytes.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "ctxmix.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model:\n  table_bits: 12\n  orders: [0, 1, 2]\n"), 0o644))
	return path
}

func TestCompressDecompressFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)
	data := []byte(strings.Repeat("abracadabra, ", 400))
	src := filepath.Join(dir, "magic.txt")
	require.NoError(t, os.WriteFile(src, data, 0o644))

	_, _, err := execute(t, nil, "--config", cfg, "compress", src)
	require.NoError(t, err)
	packed, err := os.ReadFile(src + ".cmx")
	require.NoError(t, err)
	assert.Less(t, len(packed), len(data)/4)

	require.NoError(t, os.Remove(src))
	_, _, err = execute(t, nil, "decompress", src+".cmx", "--variant", "scalar")
	require.NoError(t, err)
	got, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	stdout, _, err := execute(t, nil, "info", src+".cmx")
	require.NoError(t, err)
	assert.Contains(t, stdout, "length:         5200")
	assert.Contains(t, stdout, "orders:         [0 1 2]")
	assert.Contains(t, stdout, "packed size:")
}

func TestStdinToStdout(t *testing.T) {
	data := []byte("stdin and stdout work without file names\n")
	packed, _, err := execute(t, data, "compress", "--log-level", "error")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(packed, "CMX1"))

	plain, _, err := execute(t, []byte(packed), "decompress", "-")
	require.NoError(t, err)
	assert.Equal(t, string(data), plain)
}

func TestLoggingFollowsLevel(t *testing.T) {
	_, stderr, err := execute(t, []byte("x"), "compress", "--log-level", "debug", "-o", "-")
	require.NoError(t, err)
	assert.Contains(t, stderr, "compress finished")
	assert.Contains(t, stderr, "level=DEBUG")

	_, stderr, err = execute(t, []byte("x"), "compress", "--log-level", "warn", "-o", "-")
	require.NoError(t, err)
	assert.Empty(t, stderr)
}

func TestMetricsFile(t *testing.T) {
	dir := t.TempDir()
	metrics := filepath.Join(dir, "cmpack.prom")
	_, _, err := execute(t, []byte("hello hello hello"), "compress", "-o", filepath.Join(dir, "h.cmx"),
		"--metrics-file", metrics, "--log-level", "error")
	require.NoError(t, err)

	text, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(text), `ctxmix_runs_total{op="compress",result="ok"} 1`)
	assert.Contains(t, string(text), `ctxmix_bytes_total{direction="in",op="compress"} 17`)
}

func TestFailures(t *testing.T) {
	dir := t.TempDir()
	notPacked := filepath.Join(dir, "plain.cmx")
	require.NoError(t, os.WriteFile(notPacked, []byte("just text"), 0o644))

	_, _, err := execute(t, nil, "decompress", notPacked, "--log-level", "error")
	assert.ErrorContains(t, err, "not a ctxmix stream")
	_, statErr := os.Stat(filepath.Join(dir, "plain"))
	assert.True(t, os.IsNotExist(statErr), "failed output is removed")

	_, _, err = execute(t, nil, "compress", notPacked, "-o", notPacked)
	assert.ErrorContains(t, err, "refusing to overwrite")

	_, _, err = execute(t, nil, "compress", "--variant", "mmx")
	assert.ErrorContains(t, err, "Variant")

	_, _, err = execute(t, nil, "info", filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
