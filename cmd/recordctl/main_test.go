package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/record-store/records"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	app.Reader = strings.NewReader(stdin)
	err := app.Run(append([]string{"recordctl"}, args...))
	return out.String(), err
}

func TestRecordctl_LocalLifecycle(t *testing.T) {
	dir := t.TempDir()
	local := []string{"--local-dir", dir}

	out, err := run(t, "", append(local, "exists", "profile")...)
	require.NoError(t, err)
	assert.Equal(t, "false\n", out)

	_, err = run(t, "", append(local, "exists", "--strict", "profile")...)
	assert.ErrorIs(t, err, records.ErrNotFound)

	_, err = run(t, "", append(local, "write", "--data", `{"name":"ada"}`, "profile")...)
	assert.ErrorIs(t, err, records.ErrNotFound)

	_, err = run(t, "", append(local, "write", "--create", "--data", `{"name":"ada"}`, "profile")...)
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(dir, "profile.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"ada"}`, string(content))

	out, err = run(t, "", append(local, "read", "profile.json")...)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"ada"}`, out)

	_, err = run(t, `{"name":"grace"}`, append(local, "write", "profile")...)
	require.NoError(t, err)

	out, err = run(t, "", append(local, "list")...)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"grace"}`, out)

	out, err = run(t, "", append(local, "path", "profile")...)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "profile.json")+"\n", out)

	_, err = run(t, "", append(local, "create", "profile")...)
	assert.ErrorIs(t, err, records.ErrAlreadyExists)

	_, err = run(t, "", append(local, "delete", "profile")...)
	require.NoError(t, err)

	out, err = run(t, "", append(local, "exists", "profile")...)
	require.NoError(t, err)
	assert.Equal(t, "false\n", out)
}

func TestRecordctl_YAMLFormat(t *testing.T) {
	dir := t.TempDir()
	args := []string{"--local-dir", dir, "--format", "yaml"}

	_, err := run(t, "name: ada\n", append(args, "write", "--create", "profile")...)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "profile.yaml"))
	require.NoError(t, err)

	out, err := run(t, "", append(args, "read", "profile")...)
	require.NoError(t, err)
	assert.Equal(t, "name: ada\n", out)
}

func TestRecordctl_RemoteOnlyHasNoPath(t *testing.T) {
	_, err := run(t, "", "--remote", "mem://scratch", "path", "profile")
	assert.ErrorIs(t, err, records.ErrInvalidMode)
}

func TestRecordctl_Errors(t *testing.T) {
	_, err := run(t, "", "list")
	assert.ErrorIs(t, err, records.ErrInvalidMode)

	_, err = run(t, "", "--local-dir", t.TempDir(), "--format", "toml", "list")
	assert.Error(t, err)

	_, err = run(t, "", "--local-dir", t.TempDir(), "read")
	assert.Error(t, err)
}
