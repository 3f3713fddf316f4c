package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRun_Usage(t *testing.T) {
	var out bytes.Buffer

	err := run(context.Background(), nil, &out)
	assert.ErrorIs(t, err, errUsage)

	err = run(context.Background(), []string{"explode"}, &out)
	assert.ErrorIs(t, err, errUsage)
}

func TestRunToken_HashesGivenSecret(t *testing.T) {
	var out bytes.Buffer

	err := run(context.Background(), []string{"token", "-secret", "s3cret", "-cost", "4", "-json"}, &out)
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "s3cret", got["token"])
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(got["token_hash"]), []byte("s3cret")))
}

func TestRunToken_Generates(t *testing.T) {
	var out bytes.Buffer

	require.NoError(t, run(context.Background(), []string{"token", "-cost", "4", "-json"}, &out))

	var got map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Len(t, got["token"], 64)
}

func TestRun_SeedAndResyncOnSQLite(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "fest.sqlite"))

	catalog := filepath.Join(dir, "catalog.hcl")
	require.NoError(t, os.WriteFile(catalog, []byte(`
house "Rajputs" {}

event "Solo Song" {
  participation_mode = "Individual"
}

participant "RJ-01" {
  full_name = "Asha Rao"
  house     = "Rajputs"
}
`), 0o600))

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"seed", catalog}, &out))
	assert.Contains(t, out.String(), `"participants": 1`)

	out.Reset()
	require.NoError(t, run(context.Background(), []string{"close"}, &out))
	assert.Contains(t, out.String(), `"updated": 1`)

	out.Reset()
	require.NoError(t, run(context.Background(), []string{"resync"}, &out))
	assert.Contains(t, out.String(), `"participants": 1`)

	err := run(context.Background(), []string{"seed"}, &out)
	assert.ErrorIs(t, err, errUsage)
}
