package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/diskstore"
	"github.com/hupe1980/diskstore/document"
	"github.com/hupe1980/diskstore/persistence"
	"github.com/hupe1980/diskstore/schema"
)

func seed(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	ds, err := diskstore.Open(ctx, "app", diskstore.WithDir(dir))
	require.NoError(t, err)
	require.NoError(t, ds.RegisterCollection(ctx, "user", schema.Schema{
		"id":   {Type: schema.TypeInteger, PrimaryKey: true, AutoIncrement: true},
		"name": {Type: schema.TypeString},
		"age":  {Type: schema.TypeInteger},
	}))
	_, err = ds.InsertEach(ctx, "user", []document.Record{
		document.MustRecord(map[string]any{"name": "ann", "age": 31}),
		document.MustRecord(map[string]any{"name": "bob", "age": 17}),
		document.MustRecord(map[string]any{"name": "cid", "age": 45}),
	})
	require.NoError(t, err)
	require.NoError(t, ds.Close())
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func TestCollections(t *testing.T) {
	dir := seed(t)
	out, err := run(t, "collections", "app", "--dir", dir)
	require.NoError(t, err)
	assert.Equal(t, "user\t3\n", out)
}

func TestDescribe(t *testing.T) {
	dir := seed(t)
	out, err := run(t, "describe", "app", "user", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, `"primaryKey": true`)
	assert.Contains(t, out, `"id": 3`)
}

func TestFind(t *testing.T) {
	dir := seed(t)
	out, err := run(t, "find", "app", "user", "--dir", dir,
		"--where", `{"age":{">=":18}}`, "--sort", "age desc", "--select", "name")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"cid"`)
	assert.Contains(t, lines[1], `"ann"`)
	assert.NotContains(t, out, `"age"`)
}

func TestCount(t *testing.T) {
	dir := seed(t)
	out, err := run(t, "count", "app", "user", "--dir", dir, "--where", `{"name":{"like":"%n%"}}`)
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)
}

func TestInvalidWhere(t *testing.T) {
	dir := seed(t)
	_, err := run(t, "count", "app", "user", "--dir", dir, "--where", `{"age":{"between":1}}`)
	require.ErrorIs(t, err, diskstore.ErrInvalidCriteriaOperator)

	_, err = run(t, "count", "app", "user", "--dir", dir, "--where", `{`)
	require.Error(t, err)
}

func TestMissingSnapshot(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, "collections", "nope", "--dir", dir)
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "nope.db"))
	assert.True(t, os.IsNotExist(statErr), "inspection must not create snapshots")
}

func TestConvertInPlace(t *testing.T) {
	dir := seed(t)
	key := bytes.Repeat([]byte{7}, persistence.KeySize)

	out, err := run(t, "convert", "app", "--dir", dir,
		"--codec", "bson", "--compression", "zstd", "--new-key", hex.EncodeToString(key))
	require.NoError(t, err)
	assert.Contains(t, out, "app.db:")

	_, err = run(t, "count", "app", "user", "--dir", dir)
	require.Error(t, err, "encrypted snapshot needs the key")

	out, err = run(t, "count", "app", "user", "--dir", dir, "--key", hex.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)
}

func TestConvertToFile(t *testing.T) {
	dir := seed(t)
	target := filepath.Join(t.TempDir(), "copy.db")

	_, err := run(t, "convert", "app", "--dir", dir, "--compression", "lz4", "-o", target, "--rate", "1048576")
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	h, _, err := persistence.ReadHeader(data)
	require.NoError(t, err)
	assert.Equal(t, persistence.CompressionLZ4, h.Compression)

	snap, err := persistence.Decode(data, nil)
	require.NoError(t, err)
	assert.Len(t, snap.Data["user"], 3)
}

func TestConvertRejectsUnknownCodec(t *testing.T) {
	dir := seed(t)
	_, err := run(t, "convert", "app", "--dir", dir, "--codec", "xml")
	require.Error(t, err)
}
