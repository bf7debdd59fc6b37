package storage

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalBlobStoreUploadNoOverwrite(t *testing.T) {
	store, err := NewLocalBlobStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	path, err := store.Upload(ctx, "attachments", "inst-42/2026-08-31/a.pdf", []byte("%PDF-1.4"), "application/pdf", false)
	require.NoError(t, err)
	require.Equal(t, "inst-42/2026-08-31/a.pdf", path)

	_, err = store.Upload(ctx, "attachments", "inst-42/2026-08-31/a.pdf", []byte("other"), "application/pdf", false)
	require.Error(t, err)

	rc, err := store.Open(ctx, "attachments", "inst-42/2026-08-31/a.pdf")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, []byte("%PDF-1.4"), data)
}

func TestLocalBlobStoreDeleteBestEffort(t *testing.T) {
	store, err := NewLocalBlobStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Upload(ctx, "attachments", "unassigned/2026-08-31/b.pdf", []byte("x"), "application/pdf", false)
	require.NoError(t, err)

	// Deleting a mix of present and absent blobs succeeds.
	err = store.Delete(ctx, "attachments", []string{"unassigned/2026-08-31/b.pdf", "unassigned/2026-08-31/missing.pdf"})
	require.NoError(t, err)

	_, err = store.Open(ctx, "attachments", "unassigned/2026-08-31/b.pdf")
	require.Error(t, err)
}

func TestLocalBlobStoreRejectsEscapingPaths(t *testing.T) {
	store, err := NewLocalBlobStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Upload(context.Background(), "attachments", "../outside.pdf", []byte("x"), "application/pdf", false)
	require.Error(t, err)
}
