package persistence

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wabridge/internal/domain/entity"
	"wabridge/internal/infrastructure/logger"
)

func TestStoreFingerprintRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := New(dir, logger.NewNop())
	ctx := context.Background()

	fp, err := store.LoadFingerprint(ctx)
	require.NoError(t, err)
	assert.Nil(t, fp)

	want := &entity.Fingerprint{OS: "Windows", Product: "Chrome", Version: "120.0", EstablishedAt: time.Now(), RotationCount: 2}
	require.NoError(t, store.SaveFingerprint(ctx, want))

	got, err := store.LoadFingerprint(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.OS, got.OS)
	assert.Equal(t, want.RotationCount, got.RotationCount)
}

func TestStoreResetsUnknownVersion(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "activity.json"), []byte(`{"v":99,"value":{"sent":5}}`), 0o644))

	store := New(dir, logger.NewNop())
	counters, err := store.LoadActivity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), counters.Sent)
}

func TestStoreContactsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := New(dir, logger.NewNop())
	ctx := context.Background()

	contacts := map[string]*entity.ContactRecord{
		"123@s.whatsapp.net": {JID: "123@s.whatsapp.net", FirstSeen: time.Now(), TotalSent: 1},
	}
	require.NoError(t, store.SaveContacts(ctx, contacts))

	got, err := store.LoadContacts(ctx)
	require.NoError(t, err)
	require.Contains(t, got, "123@s.whatsapp.net")
	assert.Equal(t, 1, got["123@s.whatsapp.net"].TotalSent)
}
