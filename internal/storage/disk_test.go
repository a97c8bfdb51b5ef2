package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"quotedesk/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDiskStorage(t *testing.T, dir string, cacheSize int) *DiskStorage {
	t.Helper()
	s := NewDiskStorage(dir, cacheSize)
	require.NoError(t, s.Init())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestDiskStorage(t *testing.T) {
	storageContract(t, func(t *testing.T) Storage {
		return newDiskStorage(t, t.TempDir(), 10)
	})
}

func TestDiskStorageLayout(t *testing.T) {
	dir := t.TempDir()
	s := newDiskStorage(t, dir, 10)

	for _, sub := range []string{"conversations", "messages", "orders", "backup"} {
		info, err := os.Stat(filepath.Join(dir, sub))
		require.NoError(t, err, sub)
		assert.True(t, info.IsDir(), sub)
	}
	assert.FileExists(t, filepath.Join(dir, "conversations.json"))

	require.NoError(t, s.CreateConversation(newConversation("c1", epoch)))
	require.NoError(t, s.AddMessage("c1", newMessage("m1", model.RoleUser, epoch)))
	require.NoError(t, s.SaveOrder(&model.OrderInquiry{OrderID: "ORD-1", Status: "created"}))

	assert.FileExists(t, filepath.Join(dir, "conversations", "c1.json"))
	assert.FileExists(t, filepath.Join(dir, "messages", "c1.json"))
	assert.FileExists(t, filepath.Join(dir, "orders", "ORD-1.json"))
	assert.NoFileExists(t, filepath.Join(dir, "conversations", "c1.json.tmp"))
}

func TestDiskStoragePersistsAcrossRestarts(t *testing.T) {
	dir := t.TempDir()

	first := newDiskStorage(t, dir, 10)
	conv := newConversation("c1", epoch)
	conv.Requirements = []model.Requirement{{FeatureID: "feat-008", FeatureName: "Data Migration", Required: true}}
	require.NoError(t, first.CreateConversation(conv))
	require.NoError(t, first.AddMessage("c1", newMessage("m1", model.RoleUser, epoch.Add(time.Second))))
	require.NoError(t, first.AddMessage("c1", newMessage("m2", model.RoleAssistant, epoch.Add(2*time.Second))))
	require.NoError(t, first.Close())

	second := newDiskStorage(t, dir, 10)
	got, err := second.GetConversation("c1")
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "m2", got.Messages[1].ID)
	require.Len(t, got.Requirements, 1)
	assert.Equal(t, "feat-008", got.Requirements[0].FeatureID)

	convs, err := second.ListConversations()
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "client-c1", convs[0].ClientID)
}

func TestDiskStorageCacheEviction(t *testing.T) {
	dir := t.TempDir()
	s := newDiskStorage(t, dir, 2)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.CreateConversation(newConversation(id, epoch.Add(time.Duration(i)*time.Hour))))
	}
	assert.Len(t, s.cache, 2)
	assert.NotContains(t, s.cache, "a")

	// evicted conversations are reloaded from disk
	got, err := s.GetConversation("a")
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)
	assert.Len(t, s.cache, 2)
}

func TestDiskStorageSkipsCorruptIndexEntries(t *testing.T) {
	dir := t.TempDir()
	s := newDiskStorage(t, dir, 10)
	require.NoError(t, s.CreateConversation(newConversation("good", epoch)))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "conversations", "bad.json"), []byte("{"), 0o644))
	require.NoError(t, s.CreateConversation(newConversation("other", epoch.Add(time.Hour))))

	convs, err := s.ListConversations()
	require.NoError(t, err)
	assert.Len(t, convs, 2)
}

func TestDiskStorageBackup(t *testing.T) {
	dir := t.TempDir()
	s := newDiskStorage(t, dir, 10)
	require.NoError(t, s.CreateConversation(newConversation("c1", epoch)))
	require.NoError(t, s.AddMessage("c1", newMessage("m1", model.RoleUser, epoch)))
	require.NoError(t, s.SaveOrder(&model.OrderInquiry{OrderID: "ORD-1", Status: "created"}))

	require.NoError(t, s.Backup())

	backups, err := os.ReadDir(filepath.Join(dir, "backup"))
	require.NoError(t, err)
	require.Len(t, backups, 1)

	root := filepath.Join(dir, "backup", backups[0].Name())
	assert.FileExists(t, filepath.Join(root, "conversations.json"))
	assert.FileExists(t, filepath.Join(root, "conversations", "c1.json"))
	assert.FileExists(t, filepath.Join(root, "messages", "c1.json"))
	assert.FileExists(t, filepath.Join(root, "orders", "ORD-1.json"))
}

func TestNewDiskStorageClampsCacheSize(t *testing.T) {
	assert.Equal(t, 1, NewDiskStorage(t.TempDir(), 0).cacheSize)
}
