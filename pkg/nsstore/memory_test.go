package nsstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CreateGetRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	err := s.Create(ctx, &Entry{Inode: 10, ParentInode: 1, Name: "foo", Type: TypeRegular}, true)
	require.NoError(t, err)

	got, err := s.Get(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "foo", got.Name)
	assert.Equal(t, uint32(1), got.Nlink)
}

func TestMemoryStore_CreateExclusiveFailsOnExisting(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, &Entry{Inode: 10, ParentInode: 1, Name: "foo", Type: TypeRegular}, true))

	err := s.Create(ctx, &Entry{Inode: 11, ParentInode: 1, Name: "foo", Type: TypeRegular}, true)
	assert.Error(t, err)
}

func TestMemoryStore_GetChild(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, &Entry{Inode: 10, ParentInode: 1, Name: "foo", Type: TypeRegular}, true))

	got, err := s.GetChild(ctx, 1, "foo")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), got.Inode)

	_, err = s.GetChild(ctx, 1, "missing")
	assert.Error(t, err)
}

func TestMemoryStore_ListChildrenPagination(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for i := uint64(2); i <= 6; i++ {
		require.NoError(t, s.Create(ctx, &Entry{Inode: i, ParentInode: 1, Name: string(rune('a' + i)), Type: TypeRegular}, true))
	}

	page1, cookie1, err := s.ListChildren(ctx, 1, 0, 2)
	require.NoError(t, err)
	assert.Len(t, page1, 2)

	page2, _, err := s.ListChildren(ctx, 1, cookie1, 10)
	require.NoError(t, err)
	assert.Len(t, page2, 3)
}

func TestMemoryStore_DeleteFailsOnNonEmptyDir(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, &Entry{Inode: 10, ParentInode: 1, Name: "dir", Type: TypeDirectory}, true))
	require.NoError(t, s.Create(ctx, &Entry{Inode: 11, ParentInode: 10, Name: "child", Type: TypeRegular}, true))

	err := s.Delete(ctx, 1, "dir")
	assert.Error(t, err)

	require.NoError(t, s.Delete(ctx, 10, "child"))
	require.NoError(t, s.Delete(ctx, 1, "dir"))
}

func TestMemoryStore_MoveRelocatesEntry(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, &Entry{Inode: 10, ParentInode: 1, Name: "dira", Type: TypeDirectory}, true))
	require.NoError(t, s.Create(ctx, &Entry{Inode: 11, ParentInode: 1, Name: "dirb", Type: TypeDirectory}, true))
	require.NoError(t, s.Create(ctx, &Entry{Inode: 12, ParentInode: 10, Name: "file", Type: TypeRegular}, true))

	require.NoError(t, s.Move(ctx, 12, 11, "file", false))

	_, err := s.GetChild(ctx, 10, "file")
	assert.Error(t, err)
	got, err := s.GetChild(ctx, 11, "file")
	require.NoError(t, err)
	assert.Equal(t, uint64(12), got.Inode)
}

func TestMemoryStore_IncDecNlink(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, &Entry{Inode: 10, ParentInode: 1, Name: "foo", Type: TypeRegular}, true))

	n, err := s.IncNlink(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), n)

	n, err = s.DecNlink(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), n)
}

func TestMemoryStore_Quota(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.SetUsage(100, 200, 1, QuotaUsage{UsedInodes: 5, UsedBytes: 1024})

	u, err := s.Quota(ctx, 100, 200, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), u.UsedInodes)
}
