package store

import (
	"testing"

	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutGetDelete(t *testing.T) {
	s := openStore(t)

	id, err := s.Put([]byte("ride one"))
	require.NoError(t, err)
	assert.NotEqual(t, ksuid.Nil, id)

	got, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, []byte("ride one"), got)

	require.NoError(t, s.Delete(id))

	_, err = s.Get(id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(id), ErrNotFound)
}

func TestGetUnknown(t *testing.T) {
	s := openStore(t)

	_, err := s.Get(ksuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	s := openStore(t)

	var ids []ksuid.KSUID
	for _, body := range []string{"a", "bb", "ccc"} {
		id, err := s.Put([]byte(body))
		require.NoError(t, err)
		ids = append(ids, id)
	}
	ksuid.Sort(ids)

	all, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, e := range all {
		assert.Equal(t, ids[len(ids)-1-i], e.ID)
	}

	sizes := map[ksuid.KSUID]int{}
	for _, e := range all {
		sizes[e.ID] = e.Size
	}
	got, err := s.Get(ids[0])
	require.NoError(t, err)
	assert.Equal(t, len(got), sizes[ids[0]])

	limited, err := s.List(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
	assert.Equal(t, all[:2], limited)
}

func TestListEmpty(t *testing.T) {
	s := openStore(t)

	entries, err := s.List(10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	id, err := s.Put([]byte("persisted"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	got, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), got)
}
