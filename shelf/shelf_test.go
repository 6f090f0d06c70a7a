package shelf_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkitektio/rekuest-next/shelf"
)

func TestShelf_PutGetRoundTrip(t *testing.T) {
	s := shelf.New()

	type cursor struct{ pos int }
	c := &cursor{pos: 3}

	key := s.Put(c)
	require.NotEmpty(t, key)

	got, err := s.Get(key)
	require.NoError(t, err)
	assert.Same(t, c, got)
}

func TestShelf_KeysAreUniquePerPut(t *testing.T) {
	s := shelf.New()
	k1 := s.Put(1)
	k2 := s.Put(1)
	assert.NotEqual(t, k1, k2, "two Puts of equal values must still mint distinct keys")
}

func TestShelf_GetMissingKeyFails(t *testing.T) {
	s := shelf.New()
	_, err := s.Get("does-not-exist")
	assert.Error(t, err)
}

func TestShelf_DeleteRemovesEntry(t *testing.T) {
	s := shelf.New()
	key := s.Put(42)
	s.Delete(key)
	_, err := s.Get(key)
	assert.Error(t, err)
}
