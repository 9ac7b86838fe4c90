// Package storetest holds the conformance checks every chunkstore.Store
// backend must pass.
package storetest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/mpid/chunkstore"
	"github.com/opd-ai/mpid/identity"
)

// Run exercises the Store contract against a fresh, empty store.
func Run(t *testing.T, store chunkstore.Store) {
	t.Helper()

	first := identity.ID{0x02}
	second := identity.ID{0x01}
	payload := []byte("serialised wrapper bytes")

	t.Run("get missing", func(t *testing.T) {
		_, err := store.Get(first)
		assert.True(t, chunkstore.IsNotFound(err), "got %v", err)
		assert.False(t, store.Has(first))
	})

	t.Run("put then get", func(t *testing.T) {
		require.NoError(t, store.Put(first, payload))
		assert.True(t, store.Has(first))

		got, err := store.Get(first)
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	})

	t.Run("put is idempotent", func(t *testing.T) {
		assert.NoError(t, store.Put(first, payload))
	})

	t.Run("put different bytes fails", func(t *testing.T) {
		err := store.Put(first, []byte("other"))
		assert.ErrorIs(t, err, chunkstore.ErrImmutable)
	})

	t.Run("names are sorted", func(t *testing.T) {
		require.NoError(t, store.Put(second, []byte{0x00}))
		names, err := store.Names()
		require.NoError(t, err)
		assert.Equal(t, []identity.ID{second, first}, names)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Delete(second))
		assert.False(t, store.Has(second))
		assert.True(t, chunkstore.IsNotFound(store.Delete(second)))
	})
}
