package chunkstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/mpid/chunkstore"
	"github.com/opd-ai/mpid/chunkstore/storetest"
	"github.com/opd-ai/mpid/identity"
)

func TestMemoryStoreContract(t *testing.T) {
	storetest.Run(t, chunkstore.NewMemoryStore())
}

func TestMemoryStoreAccounting(t *testing.T) {
	store := chunkstore.NewMemoryStore()

	require.NoError(t, store.Put(identity.ID{1}, []byte("abc")))
	require.NoError(t, store.Put(identity.ID{2}, []byte("de")))
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, uint64(5), store.Size())

	require.NoError(t, store.Delete(identity.ID{1}))
	assert.Equal(t, uint64(2), store.Size())
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := chunkstore.NewMemoryStore()
	data := []byte("abc")
	require.NoError(t, store.Put(identity.ID{1}, data))

	data[0] = 'x'
	got, err := store.Get(identity.ID{1})
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)

	got[1] = 'y'
	again, err := store.Get(identity.ID{1})
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}
