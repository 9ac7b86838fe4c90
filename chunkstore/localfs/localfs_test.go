package localfs

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/mpid/chunkstore"
	"github.com/opd-ai/mpid/chunkstore/storetest"
	"github.com/opd-ai/mpid/identity"
)

func TestStoreContract(t *testing.T) {
	for _, compression := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(compression.String(), func(t *testing.T) {
			store, err := New(t.TempDir(), compression)
			require.NoError(t, err)
			storetest.Run(t, store)
		})
	}
}

func TestNewRequiresRoot(t *testing.T) {
	_, err := New("", CompressionNone)
	assert.Error(t, err)
}

func TestCompressedFramesRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("compressible header bytes "), 200)

	for _, compression := range []Compression{CompressionLZ4, CompressionZstd} {
		t.Run(compression.String(), func(t *testing.T) {
			frame, err := encodeFrame(payload, compression)
			require.NoError(t, err)
			assert.Equal(t, byte(compression), frame[0])
			assert.Less(t, len(frame), len(payload))

			got, err := decodeFrame(frame)
			require.NoError(t, err)
			assert.Equal(t, payload, got)
		})
	}
}

func TestIncompressibleFallsBackToNone(t *testing.T) {
	frame, err := encodeFrame([]byte{0x01, 0x02, 0x03}, CompressionZstd)
	require.NoError(t, err)
	assert.Equal(t, byte(CompressionNone), frame[0])

	got, err := decodeFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, got)
}

func TestCorruptFrameReported(t *testing.T) {
	root := t.TempDir()
	store, err := New(root, CompressionNone)
	require.NoError(t, err)

	id := identity.ID{0x42}
	require.NoError(t, store.Put(id, []byte("payload")))

	path, err := store.pathFor(id)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte{0x09}, 0o644))

	_, err = store.Get(id)
	assert.ErrorIs(t, err, chunkstore.ErrCorrupt)
}

func TestNamesSkipsForeignFiles(t *testing.T) {
	root := t.TempDir()
	store, err := New(root, CompressionLZ4)
	require.NoError(t, err)

	require.NoError(t, store.Put(identity.ID{0x01}, []byte("a")))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README"), []byte("hi"), 0o644))

	names, err := store.Names()
	require.NoError(t, err)
	assert.Equal(t, []identity.ID{{0x01}}, names)
}

func TestParseCompression(t *testing.T) {
	for _, name := range []string{"none", "lz4", "zstd"} {
		c, err := ParseCompression(name)
		require.NoError(t, err)
		assert.Equal(t, name, c.String())
	}
	_, err := ParseCompression("brotli")
	assert.Error(t, err)
}
