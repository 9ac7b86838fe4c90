// Package localfs is a filesystem-backed chunkstore.Store.
//
// Each entry is one file named by the CID rendering of its id, fanned out into
// two-character directories. Files hold a one-byte compression tag, the
// uncompressed length and the payload. Writes go through a temporary file and
// a rename so a crash never leaves a partial entry under its final name.
package localfs

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/mpid/chunkstore"
	"github.com/opd-ai/mpid/identity"
)

// Store is a local filesystem store rooted at a directory.
type Store struct {
	root        string
	compression Compression
}

// New constructs a store rooted at root. The directory is created if needed.
func New(root string, compression Compression) (*Store, error) {
	if root == "" {
		return nil, errors.New("localfs: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("localfs: creating root: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":    "localfs.New",
		"root":        root,
		"compression": compression.String(),
	}).Debug("Opened filesystem store")

	return &Store{root: root, compression: compression}, nil
}

// Root returns the store directory.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) Has(id identity.ID) bool {
	path, err := s.pathFor(id)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

func (s *Store) Get(id identity.ID) ([]byte, error) {
	path, err := s.pathFor(id)
	if err != nil {
		return nil, err
	}
	frame, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, chunkstore.ErrNotFound
		}
		return nil, err
	}
	data, err := decodeFrame(frame)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", chunkstore.ErrCorrupt, id.Short(), err)
	}
	return data, nil
}

func (s *Store) Put(id identity.ID, data []byte) error {
	path, err := s.pathFor(id)
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil {
		existing, rerr := s.Get(id)
		if rerr != nil {
			// An unreadable file under this id is treated as an immutability violation.
			return chunkstore.ErrImmutable
		}
		if !bytes.Equal(existing, data) {
			return chunkstore.ErrImmutable
		}
		return nil
	}

	frame, err := encodeFrame(data, s.compression)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".put-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(frame); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

func (s *Store) Delete(id identity.ID) error {
	path, err := s.pathFor(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return chunkstore.ErrNotFound
		}
		return err
	}
	return nil
}

// Names walks the store and returns every entry id in bytewise order.
func (s *Store) Names() ([]identity.ID, error) {
	var names []identity.ID
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		id, perr := idFromFileName(d.Name())
		if perr != nil {
			logrus.WithFields(logrus.Fields{
				"function": "localfs.Names",
				"path":     path,
				"error":    perr.Error(),
			}).Warn("Skipping foreign file in store")
			return nil
		}
		names = append(names, id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	identity.Sort(names)
	return names, nil
}

func (s *Store) pathFor(id identity.ID) (string, error) {
	c, err := id.CID()
	if err != nil {
		return "", err
	}
	name := c.String()
	// CIDv1 strings share their multibase prefix, so fan out on the tail.
	return filepath.Join(s.root, name[len(name)-2:], name), nil
}

func idFromFileName(name string) (identity.ID, error) {
	var id identity.ID
	c, err := cid.Decode(name)
	if err != nil {
		return id, err
	}
	decoded, err := multihash.Decode(c.Hash())
	if err != nil {
		return id, err
	}
	if decoded.Code != multihash.BLAKE3 || len(decoded.Digest) != identity.Size {
		return id, fmt.Errorf("unexpected multihash %d/%d", decoded.Code, len(decoded.Digest))
	}
	copy(id[:], decoded.Digest)
	return id, nil
}
