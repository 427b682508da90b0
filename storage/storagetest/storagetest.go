// Package storagetest holds a conformance suite shared by the
// storage.Repository backends.
package storagetest

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/phantom/storage"
)

// Run exercises repo against the storage.Repository contract. The
// repository must be empty when Run is called.
func Run(t *testing.T, repo storage.Repository) {
	t.Helper()
	env := &storage.Envelope{Ver: 1, Scheme: storage.SchemeAESGCM, Nonce: make([]byte, 12), Ciphertext: []byte("cipher")}

	t.Run("PutGet", func(t *testing.T) {
		require.NoError(t, repo.Put("b1", "k1", env))
		got, err := repo.Get("b1", "k1")
		require.NoError(t, err)
		assert.Equal(t, env.Ver, got.Ver)
		assert.Equal(t, env.Scheme, got.Scheme)
		assert.Equal(t, env.Nonce, got.Nonce)
		assert.Equal(t, env.Ciphertext, got.Ciphertext)
	})

	t.Run("Overwrite", func(t *testing.T) {
		updated := &storage.Envelope{Ver: 1, Scheme: storage.SchemeAESGCM, Nonce: make([]byte, 12), Ciphertext: []byte("cipher-2")}
		require.NoError(t, repo.Put("b1", "k1", updated))
		got, err := repo.Get("b1", "k1")
		require.NoError(t, err)
		assert.Equal(t, []byte("cipher-2"), got.Ciphertext)
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := repo.Get("b1", "missing")
		assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)
		_, err = repo.Get("no-bucket", "k1")
		assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)
	})

	t.Run("List", func(t *testing.T) {
		require.NoError(t, repo.Put("b2", "a", env))
		require.NoError(t, repo.Put("b2", "b", env))
		keys, err := repo.List("b2")
		require.NoError(t, err)
		sort.Strings(keys)
		assert.Equal(t, []string{"a", "b"}, keys)

		keys, err = repo.List("empty-bucket")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Put("b3", "gone", env))
		require.NoError(t, repo.Delete("b3", "gone"))
		_, err := repo.Get("b3", "gone")
		assert.True(t, errors.Is(err, storage.ErrNotFound))

		// Idempotent.
		assert.NoError(t, repo.Delete("b3", "gone"))
		assert.NoError(t, repo.Delete("never-created", "x"))
	})
}
