package bbolt

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jmcleod/phantom/storage"
	"github.com/jmcleod/phantom/storage/storagetest"
)

func TestBBoltRepository(t *testing.T) {
	s, err := NewRepositoryFromFile(filepath.Join(t.TempDir(), "sessions.db"), nil)
	require.NoError(t, err)
	defer s.Close()

	storagetest.Run(t, s)
}

func TestBBoltReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	s, err := NewRepositoryFromFile(path, nil)
	require.NoError(t, err)

	env := testEnvelope()
	require.NoError(t, s.Put("sessions", "abc", env))
	require.NoError(t, s.Close())

	s, err = NewRepositoryFromFile(path, nil)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get("sessions", "abc")
	require.NoError(t, err)
	require.Equal(t, env.Ciphertext, got.Ciphertext)
}

func testEnvelope() *storage.Envelope {
	return &storage.Envelope{Ver: 1, Scheme: storage.SchemeAESGCM, Nonce: make([]byte, 12), Ciphertext: []byte("cipher")}
}
