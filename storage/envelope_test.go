package storage

import (
	"bytes"
	"testing"

	"github.com/jmcleod/phantom/internal/util"
)

func TestEnvelope(t *testing.T) {
	key, _ := util.RandomBytes(util.AESKeySize)
	plain := []byte(`{"user_id":"u1"}`)
	aad := []byte("session:abc")

	env, err := SealRecord(key, plain, aad)
	if err != nil {
		t.Fatalf("SealRecord failed: %v", err)
	}
	if env.Ver != 1 || env.Scheme != SchemeAESGCM {
		t.Fatalf("unexpected envelope header: ver=%d scheme=%s", env.Ver, env.Scheme)
	}

	decrypted, err := OpenRecord(key, env, aad)
	if err != nil {
		t.Fatalf("OpenRecord failed: %v", err)
	}
	if !bytes.Equal(plain, decrypted) {
		t.Errorf("expected %s, got %s", plain, decrypted)
	}

	t.Run("WrongAAD", func(t *testing.T) {
		if _, err := OpenRecord(key, env, []byte("session:other")); err == nil {
			t.Error("expected error with wrong AAD, got nil")
		}
	})

	t.Run("WrongKey", func(t *testing.T) {
		other, _ := util.RandomBytes(util.AESKeySize)
		if _, err := OpenRecord(other, env, aad); err == nil {
			t.Error("expected error with wrong key, got nil")
		}
	})

	t.Run("UnknownScheme", func(t *testing.T) {
		bad := *env
		bad.Scheme = "raw"
		if _, err := OpenRecord(key, &bad, aad); err == nil {
			t.Error("expected error for unknown scheme, got nil")
		}
	})

	t.Run("Nil", func(t *testing.T) {
		if _, err := OpenRecord(key, nil, aad); err == nil {
			t.Error("expected error for nil envelope, got nil")
		}
	})
}
