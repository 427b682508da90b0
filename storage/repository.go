// Package storage provides a small key/value abstraction for sealed records.
//
// Records are grouped into buckets and addressed by key. Values are
// Envelopes: AES-256-GCM ciphertext plus the metadata needed to open it.
// The session store uses it to persist sessions encrypted at rest.
package storage

import "errors"

// ErrNotFound is returned by Get when the bucket or key does not exist.
var ErrNotFound = errors.New("record not found")

// Repository defines the interface for sealed record storage.
//
// Put overwrites any existing value. Delete is idempotent: deleting a
// missing key is not an error. List returns the keys in a bucket in no
// particular order; a missing bucket yields an empty list.
type Repository interface {
	Put(bucket, key string, envelope *Envelope) error
	Get(bucket, key string) (*Envelope, error)
	Delete(bucket, key string) error
	List(bucket string) ([]string, error)
}
