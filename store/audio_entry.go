package store

import "errors"

// ErrStoreOffline reports that a backing store cannot be reached, for example because of a
// quota or permission failure. Callers treat it as a cache miss rather than a fatal error.
var ErrStoreOffline = errors.New("store offline")

// AudioEntry is one cached speech clip. AccessedTs is in unix milliseconds.
// Listings leave Blob nil.
type AudioEntry struct {
	Key        string
	Blob       []byte
	Size       int64
	AccessedTs int64
}
