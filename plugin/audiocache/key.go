package audiocache

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// KeyTextLimit is the number of characters of text that take part in a truncated key.
const KeyTextLimit = 100

// KeyFunc derives a cache key from the spoken text and voice.
type KeyFunc func(text, voiceID string) string

// Key returns the first KeyTextLimit characters of text followed by voiceID.
//
// Two texts that share their first KeyTextLimit characters map to the same key for a given
// voice, so the later one is served the earlier clip. HashedKey has no such collision but
// produces different keys, so switching schemes starts from an empty cache.
func Key(text, voiceID string) string {
	runes := []rune(text)
	if len(runes) > KeyTextLimit {
		runes = runes[:KeyTextLimit]
	}
	return string(runes) + voiceID
}

// HashedKey returns a BLAKE2b digest of the full text and voice.
func HashedKey(text, voiceID string) string {
	sum := blake2b.Sum256([]byte(voiceID + "\x00" + text))
	return "b2:" + hex.EncodeToString(sum[:])
}

// KeyScheme returns HashedKey when hashed is set and Key otherwise.
func KeyScheme(hashed bool) KeyFunc {
	if hashed {
		return HashedKey
	}
	return Key
}
