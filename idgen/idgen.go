// Package idgen provides pluggable ID generation for forkify.
//
// Constructors that mint identifiers (recipeapi) accept a Generator, so the
// strategy is decided at startup and tests can inject a deterministic one.
package idgen

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// ObjectID returns a Generator of 24-character hex identifiers laid out like
// the ids served by the public Forkify API: 4 bytes of unix seconds, 5 random
// bytes fixed per generator, and a 3-byte counter.
func ObjectID() Generator {
	var process [5]byte
	if _, err := rand.Read(process[:]); err != nil {
		panic("idgen: crypto/rand failed: " + err.Error())
	}
	var seed [4]byte
	if _, err := rand.Read(seed[:]); err != nil {
		panic("idgen: crypto/rand failed: " + err.Error())
	}
	var counter atomic.Uint32
	counter.Store(binary.BigEndian.Uint32(seed[:]))

	return func() string {
		var b [12]byte
		binary.BigEndian.PutUint32(b[0:4], uint32(time.Now().Unix()))
		copy(b[4:9], process[:])
		n := counter.Add(1)
		b[9] = byte(n >> 16)
		b[10] = byte(n >> 8)
		b[11] = byte(n)
		return hex.EncodeToString(b[:])
	}
}

// UUIDv7 returns a Generator that produces RFC 9562 UUID v7 strings.
// Used for upload API keys.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Sequence returns a Generator producing prefix1, prefix2, ... .
// Deterministic, for tests.
func Sequence(prefix string) Generator {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("%s%d", prefix, n.Add(1))
	}
}

// Default is the recipe id strategy.
var Default Generator = ObjectID()

// New produces an ID using the Default generator.
func New() string {
	return Default()
}

// ParseObjectID validates a 24-character hex id.
func ParseObjectID(s string) (string, error) {
	if len(s) != 24 {
		return "", fmt.Errorf("idgen: invalid object id %q: want 24 hex chars", s)
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", fmt.Errorf("idgen: invalid object id %q: %w", s, err)
	}
	return s, nil
}
