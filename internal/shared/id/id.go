// Package id generates the prefixed ULIDs used for sessions and stream
// connections.
//
// ULIDs sort by creation time, so session listings and snapshot files come
// out in the order they were started. Prefixes keep ids readable in logs
// and stop one kind of id being accepted where another is expected.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// SessionID identifies a compilation session.
type SessionID string

// ConnectionID identifies a conversation stream connection.
type ConnectionID string

const (
	SessionPrefix    = "sess"
	ConnectionPrefix = "conn"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
	now       func() time.Time
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator with cryptographically secure entropy.
func NewGenerator() *Generator {
	return NewGeneratorWithEntropy(rand.Reader)
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Useful for testing with deterministic entropy.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy, now: time.Now}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewSessionID generates a new session ID
func NewSessionID() SessionID {
	return SessionID(Default().GenerateWithPrefix(SessionPrefix))
}

// NewConnectionID generates a new connection ID
func NewConnectionID() ConnectionID {
	return ConnectionID(Default().GenerateWithPrefix(ConnectionPrefix))
}

func (id SessionID) String() string    { return string(id) }
func (id ConnectionID) String() string { return string(id) }

// Valid reports whether the session id is a prefixed ULID. Ids that pass
// are safe to use as file names.
func (id SessionID) Valid() bool {
	return hasPrefixedULID(string(id), SessionPrefix)
}

// Time returns the creation time encoded in the session id.
func (id SessionID) Time() (time.Time, error) {
	raw, ok := strings.CutPrefix(string(id), SessionPrefix+"_")
	if !ok {
		return time.Time{}, fmt.Errorf("session id %q: missing %s prefix", id, SessionPrefix)
	}
	parsed, err := ulid.Parse(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("session id %q: %w", id, err)
	}
	return ulid.Time(parsed.Time()), nil
}

func hasPrefixedULID(s, prefix string) bool {
	raw, ok := strings.CutPrefix(s, prefix+"_")
	if !ok {
		return false
	}
	_, err := ulid.ParseStrict(raw)
	return err == nil
}
