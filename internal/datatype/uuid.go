package datatype

import (
	"sync"

	"github.com/google/uuid"
)

// UUIDGenerator produces UUID strings for UUIDV1 and UUIDV4 placeholders.
type UUIDGenerator interface {
	Generate(kind Kind) string
}

// RandomUUID generates real UUIDs: time-based for UUIDV1, random otherwise.
//
// Uses github.com/google/uuid. Stateless and safe for concurrent use.
type RandomUUID struct{}

// Generate returns a hyphenated UUID string.
//
// Panics if UUID generation fails (should never happen in practice).
func (RandomUUID) Generate(kind Kind) string {
	if kind == KindUUIDV1 {
		return uuid.Must(uuid.NewUUID()).String()
	}
	return uuid.Must(uuid.NewRandom()).String()
}

// NewV7 returns a time-sortable UUIDv7 string, used for journal run ids.
func NewV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined UUIDs in order, whatever the kind.
//
// Used by tests and scenario runs so generated placeholders are stable across
// runs. Safe for concurrent use.
type FixedGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedGenerator creates a generator that returns tokens in order.
func NewFixedGenerator(tokens ...string) *FixedGenerator {
	return &FixedGenerator{tokens: tokens}
}

// Generate returns the next predetermined token.
//
// Panics if all tokens have been consumed. A test that needs more UUIDs than it
// configured is misconfigured.
func (g *FixedGenerator) Generate(Kind) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.tokens) {
		panic("datatype: FixedGenerator exhausted")
	}
	tok := g.tokens[g.idx]
	g.idx++
	return tok
}

// SequenceGenerator derives deterministic, well-formed UUIDs from a counter.
// Unlike FixedGenerator it never runs out.
type SequenceGenerator struct {
	mu   sync.Mutex
	next uint64
}

// Generate returns the next UUID in the sequence, starting at
// 00000000-0000-4000-8000-000000000001.
func (g *SequenceGenerator) Generate(Kind) string {
	g.mu.Lock()
	g.next++
	n := g.next
	g.mu.Unlock()

	var u uuid.UUID
	for i := 0; i < 8; i++ {
		u[15-i] = byte(n >> (8 * i))
	}
	u[6] = 0x40
	u[8] = 0x80
	return u.String()
}
