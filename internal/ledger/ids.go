package ledger

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator synthesizes record ids and the student-facing lookup keys.
type IDGenerator interface {
	NewID() string
	NewBarcode() string
	NewSecretCode() string
}

const secretAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const secretCodeLength = 6

// UUIDGenerator draws everything from random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.NewString() }

// NewBarcode returns 12 decimal digits.
func (UUIDGenerator) NewBarcode() string {
	u := uuid.New()
	n := binary.BigEndian.Uint64(u[:8]) % 1_000_000_000_000
	return fmt.Sprintf("%012d", n)
}

func (UUIDGenerator) NewSecretCode() string {
	u := uuid.New()
	code := make([]byte, secretCodeLength)
	for i := range code {
		code[i] = secretAlphabet[int(u[i])%len(secretAlphabet)]
	}
	return string(code)
}

// SequenceGenerator hands out predictable values, for tests and fixtures.
type SequenceGenerator struct {
	Prefix string

	mu sync.Mutex
	n  int
}

func (g *SequenceGenerator) next() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return g.n
}

func (g *SequenceGenerator) NewID() string {
	return fmt.Sprintf("%sid-%04d", g.Prefix, g.next())
}

func (g *SequenceGenerator) NewBarcode() string {
	return fmt.Sprintf("%012d", g.next())
}

func (g *SequenceGenerator) NewSecretCode() string {
	return fmt.Sprintf("S%05d", g.next())
}
