package habit

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time retrieval so business logic is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator abstracts unique ID generation so tests are deterministic.
type IDGenerator interface {
	New() string
}

// UUIDGenerator produces random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }

// TempIDs generates temporary habit identifiers of the form
// temp-<unix-millis>-<seq>-<nonce>. The sequence keeps IDs minted within the
// same millisecond by one generator apart; the random nonce keeps separate
// processes (one per CLI invocation) from repeating each other.
type TempIDs struct {
	clock Clock
	seq   atomic.Uint64
	nonce string
}

// NewTempIDs creates a generator reading time from clock.
func NewTempIDs(clock Clock) *TempIDs {
	return &TempIDs{
		clock: clock,
		nonce: strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
	}
}

func (g *TempIDs) New() string {
	return fmt.Sprintf("%s%d-%d-%s", TempIDPrefix, g.clock.Now().UnixMilli(), g.seq.Add(1), g.nonce)
}
