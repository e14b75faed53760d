package ledger

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// IDKind selects the prefix and shape of a generated id.
type IDKind string

const (
	KindCase       IDKind = "AID"
	KindScheme     IDKind = "SCH"
	KindVoucher    IDKind = "VCH"
	KindDonation   IDKind = "DON"
	KindRedemption IDKind = "RDM"
)

// IDAlphabet is the character set of human-facing id suffixes.
const IDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// IDSuffixLength is the number of random characters after the prefix.
const IDSuffixLength = 6

// IDGenerator produces unique ids. Implementations must be safe for
// concurrent use.
type IDGenerator interface {
	NewID(kind IDKind) string
}

// RandomIDs generates AID-/SCH-/VCH- ids from six random base-36 characters,
// and opaque uuids for donations and redemptions.
type RandomIDs struct{}

func (RandomIDs) NewID(kind IDKind) string {
	switch kind {
	case KindDonation, KindRedemption:
		return uuid.NewString()
	default:
		return string(kind) + "-" + gonanoid.MustGenerate(IDAlphabet, IDSuffixLength)
	}
}

// SequenceIDs yields predictable ids such as AID-000001. Used by tests and
// scenario seeding.
type SequenceIDs struct {
	mu   sync.Mutex
	next map[IDKind]int
}

func NewSequenceIDs() *SequenceIDs {
	return &SequenceIDs{next: make(map[IDKind]int)}
}

func (s *SequenceIDs) NewID(kind IDKind) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next[kind]++
	return fmt.Sprintf("%s-%0*d", kind, IDSuffixLength, s.next[kind])
}
