// Package msgid mints client-side message identifiers.
//
// An identifier has the form <sender>-<recipient>-<unix nanos>-<suffix>, where
// suffix is the 16-character entropy part of a ULID. ULID entropy increases
// monotonically within a millisecond, so identifiers minted back to back for
// the same pair never collide even when the clock does not advance.
package msgid

import (
	"fmt"
	"strings"
	"time"

	"github.com/matheus3301/chatbox/internal/identity"
	"github.com/oklog/ulid/v2"
)

// SuffixLen is the length of the random component of an identifier.
const SuffixLen = 16

// Generator mints message identifiers. The zero value uses the wall clock.
type Generator struct {
	Now func() time.Time
}

var defaultGenerator Generator

// Generate mints an identifier using the package default generator.
func Generate(sender, recipient identity.Identity) string {
	return defaultGenerator.Generate(sender, recipient)
}

// Generate mints an identifier for a message from sender to recipient.
func (g Generator) Generate(sender, recipient identity.Identity) string {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	return fmt.Sprintf("%s-%s-%d-%s", sender, recipient, now().UnixNano(), suffix())
}

func suffix() string {
	s := ulid.Make().String()
	return strings.ToLower(s[len(s)-SuffixLen:])
}
