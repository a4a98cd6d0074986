// Package ids generates human readable identifiers such as ORD-20250101093000-7KQ2.
package ids

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	Procurement Kind = "PRC"
	Order       Kind = "ORD"
	Offer       Kind = "OFR"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const suffixLen = 4

// NewAt formats the id for t (UTC); the suffix is random.
func NewAt(kind Kind, t time.Time) string {
	u := uuid.New()
	suffix := make([]byte, suffixLen)
	for i := range suffix {
		suffix[i] = alphabet[int(u[i])%len(alphabet)]
	}
	return fmt.Sprintf("%s-%s-%s", kind, t.UTC().Format("20060102150405"), suffix)
}
