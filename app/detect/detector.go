// Package detect decides whether a fetched document is new, changed, or
// unchanged relative to the stored fingerprint for its (source, url) key.
package detect

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/safarai/intelwatch/app/database"
	"github.com/safarai/intelwatch/app/fetch"
)

// State classifies one document against the fingerprint store.
type State string

const (
	StateNew       State = "new"
	StateUpdated   State = "updated"
	StateUnchanged State = "unchanged"
)

// fingerprintCap bounds how much text participates in the fingerprint.
// Trailing boilerplate beyond the cap does not churn fingerprints.
const fingerprintCap = 12000

// Classification is the read-only detection result for one document. The
// caller decides when the stored fingerprint actually advances.
type Classification struct {
	State       State
	Fingerprint string
	Item        *database.Item // existing row, nil when State is StateNew
}

type Detector struct {
	items database.ItemRepository
}

func NewDetector(items database.ItemRepository) *Detector {
	return &Detector{items: items}
}

// Classify compares the document's fingerprint with the stored one. It
// never writes; classification and fingerprint advancement are separate
// steps so a failed extraction can leave the stored fingerprint alone.
func (d *Detector) Classify(sourceID string, doc fetch.Document) (Classification, error) {
	fingerprint := Fingerprint(doc.Text)

	item, err := d.items.GetItem(sourceID, doc.URL)
	if err != nil {
		return Classification{}, err
	}

	if item == nil {
		return Classification{State: StateNew, Fingerprint: fingerprint}, nil
	}
	if item.Fingerprint == fingerprint {
		return Classification{State: StateUnchanged, Fingerprint: fingerprint, Item: item}, nil
	}
	return Classification{State: StateUpdated, Fingerprint: fingerprint, Item: item}, nil
}

// Fingerprint returns a stable content hash. Text is NFC-normalized and
// whitespace-collapsed first, so reflowed markup or trailing blank lines
// do not register as changes.
func Fingerprint(text string) string {
	normalized := norm.NFC.String(text)
	normalized = strings.Join(strings.Fields(normalized), " ")

	runes := []rune(normalized)
	if len(runes) > fingerprintCap {
		normalized = string(runes[:fingerprintCap])
	}

	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:])
}
