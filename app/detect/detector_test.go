package detect

import (
	"strings"
	"testing"
	"time"

	"github.com/safarai/intelwatch/app/database"
	"github.com/safarai/intelwatch/app/fetch"
)

type fakeItemRepo struct {
	items map[string]*database.Item
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{items: make(map[string]*database.Item)}
}

func (r *fakeItemRepo) GetItem(sourceID, url string) (*database.Item, error) {
	return r.items[sourceID+"|"+url], nil
}

func (r *fakeItemRepo) UpsertItem(item database.Item) error {
	r.items[item.SourceID+"|"+item.URL] = &item
	return nil
}

func (r *fakeItemRepo) TouchItem(sourceID, url string, seenAt time.Time) error {
	return nil
}

func (r *fakeItemRepo) GetItemCount() (int, error) {
	return len(r.items), nil
}

func TestFingerprint_WhitespaceInvariance(t *testing.T) {
	a := Fingerprint("Hotel chain   announces\n\npartnership")
	b := Fingerprint("Hotel chain announces partnership\n")
	if a != b {
		t.Error("Expected identical fingerprints for reflowed whitespace")
	}

	c := Fingerprint("Hotel chain announces merger")
	if a == c {
		t.Error("Expected different fingerprints for different text")
	}
}

func TestFingerprint_CapIgnoresTrailingText(t *testing.T) {
	base := strings.Repeat("a ", fingerprintCap)
	a := Fingerprint(base + "tail one")
	b := Fingerprint(base + "completely different tail")
	if a != b {
		t.Error("Expected text beyond the cap to not affect the fingerprint")
	}
}

func TestClassify_NewDocument(t *testing.T) {
	detector := NewDetector(newFakeItemRepo())

	result, err := detector.Classify("src-1", fetch.Document{URL: "https://example.com/a", Text: "first sighting"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.State != StateNew {
		t.Errorf("Expected new, got %s", result.State)
	}
	if result.Fingerprint == "" {
		t.Error("Expected fingerprint to be computed")
	}
	if result.Item != nil {
		t.Error("Expected no existing item for a new document")
	}
}

func TestClassify_UnchangedAndUpdated(t *testing.T) {
	repo := newFakeItemRepo()
	repo.UpsertItem(database.Item{
		SourceID:    "src-1",
		URL:         "https://example.com/a",
		Fingerprint: Fingerprint("original text"),
	})

	detector := NewDetector(repo)

	result, err := detector.Classify("src-1", fetch.Document{URL: "https://example.com/a", Text: "original   text"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.State != StateUnchanged {
		t.Errorf("Expected unchanged for equivalent text, got %s", result.State)
	}
	if result.Item == nil {
		t.Error("Expected existing item to be attached")
	}

	result, err = detector.Classify("src-1", fetch.Document{URL: "https://example.com/a", Text: "revised text"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.State != StateUpdated {
		t.Errorf("Expected updated for changed text, got %s", result.State)
	}
}

func TestClassify_DoesNotWrite(t *testing.T) {
	repo := newFakeItemRepo()
	detector := NewDetector(repo)

	detector.Classify("src-1", fetch.Document{URL: "https://example.com/a", Text: "content"})

	if count, _ := repo.GetItemCount(); count != 0 {
		t.Error("Expected classification to leave the store untouched")
	}
}
