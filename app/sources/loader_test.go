package sources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/safarai/intelwatch/app/database"
)

type fakeSourceRepo struct {
	sources []database.Source
}

func (r *fakeSourceRepo) ListSources() ([]database.Source, error)       { return r.sources, nil }
func (r *fakeSourceRepo) ListActiveSources() ([]database.Source, error) { return r.sources, nil }
func (r *fakeSourceRepo) GetSource(id string) (*database.Source, error) { return nil, nil }
func (r *fakeSourceRepo) CreateSource(source database.Source) error {
	r.sources = append(r.sources, source)
	return nil
}
func (r *fakeSourceRepo) UpdateSource(id string, name, url, category *string, active *bool) (*database.Source, error) {
	return nil, nil
}
func (r *fakeSourceRepo) DeleteSource(id string) error       { return nil }
func (r *fakeSourceRepo) GetSourceCount() (int, error)       { return len(r.sources), nil }
func (r *fakeSourceRepo) GetActiveSourceCount() (int, error) { return len(r.sources), nil }

func TestLoad_EmbeddedDefaults(t *testing.T) {
	sources, err := Load("")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(sources) != 6 {
		t.Fatalf("Expected 6 default sources, got %d", len(sources))
	}
	if sources[0].Name != "Marriott News" || sources[0].Category != database.CategoryHotel {
		t.Errorf("Unexpected first source: %+v", sources[0])
	}
	for _, source := range sources {
		if !source.Active {
			t.Errorf("Expected default source %q active", source.Name)
		}
		if source.ID == "" {
			t.Errorf("Expected generated ID for %q", source.Name)
		}
	}
}

func TestLoad_CustomFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yml")
	content := `sources:
  - name: Custom Feed
    url: https://example.com/feed
    category: news
  - name: Disabled One
    url: https://example.com/other
    active: false
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	sources, err := Load(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(sources) != 2 {
		t.Fatalf("Expected 2 sources, got %d", len(sources))
	}
	if sources[1].Active {
		t.Error("Expected active: false to be honored")
	}
	if sources[1].Category != database.CategoryGeneral {
		t.Errorf("Expected missing category to default to general, got %s", sources[1].Category)
	}
}

func TestLoad_MissingName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yml")
	os.WriteFile(path, []byte("sources:\n  - url: https://example.com\n"), 0644)

	if _, err := Load(path); err == nil {
		t.Error("Expected error for source without name")
	}
}

func TestSeedIfEmpty(t *testing.T) {
	repo := &fakeSourceRepo{}
	sources, _ := Load("")

	if err := SeedIfEmpty(repo, sources); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(repo.sources) != 6 {
		t.Fatalf("Expected registry seeded with 6 sources, got %d", len(repo.sources))
	}

	if err := SeedIfEmpty(repo, sources); err != nil {
		t.Fatalf("Expected no error on second seed, got %v", err)
	}
	if len(repo.sources) != 6 {
		t.Error("Expected non-empty registry left untouched")
	}
}
