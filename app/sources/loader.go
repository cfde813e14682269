// Package sources loads the source registry from a YAML file and seeds
// the database with it on first start.
package sources

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/safarai/intelwatch/app/database"
)

//go:embed defaults.yml
var defaultsYAML []byte

type sourceEntry struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Category string `yaml:"category"`
	Active   *bool  `yaml:"active"`
}

type sourcesFile struct {
	Sources []sourceEntry `yaml:"sources"`
}

// Load reads source definitions from path. An empty path falls back to
// the embedded defaults.
func Load(path string) ([]database.Source, error) {
	data := defaultsYAML
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read sources file: %w", err)
		}
	}

	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse sources file: %w", err)
	}

	sources := make([]database.Source, 0, len(file.Sources))
	for i, entry := range file.Sources {
		if entry.Name == "" || entry.URL == "" {
			return nil, fmt.Errorf("source %d: name and url are required", i)
		}

		category := entry.Category
		if category == "" {
			category = database.CategoryGeneral
		}

		active := true
		if entry.Active != nil {
			active = *entry.Active
		}

		sources = append(sources, database.Source{
			ID:        uuid.NewString(),
			Name:      entry.Name,
			URL:       entry.URL,
			Category:  category,
			Active:    active,
			CreatedAt: time.Now().UTC(),
		})
	}

	return sources, nil
}

// SeedIfEmpty inserts the loaded sources when the registry has none.
// Existing registries are left alone so operator edits survive restarts.
func SeedIfEmpty(repo database.SourceRepository, sources []database.Source) error {
	count, err := repo.GetSourceCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for _, source := range sources {
		if err := repo.CreateSource(source); err != nil {
			return fmt.Errorf("failed to seed source %q: %w", source.Name, err)
		}
	}

	slog.Info("Seeded source registry", "count", len(sources))
	return nil
}
