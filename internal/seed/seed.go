// Package seed loads default reference data into storage.
package seed

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/finmate-app/finmate/pkg/model"
	"github.com/finmate-app/finmate/pkg/storage"
)

type categoryFile struct {
	Categories []categoryEntry `yaml:"categories"`
}

type categoryEntry struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
	Icon string `yaml:"icon"`
}

// Categories loads the default category set from a YAML file and upserts each
// entry. Returns the number of categories processed.
func Categories(ctx context.Context, store storage.Storage, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}

	var file categoryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("parse seed file: %w", err)
	}

	for i, entry := range file.Categories {
		if entry.Name == "" {
			return 0, fmt.Errorf("seed entry %d: missing name", i)
		}
		kind := model.CategoryKind(entry.Kind)
		switch kind {
		case model.KindExpense, model.KindIncome, model.KindTransfer:
		default:
			return 0, fmt.Errorf("seed entry %q: unknown kind %q", entry.Name, entry.Kind)
		}

		category := &model.Category{
			Name: entry.Name,
			Kind: kind,
			Icon: entry.Icon,
		}
		if err := store.UpsertCategory(ctx, category); err != nil {
			return 0, fmt.Errorf("seed category %q: %w", entry.Name, err)
		}
	}

	return len(file.Categories), nil
}
