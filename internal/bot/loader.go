package bot

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"jordanella.com/gamebot-go/internal/programs"
)

// LoadReport lists what LoadActionsDir registered and what it skipped
type LoadReport struct {
	Loaded  []string         // action names, in load order
	Invalid map[string]error // relative file path -> reason
}

// InvalidFiles returns the skipped files sorted by path
func (r *LoadReport) InvalidFiles() []string {
	files := make([]string, 0, len(r.Invalid))
	for f := range r.Invalid {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// LoadActionsDir registers a program-defined action for every .yaml or
// .yml file under dir. Files that fail to parse, validate or register are
// recorded and skipped. A missing directory loads nothing.
func (b *Bot) LoadActionsDir(dir string) (*LoadReport, error) {
	report := &LoadReport{Invalid: make(map[string]error)}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		b.logger.InfoWithContext("Actions folder not found", map[string]interface{}{"dir": dir})
		return report, nil
	}

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ext := filepath.Ext(path); ext == ".yaml" || ext == ".yml" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("failed to scan actions folder %s: %w", dir, err)
	}
	sort.Strings(paths)

	for _, path := range paths {
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		name, err := b.loadActionFile(path)
		if err != nil {
			report.Invalid[rel] = err
			b.logger.WarnWithContext("Invalid action file", map[string]interface{}{
				"file":  rel,
				"error": err.Error(),
			})
			continue
		}
		report.Loaded = append(report.Loaded, name)
	}

	b.logger.InfoWithContext("Loaded actions folder", map[string]interface{}{
		"dir":     dir,
		"valid":   len(report.Loaded),
		"invalid": len(report.Invalid),
	})
	return report, nil
}

func (b *Bot) loadActionFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	def, err := programs.ParseDefinitionYAML(data)
	if err != nil {
		return "", err
	}
	action, err := def.Build()
	if err != nil {
		return "", err
	}
	if err := b.RegisterAction(action); err != nil {
		return "", err
	}
	return action.Name(), nil
}
