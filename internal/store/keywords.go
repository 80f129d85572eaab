package store

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fjacquet/bankfeed/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed keywords.yaml
var defaultKeywords []byte

// KeywordMap maps an uppercase keyword to its root category.
type KeywordMap map[string]models.CategoryID

type keywordFile struct {
	Categories map[models.CategoryID][]string `yaml:"categories"`
}

// DefaultKeywords returns the built-in keyword map.
func DefaultKeywords() (KeywordMap, error) {
	km := KeywordMap{}
	if err := km.merge(defaultKeywords, "built-in keywords"); err != nil {
		return nil, err
	}
	return km, nil
}

// LoadKeywordMap returns the built-in keywords overlaid with the file named by path.
// An empty path, or a file that cannot be found, yields the built-in map.
func LoadKeywordMap(path string) (KeywordMap, error) {
	km, err := DefaultKeywords()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return km, nil
	}
	resolved, err := FindConfigFile(path)
	if err != nil {
		return km, nil
	}
	data, err := os.ReadFile(resolved) // #nosec G304 -- user-selected keyword file
	if err != nil {
		return nil, fmt.Errorf("error reading keyword file %s: %w", resolved, err)
	}
	if err := km.merge(data, resolved); err != nil {
		return nil, err
	}
	return km, nil
}

func (km KeywordMap) merge(data []byte, source string) error {
	var f keywordFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("error parsing %s: %w", source, err)
	}
	for cat, words := range f.Categories {
		if !models.IsValidCategory(cat) {
			return fmt.Errorf("%s: unknown category %q", source, cat)
		}
		for _, w := range words {
			if w = strings.ToUpper(strings.TrimSpace(w)); w != "" {
				km[w] = cat
			}
		}
	}
	return nil
}

// FindConfigFile looks for filename as given, under ./config and under ~/.bankfeed.
func FindConfigFile(filename string) (string, error) {
	if filepath.IsAbs(filename) {
		if _, err := os.Stat(filename); err == nil {
			return filename, nil
		}
		return "", os.ErrNotExist
	}

	locations := []string{
		filename,
		filepath.Join("config", filename),
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(homeDir, ".bankfeed", filename))
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location, nil
		}
	}
	return "", os.ErrNotExist
}
