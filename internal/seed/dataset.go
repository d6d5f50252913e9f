package seed

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

//go:embed data/dummy.json
var defaultDataset []byte

// CategoryEntry is a category in the seed dataset.
type CategoryEntry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CustomizationEntry is a customization in the seed dataset.
type CustomizationEntry struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Type  string  `json:"type"`
}

// MenuEntry is a menu item in the seed dataset. Its category and
// customizations refer to other entries by name.
type MenuEntry struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	ImageURL       string   `json:"image_url"`
	Price          float64  `json:"price"`
	Rating         float64  `json:"rating"`
	Calories       int      `json:"calories"`
	Protein        int      `json:"protein"`
	CategoryName   string   `json:"category_name"`
	Customizations []string `json:"customizations"`
}

// Dataset is the content written by a seed run.
type Dataset struct {
	Categories     []CategoryEntry      `json:"categories"`
	Customizations []CustomizationEntry `json:"customizations"`
	Menu           []MenuEntry          `json:"menu"`
}

// DefaultDataset returns the built-in demo dataset.
func DefaultDataset() (*Dataset, error) {
	return ParseDataset(bytes.NewReader(defaultDataset))
}

// LoadDataset reads and validates a dataset file. An empty path returns
// the built-in dataset.
func LoadDataset(path string) (*Dataset, error) {
	if path == "" {
		return DefaultDataset()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %s: %w", path, err)
	}
	defer f.Close()

	ds, err := ParseDataset(f)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	return ds, nil
}

// ParseDataset decodes and validates a dataset.
func ParseDataset(r io.Reader) (*Dataset, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var ds Dataset
	if err := dec.Decode(&ds); err != nil {
		return nil, fmt.Errorf("failed to decode dataset: %w", err)
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return &ds, nil
}

// Validate checks that names are present, unique and unpadded and that
// every menu entry refers to known categories and customizations by exact
// name.
func (d *Dataset) Validate() error {
	var errs []error

	categories := make(map[string]bool, len(d.Categories))
	for i, c := range d.Categories {
		if err := checkName(c.Name); err != nil {
			errs = append(errs, fmt.Errorf("category %d: %w", i, err))
			continue
		}
		if categories[c.Name] {
			errs = append(errs, fmt.Errorf("category %q: duplicate name", c.Name))
		}
		categories[c.Name] = true
	}

	customizations := make(map[string]bool, len(d.Customizations))
	for i, c := range d.Customizations {
		if err := checkName(c.Name); err != nil {
			errs = append(errs, fmt.Errorf("customization %d: %w", i, err))
			continue
		}
		if customizations[c.Name] {
			errs = append(errs, fmt.Errorf("customization %q: duplicate name", c.Name))
		}
		if c.Price < 0 {
			errs = append(errs, fmt.Errorf("customization %q: price must not be negative", c.Name))
		}
		customizations[c.Name] = true
	}

	for i, m := range d.Menu {
		if err := checkName(m.Name); err != nil {
			errs = append(errs, fmt.Errorf("menu item %d: %w", i, err))
			continue
		}
		if m.Price < 0 {
			errs = append(errs, fmt.Errorf("menu item %q: price must not be negative", m.Name))
		}
		if m.ImageURL == "" {
			errs = append(errs, fmt.Errorf("menu item %q: image_url is required", m.Name))
		}
		if !categories[m.CategoryName] {
			errs = append(errs, fmt.Errorf("menu item %q: unknown category %q", m.Name, m.CategoryName))
		}
		for _, c := range m.Customizations {
			if !customizations[c] {
				errs = append(errs, fmt.Errorf("menu item %q: unknown customization %q", m.Name, c))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid dataset: %w", errors.Join(errs...))
	}
	return nil
}

// checkName rejects empty names and names with surrounding whitespace.
// References are matched by exact name when seeding.
func checkName(name string) error {
	switch trimmed := strings.TrimSpace(name); {
	case trimmed == "":
		return errors.New("name is required")
	case trimmed != name:
		return fmt.Errorf("name %q has leading or trailing whitespace", name)
	}
	return nil
}

// LinkCount returns the number of menu/customization links the dataset
// produces.
func (d *Dataset) LinkCount() int {
	n := 0
	for _, m := range d.Menu {
		n += len(m.Customizations)
	}
	return n
}
