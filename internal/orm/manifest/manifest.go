// Package manifest loads apps and models declared in YAML files into a schema registry.
//
// A manifest looks like:
//
//	apps:
//	  - label: library
//	    verbose_name: Library
//	    models:
//	      - name: Shelf
//	        fields:
//	          - {name: code, type: string, max_length: 8, unique: true}
//	        relations:
//	          - {name: room, kind: foreign_key, to: Room, on_delete: cascade, related_name: shelves}
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/conduit-lang/schemaviewer/internal/orm/schema"
	"gopkg.in/yaml.v3"
)

// Manifest is the decoded form of one YAML file
type Manifest struct {
	Source string    `yaml:"-"`
	Apps   []AppSpec `yaml:"apps"`
}

// AppSpec declares an app and its models
type AppSpec struct {
	Label       string      `yaml:"label"`
	VerboseName string      `yaml:"verbose_name"`
	Models      []ModelSpec `yaml:"models"`
}

// ModelSpec declares one model
type ModelSpec struct {
	Name              string           `yaml:"name"`
	Documentation     string           `yaml:"doc"`
	VerboseName       string           `yaml:"verbose_name"`
	VerboseNamePlural string           `yaml:"verbose_name_plural"`
	DBTable           string           `yaml:"db_table"`
	Abstract          bool             `yaml:"abstract"`
	Proxy             bool             `yaml:"proxy"`
	Managed           *bool            `yaml:"managed"`
	Parents           []string         `yaml:"parents"`
	Fields            []FieldSpec      `yaml:"fields"`
	Relations         []RelationSpec   `yaml:"relations"`
	Indexes           []IndexSpec      `yaml:"indexes"`
	Constraints       []ConstraintSpec `yaml:"constraints"`
	UniqueTogether    [][]string       `yaml:"unique_together"`
	Ordering          []string         `yaml:"ordering"`
	Managers          []ManagerSpec    `yaml:"managers"`
	Methods           []string         `yaml:"methods"`
}

// FieldSpec declares a concrete field
type FieldSpec struct {
	Name          string       `yaml:"name"`
	Type          string       `yaml:"type"`
	VerboseName   string       `yaml:"verbose_name"`
	HelpText      string       `yaml:"help_text"`
	MaxLength     int          `yaml:"max_length"`
	MaxDigits     int          `yaml:"max_digits"`
	DecimalPlaces int          `yaml:"decimal_places"`
	PrimaryKey    bool         `yaml:"primary_key"`
	Unique        bool         `yaml:"unique"`
	Null          bool         `yaml:"null"`
	Blank         bool         `yaml:"blank"`
	DBIndex       bool         `yaml:"db_index"`
	Editable      *bool        `yaml:"editable"`
	Default       yaml.Node    `yaml:"default"`
	DefaultFunc   string       `yaml:"default_func"`
	Choices       []ChoiceSpec `yaml:"choices"`
}

// ChoiceSpec is one value/label pair
type ChoiceSpec struct {
	Value interface{} `yaml:"value"`
	Label string      `yaml:"label"`
}

// RelationSpec declares a forward relation
type RelationSpec struct {
	Name        string `yaml:"name"`
	Kind        string `yaml:"kind"`
	To          string `yaml:"to"`
	OnDelete    string `yaml:"on_delete"`
	Null        bool   `yaml:"null"`
	Blank       bool   `yaml:"blank"`
	RelatedName string `yaml:"related_name"`
	Through     string `yaml:"through"`
	PrimaryKey  bool   `yaml:"primary_key"`
}

// IndexSpec declares an index
type IndexSpec struct {
	Name   string   `yaml:"name"`
	Fields []string `yaml:"fields"`
}

// ConstraintSpec declares a named constraint
type ConstraintSpec struct {
	Name      string   `yaml:"name"`
	Type      string   `yaml:"type"`
	Fields    []string `yaml:"fields"`
	Condition string   `yaml:"check"`
}

// ManagerSpec declares a manager
type ManagerSpec struct {
	Name  string `yaml:"name"`
	Class string `yaml:"class"`
}

// Parse decodes a manifest from YAML
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

// Load reads and decodes a manifest file
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.Source = path
	return m, nil
}

// Expand turns a list of files and directories into manifest file paths. Directories
// contribute their *.yml and *.yaml files in name order.
func Expand(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat manifest path: %w", err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read manifest directory: %w", err)
		}
		var found []string
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !(strings.HasSuffix(name, ".yml") || strings.HasSuffix(name, ".yaml")) {
				continue
			}
			found = append(found, filepath.Join(p, name))
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}

// LoadFiles loads every manifest under paths and applies them to the registry in order
func LoadFiles(registry *schema.Registry, paths ...string) error {
	files, err := Expand(paths)
	if err != nil {
		return err
	}
	for _, file := range files {
		m, err := Load(file)
		if err != nil {
			return err
		}
		if err := m.Apply(registry); err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
	}
	return nil
}

// Apply registers the manifest's apps, then its models in file order. Apps that are
// already registered are reused, so several manifests can contribute to one app.
func (m *Manifest) Apply(registry *schema.Registry) error {
	b := NewBuilder()

	for _, app := range m.Apps {
		if _, exists := registry.GetApp(app.Label); exists {
			continue
		}
		if err := registry.RegisterApp(&schema.App{Label: app.Label, VerboseName: app.VerboseName}); err != nil {
			return err
		}
	}

	for _, app := range m.Apps {
		for _, spec := range app.Models {
			model, err := b.Build(app.Label, spec)
			if err != nil {
				return err
			}
			if err := registry.Register(model); err != nil {
				return err
			}
		}
	}
	return nil
}
