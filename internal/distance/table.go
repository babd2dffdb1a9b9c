package distance

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

//go:embed corrections.yaml
var defaultCorrections []byte

// Correction overrides the distance of races whose identifier contains Race.
// When Name is set it applies to that runner only.
type Correction struct {
	Race     string `koanf:"race"`
	Name     string `koanf:"name"`
	Distance string `koanf:"distance"`
}

func (c Correction) matches(race, name string) bool {
	if c.Race == "" || !strings.Contains(strings.ToLower(race), strings.ToLower(c.Race)) {
		return false
	}
	return c.Name == "" || strings.EqualFold(strings.TrimSpace(c.Name), strings.TrimSpace(name))
}

// Table is a versioned set of distance corrections.
type Table struct {
	Corrections       []Correction `koanf:"corrections"`
	DefaultDistance   string       `koanf:"default_distance"`
	DefaultExceptions []Correction `koanf:"default_exceptions"`
}

// apply patches an extracted distance with the table.
func (t *Table) apply(race, name, extracted string) string {
	d := extracted
	for _, c := range t.Corrections {
		if c.matches(race, name) {
			d = c.Distance
		}
	}
	if strings.TrimSpace(d) != "" {
		return d
	}
	for _, c := range t.DefaultExceptions {
		if c.matches(race, name) {
			return c.Distance
		}
	}
	return t.DefaultDistance
}

// bytesProvider feeds an in-memory document to koanf.
type bytesProvider []byte

func (b bytesProvider) ReadBytes() ([]byte, error) { return b, nil }

func (b bytesProvider) Read() (map[string]interface{}, error) {
	return nil, fmt.Errorf("bytesProvider does not support Read")
}

// Default returns the embedded correction table.
func Default() (*Table, error) {
	return load(bytesProvider(defaultCorrections))
}

// Load reads a correction table from a YAML file. An empty path returns
// the embedded table.
func Load(path string) (*Table, error) {
	if path == "" {
		return Default()
	}
	t, err := load(file.Provider(path))
	if err != nil {
		return nil, fmt.Errorf("loading corrections %s: %w", path, err)
	}
	return t, nil
}

func load(p koanf.Provider) (*Table, error) {
	k := koanf.New(".")
	if err := k.Load(p, yaml.Parser()); err != nil {
		return nil, err
	}

	t := &Table{DefaultDistance: "21"}
	if err := k.UnmarshalWithConf("", t, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}
	for i, c := range t.Corrections {
		if c.Race == "" {
			return nil, fmt.Errorf("correction %d: race must not be empty", i)
		}
	}
	return t, nil
}
