package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-viper/mapstructure/v2"
	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"
)

// FileNames are the config file names looked for, in order, in each directory.
var FileNames = []string{"gate-agent.yml", "gate-agent.yaml", ".gate-agent.yml"}

// ErrNotFound is returned by Find when no config file exists in the start
// directory or any of its parents.
var ErrNotFound = errors.New("no gate-agent config found")

// Load reads, validates and decodes the config file at path. Keys missing
// from the file keep their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.path = path
	return cfg, nil
}

// Parse decodes raw YAML onto the defaults. Schema violations and semantic
// problems are returned together as ValidationErrors.
func Parse(data []byte) (*Config, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	doc = toJSONCompatible(doc)

	if problems := validateSchema(doc); len(problems) > 0 {
		return nil, problems
	}

	cfg := Default()
	if err := decode(doc, cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if problems := Validate(cfg); len(problems) > 0 {
		return nil, ValidationErrors(problems)
	}

	sum := blake3.Sum256(data)
	cfg.digest = fmt.Sprintf("%x", sum[:])
	return cfg, nil
}

func decode(doc any, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "yaml",
		Result:  cfg,
	})
	if err != nil {
		return err
	}
	return dec.Decode(doc)
}

// Find walks from startDir up to the filesystem root and returns the first
// config file it sees.
func Find(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", startDir, err)
	}
	for {
		for _, name := range FileNames {
			candidate := filepath.Join(dir, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNotFound
		}
		dir = parent
	}
}

// LoadFrom finds and loads the nearest config above startDir, falling back
// to Default when there is none.
func LoadFrom(startDir string) (*Config, error) {
	path, err := Find(startDir)
	if errors.Is(err, ErrNotFound) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// toJSONCompatible rewrites YAML-decoded values so the schema validator and
// mapstructure only ever see string-keyed maps.
func toJSONCompatible(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, v2 := range val {
			out[k] = toJSONCompatible(v2)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, v2 := range val {
			out[fmt.Sprint(k)] = toJSONCompatible(v2)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, v2 := range val {
			out[i] = toJSONCompatible(v2)
		}
		return out
	default:
		return val
	}
}
