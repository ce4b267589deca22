// Package langconfig loads a target language's driver configuration: the
// primitive type map, the collection/optional wrapper conventions, the
// template entry points, and any static files to copy verbatim.
//
// Decoding follows the same shape the teacher's internal/parser/toml
// package used for whole schema files — a private TOML-shaped struct
// decoded with github.com/BurntSushi/toml, then converted into the
// exported, validated Config — adapted here to the narrower per-language
// driver format spec.md §6 describes.
package langconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is one language's fully loaded driver configuration.
type Config struct {
	Language      string
	Extension     string
	TypeMap       map[string]string
	OptionalTypeMap map[string]string
	ListTypeMap   map[string]string
	BinaryRead    map[string]string
	CSVRead       map[string]string
	Templates     TemplateConfig
	StaticFiles   map[string]string
}

// TemplateConfig names the main template to render per top-level struct
// and any extra templates rendered once per generation run (e.g. a
// shared "common" file).
type TemplateConfig struct {
	Main  string
	Extra []string
}

type tomlConfig struct {
	Extension string            `toml:"extension"`
	TypeMap   tomlTypeMap       `toml:"type_map"`
	BinaryRead map[string]string `toml:"binary_read"`
	CSVRead    map[string]string `toml:"csv_read"`
	Templates  tomlTemplates     `toml:"templates"`
	StaticFiles map[string]string `toml:"static_files"`
}

type tomlTypeMap struct {
	Base     map[string]string `toml:"-"`
	Optional map[string]string `toml:"optional"`
	List     map[string]string `toml:"list"`
}

// UnmarshalTOML implements a custom decode so [type_map]'s scalar
// entries land in Base while its [type_map.optional]/[type_map.list]
// subtables land in their own maps — BurntSushi/toml hands a table's
// scalar and nested-table keys to us together, so we split them here.
func (m *tomlTypeMap) UnmarshalTOML(data any) error {
	raw, ok := data.(map[string]any)
	if !ok {
		return fmt.Errorf("langconfig: type_map must be a table")
	}
	m.Base = map[string]string{}
	for k, v := range raw {
		switch k {
		case "optional":
			m.Optional = toStringMap(v)
		case "list":
			m.List = toStringMap(v)
		default:
			if s, ok := v.(string); ok {
				m.Base[k] = s
			}
		}
	}
	return nil
}

func toStringMap(v any) map[string]string {
	raw, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := map[string]string{}
	for k, val := range raw {
		if s, ok := val.(string); ok {
			out[k] = s
		}
	}
	return out
}

type tomlTemplates struct {
	Main  string   `toml:"main"`
	Extra []string `toml:"extra"`
}

// Load reads <dir>/<language>.toml, falling back to the convention
// original_source/src/lang_config.rs documents when no TOML file is
// present for the language: a single main template named
// "<language>_file.ptpl" and no static files.
func Load(dir, language string) (*Config, error) {
	path := filepath.Join(dir, language+".toml")
	if _, err := os.Stat(path); err != nil {
		return &Config{
			Language:  language,
			Extension: language,
			TypeMap:   map[string]string{},
			Templates: TemplateConfig{Main: language + "_file.ptpl"},
		}, nil
	}

	var tc tomlConfig
	if _, err := toml.DecodeFile(path, &tc); err != nil {
		return nil, fmt.Errorf("langconfig: %s: %w", path, err)
	}

	cfg := &Config{
		Language:        language,
		Extension:       tc.Extension,
		TypeMap:         tc.TypeMap.Base,
		OptionalTypeMap: tc.TypeMap.Optional,
		ListTypeMap:     tc.TypeMap.List,
		BinaryRead:      tc.BinaryRead,
		CSVRead:         tc.CSVRead,
		Templates:       TemplateConfig{Main: tc.Templates.Main, Extra: tc.Templates.Extra},
		StaticFiles:     tc.StaticFiles,
	}
	if cfg.Extension == "" {
		cfg.Extension = language
	}
	if cfg.Templates.Main == "" {
		cfg.Templates.Main = language + "_file.ptpl"
	}
	return cfg, nil
}

// Resolve looks up the target-language type name for a primitive,
// honoring the optional/list wrapper tables before falling back to the
// base type map, and finally to the primitive's own name if the driver
// config leaves it unmapped (so an incomplete driver config degrades
// gracefully instead of failing generation outright).
func (c *Config) Resolve(primitive string, isOptional, isList bool) string {
	if isList {
		if t, ok := c.ListTypeMap[primitive]; ok {
			return t
		}
	}
	if isOptional {
		if t, ok := c.OptionalTypeMap[primitive]; ok {
			return t
		}
	}
	if t, ok := c.TypeMap[primitive]; ok {
		return t
	}
	return primitive
}
