package config

import (
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

const yamlFileName = "good-base.config.yaml"

// YAMLLoader reads good-base.config.yaml through koanf.
type YAMLLoader struct{}

// NewYAMLLoader creates the YAML file loader.
func NewYAMLLoader() *YAMLLoader { return &YAMLLoader{} }

func (YAMLLoader) Format() string   { return "yaml" }
func (YAMLLoader) FileName() string { return yamlFileName }
func (YAMLLoader) Example() []byte  { return exampleFile("good-base.config.example.yaml") }

// LoadFile parses path into a partial configuration.
func (YAMLLoader) LoadFile(path string) (Partial, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if notMapping(path) {
			return nil, fmt.Errorf("%w: %s is not a mapping of sections", ErrMalformedConfig, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceLoad, path, err)
	}
	return partialFrom(k.Raw())
}

// notMapping reports whether the document at path is valid YAML whose top
// level is something other than a mapping.
func notMapping(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var doc any
	if err := yamlv3.Unmarshal(data, &doc); err != nil || doc == nil {
		return false
	}
	_, ok := doc.(map[string]any)
	return !ok
}
