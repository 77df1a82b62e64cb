package command

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/goodbase/goodbase/internal/config"
)

// Redacted replaces secret values in configuration views.
const Redacted = "********"

// ErrKeyNotFound is returned when a configuration key does not exist.
var ErrKeyNotFound = errors.New("configuration key not found")

var secretPaths = []string{"auth.defaultToken", "auth.jwtSecret"}

// ConfigJSON renders cfg as JSON, optionally with secrets redacted.
func ConfigJSON(cfg config.Config, redact bool) ([]byte, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode configuration: %w", err)
	}
	if !redact {
		return data, nil
	}
	for _, path := range secretPaths {
		if gjson.GetBytes(data, path).String() == "" {
			continue
		}
		if data, err = sjson.SetBytes(data, path, Redacted); err != nil {
			return nil, fmt.Errorf("redact %s: %w", path, err)
		}
	}
	return data, nil
}

// ConfigValue returns the value at a dot path of the rendered configuration.
func ConfigValue(data []byte, key string) (any, error) {
	if key == "" {
		return gjson.ParseBytes(data).Value(), nil
	}
	res := gjson.GetBytes(data, key)
	if !res.Exists() {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	return res.Value(), nil
}
