package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/localrag/internal/core/domain"
)

// ConfigFile is a read-only configuration file.
// Nested tables are flattened into dot-notation keys such as "embedding.model".
type ConfigFile struct {
	filePath string
	data     map[string]any
}

// Open reads a TOML (.toml) or YAML (.yaml, .yml) configuration file.
// A missing file is an error wrapping domain.ErrNotFound.
func Open(path string) (*ConfigFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file %q: %w", path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var loaded map[string]any
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(raw, &loaded)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &loaded)
	default:
		return nil, fmt.Errorf("config file %q: extension %q: %w", path, ext, domain.ErrUnsupportedType)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config file %q: %w", path, err)
	}

	if loaded == nil {
		loaded = make(map[string]any)
	}

	return &ConfigFile{
		filePath: path,
		data:     flattenMap(loaded, ""),
	}, nil
}

// Get retrieves a configuration value by key.
func (s *ConfigFile) Get(key string) (any, bool) {
	val, ok := s.data[key]
	return val, ok
}

// Keys returns the number of flattened keys.
func (s *ConfigFile) Keys() int {
	return len(s.data)
}

// GetString retrieves a string configuration value.
func (s *ConfigFile) GetString(key string) (string, bool) {
	val, ok := s.Get(key)
	if !ok {
		return "", false
	}
	str, ok := val.(string)
	return str, ok
}

// GetInt retrieves an integer configuration value.
func (s *ConfigFile) GetInt(key string) (int, bool) {
	val, ok := s.Get(key)
	if !ok {
		return 0, false
	}

	// TOML integers are parsed as int64, YAML integers as int
	switch v := val.(type) {
	case int64:
		return int(v), true
	case int:
		return v, true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	default:
		return 0, false
	}
}

// GetFloat retrieves a floating point configuration value.
// Integer values are accepted.
func (s *ConfigFile) GetFloat(key string) (float64, bool) {
	val, ok := s.Get(key)
	if !ok {
		return 0, false
	}

	switch v := val.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// GetBool retrieves a boolean configuration value.
func (s *ConfigFile) GetBool(key string) (bool, bool) {
	val, ok := s.Get(key)
	if !ok {
		return false, false
	}
	b, ok := val.(bool)
	return b, ok
}

// GetStringSlice retrieves a string slice configuration value.
func (s *ConfigFile) GetStringSlice(key string) ([]string, bool) {
	val, ok := s.Get(key)
	if !ok {
		return nil, false
	}

	// TOML and YAML arrays are parsed as []any
	switch v := val.(type) {
	case []string:
		return v, true
	case []any:
		result := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				result = append(result, str)
			}
		}
		return result, true
	default:
		return nil, false
	}
}

// Path returns the configuration file path.
func (s *ConfigFile) Path() string {
	return s.filePath
}

// flattenMap converts nested maps to dot-notation keys.
// E.g., {"a": {"b": 1}} becomes {"a.b": 1}.
func flattenMap(m map[string]any, prefix string) map[string]any {
	result := make(map[string]any)

	for key, value := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		if nested, ok := value.(map[string]any); ok {
			for k, v := range flattenMap(nested, fullKey) {
				result[k] = v
			}
		} else {
			result[fullKey] = value
		}
	}

	return result
}
