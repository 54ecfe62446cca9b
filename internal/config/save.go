package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SaveAtomic validates cfg and replaces path with it, keeping the previous
// file as path.bak.
func SaveAtomic(path string, cfg Config) (Config, Validation, error) {
	out, v := NormalizeAndValidate(cfg)
	if !v.OK() {
		return out, v, errors.New("config validation failed:\n- " + strings.Join(v.Errors, "\n- "))
	}

	b, err := yaml.Marshal(&out)
	if err != nil {
		return out, v, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return out, v, err
	}

	tmp := path + ".tmp"
	bak := path + ".bak"

	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return out, v, err
	}

	_ = os.Remove(bak)
	_ = os.Rename(path, bak)

	return out, v, os.Rename(tmp, path)
}
