package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"StockNotifier/internal/model"
)

// LoadRules reads the rules file. A missing file yields DefaultRules; an
// unreadable or malformed file is an error so that a typo never silently
// replaces the user's rules.
func LoadRules(path string) (*model.RulesConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultRules(), nil
		}
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	var cfg model.RulesConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse rules %s: %w", path, err)
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveRules validates cfg and writes it as indented JSON. The file is
// replaced atomically.
func SaveRules(path string, cfg *model.RulesConfig) error {
	out := cfg.Clone()
	if err := Normalize(out); err != nil {
		return err
	}
	if err := Validate(out); err != nil {
		return err
	}
	data, err := json.MarshalIndent(out, "", "    ")
	if err != nil {
		return fmt.Errorf("encode rules: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".rules-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write rules: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close rules: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod rules: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace rules %s: %w", path, err)
	}
	return nil
}
