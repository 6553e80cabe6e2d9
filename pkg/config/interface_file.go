package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadLastInterface reads the last chosen capture interface name.
// A missing file yields an empty name and no error.
func LoadLastInterface(path string) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read interface file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// SaveLastInterface records name as the last chosen capture interface.
func SaveLastInterface(path, name string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create interface file directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(name), 0644); err != nil {
		return fmt.Errorf("failed to write interface file: %w", err)
	}
	return nil
}
