package main

import (
	"bytes"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/unklstewy/atc-presence/internal/capture"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{"capture": {"last_interface_file": "` + filepath.Join(dir, "config.dat") + `"}}`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun(t *testing.T) {
	var logs bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&logs)
	t.Cleanup(func() { log.SetOutput(prev) })

	none := func() ([]capture.Interface, error) { return nil, nil }

	t.Run("No interface returns error code", func(t *testing.T) {
		logs.Reset()
		code := run([]string{"--config", writeConfig(t)}, none)
		if code != 1 {
			t.Errorf("Expected exit code 1, got %d", code)
		}
		if !strings.Contains(logs.String(), "No capture interface available") {
			t.Errorf("Expected interface error in log, got %q", logs.String())
		}
	})

	t.Run("List failure", func(t *testing.T) {
		failing := func() ([]capture.Interface, error) { return nil, errors.New("permission denied") }
		if code := run([]string{"--list-interfaces"}, failing); code != 1 {
			t.Errorf("Expected exit code 1, got %d", code)
		}
	})

	t.Run("Bad flag", func(t *testing.T) {
		if code := run([]string{"--no-such-flag"}, none); code != 2 {
			t.Errorf("Expected exit code 2, got %d", code)
		}
	})

	t.Run("Bad config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
			t.Fatal(err)
		}
		if code := run([]string{"-c", path}, none); code != 1 {
			t.Errorf("Expected exit code 1, got %d", code)
		}
	})
}
