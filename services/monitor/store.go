package monitor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"bidwatch/lib/scrapers/epoint"
)

// loadRecords reads a JSON list artifact. A missing or unreadable file is
// treated as an empty list so a fresh working copy starts from scratch.
func loadRecords[T any](path string) []T {
	contents, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("failed to read artifact", "path", path, "err", err)
		}
		return nil
	}

	var items []T
	err = json.Unmarshal(contents, &items)
	if err != nil {
		slog.Warn("failed to decode artifact", "path", path, "err", err)
		return nil
	}
	return items
}

// saveRecords writes a JSON list artifact atomically. Output is 2-space
// indented UTF-8 without HTML escaping so publish diffs stay minimal and
// the Chinese text remains readable in the repository.
func saveRecords[T any](path string, items []T) error {
	if items == nil {
		items = []T{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	err := enc.Encode(items)
	if err != nil {
		return fmt.Errorf("failed to encode artifact %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	_, err = tmp.Write(buf.Bytes())
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write artifact %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	err = os.Rename(tmp.Name(), path)
	if err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// a notice counts as seen when either its id or url is already stored,
// the platform occasionally reissues notices under a fresh id
func containsNotice(existing []epoint.Notice, n epoint.Notice) bool {
	for _, item := range existing {
		if item.InfoID == n.InfoID || item.InfoURL == n.InfoURL {
			return true
		}
	}
	return false
}
