package emoji

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEntriesParsesJSONArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emoji.json")
	data := `[{"Sequence":"😀","Name":"grinning face","Keywords":["happy"],"Category":"smileys"}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	entries, err := LoadEntries(path)
	if err != nil {
		t.Fatalf("load entries: %v", err)
	}
	if len(entries) != 1 || entries[0].Sequence != "😀" {
		t.Fatalf("want one grinning-face entry, got %+v", entries)
	}
}

func TestLoadEntriesMissingFileReturnsError(t *testing.T) {
	if _, err := LoadEntries(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("want an error for a missing emoji data file")
	}
}
