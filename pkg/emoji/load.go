package emoji

import (
	"encoding/json"
	"os"
)

// LoadEntries reads the bundled emoji data file: a flat JSON array of
// entries. There is no ecosystem serialization library for this shape
// of asset anywhere in the corpus (the teacher's own bundled data is a
// custom binary chunk format specific to word-frequency dictionaries,
// not reusable here), so this one parse uses encoding/json directly.
func LoadEntries(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
