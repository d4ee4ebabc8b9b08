package dictionary

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeChunk(t *testing.T, dir string, id int, words []string) {
	t.Helper()
	path := filepath.Join(dir, fmt.Sprintf("dict_%04d.dic", id))
	body := fmt.Sprintf("%d\n%s\n", len(words), strings.Join(words, "\n"))
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write chunk: %v", err)
	}
}

func TestLoadChunkParsesHunspellDicHeaderAndWords(t *testing.T) {
	dir := t.TempDir()
	writeChunk(t, dir, 1, []string{"hello", "help", "world"})

	cl := NewChunkLoader(dir, 0, 0)
	if err := cl.loadChunk(1); err != nil {
		t.Fatalf("loadChunk: %v", err)
	}

	freqs := cl.GetWordFreqs()
	if len(freqs) != 3 {
		t.Fatalf("want 3 words loaded, got %v", freqs)
	}
	if freqs["hello"] <= freqs["help"] || freqs["help"] <= freqs["world"] {
		t.Fatalf("want descending rank by line position, got %v", freqs)
	}
}

func TestLoadChunkStripsHunspellAffixFlags(t *testing.T) {
	dir := t.TempDir()
	writeChunk(t, dir, 1, []string{"running/ABC", "jump/XY"})

	cl := NewChunkLoader(dir, 0, 0)
	if err := cl.loadChunk(1); err != nil {
		t.Fatalf("loadChunk: %v", err)
	}

	freqs := cl.GetWordFreqs()
	if _, ok := freqs["running"]; !ok {
		t.Fatalf("want flag-stripped word 'running' present, got %v", freqs)
	}
	if _, ok := freqs["running/ABC"]; ok {
		t.Fatalf("affix flags should not be part of the stored word, got %v", freqs)
	}
}

func TestGetAvailableChunksScansDicFiles(t *testing.T) {
	dir := t.TempDir()
	writeChunk(t, dir, 1, []string{"a", "b"})

	cl := NewChunkLoader(dir, 0, 0)
	chunks, err := cl.GetAvailableChunks()
	if err != nil {
		t.Fatalf("GetAvailableChunks: %v", err)
	}
	if len(chunks) != 1 || chunks[0].WordCount != 2 {
		t.Fatalf("want one chunk declaring 2 words, got %+v", chunks)
	}
}

func TestRankScoreDescendsByPosition(t *testing.T) {
	if rankScore(0) <= rankScore(1) {
		t.Fatalf("want rankScore to descend with position")
	}
	if rankScore(100000) != 1 {
		t.Fatalf("want rankScore to floor at 1 for very late positions, got %d", rankScore(100000))
	}
}
