package dictionary

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDetectFileFormatRecognizesHunspellDic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "en.dic")
	if err := os.WriteFile(path, []byte("2\nhello\nworld\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	format, err := DetectFileFormat(path)
	if err != nil {
		t.Fatalf("DetectFileFormat: %v", err)
	}
	if format != FormatHunspellDic {
		t.Fatalf("want FormatHunspellDic, got %v", format)
	}
}

func TestDetectFileFormatRecognizesWordList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "words.txt")
	if err := os.WriteFile(path, []byte("hello\nworld\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	format, err := DetectFileFormat(path)
	if err != nil {
		t.Fatalf("DetectFileFormat: %v", err)
	}
	if format != FormatWordList {
		t.Fatalf("want FormatWordList, got %v", format)
	}
}

func TestValidateFileFormatRejectsNonNumericHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.dic")
	if err := os.WriteFile(path, []byte("not-a-number\nhello\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ValidateFileFormat(path, FormatHunspellDic); err == nil {
		t.Fatalf("want validation error for non-numeric header")
	}
}

func TestValidateFileFormatRejectsEmptyWordList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(path, []byte(""), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ValidateFileFormat(path, FormatWordList); err == nil {
		t.Fatalf("want validation error for empty word list")
	}
}
