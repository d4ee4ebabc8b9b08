package dictionary

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// FileFormat represents a dictionary source file format.
type FileFormat int

const (
	FormatUnknown FileFormat = iota
	FormatHunspellDic         // hunspell .dic: word-count header + word[/flags] lines
	FormatWordList            // plain text, one word per line, no header
)

// FormatInfo contains metadata about a dictionary file format.
type FormatInfo struct {
	Format      FileFormat
	Description string
	Extensions  []string
	MinSize     int64 // minimum expected file size in bytes
}

var supportedFormats = map[FileFormat]FormatInfo{
	FormatHunspellDic: {
		Format:      FormatHunspellDic,
		Description: "Hunspell Word List (.dic)",
		Extensions:  []string{".dic"},
		MinSize:     2, // at least a one-digit header and a newline
	},
	FormatWordList: {
		Format:      FormatWordList,
		Description: "Plain Word List",
		Extensions:  []string{".txt"},
		MinSize:     1,
	},
}

// ValidateFileFormat checks if a file matches the expected format.
func ValidateFileFormat(filename string, expectedFormat FileFormat) error {
	fileInfo, err := os.Stat(filename)
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", filename, err)
	}

	formatInfo, exists := supportedFormats[expectedFormat]
	if !exists {
		return fmt.Errorf("unknown format: %v", expectedFormat)
	}

	if fileInfo.Size() < formatInfo.MinSize {
		return fmt.Errorf("file %s is too small (%d bytes) for format %s (minimum: %d bytes)",
			filename, fileInfo.Size(), formatInfo.Description, formatInfo.MinSize)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	validExt := false
	for _, validExtension := range formatInfo.Extensions {
		if ext == validExtension {
			validExt = true
			break
		}
	}
	if !validExt {
		return fmt.Errorf("file %s has invalid extension %s for format %s (expected: %v)",
			filename, ext, formatInfo.Description, formatInfo.Extensions)
	}

	switch expectedFormat {
	case FormatHunspellDic:
		return validateHunspellDicFormat(filename)
	case FormatWordList:
		return validateWordListFormat(filename)
	}

	return nil
}

// validateHunspellDicFormat checks that filename opens with a decimal
// word-count header followed by at least one non-empty word line, the
// shape hunspell's own .dic files use.
func validateHunspellDicFormat(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", filename, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		return fmt.Errorf("%s is empty", filename)
	}
	header := strings.TrimSpace(scanner.Text())
	count, err := strconv.Atoi(header)
	if err != nil {
		return fmt.Errorf("%s: header %q is not a decimal word count", filename, header)
	}
	if count < 0 {
		return fmt.Errorf("invalid word count in %s: %d (negative)", filename, count)
	}
	if count > 1000000 {
		return fmt.Errorf("suspicious word count in %s: %d (too large)", filename, count)
	}

	sawWord := false
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			sawWord = true
			break
		}
	}
	if !sawWord && count > 0 {
		return fmt.Errorf("%s declares %d words but none found", filename, count)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to scan %s: %w", filename, err)
	}

	log.Debugf("Hunspell .dic file %s validated: header declares %d words", filename, count)
	return nil
}

// validateWordListFormat checks that filename contains at least one
// non-empty line, no header expected.
func validateWordListFormat(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", filename, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			log.Debugf("Word list file %s validated", filename)
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read from word list %s: %w", filename, err)
	}
	return fmt.Errorf("%s contains no words", filename)
}

// DetectFileFormat attempts to detect the format of a file from its
// name and contents.
func DetectFileFormat(filename string) (FileFormat, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	if ext == ".dic" {
		if err := ValidateFileFormat(filename, FormatHunspellDic); err == nil {
			return FormatHunspellDic, nil
		}
	}

	if ext == ".txt" {
		if err := ValidateFileFormat(filename, FormatWordList); err == nil {
			return FormatWordList, nil
		}
	}

	return FormatUnknown, fmt.Errorf("unable to detect format for file %s", filename)
}

// GetFormatInfo returns information about a specific format.
func GetFormatInfo(format FileFormat) (FormatInfo, bool) {
	info, exists := supportedFormats[format]
	return info, exists
}

// ListSupportedFormats returns all supported formats.
func ListSupportedFormats() []FormatInfo {
	var formats []FormatInfo
	for _, info := range supportedFormats {
		formats = append(formats, info)
	}
	return formats
}
