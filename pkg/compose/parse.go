package compose

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ParseError reports one malformed line without aborting the file (spec
// §6: "file+line error reporting, continue past a bad line").
type ParseError struct {
	File string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}

// expandVars substitutes %L (locale), %S (system data dir), %H (home
// directory) in an include path, per spec §6's compose file format.
func expandVars(path, locale, systemDir string) string {
	home, _ := os.UserHomeDir()
	path = strings.ReplaceAll(path, "%L", locale)
	path = strings.ReplaceAll(path, "%S", systemDir)
	path = strings.ReplaceAll(path, "%H", home)
	return path
}

// LoadFile parses a compose file at path into trie, following any
// "include" directives; a relative include path is resolved against the
// directory of the file that includes it. Malformed lines are
// collected as ParseErrors and skipped; a missing include is likewise
// non-fatal. locale and systemDir feed %L/%S/%H expansion.
func LoadFile(trie *Trie, path, locale, systemDir string) []error {
	return loadFile(trie, path, locale, systemDir, map[string]bool{})
}

func loadFile(trie *Trie, path, locale, systemDir string, seen map[string]bool) []error {
	abs, err := filepath.Abs(path)
	if err == nil {
		if seen[abs] {
			return []error{&ParseError{File: path, Line: 0, Msg: "include cycle detected"}}
		}
		seen[abs] = true
	}

	f, err := os.Open(path)
	if err != nil {
		return []error{&ParseError{File: path, Line: 0, Msg: err.Error()}}
	}
	defer f.Close()

	var errs []error
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if inc, ok := parseInclude(line); ok {
			incPath := expandVars(inc, locale, systemDir)
			if !filepath.IsAbs(incPath) {
				incPath = filepath.Join(filepath.Dir(path), incPath)
			}
			if sub := loadFile(trie, incPath, locale, systemDir, seen); len(sub) > 0 {
				errs = append(errs, sub...)
			}
			continue
		}

		keysyms, result, symbolic, err := parseSequenceLine(line)
		if err != nil {
			errs = append(errs, &ParseError{File: path, Line: lineNo, Msg: err.Error()})
			log.Warnf("%s:%d: %v, skipping line", path, lineNo, err)
			continue
		}
		trie.Insert(keysyms, result, symbolic)
	}
	if err := sc.Err(); err != nil && err != io.EOF {
		errs = append(errs, &ParseError{File: path, Line: lineNo, Msg: err.Error()})
	}
	return errs
}

// parseInclude recognizes a line of the form: include "path"
func parseInclude(line string) (string, bool) {
	if !strings.HasPrefix(line, "include") {
		return "", false
	}
	rest := strings.TrimSpace(line[len("include"):])
	path, ok := unquote(rest)
	return path, ok
}

// parseSequenceLine parses one compose sequence line of the form:
//
//	<key1> <key2> ... : "result" [symbolic]
//
// An empty quoted result is legal — it tells the caller to remove the
// sequence rather than insert it (spec §6).
func parseSequenceLine(line string) (keysyms []string, result string, symbolic bool, err error) {
	lhs, rhs, found := strings.Cut(line, ":")
	if !found {
		return nil, "", false, fmt.Errorf("missing ':' separating keys from result")
	}

	for _, tok := range strings.Fields(lhs) {
		keysym, ok := unbracket(tok)
		if !ok {
			return nil, "", false, fmt.Errorf("malformed key token %q", tok)
		}
		keysyms = append(keysyms, keysym)
	}
	if len(keysyms) == 0 {
		return nil, "", false, fmt.Errorf("no keys before ':'")
	}

	rhs = strings.TrimSpace(rhs)
	fields := splitQuoted(rhs)
	if len(fields) == 0 {
		return nil, "", false, fmt.Errorf("missing result string")
	}
	result, ok := unquote(fields[0])
	if !ok {
		return nil, "", false, fmt.Errorf("result %q must be quoted", fields[0])
	}
	for _, f := range fields[1:] {
		if f == "symbolic" {
			symbolic = true
		}
	}
	return keysyms, result, symbolic, nil
}

// unbracket strips an optional surrounding "<...>" from a key token,
// e.g. "<dead_grave>" -> "dead_grave". Unbracketed tokens (e.g. raw
// digits as used by the keypad fallback) pass through unchanged.
func unbracket(tok string) (string, bool) {
	if strings.HasPrefix(tok, "<") && strings.HasSuffix(tok, ">") && len(tok) > 2 {
		return tok[1 : len(tok)-1], true
	}
	if !strings.ContainsAny(tok, "<>") {
		return tok, true
	}
	return "", false
}

func unquote(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		unq, err := strconv.Unquote(s)
		if err != nil {
			return s[1 : len(s)-1], true
		}
		return unq, true
	}
	return "", false
}

// splitQuoted splits rhs into the quoted result token and any trailing
// bare words (e.g. "symbolic"), without breaking on spaces inside quotes.
func splitQuoted(rhs string) []string {
	var out []string
	var cur strings.Builder
	inQuote := false
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for i := 0; i < len(rhs); i++ {
		c := rhs[i]
		switch {
		case c == '"':
			inQuote = !inQuote
			cur.WriteByte(c)
			if !inQuote {
				flush()
			}
		case c == ' ' && !inQuote:
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return out
}
