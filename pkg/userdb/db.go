package userdb

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Entry mirrors spec §3's UserDBEntry.
type Entry struct {
	Phrase    string
	Context1  string
	Context2  string
	Frequency float64
	LastUsed  int64
	Score     float64 // populated by Lookup only
}

// RecordMode controls whether a commit grows the UserDB vocabulary
// (spec §4.4: "{Everything, Correct-or-Previously-Recorded, Correct,
// Nothing}").
type RecordMode int

const (
	RecordEverything RecordMode = iota
	RecordCorrectOrPreviouslyRecorded
	RecordCorrect
	RecordNothing
)

// DefaultCeiling is the default maximum entry count (spec §4.4).
const DefaultCeiling = 50000

// decayEpsilon and decayAgeSec implement decay_pass's purge rule: entries
// with user_freq < epsilon AND age > 180 days are removed outright.
const (
	decayEpsilon = 0.01
	decayAgeSec  = 180 * 24 * 60 * 60
)

// DB is the writer-serialized, snapshot-reading UserDB of spec §4.4.
// All writes funnel through writeMu so "writes are serialized through
// a single writer task" holds even when called concurrently from the
// candidate-producer and UserDB-writer workers (spec §5); reads take
// no lock, matching "concurrent reads are wait-free" with sqlite's own
// WAL-mode snapshot isolation providing the consistent view.
type DB struct {
	sql     *sql.DB
	path    string
	writeMu sync.Mutex

	ceiling int

	offTheRecord bool
	mode         RecordMode

	// validator is consulted for RecordCorrect/RecordCorrectOrPreviouslyRecorded.
	// A nil validator treats every phrase as valid (degrades those modes to
	// RecordEverything), which is safer than silently dropping commits.
	validator func(phrase string) bool

	lookupCount atomic.Int64
	hitCount    atomic.Int64
}

// compactFreelistRatio is the fraction of free (deleted-row) pages past
// which DecayPass's follow-on compaction step runs VACUUM to reclaim
// disk space (SPEC_FULL's database vacuuming/compaction supplement).
const compactFreelistRatio = 0.25

// Stats is UserDB's read-only debug-property surface (SPEC_FULL's
// statistics supplement): entry count and the running lookup hit rate.
type Stats struct {
	EntryCount  int
	LookupCount int64
	HitCount    int64
}

// HitRate returns the fraction of Lookup calls that returned at least
// one entry, or 0 if Lookup has never been called.
func (s Stats) HitRate() float64 {
	if s.LookupCount == 0 {
		return 0
	}
	return float64(s.HitCount) / float64(s.LookupCount)
}

// Stats reports UserDB's current size and lookup hit rate.
func (db *DB) Stats() (Stats, error) {
	var count int
	if err := db.sql.QueryRow("SELECT COUNT(*) FROM entries").Scan(&count); err != nil {
		return Stats{}, fmt.Errorf("userdb: stats count: %w", err)
	}
	return Stats{
		EntryCount:  count,
		LookupCount: db.lookupCount.Load(),
		HitCount:    db.hitCount.Load(),
	}, nil
}

// SetCeiling overrides DefaultCeiling.
func (db *DB) SetCeiling(n int) { db.ceiling = n }

// SetOffTheRecord toggles off-the-record mode (spec §4.4: "record_commit
// is a no-op; lookup still reads").
func (db *DB) SetOffTheRecord(on bool) { db.offTheRecord = on }

// SetRecordMode sets the active record mode.
func (db *DB) SetRecordMode(m RecordMode) { db.mode = m }

// SetDictionaryValidator wires the "Correct" / "Correct-or-Previously-
// Recorded" record modes to a spellcheck predicate (normally
// pkg/dictionary's Spellcheck across the active locales).
func (db *DB) SetDictionaryValidator(fn func(phrase string) bool) { db.validator = fn }

func (db *DB) ceilingOrDefault() int {
	if db.ceiling <= 0 {
		return DefaultCeiling
	}
	return db.ceiling
}

// RecordCommit upserts (phrase, context1, context2): sets last_used to
// now and increments frequency by 1, honoring off-the-record mode and
// the active RecordMode (spec §4.4).
func (db *DB) RecordCommit(phrase, context1, context2 string, now int64) error {
	if db.offTheRecord {
		return nil
	}
	if !db.allowedByMode(phrase) {
		return nil
	}

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	res, err := db.sql.Exec(`
UPDATE entries SET frequency = frequency + 1, last_used = ?
WHERE phrase = ? AND context1 = ? AND context2 = ?`,
		now, phrase, context1, context2)
	if err != nil {
		return fmt.Errorf("userdb: record_commit update: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	if err := db.evictIfAtCeiling(); err != nil {
		return err
	}
	_, err = db.sql.Exec(`
INSERT INTO entries (phrase, context1, context2, frequency, last_used)
VALUES (?, ?, ?, 1, ?)`, phrase, context1, context2, now)
	if err != nil {
		return fmt.Errorf("userdb: record_commit insert: %w", err)
	}
	return nil
}

func (db *DB) allowedByMode(phrase string) bool {
	switch db.mode {
	case RecordNothing:
		return false
	case RecordCorrect:
		return db.validator == nil || db.validator(phrase)
	case RecordCorrectOrPreviouslyRecorded:
		if db.validator == nil || db.validator(phrase) {
			return true
		}
		return db.hasPhrase(phrase)
	default: // RecordEverything
		return true
	}
}

func (db *DB) hasPhrase(phrase string) bool {
	var n int
	_ = db.sql.QueryRow("SELECT COUNT(*) FROM entries WHERE phrase = ?", phrase).Scan(&n)
	return n > 0
}

// evictIfAtCeiling drops the lowest (frequency, last_used) entry when
// the table is already at the configured ceiling (spec §4.4 invariant).
func (db *DB) evictIfAtCeiling() error {
	var count int
	if err := db.sql.QueryRow("SELECT COUNT(*) FROM entries").Scan(&count); err != nil {
		return fmt.Errorf("userdb: count entries: %w", err)
	}
	if count < db.ceilingOrDefault() {
		return nil
	}
	_, err := db.sql.Exec(`
DELETE FROM entries WHERE id = (
    SELECT id FROM entries ORDER BY frequency ASC, last_used ASC LIMIT 1
)`)
	if err != nil {
		return fmt.Errorf("userdb: evict at ceiling: %w", err)
	}
	return nil
}

// Lookup returns entries whose phrase has prefix, scored per Score and
// sorted descending. Reads proceed even in off-the-record mode.
func (db *DB) Lookup(prefix, context1, context2 string, now int64, limit int) ([]Entry, error) {
	rows, err := db.sql.Query(`
SELECT phrase, context1, context2, frequency, last_used
FROM entries WHERE phrase LIKE ? ESCAPE '\'`, likePrefix(prefix))
	if err != nil {
		return nil, fmt.Errorf("userdb: lookup: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Phrase, &e.Context1, &e.Context2, &e.Frequency, &e.LastUsed); err != nil {
			return nil, fmt.Errorf("userdb: scan entry: %w", err)
		}
		level := contextLevel(e.Context1, e.Context2, context1, context2)
		e.Score = Score(e.Frequency, e.LastUsed, now, level)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("userdb: iterate entries: %w", err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	db.lookupCount.Add(1)
	if len(out) > 0 {
		db.hitCount.Add(1)
	}
	return out, nil
}

func likePrefix(prefix string) string {
	escaped := strings.NewReplacer("\\", "\\\\", "%", "\\%", "_", "\\_").Replace(prefix)
	return escaped + "%"
}

// Forget deletes the entry for the exact (phrase, context1, context2).
func (db *DB) Forget(phrase, context1, context2 string) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()
	_, err := db.sql.Exec("DELETE FROM entries WHERE phrase = ? AND context1 = ? AND context2 = ?",
		phrase, context1, context2)
	if err != nil {
		return fmt.Errorf("userdb: forget: %w", err)
	}
	return nil
}

// DecayPass halves frequency for entries older than the half-life and
// purges entries below decayEpsilon past decayAgeSec (spec §4.4).
func (db *DB) DecayPass(now int64) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	tx, err := db.sql.Begin()
	if err != nil {
		return fmt.Errorf("userdb: decay_pass begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
UPDATE entries SET frequency = frequency / 2
WHERE ? - last_used > ?`, now, halfLife); err != nil {
		return fmt.Errorf("userdb: decay_pass halve: %w", err)
	}
	if _, err := tx.Exec(`
DELETE FROM entries WHERE frequency < ? AND ? - last_used > ?`,
		decayEpsilon, now, decayAgeSec); err != nil {
		return fmt.Errorf("userdb: decay_pass purge: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("userdb: decay_pass commit: %w", err)
	}

	if err := db.compactIfFragmented(); err != nil {
		log.Warnf("userdb: compaction after decay pass failed: %v", err)
	}
	return nil
}

// compactIfFragmented runs VACUUM when the fraction of free (deleted
// but unreclaimed) pages crosses compactFreelistRatio, following up
// DecayPass's purge step with the reclaim it otherwise leaves pending
// (SPEC_FULL's vacuuming/compaction supplement). Must be called with
// writeMu already held.
func (db *DB) compactIfFragmented() error {
	var freelist, pageCount int
	if err := db.sql.QueryRow("PRAGMA freelist_count").Scan(&freelist); err != nil {
		return fmt.Errorf("userdb: read freelist_count: %w", err)
	}
	if err := db.sql.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return fmt.Errorf("userdb: read page_count: %w", err)
	}
	if pageCount == 0 || float64(freelist)/float64(pageCount) < compactFreelistRatio {
		return nil
	}
	log.Infof("userdb: %d/%d pages free, running VACUUM", freelist, pageCount)
	if _, err := db.sql.Exec("VACUUM"); err != nil {
		return fmt.Errorf("userdb: vacuum: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	if db.sql == nil {
		return nil
	}
	return db.sql.Close()
}

// OpenOrQuarantine opens the UserDB at path; on corruption (spec §7
// "UserDBCorruption") it moves the file aside with a timestamp suffix
// and opens a fresh, empty database rather than failing startup.
func OpenOrQuarantine(path string) (*DB, error) {
	db, err := Open(path)
	if err == nil {
		var result string
		if scanErr := db.sql.QueryRow("PRAGMA integrity_check").Scan(&result); scanErr == nil && result == "ok" {
			return db, nil
		} else if scanErr != nil {
			err = scanErr
		} else {
			err = fmt.Errorf("integrity_check reported %q", result)
		}
		db.Close()
	}

	log.Errorf("userdb: %s appears corrupted (%v); quarantining and starting fresh", path, err)
	quarantined := fmt.Sprintf("%s.corrupt.%d", path, time.Now().Unix())
	if renameErr := os.Rename(path, quarantined); renameErr != nil && !errors.Is(renameErr, os.ErrNotExist) {
		log.Warnf("userdb: could not quarantine %s: %v", path, renameErr)
	}
	if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
		return nil, fmt.Errorf("userdb: create dir for fresh db: %w", mkErr)
	}
	return Open(path)
}
