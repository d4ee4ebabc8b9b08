package userdb

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "userdb.sqlite3"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordCommitAndLookup(t *testing.T) {
	db := openTestDB(t)
	if err := db.RecordCommit("hello", "ctx1", "ctx2", 100); err != nil {
		t.Fatalf("record_commit: %v", err)
	}
	if err := db.RecordCommit("hello", "ctx1", "ctx2", 200); err != nil {
		t.Fatalf("second record_commit: %v", err)
	}

	entries, err := db.Lookup("hel", "ctx1", "ctx2", 200, 10)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(entries) != 1 || entries[0].Phrase != "hello" || entries[0].Frequency != 2 {
		t.Fatalf("got %+v, want one entry frequency=2", entries)
	}
}

func TestOffTheRecordSkipsWrites(t *testing.T) {
	db := openTestDB(t)
	db.SetOffTheRecord(true)
	if err := db.RecordCommit("ghost", "", "", 100); err != nil {
		t.Fatalf("record_commit: %v", err)
	}
	entries, err := db.Lookup("ghost", "", "", 100, 10)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("off-the-record commit should not have been recorded, got %+v", entries)
	}
}

func TestRecordModeNothingSkipsWrites(t *testing.T) {
	db := openTestDB(t)
	db.SetRecordMode(RecordNothing)
	db.RecordCommit("never", "", "", 100)
	entries, _ := db.Lookup("never", "", "", 100, 10)
	if len(entries) != 0 {
		t.Fatalf("RecordNothing should skip the write, got %+v", entries)
	}
}

func TestRecordModeCorrectRequiresValidator(t *testing.T) {
	db := openTestDB(t)
	db.SetRecordMode(RecordCorrect)
	db.SetDictionaryValidator(func(phrase string) bool { return phrase == "valid" })

	db.RecordCommit("invalid", "", "", 100)
	db.RecordCommit("valid", "", "", 100)

	if entries, _ := db.Lookup("invalid", "", "", 100, 10); len(entries) != 0 {
		t.Fatalf("invalid phrase should not have been recorded")
	}
	if entries, _ := db.Lookup("valid", "", "", 100, 10); len(entries) != 1 {
		t.Fatalf("valid phrase should have been recorded")
	}
}

func TestForgetDeletesEntry(t *testing.T) {
	db := openTestDB(t)
	db.RecordCommit("bye", "", "", 100)
	if err := db.Forget("bye", "", ""); err != nil {
		t.Fatalf("forget: %v", err)
	}
	entries, _ := db.Lookup("bye", "", "", 100, 10)
	if len(entries) != 0 {
		t.Fatalf("forgotten entry should not resolve, got %+v", entries)
	}
}

func TestEvictAtCeiling(t *testing.T) {
	db := openTestDB(t)
	db.SetCeiling(2)
	db.RecordCommit("old", "", "", 1)
	db.RecordCommit("older", "", "", 0)
	db.RecordCommit("newest", "", "", 100)

	entries, _ := db.Lookup("", "", "", 100, 10)
	if len(entries) != 2 {
		t.Fatalf("ceiling of 2 should have evicted one entry, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Phrase == "older" {
			t.Fatalf("lowest (frequency, last_used) entry should have been evicted")
		}
	}
}

func TestDecayPassHalvesThenPurges(t *testing.T) {
	db := openTestDB(t)
	db.RecordCommit("fading", "", "", 0)
	now := int64(halfLife + decayAgeSec + 1)

	// one pass only halves (1 -> 0.5), not yet below epsilon.
	if err := db.DecayPass(now); err != nil {
		t.Fatalf("decay_pass: %v", err)
	}
	if entries, _ := db.Lookup("fading", "", "", now, 10); len(entries) != 1 {
		t.Fatalf("a single halving should not yet purge the entry, got %+v", entries)
	}

	// enough repeated passes drive frequency below decayEpsilon, at
	// which point the age-gated purge removes it.
	for i := 0; i < 10; i++ {
		if err := db.DecayPass(now); err != nil {
			t.Fatalf("decay_pass iteration %d: %v", i, err)
		}
	}
	entries, _ := db.Lookup("fading", "", "", now, 10)
	if len(entries) != 0 {
		t.Fatalf("entry older than decayAgeSec with frequency below epsilon should be purged, got %+v", entries)
	}
}

func TestStatsReportsEntryCountAndHitRate(t *testing.T) {
	db := openTestDB(t)
	db.RecordCommit("hello", "", "", 100)

	if _, err := db.Lookup("hel", "", "", 100, 10); err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if _, err := db.Lookup("nope", "", "", 100, 10); err != nil {
		t.Fatalf("lookup: %v", err)
	}

	stats, err := db.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.EntryCount != 1 {
		t.Fatalf("want 1 entry, got %d", stats.EntryCount)
	}
	if stats.LookupCount != 2 {
		t.Fatalf("want 2 lookups recorded, got %d", stats.LookupCount)
	}
	if stats.HitCount != 1 {
		t.Fatalf("want 1 hit recorded, got %d", stats.HitCount)
	}
	if got := stats.HitRate(); got != 0.5 {
		t.Fatalf("want hit rate 0.5, got %v", got)
	}
}

func TestStatsHitRateZeroWithNoLookups(t *testing.T) {
	db := openTestDB(t)
	stats, err := db.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if got := stats.HitRate(); got != 0 {
		t.Fatalf("want hit rate 0 with no lookups, got %v", got)
	}
}

func TestDecayPassCompactsAfterHeavyPurge(t *testing.T) {
	db := openTestDB(t)
	now := int64(halfLife + decayAgeSec + 1)
	for i := 0; i < 50; i++ {
		db.RecordCommit(string(rune('a'+i%26))+"-word", "", "", 0)
	}

	// drive every entry's frequency below epsilon and past the purge age.
	for i := 0; i < 10; i++ {
		if err := db.DecayPass(now); err != nil {
			t.Fatalf("decay_pass iteration %d: %v", i, err)
		}
	}

	stats, err := db.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.EntryCount != 0 {
		t.Fatalf("want every entry purged, got %d remaining", stats.EntryCount)
	}
	// compactIfFragmented must not error out even when VACUUM runs; a
	// direct call exercises it without depending on freelist timing.
	if err := db.compactIfFragmented(); err != nil {
		t.Fatalf("compactIfFragmented: %v", err)
	}
}

func TestScoreContextLevels(t *testing.T) {
	now := int64(1000)
	uni := Score(5, now, now, ContextUnigram)
	bi := Score(5, now, now, ContextBigram)
	tri := Score(5, now, now, ContextTrigram)
	if !(tri > bi && bi > uni) {
		t.Fatalf("want trigram > bigram > unigram score, got %v %v %v", tri, bi, uni)
	}
}

func TestScoreDecaysWithAge(t *testing.T) {
	now := int64(halfLife)
	fresh := Score(1, now, now, ContextUnigram)
	aged := Score(1, 0, now, ContextUnigram)
	if aged >= fresh {
		t.Fatalf("aged score %v should be lower than fresh score %v", aged, fresh)
	}
	// Score's recency factor is exp(-age/halfLife), so an age of one
	// halfLife scales the frequency term by exp(-1) ≈ 0.368.
	if aged > 0.38 || aged < 0.36 {
		t.Fatalf("after one halfLife, aged score %v should be close to exp(-1) ≈ 0.368", aged)
	}
}

func TestContextLevelMatching(t *testing.T) {
	if contextLevel("a", "b", "a", "b") != ContextTrigram {
		t.Fatalf("exact context1+context2 match should be trigram")
	}
	if contextLevel("a", "x", "a", "b") != ContextBigram {
		t.Fatalf("context1-only match should be bigram")
	}
	if contextLevel("z", "x", "a", "b") != ContextUnigram {
		t.Fatalf("no match should be unigram")
	}
}

func TestLikePrefixEscapesWildcards(t *testing.T) {
	if got := likePrefix("50%_off"); got != `50\%\_off%` {
		t.Fatalf("got %q", got)
	}
}
