package candidate

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/keyweave/inputcore/pkg/dictionary"
	"github.com/keyweave/inputcore/pkg/emoji"
	"github.com/keyweave/inputcore/pkg/userdb"
)

func openTestDB(t *testing.T) *userdb.DB {
	t.Helper()
	db, err := userdb.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open userdb: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestProduceMergesUserDBAboveDictionary(t *testing.T) {
	db := openTestDB(t)
	if err := db.RecordCommit("hello", "", "", 1000); err != nil {
		t.Fatalf("record commit: %v", err)
	}

	set := dictionary.NewSet([]string{"en"}, func(string) string { return "" })
	eng := NewEngine(db, set, nil)

	got := eng.Produce(context.Background(), []string{"hel"}, Options{Now: 1000})
	if len(got) == 0 || got[0].Text != "hello" || got[0].Source != SourceUserDB {
		t.Fatalf("want hello/user_db ranked first, got %+v", got)
	}
}

func TestProducePaginates(t *testing.T) {
	db := openTestDB(t)
	words := []string{"cat", "car", "cap", "can", "cab", "cad", "cay", "caw"}
	for i, w := range words {
		for j := 0; j <= i; j++ {
			if err := db.RecordCommit(w, "", "", 1000); err != nil {
				t.Fatalf("record commit: %v", err)
			}
		}
	}
	eng := NewEngine(db, nil, nil)

	page0 := eng.Produce(context.Background(), []string{"ca"}, Options{Now: 1000, PageSize: 3, Page: 0})
	page1 := eng.Produce(context.Background(), []string{"ca"}, Options{Now: 1000, PageSize: 3, Page: 1})
	if len(page0) != 3 || len(page1) != 3 {
		t.Fatalf("want 3+3 paginated results, got %d and %d", len(page0), len(page1))
	}
	if page0[0].Text == page1[0].Text {
		t.Fatalf("pages should not overlap, both start with %q", page0[0].Text)
	}
}

func TestProduceDeduplicatesAcrossSources(t *testing.T) {
	db := openTestDB(t)
	if err := db.RecordCommit("apple", "", "", 1000); err != nil {
		t.Fatalf("record commit: %v", err)
	}
	set := dictionary.NewSet([]string{"en"}, func(string) string { return "" })
	eng := NewEngine(db, set, nil)

	got := eng.Produce(context.Background(), []string{"app"}, Options{Now: 1000})
	count := 0
	for _, c := range got {
		if c.Text == "apple" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("want apple deduplicated to a single entry, got %d", count)
	}
}

func TestProduceQueriesEmojiWhenEnabled(t *testing.T) {
	idx := emoji.Build([]emoji.Entry{
		{Sequence: "😀", Name: "grinning face", Keywords: []string{"happy"}, Category: "smileys"},
	})
	eng := NewEngine(nil, nil, idx)

	disabled := eng.Produce(context.Background(), []string{"happy"}, Options{Now: 1000, EmojiEnabled: false})
	for _, c := range disabled {
		if c.Source == SourceEmoji {
			t.Fatalf("emoji mode disabled and no trigger char, want no emoji candidates, got %+v", disabled)
		}
	}

	enabled := eng.Produce(context.Background(), []string{"happy"}, Options{Now: 1000, EmojiEnabled: true})
	found := false
	for _, c := range enabled {
		if c.Source == SourceEmoji && c.Text == "😀" {
			found = true
		}
	}
	if !found {
		t.Fatalf("want emoji candidate when emoji mode enabled, got %+v", enabled)
	}
}

func TestProduceTriggerCharForcesEmojiEvenWhenDisabled(t *testing.T) {
	idx := emoji.Build([]emoji.Entry{
		{Sequence: "😀", Name: "grinning face", Keywords: []string{"happy"}, Category: "smileys"},
	}, emoji.WithTriggerChar("_"))
	eng := NewEngine(nil, nil, idx)

	got := eng.Produce(context.Background(), []string{"_happy"}, Options{Now: 1000, EmojiEnabled: false})
	found := false
	for _, c := range got {
		if c.Source == SourceEmoji {
			found = true
		}
	}
	if !found {
		t.Fatalf("want trigger character to force emoji lookup, got %+v", got)
	}
}

func TestInlineRequiresConfidenceAndStrictExtension(t *testing.T) {
	candidates := []Candidate{{Text: "hello", Score: 5}}
	if _, ok := Inline(candidates, "hel", true); !ok {
		t.Fatalf("want inline suggestion for a confident strict extension")
	}
	if _, ok := Inline(candidates, "hello", true); ok {
		t.Fatalf("exact match is not a strict extension, want no inline suggestion")
	}
	low := []Candidate{{Text: "hello", Score: 0.01}}
	if _, ok := Inline(low, "hel", true); ok {
		t.Fatalf("low-confidence score should not produce an inline suggestion")
	}
}

func TestAutoSelectedPicksFirstWhenEnabled(t *testing.T) {
	candidates := []Candidate{{Text: "a"}, {Text: "b"}}
	if got := AutoSelected(candidates, true); got != 0 {
		t.Fatalf("want index 0 selected, got %d", got)
	}
	if got := AutoSelected(candidates, false); got != -1 {
		t.Fatalf("want -1 when auto-select disabled, got %d", got)
	}
}

func TestVariantsAnnotatesSkinTone(t *testing.T) {
	idx := emoji.Build([]emoji.Entry{
		{Sequence: "👍", Name: "thumbs up", Category: "people", Variants: []string{"👍", "👍🏿"}},
		{Sequence: "👍🏿", Name: "thumbs up: dark skin tone", Category: "people"},
	})
	eng := NewEngine(nil, nil, idx)

	got := eng.Variants("👍")
	if len(got) != 2 {
		t.Fatalf("want 2 variant candidates, got %+v", got)
	}
	if got[1].Text != "👍🏿" || got[1].Annotation.SkinTone != "dark" {
		t.Fatalf("want dark-skin-tone variant annotated, got %+v", got[1])
	}
	if got[0].Annotation.SkinTone != "" {
		t.Fatalf("want no skin tone on base form, got %+v", got[0])
	}
}

func TestContextShiftAndClear(t *testing.T) {
	var c Context
	c.Shift("first")
	c.Shift("second")
	if c.Context1 != "second" || c.Context2 != "first" {
		t.Fatalf("want context window first/second, got %+v", c)
	}
	c.Clear()
	if c.Context1 != "" || c.Context2 != "" {
		t.Fatalf("want cleared context, got %+v", c)
	}
}
