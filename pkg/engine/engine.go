// Package engine composes every component package into the single
// running input engine of spec §5/§9: config, compose, transliteration,
// UserDB, dictionary, emoji, candidate production and the preedit state
// machine, plus the event loop and its two auxiliary workers. Ownership
// is one-way: Engine holds everything else, nothing else holds an
// Engine, and cross-component communication is by passing values
// through method calls, not shared mutable references (Design Notes §9).
package engine

import (
	"path/filepath"
	"time"

	"github.com/keyweave/inputcore/internal/logger"
	"github.com/keyweave/inputcore/pkg/candidate"
	"github.com/keyweave/inputcore/pkg/compose"
	"github.com/keyweave/inputcore/pkg/config"
	"github.com/keyweave/inputcore/pkg/dictionary"
	"github.com/keyweave/inputcore/pkg/emoji"
	"github.com/keyweave/inputcore/pkg/keymap"
	"github.com/keyweave/inputcore/pkg/preedit"
	"github.com/keyweave/inputcore/pkg/translit"
	"github.com/keyweave/inputcore/pkg/userdb"
)

var log = logger.New("engine")

// Paths names every on-disk resource the engine needs, resolved by the
// caller (cmd/inputengined) from pkg/config's XDG helpers before
// construction so Engine itself stays filesystem-layout agnostic.
type Paths struct {
	ConfigPath        string
	UserDBPath        string
	ComposeSystemPath string
	ComposeUserPath   string
	ComposeSystemDir  string
	DictionaryDir     func(locale string) string
	EmojiEntries      []emoji.Entry
}

// Engine is the composed running system. One instance serves one host
// connection (spec §5: "one process, one connection, one event loop").
type Engine struct {
	paths Paths

	cfgWatcher    *config.Watcher
	composeSt     *compose.Store
	composeEngine *compose.Engine
	translitSt    *translit.Set
	userDB        *userdb.DB
	dict          *dictionary.Set
	emojiIdx      *emoji.Index
	cands         *candidate.Engine
	keyTable      *keymap.Table

	ctrl *preedit.Controller

	writer *userDBWriter

	// asyncHostAction, if set, receives host actions produced outside
	// HandleKeyEvent's synchronous return path: today, the debounced
	// candidate list pushed once ctrl's timer finishes production
	// (pkg/hostproto wires this to an unsolicited write, the same way it
	// already pushes PublishStats off the event loop).
	asyncHostAction func([]HostAction)

	emojiMode       bool
	offTheRecord    bool
	compositionIMEs []string
	activeIME       int
}

// New constructs the full Engine graph: loads config, opens the UserDB
// (quarantining it if corrupt, spec §7 UserDBCorruption), builds the
// compose Store, transliteration Set, dictionary Set and emoji Index,
// wires the CandidateEngine and PreeditController over them, and starts
// the UserDB writer worker. Before returning it also hooks the
// config/compose watchers' reload callbacks (wireHotReload) and the
// debounced candidate push (wireCandidateNotify).
func New(paths Paths) (*Engine, error) {
	cfg, err := config.Load(paths.ConfigPath)
	if err != nil {
		log.Warnf("config load failed, using defaults: %v", err)
		cfg = config.Default()
	}
	watcher, err := config.NewWatcher(paths.ConfigPath, cfg)
	if err != nil {
		return nil, err
	}

	db, err := userdb.OpenOrQuarantine(paths.UserDBPath)
	if err != nil {
		return nil, err
	}

	composeSt, errs := compose.NewStore(paths.ComposeSystemPath, paths.ComposeUserPath, "", paths.ComposeSystemDir)
	for _, e := range errs {
		log.Warnf("compose file parse error: %v", e)
	}

	dictSet := dictionary.NewSet(cfg.Dictionaries, paths.DictionaryDir)

	var emojiIdx *emoji.Index
	if len(paths.EmojiEntries) > 0 {
		opts := []emoji.Option{emoji.WithRomanization(true)}
		if cfg.EmojiTriggerCharacters != "" {
			opts = append(opts, emoji.WithTriggerChar(cfg.EmojiTriggerCharacters))
		}
		emojiIdx = emoji.Build(paths.EmojiEntries, opts...)
	}

	candEngine := candidate.NewEngine(db, dictSet, emojiIdx)

	translitSt := translit.BuildSet(cfg.EffectiveInputMethods())
	buf := preedit.NewBuffer(translitSt, firstOr(cfg.EffectiveInputMethods(), "NoIME"))

	composeEngine := compose.NewEngine(composeSt.Active())

	ctrlOpts := preedit.Options{
		AutoCommitChars: runeSet(cfg.AutoCommitCharacters),
		AutoCapitalize:  true,
		DebounceDelay:   time.Duration(cfg.CandidatesDelayMilliseconds) * time.Millisecond,
		CandidateOpts:   candidateOptsFrom(cfg),
	}
	ctrl := preedit.New(buf, composeEngine, candEngine, ctrlOpts)

	keyTable, kerrs := keymap.NewTable(cfg.KeyBindings)
	for _, e := range kerrs {
		log.Warnf("key binding error: %v", e)
	}

	db.SetRecordMode(userdb.RecordMode(cfg.RecordMode))
	db.SetOffTheRecord(cfg.OffTheRecord)
	if dictSet != nil {
		db.SetDictionaryValidator(dictSet.SpellcheckAny)
	}

	e := &Engine{
		paths:           paths,
		cfgWatcher:      watcher,
		composeSt:       composeSt,
		composeEngine:   composeEngine,
		translitSt:      translitSt,
		userDB:          db,
		dict:            dictSet,
		emojiIdx:        emojiIdx,
		cands:           candEngine,
		keyTable:        keyTable,
		ctrl:            ctrl,
		emojiMode:       cfg.EmojiPredictions,
		offTheRecord:    cfg.OffTheRecord,
		compositionIMEs: cfg.EffectiveInputMethods(),
	}
	e.writer = newUserDBWriter(db)
	e.writer.start()
	e.wireHotReload()
	e.wireCandidateNotify()
	e.syncLetterClassifier()
	return e, nil
}

// wireCandidateNotify hooks the Controller's debounce timer so a
// candidate production that lands after HandleKeyEvent has already
// returned still reaches the host, via SetAsyncHostActionHandler's
// caller-registered sink.
func (e *Engine) wireCandidateNotify() {
	e.ctrl.OnCandidatesReady(func() {
		if e.asyncHostAction == nil {
			return
		}
		e.asyncHostAction([]HostAction{{
			Kind:       ActionUpdateCandidates,
			Candidates: e.ctrl.Candidates(),
		}})
	})
}

// SetAsyncHostActionHandler registers fn to receive host actions pushed
// outside HandleKeyEvent's synchronous return value. pkg/hostproto
// calls this once at connection setup, writing each action straight to
// the wire the same way PublishStats already does from its own
// goroutine (Codec.WriteOutbound serializes the two against each
// other).
func (e *Engine) SetAsyncHostActionHandler(fn func([]HostAction)) {
	e.asyncHostAction = fn
}

// syncLetterClassifier pushes the active input method's script-aware
// letter predicate into the compose engine's dead-key fallback
// (SPEC_FULL's per-input-method letter classification supplement),
// called at construction and whenever cycleInputMethod changes the
// active method.
func (e *Engine) syncLetterClassifier() {
	methods := e.translitSt.Methods()
	if len(methods) == 0 {
		return
	}
	idx := e.activeIME
	if idx < 0 || idx >= len(methods) {
		idx = 0
	}
	e.composeEngine.SetLetterClassifier(methods[idx].LetterClassifier())
}

// candidateOptsFrom maps the persistent Config surface onto
// candidate.Options, the shape CandidateEngine.Produce actually consumes.
func candidateOptsFrom(cfg *config.Config) candidate.Options {
	return candidate.Options{
		PageSize:      cfg.PageSize,
		EmojiEnabled:  cfg.EmojiPredictions,
		InlineEnabled: cfg.InlineCompletion != config.InlineOff,
		AutoSelect:    cfg.AutoSelectCandidate == config.AutoSelectOn,
	}
}

func firstOr(list []string, fallback string) string {
	if len(list) > 0 {
		return list[0]
	}
	return fallback
}

func runeSet(chars string) map[rune]bool {
	if chars == "" {
		return nil
	}
	set := make(map[rune]bool, len(chars))
	for _, r := range chars {
		set[r] = true
	}
	return set
}

// wireHotReload hooks the config and compose Watchers' OnLoad/OnReload
// callbacks. A compose-overlay reload hands the new trie to the compose
// engine through SetTrie. A config reload is only logged: Config()
// returns the new snapshot, but the Controller, CandidateEngine, key
// table and UserDB keep the options New built from the startup config.
func (e *Engine) wireHotReload() {
	e.cfgWatcher.OnLoad(func(cfg *config.Config) {
		log.Infof("config reloaded to version %d", cfg.Version())
	})
	e.composeSt.OnReload(func(trie *compose.Trie, errs []error) {
		for _, err := range errs {
			log.Warnf("compose overlay reload error: %v", err)
		}
		e.composeEngine.SetTrie(trie)
	})
}

// Config returns the latest published configuration snapshot.
func (e *Engine) Config() *config.Config { return e.cfgWatcher.Current() }

// Controller exposes the PreeditController for host-facing packages
// (pkg/hostproto) that need direct read access to preedit/candidate state.
func (e *Engine) Controller() *preedit.Controller { return e.ctrl }

// DecayUserDB enqueues a UserDB decay pass on the writer worker without
// blocking the caller (spec §4.4's periodic decay_pass, driven by
// cmd/inputengined on a timer rather than by the event loop itself).
func (e *Engine) DecayUserDB(now int64) {
	e.writer.DecayPass(now)
}

// Stats aggregates UserDB's and CandidateEngine's debug-property
// surfaces (SPEC_FULL's statistics supplement), forwarded by
// pkg/hostproto as a register_properties message rather than
// interpreted by the engine itself.
type Stats struct {
	UserDB    userdb.Stats
	Candidate candidate.Stats
}

// Stats reports the engine's current UserDB and CandidateEngine
// statistics.
func (e *Engine) Stats() (Stats, error) {
	dbStats, err := e.userDB.Stats()
	if err != nil {
		return Stats{}, err
	}
	return Stats{UserDB: dbStats, Candidate: e.cands.Stats()}, nil
}

// Close releases every owned resource: filesystem watchers, the UserDB
// writer worker, and the UserDB handle itself.
func (e *Engine) Close() error {
	e.writer.stop()
	e.cfgWatcher.Close()
	e.composeSt.Close()
	return e.userDB.Close()
}

// DefaultPaths fills in Paths from pkg/config's XDG resolution helpers,
// for callers (cmd/inputengined) that don't need custom overrides.
func DefaultPaths(dictionaryDir func(locale string) string, emojiEntries []emoji.Entry) (Paths, error) {
	cfgPath, err := config.DefaultPath()
	if err != nil {
		return Paths{}, err
	}
	dataDir, err := config.DataDir()
	if err != nil {
		return Paths{}, err
	}
	return Paths{
		ConfigPath:        cfgPath,
		UserDBPath:        filepath.Join(dataDir, "userdb.sqlite3"),
		ComposeSystemPath: filepath.Join(dataDir, "compose", "system"),
		ComposeUserPath:   filepath.Join(dataDir, "compose", "user"),
		ComposeSystemDir:  filepath.Join(dataDir, "compose"),
		DictionaryDir:     dictionaryDir,
		EmojiEntries:      emojiEntries,
	}, nil
}
