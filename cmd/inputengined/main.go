/*
Package main implements the input engine daemon.

inputengined composes pkg/engine into a running process and speaks
pkg/hostproto's msgpack IPC over stdin/stdout, the same transport shape
as a host-embedded input method process: one process, one connection,
one event loop (spec §5).

# Usage

Start the daemon with default XDG-resolved paths:

	inputengined

Point it at a specific config file and emoji data file, with debug
logging enabled:

	inputengined -config /path/to/config.toml -emoji /path/to/emoji.json -d

# Exit codes

Exit codes follow spec §6's CLI convention: 0 success, 1 error, 2 misuse.
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/keyweave/inputcore/pkg/emoji"
	"github.com/keyweave/inputcore/pkg/engine"
	"github.com/keyweave/inputcore/pkg/hostproto"
)

const exitMisuse = 2

func sigHandler(eng *engine.Engine) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nshutting down...\n")
		if eng != nil {
			eng.Close()
		}
		os.Exit(0)
	}()
}

func main() {
	configPath := flag.String("config", "", "path to config.toml (default: XDG config dir)")
	dictDir := flag.String("dict-dir", "", "directory containing per-locale dictionary chunk files")
	emojiPath := flag.String("emoji", "", "path to the bundled emoji JSON data file")
	debugMode := flag.Bool("d", false, "enable debug logging")
	decayInterval := flag.Duration("decay-interval", 24*time.Hour, "UserDB decay pass interval")
	statsInterval := flag.Duration("stats-interval", 10*time.Minute, "debug-property (register_properties) publish interval; 0 disables")
	flag.Parse()

	if *debugMode {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	var emojiEntries []emoji.Entry
	if *emojiPath != "" {
		entries, err := emoji.LoadEntries(*emojiPath)
		if err != nil {
			log.Errorf("failed to load emoji data from %s: %v", *emojiPath, err)
			os.Exit(exitMisuse)
		}
		emojiEntries = entries
	}

	paths, err := engine.DefaultPaths(dictionaryDirResolver(*dictDir), emojiEntries)
	if err != nil {
		log.Errorf("failed to resolve default paths: %v", err)
		os.Exit(exitMisuse)
	}
	if *configPath != "" {
		paths.ConfigPath = *configPath
	}

	eng, err := engine.New(paths)
	if err != nil {
		log.Errorf("failed to start engine: %v", err)
		os.Exit(1)
	}
	sigHandler(eng)
	defer eng.Close()

	go runDecayLoop(eng, *decayInterval)

	conn := hostproto.NewConn(hostproto.NewCodec(os.Stdin, os.Stdout), eng)
	go runStatsLoop(conn, *statsInterval)
	log.Info("input engine ready")
	if err := conn.Start(); err != nil {
		log.Errorf("connection ended: %v", err)
		os.Exit(1)
	}
}

// dictionaryDirResolver builds the per-locale directory lookup
// pkg/dictionary.Set needs: <dictDir>/<locale>/ if a base dir was
// given, otherwise every locale resolves to empty (dictionary features
// degrade gracefully, never crash, per spec §7's TransientIO handling).
func dictionaryDirResolver(baseDir string) func(locale string) string {
	return func(locale string) string {
		if baseDir == "" {
			return ""
		}
		return filepath.Join(baseDir, locale)
	}
}

func runDecayLoop(eng *engine.Engine, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		eng.DecayUserDB(time.Now().Unix())
	}
}

// runStatsLoop periodically writes a register_properties message
// reporting UserDB/CandidateEngine debug statistics (SPEC_FULL's
// statistics supplement). Runs on its own goroutine alongside Conn.Start;
// Codec.WriteOutbound serializes the two against the shared stdout pipe.
func runStatsLoop(conn *hostproto.Conn, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		if err := conn.PublishStats(); err != nil {
			log.Warnf("failed to publish debug stats: %v", err)
		}
	}
}
