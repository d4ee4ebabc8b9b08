/*
Package main implements inputctl, an interactive debug client driving the
full key-event state machine (spec §3/§4.8), not just prefix completion.

Unlike inputengined, inputctl runs pkg/engine in-process: no msgpack, no
stdin/stdout framing. Each input line is interpreted as a sequence of
simulated key presses, letting a developer exercise insert/backspace/
commit/cancel/candidate-selection without a host.

# Usage

	inputctl

Type plain characters to insert them. Lines beginning with ":" are
control commands:

	:commit            commit the current preedit
	:backspace         remove the last typed character
	:cancel            cancel the current preedit/selection
	:next / :prev       move the candidate selection
	:emoji             toggle emoji mode
	:related           show related candidates for the top candidate
	:quit              exit
*/
package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/keyweave/inputcore/pkg/engine"
	"github.com/keyweave/inputcore/pkg/keymap"
)

var (
	bannerStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	candidateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#286983", Dark: "#9ccfd8"})
	selectedStyle = candidateStyle.Bold(true).Underline(true)
)

func sigHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		fmt.Fprintln(os.Stderr, "\nexiting...")
		os.Exit(0)
	}()
}

func main() {
	sigHandler()
	log.SetReportTimestamp(false)

	noDictionaries := func(string) string { return "" }
	paths, err := engine.DefaultPaths(noDictionaries, nil)
	if err != nil {
		log.Fatalf("failed to resolve default paths: %v", err)
		os.Exit(1)
	}

	eng, err := engine.New(paths)
	if err != nil {
		log.Fatalf("failed to start engine: %v", err)
		os.Exit(1)
	}
	defer eng.Close()

	fmt.Println(bannerStyle.Render("inputctl [debug]"))
	fmt.Println("type to insert, ':' prefixes a command, Ctrl+C to exit")

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ":") {
			if !runCommand(eng, strings.TrimPrefix(line, ":")) {
				return
			}
		} else {
			for _, r := range line {
				eng.HandleKeyEvent(keymap.KeyEvent{Keysym: string(r), Rune: r})
			}
		}
		printState(eng)
	}
}

func runCommand(eng *engine.Engine, cmd string) bool {
	switch strings.TrimSpace(cmd) {
	case "commit":
		eng.HandleKeyEvent(keymap.KeyEvent{Keysym: "Return"})
	case "backspace":
		eng.HandleKeyEvent(keymap.KeyEvent{Keysym: "BackSpace"})
	case "cancel":
		eng.HandleKeyEvent(keymap.KeyEvent{Keysym: "Escape"})
	case "next":
		eng.HandleKeyEvent(keymap.KeyEvent{Keysym: "Down"})
	case "prev":
		eng.HandleKeyEvent(keymap.KeyEvent{Keysym: "Up"})
	case "emoji":
		eng.HandleKeyEvent(keymap.KeyEvent{Keysym: "F6"})
	case "related":
		eng.HandleKeyEvent(keymap.KeyEvent{Keysym: "F5"})
	case "quit", "exit":
		return false
	default:
		log.Warnf("unknown command %q", cmd)
	}
	return true
}

func printState(eng *engine.Engine) {
	ctrl := eng.Controller()
	fmt.Printf("preedit: %q\n", ctrl.Buffer().Canonical())
	cands := ctrl.Candidates()
	if len(cands) == 0 {
		return
	}
	for i, c := range cands {
		style := candidateStyle
		if i == ctrl.Selected() {
			style = selectedStyle
		}
		fmt.Printf("%2d. %s  (%s, %.2f)\n", i+1, style.Render(c.Text), c.Source, c.Score)
	}
}
