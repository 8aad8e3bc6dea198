// Package main provides the operator CLI for importing songs and
// playing along from a terminal.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	"github.com/hmuro/playalong/internal/app/importer"
	"github.com/hmuro/playalong/internal/app/session"
	"github.com/hmuro/playalong/internal/domain/segment"
	"github.com/hmuro/playalong/internal/domain/song"
	"github.com/hmuro/playalong/internal/infra/history"
	"github.com/hmuro/playalong/internal/infra/score"
)

var (
	app = kingpin.New("playalong", "Play-along engine CLI")

	// import command
	importCmd  = app.Command("import", "Import a MusicXML score and print the normalized song")
	importFile = importCmd.Arg("file", "Score file (MusicXML)").Required().ExistingFile()

	// analyze command
	analyzeCmd   = app.Command("analyze", "Normalize a raw AI payload into a song")
	analyzeFile  = analyzeCmd.Arg("file", "File containing the raw payload").Required().ExistingFile()
	analyzeQuery = analyzeCmd.Flag("query", "Original source query, used for media link extraction").String()

	// play command
	playCmd  = app.Command("play", "Play along: stdin lines are detection fragments")
	playFile = playCmd.Arg("file", "Score file (.xml/.musicxml) or song JSON").Required().ExistingFile()

	// history command
	historyCmd  = app.Command("history", "List recently played songs")
	historyPath = historyCmd.Flag("path", "History database directory").Default("data/history").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	switch command {
	case importCmd.FullCommand():
		runImport(*importFile)
	case analyzeCmd.FullCommand():
		runAnalyze(*analyzeFile, *analyzeQuery)
	case playCmd.FullCommand():
		runPlay(*playFile)
	case historyCmd.FullCommand():
		runHistory(*historyPath)
	}
}

func runImport(path string) {
	rec := loadRecord(path)
	printRecord(rec)
	printSegments(segment.Flatten(rec))
}

func runAnalyze(path, query string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fatal("Failed to read payload: %v", err)
	}

	rec, err := importer.Normalize(string(data), query)
	if err != nil {
		fatal("Could not analyze song: %v", err)
	}

	out, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		fatal("Failed to encode song: %v", err)
	}
	fmt.Println(string(out))
}

func runPlay(path string) {
	rec := loadRecord(path)

	sess := session.NewManager(nil)
	go drainEvents(sess)

	snap, err := sess.Load(context.Background(), rec)
	if err != nil {
		fatal("Failed to load song: %v", err)
	}

	printRecord(rec)
	fmt.Printf("\n%d segments. Type detection fragments (e.g. \"[C]\"), Ctrl-D to quit.\n\n", snap.Total)
	printPrompt(sess)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		snap, err := sess.HandleFragment(scanner.Text())
		if err != nil {
			fatal("Detection failed: %v", err)
		}
		if snap.Done {
			fmt.Println("Song complete!")
			return
		}
		printPrompt(sess)
	}
}

func runHistory(path string) {
	store, err := history.Open(history.Options{Dir: path})
	if err != nil {
		fatal("Failed to open history: %v", err)
	}
	defer store.Close()

	entries, err := store.List(context.Background())
	if err != nil {
		fatal("Failed to list history: %v", err)
	}

	if len(entries) == 0 {
		fmt.Println("No songs in history.")
		return
	}
	for _, e := range entries {
		fmt.Printf("%s  %-30s  %s\n", e.CreatedAt.Format("2006-01-02 15:04"), e.Data.Title, e.Data.Artist)
	}
}

// loadRecord reads a song from a MusicXML score or a song JSON file.
func loadRecord(path string) *song.Record {
	data, err := os.ReadFile(path)
	if err != nil {
		fatal("Failed to read file: %v", err)
	}

	if strings.HasSuffix(path, ".json") {
		var rec song.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			fatal("Failed to parse song JSON: %v", err)
		}
		return &rec
	}

	rec, err := score.Parse(strings.NewReader(string(data)))
	if err != nil {
		fatal("Failed to parse score: %v", err)
	}
	return rec
}

func printRecord(rec *song.Record) {
	fmt.Printf("Title:  %s\n", rec.Title)
	fmt.Printf("Artist: %s\n", rec.Artist)
	fmt.Printf("Key:    %s\n", rec.Key)
	if len(rec.ChordVocabulary) > 0 {
		fmt.Printf("Chords: %s\n", strings.Join(rec.ChordVocabulary, ", "))
	}
}

func printSegments(segments []segment.Segment) {
	fmt.Println()
	for _, seg := range segments {
		chord := seg.Chord
		if chord == "" {
			chord = "-"
		}
		fmt.Printf("%3d  %-6s %s\n", seg.GlobalIndex, chord, seg.Text)
	}
}

func printPrompt(sess *session.Manager) {
	snap := sess.Snapshot()
	for _, seg := range sess.Segments() {
		if seg.GlobalIndex == snap.Position {
			fmt.Printf("[%d/%d] waiting for %q (%s)\n> ", snap.Position, snap.Total, seg.Chord, seg.Text)
			return
		}
	}
	fmt.Printf("[%d/%d]\n> ", snap.Position, snap.Total)
}

// drainEvents keeps the session's event channel from backing up; the
// CLI prints state inline instead of consuming events.
func drainEvents(sess *session.Manager) {
	for range sess.Events() {
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
