package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"github.com/divVerent/staffmerger/internal/file"
	"github.com/divVerent/staffmerger/internal/processor"
	"github.com/divVerent/staffmerger/internal/score"
)

var (
	c        = flag.String("c", "", "config file name (YAML)")
	d        = flag.String("d", "", "document file name (.yml, .yml.age or .db)")
	o        = flag.String("o", "", "output MIDI file name (default: derived from -d)")
	staff    = flag.Int("staff", 1, "staff to export")
	measures = flag.String("measures", "", "measure range of the form first-last (default: all)")
	dump     = flag.Bool("dump", false, "also log the exported layers")
)

func Main() error {
	if *d == "" {
		return fmt.Errorf("-d is required")
	}
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %v", err)
	}
	config, err := file.ReadConfig(os.DirFS(cwd), *c)
	if err != nil {
		return fmt.Errorf("failed to read config: %v", err)
	}

	pass := os.Getenv(config.PassphraseEnv)
	if pass == "" && file.IsEncrypted(*d) && term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprint(os.Stderr, "Passphrase: ")
		p, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("could not read passphrase: %v", err)
		}
		pass = string(p)
	}

	doc, err := file.ReadDocument(*d, pass)
	if err != nil {
		return fmt.Errorf("failed to read document: %v", err)
	}

	r := processor.MeasureRange{Start: 1, End: doc.NumMeasures()}
	if *measures != "" {
		if _, err := fmt.Sscanf(*measures, "%d-%d", &r.Start, &r.End); err != nil {
			return fmt.Errorf("failed to parse -measures: %q not in format n-n", *measures)
		}
	}

	name := fmt.Sprintf("staff %d", *staff)
	if st, found := doc.Staff(score.StaffID(*staff)); found && st.Name != "" {
		name = st.Name
	}

	for _, slot := range score.Slots() {
		entries, notes, err := processor.CountEntries(doc, score.Location{Staff: score.StaffID(*staff), Slot: slot}, r)
		if err != nil {
			return fmt.Errorf("failed to read layer %d: %v", slot, err)
		}
		log.Printf("Layer %d: %d entries, %d notes.", slot, entries, notes)
	}

	if *dump {
		for _, slot := range score.Slots() {
			for _, m := range r.Measures() {
				t, err := doc.LoadTimeline(score.StaffID(*staff), slot, m)
				if err != nil {
					return err
				}
				processor.DumpTimeline("export", t)
			}
		}
	}

	mid, err := processor.ExportMIDI(doc, score.StaffID(*staff), r, config.MIDI, name)
	if err != nil {
		return fmt.Errorf("failed to export: %v", err)
	}

	out := *o
	if out == "" {
		base := strings.TrimSuffix(*d, ".age")
		out = strings.TrimSuffix(base, filepath.Ext(base)) + fmt.Sprintf(".staff%d.mid", *staff)
	}
	if err := mid.WriteFile(out); err != nil {
		return fmt.Errorf("failed to write %v: %v", out, err)
	}
	log.Printf("Wrote %v.", out)
	return nil
}

func main() {
	flag.Parse()
	err := Main()
	if err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
