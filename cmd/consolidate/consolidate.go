package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/divVerent/staffmerger/internal/file"
	"github.com/divVerent/staffmerger/internal/processor"
	"github.com/divVerent/staffmerger/internal/report"
	"github.com/divVerent/staffmerger/internal/score"
	"github.com/divVerent/staffmerger/internal/version"
)

var (
	c           = flag.String("c", "", "config file name (YAML)")
	d           = flag.String("d", "", "document file name (.yml, .yml.age or .db)")
	t           = flag.String("t", "", "task file name (YAML)")
	o           = flag.String("o", "", "output document file name (default: overwrite the document)")
	addChecksum = flag.Bool("add_checksum", false, "pin the task to the input document by adding its checksum")
	yes         = flag.Bool("y", false, "do not ask before clearing the destination staff")
	keepSources = flag.Bool("keep_sources", false, "do not clear source layers after moving them")
	verbose     = flag.Bool("v", false, "dump every layer written")
	showVersion = flag.Bool("version", false, "print the version and exit")
	midiOut     = flag.String("midi", "", "also export the destination staff over the task's measures to this MIDI file")

	dest     = flag.Int("dest", 0, "destination staff; if set, the task is built from flags and written to -t")
	measures = flag.String("measures", "", "measure range of the form first-last")
	assign   = flag.String("assign", "", "assignments of the form staff/layer:layer staff/layer:layer ...")
	noClear  = flag.Bool("no_auto_clear", false, "keep destination layers nothing is assigned to")
)

func parseMeasures(s string) (processor.MeasureRange, error) {
	var r processor.MeasureRange
	if _, err := fmt.Sscanf(s, "%d-%d", &r.Start, &r.End); err != nil {
		if _, err := fmt.Sscanf(s, "%d", &r.Start); err != nil {
			return r, fmt.Errorf("failed to parse -measures: %q not in format n-n", s)
		}
		r.End = r.Start
	}
	return r, nil
}

func parseAssignments(s string) ([]processor.Assignment, error) {
	var as []processor.Assignment
	for _, item := range strings.Split(s, " ") {
		if item == "" {
			continue
		}
		var a processor.Assignment
		_, err := fmt.Sscanf(item, "%d/%d:%d", &a.SourceStaff, &a.SourceSlot, &a.DestinationSlot)
		if err != nil {
			return nil, fmt.Errorf("failed to parse -assign: %q not in format n/n:n", item)
		}
		as = append(as, a)
	}
	return as, nil
}

func buildTask() error {
	r, err := parseMeasures(*measures)
	if err != nil {
		return err
	}
	as, err := parseAssignments(*assign)
	if err != nil {
		return err
	}
	task := &processor.MergeTask{
		DestinationStaff: score.StaffID(*dest),
		Measures:         r,
		Assignments:      as,
	}
	if *noClear {
		no := false
		task.AutoClearUnassignedSlots = &no
	}
	return file.WriteTask(*t, task)
}

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func confirm(prompt string) bool {
	if *yes {
		return true
	}
	if !stdinIsTerminal() {
		log.Printf("%s Not asking, as standard input is not a terminal; pass -y to confirm.", prompt)
		return false
	}
	fmt.Fprintf(os.Stderr, "%s [y/N] ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func passphrase(config *processor.Config) (string, error) {
	if !file.IsEncrypted(*d) && !file.IsEncrypted(*o) {
		return "", nil
	}
	if p := os.Getenv(config.PassphraseEnv); p != "" {
		return p, nil
	}
	if !stdinIsTerminal() {
		return "", fmt.Errorf("no passphrase: set %v", config.PassphraseEnv)
	}
	fmt.Fprint(os.Stderr, "Passphrase: ")
	p, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("could not read passphrase: %v", err)
	}
	return string(p), nil
}

func Main() error {
	if *showVersion {
		fmt.Println(version.Version())
		return nil
	}
	if *d == "" || *t == "" {
		return fmt.Errorf("-d and -t are required")
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %v", err)
	}
	fsys := os.DirFS(cwd)

	config, err := file.ReadConfig(fsys, *c)
	if err != nil {
		return fmt.Errorf("failed to read config: %v", err)
	}

	if *dest != 0 {
		if err := buildTask(); err != nil {
			return err
		}
		log.Printf("Wrote task %v.", *t)
	}

	pass, err := passphrase(config)
	if err != nil {
		return err
	}

	opts := config.Options()
	opts.Confirm = confirm
	opts.Verbose = *verbose
	if *keepSources {
		opts.KeepSources = true
	}

	rep, err := file.Process(file.Job{
		Config:       config,
		TaskFile:     *t,
		DocumentFile: *d,
		OutputFile:   *o,
		Passphrase:   pass,
		AddChecksum:  *addChecksum,
		Options:      opts,
	})
	if err != nil {
		return err
	}

	if err := report.Render(os.Stdout, rep, config.Report); err != nil {
		return fmt.Errorf("failed to print report: %v", err)
	}

	if *midiOut != "" {
		out := *o
		if out == "" {
			out = *d
		}
		if err := exportMIDI(out, pass, config, rep); err != nil {
			return err
		}
	}
	return nil
}

func exportMIDI(docFile, pass string, config *processor.Config, rep *processor.Report) error {
	doc, err := file.ReadDocument(docFile, pass)
	if err != nil {
		return fmt.Errorf("failed to reread %v: %v", docFile, err)
	}
	name := fmt.Sprintf("staff %d", rep.DestinationStaff)
	if st, found := doc.Staff(rep.DestinationStaff); found && st.Name != "" {
		name = st.Name
	}
	mid, err := processor.ExportMIDI(doc, rep.DestinationStaff, rep.Measures, config.MIDI, name)
	if err != nil {
		return fmt.Errorf("failed to export: %v", err)
	}
	if err := mid.WriteFile(*midiOut); err != nil {
		return fmt.Errorf("failed to write %v: %v", *midiOut, err)
	}
	log.Printf("Wrote %v.", *midiOut)
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
