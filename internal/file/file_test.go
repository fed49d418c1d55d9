package file_test

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/divVerent/staffmerger/internal/document"
	"github.com/divVerent/staffmerger/internal/file"
	"github.com/divVerent/staffmerger/internal/processor"
	"github.com/divVerent/staffmerger/internal/score"
)

const doc = `
measures: [{num: 3, denom: 4}]
staffs:
  - id: 1
    name: Violin I
    layers:
      - {layer: 1, measure: 1, entries: [{dur: 1024, pitches: [67]}, {dur: 2048}]}
  - id: 2
    name: Violin II
    layers:
      - {layer: 1, measure: 1, entries: [{dur: 2048}, {dur: 1024, pitches: [64]}]}
`

const task = `
destination_staff: 1
measures: {start: 1, end: 1}
assignments:
  - {source_staff: 1, source_slot: 1, destination_slot: 1}
  - {source_staff: 2, source_slot: 1, destination_slot: 2}
`

func TestReadConfig(t *testing.T) {
	fsys := fstest.MapFS{
		"config.yml": {Data: []byte("auto_clear_unassigned_slots: false\nmidi:\n  bpm: 72\n")},
	}
	c, err := file.ReadConfig(fsys, "config.yml")
	if err != nil {
		t.Fatal(err)
	}
	if *c.AutoClearUnassignedSlots || c.MIDI.BPM != 72 || c.MIDI.Resolution != 960 {
		t.Fatalf("config = %+v", c)
	}
	task, err := file.ReadTask(fstest.MapFS{"task.yml": {Data: []byte(task)}}, "task.yml", c)
	if err != nil {
		t.Fatal(err)
	}
	if task.AutoClearUnassignedSlots == nil || *task.AutoClearUnassignedSlots {
		t.Fatalf("task did not inherit auto clear setting")
	}
	want := []processor.Assignment{{SourceStaff: 1, SourceSlot: 1, DestinationSlot: 1}, {SourceStaff: 2, SourceSlot: 1, DestinationSlot: 2}}
	if !reflect.DeepEqual(task.Assignments, want) {
		t.Fatalf("assignments = %v", task.Assignments)
	}
	if _, err := file.ReadConfig(fsys, "missing.yml"); err == nil {
		t.Fatalf("reading a missing config should fail")
	}
}

func roundTrip(t *testing.T, name, passphrase string) {
	t.Helper()
	m, err := document.Decode(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), name)
	if err := file.WriteDocument(path, m, passphrase); err != nil {
		t.Fatal(err)
	}
	got, err := file.ReadDocument(path, passphrase)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := m.LoadTimeline(2, 1, 1)
	tl, err := got.LoadTimeline(2, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(tl, want) {
		t.Fatalf("%v: got %+v, want %+v", name, tl, want)
	}
}

func TestDocumentFormats(t *testing.T) {
	roundTrip(t, "score.yml", "")
	roundTrip(t, "score.db", "")
	roundTrip(t, "score.yml.age", "correct horse")
}

func TestEncryptedNeedsPassphrase(t *testing.T) {
	m, err := document.Decode(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "score.yml.age")
	if err := file.WriteDocument(path, m, ""); err == nil {
		t.Fatalf("encrypting without a passphrase should fail")
	}
	if err := file.WriteDocument(path, m, "one"); err != nil {
		t.Fatal(err)
	}
	if _, err := file.ReadDocument(path, "two"); err == nil {
		t.Fatalf("decrypting with the wrong passphrase should fail")
	}
}

func TestProcess(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.yml")
	out := filepath.Join(dir, "out.yml")
	taskFile := filepath.Join(dir, "task.yml")
	if err := os.WriteFile(in, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(taskFile, []byte(task), 0o644); err != nil {
		t.Fatal(err)
	}
	job := file.Job{
		TaskFile:     taskFile,
		DocumentFile: in,
		OutputFile:   out,
		AddChecksum:  true,
	}
	report, err := file.Process(job)
	if err != nil {
		t.Fatal(err)
	}
	if s := report.Slot(2); s.State != processor.Merged {
		t.Fatalf("slot 2 = %+v", s)
	}
	m, err := file.ReadDocument(out, "")
	if err != nil {
		t.Fatal(err)
	}
	tl, _ := m.LoadTimeline(1, 2, 1)
	if len(tl.Entries) != 2 || !reflect.DeepEqual(tl.Entries[1].Pitches, []score.Pitch{64}) {
		t.Fatalf("layer 2 = %v", tl.Entries)
	}
	tl, _ = m.LoadTimeline(2, 1, 1)
	if !tl.IsEmpty() {
		t.Fatalf("source not cleared: %v", tl.Entries)
	}

	// The task is now pinned to the input document.
	sum, err := file.Checksum(in)
	if err != nil {
		t.Fatal(err)
	}
	pinned, err := file.ReadTask(os.DirFS(dir), "task.yml", nil)
	if err != nil {
		t.Fatal(err)
	}
	if pinned.DocumentSHA256 != sum {
		t.Fatalf("checksum = %q, want %q", pinned.DocumentSHA256, sum)
	}
	job.DocumentFile = out
	job.OutputFile = filepath.Join(dir, "again.yml")
	if _, err := file.Process(job); err == nil {
		t.Fatalf("running a pinned task on another document should fail")
	}
}

func TestProcessSQLiteInPlace(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "score.db")
	m, err := document.Decode(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	if err := file.WriteDocument(db, m, ""); err != nil {
		t.Fatal(err)
	}
	taskFile := filepath.Join(dir, "task.yml")
	if err := os.WriteFile(taskFile, []byte(task), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := file.Process(file.Job{TaskFile: taskFile, DocumentFile: db}); err != nil {
		t.Fatal(err)
	}
	got, err := file.ReadDocument(db, "")
	if err != nil {
		t.Fatal(err)
	}
	tl, _ := got.LoadTimeline(1, 2, 1)
	if tl.IsEmpty() {
		t.Fatalf("layer 2 was not written")
	}
}
