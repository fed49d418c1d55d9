package file

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/divVerent/staffmerger/internal/document"
	"github.com/divVerent/staffmerger/internal/processor"
)

// Job names the files of one consolidation run.
type Job struct {
	Config *processor.Config
	// TaskFile is read, and rewritten if AddChecksum adds the document
	// checksum to it.
	TaskFile     string
	DocumentFile string
	// OutputFile defaults to DocumentFile.
	OutputFile  string
	Passphrase  string
	AddChecksum bool
	Options     processor.Options
}

// Process runs a merge task on a document file. SQLite documents written
// back to the same file are modified in place; all others are loaded into
// memory and written out once the run succeeded.
func Process(job Job) (*processor.Report, error) {
	config := job.Config
	if config == nil {
		c := processor.DefaultConfig()
		config = &c
	}
	task, err := ReadTask(os.DirFS(filepath.Dir(job.TaskFile)), filepath.Base(job.TaskFile), config)
	if err != nil {
		return nil, err
	}

	sum, err := Checksum(job.DocumentFile)
	if err != nil {
		return nil, err
	}
	if task.DocumentSHA256 != "" && task.DocumentSHA256 != sum {
		return nil, fmt.Errorf("mismatching checksum of %v: got %v, want %v", job.DocumentFile, sum, task.DocumentSHA256)
	}

	out := job.OutputFile
	if out == "" {
		out = job.DocumentFile
	}

	var report *processor.Report
	if IsDatabase(job.DocumentFile) && out == job.DocumentFile {
		db, err := document.OpenSQLite(job.DocumentFile)
		if err != nil {
			return nil, err
		}
		report, err = consolidateSQLite(db, task, job.Options)
		closeErr := db.Close()
		if err != nil {
			return nil, err
		}
		if closeErr != nil {
			return nil, closeErr
		}
	} else {
		m, err := ReadDocument(job.DocumentFile, job.Passphrase)
		if err != nil {
			return nil, err
		}
		report, err = processor.Consolidate(m, task, job.Options)
		if err != nil {
			return nil, fmt.Errorf("failed to process: %w", err)
		}
		if err := WriteDocument(out, m, job.Passphrase); err != nil {
			return nil, err
		}
		log.Printf("Wrote %v.", out)
	}

	if task.DocumentSHA256 == "" && job.AddChecksum && out != job.DocumentFile {
		// Pin the task to the input, which is unchanged.
		task.DocumentSHA256 = sum
		if err := WriteTask(job.TaskFile, task); err != nil {
			return nil, fmt.Errorf("could not update %v: %v", job.TaskFile, err)
		}
	}

	return report, nil
}

// consolidateSQLite runs the task in one transaction, so a failed run
// leaves the database as it was.
func consolidateSQLite(db *document.SQLite, task *processor.MergeTask, opts processor.Options) (*processor.Report, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	report, err := processor.Consolidate(tx, task, opts)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Printf("Could not roll back: %v.", rbErr)
		}
		return nil, fmt.Errorf("failed to process: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return report, nil
}
