package file

import (
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/divVerent/staffmerger/internal/processor"
)

// ReadTask reads a merge task. Settings the task leaves open are taken
// from config.
func ReadTask(fsys fs.FS, taskFile string, config *processor.Config) (*processor.MergeTask, error) {
	f, err := fsys.Open(taskFile)
	if err != nil {
		return nil, fmt.Errorf("could not open %v: %v", taskFile, err)
	}
	defer f.Close()
	var task processor.MergeTask
	err = yaml.NewDecoder(f).Decode(&task)
	if err != nil {
		return nil, fmt.Errorf("could not decode %v: %v", taskFile, err)
	}
	if config != nil {
		config.ApplyTo(&task)
	}
	return &task, nil
}

func WriteTask(taskFile string, task *processor.MergeTask) (err error) {
	f, err := os.Create(taskFile)
	if err != nil {
		return fmt.Errorf("could not recreate %v: %v", taskFile, err)
	}
	defer func() {
		closeErr := f.Close()
		if closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2) // Match yq.
	return enc.Encode(task)
}
