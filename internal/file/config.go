package file

import (
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"

	"github.com/divVerent/staffmerger/internal/processor"
)

// ReadConfig reads a config file and fills in defaults. An empty name
// yields the defaults.
func ReadConfig(fsys fs.FS, configFile string) (*processor.Config, error) {
	if configFile == "" {
		config := processor.DefaultConfig()
		return &config, nil
	}
	f, err := fsys.Open(configFile)
	if err != nil {
		return nil, fmt.Errorf("could not open: %v", err)
	}
	defer f.Close()
	var config processor.Config
	err = yaml.NewDecoder(f).Decode(&config)
	if err != nil {
		return nil, fmt.Errorf("could not decode: %v", err)
	}
	config = config.WithDefaults()
	return &config, nil
}
