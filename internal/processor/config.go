package processor

import (
	"github.com/divVerent/staffmerger/internal/score"
)

// Config holds the settings of the tools.
type Config struct {
	// AutoClearUnassignedSlots is used for tasks that do not say.
	AutoClearUnassignedSlots *bool `yaml:"auto_clear_unassigned_slots,omitempty"`

	// ClearConsumedSources empties source layers once moved.
	ClearConsumedSources *bool `yaml:"clear_consumed_sources,omitempty"`

	// PassphraseEnv names the environment variable holding the passphrase
	// for age encrypted files.
	PassphraseEnv string `yaml:"passphrase_env,omitempty"`

	MIDI   MIDIConfig   `yaml:"midi,omitempty"`
	Report ReportConfig `yaml:"report,omitempty"`
}

type MIDIConfig struct {
	// Resolution in ticks per quarter note.
	Resolution uint16  `yaml:"resolution,omitempty"`
	BPM        float64 `yaml:"bpm,omitempty"`
	Velocity   uint8   `yaml:"velocity,omitempty"`
	// Channels maps layers to 0-based MIDI channels.
	Channels map[score.VoiceSlot]uint8 `yaml:"channels,omitempty"`
}

type ReportConfig struct {
	// Language overrides the detected locale, e.g. "de-CH".
	Language string `yaml:"language,omitempty"`
	// Plain disables styling.
	Plain bool `yaml:"plain,omitempty"`
}

func DefaultConfig() Config {
	yes := true
	return Config{
		AutoClearUnassignedSlots: &yes,
		ClearConsumedSources:     &yes,
		PassphraseEnv:            "STAFFMERGER_PASSPHRASE",
		MIDI: MIDIConfig{
			Resolution: 960,
			BPM:        120,
			Velocity:   80,
			Channels:   map[score.VoiceSlot]uint8{1: 0, 2: 1, 3: 2, 4: 3},
		},
	}
}

// WithDefaults returns c overlaid onto DefaultConfig.
func (c Config) WithDefaults() Config {
	return Merge(DefaultConfig(), c)
}

// ApplyTo fills in task settings the task leaves open.
func (c Config) ApplyTo(task *MergeTask) {
	if task.AutoClearUnassignedSlots == nil && c.AutoClearUnassignedSlots != nil {
		v := *c.AutoClearUnassignedSlots
		task.AutoClearUnassignedSlots = &v
	}
}

// Options returns the run options implied by the config.
func (c Config) Options() Options {
	return Options{
		KeepSources: c.ClearConsumedSources != nil && !*c.ClearConsumedSources,
	}
}
