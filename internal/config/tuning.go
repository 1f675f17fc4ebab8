package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration decodes Go duration strings like "5s" from YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("config: parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Tuning holds the operational knobs read from an optional YAML file.
// Zero values mean "use the built-in default".
type Tuning struct {
	// HistoryCapacity bounds the retained call history.
	HistoryCapacity int `yaml:"history_capacity"`
	// StreamBuffer bounds each subscriber's outbound event queue.
	StreamBuffer int `yaml:"stream_buffer"`
	// Heartbeat is the stream keep-alive cadence.
	Heartbeat Duration `yaml:"heartbeat"`
	// DefaultHistoryLimit is the history page size when the client
	// does not pass one.
	DefaultHistoryLimit int `yaml:"default_history_limit"`
}

// LoadTuning reads the tuning file at path. An empty path returns the
// zero value; a missing file is an error so a typoed path is noticed.
func LoadTuning(path string) (Tuning, error) {
	var tuning Tuning
	if path == "" {
		return tuning, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, fmt.Errorf("config: read tuning file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &tuning); err != nil {
		return Tuning{}, fmt.Errorf("config: parse tuning file: %w", err)
	}
	if err := tuning.validate(); err != nil {
		return Tuning{}, err
	}
	return tuning, nil
}

func (t Tuning) validate() error {
	if t.HistoryCapacity < 0 {
		return fmt.Errorf("config: history_capacity must not be negative")
	}
	if t.StreamBuffer < 0 {
		return fmt.Errorf("config: stream_buffer must not be negative")
	}
	if t.Heartbeat < 0 {
		return fmt.Errorf("config: heartbeat must not be negative")
	}
	if t.DefaultHistoryLimit < 0 {
		return fmt.Errorf("config: default_history_limit must not be negative")
	}
	return nil
}
