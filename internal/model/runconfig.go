package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultOpenURL is the URL opened by the browser session when the run configuration doesn't set one.
	DefaultOpenURL = "http://127.0.0.1:3000/sign-in"
	// DefaultRecordWaitMs is the recording wait used when the run configuration doesn't set a valid one.
	DefaultRecordWaitMs = 1200
	// DefaultScrollPx is the scroll distance used when the run configuration doesn't set a valid one.
	DefaultScrollPx = 500
)

// RunConfig is the run configuration document of the application under test.
type RunConfig struct {
	// Setup is the shell command that prepares the application (install, migrate...).
	Setup string
	// Run is the shell command that starts the application, it is started in background.
	Run string
	// OpenURL is the first URL the browser session opens.
	OpenURL string
	// RecordWaitMs is how long the session waits while recording.
	RecordWaitMs int
	// ScrollPx is how much the session scrolls down while recording.
	ScrollPx int
}

// Every accepted key for each field, in lookup priority order.
var (
	runConfigOpenURLKeys      = []string{"openUrl", "open_url"}
	runConfigRecordWaitMsKeys = []string{"recordWaitMs", "record_wait_ms"}
	runConfigScrollPxKeys     = []string{"scrollPx", "scroll_px"}
)

// ParseRunConfig parses and validates a raw run configuration document (JSON or YAML).
// Required fields missing or empty make the parse fail, optional fields fall back to defaults.
func ParseRunConfig(data []byte) (RunConfig, error) {
	raw, err := decodeRunConfig(data)
	if err != nil {
		return RunConfig{}, fmt.Errorf("could not decode run config: %s: %w", err, ErrNotValid)
	}

	setup, err := requiredString(raw, "setup")
	if err != nil {
		return RunConfig{}, err
	}
	run, err := requiredString(raw, "run")
	if err != nil {
		return RunConfig{}, err
	}

	cfg := RunConfig{
		Setup:        setup,
		Run:          run,
		OpenURL:      DefaultOpenURL,
		RecordWaitMs: positiveInt(lookup(raw, runConfigRecordWaitMsKeys), DefaultRecordWaitMs),
		ScrollPx:     positiveInt(lookup(raw, runConfigScrollPxKeys), DefaultScrollPx),
	}

	if u, ok := lookup(raw, runConfigOpenURLKeys).(string); ok && strings.TrimSpace(u) != "" {
		cfg.OpenURL = u
	}

	return cfg, nil
}

// Validate checks the invariants of an already built run configuration.
func (c RunConfig) Validate() error {
	if strings.TrimSpace(c.Setup) == "" {
		return fmt.Errorf("run config requires `setup` as a non-empty string: %w", ErrNotValid)
	}
	if strings.TrimSpace(c.Run) == "" {
		return fmt.Errorf("run config requires `run` as a non-empty string: %w", ErrNotValid)
	}
	if c.RecordWaitMs <= 0 {
		return fmt.Errorf("record wait must be positive: %w", ErrNotValid)
	}
	if c.ScrollPx <= 0 {
		return fmt.Errorf("scroll must be positive: %w", ErrNotValid)
	}
	return nil
}

// decodeRunConfig decodes JSON documents with JSON semantics (escapes, last duplicate key wins),
// anything else is decoded as YAML.
func decodeRunConfig(data []byte) (map[string]any, error) {
	raw := map[string]any{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, err
		}
		return raw, nil
	}

	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func requiredString(raw map[string]any, key string) (string, error) {
	v, ok := raw[key].(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("run config requires `%s` as a non-empty string: %w", key, ErrNotValid)
	}
	return v, nil
}

func lookup(raw map[string]any, keys []string) any {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// maxRunConfigInt caps numeric values so they always fit an int.
const maxRunConfigInt = math.MaxInt32

// positiveInt returns the value as an integer if it is a finite positive number (or numeric string),
// otherwise the fallback. Fractions are truncated, values between 0 and 1 become 1 and huge values
// are capped.
func positiveInt(v any, fallback int) int {
	var f float64
	switch t := v.(type) {
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case uint64:
		f = float64(t)
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return fallback
		}
		f = parsed
	default:
		return fallback
	}

	switch {
	case math.IsNaN(f) || math.IsInf(f, 0) || f <= 0:
		return fallback
	case f < 1:
		return 1
	case f > maxRunConfigInt:
		return maxRunConfigInt
	}

	return int(f)
}
