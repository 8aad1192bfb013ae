package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/neurobridge-coach/internal/modules/coach/analysis"
	"github.com/yungbote/neurobridge-coach/internal/modules/coach/behavior"
	"github.com/yungbote/neurobridge-coach/internal/modules/coach/extraction"
	"github.com/yungbote/neurobridge-coach/internal/realtime"
)

// Policy is the tunable coaching behavior, loaded from COACH_POLICY_FILE. Missing keys keep
// their defaults.
type Policy struct {
	VADThreshold       float64       `yaml:"vad_threshold"`
	SilenceDurationMS  int           `yaml:"silence_duration_ms"`
	PrefixPaddingMS    int           `yaml:"prefix_padding_ms"`
	BehaviorInterval   int           `yaml:"behavior_interval"`
	TranscriptionModel string        `yaml:"transcription_model"`
	Voice              string        `yaml:"voice"`
	CompleteTimeout    time.Duration `yaml:"complete_timeout"`

	SmoothingWeight float64 `yaml:"smoothing_weight"`
	ConfidenceFloor float64 `yaml:"confidence_floor"`

	ExtractionInterval time.Duration `yaml:"extraction_interval"`
	ExtractionBurst    int           `yaml:"extraction_burst"`
}

func DefaultPolicy() Policy {
	rt := realtime.DefaultPolicy()
	return Policy{
		VADThreshold:       rt.VADThreshold,
		SilenceDurationMS:  rt.SilenceDurationMS,
		PrefixPaddingMS:    rt.PrefixPaddingMS,
		BehaviorInterval:   rt.BehaviorInterval,
		TranscriptionModel: rt.TranscriptionModel,
		CompleteTimeout:    rt.CompleteTimeout,
		SmoothingWeight:    analysis.DefaultSmoothingWeight,
		ConfidenceFloor:    behavior.DefaultConfidenceFloor,
		ExtractionInterval: 2 * time.Second,
		ExtractionBurst:    5,
	}
}

// LoadPolicy reads a YAML policy file over the defaults. An empty path returns the defaults.
// Unknown keys are rejected so typos do not silently fall back.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	if path == "" {
		return p, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read coaching policy: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return Policy{}, fmt.Errorf("parse coaching policy %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, fmt.Errorf("coaching policy %s: %w", path, err)
	}
	return p, nil
}

func (p Policy) Validate() error {
	switch {
	case p.VADThreshold <= 0 || p.VADThreshold > 1:
		return fmt.Errorf("vad_threshold must be in (0,1], got %v", p.VADThreshold)
	case p.SilenceDurationMS <= 0:
		return fmt.Errorf("silence_duration_ms must be positive")
	case p.PrefixPaddingMS < 0:
		return fmt.Errorf("prefix_padding_ms must not be negative")
	case p.BehaviorInterval <= 0:
		return fmt.Errorf("behavior_interval must be positive")
	case p.SmoothingWeight <= 0 || p.SmoothingWeight > 1:
		return fmt.Errorf("smoothing_weight must be in (0,1], got %v", p.SmoothingWeight)
	case p.ConfidenceFloor < 0 || p.ConfidenceFloor > 1:
		return fmt.Errorf("confidence_floor must be in [0,1], got %v", p.ConfidenceFloor)
	case p.ExtractionInterval <= 0 || p.ExtractionBurst <= 0:
		return fmt.Errorf("extraction_interval and extraction_burst must be positive")
	}
	return nil
}

func (p Policy) Realtime() realtime.Policy {
	return realtime.Policy{
		VADThreshold:       p.VADThreshold,
		SilenceDurationMS:  p.SilenceDurationMS,
		PrefixPaddingMS:    p.PrefixPaddingMS,
		BehaviorInterval:   p.BehaviorInterval,
		TranscriptionModel: p.TranscriptionModel,
		Voice:              p.Voice,
		CompleteTimeout:    p.CompleteTimeout,
	}
}

func (p Policy) Extraction() extraction.Config {
	return extraction.Config{Rate: rate.Every(p.ExtractionInterval), Burst: p.ExtractionBurst}
}
