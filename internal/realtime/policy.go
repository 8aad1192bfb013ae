package realtime

import "time"

// Policy is the turn-taking and pacing configuration sent to the model on connect.
type Policy struct {
	VADThreshold       float64
	SilenceDurationMS  int
	PrefixPaddingMS    int
	BehaviorInterval   int
	TranscriptionModel string
	Voice              string
	// CompleteTimeout bounds the session completion run on disconnect.
	CompleteTimeout time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		VADThreshold:       0.5,
		SilenceDurationMS:  700,
		PrefixPaddingMS:    300,
		BehaviorInterval:   10,
		TranscriptionModel: "gpt-4o-mini-transcribe",
		CompleteTimeout:    10 * time.Second,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.VADThreshold <= 0 || p.VADThreshold > 1 {
		p.VADThreshold = d.VADThreshold
	}
	if p.SilenceDurationMS <= 0 {
		p.SilenceDurationMS = d.SilenceDurationMS
	}
	if p.PrefixPaddingMS <= 0 {
		p.PrefixPaddingMS = d.PrefixPaddingMS
	}
	if p.BehaviorInterval <= 0 {
		p.BehaviorInterval = d.BehaviorInterval
	}
	if p.TranscriptionModel == "" {
		p.TranscriptionModel = d.TranscriptionModel
	}
	if p.CompleteTimeout <= 0 {
		p.CompleteTimeout = d.CompleteTimeout
	}
	return p
}

func (p Policy) turnDetection() map[string]any {
	return map[string]any{
		"type":                "server_vad",
		"threshold":           p.VADThreshold,
		"silence_duration_ms": p.SilenceDurationMS,
		"prefix_padding_ms":   p.PrefixPaddingMS,
	}
}
