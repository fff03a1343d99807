// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Scoring policy lives here, not in code: role weights, blend, thresholds.
// - External errors must be wrapped via this package's error helpers.
package config

import "runtime"

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// MySQLDSN selects the MySQL store when set; empty runs in-memory.
	MySQLDSN string `koanf:"mysql_dsn"`

	// NarrativeURL is the free-text evaluation endpoint. Empty selects
	// the offline keyword scorer.
	NarrativeURL string `koanf:"narrative_url"`

	// NarrativeAPIKey authenticates against the evaluation endpoint.
	NarrativeAPIKey string `koanf:"narrative_api_key"`

	// NarrativeTimeoutSeconds bounds one evaluation round trip.
	NarrativeTimeoutSeconds int `koanf:"narrative_timeout_seconds"`

	// QueueSize bounds the in-memory narrative job queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of narrative scoring workers.
	WorkerCount int `koanf:"worker_count"`

	// RoleWeights maps interview roles to their scoring weights.
	RoleWeights map[string]float64 `koanf:"role_weights"`

	// EvidenceThreshold is the score at which evidence becomes mandatory.
	EvidenceThreshold float64 `koanf:"evidence_threshold"`

	// InterviewWeight and ObservationWeight set the pillar blend.
	InterviewWeight   float64 `koanf:"interview_weight"`
	ObservationWeight float64 `koanf:"observation_weight"`

	// PMGraceDays is the PM compliance grace window.
	PMGraceDays int `koanf:"pm_grace_days"`
}

// New creates a Config with the service defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		Addr:                    ":9080",
		NarrativeTimeoutSeconds: 45,
		QueueSize:               10_000,
		WorkerCount:             runtime.NumCPU() * 2,
		RoleWeights: map[string]float64{
			"technician": 0.60,
			"supervisor": 0.10,
			"manager":    0.20,
			"planner":    0.10,
			"auditor":    0.20,
		},
		EvidenceThreshold: 3.0,
		InterviewWeight:   0.80,
		ObservationWeight: 0.20,
		PMGraceDays:       7,
	}
}
