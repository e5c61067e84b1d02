package aimodel

// ScheduledTaskStatus describes one task registered with the AI
// Scheduler, as surfaced by SHOW AI STATUS.
type ScheduledTaskStatus struct {
	Name       string `json:"name"`
	IntervalMS int64  `json:"interval_ms"`
	RunCount   uint64 `json:"run_count"`
	Periodic   bool   `json:"periodic"`
}

// ArmStatus is the JSON-friendly projection of one bandit arm's
// stats, used inside LearningEngineStatus.
type ArmStatus struct {
	Strategy      string  `json:"strategy"`
	TotalPulls    uint64  `json:"total_pulls"`
	AverageReward float64 `json:"average_reward"`
	UCBScore      float64 `json:"ucb_score"`
}

// LearningEngineStatus is the learning_engine field of SHOW AI
// STATUS.
type LearningEngineStatus struct {
	Active       bool        `json:"active"`
	TotalQueries uint64      `json:"total_queries"`
	MinSamples   int         `json:"min_samples"`
	Ready        bool        `json:"ready"`
	Arms         []ArmStatus `json:"arms"`
	Summary      string      `json:"summary"`
}

// ThresholdsStatus is the z-score severity boundaries reported under
// immune_system.
type ThresholdsStatus struct {
	Low    float64 `json:"low"`
	Medium float64 `json:"medium"`
	High   float64 `json:"high"`
}

// ImmuneSystemStatus is the immune_system field of SHOW AI STATUS.
type ImmuneSystemStatus struct {
	Active          bool             `json:"active"`
	TotalAnomalies  int              `json:"total_anomalies"`
	BlockedTables   []string         `json:"blocked_tables"`
	BlockedUsers    []string         `json:"blocked_users"`
	MonitoredTables []string         `json:"monitored_tables"`
	Thresholds      ThresholdsStatus `json:"thresholds"`
	RecentAnomalies []AnomalyReport  `json:"recent_anomalies"`
	Summary         string           `json:"summary"`
}

// TemporalIndexStatus is the temporal_index field of SHOW AI STATUS.
type TemporalIndexStatus struct {
	Active             bool              `json:"active"`
	TotalAccesses      int               `json:"total_accesses"`
	TotalSnapshots     uint64            `json:"total_snapshots"`
	AnalysisIntervalMS int64             `json:"analysis_interval_ms"`
	Hotspots           []TemporalHotspot `json:"hotspots"`
	Summary            string            `json:"summary"`
}

// Status is the full SHOW AI STATUS aggregation returned by the AI
// Manager, matching spec.md §6's documented shape field-for-field.
type Status struct {
	Initialized     bool                  `json:"initialized"`
	MetricsRecorded uint64                `json:"metrics_recorded"`
	ScheduledTasks  []ScheduledTaskStatus `json:"scheduled_tasks"`
	LearningEngine  LearningEngineStatus  `json:"learning_engine"`
	ImmuneSystem    ImmuneSystemStatus    `json:"immune_system"`
	TemporalIndex   TemporalIndexStatus   `json:"temporal_index"`
}
