// Package aiconfig holds the tunable constants shared by every AI-layer
// subsystem, following the donor's plain-struct configuration idiom
// (collector.CollectConfig) rather than a binding/env framework.
package aiconfig

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config collects every tunable named in the tunable-constants table.
// All durations are stored as time.Duration; the table's microsecond/
// millisecond/second units are converted at construction time.
type Config struct {
	MetricsRingBufferCapacity int `yaml:"metrics_ring_buffer_capacity"`

	AIThreadPoolSize  int           `yaml:"ai_thread_pool_size"`
	AISchedulerTick   time.Duration `yaml:"-"`
	AISchedulerTickMS int           `yaml:"ai_scheduler_tick_ms"`

	MutationRollingWindow   time.Duration `yaml:"-"`
	MutationRollingWindowUS int64         `yaml:"mutation_rolling_window_us"`

	RateInterval   time.Duration `yaml:"-"`
	RateIntervalUS int64         `yaml:"rate_interval_us"`

	MutationWindowSize int `yaml:"mutation_window_size"`

	UserProfileHistorySize int `yaml:"user_profile_history_size"`

	UserDeviationMutationWeight float64 `yaml:"user_deviation_mutation_weight"`
	UserDeviationTableWeight    float64 `yaml:"user_deviation_table_weight"`

	ZScoreLowThreshold    float64 `yaml:"zscore_low_threshold"`
	ZScoreMediumThreshold float64 `yaml:"zscore_medium_threshold"`
	ZScoreHighThreshold   float64 `yaml:"zscore_high_threshold"`

	MaxAnomalyHistory int `yaml:"max_anomaly_history"`

	ImmuneCheckInterval   time.Duration `yaml:"-"`
	ImmuneCheckIntervalMS int           `yaml:"immune_check_interval_ms"`

	RecoveryLookback   time.Duration `yaml:"-"`
	RecoveryLookbackUS int64         `yaml:"recovery_lookback_us"`

	RecoveryCooldown time.Duration `yaml:"-"`
	RecoveryCooldownS int64        `yaml:"recovery_cooldown_s"`

	MinSamplesBeforeLearning int `yaml:"min_samples_before_learning"`
	MinArmPulls              int `yaml:"min_arm_pulls"`
	MinTablePullsForContext  int `yaml:"min_table_pulls_for_context"`

	UCB1ExplorationConstant float64 `yaml:"ucb1_exploration_constant"`
	RewardScaleMS           float64 `yaml:"reward_scale_ms"`

	AccessPatternWindowSize int `yaml:"access_pattern_window_size"`

	HotspotClusterEpsilon   time.Duration `yaml:"-"`
	HotspotClusterEpsilonUS int64         `yaml:"hotspot_cluster_epsilon_us"`
	HotspotClusterMinPoints int           `yaml:"hotspot_cluster_min_points"`

	CUSUMThresholdSigmaMult float64 `yaml:"cusum_threshold_sigma_mult"`
	CUSUMDriftSigmaMult     float64 `yaml:"cusum_drift_sigma_mult"`

	TemporalAnalysisInterval   time.Duration `yaml:"-"`
	TemporalAnalysisIntervalMS int           `yaml:"temporal_analysis_interval_ms"`

	SnapshotCooldown time.Duration `yaml:"-"`
}

// DefaultConfig returns the defaults from spec.md §6's tunable-constants
// table.
func DefaultConfig() Config {
	c := Config{
		MetricsRingBufferCapacity: 10_000,

		AIThreadPoolSize:  4,
		AISchedulerTickMS: 100,

		MutationRollingWindowUS: int64((3600 * time.Second) / time.Microsecond),
		RateIntervalUS:          int64((60 * time.Second) / time.Microsecond),
		MutationWindowSize:      60,

		UserProfileHistorySize: 1000,

		UserDeviationMutationWeight: 0.7,
		UserDeviationTableWeight:    0.3,

		ZScoreLowThreshold:    2.0,
		ZScoreMediumThreshold: 3.0,
		ZScoreHighThreshold:   4.0,

		MaxAnomalyHistory: 500,

		ImmuneCheckIntervalMS: 30_000,

		RecoveryLookbackUS: int64((30 * time.Second) / time.Microsecond),
		RecoveryCooldownS:  60,

		MinSamplesBeforeLearning: 20,
		MinArmPulls:              5,
		MinTablePullsForContext:  3,

		UCB1ExplorationConstant: 1.4142135623730951, // sqrt(2)
		RewardScaleMS:           100,

		AccessPatternWindowSize: 10_000,

		HotspotClusterEpsilonUS: int64((5 * time.Minute) / time.Microsecond),
		HotspotClusterMinPoints: 5,

		CUSUMThresholdSigmaMult: 4.0,
		CUSUMDriftSigmaMult:     0.5,

		TemporalAnalysisIntervalMS: 60_000,
	}
	c.resolveDurations()
	return c
}

// resolveDurations derives the time.Duration fields from their raw unit
// counterparts after construction or after a YAML overlay.
func (c *Config) resolveDurations() {
	c.AISchedulerTick = time.Duration(c.AISchedulerTickMS) * time.Millisecond
	c.MutationRollingWindow = time.Duration(c.MutationRollingWindowUS) * time.Microsecond
	c.RateInterval = time.Duration(c.RateIntervalUS) * time.Microsecond
	c.ImmuneCheckInterval = time.Duration(c.ImmuneCheckIntervalMS) * time.Millisecond
	c.RecoveryLookback = time.Duration(c.RecoveryLookbackUS) * time.Microsecond
	c.RecoveryCooldown = time.Duration(c.RecoveryCooldownS) * time.Second
	c.HotspotClusterEpsilon = time.Duration(c.HotspotClusterEpsilonUS) * time.Microsecond
	c.TemporalAnalysisInterval = time.Duration(c.TemporalAnalysisIntervalMS) * time.Millisecond
	c.SnapshotCooldown = 30 * time.Second
}

// LoadFile overlays YAML-specified tunables onto the defaults. Any key
// omitted from the file keeps its default value.
func LoadFile(path string) (Config, error) {
	c := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse config: %w", err)
	}
	c.resolveDurations()
	return c, nil
}
