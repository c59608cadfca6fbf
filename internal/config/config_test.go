package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONSENSUS_THRESHOLD", "")
	t.Setenv("POINTS_PER_VOTE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.ConsensusThreshold != DefaultConsensusThreshold {
		t.Errorf("ConsensusThreshold = %d, want %d", cfg.ConsensusThreshold, DefaultConsensusThreshold)
	}
	if cfg.PointsPerVote != DefaultPointsPerVote {
		t.Errorf("PointsPerVote = %d, want %d", cfg.PointsPerVote, DefaultPointsPerVote)
	}
	if cfg.ConsensusBatchWindow != 5*time.Second {
		t.Errorf("ConsensusBatchWindow = %s, want 5s", cfg.ConsensusBatchWindow)
	}
	if cfg.JWTTTL != 30*24*time.Hour {
		t.Errorf("JWTTTL = %s, want 720h", cfg.JWTTTL)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CONSENSUS_THRESHOLD", "5")
	t.Setenv("POINTS_PER_VOTE", "10")
	t.Setenv("CLASSIFIER_MOCK", "true")
	t.Setenv("BACKFILL_INTERVAL", "10m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.ConsensusThreshold != 5 {
		t.Errorf("ConsensusThreshold = %d, want 5", cfg.ConsensusThreshold)
	}
	if cfg.PointsPerVote != 10 {
		t.Errorf("PointsPerVote = %d, want 10", cfg.PointsPerVote)
	}
	if !cfg.Classifier.Mock {
		t.Error("Classifier.Mock = false, want true")
	}
	if cfg.BackfillInterval != 10*time.Minute {
		t.Errorf("BackfillInterval = %s, want 10m", cfg.BackfillInterval)
	}
}

func TestLoad_InvalidThresholdFallsBack(t *testing.T) {
	t.Setenv("CONSENSUS_THRESHOLD", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ConsensusThreshold != DefaultConsensusThreshold {
		t.Errorf("ConsensusThreshold = %d, want fallback %d", cfg.ConsensusThreshold, DefaultConsensusThreshold)
	}
}

func TestLoad_NegativePointsRejected(t *testing.T) {
	t.Setenv("POINTS_PER_VOTE", "-2")

	if _, err := Load(); err == nil {
		t.Fatal("Load() error = nil, want error for negative POINTS_PER_VOTE")
	}
}

func TestLoad_ZeroPointsDisablesRewards(t *testing.T) {
	t.Setenv("POINTS_PER_VOTE", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.PointsPerVote != 0 {
		t.Errorf("PointsPerVote = %d, want 0", cfg.PointsPerVote)
	}
}
