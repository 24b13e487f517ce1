package model

import "strings"

// Stage is a disease severity tier. Stages form a fixed total order
// Healthy < Mild < Moderate < Severe < Critical < Lost.
type Stage string

const (
	StageHealthy  Stage = "Healthy"
	StageMild     Stage = "Mild"
	StageModerate Stage = "Moderate"
	StageSevere   Stage = "Severe"
	StageCritical Stage = "Critical"
	StageLost     Stage = "Lost"
	StageUnknown  Stage = "Unknown"
)

// Stages lists the chain in ascending order.
var Stages = []Stage{StageHealthy, StageMild, StageModerate, StageSevere, StageCritical, StageLost}

// Level returns the 1-based position of s in the chain, 0 for unknown stages.
func (s Stage) Level() int {
	for i, st := range Stages {
		if st == s {
			return i + 1
		}
	}
	return 0
}

// Label returns the human tier label stored as a scan's health status.
func (s Stage) Label() string {
	switch s {
	case StageHealthy:
		return "Healthy"
	case StageMild, StageModerate, StageSevere, StageCritical:
		return string(s) + " Disease"
	case StageLost:
		return "Plant Death"
	default:
		return "Unknown"
	}
}

// ParseStage resolves a tier label such as "Critical Disease", "critical" or
// "Plant Death". The second result is false when label names no tier.
func ParseStage(label string) (Stage, bool) {
	l := strings.ToLower(strings.TrimSpace(label))
	l = strings.TrimSuffix(l, " disease")
	switch l {
	case "healthy":
		return StageHealthy, true
	case "mild":
		return StageMild, true
	case "moderate":
		return StageModerate, true
	case "severe":
		return StageSevere, true
	case "critical":
		return StageCritical, true
	case "lost", "plant death":
		return StageLost, true
	}
	return StageUnknown, false
}
