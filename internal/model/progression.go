package model

type progressionStep struct {
	next     Stage
	time     string
	recovery float64
	spread   SpreadRisk
}

// progressionChain is the fixed stage transition table. Recovery probability
// strictly decreases and spread risk never decreases along the chain.
var progressionChain = map[Stage]progressionStep{
	StageHealthy:  {StageMild, "2-4 weeks (if conditions worsen)", 1.0, SpreadNone},
	StageMild:     {StageModerate, "1-2 weeks (without treatment)", 0.8, SpreadLow},
	StageModerate: {StageSevere, "3-7 days (without treatment)", 0.6, SpreadMedium},
	StageSevere:   {StageCritical, "1-3 days (without treatment)", 0.3, SpreadHigh},
	StageCritical: {StageLost, "24-48 hours (without treatment)", 0.1, SpreadVeryHigh},
	StageLost:     {StageLost, "terminal", 0.0, SpreadVeryHigh},
}

// PredictProgression looks up the forecast for a stage. Unknown stages get an
// Unknown forecast with a low spread risk.
func PredictProgression(stage Stage) ProgressionForecast {
	step, ok := progressionChain[stage]
	if !ok {
		return ProgressionForecast{
			CurrentStage:    StageUnknown,
			NextStage:       StageUnknown,
			TimeToNextStage: "Unknown",
			SpreadRisk:      SpreadLow,
		}
	}
	return ProgressionForecast{
		CurrentStage:        stage,
		NextStage:           step.next,
		TimeToNextStage:     step.time,
		RecoveryProbability: step.recovery,
		SpreadRisk:          step.spread,
	}
}

// SpreadRank orders spread-risk labels, 0 for unknown values.
func SpreadRank(r SpreadRisk) int {
	switch r {
	case SpreadNone:
		return 1
	case SpreadLow:
		return 2
	case SpreadMedium:
		return 3
	case SpreadHigh:
		return 4
	case SpreadVeryHigh:
		return 5
	}
	return 0
}
