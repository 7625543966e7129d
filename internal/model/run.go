package model

import "time"

// Pipeline identifies which batch transform produced a run.
type Pipeline string

const (
	PipelineRates Pipeline = "RATES"
	PipelineStdev Pipeline = "STDEV"
)

// RunSummary describes a completed pipeline run.
type RunSummary struct {
	RunID       string
	Pipeline    Pipeline
	StartedAt   time.Time
	FinishedAt  time.Time
	InputRows   int
	OutputRows  int
	Diagnostics int // priced rows without a numeric price, or stat rows with any absent statistic
}
