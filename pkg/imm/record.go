package imm

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// DurationMS marshals a duration as fractional milliseconds, the unit the
// experiment logs use.
type DurationMS time.Duration

// MarshalJSON implements json.Marshaler.
func (d DurationMS) MarshalJSON() ([]byte, error) {
	ms := float64(time.Duration(d)) / float64(time.Millisecond)
	return strconv.AppendFloat(nil, ms, 'f', -1, 64), nil
}

// Milliseconds reports the rounded millisecond value.
func (d DurationMS) Milliseconds() int64 { return time.Duration(d).Milliseconds() }

// ExecutionRecord collects the telemetry of one engine run. It is mutated
// only by the estimator and the engine entry point; everything else reads
// it. The per-round estimation slices are appended in wall-clock order,
// which strong-scaling sweeps rely on for comparability.
type ExecutionRecord struct {
	RunID      string `json:"RunID"`
	NumThreads int    `json:"NumThreads"`

	// Total covers the whole run, estimation included.
	Total DurationMS `json:"Total"`

	// ThetaPrimeDeltas holds every sample-size value attempted during
	// estimation, one per round, non-decreasing.
	ThetaPrimeDeltas []uint64 `json:"ThetaPrimeDeltas"`

	ThetaEstimationTotal           DurationMS   `json:"ThetaEstimation"`
	ThetaEstimationGenerateRRR     []DurationMS `json:"ThetaEstimationGenerateRRR"`
	ThetaEstimationMostInfluential []DurationMS `json:"ThetaEstimationMostInfluential"`

	Theta uint64 `json:"Theta"`

	GenerateRRRSets        DurationMS `json:"GenerateRRRSets"`
	FindMostInfluentialSet DurationMS `json:"FindMostInfluentialSet"`
}

// NewExecutionRecord creates a record with a fresh run identifier.
func NewExecutionRecord() *ExecutionRecord {
	return &ExecutionRecord{RunID: uuid.NewString()}
}
