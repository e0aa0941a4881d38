package domain

import "time"

// Snapshot is an occurrence's sales figures captured at a point in time.
// The embedded record's ID is the occurrence id.
type Snapshot struct {
	Key        string
	RunID      string
	CapturedAt time.Time
	OccurrenceRecord
}

func NewSnapshot(runID string, rec OccurrenceRecord, capturedAt time.Time) Snapshot {
	return Snapshot{RunID: runID, CapturedAt: capturedAt, OccurrenceRecord: rec}
}
