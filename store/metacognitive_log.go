package store

import "time"

// MetacognitiveLog is an append-only self-assessment record, e.g. the
// prediction accuracy of a consolidation run over a period.
type MetacognitiveLog struct {
	ID             int64
	OrgID          string
	AssessmentType string // prediction_accuracy/...
	Score          float64 // 0-1
	PeriodStart    time.Time
	PeriodEnd      time.Time
	Details        string // JSON
	CreatedAt      time.Time
}

// FindMetacognitiveLog specifies the conditions for finding assessments.
type FindMetacognitiveLog struct {
	OrgID          *string
	AssessmentType *string
	Since          *time.Time
	Limit          int
}
