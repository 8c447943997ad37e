// Package store persists debate records and judgments. Records are written
// once and never mutated; judgments are append-only, with duplicates per
// (experiment, judge, turns) tuple explicitly allowed so judge
// self-consistency can be measured.
package store

import (
	"context"
	"fmt"

	"github.com/aaron1729/ai-debate/internal/models"
)

// Filters narrows experiment queries. All set fields are AND-combined.
// Filters apply only to indexed denormalized columns, never to transcript
// content.
type Filters struct {
	Topic        string
	JudgeVerdict string
	MinScore     *int
	MaxScore     *int
	ProModel     string
	ConModel     string
	JudgeModel   string
	GTVerdict    string
}

// JudgmentFilters narrows judgment queries.
type JudgmentFilters struct {
	ExperimentID    *int64
	JudgeModel      string
	TurnsConsidered *int
}

// Stats summarizes the experiments table.
type Stats struct {
	TotalExperiments int
	ByVerdict        map[string]int
	ByTopic          map[string]int
	AverageScore     *float64
}

// JudgmentStats summarizes the judgments table.
type JudgmentStats struct {
	TotalJudgments       int
	ByJudgeModel         map[string]int
	ByTurnsConsidered    map[int]int
	PerfectAgreementRate *float64
}

// ExperimentStore is durable keyed storage for debate records and their
// judgments. Save and SaveJudgment are each a single atomic write.
type ExperimentStore interface {
	// Save persists a complete debate record and returns a fresh,
	// monotonically increasing identifier.
	Save(ctx context.Context, record *models.DebateRecord) (int64, error)

	// GetByID returns the record for id, or nil when it does not exist.
	GetByID(ctx context.Context, id int64) (*models.DebateRecord, error)

	// Query returns records matching the filters, newest first.
	Query(ctx context.Context, filters Filters) ([]*models.DebateRecord, error)

	// SaveJudgment appends one judgment. It never merges or overwrites.
	// Referencing a nonexistent experiment is a *ReferentialError.
	SaveJudgment(ctx context.Context, judgment *models.Judgment) (int64, error)

	// GetJudgments returns judgments matching the filters.
	GetJudgments(ctx context.Context, filters JudgmentFilters) ([]*models.Judgment, error)
}

// ReferentialError reports a judgment referencing a debate record that does
// not exist at save time.
type ReferentialError struct {
	ExperimentID int64
}

func (e *ReferentialError) Error() string {
	return fmt.Sprintf("judgment references nonexistent experiment %d", e.ExperimentID)
}
