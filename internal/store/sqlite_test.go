package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaron1729/ai-debate/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecord(judged bool) *models.DebateRecord {
	record := &models.DebateRecord{
		Claim: models.Claim{
			Text:    "Coffee is good for your health",
			ClaimID: "claim-42",
			Topic:   "health",
		},
		Transcript: []models.TurnEntry{
			{Turn: 1, Position: models.PositionPro, Model: "Claude Sonnet 4.5",
				URL: "https://a.com", Quote: "qa", Context: "ca", Argument: "aa"},
			{Turn: 1, Position: models.PositionCon, Model: "GPT-4",
				URL: "https://b.com", Quote: "qb", Context: "cb", Argument: "ab"},
			{Turn: 2, Position: models.PositionPro, Model: "Claude Sonnet 4.5",
				URL: "https://c.com", Quote: "qc", Context: "cc", Argument: "ac"},
			{Turn: 2, Position: models.PositionCon, Model: "GPT-4",
				Refused: true, RefusalReason: "ethical concerns"},
		},
		Config: models.ExperimentConfig{
			Timestamp:    time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
			Models:       models.ModelAssignment{Pro: "Claude Sonnet 4.5", Con: "GPT-4"},
			Turns:        2,
			ProWentFirst: true,
		},
		GroundTruth:      &models.GroundTruth{Verdict: "true", Source: "gpt5", URL: "https://gt.com"},
		ErrorsOrRefusals: []string{"con refused on round 2: ethical concerns"},
	}
	if judged {
		record.Config.Models.Judge = "Gemini 2.5 Flash"
		record.JudgeDecision = &models.JudgeDecision{
			Verdict:   models.VerdictSupported,
			Score:     models.IntPtr(8),
			Reasoning: "strong sources",
		}
	}
	return record
}

func TestSQLiteStore_SaveAndGetByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Save(ctx, sampleRecord(true))
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	got, err := s.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "Coffee is good for your health", got.Claim.Text)
	assert.Len(t, got.Transcript, 4)
	assert.True(t, got.Transcript[3].Refused)
	assert.Equal(t, "ethical concerns", got.Transcript[3].RefusalReason)
	require.NotNil(t, got.JudgeDecision)
	assert.Equal(t, models.VerdictSupported, got.JudgeDecision.Verdict)
	require.NotNil(t, got.JudgeDecision.Score)
	assert.Equal(t, 8, *got.JudgeDecision.Score)
	require.NotNil(t, got.GroundTruth)
	assert.Equal(t, "true", got.GroundTruth.Verdict)
	assert.Equal(t, []string{"con refused on round 2: ethical concerns"}, got.ErrorsOrRefusals)
}

func TestSQLiteStore_GetByID_Missing(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetByID(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_Save_UnjudgedRecord(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Save(ctx, sampleRecord(false))
	require.NoError(t, err)

	got, err := s.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got.JudgeDecision)
	assert.Empty(t, got.Config.Models.Judge)
}

func TestSQLiteStore_IDsIncrease(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Save(ctx, sampleRecord(true))
	require.NoError(t, err)
	second, err := s.Save(ctx, sampleRecord(false))
	require.NoError(t, err)
	assert.Greater(t, second, first)
}

func TestSQLiteStore_Query(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	judged := sampleRecord(true)
	_, err := s.Save(ctx, judged)
	require.NoError(t, err)

	other := sampleRecord(true)
	other.Claim.Topic = "politics"
	other.JudgeDecision = &models.JudgeDecision{
		Verdict:   models.VerdictContradicted,
		Score:     models.IntPtr(3),
		Reasoning: "weak sources",
	}
	_, err = s.Save(ctx, other)
	require.NoError(t, err)

	_, err = s.Save(ctx, sampleRecord(false))
	require.NoError(t, err)

	all, err := s.Query(ctx, Filters{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byTopic, err := s.Query(ctx, Filters{Topic: "politics"})
	require.NoError(t, err)
	require.Len(t, byTopic, 1)
	assert.Equal(t, models.VerdictContradicted, byTopic[0].JudgeDecision.Verdict)

	byVerdict, err := s.Query(ctx, Filters{JudgeVerdict: "supported"})
	require.NoError(t, err)
	assert.Len(t, byVerdict, 1)

	byScore, err := s.Query(ctx, Filters{MinScore: models.IntPtr(5)})
	require.NoError(t, err)
	require.Len(t, byScore, 1)
	assert.Equal(t, 8, *byScore[0].JudgeDecision.Score)

	combined, err := s.Query(ctx, Filters{Topic: "health", JudgeVerdict: "contradicted"})
	require.NoError(t, err)
	assert.Empty(t, combined)
}

func TestSQLiteStore_SaveJudgment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	expID, err := s.Save(ctx, sampleRecord(true))
	require.NoError(t, err)

	j := &models.Judgment{
		ExperimentID:    expID,
		JudgeModel:      "Grok 3",
		TurnsConsidered: 1,
		Verdict:         models.VerdictMisleading,
		Score:           models.IntPtr(4),
		Reasoning:       "partial picture",
	}
	jID, err := s.SaveJudgment(ctx, j)
	require.NoError(t, err)
	assert.Greater(t, jID, int64(0))

	got, err := s.GetJudgments(ctx, JudgmentFilters{ExperimentID: &expID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Grok 3", got[0].JudgeModel)
	assert.Equal(t, 1, got[0].TurnsConsidered)
	assert.Equal(t, models.VerdictMisleading, got[0].Verdict)
	require.NotNil(t, got[0].Score)
	assert.Equal(t, 4, *got[0].Score)
	assert.False(t, got[0].Timestamp.IsZero())
}

func TestSQLiteStore_SaveJudgment_NilScore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	expID, err := s.Save(ctx, sampleRecord(true))
	require.NoError(t, err)

	_, err = s.SaveJudgment(ctx, &models.Judgment{
		ExperimentID:    expID,
		JudgeModel:      "Grok 3",
		TurnsConsidered: 2,
		Verdict:         models.VerdictNeedsMore,
		Reasoning:       "thin record",
	})
	require.NoError(t, err)

	got, err := s.GetJudgments(ctx, JudgmentFilters{ExperimentID: &expID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Score)
}

func TestSQLiteStore_SaveJudgment_MissingExperiment(t *testing.T) {
	s := newTestStore(t)

	_, err := s.SaveJudgment(context.Background(), &models.Judgment{
		ExperimentID:    12345,
		JudgeModel:      "Grok 3",
		TurnsConsidered: 1,
		Verdict:         models.VerdictSupported,
		Score:           models.IntPtr(7),
		Reasoning:       "r",
	})
	var refErr *ReferentialError
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, int64(12345), refErr.ExperimentID)
}

func TestSQLiteStore_SaveJudgment_InvalidDecision(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	expID, err := s.Save(ctx, sampleRecord(true))
	require.NoError(t, err)

	_, err = s.SaveJudgment(ctx, &models.Judgment{
		ExperimentID:    expID,
		JudgeModel:      "Grok 3",
		TurnsConsidered: 1,
		Verdict:         models.VerdictNeedsMore,
		Score:           models.IntPtr(5),
		Reasoning:       "r",
	})
	require.Error(t, err)
}

func TestSQLiteStore_DuplicateJudgmentsAllowed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	expID, err := s.Save(ctx, sampleRecord(true))
	require.NoError(t, err)

	j := models.Judgment{
		ExperimentID:    expID,
		JudgeModel:      "Grok 3",
		TurnsConsidered: 1,
		Verdict:         models.VerdictSupported,
		Score:           models.IntPtr(6),
		Reasoning:       "consistent",
	}
	for i := 0; i < 3; i++ {
		dup := j
		_, err := s.SaveJudgment(ctx, &dup)
		require.NoError(t, err)
	}

	got, err := s.GetJudgments(ctx, JudgmentFilters{ExperimentID: &expID})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestSQLiteStore_GetJudgments_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	expID, err := s.Save(ctx, sampleRecord(true))
	require.NoError(t, err)

	for _, j := range []models.Judgment{
		{ExperimentID: expID, JudgeModel: "Grok 3", TurnsConsidered: 1,
			Verdict: models.VerdictSupported, Score: models.IntPtr(6), Reasoning: "a"},
		{ExperimentID: expID, JudgeModel: "Grok 3", TurnsConsidered: 2,
			Verdict: models.VerdictSupported, Score: models.IntPtr(7), Reasoning: "b"},
		{ExperimentID: expID, JudgeModel: "Gemini 2.5 Flash", TurnsConsidered: 1,
			Verdict: models.VerdictMisleading, Score: models.IntPtr(4), Reasoning: "c"},
	} {
		jj := j
		_, err := s.SaveJudgment(ctx, &jj)
		require.NoError(t, err)
	}

	byJudge, err := s.GetJudgments(ctx, JudgmentFilters{JudgeModel: "Grok 3"})
	require.NoError(t, err)
	assert.Len(t, byJudge, 2)

	one := 1
	byTurns, err := s.GetJudgments(ctx, JudgmentFilters{TurnsConsidered: &one})
	require.NoError(t, err)
	assert.Len(t, byTurns, 2)

	both, err := s.GetJudgments(ctx, JudgmentFilters{JudgeModel: "Gemini 2.5 Flash", TurnsConsidered: &one})
	require.NoError(t, err)
	assert.Len(t, both, 1)
}

func TestSQLiteStore_Stats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, sampleRecord(true)) // supported, score 8, topic health
	require.NoError(t, err)

	other := sampleRecord(true)
	other.Claim.Topic = "politics"
	other.JudgeDecision = &models.JudgeDecision{
		Verdict: models.VerdictContradicted, Score: models.IntPtr(2), Reasoning: "r",
	}
	_, err = s.Save(ctx, other)
	require.NoError(t, err)

	_, err = s.Save(ctx, sampleRecord(false)) // unjudged
	require.NoError(t, err)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalExperiments)
	assert.Equal(t, 1, stats.ByVerdict["supported"])
	assert.Equal(t, 1, stats.ByVerdict["contradicted"])
	assert.Equal(t, 2, stats.ByTopic["health"])
	assert.Equal(t, 1, stats.ByTopic["politics"])
	require.NotNil(t, stats.AverageScore)
	assert.InDelta(t, 5.0, *stats.AverageScore, 1e-9)
}

func TestSQLiteStore_JudgmentStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	expID, err := s.Save(ctx, sampleRecord(true))
	require.NoError(t, err)

	// Two judgments at cutoff 1 that agree, two at cutoff 2 that disagree.
	for _, j := range []models.Judgment{
		{ExperimentID: expID, JudgeModel: "Grok 3", TurnsConsidered: 1,
			Verdict: models.VerdictSupported, Score: models.IntPtr(6), Reasoning: "a"},
		{ExperimentID: expID, JudgeModel: "Grok 3", TurnsConsidered: 1,
			Verdict: models.VerdictSupported, Score: models.IntPtr(7), Reasoning: "b"},
		{ExperimentID: expID, JudgeModel: "Grok 3", TurnsConsidered: 2,
			Verdict: models.VerdictSupported, Score: models.IntPtr(6), Reasoning: "c"},
		{ExperimentID: expID, JudgeModel: "Gemini 2.5 Flash", TurnsConsidered: 2,
			Verdict: models.VerdictMisleading, Score: models.IntPtr(3), Reasoning: "d"},
	} {
		jj := j
		_, err := s.SaveJudgment(ctx, &jj)
		require.NoError(t, err)
	}

	stats, err := s.JudgmentStats(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalJudgments)
	assert.Equal(t, 3, stats.ByJudgeModel["Grok 3"])
	assert.Equal(t, 1, stats.ByJudgeModel["Gemini 2.5 Flash"])
	assert.Equal(t, 2, stats.ByTurnsConsidered[1])
	assert.Equal(t, 2, stats.ByTurnsConsidered[2])
	require.NotNil(t, stats.PerfectAgreementRate)
	assert.InDelta(t, 0.5, *stats.PerfectAgreementRate, 1e-9)

	scoped, err := s.JudgmentStats(ctx, &expID)
	require.NoError(t, err)
	assert.Equal(t, 4, scoped.TotalJudgments)
	assert.Nil(t, scoped.PerfectAgreementRate)
}
