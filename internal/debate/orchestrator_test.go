package debate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaron1729/ai-debate/internal/models"
	"github.com/aaron1729/ai-debate/internal/store"
)

// scriptedGateway replays canned responses in order and records every prompt
// it was asked.
type scriptedGateway struct {
	responses []string
	failAt    int // 1-based call index that returns err, 0 = never
	err       error

	calls       int
	userPrompts []string
}

func (g *scriptedGateway) Generate(_ context.Context, _ string, userPrompt string, _ int) (string, error) {
	g.calls++
	g.userPrompts = append(g.userPrompts, userPrompt)
	if g.failAt > 0 && g.calls == g.failAt {
		return "", g.err
	}
	if g.calls > len(g.responses) {
		return "", errors.New("scripted gateway exhausted")
	}
	return g.responses[g.calls-1], nil
}

// memStore is an in-memory ExperimentStore for orchestrator tests.
type memStore struct {
	records   []*models.DebateRecord
	judgments []*models.Judgment
}

func (s *memStore) Save(_ context.Context, record *models.DebateRecord) (int64, error) {
	s.records = append(s.records, record)
	return int64(len(s.records)), nil
}

func (s *memStore) GetByID(_ context.Context, id int64) (*models.DebateRecord, error) {
	if id < 1 || id > int64(len(s.records)) {
		return nil, nil
	}
	return s.records[id-1], nil
}

func (s *memStore) Query(_ context.Context, _ store.Filters) ([]*models.DebateRecord, error) {
	return s.records, nil
}

func (s *memStore) SaveJudgment(_ context.Context, judgment *models.Judgment) (int64, error) {
	s.judgments = append(s.judgments, judgment)
	return int64(len(s.judgments)), nil
}

func (s *memStore) GetJudgments(_ context.Context, _ store.JudgmentFilters) ([]*models.Judgment, error) {
	return s.judgments, nil
}

const (
	argJSON     = `{"url": "https://example.com/a", "quote": "quoted text", "context": "supporting context", "argument": "the argument"}`
	refusalJSON = `{"refused": true, "reason": "cannot argue this"}`
	verdictJSON = `{"verdict": "supported", "score": 7, "reasoning": "pro cited stronger sources"}`
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func repeat(s string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s
	}
	return out
}

func TestOrchestrator_SingleRoundWithJudge(t *testing.T) {
	// Claim "Coffee is good for your health", turns=1, both sides argue:
	// exactly 2 entries (pro then con), one inline decision, one stored row.
	proGW := &scriptedGateway{responses: []string{argJSON}}
	conGW := &scriptedGateway{responses: []string{argJSON}}
	judgeGW := &scriptedGateway{responses: []string{verdictJSON}}
	st := &memStore{}

	orch := NewOrchestrator(
		NewDebater(models.PositionPro, proGW, "Claude Sonnet 4.5"),
		NewDebater(models.PositionCon, conGW, "Grok 3"),
		NewJudge(judgeGW, "GPT-4"),
		st, quietLogger(),
	)

	id, record, err := orch.Run(context.Background(), RunParams{
		Claim:        models.Claim{Text: "Coffee is good for your health"},
		Turns:        1,
		ProWentFirst: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	require.Len(t, record.Transcript, 2)
	assert.Equal(t, models.PositionPro, record.Transcript[0].Position)
	assert.Equal(t, models.PositionCon, record.Transcript[1].Position)
	assert.False(t, record.Transcript[0].Refused)
	assert.False(t, record.Transcript[1].Refused)
	assert.Equal(t, 1, record.Transcript[0].Turn)
	assert.Equal(t, 1, record.Transcript[1].Turn)

	require.NotNil(t, record.JudgeDecision)
	assert.True(t, record.JudgeDecision.Verdict.Valid())
	require.NoError(t, models.ValidateDecision(record.JudgeDecision.Verdict, record.JudgeDecision.Score))

	assert.Equal(t, "GPT-4", record.Config.Models.Judge)
	require.Len(t, st.records, 1)
}

func TestOrchestrator_RefusalGraceRule(t *testing.T) {
	// turns=3, pro refuses on round 2: the con side still answers within
	// round 2, then the debate ends. 4 entries, round 3 never happens.
	proGW := &scriptedGateway{responses: []string{argJSON, refusalJSON}}
	conGW := &scriptedGateway{responses: []string{argJSON, argJSON}}
	judgeGW := &scriptedGateway{responses: []string{verdictJSON}}
	st := &memStore{}

	orch := NewOrchestrator(
		NewDebater(models.PositionPro, proGW, "pro-model"),
		NewDebater(models.PositionCon, conGW, "con-model"),
		NewJudge(judgeGW, "judge-model"),
		st, quietLogger(),
	)

	_, record, err := orch.Run(context.Background(), RunParams{
		Claim:        models.Claim{Text: "Coffee is good for your health"},
		Turns:        3,
		ProWentFirst: true,
	})
	require.NoError(t, err)

	require.Len(t, record.Transcript, 4)
	assert.False(t, record.Transcript[0].Refused) // round 1 pro
	assert.False(t, record.Transcript[1].Refused) // round 1 con
	assert.True(t, record.Transcript[2].Refused)  // round 2 pro refuses
	assert.False(t, record.Transcript[3].Refused) // round 2 con, grace turn

	for _, entry := range record.Transcript {
		assert.LessOrEqual(t, entry.Turn, 2, "no entry may belong to a round after the refusal round")
	}

	require.Len(t, record.ErrorsOrRefusals, 1)
	assert.Contains(t, record.ErrorsOrRefusals[0], "pro refused on round 2")
}

func TestOrchestrator_SecondSideRefusalEndsRound(t *testing.T) {
	// When the second mover of a round refuses, the round is already over:
	// no grace turn is owed and no later round starts.
	proGW := &scriptedGateway{responses: []string{argJSON}}
	conGW := &scriptedGateway{responses: []string{refusalJSON}}
	judgeGW := &scriptedGateway{responses: []string{verdictJSON}}
	st := &memStore{}

	orch := NewOrchestrator(
		NewDebater(models.PositionPro, proGW, "p"),
		NewDebater(models.PositionCon, conGW, "c"),
		NewJudge(judgeGW, "j"),
		st, quietLogger(),
	)

	_, record, err := orch.Run(context.Background(), RunParams{
		Claim: models.Claim{Text: "x"}, Turns: 4, ProWentFirst: true,
	})
	require.NoError(t, err)
	require.Len(t, record.Transcript, 2)
	assert.True(t, record.Transcript[1].Refused)
}

func TestOrchestrator_OpponentBlindToRefusal(t *testing.T) {
	// Con refuses in round 1; the prompt built for pro's round-2 turn must
	// carry no trace of the refusal.
	proGW := &scriptedGateway{responses: []string{argJSON, argJSON}}
	conGW := &scriptedGateway{responses: []string{refusalJSON, argJSON}}
	judgeGW := &scriptedGateway{responses: []string{verdictJSON}}
	st := &memStore{}

	orch := NewOrchestrator(
		NewDebater(models.PositionPro, proGW, "p"),
		NewDebater(models.PositionCon, conGW, "c"),
		NewJudge(judgeGW, "j"),
		st, quietLogger(),
	)

	_, record, err := orch.Run(context.Background(), RunParams{
		Claim: models.Claim{Text: "x"}, Turns: 3, ProWentFirst: true,
	})
	require.NoError(t, err)

	// Grace rule: con refused as second mover of round 1, debate ends there.
	require.Len(t, record.Transcript, 2)

	// The judge, by contrast, sees the refusal rendered explicitly.
	require.Len(t, judgeGW.userPrompts, 1)
	assert.Contains(t, judgeGW.userPrompts[0], "[REFUSED TO ARGUE]")
	assert.Contains(t, judgeGW.userPrompts[0], "cannot argue this")
}

func TestOrchestrator_OpponentBlindToFirstMoverRefusal(t *testing.T) {
	// Pro refuses opening round 2; con's round-2 grace prompt must not
	// mention it.
	proGW := &scriptedGateway{responses: []string{argJSON, refusalJSON}}
	conGW := &scriptedGateway{responses: []string{argJSON, argJSON}}
	judgeGW := &scriptedGateway{responses: []string{verdictJSON}}
	st := &memStore{}

	orch := NewOrchestrator(
		NewDebater(models.PositionPro, proGW, "p"),
		NewDebater(models.PositionCon, conGW, "c"),
		NewJudge(judgeGW, "j"),
		st, quietLogger(),
	)

	_, _, err := orch.Run(context.Background(), RunParams{
		Claim: models.Claim{Text: "x"}, Turns: 2, ProWentFirst: true,
	})
	require.NoError(t, err)

	require.Len(t, conGW.userPrompts, 2)
	graceTurnPrompt := conGW.userPrompts[1]
	assert.NotContains(t, graceTurnPrompt, "cannot argue this")
	assert.NotContains(t, strings.ToLower(graceTurnPrompt), "refus")
}

func TestOrchestrator_ConFirstOrdering(t *testing.T) {
	proGW := &scriptedGateway{responses: repeat(argJSON, 2)}
	conGW := &scriptedGateway{responses: repeat(argJSON, 2)}
	judgeGW := &scriptedGateway{responses: []string{verdictJSON}}
	st := &memStore{}

	orch := NewOrchestrator(
		NewDebater(models.PositionPro, proGW, "p"),
		NewDebater(models.PositionCon, conGW, "c"),
		NewJudge(judgeGW, "j"),
		st, quietLogger(),
	)

	_, record, err := orch.Run(context.Background(), RunParams{
		Claim: models.Claim{Text: "x"}, Turns: 2, ProWentFirst: false,
	})
	require.NoError(t, err)

	require.Len(t, record.Transcript, 4)
	assert.Equal(t, models.PositionCon, record.Transcript[0].Position)
	assert.Equal(t, models.PositionPro, record.Transcript[1].Position)
	assert.False(t, record.Config.ProWentFirst)
}

func TestOrchestrator_DebaterFailureAbortsWithoutPersistence(t *testing.T) {
	proGW := &scriptedGateway{responses: []string{argJSON}}
	conGW := &scriptedGateway{failAt: 1, err: errors.New("boom")}
	st := &memStore{}

	orch := NewOrchestrator(
		NewDebater(models.PositionPro, proGW, "p"),
		NewDebater(models.PositionCon, conGW, "c"),
		nil, st, quietLogger(),
	)

	_, _, err := orch.Run(context.Background(), RunParams{
		Claim: models.Claim{Text: "x"}, Turns: 2, ProWentFirst: true,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "con debater failed on round 1")
	assert.Empty(t, st.records, "nothing may be persisted after a fatal debater error")
}

func TestOrchestrator_JudgeFailureAbortsWithoutPersistence(t *testing.T) {
	// All debate turns succeed, judging fails: the store must stay empty.
	proGW := &scriptedGateway{responses: []string{argJSON}}
	conGW := &scriptedGateway{responses: []string{argJSON}}
	judgeGW := &scriptedGateway{failAt: 1, err: errors.New("judge unavailable")}
	st := &memStore{}

	orch := NewOrchestrator(
		NewDebater(models.PositionPro, proGW, "p"),
		NewDebater(models.PositionCon, conGW, "c"),
		NewJudge(judgeGW, "j"),
		st, quietLogger(),
	)

	_, _, err := orch.Run(context.Background(), RunParams{
		Claim: models.Claim{Text: "x"}, Turns: 1, ProWentFirst: true,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "judge failed")
	assert.Empty(t, st.records)
}

func TestOrchestrator_MalformedTurnAborts(t *testing.T) {
	proGW := &scriptedGateway{responses: []string{"no json here at all"}}
	conGW := &scriptedGateway{}
	st := &memStore{}

	orch := NewOrchestrator(
		NewDebater(models.PositionPro, proGW, "p"),
		NewDebater(models.PositionCon, conGW, "c"),
		nil, st, quietLogger(),
	)

	_, _, err := orch.Run(context.Background(), RunParams{
		Claim: models.Claim{Text: "x"}, Turns: 1, ProWentFirst: true,
	})
	require.Error(t, err)

	var malformed *MalformedResponseError
	assert.ErrorAs(t, err, &malformed)
	assert.Empty(t, st.records)
}

func TestOrchestrator_NoJudgeDefersJudgment(t *testing.T) {
	proGW := &scriptedGateway{responses: []string{argJSON}}
	conGW := &scriptedGateway{responses: []string{argJSON}}
	st := &memStore{}

	orch := NewOrchestrator(
		NewDebater(models.PositionPro, proGW, "p"),
		NewDebater(models.PositionCon, conGW, "c"),
		nil, st, quietLogger(),
	)

	_, record, err := orch.Run(context.Background(), RunParams{
		Claim: models.Claim{Text: "x"}, Turns: 1, ProWentFirst: true,
	})
	require.NoError(t, err)
	assert.Nil(t, record.JudgeDecision)
	assert.Empty(t, record.Config.Models.Judge)
	require.Len(t, st.records, 1)
}

func TestOrchestrator_FullSixRoundDebate(t *testing.T) {
	proGW := &scriptedGateway{responses: repeat(argJSON, 6)}
	conGW := &scriptedGateway{responses: repeat(argJSON, 6)}
	judgeGW := &scriptedGateway{responses: []string{verdictJSON}}
	st := &memStore{}

	orch := NewOrchestrator(
		NewDebater(models.PositionPro, proGW, "p"),
		NewDebater(models.PositionCon, conGW, "c"),
		NewJudge(judgeGW, "j"),
		st, quietLogger(),
	)

	_, record, err := orch.Run(context.Background(), RunParams{
		Claim: models.Claim{Text: "x"}, Turns: 6, ProWentFirst: true,
	})
	require.NoError(t, err)
	require.Len(t, record.Transcript, 12)

	for i, entry := range record.Transcript {
		assert.Equal(t, i/2+1, entry.Turn, "entry %d has wrong round number", i)
	}
}

func TestOrchestrator_RejectsZeroTurns(t *testing.T) {
	orch := NewOrchestrator(
		NewDebater(models.PositionPro, &scriptedGateway{}, "p"),
		NewDebater(models.PositionCon, &scriptedGateway{}, "c"),
		nil, &memStore{}, quietLogger(),
	)

	_, _, err := orch.Run(context.Background(), RunParams{Claim: models.Claim{Text: "x"}, Turns: 0})
	assert.Error(t, err)
}
