package debate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/aaron1729/ai-debate/internal/models"
	"github.com/aaron1729/ai-debate/internal/store"
)

// Orchestrator drives one debate: alternating debater turns, optional inline
// judging, and a single persistence call at the very end. Either one complete
// record is written or nothing is.
type Orchestrator struct {
	pro   *Debater
	con   *Debater
	judge *Judge // nil defers judging to the retrospective engine
	store store.ExperimentStore
	log   *logrus.Logger
}

// NewOrchestrator wires a debate run. judge may be nil to skip inline
// judging.
func NewOrchestrator(pro, con *Debater, judge *Judge, st store.ExperimentStore, log *logrus.Logger) *Orchestrator {
	if log == nil {
		log = logrus.New()
	}
	return &Orchestrator{pro: pro, con: con, judge: judge, store: st, log: log}
}

// RunParams configures a single debate run.
type RunParams struct {
	Claim        models.Claim
	GroundTruth  *models.GroundTruth
	Turns        int
	ProWentFirst bool
}

// Run executes the debate and persists the resulting record, returning its
// store ID. Turn entries carry the round number as their turn field, shared
// by both sides of the round.
//
// Any provider or contract error from any debater or judge call aborts the
// entire run with nothing persisted.
func (o *Orchestrator) Run(ctx context.Context, params RunParams) (int64, *models.DebateRecord, error) {
	if params.Turns < 1 {
		return 0, nil, fmt.Errorf("turns must be at least 1, got %d", params.Turns)
	}

	runID := uuid.NewString()
	log := o.log.WithFields(logrus.Fields{
		"run_id": runID,
		"claim":  params.Claim.Text,
		"turns":  params.Turns,
	})
	log.Info("Starting debate")

	order := []*Debater{o.pro, o.con}
	if !params.ProWentFirst {
		order = []*Debater{o.con, o.pro}
	}

	var transcript []models.TurnEntry
	var errorsOrRefusals []string
	shortened := false

	for round := 1; round <= params.Turns; round++ {
		for _, debater := range order {
			log.WithFields(logrus.Fields{
				"round":    round,
				"position": debater.Position(),
				"model":    debater.ModelName(),
			}).Info("Requesting argument")

			entry, err := debater.MakeArgument(ctx, params.Claim.Text, transcript)
			if err != nil {
				return 0, nil, fmt.Errorf("%s debater failed on round %d: %w", debater.Position(), round, err)
			}

			entry.Turn = round
			transcript = append(transcript, entry)

			if entry.Refused {
				shortened = true
				event := fmt.Sprintf("%s refused on round %d: %s", debater.Position(), round, entry.RefusalReason)
				errorsOrRefusals = append(errorsOrRefusals, event)
				log.WithField("round", round).Warn(event)
			}
		}

		// A refusal ends the debate, but only after the opponent has had
		// its response within the same round. One extra turn, never more.
		if shortened {
			log.Info("Debate shortened by refusal, proceeding to judgment")
			break
		}
	}

	record := &models.DebateRecord{
		Claim:      params.Claim,
		Transcript: transcript,
		Config: models.ExperimentConfig{
			Timestamp:    time.Now().UTC(),
			Models:       models.ModelAssignment{Pro: o.pro.ModelName(), Con: o.con.ModelName()},
			Turns:        params.Turns,
			ProWentFirst: params.ProWentFirst,
		},
		GroundTruth:      params.GroundTruth,
		ErrorsOrRefusals: errorsOrRefusals,
	}

	if o.judge != nil {
		log.WithField("judge", o.judge.ModelName()).Info("Judge is deliberating")
		decision, err := o.judge.JudgeDebate(ctx, params.Claim.Text, transcript)
		if err != nil {
			return 0, nil, fmt.Errorf("judge failed: %w", err)
		}
		record.Config.Models.Judge = o.judge.ModelName()
		record.JudgeDecision = &decision
	}

	id, err := o.store.Save(ctx, record)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to persist debate record: %w", err)
	}

	log.WithFields(logrus.Fields{
		"experiment_id": id,
		"entries":       len(transcript),
		"shortened":     shortened,
	}).Info("Debate complete")

	return id, record, nil
}
