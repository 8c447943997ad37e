// Package rejudge re-evaluates persisted debates with fresh judges at
// arbitrary turn cutoffs. It only ever reads debate records and appends
// judgments; the records themselves are never touched.
package rejudge

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aaron1729/ai-debate/internal/debate"
	"github.com/aaron1729/ai-debate/internal/models"
	"github.com/aaron1729/ai-debate/internal/store"
)

// Engine runs retrospective judgments over stored experiments.
type Engine struct {
	store store.ExperimentStore
	log   *logrus.Logger
}

// NewEngine creates a retrospective judging engine over the given store.
func NewEngine(st store.ExperimentStore, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.New()
	}
	return &Engine{store: st, log: log}
}

// Summary tallies one retrospective run.
type Summary struct {
	Created int // judgments persisted
	Failed  int // judge or store errors, logged and skipped
	Skipped int // cutoffs beyond the experiment's configured turns
}

// Rejudge evaluates one experiment with each judge at each cutoff and appends
// a judgment per (judge, cutoff) pair. Cutoffs beyond the experiment's
// configured turn count are skipped. A failing pair is logged and does not
// stop the remaining pairs.
func (e *Engine) Rejudge(ctx context.Context, experimentID int64, judges []*debate.Judge, cutoffs []int) (Summary, error) {
	record, err := e.store.GetByID(ctx, experimentID)
	if err != nil {
		return Summary{}, err
	}
	if record == nil {
		return Summary{}, &store.ReferentialError{ExperimentID: experimentID}
	}

	log := e.log.WithFields(logrus.Fields{
		"experiment_id": experimentID,
		"claim":         record.Claim.Text,
	})

	var summary Summary
	for _, cutoff := range cutoffs {
		if cutoff > record.Config.Turns {
			log.WithFields(logrus.Fields{
				"cutoff":       cutoff,
				"actual_turns": record.Config.Turns,
			}).Debug("Cutoff exceeds experiment turns, skipping")
			summary.Skipped += len(judges)
			continue
		}

		history := truncate(record.Transcript, cutoff)

		for _, judge := range judges {
			pairLog := log.WithFields(logrus.Fields{
				"judge":  judge.ModelName(),
				"cutoff": cutoff,
			})

			decision, err := judge.JudgeDebate(ctx, record.Claim.Text, history)
			if err != nil {
				pairLog.WithError(err).Warn("Retrospective judgment failed")
				summary.Failed++
				continue
			}

			judgment := &models.Judgment{
				ExperimentID:    experimentID,
				JudgeModel:      judge.ModelName(),
				TurnsConsidered: cutoff,
				Verdict:         decision.Verdict,
				Score:           decision.Score,
				Reasoning:       decision.Reasoning,
				Timestamp:       time.Now().UTC(),
			}
			if _, err := e.store.SaveJudgment(ctx, judgment); err != nil {
				pairLog.WithError(err).Warn("Failed to persist judgment")
				summary.Failed++
				continue
			}

			pairLog.WithFields(logrus.Fields{
				"verdict": decision.Verdict,
			}).Info("Retrospective judgment saved")
			summary.Created++
		}
	}

	return summary, nil
}

// RejudgeMany runs Rejudge over a set of experiments, accumulating one
// summary. Errors loading an individual experiment are logged and counted as
// failures rather than aborting the batch.
func (e *Engine) RejudgeMany(ctx context.Context, experimentIDs []int64, judges []*debate.Judge, cutoffs []int) Summary {
	var total Summary
	for _, id := range experimentIDs {
		summary, err := e.Rejudge(ctx, id, judges, cutoffs)
		if err != nil {
			e.log.WithError(err).WithField("experiment_id", id).Warn("Skipping experiment")
			total.Failed += len(judges) * len(cutoffs)
			continue
		}
		total.Created += summary.Created
		total.Failed += summary.Failed
		total.Skipped += summary.Skipped
	}
	return total
}

// truncate returns the transcript entries from rounds 1..cutoff, rebuilt as
// the debater-history view: refusals keep their reason, arguments keep url,
// quote, and argument but drop the stored context. Filtering is by round
// number, never by list position, so shortened debates truncate correctly.
func truncate(transcript []models.TurnEntry, cutoff int) []models.TurnEntry {
	var history []models.TurnEntry
	for _, entry := range transcript {
		if entry.Turn > cutoff {
			continue
		}
		view := entry
		view.Context = ""
		history = append(history, view)
	}
	return history
}
