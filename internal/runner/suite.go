// Package runner executes experiment suites: the fixed 2x8 design over a
// single claim, and randomized batches of suites across a claim corpus.
package runner

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/aaron1729/ai-debate/internal/claims"
	"github.com/aaron1729/ai-debate/internal/debate"
	"github.com/aaron1729/ai-debate/internal/llm"
	"github.com/aaron1729/ai-debate/internal/models"
	"github.com/aaron1729/ai-debate/internal/store"
)

// suiteTurnCounts is the fixed ladder of debate lengths in a suite.
var suiteTurnCounts = []int{1, 2, 4, 6}

// ModelSource resolves model keys to gateways and display names.
// *llm.Registry satisfies it.
type ModelSource interface {
	Gateway(key string) (llm.Gateway, error)
	Name(key string) string
	Keys() []string
}

// Runner executes suites against a store.
type Runner struct {
	models ModelSource
	store  store.ExperimentStore
	log    *logrus.Logger

	// Concurrency bounds parallel suites in a randomized batch. Debates
	// within one suite always run sequentially.
	Concurrency int
}

// NewRunner creates a suite runner. Concurrency defaults to 1.
func NewRunner(ms ModelSource, st store.ExperimentStore, log *logrus.Logger) *Runner {
	if log == nil {
		log = logrus.New()
	}
	return &Runner{models: ms, store: st, log: log, Concurrency: 1}
}

// SuiteParams configures one 2x8 suite over a single claim.
type SuiteParams struct {
	Claim       models.Claim
	GroundTruth *models.GroundTruth

	// Model keys. The suite runs each turn count twice: once with
	// Debater1 arguing pro and once with the roles swapped. The pro side
	// opens in both configurations.
	Debater1 string
	Debater2 string
	Judge    string
}

// RunSuite executes the full suite (4 turn counts x 2 role assignments) and
// returns the experiment IDs in run order. The first failing debate aborts
// the rest of the suite; completed debates stay persisted.
func (r *Runner) RunSuite(ctx context.Context, params SuiteParams) ([]int64, error) {
	judgeGW, err := r.models.Gateway(params.Judge)
	if err != nil {
		return nil, fmt.Errorf("judge: %w", err)
	}
	judge := debate.NewJudge(judgeGW, r.models.Name(params.Judge))

	configs := []struct{ pro, con string }{
		{params.Debater1, params.Debater2},
		{params.Debater2, params.Debater1},
	}

	log := r.log.WithFields(logrus.Fields{
		"claim":    params.Claim.Text,
		"debater1": r.models.Name(params.Debater1),
		"debater2": r.models.Name(params.Debater2),
		"judge":    r.models.Name(params.Judge),
	})
	log.Info("Starting experiment suite")

	var ids []int64
	for _, cfg := range configs {
		orch, err := r.orchestrator(cfg.pro, cfg.con, judge)
		if err != nil {
			return ids, err
		}

		for _, turns := range suiteTurnCounts {
			id, _, err := orch.Run(ctx, debate.RunParams{
				Claim:        params.Claim,
				GroundTruth:  params.GroundTruth,
				Turns:        turns,
				ProWentFirst: true,
			})
			if err != nil {
				return ids, fmt.Errorf("suite debate (pro=%s, turns=%d) failed: %w", cfg.pro, turns, err)
			}
			ids = append(ids, id)
			log.WithFields(logrus.Fields{
				"experiment_id": id,
				"pro":           r.models.Name(cfg.pro),
				"turns":         turns,
			}).Info("Suite debate complete")
		}
	}

	return ids, nil
}

func (r *Runner) orchestrator(proKey, conKey string, judge *debate.Judge) (*debate.Orchestrator, error) {
	proGW, err := r.models.Gateway(proKey)
	if err != nil {
		return nil, fmt.Errorf("pro debater: %w", err)
	}
	conGW, err := r.models.Gateway(conKey)
	if err != nil {
		return nil, fmt.Errorf("con debater: %w", err)
	}
	pro := debate.NewDebater(models.PositionPro, proGW, r.models.Name(proKey))
	con := debate.NewDebater(models.PositionCon, conGW, r.models.Name(conKey))
	return debate.NewOrchestrator(pro, con, judge, r.store, r.log), nil
}

// Dataset is one claims file with its entry count, used for uniform random
// claim selection across files of different sizes.
type Dataset struct {
	Path string
	Size int
}

// BatchParams configures a randomized batch of suites.
type BatchParams struct {
	Count    int
	Datasets []Dataset
	Rand     *rand.Rand // required; seed it for reproducible batches
}

// BatchSummary tallies a randomized batch.
type BatchSummary struct {
	Succeeded     int
	Failed        int
	ExperimentIDs []int64
}

// plannedSuite is one pre-drawn randomized run. All randomness happens up
// front on the caller's goroutine so a seeded batch is reproducible no matter
// how the concurrent runs interleave.
type plannedSuite struct {
	spec     string
	debater1 string
	debater2 string
	judge    string
}

// RunRandomizedBatch draws Count random (claim, model triple) combinations
// and runs a full suite for each, up to Concurrency suites in parallel. The
// three models of a triple are always distinct. A failing suite is logged and
// counted; it never stops the batch.
func (r *Runner) RunRandomizedBatch(ctx context.Context, params BatchParams) (BatchSummary, error) {
	if params.Count < 1 {
		return BatchSummary{}, fmt.Errorf("batch count must be at least 1, got %d", params.Count)
	}
	if len(params.Datasets) == 0 {
		return BatchSummary{}, fmt.Errorf("no claim datasets provided")
	}
	keys := r.models.Keys()
	if len(keys) < 3 {
		return BatchSummary{}, fmt.Errorf("randomized batch needs at least 3 models, registry has %d", len(keys))
	}

	total := 0
	for _, ds := range params.Datasets {
		total += ds.Size
	}
	if total == 0 {
		return BatchSummary{}, fmt.Errorf("claim datasets are empty")
	}

	plans := make([]plannedSuite, params.Count)
	for i := range plans {
		pick := params.Rand.Intn(total)
		var spec string
		for _, ds := range params.Datasets {
			if pick < ds.Size {
				spec = fmt.Sprintf("%s:%d", ds.Path, pick)
				break
			}
			pick -= ds.Size
		}

		perm := params.Rand.Perm(len(keys))
		plans[i] = plannedSuite{
			spec:     spec,
			debater1: keys[perm[0]],
			debater2: keys[perm[1]],
			judge:    keys[perm[2]],
		}
	}

	concurrency := r.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	var mu sync.Mutex
	summary := BatchSummary{}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, plan := range plans {
		plan := plan
		g.Go(func() error {
			log := r.log.WithFields(logrus.Fields{
				"claim_spec": plan.spec,
				"debater1":   plan.debater1,
				"debater2":   plan.debater2,
				"judge":      plan.judge,
			})

			claim, gt, err := claims.Load(plan.spec)
			if err != nil {
				log.WithError(err).Warn("Failed to load claim, skipping suite")
				mu.Lock()
				summary.Failed++
				mu.Unlock()
				return nil
			}

			ids, err := r.RunSuite(ctx, SuiteParams{
				Claim:       claim,
				GroundTruth: gt,
				Debater1:    plan.debater1,
				Debater2:    plan.debater2,
				Judge:       plan.judge,
			})

			mu.Lock()
			defer mu.Unlock()
			summary.ExperimentIDs = append(summary.ExperimentIDs, ids...)
			if err != nil {
				log.WithError(err).Warn("Suite failed")
				summary.Failed++
				return nil
			}
			summary.Succeeded++
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return summary, err
	}
	return summary, nil
}
