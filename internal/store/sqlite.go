package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/aaron1729/ai-debate/internal/models"
)

// SQLiteStore implements ExperimentStore on a SQLite database file. Each
// record is stored twice: denormalized columns for indexed querying, and a
// full JSON blob that round-trips the complete DebateRecord.
type SQLiteStore struct {
	db  *sql.DB
	log *logrus.Logger
}

// NewSQLiteStore opens (creating if necessary) the database at path and
// initializes the schema.
func NewSQLiteStore(path string, log *logrus.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = logrus.New()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer at a time; serialize access through a single
	// connection so concurrent Save/SaveJudgment calls queue instead of
	// failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, log: log}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS experiments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		claim TEXT NOT NULL,
		claim_id TEXT,
		topic TEXT,
		timestamp TEXT NOT NULL,

		pro_model TEXT NOT NULL,
		con_model TEXT NOT NULL,
		judge_model TEXT,

		turns INTEGER NOT NULL,
		pro_went_first INTEGER NOT NULL,

		gt_verdict TEXT,
		gt_source TEXT,
		gt_url TEXT,

		judge_verdict TEXT,
		judge_score INTEGER,
		judge_reasoning TEXT,

		full_data TEXT NOT NULL,

		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_topic ON experiments(topic);
	CREATE INDEX IF NOT EXISTS idx_judge_verdict ON experiments(judge_verdict);
	CREATE INDEX IF NOT EXISTS idx_judge_score ON experiments(judge_score);
	CREATE INDEX IF NOT EXISTS idx_timestamp ON experiments(timestamp);

	CREATE TABLE IF NOT EXISTS debate_turns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		experiment_id INTEGER NOT NULL,
		turn_number INTEGER NOT NULL,
		debater TEXT NOT NULL,
		argument TEXT NOT NULL,
		source_url TEXT NOT NULL,
		source_quote TEXT NOT NULL,
		refused INTEGER NOT NULL DEFAULT 0,
		refusal_reason TEXT,
		FOREIGN KEY (experiment_id) REFERENCES experiments(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_experiment_id ON debate_turns(experiment_id);

	-- No UNIQUE constraint: duplicate judgments from the same judge at the
	-- same cutoff are kept for consistency measurement.
	CREATE TABLE IF NOT EXISTS judgments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		experiment_id INTEGER NOT NULL,
		judge_model TEXT NOT NULL,
		turns_considered INTEGER NOT NULL,
		verdict TEXT NOT NULL,
		score INTEGER,
		reasoning TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		FOREIGN KEY (experiment_id) REFERENCES experiments(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_judgments_experiment ON judgments(experiment_id);
	CREATE INDEX IF NOT EXISTS idx_judgments_judge_model ON judgments(judge_model);
	CREATE INDEX IF NOT EXISTS idx_judgments_turns ON judgments(turns_considered);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Save implements ExperimentStore. The experiment row and its turn rows are
// written in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, record *models.DebateRecord) (int64, error) {
	fullData, err := json.Marshal(record)
	if err != nil {
		return 0, fmt.Errorf("failed to encode record: %w", err)
	}

	var claimID, topic, gtVerdict, gtSource, gtURL interface{}
	if record.Claim.ClaimID != "" {
		claimID = record.Claim.ClaimID
	}
	if record.Claim.Topic != "" {
		topic = record.Claim.Topic
	}
	if gt := record.GroundTruth; gt != nil {
		if gt.Verdict != "" {
			gtVerdict = gt.Verdict
		}
		if gt.Source != "" {
			gtSource = gt.Source
		}
		if gt.URL != "" {
			gtURL = gt.URL
		}
	}

	var judgeModel, judgeVerdict, judgeScore, judgeReasoning interface{}
	if record.Config.Models.Judge != "" {
		judgeModel = record.Config.Models.Judge
	}
	if dec := record.JudgeDecision; dec != nil {
		judgeVerdict = string(dec.Verdict)
		judgeReasoning = dec.Reasoning
		if dec.Score != nil {
			judgeScore = *dec.Score
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO experiments (
			claim, claim_id, topic, timestamp,
			pro_model, con_model, judge_model,
			turns, pro_went_first,
			gt_verdict, gt_source, gt_url,
			judge_verdict, judge_score, judge_reasoning,
			full_data
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.Claim.Text, claimID, topic, record.Config.Timestamp.Format(time.RFC3339),
		record.Config.Models.Pro, record.Config.Models.Con, judgeModel,
		record.Config.Turns, boolToInt(record.Config.ProWentFirst),
		gtVerdict, gtSource, gtURL,
		judgeVerdict, judgeScore, judgeReasoning,
		string(fullData),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert experiment: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read experiment id: %w", err)
	}

	for _, turn := range record.Transcript {
		var refusalReason interface{}
		if turn.RefusalReason != "" {
			refusalReason = turn.RefusalReason
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO debate_turns (
				experiment_id, turn_number, debater,
				argument, source_url, source_quote,
				refused, refusal_reason
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, turn.Turn, string(turn.Position),
			turn.Argument, turn.URL, turn.Quote,
			boolToInt(turn.Refused), refusalReason,
		); err != nil {
			return 0, fmt.Errorf("failed to insert debate turn: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit experiment: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"experiment_id": id,
		"claim":         record.Claim.Text,
		"entries":       len(record.Transcript),
	}).Debug("Experiment saved")

	return id, nil
}

// GetByID implements ExperimentStore. A missing id returns (nil, nil).
func (s *SQLiteStore) GetByID(ctx context.Context, id int64) (*models.DebateRecord, error) {
	var fullData string
	err := s.db.QueryRowContext(ctx, `SELECT full_data FROM experiments WHERE id = ?`, id).Scan(&fullData)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query experiment %d: %w", id, err)
	}

	var record models.DebateRecord
	if err := json.Unmarshal([]byte(fullData), &record); err != nil {
		return nil, fmt.Errorf("failed to decode experiment %d: %w", id, err)
	}
	return &record, nil
}

// Query implements ExperimentStore.
func (s *SQLiteStore) Query(ctx context.Context, filters Filters) ([]*models.DebateRecord, error) {
	var clauses []string
	var args []interface{}

	add := func(clause string, value interface{}) {
		clauses = append(clauses, clause)
		args = append(args, value)
	}

	if filters.Topic != "" {
		add("topic = ?", filters.Topic)
	}
	if filters.JudgeVerdict != "" {
		add("judge_verdict = ?", filters.JudgeVerdict)
	}
	if filters.MinScore != nil {
		add("judge_score >= ?", *filters.MinScore)
	}
	if filters.MaxScore != nil {
		add("judge_score <= ?", *filters.MaxScore)
	}
	if filters.ProModel != "" {
		add("pro_model = ?", filters.ProModel)
	}
	if filters.ConModel != "" {
		add("con_model = ?", filters.ConModel)
	}
	if filters.JudgeModel != "" {
		add("judge_model = ?", filters.JudgeModel)
	}
	if filters.GTVerdict != "" {
		add("gt_verdict = ?", filters.GTVerdict)
	}

	where := "1=1"
	if len(clauses) > 0 {
		where = strings.Join(clauses, " AND ")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT full_data FROM experiments WHERE `+where+` ORDER BY timestamp DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query experiments: %w", err)
	}
	defer rows.Close()

	var records []*models.DebateRecord
	for rows.Next() {
		var fullData string
		if err := rows.Scan(&fullData); err != nil {
			return nil, fmt.Errorf("failed to scan experiment row: %w", err)
		}
		var record models.DebateRecord
		if err := json.Unmarshal([]byte(fullData), &record); err != nil {
			return nil, fmt.Errorf("failed to decode experiment row: %w", err)
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating experiment rows: %w", err)
	}
	return records, nil
}

// SaveJudgment implements ExperimentStore. The existence check and the insert
// share one transaction so a concurrent delete cannot slip between them.
func (s *SQLiteStore) SaveJudgment(ctx context.Context, judgment *models.Judgment) (int64, error) {
	if err := models.ValidateDecision(judgment.Verdict, judgment.Score); err != nil {
		return 0, fmt.Errorf("invalid judgment: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM experiments WHERE id = ?`, judgment.ExperimentID).Scan(&exists)
	if err == sql.ErrNoRows {
		return 0, &ReferentialError{ExperimentID: judgment.ExperimentID}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to verify experiment %d: %w", judgment.ExperimentID, err)
	}

	timestamp := judgment.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	var score interface{}
	if judgment.Score != nil {
		score = *judgment.Score
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO judgments (
			experiment_id, judge_model, turns_considered,
			verdict, score, reasoning, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		judgment.ExperimentID, judgment.JudgeModel, judgment.TurnsConsidered,
		string(judgment.Verdict), score, judgment.Reasoning, timestamp.Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert judgment: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read judgment id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit judgment: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"judgment_id":      id,
		"experiment_id":    judgment.ExperimentID,
		"judge_model":      judgment.JudgeModel,
		"turns_considered": judgment.TurnsConsidered,
		"verdict":          judgment.Verdict,
	}).Debug("Judgment saved")

	return id, nil
}

// GetJudgments implements ExperimentStore.
func (s *SQLiteStore) GetJudgments(ctx context.Context, filters JudgmentFilters) ([]*models.Judgment, error) {
	var clauses []string
	var args []interface{}

	if filters.ExperimentID != nil {
		clauses = append(clauses, "experiment_id = ?")
		args = append(args, *filters.ExperimentID)
	}
	if filters.JudgeModel != "" {
		clauses = append(clauses, "judge_model = ?")
		args = append(args, filters.JudgeModel)
	}
	if filters.TurnsConsidered != nil {
		clauses = append(clauses, "turns_considered = ?")
		args = append(args, *filters.TurnsConsidered)
	}

	where := "1=1"
	if len(clauses) > 0 {
		where = strings.Join(clauses, " AND ")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, experiment_id, judge_model, turns_considered,
		       verdict, score, reasoning, timestamp
		FROM judgments
		WHERE `+where+`
		ORDER BY experiment_id, judge_model, turns_considered`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query judgments: %w", err)
	}
	defer rows.Close()

	var judgments []*models.Judgment
	for rows.Next() {
		var j models.Judgment
		var verdict, timestamp string
		var score sql.NullInt64
		if err := rows.Scan(&j.ID, &j.ExperimentID, &j.JudgeModel, &j.TurnsConsidered,
			&verdict, &score, &j.Reasoning, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan judgment row: %w", err)
		}
		j.Verdict = models.Verdict(verdict)
		if score.Valid {
			v := int(score.Int64)
			j.Score = &v
		}
		if ts, err := time.Parse(time.RFC3339, timestamp); err == nil {
			j.Timestamp = ts
		}
		judgments = append(judgments, &j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating judgment rows: %w", err)
	}
	return judgments, nil
}

// Stats returns aggregate statistics over the experiments table.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		ByVerdict: map[string]int{},
		ByTopic:   map[string]int{},
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM experiments`).Scan(&stats.TotalExperiments); err != nil {
		return nil, fmt.Errorf("failed to count experiments: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT judge_verdict, COUNT(*) FROM experiments
		WHERE judge_verdict IS NOT NULL GROUP BY judge_verdict`)
	if err != nil {
		return nil, fmt.Errorf("failed to count by verdict: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var verdict string
		var count int
		if err := rows.Scan(&verdict, &count); err != nil {
			return nil, err
		}
		stats.ByVerdict[verdict] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	topicRows, err := s.db.QueryContext(ctx, `
		SELECT topic, COUNT(*) FROM experiments
		WHERE topic IS NOT NULL GROUP BY topic`)
	if err != nil {
		return nil, fmt.Errorf("failed to count by topic: %w", err)
	}
	defer topicRows.Close()
	for topicRows.Next() {
		var topic string
		var count int
		if err := topicRows.Scan(&topic, &count); err != nil {
			return nil, err
		}
		stats.ByTopic[topic] = count
	}
	if err := topicRows.Err(); err != nil {
		return nil, err
	}

	var avg sql.NullFloat64
	if err := s.db.QueryRowContext(ctx,
		`SELECT AVG(judge_score) FROM experiments WHERE judge_score IS NOT NULL`).Scan(&avg); err != nil {
		return nil, fmt.Errorf("failed to average scores: %w", err)
	}
	if avg.Valid {
		stats.AverageScore = &avg.Float64
	}

	return stats, nil
}

// JudgmentStats returns aggregate statistics over the judgments table,
// optionally scoped to one experiment. The perfect-agreement rate counts
// (experiment, cutoff) groups with more than one judgment whose verdicts all
// agree.
func (s *SQLiteStore) JudgmentStats(ctx context.Context, experimentID *int64) (*JudgmentStats, error) {
	stats := &JudgmentStats{
		ByJudgeModel:      map[string]int{},
		ByTurnsConsidered: map[int]int{},
	}

	where := ""
	var args []interface{}
	if experimentID != nil {
		where = " WHERE experiment_id = ?"
		args = append(args, *experimentID)
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM judgments`+where, args...).Scan(&stats.TotalJudgments); err != nil {
		return nil, fmt.Errorf("failed to count judgments: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT judge_model, COUNT(*) FROM judgments`+where+` GROUP BY judge_model`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count by judge: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var judge string
		var count int
		if err := rows.Scan(&judge, &count); err != nil {
			return nil, err
		}
		stats.ByJudgeModel[judge] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	turnRows, err := s.db.QueryContext(ctx,
		`SELECT turns_considered, COUNT(*) FROM judgments`+where+` GROUP BY turns_considered`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count by turns: %w", err)
	}
	defer turnRows.Close()
	for turnRows.Next() {
		var turns, count int
		if err := turnRows.Scan(&turns, &count); err != nil {
			return nil, err
		}
		stats.ByTurnsConsidered[turns] = count
	}
	if err := turnRows.Err(); err != nil {
		return nil, err
	}

	if experimentID == nil {
		agreementRows, err := s.db.QueryContext(ctx, `
			SELECT COUNT(DISTINCT verdict) FROM judgments
			GROUP BY experiment_id, turns_considered
			HAVING COUNT(*) > 1`)
		if err != nil {
			return nil, fmt.Errorf("failed to compute agreement: %w", err)
		}
		defer agreementRows.Close()

		perfect, total := 0, 0
		for agreementRows.Next() {
			var distinct int
			if err := agreementRows.Scan(&distinct); err != nil {
				return nil, err
			}
			total++
			if distinct == 1 {
				perfect++
			}
		}
		if err := agreementRows.Err(); err != nil {
			return nil, err
		}
		if total > 0 {
			rate := float64(perfect) / float64(total)
			stats.PerfectAgreementRate = &rate
		}
	}

	return stats, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
