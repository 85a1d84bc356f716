package postgres

import (
	"context"
	"fmt"

	"memedesk/internal/domain"
	"memedesk/internal/storage"
)

// AppendTradeScore appends a score to a trade's history.
// Returns ErrMissingReference if the trade does not exist.
func (r *repo) AppendTradeScore(ctx context.Context, tradeID string, score int) (*domain.Score, error) {
	query := `
		INSERT INTO trade_scoring (trade_id, intuition_score)
		VALUES ($1, $2)
		RETURNING id, scored_ts
	`
	return r.appendScore(ctx, query, score, tradeID, score)
}

// AppendTipScore appends a score to a tip's history.
// Returns ErrMissingReference if the tip does not exist.
func (r *repo) AppendTipScore(ctx context.Context, tipID int64, score int) (*domain.Score, error) {
	query := `
		INSERT INTO tip_scoring (tip_id, intuition_score)
		VALUES ($1, $2)
		RETURNING id, scored_ts
	`
	return r.appendScore(ctx, query, score, tipID, score)
}

// AppendCoinScore appends a coin-level score.
// Returns ErrMissingReference if the coin does not exist.
func (r *repo) AppendCoinScore(ctx context.Context, key domain.CoinKey, score int) (*domain.Score, error) {
	query := `
		INSERT INTO scoring (ca, chain, intuition_score)
		VALUES ($1, $2, $3)
		RETURNING id, scored_ts
	`
	s, err := r.appendScore(ctx, query, score, key.CA, key.Chain, score)
	if err != nil {
		return nil, err
	}
	s.CA, s.Chain = key.CA, key.Chain
	return s, nil
}

func (r *repo) appendScore(ctx context.Context, query string, score int, args ...any) (*domain.Score, error) {
	s := &domain.Score{IntuitionScore: score}
	if err := r.q.QueryRow(ctx, query, args...).Scan(&s.ID, &s.ScoredTS); err != nil {
		if isMissingReferenceError(err) {
			return nil, storage.ErrMissingReference
		}
		return nil, fmt.Errorf("insert score: %w", err)
	}
	return s, nil
}

// LatestTradeScores returns the current score of each trade that has one.
func (r *repo) LatestTradeScores(ctx context.Context, tradeIDs []string) (map[string]*domain.Score, error) {
	return latestScores(ctx, r.q, "trade_scoring", "trade_id", tradeIDs)
}

// LatestTipScores returns the current score of each tip that has one.
func (r *repo) LatestTipScores(ctx context.Context, tipIDs []int64) (map[int64]*domain.Score, error) {
	return latestScores(ctx, r.q, "tip_scoring", "tip_id", tipIDs)
}

func latestScores[K comparable](ctx context.Context, q querier, table, col string, ids []K) (map[K]*domain.Score, error) {
	out := make(map[K]*domain.Score, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query := fmt.Sprintf(`
		SELECT DISTINCT ON (%[1]s) %[1]s, id, intuition_score, scored_ts
		FROM %[2]s
		WHERE %[1]s = ANY($1)
		ORDER BY %[1]s, scored_ts DESC, id DESC
	`, col, table)

	rows, err := q.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get latest %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    K
			s     domain.Score
			score int16
		)
		if err := rows.Scan(&id, &s.ID, &score, &s.ScoredTS); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		s.IntuitionScore = int(score)
		out[id] = &s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return out, nil
}

// ListCoinScores returns coin-level scores, newest first.
func (r *repo) ListCoinScores(ctx context.Context, f storage.ScoreFilter) ([]*domain.Score, error) {
	var w filter
	if f.CA != "" {
		w.where("ca = " + w.arg(f.CA))
	}
	if f.Chain != "" {
		w.where("chain = " + w.arg(f.Chain))
	}

	query := fmt.Sprintf(`
		SELECT id, ca, chain, intuition_score, scored_ts
		FROM scoring
		%s
		ORDER BY scored_ts DESC, id DESC
		LIMIT %s
	`, w.clause(), w.arg(f.Limit))

	rows, err := r.q.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list coin scores: %w", err)
	}
	defer rows.Close()

	var scores []*domain.Score
	for rows.Next() {
		var (
			s     domain.Score
			score int16
		)
		if err := rows.Scan(&s.ID, &s.CA, &s.Chain, &score, &s.ScoredTS); err != nil {
			return nil, fmt.Errorf("scan coin score: %w", err)
		}
		s.IntuitionScore = int(score)
		scores = append(scores, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coin scores: %w", err)
	}
	return scores, nil
}
