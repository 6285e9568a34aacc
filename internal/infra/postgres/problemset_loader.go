package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"math-challenge-service/internal/domain"
)

// ProblemSetLoader loads problem-set JSONB from Postgres.
type ProblemSetLoader struct {
	pool *pgxpool.Pool
}

func NewProblemSetLoader(pool *pgxpool.Pool) *ProblemSetLoader {
	return &ProblemSetLoader{pool: pool}
}

func (l *ProblemSetLoader) LoadProblemSet(ctx context.Context, id string) (domain.ProblemSet, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM problem_sets WHERE id=$1`, id).Scan(&raw)
	if err != nil {
		return domain.ProblemSet{}, fmt.Errorf("load problem set: %w", err)
	}
	var set domain.ProblemSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return domain.ProblemSet{}, fmt.Errorf("unmarshal problem set: %w", err)
	}
	return set, nil
}
