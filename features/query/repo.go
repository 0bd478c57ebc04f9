package query

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"knowhub/internal/apperr"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, rec *Record) error {
	query := `INSERT INTO query_history (question, answer, context_documents) VALUES ($1, $2, $3) RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, rec.Question, rec.Answer, pq.Array(rec.ContextDocuments)).
		Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: append history: %v", apperr.ErrStorage, err)
	}
	return nil
}

func (r *PostgresRepo) Recent(ctx context.Context, limit int) ([]Record, error) {
	query := `SELECT id, question, answer, context_documents, created_at
	          FROM query_history ORDER BY created_at DESC, id DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: read history: %v", apperr.ErrStorage, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Question, &rec.Answer, pq.Array(&rec.ContextDocuments), &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan history: %v", apperr.ErrStorage, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read history: %v", apperr.ErrStorage, err)
	}
	return records, nil
}
