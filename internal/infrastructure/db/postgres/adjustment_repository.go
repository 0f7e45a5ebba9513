package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/doug-martin/goqu/v9"

	"github.com/citylibrary/loan-service/internal/core/domain"
)

type AdjustmentRepository struct {
	db querier
}

func NewAdjustmentRepository(db querier) *AdjustmentRepository {
	return &AdjustmentRepository{db: db}
}

func (r *AdjustmentRepository) Record(ctx context.Context, adj *domain.PendingAdjustment) error {
	query, args, err := insertAdjustmentSQL(adj)
	if err != nil {
		return fmt.Errorf("build insert adjustment: %w", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert pending adjustment: %w", err)
	}
	return nil
}

func (r *AdjustmentRepository) ListPending(ctx context.Context) ([]*domain.PendingAdjustment, error) {
	query, args, err := selectAdjustmentsSQL()
	if err != nil {
		return nil, fmt.Errorf("build list adjustments: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pending adjustments: %w", err)
	}
	defer rows.Close()

	var out []*domain.PendingAdjustment
	for rows.Next() {
		var (
			id  int64
			adj domain.PendingAdjustment
		)
		if err := rows.Scan(&id, &adj.LoanID, &adj.BookID, &adj.Delta, &adj.Reason, &adj.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan pending adjustment: %w", err)
		}
		adj.ID = strconv.FormatInt(id, 10)
		adj.RecordedAt = adj.RecordedAt.UTC()
		out = append(out, &adj)
	}
	return out, rows.Err()
}

func insertAdjustmentSQL(adj *domain.PendingAdjustment) (string, []any, error) {
	return dialect.Insert(tableAdjustments).
		Rows(goqu.Record{
			"loan_id":     adj.LoanID,
			"book_id":     adj.BookID,
			"delta":       adj.Delta,
			"reason":      adj.Reason,
			"recorded_at": adj.RecordedAt.UTC(),
		}).
		Prepared(true).
		ToSQL()
}

func selectAdjustmentsSQL() (string, []any, error) {
	return dialect.From(tableAdjustments).
		Select("id", "loan_id", "book_id", "delta", "reason", "recorded_at").
		Order(goqu.C("recorded_at").Asc(), goqu.C("id").Asc()).
		Prepared(true).
		ToSQL()
}
