package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/citylibrary/loan-service/internal/core/domain"
)

const collectionAdjustments = "pending_adjustments"

type mongoAdjustment struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	LoanID     string             `bson:"loan_id"`
	BookID     string             `bson:"book_id"`
	Delta      int                `bson:"delta"`
	Reason     string             `bson:"reason"`
	RecordedAt time.Time          `bson:"recorded_at"`
}

// AdjustmentRepository persists inventory adjustments that were not applied.
type AdjustmentRepository struct {
	col *mongo.Collection
}

func NewAdjustmentRepository(db *mongo.Database) *AdjustmentRepository {
	return &AdjustmentRepository{col: db.Collection(collectionAdjustments)}
}

func (r *AdjustmentRepository) Record(ctx context.Context, adj *domain.PendingAdjustment) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoAdjustment{
		LoanID:     adj.LoanID,
		BookID:     adj.BookID,
		Delta:      adj.Delta,
		Reason:     adj.Reason,
		RecordedAt: adj.RecordedAt.UTC(),
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert pending adjustment: %w", err)
	}
	return nil
}

// ListPending returns recorded adjustments, oldest first.
func (r *AdjustmentRepository) ListPending(ctx context.Context) ([]*domain.PendingAdjustment, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "recorded_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list pending adjustments: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoAdjustment
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode pending adjustments: %w", err)
	}

	out := make([]*domain.PendingAdjustment, len(docs))
	for i, d := range docs {
		out[i] = &domain.PendingAdjustment{
			ID:         d.ID.Hex(),
			LoanID:     d.LoanID,
			BookID:     d.BookID,
			Delta:      d.Delta,
			Reason:     d.Reason,
			RecordedAt: d.RecordedAt.UTC(),
		}
	}
	return out, nil
}
