package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/citylibrary/loan-service/internal/core/domain"
)

const (
	collectionLoans = "loans"
	openLoanIndex   = "uniq_open_loan_per_book_user"
)

// mongoLoan is the stored shape of a loan.
type mongoLoan struct {
	ID         string     `bson:"_id"`
	BookID     string     `bson:"book_id"`
	UserID     string     `bson:"user_id"`
	LoanDate   time.Time  `bson:"loan_date"`
	ReturnDate *time.Time `bson:"return_date"`
	Status     string     `bson:"status"`
}

func toDoc(l *domain.Loan) mongoLoan {
	doc := mongoLoan{
		ID:       l.ID,
		BookID:   l.BookID,
		UserID:   l.UserID,
		LoanDate: l.LoanDate.UTC(),
		Status:   string(l.Status),
	}
	if l.ReturnDate != nil {
		rd := l.ReturnDate.UTC()
		doc.ReturnDate = &rd
	}
	return doc
}

func (d mongoLoan) toDomain() *domain.Loan {
	l := &domain.Loan{
		ID:       d.ID,
		BookID:   d.BookID,
		UserID:   d.UserID,
		LoanDate: d.LoanDate.UTC(),
		Status:   domain.LoanStatus(d.Status),
	}
	if d.ReturnDate != nil {
		rd := d.ReturnDate.UTC()
		l.ReturnDate = &rd
	}
	return l
}

type LoanRepository struct {
	col *mongo.Collection
}

func NewLoanRepository(db *mongo.Database) *LoanRepository {
	return &LoanRepository{col: db.Collection(collectionLoans)}
}

// Create inserts a new loan document under a fresh UUID.
func (r *LoanRepository) Create(ctx context.Context, l *domain.Loan) (*domain.Loan, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toDoc(l)
	doc.ID = uuid.NewString()

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateBorrow
		}
		return nil, fmt.Errorf("insert loan: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *LoanRepository) Get(ctx context.Context, id string) (*domain.Loan, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return r.findOne(ctx, bson.M{"_id": id})
}

// Update replaces the loan document only while it is still BORROWED.
func (r *LoanRepository) Update(ctx context.Context, l *domain.Loan) (*domain.Loan, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toDoc(l)
	filter := bson.M{"_id": l.ID, "status": string(domain.StatusBorrowed)}

	res, err := r.col.ReplaceOne(ctx, filter, doc)
	if err != nil {
		return nil, fmt.Errorf("update loan: %w", err)
	}
	if res.MatchedCount == 0 {
		// Distinguish a concurrent return from a vanished record.
		if _, getErr := r.findOne(ctx, bson.M{"_id": l.ID}); getErr != nil {
			return nil, getErr
		}
		return nil, domain.ErrAlreadyReturned
	}
	return doc.toDomain(), nil
}

// List returns all loans ordered by loan date.
func (r *LoanRepository) List(ctx context.Context) ([]*domain.Loan, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "loan_date", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoLoan
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode loans: %w", err)
	}

	out := make([]*domain.Loan, len(docs))
	for i, d := range docs {
		out[i] = d.toDomain()
	}
	return out, nil
}

func (r *LoanRepository) FindOpenLoan(ctx context.Context, bookID, userID string) (*domain.Loan, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return r.findOne(ctx, bson.M{
		"book_id": bookID,
		"user_id": userID,
		"status":  string(domain.StatusBorrowed),
	})
}

func (r *LoanRepository) findOne(ctx context.Context, filter bson.M) (*domain.Loan, error) {
	var doc mongoLoan
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrLoanNotFound
		}
		return nil, fmt.Errorf("find loan: %w", err)
	}
	return doc.toDomain(), nil
}

// EnsureIndexes creates the lookup index and the partial unique index that
// allows a single BORROWED loan per (book_id, user_id).
func (r *LoanRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "book_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().
				SetName(openLoanIndex).
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": string(domain.StatusBorrowed)}),
		},
		{Keys: bson.D{{Key: "loan_date", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
