package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/citylibrary/loan-service/internal/core/domain"
)

var (
	loanDate   = time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)
	returnDate = loanDate.Add(72 * time.Hour)
)

func loanDoc(id, status string, returned *time.Time) bson.D {
	doc := bson.D{
		{Key: "_id", Value: id},
		{Key: "book_id", Value: "10"},
		{Key: "user_id", Value: "20"},
		{Key: "loan_date", Value: loanDate},
		{Key: "status", Value: status},
	}
	if returned != nil {
		doc = append(doc, bson.E{Key: "return_date", Value: *returned})
	} else {
		doc = append(doc, bson.E{Key: "return_date", Value: nil})
	}
	return doc
}

func cursor(docs ...bson.D) bson.D {
	return mtest.CreateCursorResponse(0, "library_loans.loans", mtest.FirstBatch, docs...)
}

func TestLoanRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("create assigns an id", func(mt *mtest.T) {
		repo := NewLoanRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		got, err := repo.Create(ctx, domain.NewLoan("10", "20", loanDate))
		require.NoError(mt, err)
		assert.NotEmpty(mt, got.ID)
		assert.Equal(mt, domain.StatusBorrowed, got.Status)
		assert.Nil(mt, got.ReturnDate)
	})

	mt.Run("create maps duplicate key to duplicate borrow", func(mt *mtest.T) {
		repo := NewLoanRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: library_loans.loans index: " + openLoanIndex,
		}))

		_, err := repo.Create(ctx, domain.NewLoan("10", "20", loanDate))
		assert.ErrorIs(mt, err, domain.ErrDuplicateBorrow)
	})

	mt.Run("get decodes the document", func(mt *mtest.T) {
		repo := NewLoanRepository(mt.DB)
		mt.AddMockResponses(cursor(loanDoc("abc", "RETURNED", &returnDate)))

		got, err := repo.Get(ctx, "abc")
		require.NoError(mt, err)
		assert.Equal(mt, "abc", got.ID)
		assert.Equal(mt, domain.StatusReturned, got.Status)
		require.NotNil(mt, got.ReturnDate)
		assert.True(mt, got.ReturnDate.Equal(returnDate))
		assert.True(mt, got.Consistent())
	})

	mt.Run("get missing", func(mt *mtest.T) {
		repo := NewLoanRepository(mt.DB)
		mt.AddMockResponses(cursor())

		_, err := repo.Get(ctx, "nope")
		assert.ErrorIs(mt, err, domain.ErrLoanNotFound)
	})

	mt.Run("update open loan", func(mt *mtest.T) {
		repo := NewLoanRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		loan := &domain.Loan{ID: "abc", BookID: "10", UserID: "20", LoanDate: loanDate, Status: domain.StatusBorrowed}
		require.NoError(mt, loan.MarkReturned(returnDate))

		got, err := repo.Update(ctx, loan)
		require.NoError(mt, err)
		assert.Equal(mt, domain.StatusReturned, got.Status)
	})

	mt.Run("update loses the race to another return", func(mt *mtest.T) {
		repo := NewLoanRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			cursor(loanDoc("abc", "RETURNED", &returnDate)),
		)

		loan := &domain.Loan{ID: "abc", BookID: "10", UserID: "20", LoanDate: loanDate, Status: domain.StatusBorrowed}
		require.NoError(mt, loan.MarkReturned(returnDate))

		_, err := repo.Update(ctx, loan)
		assert.ErrorIs(mt, err, domain.ErrAlreadyReturned)
	})

	mt.Run("update missing loan", func(mt *mtest.T) {
		repo := NewLoanRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			cursor(),
		)

		loan := &domain.Loan{ID: "gone", BookID: "10", UserID: "20", LoanDate: loanDate, Status: domain.StatusBorrowed}
		require.NoError(mt, loan.MarkReturned(returnDate))

		_, err := repo.Update(ctx, loan)
		assert.ErrorIs(mt, err, domain.ErrLoanNotFound)
	})

	mt.Run("list", func(mt *mtest.T) {
		repo := NewLoanRepository(mt.DB)
		mt.AddMockResponses(cursor(
			loanDoc("a", "BORROWED", nil),
			loanDoc("b", "RETURNED", &returnDate),
		))

		got, err := repo.List(ctx)
		require.NoError(mt, err)
		require.Len(mt, got, 2)
		assert.Equal(mt, "a", got[0].ID)
		assert.Nil(mt, got[0].ReturnDate)
		assert.Equal(mt, "b", got[1].ID)
	})

	mt.Run("find open loan", func(mt *mtest.T) {
		repo := NewLoanRepository(mt.DB)
		mt.AddMockResponses(cursor(loanDoc("a", "BORROWED", nil)))

		got, err := repo.FindOpenLoan(ctx, "10", "20")
		require.NoError(mt, err)
		assert.True(mt, got.IsOpen())
	})

	mt.Run("find open loan none", func(mt *mtest.T) {
		repo := NewLoanRepository(mt.DB)
		mt.AddMockResponses(cursor())

		_, err := repo.FindOpenLoan(ctx, "10", "20")
		assert.ErrorIs(mt, err, domain.ErrLoanNotFound)
	})
}

func TestAdjustmentRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("record", func(mt *mtest.T) {
		repo := NewAdjustmentRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		err := repo.Record(ctx, &domain.PendingAdjustment{
			LoanID: "abc", BookID: "10", Delta: domain.BorrowDelta, Reason: "timeout", RecordedAt: loanDate,
		})
		require.NoError(mt, err)
	})

	mt.Run("list pending", func(mt *mtest.T) {
		repo := NewAdjustmentRepository(mt.DB)
		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "library_loans.pending_adjustments", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: oid},
			{Key: "loan_id", Value: "abc"},
			{Key: "book_id", Value: "10"},
			{Key: "delta", Value: 1},
			{Key: "reason", Value: "inventory adjust_availability: unexpected status 503"},
			{Key: "recorded_at", Value: loanDate},
		}))

		got, err := repo.ListPending(ctx)
		require.NoError(mt, err)
		require.Len(mt, got, 1)
		assert.Equal(mt, oid.Hex(), got[0].ID)
		assert.Equal(mt, "increment", got[0].Direction())
		assert.True(mt, got[0].RecordedAt.Equal(loanDate))
	})
}
