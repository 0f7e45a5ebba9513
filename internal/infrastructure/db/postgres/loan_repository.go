package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/citylibrary/loan-service/internal/core/domain"
)

const (
	colID         = "id"
	colBookID     = "book_id"
	colUserID     = "user_id"
	colLoanDate   = "loan_date"
	colReturnDate = "return_date"
	colStatus     = "status"
)

var loanColumns = []any{colID, colBookID, colUserID, colLoanDate, colReturnDate, colStatus}

type LoanRepository struct {
	db querier
}

func NewLoanRepository(db querier) *LoanRepository {
	return &LoanRepository{db: db}
}

func (r *LoanRepository) Create(ctx context.Context, l *domain.Loan) (*domain.Loan, error) {
	query, args, err := insertLoanSQL(l)
	if err != nil {
		return nil, fmt.Errorf("build insert loan: %w", err)
	}

	var id int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateBorrow
		}
		return nil, fmt.Errorf("insert loan: %w", err)
	}

	created := l.Clone()
	created.ID = strconv.FormatInt(id, 10)
	return created, nil
}

func (r *LoanRepository) Get(ctx context.Context, id string) (*domain.Loan, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, domain.ErrLoanNotFound
	}
	query, args, err := selectLoansSQL(goqu.Ex{colID: n})
	if err != nil {
		return nil, fmt.Errorf("build select loan: %w", err)
	}
	return r.queryOne(ctx, query, args)
}

// Update writes the return only while the row is still BORROWED.
func (r *LoanRepository) Update(ctx context.Context, l *domain.Loan) (*domain.Loan, error) {
	n, err := strconv.ParseInt(l.ID, 10, 64)
	if err != nil {
		return nil, domain.ErrLoanNotFound
	}
	query, args, err := updateLoanSQL(n, l)
	if err != nil {
		return nil, fmt.Errorf("build update loan: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update loan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := r.Get(ctx, l.ID); getErr != nil {
			return nil, getErr
		}
		return nil, domain.ErrAlreadyReturned
	}
	return l.Clone(), nil
}

func (r *LoanRepository) List(ctx context.Context) ([]*domain.Loan, error) {
	query, args, err := selectLoansSQL(nil)
	if err != nil {
		return nil, fmt.Errorf("build list loans: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	defer rows.Close()

	var out []*domain.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	return out, nil
}

func (r *LoanRepository) FindOpenLoan(ctx context.Context, bookID, userID string) (*domain.Loan, error) {
	query, args, err := selectLoansSQL(goqu.Ex{
		colBookID: bookID,
		colUserID: userID,
		colStatus: string(domain.StatusBorrowed),
	})
	if err != nil {
		return nil, fmt.Errorf("build find open loan: %w", err)
	}
	return r.queryOne(ctx, query, args)
}

func (r *LoanRepository) queryOne(ctx context.Context, query string, args []any) (*domain.Loan, error) {
	l, err := scanLoan(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrLoanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select loan: %w", err)
	}
	return l, nil
}

func scanLoan(row pgx.Row) (*domain.Loan, error) {
	var (
		id         int64
		l          domain.Loan
		returnDate *time.Time
		status     string
	)
	if err := row.Scan(&id, &l.BookID, &l.UserID, &l.LoanDate, &returnDate, &status); err != nil {
		return nil, err
	}
	l.ID = strconv.FormatInt(id, 10)
	l.LoanDate = l.LoanDate.UTC()
	if returnDate != nil {
		rd := returnDate.UTC()
		l.ReturnDate = &rd
	}
	l.Status = domain.LoanStatus(status)
	return &l, nil
}

func insertLoanSQL(l *domain.Loan) (string, []any, error) {
	return dialect.Insert(tableLoans).
		Rows(goqu.Record{
			colBookID:     l.BookID,
			colUserID:     l.UserID,
			colLoanDate:   l.LoanDate.UTC(),
			colReturnDate: nullableTime(l.ReturnDate),
			colStatus:     string(l.Status),
		}).
		Returning(goqu.C(colID)).
		Prepared(true).
		ToSQL()
}

func updateLoanSQL(id int64, l *domain.Loan) (string, []any, error) {
	return dialect.Update(tableLoans).
		Set(goqu.Record{
			colReturnDate: nullableTime(l.ReturnDate),
			colStatus:     string(l.Status),
		}).
		Where(goqu.Ex{colID: id, colStatus: string(domain.StatusBorrowed)}).
		Prepared(true).
		ToSQL()
}

// selectLoansSQL builds a loan query ordered by loan date; a nil filter selects all rows.
func selectLoansSQL(filter goqu.Ex) (string, []any, error) {
	ds := dialect.From(tableLoans).
		Select(loanColumns...).
		Order(goqu.C(colLoanDate).Asc(), goqu.C(colID).Asc())
	if filter != nil {
		ds = ds.Where(filter)
	}
	return ds.Prepared(true).ToSQL()
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}
