package main

import (
	"context"
	"fmt"

	"github.com/citylibrary/loan-service/internal/api/handler"
	"github.com/citylibrary/loan-service/internal/core/ports"
	"github.com/citylibrary/loan-service/internal/infrastructure/config"
	"github.com/citylibrary/loan-service/internal/infrastructure/db/memory"
	"github.com/citylibrary/loan-service/internal/infrastructure/db/mongo"
	"github.com/citylibrary/loan-service/internal/infrastructure/db/postgres"
)

// loanStore is the storage backend chosen by STORE_DRIVER.
type loanStore struct {
	loans       ports.LoanRepository
	adjustments ports.AdjustmentRepository
	health      *handler.DependencyCheck
	close       func(context.Context) error
}

func openStore(ctx context.Context, cfg *config.Config) (*loanStore, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		s, err := mongo.Open(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		return &loanStore{
			loans:       s.Loans,
			adjustments: s.Adjustments,
			health:      &handler.DependencyCheck{Name: "mongodb", Ping: s.Ping},
			close:       s.Close,
		}, nil

	case config.DriverPostgres:
		s, err := postgres.Open(ctx, postgres.Config{URL: cfg.Postgres.URL})
		if err != nil {
			return nil, err
		}
		return &loanStore{
			loans:       s.Loans,
			adjustments: s.Adjustments,
			health:      &handler.DependencyCheck{Name: "postgres", Ping: s.Ping},
			close:       s.Close,
		}, nil

	case config.DriverMemory:
		return &loanStore{
			loans:       memory.NewLoanRepository(),
			adjustments: memory.NewAdjustmentRepository(),
			close:       func(context.Context) error { return nil },
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
