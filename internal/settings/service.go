package settings

import (
	"context"
	"errors"

	"github.com/aoiro-ledger/aoiro-ledger/internal/shared"
)

// RepositoryPort persists opening balances keyed by fiscal year.
type RepositoryPort interface {
	GetOpeningBalances(ctx context.Context, year int) (OpeningBalances, error)
	UpsertOpeningBalances(ctx context.Context, balances OpeningBalances) error
}

// Service reads and merge-updates opening balances.
type Service struct {
	repo RepositoryPort
}

func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// OpeningBalances returns the stored record, zeroes when unset.
func (s *Service) OpeningBalances(ctx context.Context, year int) (OpeningBalances, error) {
	balances, err := s.repo.GetOpeningBalances(ctx, year)
	if errors.Is(err, shared.ErrNotFound) {
		return OpeningBalances{Year: year}, nil
	}
	return balances, err
}

// UpdateOpeningBalances merges the patch into the stored record. Fields
// omitted from the patch keep their current values.
func (s *Service) UpdateOpeningBalances(ctx context.Context, year int, patch OpeningBalancesPatch) (OpeningBalances, error) {
	if year <= 0 {
		return OpeningBalances{}, shared.Invalid("year", "must be positive")
	}
	current, err := s.OpeningBalances(ctx, year)
	if err != nil {
		return OpeningBalances{}, err
	}
	next := patch.apply(current)
	next.Year = year
	if err := s.repo.UpsertOpeningBalances(ctx, next); err != nil {
		return OpeningBalances{}, err
	}
	return next, nil
}
