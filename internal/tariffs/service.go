package tariffs

import (
	"context"
	"errors"
	"strings"

	"github.com/scolaria/scolaria/internal/shared"
)

// RepositoryPort defines data access methods for the tariff catalog.
type RepositoryPort interface {
	CreateTranche(ctx context.Context, input TrancheInput) (*Tranche, error)
	UpdateTranche(ctx context.Context, id int64, input TrancheInput) error
	GetTranche(ctx context.Context, id int64) (*Tranche, error)
	ListTranches(ctx context.Context) ([]Tranche, error)
	UpsertTariff(ctx context.Context, input TariffInput) (*TariffEntry, error)
	FindTariff(ctx context.Context, classID, trancheID int64) (*TariffEntry, error)
	ListTariffsByClass(ctx context.Context, classID int64) ([]TariffEntry, error)
	DeleteTariff(ctx context.Context, id int64) error
}

// Service handles tariff catalog business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// CreateTranche registers a new tranche of the fee schedule.
func (s *Service) CreateTranche(ctx context.Context, input TrancheInput) (*Tranche, error) {
	if err := validateTranche(input); err != nil {
		return nil, err
	}
	return s.repo.CreateTranche(ctx, input)
}

// UpdateTranche edits an existing tranche.
func (s *Service) UpdateTranche(ctx context.Context, id int64, input TrancheInput) error {
	if id <= 0 {
		return errors.New("invalid tranche ID")
	}
	if err := validateTranche(input); err != nil {
		return err
	}
	return s.repo.UpdateTranche(ctx, id, input)
}

// GetTranche returns one tranche.
func (s *Service) GetTranche(ctx context.Context, id int64) (*Tranche, error) {
	if id <= 0 {
		return nil, errors.New("invalid tranche ID")
	}
	return s.repo.GetTranche(ctx, id)
}

// ListTranches returns all tranches in schedule order.
func (s *Service) ListTranches(ctx context.Context) ([]Tranche, error) {
	return s.repo.ListTranches(ctx)
}

// SetTariff creates or replaces the tariff for a (class, tranche) pair.
func (s *Service) SetTariff(ctx context.Context, input TariffInput) (*TariffEntry, error) {
	if input.ClassID <= 0 {
		return nil, errors.New("class ID required")
	}
	if input.TrancheID <= 0 {
		return nil, errors.New("tranche ID required")
	}
	if input.NewStudentAmount < 0 || input.ReturningStudentAmount < 0 {
		return nil, errors.New("tariff amounts must not be negative")
	}
	return s.repo.UpsertTariff(ctx, input)
}

// ListTariffsByClass returns the configured tariffs of a class.
func (s *Service) ListTariffsByClass(ctx context.Context, classID int64) ([]TariffEntry, error) {
	if classID <= 0 {
		return nil, errors.New("class ID required")
	}
	return s.repo.ListTariffsByClass(ctx, classID)
}

// DeleteTariff removes a tariff entry.
func (s *Service) DeleteTariff(ctx context.Context, id int64) error {
	if id <= 0 {
		return errors.New("invalid tariff ID")
	}
	return s.repo.DeleteTariff(ctx, id)
}

// BaseAmount resolves the amount owed for one tranche. Default-amount
// tranches cost the same for every class. A tranche with no tariff entry
// for the class is silently not applicable and costs zero, not an error.
func (s *Service) BaseAmount(ctx context.Context, classID, trancheID int64, isNew bool) (int64, error) {
	tranche, err := s.repo.GetTranche(ctx, trancheID)
	if err != nil {
		return 0, err
	}
	if tranche.UsesDefaultAmount {
		return tranche.DefaultAmount, nil
	}
	entry, err := s.repo.FindTariff(ctx, classID, trancheID)
	if errors.Is(err, shared.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if isNew {
		return entry.NewStudentAmount, nil
	}
	return entry.ReturningStudentAmount, nil
}

func validateTranche(input TrancheInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return errors.New("tranche name is required")
	}
	if input.UsesDefaultAmount && input.DefaultAmount < 0 {
		return errors.New("default amount must not be negative")
	}
	return nil
}
