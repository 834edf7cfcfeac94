package tariffs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/scolaria/scolaria/internal/shared"
)

type memoryTariffRepo struct {
	tranches      map[int64]*Tranche
	tariffs       map[int64]*TariffEntry
	nextTrancheID int64
	nextTariffID  int64
}

func newMemoryTariffRepo() *memoryTariffRepo {
	return &memoryTariffRepo{
		tranches: make(map[int64]*Tranche),
		tariffs:  make(map[int64]*TariffEntry),
	}
}

func (r *memoryTariffRepo) CreateTranche(ctx context.Context, input TrancheInput) (*Tranche, error) {
	r.nextTrancheID++
	t := &Tranche{
		ID:                r.nextTrancheID,
		Name:              input.Name,
		UsesDefaultAmount: input.UsesDefaultAmount,
		DefaultAmount:     input.DefaultAmount,
		Position:          input.Position,
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}
	r.tranches[t.ID] = t
	return t, nil
}

func (r *memoryTariffRepo) UpdateTranche(ctx context.Context, id int64, input TrancheInput) error {
	t, ok := r.tranches[id]
	if !ok {
		return shared.ErrNotFound
	}
	t.Name = input.Name
	t.UsesDefaultAmount = input.UsesDefaultAmount
	t.DefaultAmount = input.DefaultAmount
	t.Position = input.Position
	return nil
}

func (r *memoryTariffRepo) GetTranche(ctx context.Context, id int64) (*Tranche, error) {
	t, ok := r.tranches[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return t, nil
}

func (r *memoryTariffRepo) ListTranches(ctx context.Context) ([]Tranche, error) {
	var out []Tranche
	for _, t := range r.tranches {
		out = append(out, *t)
	}
	return out, nil
}

func (r *memoryTariffRepo) UpsertTariff(ctx context.Context, input TariffInput) (*TariffEntry, error) {
	for _, e := range r.tariffs {
		if e.ClassID == input.ClassID && e.TrancheID == input.TrancheID {
			e.NewStudentAmount = input.NewStudentAmount
			e.ReturningStudentAmount = input.ReturningStudentAmount
			e.Required = input.Required
			return e, nil
		}
	}
	r.nextTariffID++
	e := &TariffEntry{
		ID:                     r.nextTariffID,
		ClassID:                input.ClassID,
		TrancheID:              input.TrancheID,
		NewStudentAmount:       input.NewStudentAmount,
		ReturningStudentAmount: input.ReturningStudentAmount,
		Required:               input.Required,
	}
	r.tariffs[e.ID] = e
	return e, nil
}

func (r *memoryTariffRepo) FindTariff(ctx context.Context, classID, trancheID int64) (*TariffEntry, error) {
	for _, e := range r.tariffs {
		if e.ClassID == classID && e.TrancheID == trancheID {
			return e, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryTariffRepo) ListTariffsByClass(ctx context.Context, classID int64) ([]TariffEntry, error) {
	var out []TariffEntry
	for _, e := range r.tariffs {
		if e.ClassID == classID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *memoryTariffRepo) DeleteTariff(ctx context.Context, id int64) error {
	if _, ok := r.tariffs[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.tariffs, id)
	return nil
}

func TestBaseAmountSelectsByStudentCategory(t *testing.T) {
	repo := newMemoryTariffRepo()
	svc := NewService(repo)
	ctx := context.Background()

	tranche, err := svc.CreateTranche(ctx, TrancheInput{Name: "1ère tranche", Position: 1})
	require.NoError(t, err)

	_, err = svc.SetTariff(ctx, TariffInput{
		ClassID:                1,
		TrancheID:              tranche.ID,
		NewStudentAmount:       10000,
		ReturningStudentAmount: 9500,
		Required:               true,
	})
	require.NoError(t, err)

	amount, err := svc.BaseAmount(ctx, 1, tranche.ID, true)
	require.NoError(t, err)
	require.Equal(t, int64(10000), amount)

	amount, err = svc.BaseAmount(ctx, 1, tranche.ID, false)
	require.NoError(t, err)
	require.Equal(t, int64(9500), amount)
}

func TestBaseAmountDefaultTrancheSkipsTariffLookup(t *testing.T) {
	repo := newMemoryTariffRepo()
	svc := NewService(repo)
	ctx := context.Background()

	tranche, err := svc.CreateTranche(ctx, TrancheInput{
		Name:              "Frais de fournitures",
		UsesDefaultAmount: true,
		DefaultAmount:     5000,
	})
	require.NoError(t, err)

	// No tariff entry at all for this class.
	amount, err := svc.BaseAmount(ctx, 42, tranche.ID, true)
	require.NoError(t, err)
	require.Equal(t, int64(5000), amount)
}

func TestBaseAmountUnconfiguredClassIsZero(t *testing.T) {
	repo := newMemoryTariffRepo()
	svc := NewService(repo)
	ctx := context.Background()

	tranche, err := svc.CreateTranche(ctx, TrancheInput{Name: "2ème tranche", Position: 2})
	require.NoError(t, err)

	amount, err := svc.BaseAmount(ctx, 99, tranche.ID, true)
	require.NoError(t, err)
	require.Equal(t, int64(0), amount)
}

func TestSetTariffReplacesExisting(t *testing.T) {
	repo := newMemoryTariffRepo()
	svc := NewService(repo)
	ctx := context.Background()

	tranche, err := svc.CreateTranche(ctx, TrancheInput{Name: "Inscription"})
	require.NoError(t, err)

	first, err := svc.SetTariff(ctx, TariffInput{ClassID: 1, TrancheID: tranche.ID, NewStudentAmount: 7000, ReturningStudentAmount: 7000})
	require.NoError(t, err)
	second, err := svc.SetTariff(ctx, TariffInput{ClassID: 1, TrancheID: tranche.ID, NewStudentAmount: 8000, ReturningStudentAmount: 7500})
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)

	entries, err := svc.ListTariffsByClass(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, int64(8000), entries[0].NewStudentAmount)
}

func TestCreateTrancheValidation(t *testing.T) {
	svc := NewService(newMemoryTariffRepo())

	_, err := svc.CreateTranche(context.Background(), TrancheInput{Name: "  "})
	require.Error(t, err)

	_, err = svc.CreateTranche(context.Background(), TrancheInput{Name: "Frais", UsesDefaultAmount: true, DefaultAmount: -1})
	require.Error(t, err)
}
