package scholarships

import (
	"context"
	"errors"
	"strings"
	"time"
)

// RepositoryPort defines data access methods for the scholarship registry.
type RepositoryPort interface {
	CreateOffer(ctx context.Context, input OfferInput) (*Offer, error)
	UpdateOffer(ctx context.Context, id int64, input OfferInput) error
	GetOffer(ctx context.Context, id int64) (*Offer, error)
	ListOffersByClass(ctx context.Context, classID int64) ([]Offer, error)
	CountGrantsByOffer(ctx context.Context, offerID int64) (int, error)
	DeleteOffer(ctx context.Context, id int64) error
	CreateGrant(ctx context.Context, input GrantInput) (*Grant, error)
	ListGrantsByStudent(ctx context.Context, studentID int64) ([]GrantWithOffer, error)
	OldestUnusedGrant(ctx context.Context, studentID, trancheID int64) (*GrantWithOffer, error)
	HasAnyGrant(ctx context.Context, studentID, trancheID int64) (bool, error)
	ConsumeGrant(ctx context.Context, grantID, amount int64) (bool, error)
	GetGrant(ctx context.Context, grantID int64) (*Grant, error)
	DeactivateActiveOffers(ctx context.Context) (int64, error)
}

// Service handles scholarship registry business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ErrOfferInUse blocks offer deletion while grants reference it.
var ErrOfferInUse = errors.New("scholarship offer has grants")

// CreateOffer registers a class scholarship offer.
func (s *Service) CreateOffer(ctx context.Context, input OfferInput) (*Offer, error) {
	if err := validateOffer(input); err != nil {
		return nil, err
	}
	return s.repo.CreateOffer(ctx, input)
}

// UpdateOffer edits an offer.
func (s *Service) UpdateOffer(ctx context.Context, id int64, input OfferInput) error {
	if id <= 0 {
		return errors.New("invalid offer ID")
	}
	if err := validateOffer(input); err != nil {
		return err
	}
	return s.repo.UpdateOffer(ctx, id, input)
}

// GetOffer returns one offer.
func (s *Service) GetOffer(ctx context.Context, id int64) (*Offer, error) {
	if id <= 0 {
		return nil, errors.New("invalid offer ID")
	}
	return s.repo.GetOffer(ctx, id)
}

// ListOffersByClass returns the offers of a class.
func (s *Service) ListOffersByClass(ctx context.Context, classID int64) ([]Offer, error) {
	if classID <= 0 {
		return nil, errors.New("class ID required")
	}
	return s.repo.ListOffersByClass(ctx, classID)
}

// DeleteOffer removes an offer, refusing while grants still reference it.
func (s *Service) DeleteOffer(ctx context.Context, id int64) error {
	if id <= 0 {
		return errors.New("invalid offer ID")
	}
	count, err := s.repo.CountGrantsByOffer(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrOfferInUse
	}
	return s.repo.DeleteOffer(ctx, id)
}

// Award binds an offer to a student as an unused grant.
func (s *Service) Award(ctx context.Context, input GrantInput) (*Grant, error) {
	if input.OfferID <= 0 {
		return nil, errors.New("offer ID required")
	}
	if input.StudentID <= 0 {
		return nil, errors.New("student ID required")
	}
	offer, err := s.repo.GetOffer(ctx, input.OfferID)
	if err != nil {
		return nil, err
	}
	if !offer.Active {
		return nil, errors.New("offer is not active")
	}
	return s.repo.CreateGrant(ctx, input)
}

// ListGrantsByStudent returns a student's grants with their offer facts.
func (s *Service) ListGrantsByStudent(ctx context.Context, studentID int64) ([]GrantWithOffer, error) {
	if studentID <= 0 {
		return nil, errors.New("student ID required")
	}
	return s.repo.ListGrantsByStudent(ctx, studentID)
}

// FindApplicableGrant returns the grant a payment for the tranche may draw
// on: the student's oldest unused grant on an active offer for that tranche,
// provided the deadline, when configured, has not passed at asOf. Multiple
// qualifying grants tie-break on the lowest grant id.
func (s *Service) FindApplicableGrant(ctx context.Context, studentID, trancheID int64, asOf time.Time, deadline *time.Time) (*GrantWithOffer, error) {
	if deadline != nil && asOf.After(*deadline) {
		return nil, nil
	}
	return s.repo.OldestUnusedGrant(ctx, studentID, trancheID)
}

// HasAnyGrant reports whether the student holds any grant for the tranche,
// used or unused. The generic discount exclusivity rule keys on this.
func (s *Service) HasAnyGrant(ctx context.Context, studentID, trancheID int64) (bool, error) {
	return s.repo.HasAnyGrant(ctx, studentID, trancheID)
}

// Consume marks a grant used, recording the amount and timestamp. The
// update is a compare-and-set on the unused state, so a second call for the
// same grant is a silent no-op and double-spending is impossible even under
// concurrent submissions.
func (s *Service) Consume(ctx context.Context, grantID, amount int64) error {
	if grantID <= 0 {
		return errors.New("grant ID required")
	}
	if amount < 0 {
		return errors.New("consumed amount must not be negative")
	}
	updated, err := s.repo.ConsumeGrant(ctx, grantID, amount)
	if err != nil {
		return err
	}
	if updated {
		return nil
	}
	// Not updated: either already used (retry tolerated) or unknown id.
	if _, err := s.repo.GetGrant(ctx, grantID); err != nil {
		return err
	}
	return nil
}

// SweepExpiredOffers deactivates every active offer once the enrolment
// deadline has passed. It returns the number of offers touched; before the
// deadline, or without one, it does nothing.
func (s *Service) SweepExpiredOffers(ctx context.Context, deadline *time.Time, asOf time.Time) (int64, error) {
	if deadline == nil || !asOf.After(*deadline) {
		return 0, nil
	}
	return s.repo.DeactivateActiveOffers(ctx)
}

func validateOffer(input OfferInput) error {
	if input.ClassID <= 0 {
		return errors.New("class ID required")
	}
	if input.TrancheID <= 0 {
		return errors.New("tranche ID required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return errors.New("offer name is required")
	}
	if input.Amount < 0 {
		return errors.New("offer amount must not be negative")
	}
	return nil
}
