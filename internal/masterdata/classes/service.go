package classes

import (
	"context"
	"errors"
	"strings"

	"github.com/scolaria/scolaria/internal/masterdata/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Class, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Class, error) {
	if id <= 0 {
		return Class{}, errors.New("invalid class ID")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, class Class) (Class, error) {
	if err := s.validate(class); err != nil {
		return Class{}, err
	}
	return s.repo.Create(ctx, class)
}

func (s *Service) Update(ctx context.Context, id int64, class Class) error {
	if id <= 0 {
		return errors.New("invalid class ID")
	}
	if err := s.validate(class); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, class)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return errors.New("invalid class ID")
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) validate(c Class) error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("class name is required")
	}
	if strings.TrimSpace(c.Level) == "" {
		return errors.New("class level is required")
	}
	return nil
}
