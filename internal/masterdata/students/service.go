package students

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

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Student, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Student, error) {
	if id <= 0 {
		return Student{}, errors.New("invalid student ID")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, student Student) (Student, error) {
	if err := s.validate(student); err != nil {
		return Student{}, err
	}
	return s.repo.Create(ctx, student)
}

func (s *Service) Update(ctx context.Context, id int64, student Student) error {
	if id <= 0 {
		return errors.New("invalid student ID")
	}
	if err := s.validate(student); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, student)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return errors.New("invalid student ID")
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) validate(st Student) error {
	if strings.TrimSpace(st.Matricule) == "" {
		return errors.New("matricule is required")
	}
	if strings.TrimSpace(st.LastName) == "" {
		return errors.New("last name is required")
	}
	if st.ClassID <= 0 {
		return errors.New("class ID required")
	}
	return nil
}
