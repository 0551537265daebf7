package patient

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/nomad3/ficha-medica-universal/internal/platform/fhir"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create persists a new patient. The primary identifier is assigned
// once here and never reassigned; a declared identifier is kept when
// supplied. Rut collisions fail with ErrDuplicatePatient.
func (s *Service) Create(ctx context.Context, p *Patient) error {
	if p.RUT != "" {
		existing, err := s.repo.GetByRUT(ctx, p.RUT)
		if err != nil && !errors.Is(err, fhir.ErrPatientNotFound) {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: rut %s", fhir.ErrDuplicatePatient, p.RUT)
		}
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return s.repo.Create(ctx, p)
}

// Resolve looks a patient up by an arbitrary token. Precedence:
// primary identifier, then legacy numeric key, then rut. The legacy
// fallback only matters for records created before the identifier
// migration; the rut fallback serves human-facing lookups.
func (s *Service) Resolve(ctx context.Context, token string) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, token)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, fhir.ErrPatientNotFound) {
		return nil, err
	}

	if legacyID, convErr := strconv.ParseInt(token, 10, 64); convErr == nil {
		p, err = s.repo.GetByLegacyID(ctx, legacyID)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, fhir.ErrPatientNotFound) {
			return nil, err
		}
	}

	return s.repo.GetByRUT(ctx, token)
}

func (s *Service) Get(ctx context.Context, id string) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByRUT(ctx context.Context, rut string) (*Patient, error) {
	return s.repo.GetByRUT(ctx, rut)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) Update(ctx context.Context, p *Patient) error {
	if _, err := s.repo.GetByID(ctx, p.ID); err != nil {
		return err
	}
	return s.repo.Update(ctx, p)
}

// IDInUse reports whether a primary identifier is already taken.
// Bundle import uses it to decide between preserving a declared id and
// generating a fresh one.
func (s *Service) IDInUse(ctx context.Context, id string) (bool, error) {
	_, err := s.repo.GetByID(ctx, id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fhir.ErrPatientNotFound) {
		return false, nil
	}
	return false, err
}
