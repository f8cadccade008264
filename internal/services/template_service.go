package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"planforge/internal/apperrors"
	"planforge/internal/models"
	"planforge/internal/repositories"
)

type TemplateService interface {
	GetTemplate(id uint) (*models.Template, error)
	ListTemplates() ([]*models.Template, error)
	CreateTemplate(t *models.Template) (*models.Template, error)
	UpdateTemplate(t *models.Template) (*models.Template, error)
	DeleteTemplate(id uint) error
	Startup(ctx context.Context)
}

type templateService struct {
	repo repositories.TemplateRepository
	ctx  context.Context
}

func (s *templateService) Startup(ctx context.Context) {
	s.ctx = ctx
}

func NewTemplateService(repo repositories.TemplateRepository) TemplateService {
	return &templateService{repo: repo}
}

func (s *templateService) GetTemplate(id uint) (*models.Template, error) {
	tmpl, err := s.repo.Get(s.ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: get template %d: %w", id, err)
	}
	if tmpl == nil {
		return nil, apperrors.NotFound("template %d does not exist", id)
	}
	return tmpl, nil
}

func (s *templateService) ListTemplates() ([]*models.Template, error) {
	list, err := s.repo.GetAll(s.ctx)
	if err != nil {
		return nil, fmt.Errorf("service: list templates: %w", err)
	}
	return list, nil
}

func (s *templateService) CreateTemplate(t *models.Template) (*models.Template, error) {
	if err := validateTemplate(t); err != nil {
		return nil, err
	}
	if err := s.repo.Create(s.ctx, t); err != nil {
		return nil, fmt.Errorf("service: create template: %w", err)
	}
	return t, nil
}

func (s *templateService) UpdateTemplate(t *models.Template) (*models.Template, error) {
	if err := validateTemplate(t); err != nil {
		return nil, err
	}
	if err := s.repo.Update(s.ctx, t); err != nil {
		return nil, fmt.Errorf("service: update template %d: %w", t.ID, err)
	}
	return t, nil
}

func (s *templateService) DeleteTemplate(id uint) error {
	if err := s.repo.Delete(s.ctx, id); err != nil {
		return fmt.Errorf("service: delete template %d: %w", id, err)
	}
	return nil
}

func validateTemplate(t *models.Template) error {
	if strings.TrimSpace(t.Name) == "" {
		return apperrors.InvalidState("template name is required")
	}
	if t.SeedMessagesJSON != "" {
		var seeds []models.SeedMessage
		if err := json.Unmarshal([]byte(t.SeedMessagesJSON), &seeds); err != nil {
			return apperrors.InvalidState("template seed messages are not valid JSON: %v", err).WithCause(err)
		}
	}
	return nil
}
