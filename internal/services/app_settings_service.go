package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"planforge/internal/models"
	"planforge/internal/repositories"
)

type AppSettingsService interface {
	Get() (*models.AppSettings, error)
	Update(theme, locale string) (*models.AppSettings, error)
	SetLocalBaseURL(baseURL string) (*models.AppSettings, error)
	SetDefaultModel(modelKey string) (*models.AppSettings, error)
	Startup(ctx context.Context)
}

type appSettingsService struct {
	appSettings repositories.AppSettingsRepository
	modelConfig ModelConfigService
	context     context.Context
}

func (s *appSettingsService) Startup(ctx context.Context) {
	s.context = ctx
}

func NewAppSettingsService(appSettings repositories.AppSettingsRepository, modelConfig ModelConfigService) AppSettingsService {
	return &appSettingsService{appSettings: appSettings, modelConfig: modelConfig}
}

func (s *appSettingsService) Get() (*models.AppSettings, error) {
	return s.appSettings.Get(context.Background())
}

func (s *appSettingsService) Update(theme, locale string) (*models.AppSettings, error) {
	if theme == "" {
		return nil, errors.New("theme is required")
	}
	if locale == "" {
		return nil, errors.New("locale is required")
	}

	// Validate theme values
	if theme != "light" && theme != "dark" && theme != "system" {
		return nil, errors.New("theme must be 'light', 'dark', or 'system'")
	}

	return s.mutate(func(current *models.AppSettings) error {
		current.Theme = theme
		current.Locale = locale
		return nil
	})
}

// SetLocalBaseURL points the local provider at a different inference
// server. Only http(s) URLs are accepted.
func (s *appSettingsService) SetLocalBaseURL(baseURL string) (*models.AppSettings, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("base URL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, errors.New("base URL must be a valid http(s) URL")
	}

	return s.mutate(func(current *models.AppSettings) error {
		current.LocalBaseURL = baseURL
		return nil
	})
}

// SetDefaultModel records the model used when a chat request names none.
func (s *appSettingsService) SetDefaultModel(modelKey string) (*models.AppSettings, error) {
	modelKey = strings.TrimSpace(modelKey)
	if modelKey != "" {
		if _, err := s.modelConfig.GetModel(modelKey); err != nil {
			return nil, err
		}
	}

	return s.mutate(func(current *models.AppSettings) error {
		current.DefaultModelKey = modelKey
		return nil
	})
}

func (s *appSettingsService) mutate(apply func(*models.AppSettings) error) (*models.AppSettings, error) {
	current, err := s.appSettings.Get(context.Background())
	if err != nil {
		return nil, err
	}
	if err := apply(current); err != nil {
		return nil, err
	}
	current.UpdatedAt = time.Now()

	if err := s.appSettings.Update(context.Background(), current); err != nil {
		return nil, err
	}
	return current, nil
}
