package content

import (
	"context"
	"regexp"
	"strings"

	"github.com/miqat/umrah-bookings/internal/domain"
	"github.com/miqat/umrah-bookings/internal/repo/postgres"
)

// Resources the generic content surface serves. One abstraction instead of
// six near-identical per-entity managers.
var Resources = map[string]bool{
	"blogs":    true,
	"pages":    true,
	"services": true,
	"faq":      true,
	"ziaraat":  true,
	"guides":   true,
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type Service struct {
	repo postgres.ContentRepository
}

func NewService(repo postgres.ContentRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) validResource(resource string) error {
	if !Resources[resource] {
		return domain.Validation(domain.CodeMissingField, "unknown content resource "+resource)
	}
	return nil
}

// List returns items for a resource; public callers only see published ones.
func (s *Service) List(ctx context.Context, resource string, publishedOnly bool, locale string, limit, offset int) ([]domain.ContentItem, error) {
	if err := s.validResource(resource); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, resource, publishedOnly, locale, limit, offset)
}

func (s *Service) Get(ctx context.Context, resource, slug string) (*domain.ContentItem, error) {
	if err := s.validResource(resource); err != nil {
		return nil, err
	}
	item, err := s.repo.GetBySlug(ctx, resource, slug)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

func (s *Service) Create(ctx context.Context, resource string, item *domain.ContentItem) error {
	if err := s.validResource(resource); err != nil {
		return err
	}

	item.Slug = strings.ToLower(strings.TrimSpace(item.Slug))
	if !slugPattern.MatchString(item.Slug) {
		return domain.Validation(domain.CodeMissingField, "slug must be lowercase letters, digits and hyphens")
	}
	if strings.TrimSpace(item.Title) == "" {
		return domain.Validation(domain.CodeMissingField, "title is required")
	}
	if item.Locale == "" {
		item.Locale = "en"
	}

	return s.repo.Create(ctx, resource, item)
}

func (s *Service) Update(ctx context.Context, resource, slug string, patch domain.ContentPatch) (*domain.ContentItem, error) {
	if err := s.validResource(resource); err != nil {
		return nil, err
	}
	item, err := s.repo.Update(ctx, resource, slug, patch)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

func (s *Service) Delete(ctx context.Context, resource, slug string) error {
	if err := s.validResource(resource); err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, resource, slug)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}
	return nil
}
