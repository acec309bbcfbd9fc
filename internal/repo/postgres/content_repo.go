package postgres

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/miqat/umrah-bookings/internal/domain"
)

type ContentRepository interface {
	List(ctx context.Context, resource string, publishedOnly bool, locale string, limit, offset int) ([]domain.ContentItem, error)
	GetBySlug(ctx context.Context, resource, slug string) (*domain.ContentItem, error)
	Create(ctx context.Context, resource string, item *domain.ContentItem) error
	Update(ctx context.Context, resource, slug string, patch domain.ContentPatch) (*domain.ContentItem, error)
	Delete(ctx context.Context, resource, slug string) (bool, error)
}

type contentRepository struct {
	pool *pgxpool.Pool
	sb   sq.StatementBuilderType
}

func NewContentRepository(pool *pgxpool.Pool) ContentRepository {
	return &contentRepository{
		pool: pool,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

const contentCols = "id, slug, title, body, locale, published, created_at, updated_at"

func scanContent(row pgx.Row) (*domain.ContentItem, error) {
	var c domain.ContentItem
	err := row.Scan(&c.ID, &c.Slug, &c.Title, &c.Body, &c.Locale, &c.Published, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *contentRepository) List(ctx context.Context, resource string, publishedOnly bool, locale string, limit, offset int) ([]domain.ContentItem, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	builder := r.sb.Select(contentCols).
		From("content_items").
		Where(sq.Eq{"resource": resource}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))

	if publishedOnly {
		builder = builder.Where(sq.Eq{"published": true})
	}
	if locale != "" {
		builder = builder.Where(sq.Eq{"locale": locale})
	}

	q, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.ContentItem
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

func (r *contentRepository) GetBySlug(ctx context.Context, resource, slug string) (*domain.ContentItem, error) {
	q, args, err := r.sb.Select(contentCols).
		From("content_items").
		Where(sq.Eq{"resource": resource, "slug": slug}).
		ToSql()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	c, err := scanContent(r.pool.QueryRow(ctx, q, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func (r *contentRepository) Create(ctx context.Context, resource string, item *domain.ContentItem) error {
	q, args, err := r.sb.Insert("content_items").
		Columns("resource", "slug", "title", "body", "locale", "published", "created_at", "updated_at").
		Values(resource, item.Slug, item.Title, item.Body, item.Locale, item.Published, sq.Expr("now()"), sq.Expr("now()")).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err = r.pool.QueryRow(ctx, q, args...).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateSlug
		}
		return err
	}
	return nil
}

func (r *contentRepository) Update(ctx context.Context, resource, slug string, patch domain.ContentPatch) (*domain.ContentItem, error) {
	builder := r.sb.Update("content_items").
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"resource": resource, "slug": slug}).
		Suffix("RETURNING " + contentCols)

	if patch.Title != nil {
		builder = builder.Set("title", *patch.Title)
	}
	if patch.Body != nil {
		builder = builder.Set("body", *patch.Body)
	}
	if patch.Locale != nil {
		builder = builder.Set("locale", *patch.Locale)
	}
	if patch.Published != nil {
		builder = builder.Set("published", *patch.Published)
	}

	q, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	c, err := scanContent(r.pool.QueryRow(ctx, q, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func (r *contentRepository) Delete(ctx context.Context, resource, slug string) (bool, error) {
	q, args, err := r.sb.Delete("content_items").
		Where(sq.Eq{"resource": resource, "slug": slug}).
		ToSql()
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}
