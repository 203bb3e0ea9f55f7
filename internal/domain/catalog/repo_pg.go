package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/convenio/convenio/internal/platform/apperr"
	"github.com/convenio/convenio/internal/platform/db"
)

type categoryRepoPG struct {
	pool *pgxpool.Pool
}

func NewCategoryRepo(pool *pgxpool.Pool) CategoryRepository {
	return &categoryRepoPG{pool: pool}
}

func (r *categoryRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *categoryRepoPG) Create(ctx context.Context, c *ServiceCategory) error {
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	_, err := r.conn(ctx).Exec(ctx,
		`INSERT INTO service_categories (id, name, created_at) VALUES ($1,$2,$3)`,
		c.ID, c.Name, c.CreatedAt)
	if _, ok := db.UniqueViolation(err); ok {
		return apperr.Wrap(apperr.DuplicateIdentifier, "categoria com este nome já existe", err)
	}
	return err
}

func (r *categoryRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ServiceCategory, error) {
	c := &ServiceCategory{}
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT id, name, created_at FROM service_categories WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.CreatedAt)
	if db.IsNoRows(err) {
		return nil, apperr.New(apperr.NotFound, "categoria não encontrada")
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *categoryRepoPG) Update(ctx context.Context, c *ServiceCategory) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE service_categories SET name = $2 WHERE id = $1`, c.ID, c.Name)
	if _, ok := db.UniqueViolation(err); ok {
		return apperr.Wrap(apperr.DuplicateIdentifier, "categoria com este nome já existe", err)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "categoria não encontrada")
	}
	return nil
}

func (r *categoryRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM service_categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "categoria não encontrada")
	}
	return nil
}

func (r *categoryRepoPG) List(ctx context.Context) ([]*ServiceCategory, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT id, name, created_at FROM service_categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []*ServiceCategory
	for rows.Next() {
		c := &ServiceCategory{}
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (r *categoryRepoPG) HasServices(ctx context.Context, id uuid.UUID) (bool, error) {
	var used bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM services WHERE category_id = $1)`, id).Scan(&used)
	return used, err
}

type serviceRepoPG struct {
	pool *pgxpool.Pool
}

func NewServiceRepo(pool *pgxpool.Pool) ServiceRepository {
	return &serviceRepoPG{pool: pool}
}

func (r *serviceRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const serviceCols = `id, name, category_id, price, is_base, created_at`

func (r *serviceRepoPG) Create(ctx context.Context, s *Service) error {
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO services (id, name, category_id, price, is_base, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		s.ID, s.Name, s.CategoryID, s.Price, s.IsBase, s.CreatedAt)
	return err
}

func (r *serviceRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Service, error) {
	return scanService(r.conn(ctx).QueryRow(ctx,
		`SELECT `+serviceCols+` FROM services WHERE id = $1`, id))
}

func (r *serviceRepoPG) Update(ctx context.Context, s *Service) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE services SET name = $2, category_id = $3, price = $4, is_base = $5
		WHERE id = $1`, s.ID, s.Name, s.CategoryID, s.Price, s.IsBase)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "serviço não encontrado")
	}
	return nil
}

func (r *serviceRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "serviço não encontrado")
	}
	return nil
}

func (r *serviceRepoPG) List(ctx context.Context, categoryID *uuid.UUID) ([]*Service, error) {
	query := `SELECT ` + serviceCols + ` FROM services`
	args := []interface{}{}
	if categoryID != nil {
		query += ` WHERE category_id = $1`
		args = append(args, *categoryID)
	}
	query += ` ORDER BY name`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []*Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, s)
	}
	return services, rows.Err()
}

func (r *serviceRepoPG) InUse(ctx context.Context, id uuid.UUID) (bool, error) {
	var used bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM consultations WHERE service_id = $1)`, id).Scan(&used)
	return used, err
}

func scanService(row pgx.Row) (*Service, error) {
	s := &Service{}
	err := row.Scan(&s.ID, &s.Name, &s.CategoryID, &s.Price, &s.IsBase, &s.CreatedAt)
	if db.IsNoRows(err) {
		return nil, apperr.New(apperr.NotFound, "serviço não encontrado")
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}
