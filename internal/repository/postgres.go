package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RoGogDBD/items/internal/models"
	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const itemsTable = "items"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// price читается текстом, чтобы numeric не проходил через float.
var pgItemColumns = []string{"id::text", "name", "description", "price::text", "created_at", "updated_at"}

// PostgresStorage хранит товары в таблице items PostgreSQL.
type PostgresStorage struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewPostgresStorage(pool *pgxpool.Pool) *PostgresStorage {
	return &PostgresStorage{pool: pool, now: time.Now}
}

func (r *PostgresStorage) List(ctx context.Context) ([]models.Item, error) {
	query, args, err := psql.Select(pgItemColumns...).From(itemsTable).OrderBy("created_at", "id").ToSql()
	if err != nil {
		return nil, persistenceErr("build list query", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, persistenceErr("list items", err)
	}
	defer rows.Close()

	items := make([]models.Item, 0)
	for rows.Next() {
		it, err := scanPgItem(rows)
		if err != nil {
			return nil, persistenceErr("scan item", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("scan items rows", err)
	}
	return items, nil
}

func (r *PostgresStorage) Get(ctx context.Context, id uuid.UUID) (models.Item, error) {
	query, args, err := psql.Select(pgItemColumns...).From(itemsTable).Where(sq.Eq{"id": id.String()}).ToSql()
	if err != nil {
		return models.Item{}, persistenceErr("build get query", err)
	}

	it, err := scanPgItem(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Item{}, ErrNotFound
	}
	if err != nil {
		return models.Item{}, persistenceErr("get item", err)
	}
	return it, nil
}

func (r *PostgresStorage) Insert(ctx context.Context, n models.NewItem) (models.Item, error) {
	// timestamptz хранит микросекунды; усечение делает возвращаемую строку равной сохраненной.
	now := r.now().UTC().Truncate(time.Microsecond)
	it := models.Item{
		ID:          uuid.New(),
		Name:        n.Name,
		Description: n.Description,
		Price:       n.Price,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	query, args, err := psql.Insert(itemsTable).
		Columns("id", "name", "description", "price", "created_at", "updated_at").
		Values(it.ID.String(), it.Name, it.Description, it.Price.String(), it.CreatedAt, it.UpdatedAt).
		ToSql()
	if err != nil {
		return models.Item{}, persistenceErr("build insert query", err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return models.Item{}, persistenceErr("insert item", err)
	}
	return it, nil
}

func (r *PostgresStorage) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	query, args, err := psql.Delete(itemsTable).Where(sq.Eq{"id": id.String()}).ToSql()
	if err != nil {
		return false, persistenceErr("build delete query", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, persistenceErr("delete item", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresStorage) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanPgItem(row pgx.Row) (models.Item, error) {
	var (
		it    models.Item
		id    string
		price string
	)
	if err := row.Scan(&id, &it.Name, &it.Description, &price, &it.CreatedAt, &it.UpdatedAt); err != nil {
		return models.Item{}, err
	}
	return withParsedFields(it, id, price)
}

func withParsedFields(it models.Item, id, price string) (models.Item, error) {
	var err error
	if it.ID, err = uuid.Parse(id); err != nil {
		return models.Item{}, fmt.Errorf("parse id %q: %w", id, err)
	}
	if it.Price, err = decimal.NewFromString(price); err != nil {
		return models.Item{}, fmt.Errorf("parse price %q: %w", price, err)
	}
	return it, nil
}
