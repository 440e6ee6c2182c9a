package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/RoGogDBD/items/internal/models"
	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// sqliteTimeLayout фиксированной ширины, поэтому строковая сортировка совпадает с хронологической.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var sqliteItemColumns = []string{"id", "name", "description", "price", "created_at", "updated_at"}

type sqliteItemRow struct {
	ID          string `db:"id"`
	Name        string `db:"name"`
	Description string `db:"description"`
	Price       string `db:"price"`
	CreatedAt   string `db:"created_at"`
	UpdatedAt   string `db:"updated_at"`
}

// SQLiteStorage хранит товары в SQLite. Цена хранится как TEXT, чтобы не терять точность.
type SQLiteStorage struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewSQLiteStorage(db *sqlx.DB) *SQLiteStorage {
	return &SQLiteStorage{db: db, now: time.Now}
}

func (r *SQLiteStorage) List(ctx context.Context) ([]models.Item, error) {
	query, args, err := sq.Select(sqliteItemColumns...).From(itemsTable).OrderBy("created_at", "id").ToSql()
	if err != nil {
		return nil, persistenceErr("build list query", err)
	}

	var rows []sqliteItemRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, persistenceErr("list items", err)
	}

	items := make([]models.Item, 0, len(rows))
	for _, row := range rows {
		it, err := row.toItem()
		if err != nil {
			return nil, persistenceErr("scan item", err)
		}
		items = append(items, it)
	}
	return items, nil
}

func (r *SQLiteStorage) Get(ctx context.Context, id uuid.UUID) (models.Item, error) {
	query, args, err := sq.Select(sqliteItemColumns...).From(itemsTable).Where(sq.Eq{"id": id.String()}).ToSql()
	if err != nil {
		return models.Item{}, persistenceErr("build get query", err)
	}

	var row sqliteItemRow
	err = r.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Item{}, ErrNotFound
	}
	if err != nil {
		return models.Item{}, persistenceErr("get item", err)
	}

	it, err := row.toItem()
	if err != nil {
		return models.Item{}, persistenceErr("scan item", err)
	}
	return it, nil
}

func (r *SQLiteStorage) Insert(ctx context.Context, n models.NewItem) (models.Item, error) {
	now := r.now().UTC()
	it := models.Item{
		ID:          uuid.New(),
		Name:        n.Name,
		Description: n.Description,
		Price:       n.Price,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	stamp := now.Format(sqliteTimeLayout)
	query, args, err := sq.Insert(itemsTable).
		Columns(sqliteItemColumns...).
		Values(it.ID.String(), it.Name, it.Description, it.Price.String(), stamp, stamp).
		ToSql()
	if err != nil {
		return models.Item{}, persistenceErr("build insert query", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return models.Item{}, persistenceErr("insert item", err)
	}
	return it, nil
}

func (r *SQLiteStorage) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	query, args, err := sq.Delete(itemsTable).Where(sq.Eq{"id": id.String()}).ToSql()
	if err != nil {
		return false, persistenceErr("build delete query", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, persistenceErr("delete item", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, persistenceErr("delete item rows affected", err)
	}
	return n > 0, nil
}

func (r *SQLiteStorage) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (row sqliteItemRow) toItem() (models.Item, error) {
	it := models.Item{Name: row.Name, Description: row.Description}

	var err error
	if it.CreatedAt, err = time.Parse(sqliteTimeLayout, row.CreatedAt); err != nil {
		return models.Item{}, fmt.Errorf("parse created_at %q: %w", row.CreatedAt, err)
	}
	if it.UpdatedAt, err = time.Parse(sqliteTimeLayout, row.UpdatedAt); err != nil {
		return models.Item{}, fmt.Errorf("parse updated_at %q: %w", row.UpdatedAt, err)
	}
	return withParsedFields(it, row.ID, row.Price)
}
