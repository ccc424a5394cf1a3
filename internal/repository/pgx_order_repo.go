package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dialect"
	"github.com/stephenafamo/bob/dialect/psql/dm"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/bob/dialect/psql/um"

	"github.com/jwsummers/techmetrix/internal/db"
)

type RepairOrder struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Year      string    `db:"year"`
	Make      string    `db:"make"`
	Model     string    `db:"model"`
	RONumber  string    `db:"ro_number"`
	Labor     float64   `db:"labor"`
	CreatedAt time.Time `db:"created_at"`
}

// RepairOrderPatch updates a subset of an order's fields. UserID and
// CreatedAt are not patchable.
type RepairOrderPatch struct {
	ID       string   `db:"id"`
	Year     *string  `db:"year"`
	Make     *string  `db:"make"`
	Model    *string  `db:"model"`
	RONumber *string  `db:"ro_number"`
	Labor    *float64 `db:"labor"`
}

type RepairOrderRepository interface {
	Create(ctx context.Context, order *RepairOrder) error
	Get(ctx context.Context, orderID string) (*RepairOrder, error)
	ListByUser(ctx context.Context, userID string) ([]*RepairOrder, error)
	ListByUsers(ctx context.Context, userIDs []string) ([]*RepairOrder, error)
	Patch(ctx context.Context, patch *RepairOrderPatch) (*RepairOrder, error)
	Delete(ctx context.Context, orderID string) error
}

type pgxRepairOrderRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepairOrderRepository(pool *pgxpool.Pool) RepairOrderRepository {
	return &pgxRepairOrderRepository{pool: pool}
}

func scanRepairOrder(row pgx.CollectableRow) (*RepairOrder, error) {
	order := &RepairOrder{}
	if err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.Year,
		&order.Make,
		&order.Model,
		&order.RONumber,
		&order.Labor,
		&order.CreatedAt,
	); err != nil {
		return nil, err
	}
	return order, nil
}

// Create inserts the order and fills in its server-assigned created_at.
func (p *pgxRepairOrderRepository) Create(ctx context.Context, order *RepairOrder) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("repair_orders", "id", "user_id", "year", "make", "model", "ro_number", "labor"),
		im.Values(
			psql.Arg(order.ID), psql.Arg(order.UserID), psql.Arg(order.Year), psql.Arg(order.Make),
			psql.Arg(order.Model), psql.Arg(order.RONumber), psql.Arg(order.Labor),
		),
		im.Returning("created_at"),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	err = e.QueryRow(ctx, sql, args...).Scan(&order.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrAlreadyExists
		case "23503": // user_id does not reference an existing user
			return ErrNotFound
		}
	}
	return err
}

func (p *pgxRepairOrderRepository) Get(ctx context.Context, orderID string) (*RepairOrder, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("id", "user_id", "year", "make", "model", "ro_number", "labor", "created_at"),
		sm.From("repair_orders"),
		sm.Where(psql.Quote("id").EQ(psql.Arg(orderID))),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	order := &RepairOrder{}
	if err = e.QueryRow(ctx, sql, args...).Scan(
		&order.ID,
		&order.UserID,
		&order.Year,
		&order.Make,
		&order.Model,
		&order.RONumber,
		&order.Labor,
		&order.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

// ListByUser returns the user's orders newest first.
func (p *pgxRepairOrderRepository) ListByUser(ctx context.Context, userID string) ([]*RepairOrder, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("id", "user_id", "year", "make", "model", "ro_number", "labor", "created_at"),
		sm.From("repair_orders"),
		sm.Where(psql.Quote("user_id").EQ(psql.Arg(userID))),
		sm.OrderBy("created_at").Desc(),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := e.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return pgx.CollectRows(rows, scanRepairOrder)
}

// ListByUsers pools orders across a set of owners, for team aggregation.
func (p *pgxRepairOrderRepository) ListByUsers(ctx context.Context, userIDs []string) ([]*RepairOrder, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	ids := make([]any, 0, len(userIDs))
	for _, id := range userIDs {
		ids = append(ids, id)
	}

	q := psql.Select(
		sm.Columns("id", "user_id", "year", "make", "model", "ro_number", "labor", "created_at"),
		sm.From("repair_orders"),
		sm.Where(psql.Quote("user_id").In(psql.Arg(ids...))),
		sm.OrderBy("created_at").Desc(),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := e.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return pgx.CollectRows(rows, scanRepairOrder)
}

func (p *pgxRepairOrderRepository) Patch(ctx context.Context, patch *RepairOrderPatch) (*RepairOrder, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	sets := make([]bob.Mod[*dialect.UpdateQuery], 0, 5)
	if patch.Year != nil {
		sets = append(sets, um.SetCol("year").ToArg(*patch.Year))
	}
	if patch.Make != nil {
		sets = append(sets, um.SetCol("make").ToArg(*patch.Make))
	}
	if patch.Model != nil {
		sets = append(sets, um.SetCol("model").ToArg(*patch.Model))
	}
	if patch.RONumber != nil {
		sets = append(sets, um.SetCol("ro_number").ToArg(*patch.RONumber))
	}
	if patch.Labor != nil {
		sets = append(sets, um.SetCol("labor").ToArg(*patch.Labor))
	}

	q := psql.Update(
		um.Table("repair_orders"),
		um.Where(psql.Quote("id").EQ(psql.Arg(patch.ID))),
		um.Returning("id", "user_id", "year", "make", "model", "ro_number", "labor", "created_at"),
	)

	q.Apply(sets...)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	order := &RepairOrder{}
	if err = e.QueryRow(ctx, sql, args...).Scan(
		&order.ID,
		&order.UserID,
		&order.Year,
		&order.Make,
		&order.Model,
		&order.RONumber,
		&order.Labor,
		&order.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

func (p *pgxRepairOrderRepository) Delete(ctx context.Context, orderID string) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Delete(
		dm.From("repair_orders"),
		dm.Where(psql.Quote("id").EQ(psql.Arg(orderID))),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	commandTag, err := e.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}

	if commandTag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
