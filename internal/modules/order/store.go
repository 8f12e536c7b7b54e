// README: Order store backed by PostgreSQL; whole-document writes guarded by status_version.
package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"village/internal/types"
)

// Repository is the persistence contract the service depends on.
type Repository interface {
	Create(ctx context.Context, o *Order, ev Event) error
	Get(ctx context.Context, id types.ID) (*Order, error)
	// Replace stores o if the stored version still equals expectedVersion
	// and records ev alongside. It reports false when another writer won.
	Replace(ctx context.Context, o *Order, expectedVersion int, ev Event) (bool, error)
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]*Order, error)
	// ListByStatus lists every order when status is StatusNone.
	ListByStatus(ctx context.Context, status Status, limit int) ([]*Order, error)
	Events(ctx context.Context, id types.ID) ([]Event, error)
}

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, o *Order, ev Event) error {
	doc, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("encode order: %w", err)
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO orders (id, customer_id, order_type, status, status_version, document, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(o.ID), o.Customer.UserID, string(o.Type()), string(o.Status), o.StatusVersion, doc, o.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	if err := appendEvent(ctx, tx, ev); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Order, error) {
	row := s.db.QueryRow(ctx, `
		SELECT document, status_version FROM orders WHERE id = $1`, string(id))
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return o, err
}

func (s *Store) Replace(ctx context.Context, o *Order, expectedVersion int, ev Event) (bool, error) {
	doc, err := json.Marshal(o)
	if err != nil {
		return false, fmt.Errorf("encode order: %w", err)
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $1,
		    status_version = $2,
		    document = $3,
		    updated_at = NOW()
		WHERE id = $4 AND status_version = $5`,
		string(o.Status), o.StatusVersion, doc, string(o.ID), expectedVersion,
	)
	if err != nil {
		return false, fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}
	if err := appendEvent(ctx, tx, ev); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) ListByCustomer(ctx context.Context, customerID string, limit int) ([]*Order, error) {
	rows, err := s.db.Query(ctx, `
		SELECT document, status_version FROM orders
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, customerID, limitOrDefault(limit))
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func (s *Store) ListByStatus(ctx context.Context, status Status, limit int) ([]*Order, error) {
	rows, err := s.db.Query(ctx, `
		SELECT document, status_version FROM orders
		WHERE $1 = '' OR status = $1
		ORDER BY created_at DESC
		LIMIT $2`, string(status), limitOrDefault(limit))
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func (s *Store) Events(ctx context.Context, id types.ID) ([]Event, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, order_id, from_status, to_status, actor_type, COALESCE(actor_id, ''), note, created_at
		FROM order_status_events
		WHERE order_id = $1
		ORDER BY id`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.OrderID, &e.FromStatus, &e.ToStatus, &e.ActorType, &e.ActorID, &e.Note, &e.CreatedAt); err != nil {
			return nil, err
		}
		if e.FromStatus == "none" {
			e.FromStatus = StatusNone
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func appendEvent(ctx context.Context, tx pgx.Tx, e Event) error {
	var actorID *string
	if e.ActorID != "" {
		actorID = &e.ActorID
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO order_status_events (
			order_id, from_status, to_status, actor_type, actor_id, note, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(e.OrderID),
		displayStatus(e.FromStatus),
		string(e.ToStatus),
		e.ActorType,
		actorID,
		e.Note,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order event: %w", err)
	}
	return nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var doc []byte
	var version int
	if err := row.Scan(&doc, &version); err != nil {
		return nil, err
	}
	var o Order
	if err := json.Unmarshal(doc, &o); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	o.StatusVersion = version
	return &o, nil
}

func collectOrders(rows pgx.Rows) ([]*Order, error) {
	defer rows.Close()
	var out []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func limitOrDefault(limit int) int {
	if limit <= 0 || limit > 200 {
		return 50
	}
	return limit
}
