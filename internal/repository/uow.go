package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/opensource-finance/storefront/internal/domain"
	"github.com/opensource-finance/storefront/internal/metrics"
	"github.com/opensource-finance/storefront/internal/validation"
)

var tracer = otel.Tracer("storefront-repository")

// UnitOfWork stages changes to all entity types and saves them in one
// transaction. It holds a dedicated connection until Close and must not
// be shared between goroutines.
type UnitOfWork struct {
	store   *Store
	conn    *sql.Conn
	tx      *sql.Tx
	tracker *tracker
	bus     domain.EventBus

	closeOnce sync.Once
	closed    bool

	Customers  *CustomerRepository
	Orders     *OrderRepository
	OrderItems *OrderItemRepository
	Products   *ProductRepository
	Categories *Repository[*domain.Category]
}

// NewUnitOfWork reserves a connection from the store. The bus is optional;
// when set, a ChangeEvent is published after every commit.
func NewUnitOfWork(ctx context.Context, store *Store, bus domain.EventBus) (*UnitOfWork, error) {
	conn, err := store.conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}

	u := &UnitOfWork{
		store:   store,
		conn:    conn,
		tracker: newTracker(),
		bus:     bus,
	}
	u.Customers = &CustomerRepository{Repository: newRepository(u, customerMapping)}
	u.Orders = &OrderRepository{Repository: newRepository(u, orderMapping)}
	u.OrderItems = &OrderItemRepository{Repository: newRepository(u, orderItemMapping)}
	u.Products = &ProductRepository{Repository: newRepository(u, productMapping)}
	u.Categories = newRepository(u, categoryMapping)
	return u, nil
}

// CustomerRepository exposes the customer queries to database validators.
func (u *UnitOfWork) CustomerRepository() domain.CustomerRepository {
	return u.Customers
}

func (u *UnitOfWork) ensureOpen() error {
	if u.closed {
		return ErrClosed
	}
	return nil
}

// db returns the running transaction, or the dedicated connection outside of one.
func (u *UnitOfWork) db() queryer {
	if u.tx != nil {
		return u.tx
	}
	return u.conn
}

// HasChanges reports whether any entity is staged for insert, update or delete.
func (u *UnitOfWork) HasChanges() bool {
	if u.closed {
		return false
	}
	return u.tracker.hasChanges()
}

// SaveChanges validates every added or modified entity and writes all
// staged changes in one transaction. It returns the number of rows written.
//
// Validation runs per entity in tracking order: the database-dependent
// check first, then the field rules. The first entity with failures
// aborts the save with a *validation.Error, or a *validation.AggregateError
// when it has several.
func (u *UnitOfWork) SaveChanges(ctx context.Context) (rows int, err error) {
	if err := u.ensureOpen(); err != nil {
		return 0, err
	}

	ctx, span := tracer.Start(ctx, "UnitOfWork.SaveChanges")
	defer span.End()

	start := time.Now()
	outcome := metrics.OutcomeCommitted
	defer func() {
		if err != nil {
			outcome = saveOutcome(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(
			attribute.Int("storefront.rows_affected", rows),
			attribute.String("storefront.outcome", outcome),
		)
		metrics.RecordSave(outcome, rows, time.Since(start))
	}()

	u.tracker.detectChanges()
	entries := u.tracker.pending()
	span.SetAttributes(attribute.Int("storefront.entities", len(entries)))
	if len(entries) == 0 {
		return 0, nil
	}

	if err := u.validate(ctx, entries); err != nil {
		return 0, err
	}

	rows, err = u.commit(ctx, entries)
	if err != nil {
		slog.Error("failed to save changes", "entities", len(entries), "error", err)
		return 0, err
	}

	event := changeEvent(entries, rows)
	u.tracker.accept(entries)
	u.publish(ctx, event)
	return rows, nil
}

func (u *UnitOfWork) validate(ctx context.Context, entries []*Entry) error {
	for _, en := range entries {
		if en.state != Added && en.state != Modified {
			continue
		}

		var failures []*validation.Error
		if v, ok := en.entity.(domain.DatabaseValidator); ok {
			failure, err := v.ValidateDatabase(ctx, u)
			if err != nil {
				return fmt.Errorf("failed to validate %s: %w", en.table.name, err)
			}
			if failure != nil {
				failures = append(failures, failure)
			}
		}
		if v, ok := en.entity.(domain.FieldValidator); ok {
			failures = append(failures, v.Validate()...)
		}

		if err := validation.Result(failures); err != nil {
			slog.Warn("entity validation failed", "entity", en.table.name, "id", en.entity.GetID(), "failures", len(failures))
			return err
		}
	}
	return nil
}

// commit writes inserts by rank, then updates, then join rows, then
// deletes in reverse rank. Keys and versions assigned during a failed
// commit are restored on the entities.
func (u *UnitOfWork) commit(ctx context.Context, entries []*Entry) (rows int, err error) {
	tx, err := u.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	u.tx = tx

	var undo []func()
	defer func() {
		u.tx = nil
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			slog.Error("failed to rollback transaction", "error", rbErr)
		}
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
	}()

	for _, en := range entries {
		if en.table.prepare != nil {
			en.table.prepare(en.entity)
		}
	}

	inserts := filterState(entries, Added)
	slices.SortStableFunc(inserts, func(a, b *Entry) int { return a.table.rank - b.table.rank })
	for _, en := range inserts {
		// Dependents read the keys assigned to their principals just now.
		if en.table.prepare != nil {
			en.table.prepare(en.entity)
		}
		oldID, oldVersion := en.entity.GetID(), en.entity.GetRowVersion()
		undo = append(undo, func() {
			en.entity.SetID(oldID)
			en.entity.SetRowVersion(oldVersion)
		})
		if err := u.insert(ctx, en); err != nil {
			return 0, err
		}
		if en.table.prepare != nil {
			en.table.prepare(en.entity)
		}
		rows++
	}

	for _, en := range filterState(entries, Modified) {
		if en.table.prepare != nil {
			en.table.prepare(en.entity)
		}
		oldVersion := en.entity.GetRowVersion()
		undo = append(undo, func() { en.entity.SetRowVersion(oldVersion) })
		if err := u.update(ctx, en); err != nil {
			return 0, err
		}
		rows++
	}

	for _, en := range entries {
		if (en.state != Added && en.state != Modified) || en.table.links == nil {
			continue
		}
		n, err := u.writeLinks(ctx, en.table.links(en.entity))
		if err != nil {
			return 0, err
		}
		rows += n
	}

	deletes := filterState(entries, Deleted)
	slices.SortStableFunc(deletes, func(a, b *Entry) int { return b.table.rank - a.table.rank })
	for _, en := range deletes {
		if err := u.delete(ctx, en); err != nil {
			return 0, err
		}
		rows++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return rows, nil
}

func (u *UnitOfWork) insert(ctx context.Context, en *Entry) error {
	version := uuid.NewString()
	args := append([]any{version}, en.table.values(en.entity)...)

	var id int64
	if err := u.tx.QueryRowContext(ctx, u.store.rebind(en.table.insertSQL()), args...).Scan(&id); err != nil {
		slog.Error("failed to insert entity", "entity", en.table.name, "error", err)
		return fmt.Errorf("failed to insert %s: %w", en.table.name, err)
	}
	en.entity.SetID(id)
	en.entity.SetRowVersion(version)
	return nil
}

func (u *UnitOfWork) update(ctx context.Context, en *Entry) error {
	id, current := en.entity.GetID(), en.entity.GetRowVersion()
	version := uuid.NewString()

	args := append([]any{version}, en.table.values(en.entity)...)
	args = append(args, id)
	checkVersion := current != ""
	if checkVersion {
		args = append(args, current)
	}

	res, err := u.tx.ExecContext(ctx, u.store.rebind(en.table.updateSQL(checkVersion)), args...)
	if err != nil {
		slog.Error("failed to update entity", "entity", en.table.name, "id", id, "error", err)
		return fmt.Errorf("failed to update %s %d: %w", en.table.name, id, err)
	}
	if err := expectOneRow(res, en.table.name, id); err != nil {
		return err
	}
	en.entity.SetRowVersion(version)
	return nil
}

func (u *UnitOfWork) delete(ctx context.Context, en *Entry) error {
	id, current := en.entity.GetID(), en.entity.GetRowVersion()
	args := []any{id}
	checkVersion := current != ""
	if checkVersion {
		args = append(args, current)
	}

	res, err := u.tx.ExecContext(ctx, u.store.rebind(en.table.deleteSQL(checkVersion)), args...)
	if err != nil {
		slog.Error("failed to delete entity", "entity", en.table.name, "id", id, "error", err)
		return fmt.Errorf("failed to delete %s %d: %w", en.table.name, id, err)
	}
	return expectOneRow(res, en.table.name, id)
}

// writeLinks inserts missing join rows and returns how many were new.
func (u *UnitOfWork) writeLinks(ctx context.Context, links []link) (int, error) {
	n := 0
	for _, l := range links {
		if l.leftID == 0 || l.rightID == 0 {
			continue
		}
		query := "INSERT INTO " + l.table + " (" + l.left + ", " + l.right + ") VALUES (?, ?) ON CONFLICT DO NOTHING"
		res, err := u.tx.ExecContext(ctx, u.store.rebind(query), l.leftID, l.rightID)
		if err != nil {
			return n, fmt.Errorf("failed to link %s: %w", l.table, err)
		}
		if affected, err := res.RowsAffected(); err == nil {
			n += int(affected)
		}
	}
	return n, nil
}

// expectOneRow turns a missing or re-versioned row into a conflict.
func expectOneRow(res sql.Result, name string, id int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		slog.Warn("optimistic concurrency check failed", "entity", name, "id", id)
		return fmt.Errorf("%w: %s %d was changed or deleted", ErrConcurrencyConflict, name, id)
	}
	return nil
}

func (u *UnitOfWork) publish(ctx context.Context, event *domain.ChangeEvent) {
	if u.bus == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to encode change event", "error", err)
		return
	}
	if err := u.bus.Publish(ctx, domain.TopicEntitiesChanged, payload); err != nil {
		slog.Warn("failed to publish change event", "error", err)
	}
}

func changeEvent(entries []*Entry, rows int) *domain.ChangeEvent {
	event := &domain.ChangeEvent{
		RowsAffected: rows,
		CommittedAt:  time.Now().UnixMilli(),
	}
	for _, en := range entries {
		switch en.state {
		case Added:
			event.Added++
		case Modified:
			event.Modified++
		case Deleted:
			event.Deleted++
		}
		if !slices.Contains(event.Tables, en.table.table) {
			event.Tables = append(event.Tables, en.table.table)
		}
		if en.table.links != nil && en.state != Deleted && len(en.table.links(en.entity)) > 0 &&
			!slices.Contains(event.Tables, productCategoriesTable) {
			event.Tables = append(event.Tables, productCategoriesTable)
		}
	}
	return event
}

func saveOutcome(err error) string {
	switch {
	case errors.Is(err, validation.ErrInvalid):
		return metrics.OutcomeInvalid
	case errors.Is(err, ErrConcurrencyConflict):
		return metrics.OutcomeConflict
	default:
		return metrics.OutcomeFailed
	}
}

func filterState(entries []*Entry, state EntityState) []*Entry {
	var out []*Entry
	for _, en := range entries {
		if en.state == state {
			out = append(out, en)
		}
	}
	return out
}

// DeleteDatabase drops every table and forgets all tracked entities.
func (u *UnitOfWork) DeleteDatabase(ctx context.Context) error {
	if err := u.ensureOpen(); err != nil {
		return err
	}
	u.tracker.reset()
	return u.store.Drop()
}

// CreateDatabase creates the schema when the database has none.
func (u *UnitOfWork) CreateDatabase(ctx context.Context) error {
	if err := u.ensureOpen(); err != nil {
		return err
	}
	return u.store.EnsureCreated()
}

// MigrateDatabase applies pending schema migrations.
func (u *UnitOfWork) MigrateDatabase(ctx context.Context) error {
	if err := u.ensureOpen(); err != nil {
		return err
	}
	return u.store.Migrate()
}

// Close discards staged changes and returns the connection to the pool.
// It is safe to call more than once.
func (u *UnitOfWork) Close() error {
	var err error
	u.closeOnce.Do(func() {
		u.closed = true
		u.tracker.reset()
		if u.tx != nil {
			_ = u.tx.Rollback()
			u.tx = nil
		}
		err = u.conn.Close()
	})
	return err
}

// spanFromContext is used by specialized repositories to annotate the active span.
func spanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}
