package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrNoTransaction is returned by operations that may only run inside Store.Transaction.
	ErrNoTransaction = errors.New("operation requires an open transaction")
)

// Store hands out repositories that share one database handle. Inside
// Transaction the handle is the transaction itself, so every repository
// obtained from the scoped Store reads and writes through the same tx.
type Store struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

// NewStore creates a Store. lockTimeout bounds how long a transaction waits
// for a row lock on engines that support it; zero disables the bound.
func NewStore(db *gorm.DB, lockTimeout time.Duration) *Store {
	return &Store{db: db, lockTimeout: lockTimeout}
}

func (s *Store) Products() ProductRepository { return NewGORMProductRepository(s.db) }
func (s *Store) Users() UserRepository       { return NewGORMUserRepository(s.db) }
func (s *Store) Carts() CartRepository       { return NewGORMCartRepository(s.db) }
func (s *Store) Orders() OrderRepository     { return NewGORMOrderRepository(s.db) }
func (s *Store) Reports() ReportRepository   { return NewGORMReportRepository(s.db) }

// Inventory returns the stock ledger. Its methods fail with ErrNoTransaction
// unless the Store was obtained from Transaction.
func (s *Store) Inventory() InventoryLedger { return NewGORMInventoryLedger(s.db) }

// Transaction runs fn in a single database transaction: commit when fn
// returns nil, rollback on error or panic. The connection is released on
// every path.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.applyLockTimeout(tx); err != nil {
			return err
		}
		return fn(&Store{db: tx, lockTimeout: s.lockTimeout})
	})
}

func (s *Store) applyLockTimeout(tx *gorm.DB) error {
	if s.lockTimeout <= 0 || tx.Dialector.Name() != "postgres" {
		return nil
	}
	stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
	if err := tx.Exec(stmt).Error; err != nil {
		return fmt.Errorf("failed to set lock timeout: %w", err)
	}
	return nil
}

// IsBusy reports whether err means the database could not grant a lock in
// time (or aborted the transaction to resolve a conflict). Such failures
// are safe to retry.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03", // lock_not_available
			"40P01", // deadlock_detected
			"40001", // serialization_failure
			"57014": // query_canceled (statement timeout)
			return true
		}
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}

func inTransaction(db *gorm.DB) bool {
	_, ok := db.Statement.ConnPool.(gorm.TxCommitter)
	return ok
}
