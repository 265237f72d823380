package store

import (
	"context"
	"database/sql"
	"fmt"
)

// querier is satisfied by both the pool and a single checked-out connection.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// UserTx is a user-state write transaction opened with BEGIN IMMEDIATE.
// SQLite grants the write lock at BEGIN, so a read followed by a write
// inside one UserTx cannot interleave with any other writer, in this
// process or another.
type UserTx struct {
	ctx  context.Context
	conn *sql.Conn
}

// WriteTx runs fn inside an immediate write transaction on one connection.
// The transaction commits if fn returns nil and rolls back otherwise.
func (db *DB) WriteTx(ctx context.Context, fn func(tx *UserTx) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("checkout conn: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("begin immediate: %w", err)
	}

	if err := fn(&UserTx{ctx: ctx, conn: conn}); err != nil {
		conn.ExecContext(context.Background(), "ROLLBACK")
		return err
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		conn.ExecContext(context.Background(), "ROLLBACK")
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetOrCreateUser is DB.GetOrCreateUser inside the transaction.
func (tx *UserTx) GetOrCreateUser(userID string) (*UserState, error) {
	return getOrCreateUser(tx.ctx, tx.conn, userID)
}

// Attachment is DB.Attachment inside the transaction.
func (tx *UserTx) Attachment(userID string) (AttachmentStyle, error) {
	return attachment(tx.ctx, tx.conn, userID)
}

// UpdateUser is DB.UpdateUser inside the transaction.
func (tx *UserTx) UpdateUser(userID string, fields Fields) error {
	return updateUser(tx.ctx, tx.conn, userID, fields)
}

// RecordMoodSample is DB.RecordMoodSample inside the transaction.
func (tx *UserTx) RecordMoodSample(s MoodSample) (bool, error) {
	return recordMoodSample(tx.ctx, tx.conn, s)
}
