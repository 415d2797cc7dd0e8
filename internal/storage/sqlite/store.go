package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mattn/go-sqlite3"

	interfaces "github.com/sheikh-saqib/token-ledger/internal/interfaces"
	"github.com/sheikh-saqib/token-ledger/internal/models"
	"github.com/sheikh-saqib/token-ledger/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS token_operations (
	seq             INTEGER PRIMARY KEY,
	id              TEXT NOT NULL UNIQUE,
	idempotency_key TEXT UNIQUE,
	kind            TEXT NOT NULL,
	caller          TEXT NOT NULL,
	from_account    TEXT NOT NULL,
	to_account      TEXT NOT NULL,
	spender         TEXT NOT NULL,
	amount          TEXT NOT NULL,
	created_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_token_operations_caller ON token_operations (caller);
CREATE INDEX IF NOT EXISTS idx_token_operations_from ON token_operations (from_account);
CREATE INDEX IF NOT EXISTS idx_token_operations_to ON token_operations (to_account);
CREATE INDEX IF NOT EXISTS idx_token_operations_spender ON token_operations (spender);
`

const selectColumns = `seq, id, idempotency_key, kind, caller, from_account, to_account, spender, amount, created_at`

// SQLiteJournalStore keeps the journal in a single SQLite file.
type SQLiteJournalStore struct {
	db *sql.DB
}

// Open creates or opens the database at path, applies pragmas and the schema.
// Safe to call repeatedly on the same file.
func Open(path string) (*SQLiteJournalStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteJournalStore{db: db}, nil
}

func (s *SQLiteJournalStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteJournalStore) SaveOperation(ctx context.Context, op models.Operation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO token_operations
		(seq, id, idempotency_key, kind, caller, from_account, to_account, spender, amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		op.Seq,
		op.ID,
		sql.NullString{String: op.IdempotencyKey, Valid: op.IdempotencyKey != ""},
		string(op.Kind),
		op.Caller.Hex(),
		op.From.Hex(),
		op.To.Hex(),
		op.Spender.Hex(),
		op.Amount.String(),
		op.CreatedAt.UTC().Format(time.RFC3339Nano),
	)

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%w: %v", storage.ErrDuplicateOperation, sqliteErr)
	}
	if err != nil {
		return fmt.Errorf("save operation: %w", err)
	}
	return nil
}

func (s *SQLiteJournalStore) OperationExists(ctx context.Context, idempotencyKey string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM token_operations WHERE idempotency_key = ? LIMIT 1`, idempotencyKey,
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("operation exists: %w", err)
	}
	return true, nil
}

func (s *SQLiteJournalStore) GetOperation(ctx context.Context, idempotencyKey string) (models.Operation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM token_operations WHERE idempotency_key = ?`, idempotencyKey)

	op, err := scanOperation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Operation{}, storage.ErrOperationNotFound
	}
	return op, err
}

func (s *SQLiteJournalStore) GetOperations(ctx context.Context) ([]models.Operation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM token_operations ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("get operations: %w", err)
	}
	return collect(rows)
}

func (s *SQLiteJournalStore) GetOperationsByAccount(ctx context.Context, account common.Address) ([]models.Operation, error) {
	hex := account.Hex()
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+selectColumns+` FROM token_operations
		WHERE caller = ? OR from_account = ? OR to_account = ? OR spender = ?
		ORDER BY seq ASC
	`, hex, hex, hex, hex)
	if err != nil {
		return nil, fmt.Errorf("get operations by account: %w", err)
	}
	return collect(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOperation(row scanner) (models.Operation, error) {
	var (
		op                                       models.Operation
		key                                      sql.NullString
		kind, caller, from, to, spend, createdAt string
	)
	err := row.Scan(&op.Seq, &op.ID, &key, &kind, &caller, &from, &to, &spend, &op.Amount, &createdAt)
	if err != nil {
		return models.Operation{}, err
	}

	op.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return models.Operation{}, fmt.Errorf("parse created_at of seq %d: %w", op.Seq, err)
	}
	op.IdempotencyKey = key.String
	op.Kind = models.OperationKind(kind)
	op.Caller = common.HexToAddress(caller)
	op.From = common.HexToAddress(from)
	op.To = common.HexToAddress(to)
	op.Spender = common.HexToAddress(spend)
	return op, nil
}

func collect(rows *sql.Rows) ([]models.Operation, error) {
	defer rows.Close()

	var ops []models.Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ops, nil
}

var _ interfaces.JournalStore = (*SQLiteJournalStore)(nil)
