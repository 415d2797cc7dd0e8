package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lib/pq"

	interfaces "github.com/sheikh-saqib/token-ledger/internal/interfaces"
	"github.com/sheikh-saqib/token-ledger/internal/models"
	"github.com/sheikh-saqib/token-ledger/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS token_operations (
	seq             BIGINT PRIMARY KEY,
	id              TEXT NOT NULL UNIQUE,
	idempotency_key TEXT UNIQUE,
	kind            TEXT NOT NULL,
	caller          TEXT NOT NULL,
	from_account    TEXT NOT NULL,
	to_account      TEXT NOT NULL,
	spender         TEXT NOT NULL,
	amount          NUMERIC(78, 0) NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_token_operations_caller ON token_operations (caller);
CREATE INDEX IF NOT EXISTS idx_token_operations_from ON token_operations (from_account);
CREATE INDEX IF NOT EXISTS idx_token_operations_to ON token_operations (to_account);
CREATE INDEX IF NOT EXISTS idx_token_operations_spender ON token_operations (spender);
`

const selectColumns = `seq, id, idempotency_key, kind, caller, from_account, to_account, spender, amount, created_at`

// uniqueViolation is the Postgres SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

type PostgresJournalStore struct {
	db *sql.DB
}

func NewPostgresJournalStore(db *sql.DB) *PostgresJournalStore {
	return &PostgresJournalStore{
		db: db,
	}
}

// Open connects to dsn and makes sure the journal table exists.
func Open(ctx context.Context, dsn string) (*PostgresJournalStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	p := NewPostgresJournalStore(db)
	if err := p.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

func (p *PostgresJournalStore) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate postgres journal: %w", err)
	}
	return nil
}

func (p *PostgresJournalStore) Close() error {
	return p.db.Close()
}

func (p *PostgresJournalStore) SaveOperation(ctx context.Context, op models.Operation) error {
	const query = `INSERT INTO token_operations
	(seq, id, idempotency_key, kind, caller, from_account, to_account, spender, amount, created_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`

	_, err := p.db.ExecContext(ctx, query,
		op.Seq,
		op.ID,
		sql.NullString{String: op.IdempotencyKey, Valid: op.IdempotencyKey != ""},
		string(op.Kind),
		op.Caller.Hex(),
		op.From.Hex(),
		op.To.Hex(),
		op.Spender.Hex(),
		op.Amount,
		op.CreatedAt,
	)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", storage.ErrDuplicateOperation, pqErr.Constraint)
	}
	return err
}

func (p *PostgresJournalStore) OperationExists(ctx context.Context, idempotencyKey string) (bool, error) {
	const query = `select 1 from token_operations where idempotency_key = $1 Limit 1`

	var exists int
	err := p.db.QueryRowContext(ctx, query, idempotencyKey).Scan(&exists)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

func (p *PostgresJournalStore) GetOperation(ctx context.Context, idempotencyKey string) (models.Operation, error) {
	query := `SELECT ` + selectColumns + ` FROM token_operations WHERE idempotency_key = $1`

	op, err := scanOperation(p.db.QueryRowContext(ctx, query, idempotencyKey))
	if err == sql.ErrNoRows {
		return models.Operation{}, storage.ErrOperationNotFound
	}
	return op, err
}

func (p *PostgresJournalStore) GetOperations(ctx context.Context) ([]models.Operation, error) {
	query := `SELECT ` + selectColumns + ` FROM token_operations ORDER BY seq`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (p *PostgresJournalStore) GetOperationsByAccount(ctx context.Context, account common.Address) ([]models.Operation, error) {
	query := `SELECT ` + selectColumns + ` FROM token_operations
	WHERE caller = $1 OR from_account = $1 OR to_account = $1 OR spender = $1
	ORDER BY seq`

	rows, err := p.db.QueryContext(ctx, query, account.Hex())
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOperation(row scanner) (models.Operation, error) {
	var (
		op                            models.Operation
		key                           sql.NullString
		kind, caller, from, to, spend string
	)
	err := row.Scan(&op.Seq, &op.ID, &key, &kind, &caller, &from, &to, &spend, &op.Amount, &op.CreatedAt)
	if err != nil {
		return models.Operation{}, err
	}
	op.IdempotencyKey = key.String
	op.Kind = models.OperationKind(kind)
	op.Caller = common.HexToAddress(caller)
	op.From = common.HexToAddress(from)
	op.To = common.HexToAddress(to)
	op.Spender = common.HexToAddress(spend)
	op.CreatedAt = op.CreatedAt.UTC()
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

var _ interfaces.JournalStore = (*PostgresJournalStore)(nil)
