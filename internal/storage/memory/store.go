package memory

import (
	"context" // request-scoped context, unused in memory but part of the store interface
	"fmt"
	"sync" // Mutex guarding the journal

	"github.com/ethereum/go-ethereum/common"

	interfaces "github.com/sheikh-saqib/token-ledger/internal/interfaces"
	"github.com/sheikh-saqib/token-ledger/internal/models"
	"github.com/sheikh-saqib/token-ledger/internal/storage"
)

// MemoryJournalStore is an in-memory implementation of interfaces.JournalStore.
// Operations are kept in the order they were saved.
type MemoryJournalStore struct {
	mu         sync.Mutex         // protects operations and byKey
	operations []models.Operation // journal in seq order
	byKey      map[string]int     // idempotency key -> index into operations
}

// NewMemoryJournalStore creates an empty journal.
func NewMemoryJournalStore() *MemoryJournalStore {
	return &MemoryJournalStore{
		operations: make([]models.Operation, 0),
		byKey:      make(map[string]int),
	}
}

// SaveOperation appends op. Seq must grow and idempotency keys must be unique.
func (m *MemoryJournalStore) SaveOperation(ctx context.Context, op models.Operation) error {
	m.mu.Lock()         // lock the mutex to prevent concurrent writes
	defer m.mu.Unlock() // unlock automatically when function exits (even if error occurs)

	if n := len(m.operations); n > 0 && op.Seq <= m.operations[n-1].Seq {
		return fmt.Errorf("%w: seq %d after %d", storage.ErrDuplicateOperation, op.Seq, m.operations[n-1].Seq)
	}
	if op.IdempotencyKey != "" {
		if _, exists := m.byKey[op.IdempotencyKey]; exists {
			return fmt.Errorf("%w: idempotency key %q", storage.ErrDuplicateOperation, op.IdempotencyKey)
		}
		m.byKey[op.IdempotencyKey] = len(m.operations) // index of the op appended below
	}
	m.operations = append(m.operations, op)
	return nil
}

func (m *MemoryJournalStore) OperationExists(ctx context.Context, idempotencyKey string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, exists := m.byKey[idempotencyKey] // only keyed operations are indexed
	return exists, nil
}

func (m *MemoryJournalStore) GetOperation(ctx context.Context, idempotencyKey string) (models.Operation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, exists := m.byKey[idempotencyKey]
	if !exists {
		return models.Operation{}, storage.ErrOperationNotFound
	}
	return m.operations[i], nil
}

// GetOperations returns a copy so callers can't modify the journal.
func (m *MemoryJournalStore) GetOperations(ctx context.Context) ([]models.Operation, error) {
	m.mu.Lock()         // lock to prevent concurrent modification while reading
	defer m.mu.Unlock() // unlock automatically at the end

	// create a new slice to copy operations
	copied := make([]models.Operation, len(m.operations))
	copy(copied, m.operations)
	return copied, nil
}

func (m *MemoryJournalStore) GetOperationsByAccount(ctx context.Context, account common.Address) ([]models.Operation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []models.Operation
	for _, op := range m.operations {
		if op.Involves(account) {
			result = append(result, op)
		}
	}
	return result, nil
}

// Close is a no-op.
func (m *MemoryJournalStore) Close() error {
	return nil
}

// Compile-time check: ensure MemoryJournalStore implements JournalStore
var _ interfaces.JournalStore = (*MemoryJournalStore)(nil)
