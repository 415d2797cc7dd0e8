package interfaces

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sheikh-saqib/token-ledger/internal/models"
)

// JournalStore persists applied ledger operations in sequence order.
type JournalStore interface {
	SaveOperation(ctx context.Context, op models.Operation) error
	OperationExists(ctx context.Context, idempotencyKey string) (bool, error)
	GetOperation(ctx context.Context, idempotencyKey string) (models.Operation, error)
	GetOperations(ctx context.Context) ([]models.Operation, error)
	GetOperationsByAccount(ctx context.Context, account common.Address) ([]models.Operation, error)
}
