// Package storagetest holds the behaviour every JournalStore must share.
package storagetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	interfaces "github.com/sheikh-saqib/token-ledger/internal/interfaces"
	"github.com/sheikh-saqib/token-ledger/internal/models"
	"github.com/sheikh-saqib/token-ledger/internal/storage"
)

var (
	Alice = common.HexToAddress("0xA11CE00000000000000000000000000000000001")
	Bob   = common.HexToAddress("0xB0B0000000000000000000000000000000000002")
	Carol = common.HexToAddress("0xCA40100000000000000000000000000000000003")
)

// Operation builds a journaled operation with a deterministic ID and time.
func Operation(seq int64, op models.Operation) models.Operation {
	op.Seq = seq
	op.ID = fmt.Sprintf("op-%d", seq)
	op.CreatedAt = time.Date(2026, 3, 1, 12, 0, int(seq), 0, time.UTC)
	return op
}

// Run exercises a JournalStore created fresh for every subtest.
func Run(t *testing.T, newStore func(t *testing.T) interfaces.JournalStore) {
	ctx := context.Background()

	t.Run("empty", func(t *testing.T) {
		s := newStore(t)
		ops, err := s.GetOperations(ctx)
		require.NoError(t, err)
		assert.Empty(t, ops)

		exists, err := s.OperationExists(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = s.GetOperation(ctx, "missing")
		assert.ErrorIs(t, err, storage.ErrOperationNotFound)
	})

	t.Run("round trip keeps order and fields", func(t *testing.T) {
		s := newStore(t)
		big := decimal.RequireFromString("900000000000000000000000000000000000")

		transfer := Operation(1, models.NewTransfer(Alice, Bob, big))
		transfer.IdempotencyKey = "key-1"
		approve := Operation(2, models.NewApprove(Bob, Carol, decimal.NewFromInt(5)))
		spend := Operation(3, models.NewTransferFrom(Carol, Bob, Alice, decimal.NewFromInt(2)))

		for _, op := range []models.Operation{transfer, approve, spend} {
			require.NoError(t, s.SaveOperation(ctx, op))
		}

		ops, err := s.GetOperations(ctx)
		require.NoError(t, err)
		require.Len(t, ops, 3)
		for i, want := range []models.Operation{transfer, approve, spend} {
			got := ops[i]
			assert.Equal(t, want.Seq, got.Seq)
			assert.Equal(t, want.ID, got.ID)
			assert.Equal(t, want.IdempotencyKey, got.IdempotencyKey)
			assert.Equal(t, want.Kind, got.Kind)
			assert.Equal(t, want.Caller, got.Caller)
			assert.Equal(t, want.From, got.From)
			assert.Equal(t, want.To, got.To)
			assert.Equal(t, want.Spender, got.Spender)
			assert.True(t, want.Amount.Equal(got.Amount), "amount %s != %s", want.Amount, got.Amount)
			assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "created_at %s != %s", want.CreatedAt, got.CreatedAt)
		}
	})

	t.Run("idempotency key lookup", func(t *testing.T) {
		s := newStore(t)
		op := Operation(1, models.NewMint(Alice, Bob, decimal.NewFromInt(9)))
		op.IdempotencyKey = "mint-1"
		require.NoError(t, s.SaveOperation(ctx, op))

		exists, err := s.OperationExists(ctx, "mint-1")
		require.NoError(t, err)
		assert.True(t, exists)

		got, err := s.GetOperation(ctx, "mint-1")
		require.NoError(t, err)
		assert.Equal(t, op.ID, got.ID)
		assert.Equal(t, models.KindMint, got.Kind)
	})

	t.Run("duplicate key rejected", func(t *testing.T) {
		s := newStore(t)
		first := Operation(1, models.NewTransfer(Alice, Bob, decimal.NewFromInt(1)))
		first.IdempotencyKey = "same"
		second := Operation(2, models.NewTransfer(Alice, Bob, decimal.NewFromInt(1)))
		second.IdempotencyKey = "same"

		require.NoError(t, s.SaveOperation(ctx, first))
		assert.ErrorIs(t, s.SaveOperation(ctx, second), storage.ErrDuplicateOperation)

		ops, err := s.GetOperations(ctx)
		require.NoError(t, err)
		assert.Len(t, ops, 1)
	})

	t.Run("duplicate seq rejected", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SaveOperation(ctx, Operation(1, models.NewFinishMinting(Alice))))
		assert.ErrorIs(t, s.SaveOperation(ctx, Operation(1, models.NewFinishMinting(Alice))), storage.ErrDuplicateOperation)
	})

	t.Run("operations without key", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SaveOperation(ctx, Operation(1, models.NewTransfer(Alice, Bob, decimal.NewFromInt(1)))))
		require.NoError(t, s.SaveOperation(ctx, Operation(2, models.NewTransfer(Alice, Bob, decimal.NewFromInt(1)))))

		exists, err := s.OperationExists(ctx, "")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("by account", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SaveOperation(ctx, Operation(1, models.NewTransfer(Alice, Bob, decimal.NewFromInt(1)))))
		require.NoError(t, s.SaveOperation(ctx, Operation(2, models.NewApprove(Bob, Carol, decimal.NewFromInt(1)))))
		require.NoError(t, s.SaveOperation(ctx, Operation(3, models.NewBurn(Alice, Alice, decimal.NewFromInt(1)))))

		carol, err := s.GetOperationsByAccount(ctx, Carol)
		require.NoError(t, err)
		require.Len(t, carol, 1)
		assert.Equal(t, int64(2), carol[0].Seq)

		bob, err := s.GetOperationsByAccount(ctx, Bob)
		require.NoError(t, err)
		require.Len(t, bob, 2)
		assert.Equal(t, int64(1), bob[0].Seq)
		assert.Equal(t, int64(2), bob[1].Seq)

		alice, err := s.GetOperationsByAccount(ctx, Alice)
		require.NoError(t, err)
		assert.Len(t, alice, 2)
	})
}
