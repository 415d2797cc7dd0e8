package service

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sheikh-saqib/token-ledger/internal/models"
	"github.com/sheikh-saqib/token-ledger/internal/models/events"
)

type topicEvent struct {
	topic string
	event any
}

// eventsFor derives ERC20-style events from an applied operation. Approval
// events carry the allowance in force after the operation.
func (s *TokenService) eventsFor(op models.Operation) []topicEvent {
	transfer := func(from, to common.Address) topicEvent {
		return topicEvent{events.TopicTransfer, events.Transfer{
			OperationID: op.ID,
			Seq:         op.Seq,
			From:        from,
			To:          to,
			Value:       op.Amount,
			OccurredAt:  op.CreatedAt,
		}}
	}
	approval := func(owner, spender common.Address) topicEvent {
		return topicEvent{events.TopicApproval, events.Approval{
			OperationID: op.ID,
			Seq:         op.Seq,
			Owner:       owner,
			Spender:     spender,
			Value:       s.ledger.Allowance(owner, spender),
			OccurredAt:  op.CreatedAt,
		}}
	}

	switch op.Kind {
	case models.KindTransfer:
		return []topicEvent{transfer(op.From, op.To)}
	case models.KindTransferFrom:
		return []topicEvent{transfer(op.From, op.To), approval(op.From, op.Caller)}
	case models.KindApprove, models.KindIncreaseAllowance, models.KindDecreaseAllowance:
		return []topicEvent{approval(op.Caller, op.Spender)}
	case models.KindMint:
		return []topicEvent{transfer(common.Address{}, op.To)}
	case models.KindBurn:
		return []topicEvent{transfer(op.From, common.Address{})}
	case models.KindFinishMinting:
		return []topicEvent{{events.TopicMintingFinished, events.MintingFinished{
			OperationID: op.ID,
			Seq:         op.Seq,
			Minter:      op.Caller,
			OccurredAt:  op.CreatedAt,
		}}}
	}
	return nil
}

// publish is best-effort: the operation is already committed.
func (s *TokenService) publish(ctx context.Context, op models.Operation) {
	if s.publisher == nil {
		return
	}
	for _, e := range s.eventsFor(op) {
		if err := s.publisher.Publish(ctx, e.topic, e.event); err != nil {
			s.metrics.PublishFailed()
			s.logger.Warn("publish event", "topic", e.topic, "seq", op.Seq, "error", err)
		}
	}
}
