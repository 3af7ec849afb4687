package payments

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lromero/storefront-backend/pkg/enums"
	pkgerrors "github.com/lromero/storefront-backend/pkg/errors"
)

// ChargeRequest is a single payment attempt. IdempotencyKey must be unique
// per checkout so a gateway retry on our side cannot double-charge.
type ChargeRequest struct {
	Amount         decimal.Decimal
	Currency       string
	Method         enums.PaymentMethod
	CustomerID     uuid.UUID
	IdempotencyKey string
}

// ChargeResult is a successful charge. Failed charges come back as errors
// with code PAYMENT_FAILED; callers must not materialize anything on error.
type ChargeResult struct {
	Reference string
	ChargedAt time.Time
}

// Gateway is the payment provider boundary. Exactly one Charge call is made
// per checkout attempt.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

// Simulator is the development and test gateway. It approves everything by
// default; a card method whose idempotency key carries the decline marker is
// declined, which gives tests a deterministic failure path.
type Simulator struct {
	latency time.Duration
}

// DeclineMarker in an idempotency key forces the simulator to decline.
const DeclineMarker = "decline"

func NewSimulator(latency time.Duration) *Simulator {
	return &Simulator{latency: latency}
}

func (s *Simulator) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if req.Amount.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charge amount must be positive")
	}
	if !req.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method")
	}

	if s.latency > 0 {
		select {
		case <-time.After(s.latency):
		case <-ctx.Done():
			return nil, pkgerrors.Wrap(pkgerrors.CodePaymentFailed, ctx.Err(), "payment attempt timed out")
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePaymentFailed, err, "payment attempt timed out")
	}

	if strings.Contains(req.IdempotencyKey, DeclineMarker) {
		return nil, pkgerrors.New(pkgerrors.CodePaymentFailed, "card declined by issuer")
	}

	return &ChargeResult{
		Reference: "sim_" + uuid.NewString(),
		ChargedAt: time.Now().UTC(),
	}, nil
}
