// Package payments simulates the external payment processor. Only the result
// of a charge matters to the enrollment flow.
package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DeclineToken is the payment token the simulator always declines.
const DeclineToken = "tok_decline"

var ErrMissingToken = errors.New("payments: missing payment token")

type Charge struct {
	UserID   uint
	CourseID uint
	Amount   decimal.Decimal
	Token    string
}

// Result is what the processor reports back for one charge.
type Result struct {
	Success       bool            `json:"success"`
	TransactionID string          `json:"transaction_id,omitempty"`
	CourseID      uint            `json:"course_id"`
	Amount        decimal.Decimal `json:"amount"`
	DeclineReason string          `json:"decline_reason,omitempty"`
	ProcessedAt   time.Time       `json:"processed_at"`
}

type Processor interface {
	Charge(ctx context.Context, charge Charge) (Result, error)
}

// Simulated waits Latency and then approves every charge except those paid
// with DeclineToken.
type Simulated struct {
	Latency time.Duration
	now     func() time.Time
}

func NewSimulated(latency time.Duration) *Simulated {
	return &Simulated{Latency: latency, now: time.Now}
}

func (s *Simulated) Charge(ctx context.Context, charge Charge) (Result, error) {
	if charge.Token == "" {
		return Result{}, ErrMissingToken
	}

	if s.Latency > 0 {
		timer := time.NewTimer(s.Latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Result{}, fmt.Errorf("charge course %d: %w", charge.CourseID, ctx.Err())
		case <-timer.C:
		}
	}

	result := Result{
		CourseID:    charge.CourseID,
		Amount:      charge.Amount,
		ProcessedAt: s.now().UTC(),
	}
	if charge.Token == DeclineToken {
		result.DeclineReason = "card_declined"
		return result, nil
	}

	result.Success = true
	result.TransactionID = "txn_" + uuid.NewString()
	return result, nil
}
