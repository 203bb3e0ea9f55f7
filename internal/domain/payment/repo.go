package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists the three payment ledgers. The flavor on the Payment
// selects the table.
type Repository interface {
	Insert(ctx context.Context, p *Payment) error
	// ByExternalReference looks the row up in the flavor's table.
	ByExternalReference(ctx context.Context, flavor, ref string) (*Payment, error)
	// ByGatewayPaymentID backs the webhook idempotency check.
	ByGatewayPaymentID(ctx context.Context, flavor, gatewayPaymentID string) (*Payment, error)
	// MarkPaid stamps the gateway payment id and settlement time.
	MarkPaid(ctx context.Context, flavor, ref, gatewayPaymentID string, at time.Time) error
	MarkFailed(ctx context.Context, flavor, ref, gatewayPaymentID string, at time.Time) error
	// ListByUser unions the caller's rows across the three ledgers:
	// subscriptions and remittances by user id, activations through the
	// user's dependents.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Payment, error)
	List(ctx context.Context, limit, offset int) ([]Payment, int, error)
}
