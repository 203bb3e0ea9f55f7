package payment

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/convenio/convenio/internal/platform/apperr"
	"github.com/convenio/convenio/pkg/money"
)

// Intent flavors. Each flavor lives in its own ledger table but shares the
// Payment shape.
const (
	FlavorSubscription = "client_subscription"
	FlavorDependent    = "dependent_activation"
	FlavorProfessional = "professional_remittance"
)

const (
	StatusPending = "pending"
	StatusPaid    = "paid"
	StatusFailed  = "failed"
)

// Monthly membership prices in centavos.
const (
	subscriptionBase = 25000
	dependentFee     = 5000
)

// subscriptionHorizon is how far a settled payment pushes the expiry.
const subscriptionHorizon = 30 * 24 * time.Hour

// SubscriptionAmount prices a client subscription covering n dependents.
func SubscriptionAmount(dependents int) money.Cents {
	return money.Cents(subscriptionBase + dependentFee*dependents)
}

// DependentAmount prices a single dependent activation.
func DependentAmount() money.Cents {
	return money.Cents(dependentFee)
}

// Payment is one row of a payment ledger. PayerID is the user for
// subscriptions and remittances and the dependent for activations.
type Payment struct {
	ID                uuid.UUID   `db:"id" json:"id"`
	Flavor            string      `db:"-" json:"flavor"`
	PayerID           uuid.UUID   `db:"payer_id" json:"payer_id"`
	Amount            money.Cents `db:"amount" json:"amount"`
	ExternalReference string      `db:"external_reference" json:"external_reference"`
	PreferenceID      *string     `db:"preference_id" json:"preference_id,omitempty"`
	GatewayPaymentID  *string     `db:"gateway_payment_id" json:"gateway_payment_id,omitempty"`
	Status            string      `db:"status" json:"status"`
	CreatedAt         time.Time   `db:"created_at" json:"created_at"`
	ProcessedAt       *time.Time  `db:"processed_at" json:"processed_at,omitempty"`
}

// external_reference prefixes, one per flavor. The reference round-trips
// through the gateway verbatim and is how webhook notifications find their
// local row.
var refPrefixes = map[string]string{
	FlavorSubscription: "subscription",
	FlavorDependent:    "dependent",
	FlavorProfessional: "professional",
}

func newExternalReference(flavor string, targetID uuid.UUID) string {
	return fmt.Sprintf("%s_%s_%d", refPrefixes[flavor], targetID, time.Now().UnixMilli())
}

// parseExternalReference recovers the flavor and target id from a reference
// minted by newExternalReference.
func parseExternalReference(ref string) (flavor string, targetID uuid.UUID, err error) {
	parts := strings.SplitN(ref, "_", 3)
	if len(parts) != 3 {
		return "", uuid.Nil, apperr.New(apperr.ValidationFailed,
			fmt.Sprintf("referência externa inválida: %q", ref))
	}
	for fl, prefix := range refPrefixes {
		if parts[0] == prefix {
			flavor = fl
			break
		}
	}
	if flavor == "" {
		return "", uuid.Nil, apperr.New(apperr.ValidationFailed,
			fmt.Sprintf("referência externa com prefixo desconhecido: %q", ref))
	}
	targetID, parseErr := uuid.Parse(parts[1])
	if parseErr != nil {
		return "", uuid.Nil, apperr.Wrap(apperr.ValidationFailed, "referência externa com identificador inválido", parseErr)
	}
	return flavor, targetID, nil
}
