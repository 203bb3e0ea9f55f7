package payment

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/convenio/convenio/internal/domain/identity"
	"github.com/convenio/convenio/internal/domain/patients"
	"github.com/convenio/convenio/internal/platform/apperr"
	"github.com/convenio/convenio/internal/platform/gateway"
	"github.com/convenio/convenio/pkg/money"
)

// UserAccounts is the slice of identity the orchestrator needs.
type UserAccounts interface {
	Get(ctx context.Context, id uuid.UUID) (*identity.User, error)
	ActivateClient(ctx context.Context, id uuid.UUID, expiresAt time.Time) (*identity.User, error)
}

// DependentRegistry is the slice of patients the orchestrator needs.
type DependentRegistry interface {
	GetDependent(ctx context.Context, id uuid.UUID) (*patients.Dependent, error)
	CountDependents(ctx context.Context, clientID uuid.UUID) (int, error)
	ActivateDependent(ctx context.Context, id uuid.UUID, expiresAt time.Time, gatewayPaymentID string) error
}

// ReferralConverter flips the payer's referral on first settlement.
// Satisfied by the affiliate service.
type ReferralConverter interface {
	Convert(ctx context.Context, userID uuid.UUID) error
}

type Service struct {
	repo       Repository
	gateway    gateway.Client
	users      UserAccounts
	dependents DependentRegistry
	referrals  ReferralConverter
	baseURL    string
	log        zerolog.Logger
}

func NewService(repo Repository, gw gateway.Client, users UserAccounts, dependents DependentRegistry, referrals ReferralConverter, baseURL string, log zerolog.Logger) *Service {
	return &Service{
		repo:       repo,
		gateway:    gw,
		users:      users,
		dependents: dependents,
		referrals:  referrals,
		baseURL:    baseURL,
		log:        log.With().Str("component", "payment").Logger(),
	}
}

// Intent is what the UI needs to redirect the payer to checkout.
type Intent struct {
	PreferenceID      string      `json:"preference_id"`
	InitPoint         string      `json:"init_point"`
	Amount            money.Cents `json:"amount"`
	ExternalReference string      `json:"external_reference"`
}

func (s *Service) createIntent(ctx context.Context, flavor string, payerID, targetID uuid.UUID, amount money.Cents, title, payerEmail string) (*Intent, error) {
	ref := newExternalReference(flavor, targetID)
	pref, err := s.gateway.CreatePreference(ctx, gateway.PreferenceRequest{
		Items:             []gateway.PreferenceItem{{Title: title, Quantity: 1, UnitPrice: amount}},
		ExternalReference: ref,
		PayerEmail:        payerEmail,
		SuccessURL:        s.baseURL + "/payment/success",
		FailureURL:        s.baseURL + "/payment/failure",
		PendingURL:        s.baseURL + "/payment/pending",
		NotificationURL:   s.baseURL + "/api/webhooks/mercadopago",
	})
	if err != nil {
		return nil, err
	}
	p := &Payment{
		Flavor:            flavor,
		PayerID:           payerID,
		Amount:            amount,
		ExternalReference: ref,
		PreferenceID:      &pref.ID,
	}
	if err := s.repo.Insert(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info().Str("flavor", flavor).Str("external_reference", ref).
		Int64("amount_centavos", int64(amount)).Msg("payment intent created")
	return &Intent{
		PreferenceID:      pref.ID,
		InitPoint:         pref.InitPoint,
		Amount:            amount,
		ExternalReference: ref,
	}, nil
}

// CreateSubscription mints a checkout for the caller's membership. The price
// covers the client plus every registered dependent.
func (s *Service) CreateSubscription(ctx context.Context, userID uuid.UUID) (*Intent, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	count, err := s.dependents.CountDependents(ctx, userID)
	if err != nil {
		return nil, err
	}
	email := ""
	if user.Email != nil {
		email = *user.Email
	}
	return s.createIntent(ctx, FlavorSubscription, userID, userID,
		SubscriptionAmount(count), "Assinatura do convênio", email)
}

// CreateDependentPayment mints a checkout activating one dependent. Only the
// owning client (or an admin) may pay for a dependent.
func (s *Service) CreateDependentPayment(ctx context.Context, callerID uuid.UUID, admin bool, dependentID uuid.UUID) (*Intent, error) {
	dep, err := s.dependents.GetDependent(ctx, dependentID)
	if err != nil {
		return nil, err
	}
	if !admin && dep.ClientID != callerID {
		return nil, apperr.New(apperr.Forbidden, "dependente pertence a outro titular")
	}
	payer, err := s.users.Get(ctx, dep.ClientID)
	if err != nil {
		return nil, err
	}
	email := ""
	if payer.Email != nil {
		email = *payer.Email
	}
	return s.createIntent(ctx, FlavorDependent, dependentID, dependentID,
		DependentAmount(), "Ativação de dependente", email)
}

// CreateProfessionalPayment mints a remittance checkout with a
// caller-supplied amount.
func (s *Service) CreateProfessionalPayment(ctx context.Context, professionalID uuid.UUID, amount money.Cents) (*Intent, error) {
	if amount <= 0 {
		return nil, apperr.New(apperr.ValidationFailed, "informe um valor maior que zero")
	}
	prof, err := s.users.Get(ctx, professionalID)
	if err != nil {
		return nil, err
	}
	email := ""
	if prof.Email != nil {
		email = *prof.Email
	}
	return s.createIntent(ctx, FlavorProfessional, professionalID, professionalID,
		amount, "Repasse profissional", email)
}

// Notification is the webhook payload after normalization.
type Notification struct {
	Type      string
	PaymentID int64
}

// HandleWebhook reconciles a gateway notification. The payload is never
// trusted: the payment detail is re-fetched by id. Deliveries for an already
// settled gateway payment id are no-ops, which makes provider retries safe.
func (s *Service) HandleWebhook(ctx context.Context, n Notification) error {
	if n.Type != "payment" {
		return nil
	}
	if n.PaymentID == 0 {
		return apperr.New(apperr.ValidationFailed, "notificação sem o identificador do pagamento")
	}

	pay, err := s.gateway.FetchPayment(ctx, n.PaymentID)
	if err != nil {
		return err
	}

	flavor, targetID, err := parseExternalReference(pay.ExternalReference)
	if err != nil {
		// Not a reference we minted. Acknowledge so the provider stops
		// retrying a notification we can never process.
		s.log.Warn().Str("external_reference", pay.ExternalReference).
			Msg("webhook for unknown external reference ignored")
		return nil
	}

	gwID := strconv.FormatInt(pay.ID, 10)
	if existing, err := s.repo.ByGatewayPaymentID(ctx, flavor, gwID); err == nil {
		if existing.Status == StatusPaid {
			return nil
		}
	} else if !apperr.Is(err, apperr.NotFound) {
		return err
	}

	now := time.Now()
	if !pay.Approved() {
		switch pay.Status {
		case "rejected", "cancelled", "refunded", "charged_back":
			return s.repo.MarkFailed(ctx, flavor, pay.ExternalReference, gwID, now)
		}
		// pending / in_process: wait for the next notification.
		return nil
	}

	expiry := now.Add(subscriptionHorizon)
	switch flavor {
	case FlavorSubscription:
		if _, err := s.users.ActivateClient(ctx, targetID, expiry); err != nil {
			return err
		}
		if err := s.referrals.Convert(ctx, targetID); err != nil {
			return err
		}
	case FlavorDependent:
		if err := s.dependents.ActivateDependent(ctx, targetID, expiry, gwID); err != nil {
			return err
		}
	case FlavorProfessional:
		// Nothing beyond the ledger row.
	}

	if err := s.repo.MarkPaid(ctx, flavor, pay.ExternalReference, gwID, now); err != nil {
		return err
	}
	s.log.Info().Str("flavor", flavor).Str("gateway_payment_id", gwID).
		Str("external_reference", pay.ExternalReference).Msg("payment settled")
	return nil
}

// ListMine returns every payment the user is payer of, across the three
// ledgers.
func (s *Service) ListMine(ctx context.Context, userID uuid.UUID) ([]Payment, error) {
	return s.repo.ListByUser(ctx, userID)
}

// All lists every payment, paginated. Admin only.
func (s *Service) All(ctx context.Context, limit, offset int) ([]Payment, int, error) {
	return s.repo.List(ctx, limit, offset)
}
