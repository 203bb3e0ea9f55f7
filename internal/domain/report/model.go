package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/convenio/convenio/internal/platform/apperr"
	"github.com/convenio/convenio/pkg/money"
)

// Range is an inclusive date interval. Every report is parameterized by one.
type Range struct {
	Start time.Time
	End   time.Time
}

func (r Range) Valid() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return apperr.New(apperr.ValidationFailed, "informe as datas de início e fim")
	}
	if r.End.Before(r.Start) {
		return apperr.New(apperr.ValidationFailed, "a data final não pode ser anterior à inicial")
	}
	return nil
}

// ProfessionalBreakdown is one row of the clinic revenue report. Revenue and
// Count come from the ledger; the takes are computed from the professional's
// current percentage.
type ProfessionalBreakdown struct {
	ProfessionalID   uuid.UUID   `json:"professional_id"`
	Name             string      `json:"name"`
	Percentage       int         `json:"percentage"`
	Count            int         `json:"count"`
	Revenue          money.Cents `json:"revenue"`
	ProfessionalTake money.Cents `json:"professional_take"`
	ClinicTake       money.Cents `json:"clinic_take"`
}

type ServiceBreakdown struct {
	ServiceID uuid.UUID   `json:"service_id"`
	Name      string      `json:"name"`
	Count     int         `json:"count"`
	Revenue   money.Cents `json:"revenue"`
}

type ClinicRevenue struct {
	Total          money.Cents             `json:"total"`
	Count          int                     `json:"count"`
	ByProfessional []ProfessionalBreakdown `json:"by_professional"`
	ByService      []ServiceBreakdown      `json:"by_service"`
}

// RevenueItem is one consultation on the professional's revenue report.
// OwedToClinic is zero for private-pay consultations.
type RevenueItem struct {
	ConsultationID uuid.UUID   `json:"consultation_id"`
	ScheduledAt    time.Time   `json:"scheduled_at"`
	PatientName    string      `json:"patient_name"`
	ServiceName    string      `json:"service_name"`
	Value          money.Cents `json:"value"`
	OwedToClinic   money.Cents `json:"owed_to_clinic"`
	Convenio       bool        `json:"convenio"`
}

type ProfessionalRevenue struct {
	Total        money.Cents   `json:"total"`
	OwedToClinic money.Cents   `json:"owed_to_clinic"`
	Items        []RevenueItem `json:"items"`
}

// ProfessionalDetail splits the professional's production between convênio
// and private-pay. AmountToPay is the clinic share of the convênio revenue.
type ProfessionalDetail struct {
	Percentage      int         `json:"percentage"`
	ConvenioCount   int         `json:"convenio_count"`
	ConvenioRevenue money.Cents `json:"convenio_revenue"`
	PrivateCount    int         `json:"private_count"`
	PrivateRevenue  money.Cents `json:"private_revenue"`
	AmountToPay     money.Cents `json:"amount_to_pay"`
}

type Cancellation struct {
	ConsultationID   uuid.UUID   `json:"consultation_id"`
	ProfessionalName string      `json:"professional_name"`
	PatientName      string      `json:"patient_name"`
	ServiceName      string      `json:"service_name"`
	LocationName     *string     `json:"location_name,omitempty"`
	Value            money.Cents `json:"value"`
	ScheduledAt      time.Time   `json:"scheduled_at"`
	CancelledAt      *time.Time  `json:"cancelled_at,omitempty"`
	CancelledByName  *string     `json:"cancelled_by_name,omitempty"`
	Reason           *string     `json:"reason,omitempty"`
}

// CityBucket is a geographic rollup. Breakdown keys are subscription
// statuses for clients and category names for professionals.
type CityBucket struct {
	City      string         `json:"city"`
	Total     int            `json:"total"`
	Breakdown map[string]int `json:"breakdown"`
}
