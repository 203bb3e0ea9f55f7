package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/convenio/convenio/pkg/money"
)

// ServiceCategory groups services; names are unique.
type ServiceCategory struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Service is a billable catalog entry. Price is stored in centavos.
type Service struct {
	ID         uuid.UUID   `db:"id" json:"id"`
	Name       string      `db:"name" json:"name"`
	CategoryID *uuid.UUID  `db:"category_id" json:"category_id,omitempty"`
	Price      money.Cents `db:"price" json:"price"`
	IsBase     bool        `db:"is_base" json:"is_base"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
}
