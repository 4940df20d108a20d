package gateway

import (
	"github.com/shopspring/decimal"
)

// LinkItem is one purchasable line on a hosted payment link. Metadata must
// carry product_id so the payment confirmation can be mapped back to the
// catalog.
type LinkItem struct {
	Name      string            `json:"name"`
	Quantity  int               `json:"quantity"`
	UnitPrice decimal.Decimal   `json:"unit_amount"`
	Metadata  map[string]string `json:"metadata"`
}

// LinkInstallment is one entry of the offered installment plan.
type LinkInstallment struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// LinkCustomer identifies the payer.
type LinkCustomer struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Document string `json:"document"`
}

// LinkShipping describes the freight charged on the link.
type LinkShipping struct {
	Carrier       string          `json:"carrier"`
	Service       string          `json:"service"`
	Amount        decimal.Decimal `json:"amount"`
	LeadTimeDays  int             `json:"lead_time_days"`
	PostalCode    string          `json:"postal_code,omitempty"`
	StreetAddress string          `json:"street_address,omitempty"`
}

// LinkRequest is the payload for creating a hosted payment link. Amounts are
// decimal currency units, converted from minor units by the caller helpers.
type LinkRequest struct {
	IdempotencyKey string            `json:"-"`
	Currency       string            `json:"currency"`
	Amount         decimal.Decimal   `json:"amount"`
	Items          []LinkItem        `json:"items"`
	Installments   []LinkInstallment `json:"installments"`
	Customer       LinkCustomer      `json:"customer"`
	Shipping       *LinkShipping     `json:"shipping,omitempty"`
	RedirectURL    string            `json:"redirect_url"`
	Metadata       map[string]string `json:"metadata"`
}

// Link is the hosted payment link returned by the gateway.
type Link struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Money converts integer minor units into a two-place decimal amount.
func Money(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// Cents converts a decimal currency amount to minor units, rounding half away
// from zero.
func Cents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
