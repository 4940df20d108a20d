package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Address is the delivery address stored on customers and snapshotted onto
// orders as JSON.
type Address struct {
	Street       string  `json:"street" validate:"required"`
	Number       string  `json:"number" validate:"required"`
	Complement   *string `json:"complement,omitempty"`
	Neighborhood string  `json:"neighborhood"`
	City         string  `json:"city" validate:"required"`
	State        string  `json:"state" validate:"required,len=2"`
	PostalCode   string  `json:"postal_code" validate:"required"`
	Country      string  `json:"country"`
}

// IsZero reports whether no address has been recorded.
func (a Address) IsZero() bool {
	return strings.TrimSpace(a.Street) == "" && strings.TrimSpace(a.PostalCode) == ""
}

// Validate checks the fields every shipment needs.
func (a Address) Validate() error {
	switch {
	case strings.TrimSpace(a.Street) == "":
		return fmt.Errorf("address: missing street")
	case strings.TrimSpace(a.City) == "":
		return fmt.Errorf("address: missing city")
	case strings.TrimSpace(a.State) == "":
		return fmt.Errorf("address: missing state")
	case NormalizePostalCode(a.PostalCode) == "":
		return fmt.Errorf("address: missing postal_code")
	}
	return nil
}

// NormalizePostalCode strips everything but digits ("01310-100" -> "01310100").
func NormalizePostalCode(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Value serializes the address to JSON.
func (a Address) Value() (driver.Value, error) {
	if a.Country == "" {
		a.Country = "BR"
	}
	return json.Marshal(a)
}

// Scan decodes a JSON column into the address.
func (a *Address) Scan(value interface{}) error {
	if value == nil {
		*a = Address{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return fmt.Errorf("address: %w", err)
	}
	if len(raw) == 0 {
		*a = Address{}
		return nil
	}
	return json.Unmarshal(raw, a)
}

func asJSON(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported scan type %T", value)
	}
}
