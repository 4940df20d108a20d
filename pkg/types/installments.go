package types

import (
	"database/sql/driver"
	"encoding/json"
)

// Installment is one entry of the schedule offered for card payments.
type Installment struct {
	Count       int   `json:"count"`
	AmountCents int64 `json:"amount_cents"`
}

// InstallmentSchedule persists as a JSON array.
type InstallmentSchedule []Installment

// Value serializes the schedule to JSON.
func (s InstallmentSchedule) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan decodes a JSON array into the schedule.
func (s *InstallmentSchedule) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded InstallmentSchedule
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*s = decoded
	return nil
}
