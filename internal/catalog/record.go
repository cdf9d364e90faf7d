// Package catalog holds the static HS code catalog and its keyword search.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// TariffRecord is one row of the tariff catalog.
type TariffRecord struct {
	Code   string `json:"hsCode"`
	NameEN string `json:"en"`
	NameTH string `json:"th"`
	Duty   Rate   `json:"no"`
	FE     Rate   `json:"fe"`

	// Override marks a synthetic record built from a user correction.
	Override bool `json:"-"`
}

// Rate is a duty or fee value as published in the catalog files, where it
// may be a string ("5%", "Free"), a number or null.
type Rate struct {
	Value string
	Valid bool
}

// NewRate returns a set Rate.
func NewRate(v string) Rate {
	return Rate{Value: v, Valid: true}
}

func (r *Rate) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = Rate{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("rate string: %w", err)
		}
		*r = Rate{Value: s, Valid: true}
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("rate number: %w", err)
	}
	if f, err := n.Float64(); err == nil {
		*r = Rate{Value: strconv.FormatFloat(f, 'f', -1, 64), Valid: true}
		return nil
	}
	*r = Rate{Value: n.String(), Valid: true}
	return nil
}

func (r Rate) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(r.Value)
}

// String renders the rate for display, "-" when it is missing or blank.
func (r Rate) String() string {
	if !r.Valid || r.Value == "" {
		return "-"
	}
	return r.Value
}
