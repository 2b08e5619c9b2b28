// Package api - request and response types for the tariff endpoints
package api

import (
	"github.com/shopspring/decimal"

	"slab-tariff/core/tariff"
)

// ComputeRequest is the input to POST /dynamic-tariff/compute
type ComputeRequest struct {
	State    string `json:"state"`
	Category string `json:"category"`

	// Units accepts a JSON number or numeric string
	Units *decimal.Decimal `json:"units"`

	Season    string `json:"season,omitempty"`
	TimeOfDay string `json:"time_of_day,omitempty"`
}

// BillingContext converts the request, defaulting the category
func (r *ComputeRequest) BillingContext() tariff.BillingContext {
	category := r.Category
	if category == "" {
		category = tariff.DefaultCategory
	}
	return tariff.BillingContext{
		Jurisdiction: r.State,
		Category:     category,
		Season:       r.Season,
		TimeOfDay:    r.TimeOfDay,
	}
}

// ErrorBody is the error envelope
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request
type ErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	RequestID string                 `json:"request_id,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// JurisdictionsResponse is the output of GET /dynamic-tariff/jurisdictions
type JurisdictionsResponse struct {
	Jurisdictions []tariff.JurisdictionIndex `json:"jurisdictions"`
	Count         int                        `json:"count"`
}
