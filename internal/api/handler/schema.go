package handler

import "time"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

type syncEventRequest struct {
	ID        string         `json:"id"         validate:"omitempty,max=128"`
	Kind      string         `json:"kind"       validate:"required,eventkind"`
	Full      map[string]any `json:"full"       validate:"required"`
	Redacted  map[string]any `json:"redacted"`
	Targets   []string       `json:"targets"    validate:"omitempty,max=16,dive,channel"`
	PartnerID string         `json:"partner_id" validate:"omitempty,max=128"`
	Timestamp time.Time      `json:"timestamp"`
}

type acceptedResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
}

type flushResponse struct {
	Delivered int `json:"delivered"`
	Requeued  int `json:"requeued"`
	Dropped   int `json:"dropped"`
}
