package models

// Requests for the HTTP query endpoints.

type SignalsRequest struct {
	TF    string `query:"tf" json:"tf" validate:"omitempty,oneof=1m 5m 15m 1h 4h 1d"`
	Limit int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=200"`
	Since string `query:"since" json:"since"` // RFC3339, unix seconds or unix ms
}

type OutcomesRequest struct {
	TF string `query:"tf" json:"tf" validate:"omitempty,oneof=1m 5m 15m 1h 4h 1d"`
}

type CandlesRequest struct {
	TF    string `query:"tf" json:"tf" default:"5m" validate:"oneof=1m 5m 15m 1h 4h 1d"`
	Limit int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=600"`
}
