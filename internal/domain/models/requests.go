package models

// Requests for engine HTTP endpoints. Defined in domain for consistency and reuse.

type RegisterForecasterRequest struct {
	ForecasterID string `json:"forecaster_id" validate:"required,min=1,max=255"`
	DisplayName  string `json:"display_name" validate:"required,min=1,max=255"`
}

type SubmitForecastRequest struct {
	ForecasterID string  `json:"forecaster_id" validate:"required"`
	EventID      string  `json:"event_id" validate:"required"`
	Probability  float64 `json:"probability" validate:"gte=0,lte=1"`
	Confidence   string  `json:"confidence" default:"medium" validate:"oneof=high medium low"`
	Rationale    string  `json:"rationale" validate:"max=2000"`

	// Optional metadata used when the event is first observed here.
	EventTitle    string   `json:"event_title" validate:"max=1000"`
	EventCategory string   `json:"event_category" validate:"max=100"`
	EventPrice    *float64 `json:"event_price" validate:"omitempty,gte=0,lte=1"`
}

type LeaderboardRequest struct {
	Metric string `query:"metric" json:"metric" default:"reputation" validate:"oneof=reputation volume calibration"`
	Window string `query:"window" json:"window" default:"all" validate:"oneof=all 30d 7d"`
	Limit  int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=100"`
}
