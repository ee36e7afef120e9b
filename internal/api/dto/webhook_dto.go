package dto

// WebhookRequest is the body of subscription create and update calls.
// Enabled defaults to true when omitted.
type WebhookRequest struct {
	URL     string `json:"url"`
	Event   string `json:"event"`
	Enabled *bool  `json:"enabled"`
}

// TestDispatchRequest carries the payload for a manual connectivity test
type TestDispatchRequest struct {
	Payload map[string]any `json:"payload"`
}
