package models

// DeliveryMode selects how records are forwarded to a webhook
type DeliveryMode string

const (
	DeliveryModeBulk       DeliveryMode = "bulk"
	DeliveryModeIndividual DeliveryMode = "individual"
)

// IsValid reports whether the mode is one of the supported delivery modes
func (m DeliveryMode) IsValid() bool {
	return m == DeliveryModeBulk || m == DeliveryModeIndividual
}

// BulkPayload is the single document POSTed in bulk mode
type BulkPayload struct {
	Timestamp    string    `json:"timestamp"`
	TotalResults int       `json:"total_results"`
	Data         ResultSet `json:"data"`
}

// IndividualPayload is the document POSTed once per record in individual mode
type IndividualPayload struct {
	Timestamp    string `json:"timestamp"`
	RecordNumber int    `json:"record_number"`
	TotalRecords int    `json:"total_records"`
	Data         Record `json:"data"`
}

// DeliveryOutcome reports the result of a webhook delivery. Failures are
// carried as values so callers can always render a status message.
type DeliveryOutcome struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Mode    DeliveryMode `json:"mode"`
	Sent    int          `json:"sent"`
	Failed  int          `json:"failed"`
}
