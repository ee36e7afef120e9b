// Package jobs defines the background job kinds and the queue message that
// carries a job from the API service to the worker service.
package jobs

// Job kinds sharing the progress state machine
const (
	KindImport     = "import"
	KindBulkDelete = "bulk_delete"
)

// KnownKind reports whether kind is a recognized job kind
func KnownKind(kind string) bool {
	return kind == KindImport || kind == KindBulkDelete
}

// Message is the payload published to RabbitMQ when a job is submitted.
// FilePath is set for import jobs only and points at the spooled CSV upload.
type Message struct {
	JobID    string `json:"job_id"`
	Kind     string `json:"kind"`
	FilePath string `json:"file_path,omitempty"`

	// DeliveryTag tracks the AMQP delivery for ack/nack; never serialized.
	DeliveryTag uint64 `json:"-"`
}
