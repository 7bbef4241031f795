package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Standard tracing fields, propagated through the call chain.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldSessionID is the wizard session ID
	FieldSessionID = "session_id"

	// FieldBatchID is the backend-assigned batch ID
	FieldBatchID = "batch_id"

	// FieldTemplateID is the selected template ID
	FieldTemplateID = "template_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"
)

// Standard metric fields, recorded on individual entries.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation status
	FieldStatus = "status"
)
