package model

// ProgressEvent describes the state of an in-flight provisioning request
// as reported by the Provisioning Client. Failures beyond status and error
// code are opaque to this core.
type ProgressEvent struct {
	RequestToken    string    `json:"request_token"`
	Operation       Operation `json:"operation"`
	OperationStatus string    `json:"operation_status"`
	TypeName        string    `json:"type_name"`
	Identifier      string    `json:"identifier,omitempty"`
	StatusMessage   string    `json:"status_message,omitempty"`
	ErrorCode       string    `json:"error_code,omitempty"`
}

// Failed reports whether the provisioning request ended in failure.
func (e ProgressEvent) Failed() bool {
	return e.OperationStatus == "FAILED"
}

// ResourceDescription is a provisioned resource's identity and current
// property state.
type ResourceDescription struct {
	Identifier string         `json:"identifier"`
	Properties map[string]any `json:"properties"`
}

// PatchOp is a single JSON Patch operation in an UPDATE dispatch.
type PatchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}
