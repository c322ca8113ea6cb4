package types

// ErrorBody is the JSON error payload returned by every endpoint.
type ErrorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// MutationResult acknowledges a successful write.
type MutationResult struct {
	Success   bool   `json:"success"`
	ProductID *int64 `json:"productId,omitempty"`
	Message   string `json:"message"`
}

// Acknowledge builds a MutationResult with success set.
func Acknowledge(message string) MutationResult {
	return MutationResult{Success: true, Message: message}
}
