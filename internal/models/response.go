package models

// APIResponse is a generic API response wrapper
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(message string) APIResponse {
	return APIResponse{
		Success: false,
		Error:   message,
	}
}

// NewValidationErrorResponse creates a validation error response. A single
// field error is promoted to the top-level message so forms can show it inline.
func NewValidationErrorResponse(errors map[string]string) APIResponse {
	msg := "Validation failed"
	if len(errors) == 1 {
		for _, v := range errors {
			msg = v
		}
	}
	return APIResponse{
		Success: false,
		Error:   msg,
		Errors:  errors,
	}
}

// SlugSuggestionResponse is returned by the slug suggestion endpoint.
type SlugSuggestionResponse struct {
	Slug string `json:"slug"`
}
