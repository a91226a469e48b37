package models

// MessageResponse is returned by operations that only report an outcome
type MessageResponse struct {
	Message string `json:"message"`
}
