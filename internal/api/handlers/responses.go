package handlers

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Error string `json:"error" example:"camera not found"`
}

// SuccessResponse is returned by endpoints that have nothing else to report.
type SuccessResponse struct {
	Message string `json:"message" example:"Camera stopped successfully"`
}
