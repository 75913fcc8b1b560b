package http

// apiResponse is the standard response envelope for every handler.
type apiResponse[T any] struct {
	Success bool       `json:"success"`
	Data    T          `json:"data,omitempty"`
	Error   *apiError  `json:"error,omitempty"`
}

// apiError is the structured error shape nested in a failed apiResponse.
type apiError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func newSuccessResponse[T any](data T) apiResponse[T] {
	return apiResponse[T]{Success: true, Data: data}
}

func newErrorResponse[T any](code, message string, details map[string]string) apiResponse[T] {
	return apiResponse[T]{Success: false, Error: &apiError{Code: code, Message: message, Details: details}}
}
