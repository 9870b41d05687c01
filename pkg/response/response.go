package response

// Response is the JSON envelope returned by every endpoint.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorData  `json:"error,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func Success(data interface{}) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

func WithMeta(data, meta interface{}) Response {
	return Response{
		Success: true,
		Data:    data,
		Meta:    meta,
	}
}

func Error(code, message string) Response {
	return Response{
		Success: false,
		Error: &ErrorData{
			Code:    code,
			Message: message,
		},
	}
}

func ErrorWithDetails(code, message, details string) Response {
	r := Error(code, message)
	r.Error.Details = details
	return r
}

func BadRequest(message string) Response {
	return Error("BAD_REQUEST", message)
}

func NotFound(message string) Response {
	return Error("NOT_FOUND", message)
}

func Conflict(message string) Response {
	return Error("CONFLICT", message)
}

func InternalError(message string) Response {
	return Error("INTERNAL_ERROR", message)
}
