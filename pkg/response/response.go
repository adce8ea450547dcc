package response

// Response is the JSON envelope returned by every endpoint
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorData  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorData describes a failed request
type ErrorData struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Meta carries list metadata
type Meta struct {
	Total int `json:"total"`
}

// Error codes
const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeValidation       = "VALIDATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeCapacityExceeded = "CAPACITY_EXCEEDED"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeInternal         = "INTERNAL_ERROR"
)

func Success(data interface{}) Response {
	return Response{Success: true, Data: data}
}

// List wraps a slice with its total count
func List(data interface{}, total int) Response {
	return Response{Success: true, Data: data, Meta: &Meta{Total: total}}
}

func Error(code, message string) Response {
	return Response{
		Success: false,
		Error:   &ErrorData{Code: code, Message: message},
	}
}

// ErrorWithDetails attaches structured details, e.g. the offending field
func ErrorWithDetails(code, message string, details interface{}) Response {
	return Response{
		Success: false,
		Error:   &ErrorData{Code: code, Message: message, Details: details},
	}
}

func BadRequest(message string) Response {
	return Error(CodeBadRequest, message)
}

func ValidationError(message string, details interface{}) Response {
	return ErrorWithDetails(CodeValidation, message, details)
}

func NotFound(message string) Response {
	return Error(CodeNotFound, message)
}

func Unauthorized(message string) Response {
	return Error(CodeUnauthorized, message)
}

func Forbidden(message string) Response {
	return Error(CodeForbidden, message)
}

func InternalError(message string) Response {
	return Error(CodeInternal, message)
}
