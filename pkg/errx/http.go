package errx

import "errors"

// HTTPErrorResponse is the body written for an *Error.
type HTTPErrorResponse struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Type       string                 `json:"type"`
	Details    map[string]interface{} `json:"details,omitempty"`
	StatusCode int                    `json:"status_code"`
	RequestID  string                 `json:"request_id,omitempty"`
}

func (e *Error) ToHTTPResponse() HTTPErrorResponse {
	return HTTPErrorResponse{
		Code:       e.Code,
		Message:    e.Message,
		Type:       string(e.Type),
		Details:    e.Details,
		StatusCode: e.HTTPStatus,
	}
}

// ResponseFor converts any error into a response body. Foreign errors become a
// generic internal error so their text never reaches the client.
func ResponseFor(err error) HTTPErrorResponse {
	var e *Error
	if errors.As(err, &e) {
		return e.ToHTTPResponse()
	}
	return New("An unexpected error occurred", TypeInternal).ToHTTPResponse()
}
