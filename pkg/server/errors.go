package server

import (
	"encoding/json"
	"errors"
	"net/http"

	qerrors "querydict-hq/querydict/pkg/query/errors"
	"querydict-hq/querydict/pkg/ruleset"
)

// Error types that do not come from the query engine.
const (
	errTypeRequest     = "invalid_request"
	errTypeTooLarge    = "request_too_large"
	errTypeUnavailable = "unavailable"
	errTypeServer      = "server_error"
)

var errUnavailable = errors.New("component not configured")

// ErrorResponse wraps an error for the client.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody describes one error. Line and Column are set for errors with a
// position in the query.
type ErrorBody struct {
	Type       string `json:"type"`
	Message    string `json:"message"`
	Line       int    `json:"line,omitempty"`
	Column     int    `json:"column,omitempty"`
	Context    string `json:"context,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// requestError marks a malformed request body or parameter.
type requestError struct {
	msg string
	err error
}

func (e *requestError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *requestError) Unwrap() error { return e.err }

func badRequest(msg string, err error) error {
	return &requestError{msg: msg, err: err}
}

// errorBody converts a query error to its wire form.
func errorBody(qe *qerrors.Error) ErrorBody {
	return ErrorBody{
		Type:       string(qe.Type),
		Message:    qe.Message,
		Line:       qe.Position.Line,
		Column:     qe.Position.Column,
		Context:    qe.Context,
		Suggestion: qe.Suggestion,
	}
}

// errorBodies flattens err into one body per query error.
func errorBodies(err error) []ErrorBody {
	var list *qerrors.ErrorList
	if errors.As(err, &list) {
		bodies := make([]ErrorBody, 0, list.Count())
		for _, qe := range list.Errors {
			bodies = append(bodies, errorBody(qe))
		}
		return bodies
	}
	var qe *qerrors.Error
	if errors.As(err, &qe) {
		return []ErrorBody{errorBody(qe)}
	}
	return []ErrorBody{{Type: errTypeServer, Message: err.Error()}}
}

// classify maps err to an HTTP status and wire body.
func classify(err error) (int, ErrorBody) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, ErrorBody{
			Type:    errTypeTooLarge,
			Message: "request body too large",
		}
	}

	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return http.StatusBadRequest, ErrorBody{Type: errTypeRequest, Message: reqErr.Error()}
	}

	if errors.Is(err, ruleset.ErrNotLoaded) || errors.Is(err, errUnavailable) {
		return http.StatusServiceUnavailable, ErrorBody{Type: errTypeUnavailable, Message: err.Error()}
	}

	var list *qerrors.ErrorList
	if errors.As(err, &list) && list.Count() > 0 {
		return statusFor(list.Errors[0].Type), errorBody(list.Errors[0])
	}

	var qe *qerrors.Error
	if errors.As(err, &qe) {
		return statusFor(qe.Type), errorBody(qe)
	}

	return http.StatusInternalServerError, ErrorBody{Type: errTypeServer, Message: "an internal error occurred"}
}

func statusFor(t qerrors.ErrorType) int {
	switch t {
	case qerrors.ErrorTypeArgument:
		return http.StatusBadRequest
	case qerrors.ErrorTypeSyntax, qerrors.ErrorTypeStructural, qerrors.ErrorTypeMatchConfig:
		return http.StatusUnprocessableEntity
	case qerrors.ErrorTypeUnimplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, body := classify(err)
	if code >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", "error", err, "type", body.Type)
	} else {
		s.logger.DebugContext(r.Context(), "request rejected", "error", err, "type", body.Type)
	}
	writeJSON(w, code, ErrorResponse{Error: body})
}
