// Package http provides HTTP server and handler implementations.
//
// This file implements the builder for JSON and file download responses and
// the mapping from domain errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"khata/internal/backup"
	"khata/internal/core"
	"khata/internal/importer"
	"khata/internal/log"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// envelope is the body of every JSON response.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ResponseBuilder provides a fluent API for building API responses.
type ResponseBuilder struct {
	statusCode int
	headers    map[string]string
	payload    *envelope
	body       []byte
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// Data sets a successful JSON payload.
func (b *ResponseBuilder) Data(v any) *ResponseBuilder {
	b.payload = &envelope{Success: true, Data: v}
	return b
}

// Fail sets an error JSON payload. data may carry details such as a
// rejected import result.
func (b *ResponseBuilder) Fail(message string, data any) *ResponseBuilder {
	b.payload = &envelope{Success: false, Error: message, Data: data}
	return b
}

// Attachment sets a file download body.
func (b *ResponseBuilder) Attachment(filename, contentType string, content []byte) *ResponseBuilder {
	b.payload = nil
	b.body = content
	b.headers["Content-Type"] = contentType
	b.headers["Content-Disposition"] = fmt.Sprintf("attachment; filename=%q", filename)
	b.headers["Content-Length"] = strconv.Itoa(len(content))
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	var body []byte
	if b.payload != nil {
		var err error
		body, err = json.Marshal(b.payload)
		if err != nil {
			b.statusCode = http.StatusInternalServerError
			body = []byte(`{"success":false,"error":"failed to encode response"}`)
		}
		b.headers["Content-Type"] = contentTypeJSON
	} else {
		body = b.body
	}

	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(b.statusCode)
	if len(body) > 0 {
		_, _ = w.Write(body)
	}
}

// ErrorResponse creates a standard JSON error response.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).Fail(message, nil)
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// UnprocessableEntityError creates a 422 Unprocessable Entity error response.
func UnprocessableEntityError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// requestError is a client mistake detected by a handler before any
// domain call.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{status: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

func invalidInput(format string, args ...any) error {
	return &requestError{status: http.StatusUnprocessableEntity, msg: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) error {
	return &requestError{status: http.StatusNotFound, msg: fmt.Sprintf(format, args...)}
}

var (
	validationErrors = []error{
		core.ErrInvalidDate,
		core.ErrInvalidAmount,
		core.ErrEmptyAmounts,
		core.ErrInvalidValue,
		core.ErrEmptyName,
		core.ErrLastAccount,
		importer.ErrUnsupportedFormat,
	}
	notFoundErrors = []error{
		core.ErrAccountNotFound,
		core.ErrEntryNotFound,
		backup.ErrBackupNotFound,
	}
	malformedErrors = []error{
		backup.ErrInvalidBackup,
		core.ErrInvalidDocument,
	}
)

// statusFor maps an error to the response status.
func statusFor(err error) int {
	var re *requestError
	if errors.As(err, &re) {
		return re.status
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return http.StatusUnprocessableEntity
		}
	}
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return http.StatusNotFound
		}
	}
	for _, target := range malformedErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

// writeError responds with the status matching err. Server faults are
// logged with the request's logger and hidden from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldError, err.Error(),
		)
		msg = "internal server error"
	}
	ErrorResponse(status, msg).Write(w)
}
