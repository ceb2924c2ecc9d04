/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

type ErrorCode string

const (
	ErrUnauthorized    ErrorCode = "UNAUTH"
	ErrForbidden       ErrorCode = "FORBIDDEN"
	ErrNotFound        ErrorCode = "NOT_FOUND"
	ErrAlreadyAccepted ErrorCode = "ALREADY_ACCEPTED"
	ErrInvalidAmount   ErrorCode = "INVALID_AMOUNT"
	ErrNotHold         ErrorCode = "NOT_HOLD"
	ErrExceedsNet      ErrorCode = "EXCEEDS_NET"
	ErrInvalid         ErrorCode = "INVALID"
	ErrInvalidPayload  ErrorCode = "INVALID_PAYLOAD"

	// step-tagged failures of the acceptance transaction
	ErrShipCreateFailed   ErrorCode = "SHIP_CREATE_FAILED"
	ErrOfferUpdateFailed  ErrorCode = "OFFER_UPDATE_FAILED"
	ErrLedgerInsertFailed ErrorCode = "LEDGER_INSERT_FAILED"

	ErrInternalServer ErrorCode = "INTERNAL_SERVER_ERROR"
)

var statusByCode = map[ErrorCode]int{
	ErrUnauthorized:       http.StatusUnauthorized,
	ErrForbidden:          http.StatusForbidden,
	ErrNotFound:           http.StatusNotFound,
	ErrAlreadyAccepted:    http.StatusConflict,
	ErrInvalidAmount:      http.StatusUnprocessableEntity,
	ErrNotHold:            http.StatusBadRequest,
	ErrExceedsNet:         http.StatusBadRequest,
	ErrInvalid:            http.StatusBadRequest,
	ErrInvalidPayload:     http.StatusBadRequest,
	ErrShipCreateFailed:   http.StatusInternalServerError,
	ErrOfferUpdateFailed:  http.StatusInternalServerError,
	ErrLedgerInsertFailed: http.StatusInternalServerError,
	ErrInternalServer:     http.StatusInternalServerError,
}

type APIError struct {
	Code    ErrorCode   `json:"error"`
	Message string      `json:"detail,omitempty"`
	Step    string      `json:"step,omitempty"`
	Details interface{} `json:"-"`
	status  int
}

func (e APIError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Code, e.Step, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause when Details holds an error.
func (e APIError) Unwrap() error {
	if err, ok := e.Details.(error); ok {
		return err
	}
	return nil
}

// routineCodes are expected outcomes of normal traffic; their causes are
// logged at debug level only.
var routineCodes = map[ErrorCode]bool{
	ErrNotFound:        true,
	ErrAlreadyAccepted: true,
}

// NewAPIError builds an APIError and logs the underlying cause, if any.
func NewAPIError(code ErrorCode, message string, details interface{}) APIError {
	if details != nil {
		entry := logrus.WithField("code", code)
		if routineCodes[code] {
			entry.Debug(details)
		} else {
			entry.Error(details)
		}
	}
	return APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// WithStep tags the error with the sub-operation that failed.
func (e APIError) WithStep(step string) APIError {
	e.Step = step
	return e
}

// WithStatus overrides the HTTP status derived from the code.
func (e APIError) WithStatus(status int) APIError {
	e.status = status
	return e
}

// As extracts an APIError from err, following wrapped errors.
func As(err error) (APIError, bool) {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return APIError{}, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	apiErr, ok := As(err)
	return ok && apiErr.Code == code
}

func MapErrorToHTTPStatus(err error) int {
	apiErr, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	if apiErr.status != 0 {
		return apiErr.status
	}
	if status, ok := statusByCode[apiErr.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
