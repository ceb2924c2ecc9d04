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

package apierror_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/nobleverse/noble/internal/apierror"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAPIError(t *testing.T) {
	details := errors.New("pq: connection reset")
	apiErr := apierror.NewAPIError(apierror.ErrShipCreateFailed, "could not create shipment", details).WithStep("create_shipment")

	assert.Equal(t, apierror.ErrShipCreateFailed, apiErr.Code)
	assert.Equal(t, "could not create shipment", apiErr.Message)
	assert.Equal(t, "create_shipment", apiErr.Step)
	assert.Equal(t, "SHIP_CREATE_FAILED [create_shipment]: could not create shipment", apiErr.Error())
	assert.ErrorIs(t, apiErr, details)
}

func TestNewAPIErrorLogLevel(t *testing.T) {
	hook := test.NewGlobal()
	previous := logrus.GetLevel()
	logrus.SetLevel(logrus.DebugLevel)
	defer logrus.SetLevel(previous)

	tests := []struct {
		code  apierror.ErrorCode
		level logrus.Level
	}{
		{code: apierror.ErrNotFound, level: logrus.DebugLevel},
		{code: apierror.ErrAlreadyAccepted, level: logrus.DebugLevel},
		{code: apierror.ErrForbidden, level: logrus.ErrorLevel},
		{code: apierror.ErrLedgerInsertFailed, level: logrus.ErrorLevel},
		{code: apierror.ErrInternalServer, level: logrus.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			hook.Reset()
			apierror.NewAPIError(tt.code, "", errors.New("sql: no rows in result set"))

			require.Len(t, hook.AllEntries(), 1)
			assert.Equal(t, tt.level, hook.LastEntry().Level)
			assert.Equal(t, tt.code, hook.LastEntry().Data["code"])
		})
	}

	hook.Reset()
	apierror.NewAPIError(apierror.ErrNotFound, "shipment not found", nil)
	assert.Empty(t, hook.AllEntries())
}

func TestMapErrorToHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "Unauth", err: apierror.NewAPIError(apierror.ErrUnauthorized, "", nil), expected: http.StatusUnauthorized},
		{name: "Forbidden", err: apierror.NewAPIError(apierror.ErrForbidden, "", nil), expected: http.StatusForbidden},
		{name: "NotFound", err: apierror.NewAPIError(apierror.ErrNotFound, "", nil), expected: http.StatusNotFound},
		{name: "AlreadyAccepted", err: apierror.NewAPIError(apierror.ErrAlreadyAccepted, "off_1", nil), expected: http.StatusConflict},
		{name: "InvalidAmount", err: apierror.NewAPIError(apierror.ErrInvalidAmount, "", nil), expected: http.StatusUnprocessableEntity},
		{name: "InvalidAmount override", err: apierror.NewAPIError(apierror.ErrInvalidAmount, "", nil).WithStatus(http.StatusBadRequest), expected: http.StatusBadRequest},
		{name: "NotHold", err: apierror.NewAPIError(apierror.ErrNotHold, "", nil), expected: http.StatusBadRequest},
		{name: "ExceedsNet", err: apierror.NewAPIError(apierror.ErrExceedsNet, "", nil), expected: http.StatusBadRequest},
		{name: "Invalid", err: apierror.NewAPIError(apierror.ErrInvalid, "", nil), expected: http.StatusBadRequest},
		{name: "LedgerInsertFailed", err: apierror.NewAPIError(apierror.ErrLedgerInsertFailed, "", nil), expected: http.StatusInternalServerError},
		{name: "Wrapped", err: pkgerrors.Wrap(apierror.NewAPIError(apierror.ErrNotFound, "", nil), "loading shipment"), expected: http.StatusNotFound},
		{name: "Unknown Error", err: errors.New("Unknown error"), expected: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, apierror.MapErrorToHTTPStatus(tt.err))
		})
	}
}

func TestHasCode(t *testing.T) {
	err := pkgerrors.Wrap(apierror.NewAPIError(apierror.ErrAlreadyAccepted, "neg_2", nil), "accept")

	assert.True(t, apierror.HasCode(err, apierror.ErrAlreadyAccepted))
	assert.False(t, apierror.HasCode(err, apierror.ErrForbidden))
	assert.False(t, apierror.HasCode(errors.New("plain"), apierror.ErrForbidden))
}
