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

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	model2 "github.com/nobleverse/noble/api/model"
	"github.com/nobleverse/noble/api/middleware"
	"github.com/nobleverse/noble/internal/apierror"
	"github.com/nobleverse/noble/model"
)

func (a Api) IssueLabel(c *gin.Context) {
	resp, err := a.service.IssueLabel(c.Request.Context(), c.Param("id"), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ScanLabel is public: possession of the raw label token is the credential.
func (a Api) ScanLabel(c *gin.Context) {
	var req model2.Scan
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierror.NewAPIError(apierror.ErrInvalid, "token is required", nil))
		return
	}
	if err := req.ValidateScan(); err != nil {
		respondError(c, apierror.NewAPIError(apierror.ErrInvalid, err.Error(), nil))
		return
	}

	meta := req.Meta
	if meta == nil {
		meta = map[string]interface{}{}
	}
	if _, ok := meta["user_agent"]; !ok && c.Request.UserAgent() != "" {
		meta["user_agent"] = c.Request.UserAgent()
	}

	if _, err := a.service.Scan(c.Request.Context(), c.Param("id"), req.Token, meta); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// IngestTracking is public. The database verifies the source token.
func (a Api) IngestTracking(c *gin.Context) {
	var req model2.IngestTracking
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	if err := req.ValidateIngestTracking(); err != nil {
		invalidPayload(c, err)
		return
	}

	eventID, err := a.service.IngestTracking(c.Request.Context(), req.ToTrackingPing())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "eventId": eventID})
}

func (a Api) AddTrackingSource(c *gin.Context) {
	var req model2.CreateTrackingSource
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	if err := req.ValidateCreateTrackingSource(); err != nil {
		invalidPayload(c, err)
		return
	}

	resp, err := a.service.AddTrackingSource(c.Request.Context(), c.Param("id"), middleware.CallerID(c), model.SourceKind(req.Kind), req.Provider)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (a Api) ListTrackingEvents(c *gin.Context) {
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := a.service.ListTrackingEvents(c.Request.Context(), c.Param("id"), middleware.CallerID(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if resp == nil {
		resp = []model.TrackingEvent{}
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) CreateShareToken(c *gin.Context) {
	var req model2.CreateShare
	if err := bindOptionalJSON(c, &req); err != nil {
		invalidPayload(c, err)
		return
	}
	if err := req.ValidateCreateShare(); err != nil {
		invalidPayload(c, err)
		return
	}

	resp, err := a.service.CreateShareToken(c.Request.Context(), c.Param("id"), middleware.CallerID(c), req.TTL())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (a Api) GetSharedShipment(c *gin.Context) {
	resp, err := a.service.GetSharedShipment(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
