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
	"strconv"

	"github.com/gin-gonic/gin"
	model2 "github.com/nobleverse/noble/api/model"
	"github.com/nobleverse/noble/api/middleware"
	"github.com/nobleverse/noble/internal/apierror"
)

func (a Api) AcceptOffer(c *gin.Context) {
	resp, err := a.service.AcceptOffer(c.Request.Context(), c.Param("id"), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) AcceptNegotiation(c *gin.Context) {
	resp, err := a.service.AcceptNegotiation(c.Request.Context(), c.Param("id"), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) Release(c *gin.Context) {
	resp, err := a.service.Release(c.Request.Context(), c.Param("id"), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) Refund(c *gin.Context) {
	resp, err := a.service.Refund(c.Request.Context(), c.Param("id"), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) PartialRefund(c *gin.Context) {
	var req model2.PartialRefund
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierror.NewAPIError(apierror.ErrInvalidAmount, "amount_cents must be an integer", nil).WithStatus(http.StatusBadRequest))
		return
	}
	if err := req.ValidatePartialRefund(); err != nil {
		respondError(c, apierror.NewAPIError(apierror.ErrInvalidAmount, err.Error(), nil).WithStatus(http.StatusBadRequest))
		return
	}

	resp, err := a.service.PartialRefund(c.Request.Context(), c.Param("id"), middleware.CallerID(c), *req.AmountCents)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) Dispute(c *gin.Context) {
	var req model2.Dispute
	if err := bindOptionalJSON(c, &req); err != nil {
		invalidPayload(c, err)
		return
	}
	if err := req.ValidateDispute(); err != nil {
		invalidPayload(c, err)
		return
	}

	resp, err := a.service.Dispute(c.Request.Context(), c.Param("id"), middleware.CallerID(c), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) GetShipment(c *gin.Context) {
	resp, err := a.service.GetShipment(c.Request.Context(), c.Param("id"), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) GetShipmentLedger(c *gin.Context) {
	resp, err := a.service.GetShipmentLedger(c.Request.Context(), c.Param("id"), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) SearchShipments(c *gin.Context) {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		respondError(c, err)
		return
	}
	perPage, err := queryInt(c, "per_page", 20)
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := a.service.SearchShipments(c.Request.Context(), c.Query("q"), middleware.CallerID(c), page, perPage)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apierror.NewAPIError(apierror.ErrInvalidPayload, key+" must be a non-negative integer", nil)
	}
	return v, nil
}
