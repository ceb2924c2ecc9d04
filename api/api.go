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
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nobleverse/noble/api/middleware"
	"github.com/nobleverse/noble/config"
	"github.com/nobleverse/noble/internal/apierror"
	"github.com/nobleverse/noble/internal/search"
	"github.com/nobleverse/noble/model"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Service is the part of *noble.Noble the HTTP layer depends on.
type Service interface {
	AcceptOffer(ctx context.Context, offerID, callerID string) (*model.AcceptResult, error)
	AcceptNegotiation(ctx context.Context, negotiationID, callerID string) (*model.AcceptResult, error)

	Release(ctx context.Context, shipmentID, callerID string) (*model.EscrowResult, error)
	Refund(ctx context.Context, shipmentID, callerID string) (*model.EscrowResult, error)
	PartialRefund(ctx context.Context, shipmentID, callerID string, amountCents int64) (*model.EscrowResult, error)
	Dispute(ctx context.Context, shipmentID, callerID, reason string) (*model.EscrowResult, error)

	IssueLabel(ctx context.Context, shipmentID, callerID string) (*model.LabelResult, error)
	Scan(ctx context.Context, shipmentID, token string, meta map[string]interface{}) (*model.TrackingEvent, error)

	IngestTracking(ctx context.Context, ping model.TrackingPing) (string, error)
	AddTrackingSource(ctx context.Context, shipmentID, callerID string, kind model.SourceKind, provider string) (*model.TrackingSourceResult, error)
	ListTrackingEvents(ctx context.Context, shipmentID, callerID string, limit int) ([]model.TrackingEvent, error)

	CreateShareToken(ctx context.Context, shipmentID, callerID string, ttl time.Duration) (*model.ShareResult, error)
	GetSharedShipment(ctx context.Context, raw string) (*model.PublicShipment, error)

	GetShipment(ctx context.Context, shipmentID, callerID string) (*model.Shipment, error)
	GetShipmentLedger(ctx context.Context, shipmentID, callerID string) (*model.LedgerReport, error)
	SearchShipments(ctx context.Context, query, callerID string, page, perPage int) (*search.SearchResult, error)
}

type Api struct {
	service Service
	router  *gin.Engine
	auth    *middleware.AuthMiddleware
	conf    *config.Configuration
}

func (a Api) Router() *gin.Engine {
	router := a.router

	// token-gated routes, no session
	public := router.Group("/api", middleware.RateLimitMiddleware(a.conf.IngestRateLimit))
	public.POST("/shipments/:id/scan", a.ScanLabel)
	public.POST("/tracking/ingest", a.IngestTracking)
	router.GET("/api/share/:token", a.GetSharedShipment)

	session := router.Group("/api", a.auth.Authenticate())
	session.POST("/offers/:id/accept", a.AcceptOffer)
	session.POST("/negotiations/:id/accept", a.AcceptNegotiation)

	session.GET("/shipments/:id", a.GetShipment)
	session.GET("/shipments/:id/ledger", a.GetShipmentLedger)
	session.POST("/shipments/:id/release", a.Release)
	session.POST("/shipments/:id/refund", a.Refund)
	session.POST("/shipments/:id/partial-refund", a.PartialRefund)
	session.POST("/shipments/:id/dispute", a.Dispute)
	session.POST("/shipments/:id/label", a.IssueLabel)
	session.POST("/shipments/:id/share", a.CreateShareToken)
	session.POST("/shipments/:id/tracking-sources", a.AddTrackingSource)
	session.GET("/shipments/:id/tracking", a.ListTrackingEvents)

	session.GET("/search/shipments", a.SearchShipments)
	return a.router
}

func NewAPI(s Service) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	r.Use(otelgin.Middleware(conf.ProjectName))
	r.Use(middleware.RateLimitMiddleware(conf.RateLimit))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, "server running...")
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return &Api{service: s, router: r, auth: middleware.NewAuthMiddleware(conf.Auth), conf: conf}
}

// respondError writes the {error, detail?, step?} body. Errors that carry no
// code are reported as INTERNAL_SERVER_ERROR without leaking their text.
func respondError(c *gin.Context, err error) {
	apiErr, ok := apierror.As(err)
	if !ok {
		logrus.WithError(err).WithField("path", c.FullPath()).Error("unhandled error")
		apiErr = apierror.APIError{Code: apierror.ErrInternalServer, Message: "internal server error"}
	}
	c.JSON(apierror.MapErrorToHTTPStatus(err), apiErr)
}

func invalidPayload(c *gin.Context, err error) {
	respondError(c, apierror.NewAPIError(apierror.ErrInvalidPayload, err.Error(), nil))
}

// bindOptionalJSON accepts an empty body as the zero value.
func bindOptionalJSON(c *gin.Context, v interface{}) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	err := c.ShouldBindJSON(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
