// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package slice

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RegisterRoutes registers the slice routes with the router.
//
// Endpoints:
//
//	POST /v1/slice/collect - Collect a dependency file set
//	GET  /v1/slice/health  - Health check
//
// Example:
//
//	v1 := router.Group("/v1")
//	slice.RegisterRoutes(v1, slice.NewHandlers(svc))
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	slice := rg.Group("/slice")
	{
		slice.POST("/collect", handlers.HandleCollect)
		slice.GET("/health", handlers.HandleHealth)
	}
}

// NewRouter builds the service router with recovery, tracing and metrics.
//
// Description:
//
//	Requests are traced with otelgin. GET /metrics serves the default
//	Prometheus registry. Request logging is enabled when debug is true.
func NewRouter(svc *Service, debug bool) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("depslice"))
	if debug {
		router.Use(gin.Logger())
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	RegisterRoutes(v1, NewHandlers(svc))
	return router
}
