// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package reason

import (
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/AleutianReason/services/reason/parser"
)

var validationOnce sync.Once

// registerValidations installs the custom binding validators.
func registerValidations() {
	validationOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("tripleformat", func(fl validator.FieldLevel) bool {
			switch parser.Format(fl.Field().String()) {
			case parser.FormatNTriples, parser.FormatTurtle, parser.FormatCSV:
				return true
			default:
				return false
			}
		})
	})
}

// RegisterRoutes registers all reasoning routes with the router group.
//
// Endpoints:
//
//	POST   /v1/reason/sessions - Create a reasoning session
//	GET    /v1/reason/sessions/:id - Describe a session
//	DELETE /v1/reason/sessions/:id - Drop a session
//	POST   /v1/reason/sessions/:id/triples - Load triples
//	POST   /v1/reason/sessions/:id/rules - Add Datalog rules
//	POST   /v1/reason/sessions/:id/run - Run the fixpoint
//	GET    /v1/reason/sessions/:id/query - Query facts by component
//	GET    /v1/reason/sessions/:id/stats - Store and run statistics
//	GET    /v1/reason/health - Health check
//	GET    /v1/reason/ready - Readiness check
//
// Example:
//
//	svc := reason.NewService(reason.DefaultServiceConfig(), logger)
//	handlers := reason.NewHandlers(svc)
//
//	v1 := router.Group("/v1")
//	reason.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	registerValidations()

	r := rg.Group("/reason")
	{
		r.POST("/sessions", handlers.HandleCreateSession)
		r.GET("/sessions/:id", handlers.HandleGetSession)
		r.DELETE("/sessions/:id", handlers.HandleDeleteSession)

		r.POST("/sessions/:id/triples", handlers.HandleLoadTriples)
		r.POST("/sessions/:id/rules", handlers.HandleAddRules)
		r.POST("/sessions/:id/run", handlers.HandleRun)

		r.GET("/sessions/:id/query", handlers.HandleQuery)
		r.GET("/sessions/:id/stats", handlers.HandleStats)

		r.GET("/health", handlers.HandleHealth)
		r.GET("/ready", handlers.HandleReady)
	}
}
