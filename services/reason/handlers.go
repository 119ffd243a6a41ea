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
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianReason/services/reason/parser"
)

// Handlers contains the HTTP handlers for the reasoning service.
type Handlers struct {
	svc    *Service
	parser *parser.Parser
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{
		svc:    svc,
		parser: parser.New(svc.logger),
	}
}

// getOrCreateRequestID returns the X-Request-ID header or mints one.
func getOrCreateRequestID(c *gin.Context) string {
	if id := c.GetHeader("X-Request-ID"); id != "" {
		return id
	}
	return uuid.NewString()
}

// abortWithError writes the uniform error body with the right status.
func abortWithError(c *gin.Context, requestID string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrTooManySessions):
		status = http.StatusTooManyRequests
	case errors.Is(err, ErrNoInput), errors.Is(err, parser.ErrUnknownFormat):
		status = http.StatusBadRequest
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), RequestID: requestID})
}

// HandleCreateSession handles POST /v1/reason/sessions.
//
// Response:
//
//	201 Created: SessionResponse
//	429 Too Many Requests: session cap reached
func (h *Handlers) HandleCreateSession(c *gin.Context) {
	requestID := getOrCreateRequestID(c)

	session, err := h.svc.CreateSession()
	if err != nil {
		abortWithError(c, requestID, err)
		return
	}

	c.JSON(http.StatusCreated, SessionResponse{
		SessionID: session.ID,
		CreatedAt: session.CreatedAt,
	})
}

// HandleGetSession handles GET /v1/reason/sessions/:id.
func (h *Handlers) HandleGetSession(c *gin.Context) {
	requestID := getOrCreateRequestID(c)

	resp, err := h.svc.Describe(c.Param("id"))
	if err != nil {
		abortWithError(c, requestID, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleDeleteSession handles DELETE /v1/reason/sessions/:id.
func (h *Handlers) HandleDeleteSession(c *gin.Context) {
	requestID := getOrCreateRequestID(c)

	if err := h.svc.DeleteSession(c.Param("id")); err != nil {
		abortWithError(c, requestID, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleLoadTriples handles POST /v1/reason/sessions/:id/triples.
//
// Description:
//
//	Parses inline content or a server-local file in the requested
//	format and inserts the triples into the session's store.
//
// Request Body:
//
//	LoadTriplesRequest
//
// Response:
//
//	200 OK: LoadTriplesResponse
//	400 Bad Request: validation or format error
//	404 Not Found: unknown session
func (h *Handlers) HandleLoadTriples(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.svc.logger.With("request_id", requestID, "handler", "HandleLoadTriples")

	var req LoadTriplesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), RequestID: requestID})
		return
	}

	sessionID := c.Param("id")
	statements, err := h.loadStatements(req)
	if err != nil {
		abortWithError(c, requestID, err)
		return
	}

	added, err := h.svc.LoadStatements(sessionID, statements)
	if err != nil {
		abortWithError(c, requestID, err)
		return
	}

	session, err := h.svc.GetSession(sessionID)
	if err != nil {
		abortWithError(c, requestID, err)
		return
	}

	logger.Info("triples loaded",
		"session_id", sessionID, "parsed", len(statements), "added", added)
	c.JSON(http.StatusOK, LoadTriplesResponse{
		Parsed:    len(statements),
		Added:     added,
		StoreSize: session.store.Len(),
	})
}

// loadStatements resolves the request's source and format.
func (h *Handlers) loadStatements(req LoadTriplesRequest) ([]parser.Statement, error) {
	switch {
	case req.Path != "":
		if req.Format != "" {
			f, err := os.Open(req.Path)
			if err != nil {
				return nil, err
			}
			defer f.Close()
			return h.parser.ParseTriples(f, parser.Format(req.Format))
		}
		return h.parser.ParseTriplesFile(req.Path)

	case req.Content != "":
		format := parser.Format(req.Format)
		if req.Format == "" {
			format = parser.FormatNTriples
		}
		return h.parser.ParseTriples(strings.NewReader(req.Content), format)

	default:
		return nil, ErrNoInput
	}
}

// HandleAddRules handles POST /v1/reason/sessions/:id/rules.
//
// Request Body:
//
//	AddRulesRequest
//
// Response:
//
//	200 OK: AddRulesResponse
func (h *Handlers) HandleAddRules(c *gin.Context) {
	requestID := getOrCreateRequestID(c)

	var req AddRulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), RequestID: requestID})
		return
	}

	rules, err := h.parser.ParseRulesString(req.Content)
	if err != nil {
		abortWithError(c, requestID, err)
		return
	}

	total, err := h.svc.AddRules(c.Param("id"), rules)
	if err != nil {
		abortWithError(c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, AddRulesResponse{Added: len(rules), TotalRules: total})
}

// HandleRun handles POST /v1/reason/sessions/:id/run.
//
// Description:
//
//	Runs the fixpoint engine to completion. Concurrent requests for
//	the same session join the in-flight run.
//
// Response:
//
//	200 OK: RunResponse
func (h *Handlers) HandleRun(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.svc.logger.With("request_id", requestID, "handler", "HandleRun")

	sessionID := c.Param("id")
	stats, err := h.svc.Run(c.Request.Context(), sessionID)
	if err != nil {
		logger.Error("reasoning run failed", "session_id", sessionID, "error", err)
		abortWithError(c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, runResponse(stats))
}

// HandleQuery handles GET /v1/reason/sessions/:id/query.
//
// Query Parameters:
//
//	subject, predicate, object - optional component filters
//
// Response:
//
//	200 OK: QueryResponse
func (h *Handlers) HandleQuery(c *gin.Context) {
	requestID := getOrCreateRequestID(c)

	triples, err := h.svc.Query(
		c.Param("id"),
		c.Query("subject"),
		c.Query("predicate"),
		c.Query("object"),
	)
	if err != nil {
		abortWithError(c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, QueryResponse{Triples: triples, Count: len(triples)})
}

// HandleStats handles GET /v1/reason/sessions/:id/stats.
func (h *Handlers) HandleStats(c *gin.Context) {
	requestID := getOrCreateRequestID(c)

	resp, err := h.svc.Stats(c.Param("id"))
	if err != nil {
		abortWithError(c, requestID, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleHealth handles GET /v1/reason/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": ServiceVersion,
	})
}

// HandleReady handles GET /v1/reason/ready.
func (h *Handlers) HandleReady(c *gin.Context) {
	h.svc.mu.RLock()
	sessions := len(h.svc.sessions)
	h.svc.mu.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"status":   "ready",
		"sessions": sessions,
	})
}
