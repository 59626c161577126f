// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

// Package server exposes definitions over a JSON HTTP API for a presentation
// layer.
package server

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/dacolabs/curate/internal/catalog"
	"github.com/dacolabs/curate/internal/columns"
	"github.com/dacolabs/curate/internal/definition"
	"github.com/dacolabs/curate/internal/proppath"
	"github.com/dacolabs/curate/internal/rules"
)

// Fetcher reads every definition of a type.
type Fetcher interface {
	Fetch(ctx context.Context, t definition.Type) ([]*proppath.Record, error)
}

// Reconciler applies edited records.
type Reconciler interface {
	Reconcile(ctx context.Context, records []*proppath.Record, t definition.Type) []definition.Outcome
}

// Logger is the minimal logging interface used by the server.
type Logger interface {
	Printf(format string, v ...any)
}

// Server serves the API.
type Server struct {
	Catalog Fetcher
	Engine  Reconciler
	Rules   *rules.Resolver
	Logger  Logger
}

// TypeInfo describes a definition type.
type TypeInfo struct {
	Type definition.Type `json:"type"`
	Name string          `json:"name"`
}

// TypesResponse is returned by GET /api/types.
type TypesResponse struct {
	Types              []TypeInfo `json:"types"`
	VisualizationTypes []TypeInfo `json:"visualizationTypes"`
}

// UpdateRequest is the body of POST /api/definitions/:type.
type UpdateRequest struct {
	Records []*proppath.Record `json:"records" binding:"required"`
}

// UpdateResponse reports one outcome and row color per submitted record.
type UpdateResponse struct {
	Type     definition.Type      `json:"type"`
	Outcomes []definition.Outcome `json:"outcomes"`
	Colors   []string             `json:"colors"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Handler returns the routes of the API.
func (s *Server) Handler() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	{
		api.GET("/types", s.listTypes)
		api.GET("/definitions/:type", s.listDefinitions)
		api.POST("/definitions/:type", s.updateDefinitions)
	}
	return r
}

func (s *Server) listTypes(c *gin.Context) {
	c.JSON(http.StatusOK, TypesResponse{
		Types:              typeInfos(definition.Types()),
		VisualizationTypes: typeInfos(definition.VisualizationTypes()),
	})
}

func typeInfos(types []definition.Type) []TypeInfo {
	out := make([]TypeInfo, len(types))
	for i, t := range types {
		out[i] = TypeInfo{Type: t, Name: t.DisplayName()}
	}
	return out
}

func (s *Server) listDefinitions(c *gin.Context) {
	t, err := definition.ParseType(c.Param("type"))
	if err != nil {
		respondWithError(c, http.StatusBadRequest, err)
		return
	}

	records, err := s.Catalog.Fetch(c.Request.Context(), t)
	if errors.Is(err, catalog.ErrNoDefinitions) {
		respondWithError(c, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.logf("route=list type=%s error=%v", t, err)
		respondWithError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, columns.Layout(records, t, s.rules()))
}

// updateDefinitions reconciles the submitted records. The type "auto" is
// inferred from the first record's qInfo/qType.
func (s *Server) updateDefinitions(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, err)
		return
	}
	if len(req.Records) == 0 {
		respondWithError(c, http.StatusBadRequest, errors.New("no records submitted"))
		return
	}
	if slices.Contains(req.Records, nil) {
		respondWithError(c, http.StatusBadRequest, errors.New("records must be objects"))
		return
	}

	var t definition.Type
	if param := c.Param("type"); param == "auto" {
		inferred, ok := definition.Infer(req.Records[0].Text("qInfo/qType"))
		if !ok {
			respondWithError(c, http.StatusBadRequest, errors.New("cannot infer the definition type: first record has no qInfo/qType"))
			return
		}
		t = inferred
	} else {
		parsed, err := definition.ParseType(param)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, err)
			return
		}
		t = parsed
	}

	outcomes := s.Engine.Reconcile(c.Request.Context(), req.Records, t)
	colors := make([]string, len(outcomes))
	for i, o := range outcomes {
		colors[i] = o.Color()
	}
	s.logf("route=update type=%s records=%d", t, len(outcomes))
	c.JSON(http.StatusOK, UpdateResponse{Type: t, Outcomes: outcomes, Colors: colors})
}

func respondWithError(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: err.Error()})
}

func (s *Server) rules() *rules.Resolver {
	if s.Rules == nil {
		return rules.Default()
	}
	return s.Rules
}

func (s *Server) logf(format string, v ...any) {
	if s.Logger != nil {
		s.Logger.Printf(format, v...)
	}
}
