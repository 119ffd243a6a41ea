// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianReason/pkg/logging"
	"github.com/AleutianAI/AleutianReason/services/reason"
	"github.com/AleutianAI/AleutianReason/services/reason/telemetry"
)

var (
	servePort  int
	serveDebug bool

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the reasoning HTTP API server",
		RunE:  runServer,
	}
)

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0,
		"Port to listen on (overrides config)")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false,
		"Enable debug mode")
}

func runServer(cmd *cobra.Command, args []string) error {
	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(fileConfig.LogLevel),
		LogDir:  fileConfig.LogDir,
		Service: "reason-api",
	})
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Init(ctx, fileConfig.Telemetry)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	if serveDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	svc := reason.NewService(reason.ServiceConfig{
		MaxSessions: reason.DefaultServiceConfig().MaxSessions,
		Engine:      fileConfig.Engine,
	}, logger.Slog())
	handlers := reason.NewHandlers(svc)

	router := gin.New()
	router.Use(gin.Recovery())
	if serveDebug {
		router.Use(gin.Logger())
	}

	v1 := router.Group("/v1")
	reason.RegisterRoutes(v1, handlers)

	if metricsHandler := telemetry.MetricsHandler(); metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	port := fileConfig.Port
	if servePort > 0 {
		port = servePort
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("reasoning API listening", "port", port, "version", reason.ServiceVersion)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
