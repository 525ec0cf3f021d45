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
	"log/slog"
	"net/http"
	"time"

	"github.com/AleutianAI/depslice/services/slice"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func newServeCmd(c *cli) *cobra.Command {
	var (
		port  int
		debug bool
		cfg   = slice.DefaultServiceConfig()
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve dependency collection over HTTP",
		Long: `Serve starts the HTTP service.

Endpoints:
  POST /v1/slice/collect   run a collection for a project root
  GET  /v1/slice/health    service status
  GET  /metrics            Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if debug {
				gin.SetMode(gin.DebugMode)
			} else {
				gin.SetMode(gin.ReleaseMode)
			}

			shutdownMetrics, err := setupMetrics()
			if err != nil {
				return err
			}
			c.closers = append(c.closers, shutdownMetrics)

			svc := slice.NewService(cfg, c.fs, c.logger)
			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", port),
				Handler:           slice.NewRouter(svc, debug),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				c.logger.Info("starting depslice server", slog.String("address", srv.Addr))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			c.logger.Info("shutting down depslice server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "port to listen on")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable gin debug mode and request logging")
	cmd.Flags().StringSliceVar(&cfg.AllowedRoots, "allowed-root", nil, "allowed project root prefix (repeatable; default allows all)")
	cmd.Flags().IntVar(&cfg.MaxConcurrentRuns, "max-runs", cfg.MaxConcurrentRuns, "maximum simultaneous collection runs")
	cmd.Flags().DurationVar(&cfg.MaxCollectDuration, "timeout", cfg.MaxCollectDuration, "maximum duration of one collection run")
	return cmd
}
