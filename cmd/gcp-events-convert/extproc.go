/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"net"

	extprocv3 "github.com/envoyproxy/go-control-plane/envoy/service/ext_proc/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/envoyproxy/gcp-events-convert/pkg/extproc"
)

var extprocCmd = &cobra.Command{
	Use:   "extproc",
	Short: "Serve the filter chain as an Envoy external processor",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()
		return runExtProc(ctx)
	},
}

func init() {
	extprocCmd.Flags().String("grpc-address", "", "address of the ExternalProcessor gRPC service (default :9002)")
}

func runExtProc(ctx context.Context) error {
	reg := newRegistry()
	chain, err := newFilterChain(cfg, reg)
	if err != nil {
		return err
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.GRPCAddress, err)
	}

	grpcServer := grpc.NewServer()
	extprocv3.RegisterExternalProcessorServer(grpcServer, extproc.NewServer(chain, logger))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		<-ctx.Done()
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		return nil
	})
	if cfg.MetricsAddress != "" {
		g.Go(func() error {
			return serveHTTP(ctx, newMetricsServer(cfg.MetricsAddress, reg))
		})
	}

	logger.Infow("external processor started",
		"grpc_address", lis.Addr().String(),
		"filters", chain.Names())
	err = g.Wait()
	logger.Infow("external processor stopped", "error", err)
	return err
}
