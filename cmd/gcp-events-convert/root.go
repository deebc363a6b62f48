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
	"errors"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/envoyproxy/gcp-events-convert/pkg/api"
	"github.com/envoyproxy/gcp-events-convert/pkg/config"
	"github.com/envoyproxy/gcp-events-convert/pkg/http"

	_ "github.com/envoyproxy/gcp-events-convert/pkg/plugins/gcpeventsconvert"
)

const shutdownTimeout = 10 * time.Second

var (
	cfgFile string
	cfg     *config.Config
	logger  *zap.SugaredLogger
)

var rootCmd = &cobra.Command{
	Use:   "gcp-events-convert",
	Short: "Convert Pub/Sub push requests into CloudEvents",
	Long: `gcp-events-convert runs a chain of HTTP filters in front of a service.

The gcp_events_convert filter rewrites Pub/Sub push deliveries that carry a
CloudEvent into CloudEvents HTTP binary mode requests. Requests that cannot be
converted are forwarded unchanged.`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./gcp-events-convert.yaml, /etc/gcp-events-convert/gcp-events-convert.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (default info)")
	rootCmd.PersistentFlags().String("metrics-address", "", "address serving /metrics (default :9090, an empty metrics_address in the config disables it)")

	rootCmd.AddCommand(proxyCmd, extprocCmd)
}

func initConfig(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	level, err := cfg.Level()
	if err != nil {
		return err
	}
	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(level)
	zapLogger, err := zapConfig.Build()
	if err != nil {
		return fmt.Errorf("can't initialize logger: %w", err)
	}
	logger = zapLogger.Sugar()
	api.SetCommonCAPI(api.NewZapCommonCAPI(zapLogger))
	return nil
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// newFilterChain parses the configured filters and routes, their metrics are registered on reg.
func newFilterChain(c *config.Config, reg prometheus.Registerer) (*http.FilterChain, error) {
	configs, err := c.FilterConfigs()
	if err != nil {
		return nil, err
	}
	routes, err := c.RouteConfigs()
	if err != nil {
		return nil, err
	}

	callbacks := http.NewConfigCallbacks(reg)
	chain, err := http.NewFilterChain(configs, callbacks)
	if err != nil {
		return nil, err
	}
	for _, r := range routes {
		if err := chain.AddRoute(r, callbacks); err != nil {
			return nil, err
		}
	}
	return chain, nil
}

func newMetricsServer(addr string, reg *prometheus.Registry) *nethttp.Server {
	mux := nethttp.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return &nethttp.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

// serveHTTP runs srv until ctx is done, then shuts it down.
func serveHTTP(ctx context.Context, srv *nethttp.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, nethttp.ErrServerClosed) {
		return err
	}
	return nil
}
