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
	nethttp "net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/envoyproxy/gcp-events-convert/pkg/config"
	"github.com/envoyproxy/gcp-events-convert/pkg/http"
)

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Serve HTTP and forward filtered requests to the upstream",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()
		return runProxy(ctx)
	},
}

func init() {
	proxyCmd.Flags().String("listen-address", "", "address to accept requests on (default :8080)")
	proxyCmd.Flags().String("upstream", "", "url requests are forwarded to (default http://127.0.0.1:8081)")
	proxyCmd.Flags().Int64("max-request-bytes", 0, "largest request body accepted, 0 for no limit (default 10MiB)")
}

func runProxy(ctx context.Context) error {
	reg := newRegistry()
	chain, err := newFilterChain(cfg, reg)
	if err != nil {
		return err
	}
	handler, err := newProxyHandler(cfg, chain, logger)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return serveHTTP(ctx, &nethttp.Server{
			Addr:              cfg.ListenAddress,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		})
	})
	if cfg.MetricsAddress != "" {
		g.Go(func() error {
			return serveHTTP(ctx, newMetricsServer(cfg.MetricsAddress, reg))
		})
	}

	logger.Infow("proxy started",
		"listen_address", cfg.ListenAddress,
		"upstream", cfg.Upstream,
		"filters", chain.Names())
	err = g.Wait()
	logger.Infow("proxy stopped", "error", err)
	return err
}

// newProxyHandler runs requests through chain and forwards them to the upstream. HTTP/2 is
// accepted without TLS using the "h2c" extension.
func newProxyHandler(c *config.Config, chain *http.FilterChain, logger *zap.SugaredLogger) (nethttp.Handler, error) {
	target, err := url.Parse(c.Upstream)
	if err != nil {
		return nil, fmt.Errorf("upstream: %w", err)
	}
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w nethttp.ResponseWriter, r *nethttp.Request, err error) {
		logger.Warnw("upstream request failed", "path", r.URL.Path, "error", err)
		w.WriteHeader(nethttp.StatusBadGateway)
	}

	handler := http.NewHandler(chain, proxy, http.WithMaxRequestBytes(c.MaxRequestBytes))
	return h2c.NewHandler(handler, &http2.Server{}), nil
}
