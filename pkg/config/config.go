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

// Package config loads the settings of the gcp-events-convert binary.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	xds "github.com/cncf/xds/go/xds/type/v3"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/envoyproxy/gcp-events-convert/pkg/http"
)

const (
	EnvPrefix = "GCP_EVENTS_CONVERT"

	defaultFilter      = "gcp_events_convert"
	defaultContentType = "application/grpc+cloudevent+json"
)

// Config is the binary configuration. Every key can be overridden by an environment variable
// named after it, e.g. GCP_EVENTS_CONVERT_LISTEN_ADDRESS.
type Config struct {
	LogLevel        string         `mapstructure:"log_level"`
	ListenAddress   string         `mapstructure:"listen_address"`
	Upstream        string         `mapstructure:"upstream"`
	GRPCAddress     string         `mapstructure:"grpc_address"`
	MetricsAddress  string         `mapstructure:"metrics_address"`
	MaxRequestBytes int64          `mapstructure:"max_request_bytes"`
	Filters         []FilterConfig `mapstructure:"filters"`
	Routes          []RouteConfig  `mapstructure:"routes"`
}

// FilterConfig names a plugin and holds the value of its TypedStruct configuration.
type FilterConfig struct {
	Name   string                 `mapstructure:"name"`
	Config map[string]interface{} `mapstructure:"config"`
}

// RouteConfig overrides the config of filters in the chain for paths starting with PathPrefix.
// Each override is merged into the chain's config of the same filter.
type RouteConfig struct {
	PathPrefix string         `mapstructure:"path_prefix"`
	Filters    []FilterConfig `mapstructure:"filters"`
}

// flags maps viper keys to the command line flags that override them.
var flags = map[string]string{
	"log_level":         "log-level",
	"listen_address":    "listen-address",
	"upstream":          "upstream",
	"grpc_address":      "grpc-address",
	"metrics_address":   "metrics-address",
	"max_request_bytes": "max-request-bytes",
}

// Load reads configuration from the provided path, environment variables and the flags in fs
// that were set. An empty path looks for gcp-events-convert.yaml in the working directory and
// /etc/gcp-events-convert, a missing file is not an error then.
func Load(configPath string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("log_level", "info")
	v.SetDefault("listen_address", ":8080")
	v.SetDefault("upstream", "http://127.0.0.1:8081")
	v.SetDefault("grpc_address", ":9002")
	v.SetDefault("metrics_address", ":9090")
	v.SetDefault("max_request_bytes", 10<<20)
	v.SetDefault("filters", []map[string]interface{}{
		{
			"name":   defaultFilter,
			"config": map[string]interface{}{"content_type": defaultContentType},
		},
	})

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("gcp-events-convert")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/gcp-events-convert")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if fs != nil {
		for key, name := range flags {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Upstream != "" {
		u, err := url.Parse(c.Upstream)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("upstream: invalid url %q", c.Upstream)
		}
	}
	if c.MaxRequestBytes < 0 {
		return errors.New("max_request_bytes: must not be negative")
	}
	names := map[string]bool{}
	for i, f := range c.Filters {
		if f.Name == "" {
			return fmt.Errorf("filters[%d]: missing name", i)
		}
		names[f.Name] = true
	}
	for i, r := range c.Routes {
		if !strings.HasPrefix(r.PathPrefix, "/") {
			return fmt.Errorf("routes[%d]: path_prefix must start with /", i)
		}
		for j, f := range r.Filters {
			if !names[f.Name] {
				return fmt.Errorf("routes[%d].filters[%d]: %q is not in filters", i, j, f.Name)
			}
		}
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (zapcore.Level, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return level, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// FilterConfigs wraps each filter's config in a TypedStruct, the form plugin parsers read.
func (c *Config) FilterConfigs() ([]http.FilterConfig, error) {
	return filterConfigs("filters", c.Filters)
}

// RouteConfigs converts the route overrides the same way as FilterConfigs.
func (c *Config) RouteConfigs() ([]http.RouteConfig, error) {
	routes := make([]http.RouteConfig, 0, len(c.Routes))
	for i, r := range c.Routes {
		configs, err := filterConfigs(fmt.Sprintf("routes[%d].filters", i), r.Filters)
		if err != nil {
			return nil, err
		}
		routes = append(routes, http.RouteConfig{PathPrefix: r.PathPrefix, Filters: configs})
	}
	return routes, nil
}

func filterConfigs(key string, filters []FilterConfig) ([]http.FilterConfig, error) {
	configs := make([]http.FilterConfig, 0, len(filters))
	for i, f := range filters {
		value, err := structpb.NewStruct(f.Config)
		if err != nil {
			return nil, fmt.Errorf("%s[%d] %s: %w", key, i, f.Name, err)
		}
		any, err := anypb.New(&xds.TypedStruct{
			TypeUrl: "type.googleapis.com/" + f.Name,
			Value:   value,
		})
		if err != nil {
			return nil, fmt.Errorf("%s[%d] %s: %w", key, i, f.Name, err)
		}
		configs = append(configs, http.FilterConfig{Name: f.Name, Config: any})
	}
	return configs, nil
}
