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

package api

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CommonCAPI is where filter logs end up. Envoy hands them to its own logger, the standalone
// hosts use zap.
type CommonCAPI interface {
	Log(level LogType, message string)
	LogLevel() LogType
}

type zapCAPI struct {
	logger *zap.Logger
}

var cAPI CommonCAPI = NewZapCommonCAPI(newDefaultLogger())

func newDefaultLogger() *zap.Logger {
	logger, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// NewZapCommonCAPI adapts a zap logger to CommonCAPI.
func NewZapCommonCAPI(logger *zap.Logger) CommonCAPI {
	return &zapCAPI{logger: logger.WithOptions(zap.AddCallerSkip(2))}
}

// SetCommonCAPI for mock cAPI
func SetCommonCAPI(api CommonCAPI) {
	cAPI = api
}

// GetCommonCAPI returns the current CommonCAPI, mostly so tests can restore it.
func GetCommonCAPI() CommonCAPI {
	return cAPI
}

func (c *zapCAPI) Log(level LogType, message string) {
	switch level {
	case Trace, Debug:
		c.logger.Debug(message)
	case Info:
		c.logger.Info(message)
	case Warn:
		c.logger.Warn(message)
	case Error:
		c.logger.Error(message)
	case Critical:
		// panics with development loggers only
		c.logger.DPanic(message)
	}
}

func (c *zapCAPI) LogLevel() LogType {
	switch c.logger.Level() {
	case zapcore.DebugLevel:
		return Debug
	case zapcore.InfoLevel:
		return Info
	case zapcore.WarnLevel:
		return Warn
	case zapcore.ErrorLevel:
		return Error
	}
	return Critical
}
