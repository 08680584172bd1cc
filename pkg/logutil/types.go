// Copyright 2022 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logutil

import "go.uber.org/zap/zapcore"

// LogConfig log config
type LogConfig struct {
	// Level is the minimum enabled level: debug, info, warn, error, panic, fatal.
	Level string `toml:"level"`
	// Format is console or json.
	Format string `toml:"format"`
	// Filename enables file output with rotation when not empty.
	Filename string `toml:"filename"`
	// MaxSize in MB before the log file is rotated.
	MaxSize int `toml:"max-size"`
	// MaxDays to retain old log files.
	MaxDays int `toml:"max-days"`
	// MaxBackups is the number of rotated files to keep.
	MaxBackups int `toml:"max-backups"`
	// StacktraceLevel is the minimum level that carries a stacktrace. Default fatal.
	StacktraceLevel string `toml:"stacktrace-level"`
}

// ZapSink pairs an encoder with the syncer it writes to.
type ZapSink struct {
	enc    zapcore.Encoder
	syncer zapcore.WriteSyncer
}
