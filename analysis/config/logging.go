// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
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

package config

import (
	"log"
)

type LogLevel int

const (
	// ErrLevel=1 - the minimum level of logging.
	ErrLevel LogLevel = iota + 1

	// WarnLEvel=2 - the level for logging warnings, and errors
	WarnLevel

	// InfoLevel=3 - the level for logging high-level information, results
	InfoLevel

	// DebugLevel=4 - the level for debugging information. The tool will run properly on large programs with
	// that level of debug information.
	DebugLevel

	// TraceLevel=5 - the level for tracing. The tool will not run properly on large programs with that level
	// of information, but this is useful on smaller testing programs.
	TraceLevel
)

// LogGroup is mkint's pipeline logger: pass.go's Run logs one line per stage
// of the taint + range analysis (sinks recognized, sources rewritten, the
// taint and range fixed points reached) and frontend's LoadDir warns when it
// has to fall back a function to a bare declaration. Only the three levels
// the pipeline actually emits at are wired up; ErrLevel and TraceLevel stay
// in the LogLevel scale above so -log-level's numeric range lines up with
// DebugLevel/InfoLevel/WarnLevel, but nothing in this port logs at them.
type LogGroup struct {
	level LogLevel
	debug *log.Logger
	info  *log.Logger
	warn  *log.Logger
}

// NewLogGroup returns a log group configured to cfg's log-level.
func NewLogGroup(cfg *Config) *LogGroup {
	l := &LogGroup{
		level: LogLevel(cfg.LogLevel),
		debug: log.Default(),
		info:  log.Default(),
		warn:  log.Default(),
	}

	l.debug.SetPrefix("[DEBUG] ")
	l.info.SetPrefix("[INFO] ")
	l.warn.SetPrefix("[WARN] ")
	return l
}

// Debugf logs a per-stage pipeline detail (tainted-value counts, iteration
// counts, ...), shown only when cfg.LogLevel requests Debug or above.
func (l *LogGroup) Debugf(format string, v ...any) {
	if l.level >= DebugLevel {
		l.debug.Printf(format, v...)
	}
}

// Infof logs a top-level Run milestone (module loaded, findings counted).
func (l *LogGroup) Infof(format string, v ...any) {
	if l.level >= InfoLevel {
		l.info.Printf(format, v...)
	}
}

// Warnf logs a recoverable problem, e.g. frontend.LoadDir falling a function
// back to a bare declaration instead of failing the whole load.
func (l *LogGroup) Warnf(format string, v ...any) {
	if l.level >= WarnLevel {
		l.warn.Printf(format, v...)
	}
}
