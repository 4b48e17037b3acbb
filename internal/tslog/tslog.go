// Copyright 2023 Google Inc.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//     https://www.apache.org/licenses/LICENSE-2.0
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package tslog provides a simple wrapper around Go's core 'log' library,
// setting some default verbose options and adding a few explicit severity
// levels.
//
// This package is meant to provide readable diagnostics for the trace
// analyzer, not as a serious logging package. There are plenty of excellent
// logging packages for Go to consider before this one.
package tslog

import (
	"fmt"
	"io"
	"log"
	"os"
)

func init() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Llongfile)
	log.SetOutput(os.Stderr)
}

// SetOutput redirects the package logger's output, primarily for testing.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

// Info formats and returns an informational log line, tagged '[I]'. It does
// not write to the log itself; callers pass the result to log.Print or
// similar so that the call site's file/line is attributed correctly.
func Info(format string, args ...any) string {
	return tag("I", format, args...)
}

// Warning formats and returns a warning log line, tagged '[W]'.
func Warning(format string, args ...any) string {
	return tag("W", format, args...)
}

// Error formats and returns an error log line, tagged '[E]'.
func Error(format string, args ...any) string {
	return tag("E", format, args...)
}

// Panic formats a log line tagged '[P]', logs it, and panics with it.
func Panic(format string, args ...any) string {
	msg := tag("P", format, args...)
	log.Output(2, msg)
	panic(msg)
}

func tag(severity, format string, args ...any) string {
	return fmt.Sprintf("[%s] %s", severity, fmt.Sprintf(format, args...))
}

// Print logs the given already-formatted message through the package
// logger, attributing the call site of Print (not of Info/Warning/etc).
func Print(msg string) {
	log.Output(2, msg)
}
