// Copyright 2022 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package diag defines the stage-tagged diagnostic type shared by every
// compiler stage, and the internal-error variant used to surface a
// genuine implementation bug (an unreachable switch arm, a broken
// invariant) without ever confusing it for a user-facing diagnostic.
package diag

import (
	"fmt"

	"github.com/vx-lang/hazc/internal/token"
)

// Stage names the pipeline component that raised an Error.
type Stage string

const (
	Scan       Stage = "scan"
	Preprocess Stage = "preprocess"
	Parse      Stage = "parse"
	Generate   Stage = "generate"
	Internal   Stage = "internal"
)

// Error is the single error type returned by every compiler stage. Its
// Error() rendering matches the one diagnostic format the whole
// pipeline uses: "file:row:col: [ERROR]: message".
type Error struct {
	Stage Stage
	Pos   token.Position
	Msg   string
}

func (e *Error) Error() string {
	if e.Stage == Internal {
		if e.Pos.File == "" {
			return fmt.Sprintf("[INTERNAL ERROR]: %s", e.Msg)
		}
		return fmt.Sprintf("%s: [INTERNAL ERROR]: %s", e.Pos, e.Msg)
	}
	return fmt.Sprintf("%s: [ERROR]: %s", e.Pos, e.Msg)
}

// New builds a stage-tagged diagnostic at pos.
func New(stage Stage, pos token.Position, format string, args ...any) *Error {
	return &Error{Stage: stage, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// Internalf builds an internal-error diagnostic, optionally positioned.
// Used to wrap a recovered panic from an unreachable dispatch arm.
func Internalf(pos token.Position, format string, args ...any) *Error {
	return &Error{Stage: Internal, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// IsStage reports whether err is a *Error raised by the given stage.
func IsStage(err error, stage Stage) bool {
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Stage == stage
	}
	return false
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
