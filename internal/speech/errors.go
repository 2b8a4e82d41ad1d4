/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package speech

import (
	"errors"
	"fmt"
)

var (
	// ErrUnterminatedToken is reported when a recognised token has no closing bracket.
	ErrUnterminatedToken = errors.New("unterminated token")
	// ErrInvalidWait is reported when a [wait:N] payload is not a non-negative number.
	ErrInvalidWait = errors.New("invalid wait duration")
)

// ParseError describes a malformed inline token. A line carrying one cannot be
// displayed because its gap offsets would be meaningless.
type ParseError struct {
	Offset int    // rune offset of the token in the raw text
	Token  string // the token prefix that was recognised, e.g. "[wait:"
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("speech: parse %q at offset %d: %v", e.Token, e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
