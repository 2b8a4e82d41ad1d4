/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package lang holds the ordered list of runtime languages. Index 0 is the
// language the script was written in; voice clips fall back to it.
package lang

import (
	"strings"

	"golang.org/x/text/language"
)

// Entry is one configured language. RTL overrides script detection when set.
type Entry struct {
	Code string `yaml:"code"`
	RTL  *bool  `yaml:"rtl,omitempty"`
}

// rtlScripts are ISO 15924 codes of scripts written right to left.
var rtlScripts = map[string]bool{
	"Arab": true, "Hebr": true, "Thaa": true, "Syrc": true, "Nkoo": true,
	"Adlm": true, "Rohg": true, "Mand": true, "Samr": true,
}

// Set is an immutable, ordered language list.
type Set struct {
	entries []Entry
	index   map[string]int
}

// New builds a Set. Codes are canonicalised and duplicates dropped; an empty
// list yields a single English entry.
func New(entries []Entry) *Set {
	s := &Set{index: map[string]int{}}
	for _, e := range entries {
		c := Canonical(e.Code)
		if c == "" {
			continue
		}
		if _, dup := s.index[c]; dup {
			continue
		}
		e.Code = c
		s.index[c] = len(s.entries)
		s.entries = append(s.entries, e)
	}
	if len(s.entries) == 0 {
		s.entries = []Entry{{Code: "en"}}
		s.index["en"] = 0
	}
	return s
}

// FromCodes is New for plain codes.
func FromCodes(codes ...string) *Set {
	es := make([]Entry, 0, len(codes))
	for _, c := range codes {
		es = append(es, Entry{Code: c})
	}
	return New(es)
}

// Canonical returns the BCP 47 form of code, or the trimmed lower-case input
// when it does not parse.
func Canonical(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	t, err := language.Parse(code)
	if err != nil {
		return strings.ToLower(code)
	}
	return t.String()
}

// Index returns the position of name, 0 for the empty name and for unknown languages.
func (s *Set) Index(name string) int {
	if i, ok := s.index[Canonical(name)]; ok {
		return i
	}
	return 0
}

// Has reports whether name is configured.
func (s *Set) Has(name string) bool {
	_, ok := s.index[Canonical(name)]
	return ok
}

// ReadsRightToLeft reports the text direction of name.
func (s *Set) ReadsRightToLeft(name string) bool {
	c := Canonical(name)
	if c == "" {
		c = s.entries[0].Code
	}
	if i, ok := s.index[c]; ok && s.entries[i].RTL != nil {
		return *s.entries[i].RTL
	}
	return IsRTL(c)
}

// Codes lists the configured codes in order.
func (s *Set) Codes() []string {
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Code
	}
	return out
}

func (s *Set) Len() int { return len(s.entries) }

// IsRTL reports whether the most likely script of code is written right to left.
func IsRTL(code string) bool {
	t, err := language.Parse(strings.TrimSpace(code))
	if err != nil {
		return false
	}
	sc, conf := t.Script()
	if conf == language.No {
		return false
	}
	return rtlScripts[sc.String()]
}
