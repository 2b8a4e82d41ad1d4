/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import "testing"

func TestWithPassword(t *testing.T) {
	cases := []struct{ dsn, pw, want string }{
		{"postgres://ann@db:5432/speech", "s3cret", "postgres://ann:s3cret@db:5432/speech"},
		{"postgres://ann:keep@db/speech", "s3cret", "postgres://ann:keep@db/speech"},
		{"host=db user=ann", "s3cret", "host=db user=ann"},
		{"postgres://ann@db/speech", "", "postgres://ann@db/speech"},
		{"  ", "s3cret", ""},
	}
	for _, c := range cases {
		if got := withPassword(c.dsn, c.pw); got != c.want {
			t.Fatalf("withPassword(%q) = %q, want %q", c.dsn, got, c.want)
		}
	}
}

func TestRunUsageAndVersion(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	if code := run(nil); code != 2 {
		t.Fatalf("no args: exit %d", code)
	}
	if code := run([]string{"version"}); code != 0 {
		t.Fatalf("version: exit %d", code)
	}
	if code := run([]string{"nope"}); code != 2 {
		t.Fatalf("unknown command: exit %d", code)
	}
}
