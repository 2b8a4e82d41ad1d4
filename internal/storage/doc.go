/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage implements the local speech catalog.
// It manages the per-project embedded SQLite database at <root>/.gsp/catalog.sqlite that maps
// (line id, language) pairs to line text and voice clips and keeps a persisted speech log.
// The catalog can be rebuilt from a JSON catalog file at any time.
package storage
