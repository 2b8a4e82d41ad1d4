/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	errTokenMalformed = errors.New("malformed token")
	errTokenSignature = errors.New("token signature mismatch")
	errTokenExpired   = errors.New("token expired")
)

// tokenSigner issues and checks "<claims>.<mac>" bearer tokens, both parts
// unpadded base64url, the MAC being HMAC-SHA256 over the raw claims JSON.
type tokenSigner struct {
	key []byte
}

type claims struct {
	Subject string `json:"sub"`
	Expires int64  `json:"exp"`
}

var b64 = base64.RawURLEncoding

func (s *tokenSigner) mac(payload []byte) []byte {
	m := hmac.New(sha256.New, s.key)
	m.Write(payload)
	return m.Sum(nil)
}

func (s *tokenSigner) sign(subject string, exp time.Time) (string, error) {
	payload, err := json.Marshal(claims{Subject: subject, Expires: exp.Unix()})
	if err != nil {
		return "", err
	}
	return b64.EncodeToString(payload) + "." + b64.EncodeToString(s.mac(payload)), nil
}

// verify returns the token subject if the MAC matches and now is before the
// expiry.
func (s *tokenSigner) verify(token string, now time.Time) (string, error) {
	p64, m64, ok := strings.Cut(token, ".")
	if !ok {
		return "", errTokenMalformed
	}
	payload, err := b64.DecodeString(p64)
	if err != nil {
		return "", errTokenMalformed
	}
	sum, err := b64.DecodeString(m64)
	if err != nil {
		return "", errTokenMalformed
	}
	if !hmac.Equal(s.mac(payload), sum) {
		return "", errTokenSignature
	}
	var c claims
	if err := json.Unmarshal(payload, &c); err != nil {
		return "", errTokenMalformed
	}
	if now.Unix() >= c.Expires {
		return "", errTokenExpired
	}
	return c.Subject, nil
}
