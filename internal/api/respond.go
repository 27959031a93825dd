// Copyright 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	scs "github.com/ZaparooProject/go-scs"
	"github.com/ZaparooProject/go-scs/internal/logging"
)

const maxRequestBody = 1 << 20

type handler struct {
	devices  Devices
	mappings Mappings
	status   StatusSource
}

func writePlain(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	if body != "" {
		_, _ = io.WriteString(w, body)
	}
}

// writeResult answers a device operation.
func writeResult(w http.ResponseWriter, r *http.Request, op string, err error) {
	if err != nil {
		logging.Ctx(r.Context()).Info().Err(err).Str("op", op).Msg("operation failed")
	}
	writePlain(w, scs.HTTPStatus(err), scs.Message(err))
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, fmt.Errorf("request body exceeds %d bytes", mbe.Limit)
		}
		return nil, fmt.Errorf("read request body: %w", err)
	}
	return data, nil
}

// decode reads a JSON request body into v, answering 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	data, err := readBody(w, r)
	if err == nil {
		if uerr := json.Unmarshal(data, v); uerr != nil {
			err = fmt.Errorf("invalid JSON: %w", uerr)
		}
	}
	if err != nil {
		logging.Ctx(r.Context()).Info().Err(err).Str("path", r.URL.Path).Msg("bad request body")
		writePlain(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}
