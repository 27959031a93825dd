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
	"net/http"

	"github.com/goccy/go-json"

	"github.com/ZaparooProject/go-scs/dispatch"
	"github.com/ZaparooProject/go-scs/internal/logging"
	"github.com/ZaparooProject/go-scs/mapping"
)

func (h *handler) cardAccess(w http.ResponseWriter, r *http.Request) {
	var req dispatch.CardAccessRequest
	if !decode(w, r, &req) {
		return
	}
	writeResult(w, r, "cardAccess", h.devices.CardAccess(r.Context(), req))
}

func (h *handler) adjustStepperW(w http.ResponseWriter, r *http.Request) {
	var req dispatch.AdjustStepperWRequest
	if !decode(w, r, &req) {
		return
	}
	writeResult(w, r, "adjustStepperW", h.devices.AdjustStepperW(r.Context(), req))
}

func (h *handler) touchScreen(w http.ResponseWriter, r *http.Request) {
	var req dispatch.TouchScreenRequest
	if !decode(w, r, &req) {
		return
	}
	writeResult(w, r, "touchScreen", h.devices.TouchScreen(r.Context(), req))
}

func (h *handler) key(w http.ResponseWriter, r *http.Request) {
	var req dispatch.KeyRequest
	if !decode(w, r, &req) {
		return
	}
	writeResult(w, r, "key", h.devices.PressKey(r.Context(), req))
}

// getMappings returns the stored document verbatim.
func (h *handler) getMappings(kind mapping.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := h.mappings.Raw(kind)
		if err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Stringer("kind", kind).Msg("load mappings failed")
			writePlain(w, http.StatusBadRequest, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

// saveMappings stores the request body as the new document.
func (h *handler) saveMappings(kind mapping.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := readBody(w, r)
		if err == nil {
			err = h.mappings.Save(kind, data)
		}
		if err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Stringer("kind", kind).Msg("save mappings failed")
			writePlain(w, http.StatusBadRequest, err.Error())
			return
		}
		logging.Ctx(r.Context()).Info().Stringer("kind", kind).Int("bytes", len(data)).Msg("mappings saved")
		writePlain(w, http.StatusOK, "")
	}
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if h.status == nil {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
		return
	}
	st := h.status.Status()
	_ = json.NewEncoder(w).Encode(struct {
		Busy          map[string]bool `json:"busy"`
		Status        string          `json:"status"`
		LastCommandID string          `json:"lastCommandId"`
		Outstanding   int             `json:"outstanding"`
	}{
		Status:        "ok",
		Busy:          st.Busy,
		LastCommandID: st.LastCommandID,
		Outstanding:   st.Outstanding,
	})
}
