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

// Package mapping resolves human-facing names to device indices using the
// card-slot and touch-screen mapping documents edited from the console.
//
// A document is a JSON array of named sets. At most one set is meant to be
// active; when several are, the first active set in document order wins.
package mapping

import (
	scs "github.com/ZaparooProject/go-scs"
)

// CardSlot maps a card name to a bay slot.
type CardSlot struct {
	CardName   string `json:"cardName"`
	SlotNumber int    `json:"slotNumber"`
}

// TouchArea maps a touch screen area name to a finger key index.
type TouchArea struct {
	AreaName string `json:"areaName"`
	Index    int    `json:"index"`
}

// Set is one named mapping.
type Set[T any] struct {
	Name    string `json:"name"`
	Mapping []T    `json:"mapping"`
	Active  bool   `json:"active"`
}

// Document is the full contents of a mapping file.
type Document[T any] []Set[T]

// CardSlotDocument is the card-slot mapping file.
type CardSlotDocument = Document[CardSlot]

// TouchScreenDocument is the touch-screen mapping file.
type TouchScreenDocument = Document[TouchArea]

// Active returns the first set flagged active.
func (d Document[T]) Active() (*Set[T], bool) {
	for i := range d {
		if d[i].Active {
			return &d[i], true
		}
	}
	return nil, false
}

// ResolveSlot returns the slot number of cardName in the active set.
func ResolveSlot(doc CardSlotDocument, cardName string) (int, error) {
	if set, ok := doc.Active(); ok {
		for _, e := range set.Mapping {
			if e.CardName == cardName {
				return e.SlotNumber, nil
			}
		}
	}
	return 0, &scs.LookupError{What: "card name", Name: cardName}
}

// ResolveAreas converts area names into the ordered keys list of a touch
// screen command. Any unknown name fails the whole batch.
func ResolveAreas(doc TouchScreenDocument, names []string) ([]scs.TouchArea, error) {
	set, ok := doc.Active()
	out := make([]scs.TouchArea, 0, len(names))
	for i, name := range names {
		found := false
		if ok {
			for _, e := range set.Mapping {
				if e.AreaName == name {
					out = append(out, scs.TouchArea{Index: i, KeyNumber: e.Index})
					found = true
					break
				}
			}
		}
		if !found {
			return nil, &scs.LookupError{What: "touch screen area", Name: name}
		}
	}
	return out, nil
}
