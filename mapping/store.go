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

package mapping

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	scs "github.com/ZaparooProject/go-scs"
	"github.com/ZaparooProject/go-scs/internal/syncutil"
	"github.com/fsnotify/fsnotify"
	"github.com/goccy/go-json"
)

// Kind selects one of the two mapping files.
type Kind int

const (
	// KindCardSlot is the card name to slot number document.
	KindCardSlot Kind = iota
	// KindTouchScreen is the area name to key index document.
	KindTouchScreen
)

func (k Kind) String() string {
	switch k {
	case KindCardSlot:
		return "card slot"
	case KindTouchScreen:
		return "touch screen"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ErrInvalidDocument is returned when a saved blob is not a mapping document.
var ErrInvalidDocument = errors.New("invalid mapping document")

// emptyDocument is served when a mapping file does not exist yet.
var emptyDocument = []byte("[]")

type entry struct {
	raw    []byte
	cards  CardSlotDocument
	areas  TouchScreenDocument
	loaded bool
}

// Store reads and writes the mapping files and caches their parsed form.
type Store struct {
	readFile func(string) ([]byte, error)
	paths    [2]string
	cache    [2]entry
	// gen advances on every Save and Invalidate; a load that started under
	// an older generation must not publish what it read.
	gen    [2]uint64
	mu     syncutil.RWMutex
	saveMu syncutil.Mutex
}

// NewStore creates a store for the given file paths.
func NewStore(cardSlotPath, touchScreenPath string) *Store {
	return &Store{
		paths:    [2]string{cardSlotPath, touchScreenPath},
		readFile: os.ReadFile,
	}
}

// Path returns the file backing kind.
func (s *Store) Path(kind Kind) string {
	return s.paths[kind]
}

// Raw returns the stored document bytes exactly as saved.
func (s *Store) Raw(kind Kind) ([]byte, error) {
	e, err := s.load(kind)
	if err != nil {
		return nil, err
	}
	return e.raw, nil
}

// CardSlots returns the parsed card-slot document.
func (s *Store) CardSlots() (CardSlotDocument, error) {
	e, err := s.load(KindCardSlot)
	if err != nil {
		return nil, err
	}
	return e.cards, nil
}

// TouchScreens returns the parsed touch-screen document.
func (s *Store) TouchScreens() (TouchScreenDocument, error) {
	e, err := s.load(KindTouchScreen)
	if err != nil {
		return nil, err
	}
	return e.areas, nil
}

// ResolveSlot looks cardName up in the active card-slot set.
func (s *Store) ResolveSlot(cardName string) (int, error) {
	doc, err := s.CardSlots()
	if err != nil {
		return 0, err
	}
	return ResolveSlot(doc, cardName)
}

// ResolveAreas looks names up in the active touch-screen set.
func (s *Store) ResolveAreas(names []string) ([]scs.TouchArea, error) {
	doc, err := s.TouchScreens()
	if err != nil {
		return nil, err
	}
	return ResolveAreas(doc, names)
}

// Save validates data and atomically replaces the file for kind.
func (s *Store) Save(kind Kind, data []byte) error {
	e, err := parse(kind, data)
	if err != nil {
		return err
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if err := writeAtomic(s.paths[kind], data); err != nil {
		return err
	}
	s.mu.Lock()
	s.cache[kind] = e
	s.gen[kind]++
	s.mu.Unlock()
	return nil
}

// Invalidate drops the cached copy of kind so the next read goes to disk.
func (s *Store) Invalidate(kind Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[kind] = entry{}
	s.gen[kind]++
}

func (s *Store) load(kind Kind) (entry, error) {
	if kind != KindCardSlot && kind != KindTouchScreen {
		return entry{}, fmt.Errorf("%w: mapping kind %d", scs.ErrInvalidParameter, int(kind))
	}

	s.mu.RLock()
	e := s.cache[kind]
	gen := s.gen[kind]
	s.mu.RUnlock()
	if e.loaded {
		return e, nil
	}

	data, err := s.readFile(s.paths[kind])
	switch {
	case errors.Is(err, os.ErrNotExist):
		data = emptyDocument
	case err != nil:
		return entry{}, fmt.Errorf("read %s mapping: %w", kind, err)
	}

	e, err = parse(kind, data)
	if err != nil {
		return entry{}, fmt.Errorf("%s mapping %s: %w", kind, s.paths[kind], err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen[kind] != gen {
		// Saved or invalidated while reading; what we read may be stale.
		if cur := s.cache[kind]; cur.loaded {
			return cur, nil
		}
		return e, nil
	}
	s.cache[kind] = e
	return e, nil
}

func parse(kind Kind, data []byte) (entry, error) {
	if !json.Valid(data) {
		return entry{}, fmt.Errorf("%w: not valid JSON", ErrInvalidDocument)
	}
	e := entry{raw: append([]byte(nil), data...), loaded: true}
	var err error
	switch kind {
	case KindCardSlot:
		err = json.Unmarshal(data, &e.cards)
	case KindTouchScreen:
		err = json.Unmarshal(data, &e.areas)
	default:
		return entry{}, fmt.Errorf("%w: mapping kind %d", scs.ErrInvalidParameter, int(kind))
	}
	if err != nil {
		return entry{}, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return e, nil
}

// writeAtomic stages data next to path and renames it into place.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("prepare mapping directory %q: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("stage mapping: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write mapping: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync mapping: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close mapping: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace mapping %q: %w", path, err)
	}
	return nil
}

// Watch invalidates cached documents whenever their files change on disk. It
// blocks until ctx is done.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create mapping watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	watched := make(map[string]bool)
	for _, p := range s.paths {
		dir := filepath.Dir(p)
		if watched[dir] {
			continue
		}
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("prepare mapping directory %q: %w", dir, err)
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch mapping directory %q: %w", dir, err)
		}
		watched[dir] = true
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return errors.New("mapping watcher closed")
			}
			s.handleEvent(ev)
		case werr, ok := <-watcher.Errors:
			if !ok {
				return errors.New("mapping watcher closed")
			}
			scs.Logger().Warn().Err(werr).Msg("mapping watcher error")
			s.Invalidate(KindCardSlot)
			s.Invalidate(KindTouchScreen)
		}
	}
}

func (s *Store) handleEvent(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
		!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return
	}
	name := filepath.Clean(ev.Name)
	for i, p := range s.paths {
		if filepath.Clean(p) == name {
			scs.Debugf("mapping %s changed on disk (%s)", Kind(i), ev.Op)
			s.Invalidate(Kind(i))
		}
	}
}
