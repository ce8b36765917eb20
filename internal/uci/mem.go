package uci

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// MemStore is an in-memory Store with file-backed commits. Commit renders the
// config in `uci show` notation to an artifact file under dir, which gives
// transaction tests real files to back up and restore. Safe for concurrent use.
type MemStore struct {
	mu        sync.Mutex
	dir       string
	committed map[string]*configState
	staged    map[string]*configState

	// Fail, when non-nil, runs before every mutating operation. Returning a
	// non-nil error aborts the operation. Tests use it to force failures at
	// chosen points in a transaction.
	Fail func(op, key string) error
}

var _ Store = (*MemStore)(nil)

type configState struct {
	values map[string]string
	lists  map[string][]string
}

func newConfigState() *configState {
	return &configState{
		values: make(map[string]string),
		lists:  make(map[string][]string),
	}
}

func (c *configState) clone() *configState {
	n := newConfigState()
	for k, v := range c.values {
		n.values[k] = v
	}
	for k, v := range c.lists {
		n.lists[k] = append([]string(nil), v...)
	}
	return n
}

// NewMemStore returns an empty MemStore writing artifacts under dir.
func NewMemStore(dir string) *MemStore {
	return &MemStore{
		dir:       dir,
		committed: make(map[string]*configState),
		staged:    make(map[string]*configState),
	}
}

func (s *MemStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	config := ConfigOf(key)
	for _, st := range []*configState{s.staged[config], s.committed[config]} {
		if st == nil {
			continue
		}
		if v, ok := st.values[key]; ok {
			return v, nil
		}
		if l, ok := st.lists[key]; ok {
			return strings.Join(l, " "), nil
		}
		// A staged state is a full snapshot; a miss there is final.
		break
	}
	return "", fmt.Errorf("%w: %s", ErrEntryNotFound, key)
}

func (s *MemStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failCheck("set", key); err != nil {
		return err
	}
	s.stagedFor(ConfigOf(key)).values[key] = value
	return nil
}

func (s *MemStore) AddList(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failCheck("add_list", key); err != nil {
		return err
	}
	st := s.stagedFor(ConfigOf(key))
	st.lists[key] = append(st.lists[key], value)
	return nil
}

func (s *MemStore) DelList(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failCheck("del_list", key); err != nil {
		return err
	}
	st := s.stagedFor(ConfigOf(key))
	kept := st.lists[key][:0]
	for _, v := range st.lists[key] {
		if v != value {
			kept = append(kept, v)
		}
	}
	st.lists[key] = kept
	return nil
}

func (s *MemStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failCheck("delete", key); err != nil {
		return err
	}
	st := s.stagedFor(ConfigOf(key))
	delete(st.values, key)
	delete(st.lists, key)
	return nil
}

func (s *MemStore) Commit(_ context.Context, config string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failCheck("commit", config); err != nil {
		return err
	}
	st, ok := s.staged[config]
	if !ok {
		return nil // nothing staged
	}
	s.committed[config] = st
	delete(s.staged, config)
	return s.writeArtifact(config, st)
}

func (s *MemStore) Revert(_ context.Context, config string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.staged, config)
	return nil
}

func (s *MemStore) ArtifactPath(config string) string {
	return filepath.Join(s.dir, config)
}

// stagedFor returns the staged snapshot for config, cloning the committed
// state on first mutation.
func (s *MemStore) stagedFor(config string) *configState {
	if st, ok := s.staged[config]; ok {
		return st
	}
	var st *configState
	if c, ok := s.committed[config]; ok {
		st = c.clone()
	} else {
		st = newConfigState()
	}
	s.staged[config] = st
	return st
}

func (s *MemStore) failCheck(op, key string) error {
	if s.Fail == nil {
		return nil
	}
	return s.Fail(op, key)
}

func (s *MemStore) writeArtifact(config string, st *configState) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	keys := make([]string, 0, len(st.values)+len(st.lists))
	for k := range st.values {
		keys = append(keys, k)
	}
	for k := range st.lists {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		if v, ok := st.values[k]; ok {
			fmt.Fprintf(&b, "%s='%s'\n", k, v)
			continue
		}
		quoted := make([]string, 0, len(st.lists[k]))
		for _, v := range st.lists[k] {
			quoted = append(quoted, "'"+v+"'")
		}
		fmt.Fprintf(&b, "%s=%s\n", k, strings.Join(quoted, " "))
	}

	if err := os.WriteFile(s.ArtifactPath(config), []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write artifact %s: %w", config, err)
	}
	return nil
}
