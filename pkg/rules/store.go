// Package rules holds the file-persisted event-rule store. The store is
// the single source of truth for rule evaluation order: rules are kept
// as an ordered list, and every mutation rewrites the whole backing file
// before it is considered applied.
package rules

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/primaryrutabaga/cs2-link/pkg/schemas"
)

var ErrNotFound = errors.New("rule not found")

// Store is a mutex-guarded rule set backed by a YAML file. Reads during
// evaluation observe a consistent set; writes are rare admin operations.
type Store struct {
	mu    sync.RWMutex
	path  string
	order []string
	rules map[string]schemas.Rule
}

// Open loads the rule file at path, seeding and persisting the default
// CS2 rule set if the file does not exist yet.
func Open(path string) (*Store, error) {
	s := &Store{
		path:  path,
		rules: make(map[string]schemas.Rule),
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		for _, sr := range DefaultRules() {
			s.order = append(s.order, sr.ID)
			s.rules[sr.ID] = sr.Rule
		}
		if err := s.save(); err != nil {
			return nil, fmt.Errorf("seed defaults: %w", err)
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}

	var file schemas.RuleFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse rule file %s: %w", path, err)
	}
	for _, sr := range file.Rules {
		if sr.ID == "" {
			return nil, fmt.Errorf("rule file %s: rule %q has no id", path, sr.Rule.Name)
		}
		if _, dup := s.rules[sr.ID]; dup {
			return nil, fmt.Errorf("rule file %s: duplicate rule id %q", path, sr.ID)
		}
		s.order = append(s.order, sr.ID)
		s.rules[sr.ID] = sr.Rule
	}
	return s, nil
}

// List returns all rules in insertion order. The returned slice is a
// copy; callers may not mutate the store through it.
func (s *Store) List() []schemas.StoredRule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]schemas.StoredRule, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, schemas.StoredRule{ID: id, Rule: s.rules[id]})
	}
	return out
}

// Get returns the rule stored under id, or ErrNotFound.
func (s *Store) Get(id string) (schemas.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rules[id]
	if !ok {
		return schemas.Rule{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, nil
}

// Put stores r under id, replacing any existing rule, and persists. A
// persistence failure rolls the in-memory change back and propagates.
func (s *Store) Put(id string, r schemas.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.rules[id]
	if !existed {
		s.order = append(s.order, id)
	}
	s.rules[id] = r

	if err := s.save(); err != nil {
		if existed {
			s.rules[id] = prev
		} else {
			s.order = s.order[:len(s.order)-1]
			delete(s.rules, id)
		}
		return fmt.Errorf("persist rule %s: %w", id, err)
	}
	return nil
}

// Create stores r under a freshly generated id and persists, returning
// the id. Generated ids never collide with existing rules.
func (s *Store) Create(r schemas.Rule) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	for {
		if _, taken := s.rules[id]; !taken {
			break
		}
		id = uuid.NewString()
	}

	s.order = append(s.order, id)
	s.rules[id] = r

	if err := s.save(); err != nil {
		s.order = s.order[:len(s.order)-1]
		delete(s.rules, id)
		return "", fmt.Errorf("persist rule %s: %w", id, err)
	}
	return id, nil
}

// Delete removes the rule stored under id and persists. Returns
// ErrNotFound if no such rule exists.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.rules[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	idx := -1
	for i, existing := range s.order {
		if existing == id {
			idx = i
			break
		}
	}
	s.order = append(s.order[:idx], s.order[idx+1:]...)
	delete(s.rules, id)

	if err := s.save(); err != nil {
		s.order = append(s.order[:idx], append([]string{id}, s.order[idx:]...)...)
		s.rules[id] = prev
		return fmt.Errorf("persist delete of %s: %w", id, err)
	}
	return nil
}

// save rewrites the whole backing file. Write-then-rename keeps a crash
// mid-write from truncating the previous rule set. Callers hold s.mu.
func (s *Store) save() error {
	file := schemas.RuleFile{SchemaVersion: schemas.RulesSchemaVersionV1}
	for _, id := range s.order {
		file.Rules = append(file.Rules, schemas.StoredRule{ID: id, Rule: s.rules[id]})
	}

	raw, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("marshal rule file: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create rule dir: %w", err)
	}
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write rule file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace rule file: %w", err)
	}
	return nil
}
