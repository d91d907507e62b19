package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Store is the file-backed registry database. All state lives in memory
// under a RWMutex and is flushed to disk after every mutation.
type Store struct {
	mu   sync.RWMutex
	path string
	data storeData
}

// storeData is the on-disk document (~/.mlagent/registry.json).
type storeData struct {
	Models    map[string][]Model  `json:"models"`
	Pipelines map[string]Pipeline `json:"pipelines"`
	Resources map[string]Resource `json:"resources"`
}

// Open loads the registry database at path, creating an empty one when
// the file does not exist yet.
func Open(path string) (*Store, error) {
	s := &Store{
		path: path,
		data: storeData{
			Models:    make(map[string][]Model),
			Pipelines: make(map[string]Pipeline),
			Resources: make(map[string]Resource),
		},
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading registry db %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("parsing registry db %s: %w", path, err)
	}
	if s.data.Models == nil {
		s.data.Models = make(map[string][]Model)
	}
	if s.data.Pipelines == nil {
		s.data.Pipelines = make(map[string]Pipeline)
	}
	if s.data.Resources == nil {
		s.data.Resources = make(map[string]Resource)
	}
	return s, nil
}

// persist writes the database via a temp file rename. Callers hold the
// write lock.
func (s *Store) persist() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating registry db directory: %w", err)
	}

	raw, err := json.MarshalIndent(&s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding registry db: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("writing registry db: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing registry db: %w", err)
	}
	return nil
}

// commit flushes the database to disk, undoing the in-memory mutation
// when the write fails so memory never diverges from the file. Callers
// hold the write lock.
func (s *Store) commit(restore func()) error {
	if err := s.persist(); err != nil {
		restore()
		return err
	}
	return nil
}

// restoreModels puts back the pre-mutation version slice for name.
func (s *Store) restoreModels(name string, prev []Model) {
	if prev == nil {
		delete(s.data.Models, name)
		return
	}
	s.data.Models[name] = prev
}

// RegisterModel appends a new version of the named model. The new version
// is max existing + 1; registering active deactivates prior versions.
func (s *Store) RegisterModel(name, path string, active bool, description string, ctx PackageContext) (uint, error) {
	if name == "" || path == "" {
		return 0, ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.data.Models[name]
	var next uint = 1
	for _, m := range prev {
		if m.Version >= next {
			next = m.Version + 1
		}
	}

	versions := make([]Model, len(prev), len(prev)+1)
	copy(versions, prev)
	if active {
		for i := range versions {
			versions[i].Active = false
		}
	}

	versions = append(versions, Model{
		Name:         name,
		Version:      next,
		Path:         path,
		Active:       active,
		Description:  description,
		Context:      ctx,
		RegisteredAt: time.Now().UTC(),
	})
	s.data.Models[name] = versions

	if err := s.commit(func() { s.restoreModels(name, prev) }); err != nil {
		return 0, err
	}
	return next, nil
}

func (s *Store) UpdateModelDescription(name string, version uint, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.data.Models[name]
	for i := range prev {
		if prev[i].Version == version {
			versions := make([]Model, len(prev))
			copy(versions, prev)
			versions[i].Description = description
			s.data.Models[name] = versions
			return s.commit(func() { s.restoreModels(name, prev) })
		}
	}
	return ErrNoEntry
}

func (s *Store) ActivateModel(name string, version uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.data.Models[name]
	found := false
	for _, m := range prev {
		if m.Version == version {
			found = true
			break
		}
	}
	if !found {
		return ErrNoEntry
	}

	versions := make([]Model, len(prev))
	copy(versions, prev)
	for i := range versions {
		versions[i].Active = versions[i].Version == version
	}
	s.data.Models[name] = versions
	return s.commit(func() { s.restoreModels(name, prev) })
}

func (s *Store) GetModel(name string, version uint) (Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.data.Models[name] {
		if m.Version == version {
			return m, nil
		}
	}
	return Model{}, ErrNoEntry
}

func (s *Store) GetActivatedModel(name string) (Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.data.Models[name] {
		if m.Active {
			return m, nil
		}
	}
	return Model{}, ErrNoEntry
}

func (s *Store) GetAllModels(name string) ([]Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.data.Models[name]
	if len(versions) == 0 {
		return nil, ErrNoEntry
	}
	out := make([]Model, len(versions))
	copy(out, versions)
	return out, nil
}

func (s *Store) DeleteModel(name string, version uint, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	versions := s.data.Models[name]
	if len(versions) == 0 {
		return ErrNoEntry
	}

	if version == 0 {
		if !force {
			for _, m := range versions {
				if m.Active {
					return ErrActive
				}
			}
		}
		delete(s.data.Models, name)
		return s.commit(func() { s.data.Models[name] = versions })
	}

	for i, m := range versions {
		if m.Version != version {
			continue
		}
		if m.Active && !force {
			return ErrActive
		}
		remaining := append(versions[:i:i], versions[i+1:]...)
		if len(remaining) == 0 {
			delete(s.data.Models, name)
		} else {
			s.data.Models[name] = remaining
		}
		return s.commit(func() { s.data.Models[name] = versions })
	}
	return ErrNoEntry
}

// SetPipelineDescription upserts the named pipeline description.
func (s *Store) SetPipelineDescription(name, description string) error {
	if name == "" || description == "" {
		return ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.data.Pipelines[name]
	s.data.Pipelines[name] = Pipeline{
		Name:        name,
		Description: description,
		UpdatedAt:   time.Now().UTC(),
	}
	return s.commit(func() {
		if had {
			s.data.Pipelines[name] = prev
		} else {
			delete(s.data.Pipelines, name)
		}
	})
}

func (s *Store) GetPipeline(name string) (Pipeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.data.Pipelines[name]
	if !ok {
		return Pipeline{}, ErrNoEntry
	}
	return p, nil
}

func (s *Store) DeletePipeline(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.data.Pipelines[name]
	if !ok {
		return ErrNoEntry
	}
	delete(s.data.Pipelines, name)
	return s.commit(func() { s.data.Pipelines[name] = prev })
}

// AddResource appends one path under the named resource. The description
// and package context are last-write-wins.
func (s *Store) AddResource(name, path, description string, ctx PackageContext) error {
	if name == "" || path == "" {
		return ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.data.Resources[name]
	r := prev
	r.Name = name
	r.Paths = append(prev.Paths[:len(prev.Paths):len(prev.Paths)], path)
	r.Description = description
	r.Context = ctx
	r.UpdatedAt = time.Now().UTC()
	s.data.Resources[name] = r
	return s.commit(func() {
		if had {
			s.data.Resources[name] = prev
		} else {
			delete(s.data.Resources, name)
		}
	})
}

func (s *Store) GetResource(name string) (Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.data.Resources[name]
	if !ok {
		return Resource{}, ErrNoEntry
	}
	return r, nil
}

func (s *Store) DeleteResource(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.data.Resources[name]
	if !ok {
		return ErrNoEntry
	}
	delete(s.data.Resources, name)
	return s.commit(func() { s.data.Resources[name] = prev })
}

// Close flushes nothing; every mutation already persisted. Present so the
// Store satisfies Registry alongside the remote Client.
func (s *Store) Close() error {
	return nil
}
