package testcase

import (
	"fmt"
	"sort"
	"sync"

	serviceErrs "github.com/backupqa/qa-agent/pkg/errors"
)

// Factory returns a fresh testcase for every run.
type Factory func() TestCase

// Info describes a registered testcase.
type Info struct {
	ID             string
	Name           string
	RequiredInputs []string
}

type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	infos     map[string]Info
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		infos:     make(map[string]Info),
	}
}

func (r *Registry) Register(f Factory) error {
	tc := f()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, found := r.factories[tc.ID()]; found {
		return fmt.Errorf("testcase %s already registered", tc.ID())
	}
	r.factories[tc.ID()] = f
	r.infos[tc.ID()] = Info{ID: tc.ID(), Name: tc.Name(), RequiredInputs: tc.RequiredInputs()}
	return nil
}

func (r *Registry) MustRegister(fs ...Factory) *Registry {
	for _, f := range fs {
		if err := r.Register(f); err != nil {
			panic(err)
		}
	}
	return r
}

func (r *Registry) New(id string) (TestCase, error) {
	r.mu.RLock()
	f, found := r.factories[id]
	r.mu.RUnlock()
	if !found {
		return nil, serviceErrs.NewTestcaseNotFoundError(id)
	}
	return f(), nil
}

func (r *Registry) Get(id string) (Info, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, found := r.infos[id]
	if !found {
		return Info{}, serviceErrs.NewTestcaseNotFoundError(id)
	}
	return info, nil
}

// List returns the registered testcases sorted by id.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.infos))
	for _, info := range r.infos {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}
