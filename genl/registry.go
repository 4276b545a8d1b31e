package genl

import (
	"fmt"
	"slices"
	"sync"
)

// Registry holds the registered families indexed by both id and name. A
// single lock guards every operation for its own duration only.
type Registry struct {
	mu sync.Mutex

	// released is signalled whenever a family's last handle goes away.
	released *sync.Cond

	byID   map[uint16]*Family
	byName map[string]*Family
}

func NewRegistry() *Registry {
	r := &Registry{
		byID:   map[uint16]*Family{},
		byName: map[string]*Family{},
	}
	r.released = sync.NewCond(&r.mu)

	return r
}

// Register adds f to the registry. Both the name and the id must be unique.
// When f.ID is IDGenerate the lowest free id is assigned and written back
// into f.
func (r *Registry) Register(f *Family) error {
	ops, err := f.validate()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if f.registered {
		return fmt.Errorf("%w: family %q is still registered", ErrAlreadyExists, f.Name)
	}

	if _, ok := r.byName[f.Name]; ok {
		return fmt.Errorf("%w: name %q is taken", ErrAlreadyExists, f.Name)
	}

	id := f.ID
	if id == IDGenerate {
		if id, err = r.freeID(); err != nil {
			return err
		}
	} else if other, ok := r.byID[id]; ok {
		return fmt.Errorf("%w: id %#x is taken by %q", ErrAlreadyExists, id, other.Name)
	}

	f.ID = id
	f.ops = ops
	f.registered = true

	r.byID[f.ID] = f
	r.byName[f.Name] = f

	logger.Info("registered family", "name", f.Name, "id", f.ID, "version", f.Version, "ops", len(ops))

	return nil
}

// freeID must be called with the lock held.
func (r *Registry) freeID() (uint16, error) {
	for id := MinDynamicID; id <= MaxID; id++ {
		if _, ok := r.byID[id]; !ok {
			return id, nil
		}
	}
	return 0, ErrNoFreeID
}

// Unregister removes the family registered with id. It blocks until every
// handle on the family has been released, so it must never be called from
// one of the family's own handlers.
func (r *Registry) Unregister(id uint16) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("%w: id %#x", ErrNotFound, id)
	}

	delete(r.byID, f.ID)
	delete(r.byName, f.Name)

	if f.refs > 0 {
		logger.Debug("waiting for in-flight handlers", "name", f.Name, "refs", f.refs)
	}
	for f.refs > 0 {
		r.released.Wait()
	}

	f.registered = false

	logger.Info("unregistered family", "name", f.Name, "id", f.ID)

	return nil
}

// Handle pins a family while it's being used. It must be released once
// the caller is done with the family.
type Handle struct {
	r    *Registry
	f    *Family
	once sync.Once
}

func (h *Handle) Family() *Family {
	return h.f
}

// Release drops the reference. Calling it more than once is harmless.
func (h *Handle) Release() {
	h.once.Do(func() {
		h.r.mu.Lock()
		defer h.r.mu.Unlock()

		h.f.refs--
		if h.f.refs == 0 {
			h.r.released.Broadcast()
		}
	})
}

// acquire must be called with the lock held.
func (r *Registry) acquire(f *Family) *Handle {
	f.refs++
	return &Handle{r: r, f: f}
}

func (r *Registry) FindByID(id uint16) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.byID[id]
	if !ok {
		return nil, false
	}

	return r.acquire(f), true
}

func (r *Registry) FindByName(name string) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.byName[name]
	if !ok {
		return nil, false
	}

	return r.acquire(f), true
}

// Families returns a snapshot of every registered family ordered by id.
func (r *Registry) Families() []FamilyInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := make([]FamilyInfo, 0, len(r.byID))
	for _, f := range r.byID {
		infos = append(infos, f.Info())
	}

	slices.SortFunc(infos, func(a, b FamilyInfo) int {
		return int(a.ID) - int(b.ID)
	})

	return infos
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.byID)
}
