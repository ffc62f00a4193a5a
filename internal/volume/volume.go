// Package volume manages the engine's named storage volumes.
//
// Volumes are simple named resources: a driver, a mountpoint, and the
// set of containers using them. Names are unique within the engine.
package volume

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/containerd/errdefs"
	"github.com/oklog/ulid/v2"
)

// Driver used when the caller does not name one.
const DefaultDriver = "local"

var (
	ErrNotFound  = errors.New("volume not found")
	ErrDuplicate = errors.New("volume already exists")
	ErrInUse     = errors.New("volume in use")
)

// A named storage volume.
type Volume struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Driver     string    `json:"driver"`
	Mountpoint string    `json:"mountpoint"`
	CreatedAt  time.Time `json:"createdAt"`

	containers map[string]struct{}
}

// IDs of the containers using the volume, ordered.
func (v *Volume) Containers() []string {
	ids := make([]string, 0, len(v.containers))
	for id := range v.containers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Holds volumes keyed by name.
type Store struct {
	root    string // Base directory for volume mountpoints.
	mu      sync.Mutex
	volumes map[string]*Volume
}

// Creates an empty volume store with mountpoints under root.
func NewStore(root string) *Store {
	return &Store{root: root, volumes: make(map[string]*Volume)}
}

// Creates a named volume.
//
// An empty driver falls back to the local driver; the mountpoint is
// allocated under the store root. Fails with [ErrDuplicate] when the
// name is taken.
func (s *Store) Create(name, driver string) (*Volume, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.volumes[name]; ok {
		return nil, fmt.Errorf("%w: %q: %w", ErrDuplicate, name, errdefs.ErrAlreadyExists)
	}

	if driver == "" {
		driver = DefaultDriver
	}

	v := &Volume{
		ID:         ulid.Make().String(),
		Name:       name,
		Driver:     driver,
		Mountpoint: filepath.Join(s.root, "volumes", name),
		CreatedAt:  time.Now(),
		containers: make(map[string]struct{}),
	}
	s.volumes[name] = v

	slog.Debug("volume created", "name", name, "driver", driver)
	return v, nil
}

// Looks up a volume by name.
func (s *Store) Get(name string) (*Volume, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(name)
}

func (s *Store) get(name string) (*Volume, error) {
	v, ok := s.volumes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q: %w", ErrNotFound, name, errdefs.ErrNotFound)
	}
	return v, nil
}

// Returns all volumes ordered by name.
func (s *Store) List() []*Volume {
	s.mu.Lock()
	defer s.mu.Unlock()

	volumes := make([]*Volume, 0, len(s.volumes))
	for _, v := range s.volumes {
		volumes = append(volumes, v)
	}
	sort.Slice(volumes, func(i, j int) bool { return volumes[i].Name < volumes[j].Name })
	return volumes
}

// Records a container as a user of a named volume.
func (s *Store) Attach(name, containerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.get(name)
	if err != nil {
		return err
	}

	v.containers[containerID] = struct{}{}
	slog.Debug("volume attached", "volume", name, "container", containerID)
	return nil
}

// Removes a container from every volume it uses.
func (s *Store) Detach(containerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range s.volumes {
		delete(v.containers, containerID)
	}
}

// Deletes a volume by name.
//
// Fails with [ErrInUse] while any container is attached.
func (s *Store) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.get(name)
	if err != nil {
		return err
	}
	if len(v.containers) > 0 {
		return fmt.Errorf("%w: %q used by %d container(s): %w", ErrInUse, name, len(v.containers), errdefs.ErrConflict)
	}

	delete(s.volumes, name)
	return nil
}
