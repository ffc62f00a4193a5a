// Package network manages the engine's named container networks.
//
// Networks are simple named resources: a driver, a subnet, and the set
// of attached containers. Names are unique within the engine; the
// subnet is allocated from a private range when the caller does not
// supply one.
package network

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/containerd/errdefs"
	"github.com/oklog/ulid/v2"
)

// Driver used when the caller does not name one.
const DefaultDriver = "bridge"

var (
	ErrNotFound  = errors.New("network not found")
	ErrDuplicate = errors.New("network already exists")
)

// A named container network.
type Network struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Driver    string    `json:"driver"`
	Subnet    string    `json:"subnet"`
	CreatedAt time.Time `json:"createdAt"`

	containers map[string]struct{}
}

// IDs of the containers attached to the network, ordered.
func (n *Network) Containers() []string {
	ids := make([]string, 0, len(n.containers))
	for id := range n.containers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Holds networks keyed by name.
type Store struct {
	mu       sync.Mutex
	networks map[string]*Network
	nextNet  int // Counter feeding subnet allocation.
}

// Creates an empty network store.
func NewStore() *Store {
	return &Store{networks: make(map[string]*Network)}
}

// Creates a named network.
//
// Empty driver and subnet fall back to the bridge driver and the next
// free private /16. Fails with [ErrDuplicate] when the name is taken.
func (s *Store) Create(name, driver, subnet string) (*Network, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.networks[name]; ok {
		return nil, fmt.Errorf("%w: %q: %w", ErrDuplicate, name, errdefs.ErrAlreadyExists)
	}

	if driver == "" {
		driver = DefaultDriver
	}
	if subnet == "" {
		s.nextNet++
		subnet = fmt.Sprintf("172.%d.0.0/16", 17+s.nextNet)
	}

	n := &Network{
		ID:         ulid.Make().String(),
		Name:       name,
		Driver:     driver,
		Subnet:     subnet,
		CreatedAt:  time.Now(),
		containers: make(map[string]struct{}),
	}
	s.networks[name] = n

	slog.Debug("network created", "name", name, "driver", driver, "subnet", subnet)
	return n, nil
}

// Looks up a network by name.
func (s *Store) Get(name string) (*Network, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(name)
}

func (s *Store) get(name string) (*Network, error) {
	n, ok := s.networks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q: %w", ErrNotFound, name, errdefs.ErrNotFound)
	}
	return n, nil
}

// Returns all networks ordered by name.
func (s *Store) List() []*Network {
	s.mu.Lock()
	defer s.mu.Unlock()

	networks := make([]*Network, 0, len(s.networks))
	for _, n := range s.networks {
		networks = append(networks, n)
	}
	sort.Slice(networks, func(i, j int) bool { return networks[i].Name < networks[j].Name })
	return networks
}

// Attaches a container to a named network.
func (s *Store) Connect(name, containerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.get(name)
	if err != nil {
		return err
	}

	n.containers[containerID] = struct{}{}
	slog.Debug("container connected", "network", name, "container", containerID)
	return nil
}

// Detaches a container from every network it is attached to.
func (s *Store) Disconnect(containerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.networks {
		delete(n.containers, containerID)
	}
}
