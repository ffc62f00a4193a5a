package build

import (
	"fmt"
	"sort"
	"sync"

	"github.com/containerd/errdefs"
)

// Holds published images keyed by name:tag.
//
// Images are immutable after publication, so readers never need a copy;
// the store only guards the map itself.
type Store struct {
	mu     sync.RWMutex
	images map[string]*Image
}

// Creates an empty image store.
func NewStore() *Store {
	return &Store{images: make(map[string]*Image)}
}

// Publishes an image, replacing any prior image at the same name:tag.
func (s *Store) Put(img *Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images[img.Ref()] = img
}

// Looks up an image by reference. The tag defaults to "latest".
func (s *Store) Get(ref string) (*Image, error) {
	name, tag, err := normalizeRef(ref)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	img, ok := s.images[name+":"+tag]
	if !ok {
		return nil, fmt.Errorf("%w: %s:%s: %w", ErrImageNotFound, name, tag, errdefs.ErrNotFound)
	}
	return img, nil
}

// Returns all images ordered by reference.
func (s *Store) List() []*Image {
	s.mu.RLock()
	defer s.mu.RUnlock()

	images := make([]*Image, 0, len(s.images))
	for _, img := range s.images {
		images = append(images, img)
	}
	sort.Slice(images, func(i, j int) bool { return images[i].Ref() < images[j].Ref() })
	return images
}

// Deletes an image by reference.
func (s *Store) Remove(ref string) error {
	name, tag, err := normalizeRef(ref)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := name + ":" + tag
	if _, ok := s.images[key]; !ok {
		return fmt.Errorf("%w: %s: %w", ErrImageNotFound, key, errdefs.ErrNotFound)
	}
	delete(s.images, key)
	return nil
}

// Number of published images.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.images)
}
