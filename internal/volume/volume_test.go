package volume

import (
	"errors"
	"strings"
	"testing"
)

func TestCreate(t *testing.T) {
	s := NewStore("/data")

	v, err := s.Create("pgdata", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if v.Driver != DefaultDriver {
		t.Fatalf("Driver = %q, want %q", v.Driver, DefaultDriver)
	}
	if !strings.HasSuffix(v.Mountpoint, "volumes/pgdata") {
		t.Fatalf("Mountpoint = %q", v.Mountpoint)
	}

	if _, err := s.Create("pgdata", ""); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate Create() error = %v, want ErrDuplicate", err)
	}
}

func TestAttachRemove(t *testing.T) {
	s := NewStore("/data")

	if _, err := s.Create("pgdata", ""); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := s.Attach("pgdata", "c1"); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	if err := s.Attach("ghost", "c1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Attach() to missing volume error = %v, want ErrNotFound", err)
	}

	if err := s.Remove("pgdata"); !errors.Is(err, ErrInUse) {
		t.Fatalf("Remove() while attached error = %v, want ErrInUse", err)
	}

	s.Detach("c1")
	if err := s.Remove("pgdata"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := s.Remove("pgdata"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Remove() error = %v, want ErrNotFound", err)
	}
}

func TestListOrdered(t *testing.T) {
	s := NewStore("/data")
	for _, name := range []string{"zeta", "alpha"} {
		if _, err := s.Create(name, ""); err != nil {
			t.Fatalf("Create(%s) error = %v", name, err)
		}
	}

	volumes := s.List()
	if len(volumes) != 2 || volumes[0].Name != "alpha" {
		t.Fatalf("List() not ordered by name")
	}
}
