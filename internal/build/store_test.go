package build

import (
	"context"
	"errors"
	"testing"

	"github.com/containerd/errdefs"
)

func TestStoreGetDefaultsTag(t *testing.T) {
	store := NewStore()
	b := newTestBuilder(store)

	if _, err := b.Build(context.Background(), "web", "FROM alpine"); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	img, err := store.Get("web")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if img.Tag != "latest" {
		t.Fatalf("Tag = %q, want latest", img.Tag)
	}
}

func TestStoreGetNotFound(t *testing.T) {
	store := NewStore()

	_, err := store.Get("ghost")
	if !errors.Is(err, ErrImageNotFound) {
		t.Fatalf("Get() error = %v, want ErrImageNotFound", err)
	}
	if !errdefs.IsNotFound(err) {
		t.Fatalf("Get() error = %v, want errdefs not-found classification", err)
	}
}

func TestStoreListOrdered(t *testing.T) {
	store := NewStore()
	b := newTestBuilder(store)

	for _, ref := range []string{"zeta", "alpha", "mid"} {
		if _, err := b.Build(context.Background(), ref, "FROM alpine"); err != nil {
			t.Fatalf("Build(%s) error = %v", ref, err)
		}
	}

	images := store.List()
	if len(images) != 3 {
		t.Fatalf("len = %d, want 3", len(images))
	}
	for i := 1; i < len(images); i++ {
		if images[i-1].Ref() >= images[i].Ref() {
			t.Fatalf("list not ordered: %s before %s", images[i-1].Ref(), images[i].Ref())
		}
	}
}

func TestStoreRemove(t *testing.T) {
	store := NewStore()
	b := newTestBuilder(store)

	if _, err := b.Build(context.Background(), "web", "FROM alpine"); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if err := store.Remove("web"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := store.Remove("web"); !errors.Is(err, ErrImageNotFound) {
		t.Fatalf("second Remove() error = %v, want ErrImageNotFound", err)
	}
}
