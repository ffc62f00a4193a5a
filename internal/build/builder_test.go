package build

import (
	"context"
	"errors"
	"testing"
	"time"
)

// Clock pinned to a fixed instant, for deterministic image IDs.
type fixedClock struct {
	at time.Time
}

func (c fixedClock) Now() time.Time { return c.at }

// Sizer returning a constant size for every layer.
type fixedSizer struct {
	size int64
}

func (s fixedSizer) LayerSize(LayerKind, string) int64 { return s.size }

func newTestBuilder(store *Store) *Builder {
	b := NewBuilder(store)
	b.sizer = fixedSizer{size: 1024}
	return b
}

func TestBuildLayerSequence(t *testing.T) {
	store := NewStore()
	b := newTestBuilder(store)

	img, err := b.Build(context.Background(), "web", "FROM alpine\nRUN apk add curl\nEXPOSE 8080")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if len(img.Layers) != 3 {
		t.Fatalf("len(Layers) = %d, want 3", len(img.Layers))
	}
	wantKinds := []LayerKind{LayerBase, LayerRun, LayerExpose}
	for i, layer := range img.Layers {
		if layer.Kind != wantKinds[i] {
			t.Fatalf("Layers[%d].Kind = %s, want %s", i, layer.Kind, wantKinds[i])
		}
	}

	if img.Name != "web" || img.Tag != "latest" {
		t.Fatalf("ref = %s:%s, want web:latest", img.Name, img.Tag)
	}
	if img.Size != 3*1024 {
		t.Fatalf("Size = %d, want %d", img.Size, 3*1024)
	}
	if img.Layers[0].Base != "alpine" {
		t.Fatalf("base = %q, want alpine", img.Layers[0].Base)
	}
	if img.Layers[2].Ports[0] != 8080 {
		t.Fatalf("ports = %v, want [8080]", img.Layers[2].Ports)
	}

	if _, err := store.Get("web:latest"); err != nil {
		t.Fatalf("built image not published: %v", err)
	}
}

func TestBuildUnknownVerbRecorded(t *testing.T) {
	b := newTestBuilder(NewStore())

	img, err := b.Build(context.Background(), "web", "FROM alpine\nMAINTAINER nobody")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if img.Layers[1].Kind != LayerUnknown {
		t.Fatalf("Kind = %s, want unknown", img.Layers[1].Kind)
	}
	if img.Layers[1].Instruction != "MAINTAINER nobody" {
		t.Fatalf("Instruction = %q", img.Layers[1].Instruction)
	}
}

func TestBuildFailureDiscardsLayers(t *testing.T) {
	store := NewStore()
	b := newTestBuilder(store)

	_, err := b.Build(context.Background(), "web", "FROM alpine\nEXPOSE not-a-port")
	if !errors.Is(err, ErrBuild) {
		t.Fatalf("Build() error = %v, want ErrBuild", err)
	}

	// Nothing is ever partially published.
	if store.Len() != 0 {
		t.Fatalf("store has %d images after failed build, want 0", store.Len())
	}
}

func TestBuildEmptySource(t *testing.T) {
	b := newTestBuilder(NewStore())

	_, err := b.Build(context.Background(), "web", "# nothing here\n")
	if !errors.Is(err, ErrBuild) {
		t.Fatalf("Build() error = %v, want ErrBuild", err)
	}
}

func TestBuildIDDeterminism(t *testing.T) {
	src := "FROM alpine\nRUN apk add curl"

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := newTestBuilder(NewStore())
	first.clock = fixedClock{at: at}
	second := newTestBuilder(NewStore())
	second.clock = fixedClock{at: at}

	a, err := first.Build(context.Background(), "web", src)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	bb, err := second.Build(context.Background(), "web", src)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if a.ID != bb.ID {
		t.Fatalf("replay at fixed timestamp produced different IDs: %s vs %s", a.ID, bb.ID)
	}

	// Same content at a later timestamp must get a new identity.
	later := newTestBuilder(NewStore())
	later.clock = fixedClock{at: at.Add(time.Second)}
	c, err := later.Build(context.Background(), "web", src)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if c.ID == a.ID {
		t.Fatal("builds at different timestamps share an ID")
	}
}

func TestBuildOverwritesPriorImage(t *testing.T) {
	store := NewStore()
	b := newTestBuilder(store)

	if _, err := b.Build(context.Background(), "web", "FROM alpine"); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	img, err := b.Build(context.Background(), "web", "FROM alpine\nRUN apk add curl")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	got, err := store.Get("web")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID != img.ID {
		t.Fatal("store still holds the prior image")
	}
	if store.Len() != 1 {
		t.Fatalf("store has %d images, want 1", store.Len())
	}
}

func TestBuildEnvLayer(t *testing.T) {
	b := newTestBuilder(NewStore())

	img, err := b.Build(context.Background(), "web", "FROM alpine\nENV PORT=8080")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if img.Layers[1].Env["PORT"] != "8080" {
		t.Fatalf("Env = %v, want PORT=8080", img.Layers[1].Env)
	}
}

func TestPullDegenerateBuild(t *testing.T) {
	store := NewStore()
	b := newTestBuilder(store)

	img, err := b.Pull(context.Background(), "alpine:3.20")
	if err != nil {
		t.Fatalf("Pull() error = %v", err)
	}

	if len(img.Layers) != 1 {
		t.Fatalf("len(Layers) = %d, want 1", len(img.Layers))
	}
	if img.Layers[0].Kind != LayerBase {
		t.Fatalf("Kind = %s, want base", img.Layers[0].Kind)
	}
	if img.Tag != "3.20" {
		t.Fatalf("Tag = %q, want 3.20", img.Tag)
	}

	// Pulled images list and inspect like built ones.
	if _, err := store.Get("alpine:3.20"); err != nil {
		t.Fatalf("pulled image not published: %v", err)
	}
}

func TestPullHonorsContext(t *testing.T) {
	b := newTestBuilder(NewStore())
	b.pullDelay = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Pull(ctx, "alpine")
	if !errors.Is(err, ErrPull) {
		t.Fatalf("Pull() error = %v, want ErrPull", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Pull() error = %v, want wrapped context.Canceled", err)
	}
}

func TestBuildInvalidReference(t *testing.T) {
	b := newTestBuilder(NewStore())

	_, err := b.Build(context.Background(), "UPPER CASE", "FROM alpine")
	if !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("Build() error = %v, want ErrInvalidReference", err)
	}
}
