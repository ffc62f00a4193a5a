package build

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	goruntime "runtime"
	"strconv"
	"strings"
	"time"

	units "github.com/docker/go-units"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Provides the build timestamp. Swapped for a fixed clock in tests to
// make image IDs deterministic.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Estimates the size of a layer.
//
// The engine has no real layer contents to measure, so sizes come from
// an estimator that callers can replace.
type Sizer interface {
	LayerSize(kind LayerKind, args string) int64
}

// Default estimator: rough per-kind magnitudes with jitter. Metadata
// layers take no space.
type estimatedSizer struct{}

func (estimatedSizer) LayerSize(kind LayerKind, args string) int64 {
	switch kind {
	case LayerBase:
		return 4*units.MiB + rand.Int64N(8*units.MiB)
	case LayerRun:
		return 256*units.KiB + rand.Int64N(4*units.MiB)
	case LayerCopy:
		return units.MiB + rand.Int64N(16*units.MiB)
	default:
		return 0
	}
}

// Builds and pulls images into a store.
type Builder struct {
	store     *Store
	clock     Clock
	sizer     Sizer
	pullDelay time.Duration // Simulated registry latency for pulls.
	platform  ocispec.Platform
}

// Creates a builder publishing to the given store.
func NewBuilder(store *Store) *Builder {
	return &Builder{
		store: store,
		clock: systemClock{},
		sizer: estimatedSizer{},
		platform: ocispec.Platform{
			Architecture: goruntime.GOARCH,
			OS:           "linux",
		},
	}
}

// Sets the simulated registry latency applied to pulls.
func (b *Builder) SetPullDelay(d time.Duration) {
	b.pullDelay = d
}

// Builds an image from build file source and publishes it under ref.
//
// Instructions are processed strictly sequentially, producing one layer
// each. If any instruction fails the whole build aborts with an error
// wrapping [ErrBuild] that names the failing instruction index, and no
// image is registered. On success the image overwrites any prior image
// at the same name:tag.
func (b *Builder) Build(ctx context.Context, ref, src string) (*Image, error) {
	name, tag, err := normalizeRef(ref)
	if err != nil {
		return nil, err
	}

	instructions := ParseInstructions(src)
	if len(instructions) == 0 {
		return nil, fmt.Errorf("%w: %s: no instructions", ErrBuild, ref)
	}

	slog.Info("building image", "ref", name+":"+tag, "instructions", len(instructions))

	layers := make([]Layer, 0, len(instructions))
	for i, in := range instructions {
		layer, err := b.processInstruction(in)
		if err != nil {
			return nil, fmt.Errorf("%w: instruction %d (%s): %w", ErrBuild, i, in.Verb, err)
		}
		layers = append(layers, layer)
	}

	img := b.publish(name, tag, layers)
	slog.Info("image built", "ref", img.Ref(), "id", img.ID, "layers", len(layers),
		"size", units.BytesSize(float64(img.Size)))
	return img, nil
}

// Builds an image from a build file on disk.
func (b *Builder) BuildFile(ctx context.Context, ref, path string) (*Image, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading build file: %w", ErrBuild, err)
	}
	return b.Build(ctx, ref, string(src))
}

// Fetches a base image and publishes it under ref.
//
// A pull is a degenerate one-layer build: the fetched image is recorded
// as a single base layer so downstream consumers see the same shape as
// a built image. Registry latency is simulated; the wait honors ctx.
func (b *Builder) Pull(ctx context.Context, ref string) (*Image, error) {
	name, tag, err := normalizeRef(ref)
	if err != nil {
		return nil, err
	}

	slog.Info("pulling image", "ref", name+":"+tag)

	if b.pullDelay > 0 {
		select {
		case <-time.After(b.pullDelay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", ErrPull, ref, ctx.Err())
		}
	}

	instruction := Instruction{Verb: "FROM", Args: name + ":" + tag}
	layer := Layer{
		Kind:        LayerBase,
		Instruction: instruction.String(),
		Size:        b.sizer.LayerSize(LayerBase, instruction.Args),
		Base:        name + ":" + tag,
	}

	img := b.publish(name, tag, []Layer{layer})
	slog.Info("image pulled", "ref", img.Ref(), "id", img.ID)
	return img, nil
}

// Computes the image identity, assembles the record, and publishes it
// to the store, replacing any prior image at the same name:tag.
func (b *Builder) publish(name, tag string, layers []Layer) *Image {
	createdAt := b.clock.Now()

	var total int64
	for _, layer := range layers {
		total += layer.Size
	}

	img := &Image{
		ID:        imageID(name, layers, createdAt),
		Name:      name,
		Tag:       tag,
		Layers:    layers,
		CreatedAt: createdAt,
		Platform:  b.platform,
		Size:      total,
	}
	b.store.Put(img)
	return img
}

// Produces the layer for a single instruction.
//
// Known verbs with malformed arguments fail, aborting the build.
// Unknown verbs always succeed with an unknown-kind layer.
func (b *Builder) processInstruction(in Instruction) (Layer, error) {
	kind := kindForVerb(in.Verb)

	layer := Layer{
		Kind:        kind,
		Instruction: in.String(),
		Size:        b.sizer.LayerSize(kind, in.Args),
	}

	switch kind {
	case LayerBase:
		if in.Args == "" {
			return Layer{}, fmt.Errorf("missing base image reference")
		}
		layer.Base = in.Args

	case LayerRun:
		if in.Args == "" {
			return Layer{}, fmt.Errorf("missing command")
		}
		layer.Command = in.Args

	case LayerCopy:
		src, dest, ok := strings.Cut(in.Args, " ")
		if !ok {
			return Layer{}, fmt.Errorf("want source and destination, got %q", in.Args)
		}
		layer.Source = src
		layer.Dest = strings.TrimSpace(dest)

	case LayerEnv:
		env, err := parseEnv(in.Args)
		if err != nil {
			return Layer{}, err
		}
		layer.Env = env

	case LayerExpose:
		ports, err := parsePorts(in.Args)
		if err != nil {
			return Layer{}, err
		}
		layer.Ports = ports

	case LayerEntrypoint:
		if in.Args == "" {
			return Layer{}, fmt.Errorf("missing entrypoint arguments")
		}
		layer.Entrypoint = strings.Fields(in.Args)
	}

	return layer, nil
}

// Parses ENV arguments in either "KEY=value" or "KEY value" form.
func parseEnv(args string) (map[string]string, error) {
	if key, value, ok := strings.Cut(args, "="); ok {
		return map[string]string{strings.TrimSpace(key): strings.TrimSpace(value)}, nil
	}
	if key, value, ok := strings.Cut(args, " "); ok {
		return map[string]string{key: strings.TrimSpace(value)}, nil
	}
	return nil, fmt.Errorf("want KEY=value, got %q", args)
}

// Parses EXPOSE arguments as a list of port numbers.
func parsePorts(args string) ([]int, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return nil, fmt.Errorf("missing port")
	}

	ports := make([]int, 0, len(fields))
	for _, field := range fields {
		// Accept the common "port/proto" form.
		numeric, _, _ := strings.Cut(field, "/")
		port, err := strconv.Atoi(numeric)
		if err != nil || port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid port %q", field)
		}
		ports = append(ports, port)
	}
	return ports, nil
}
