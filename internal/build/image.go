package build

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/distribution/reference"
	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// A layered, content-addressed image.
//
// Images are immutable after creation. The ID is derived from the name,
// the ordered layer manifest, and the build timestamp, mirroring an
// append-only build history rather than pure content addressing.
type Image struct {
	ID        digest.Digest    `json:"id"`
	Name      string           `json:"name"`
	Tag       string           `json:"tag"`
	Layers    []Layer          `json:"layers"`
	CreatedAt time.Time        `json:"createdAt"`
	Platform  ocispec.Platform `json:"platform"`
	Size      int64            `json:"size"` // Sum of layer sizes in bytes.
}

// The store key and display reference for the image.
func (i *Image) Ref() string {
	return i.Name + ":" + i.Tag
}

// Normalizes an image reference into a familiar name and a tag.
//
// The tag defaults to "latest" when the reference carries none. Fails
// with [ErrInvalidReference] when the reference does not parse.
func normalizeRef(ref string) (name, tag string, err error) {
	named, err := reference.ParseNormalizedNamed(ref)
	if err != nil {
		return "", "", fmt.Errorf("%w: %q: %w", ErrInvalidReference, ref, err)
	}

	named = reference.TagNameOnly(named)

	tag = "latest"
	if tagged, ok := named.(reference.Tagged); ok {
		tag = tagged.Tag()
	}

	return reference.FamiliarName(named), tag, nil
}

// Derives the image ID from its defining content.
//
// The digest covers the name, the ordered layer manifest, and the build
// timestamp. Two builds of identical instructions at different times
// therefore get distinct IDs, while a replay at a fixed timestamp is
// fully deterministic.
func imageID(name string, layers []Layer, createdAt time.Time) digest.Digest {
	var manifest strings.Builder

	manifest.WriteString(name)
	manifest.WriteByte('\n')
	for _, layer := range layers {
		manifest.WriteString(string(layer.Kind))
		manifest.WriteByte('|')
		manifest.WriteString(layer.Instruction)
		manifest.WriteByte('|')
		manifest.WriteString(strconv.FormatInt(layer.Size, 10))
		manifest.WriteByte('\n')
	}
	manifest.WriteString(strconv.FormatInt(createdAt.UnixNano(), 10))

	return digest.FromString(manifest.String())
}
