// Package build turns ordered build instructions into layered,
// content-addressed images.
//
// A build file is a list of Dockerfile-style instructions. The
// [Builder] parses it into an ordered instruction sequence, processes
// the instructions strictly in source order, and produces exactly one
// [Layer] per instruction. Unrecognized verbs are recorded as layers of
// unknown kind rather than rejected, so newer build files keep working
// against older engines.
//
// A successful build publishes an [Image] to the [Store], keyed by
// name:tag. The image ID is a digest over the name, the ordered layer
// manifest, and the build timestamp, so two builds of identical content
// at different times get distinct IDs. A failed build publishes
// nothing; partial layers are discarded.
//
// Pulling is a degenerate one-layer build representing a fetched base
// image. It populates the same image and layer shapes, so listing and
// inspection never special-case provenance.
//
// Example usage:
//
//	store := build.NewStore()
//	builder := build.NewBuilder(store)
//
//	img, err := builder.Build(ctx, "web:v1", src)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(img.ID, len(img.Layers))
package build
