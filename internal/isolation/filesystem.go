package isolation

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kilnhq/kilnd/internal/paths"
)

// Standard top-level directories pre-created in every container root.
var standardDirs = []string{"bin", "etc", "home", "tmp", "var", "usr"}

// Name of the marker file recording which image is mounted at the root.
const imageMarker = ".image"

// A container root filesystem prepared for mounting.
type FilesystemResult struct {
	ContainerID string
	Root        string   // Path to the container's merged root directory.
	Dirs        []string // Top-level directories created under the root.
}

// Prepares a root filesystem for a container.
//
// Creates the container's root directory tree under the provisioner's
// base directory, records the merged image view mounted onto it, and
// pre-creates the standard top-level directories. Fails with
// [ErrFilesystemSetup] when imagePath is empty or the tree cannot be
// created.
func (p *Provisioner) SetupFilesystem(ctx context.Context, containerID, imagePath string) (*FilesystemResult, error) {
	if containerID == "" {
		return nil, fmt.Errorf("%w: empty container id", ErrFilesystemSetup)
	}
	if imagePath == "" {
		return nil, fmt.Errorf("%w: container %s: invalid image path", ErrFilesystemSetup, containerID)
	}

	root := filepath.Join(p.root, containerID, "rootfs")
	if err := os.MkdirAll(root, paths.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("%w: container %s: %w", ErrFilesystemSetup, containerID, err)
	}

	result := &FilesystemResult{ContainerID: containerID, Root: root}
	for _, dir := range standardDirs {
		if err := os.MkdirAll(filepath.Join(root, dir), paths.DefaultDirMode); err != nil {
			return nil, fmt.Errorf("%w: container %s: %w", ErrFilesystemSetup, containerID, err)
		}
		result.Dirs = append(result.Dirs, dir)
	}

	// Stands in for the overlay mount of the image's merged layer view.
	marker := filepath.Join(p.root, containerID, imageMarker)
	if err := os.WriteFile(marker, []byte(imagePath+"\n"), paths.DefaultFileMode); err != nil {
		return nil, fmt.Errorf("%w: container %s: %w", ErrFilesystemSetup, containerID, err)
	}

	slog.Debug("filesystem prepared", "id", containerID, "root", root, "image", imagePath)
	return result, nil
}

// Removes a container's root filesystem tree.
func (p *Provisioner) TeardownFilesystem(containerID string) error {
	if containerID == "" {
		return fmt.Errorf("%w: empty container id", ErrFilesystemSetup)
	}
	return os.RemoveAll(filepath.Join(p.root, containerID))
}
