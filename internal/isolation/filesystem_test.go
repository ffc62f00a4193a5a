package isolation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSetupFilesystem(t *testing.T) {
	root := t.TempDir()
	p := New(root)

	result, err := p.SetupFilesystem(context.Background(), "c1", "/images/alpine.tar")
	if err != nil {
		t.Fatalf("SetupFilesystem() error = %v", err)
	}

	if result.Root != filepath.Join(root, "c1", "rootfs") {
		t.Fatalf("Root = %q", result.Root)
	}

	for _, dir := range standardDirs {
		info, err := os.Stat(filepath.Join(result.Root, dir))
		if err != nil {
			t.Fatalf("missing %s: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("%s is not a directory", dir)
		}
	}
	if len(result.Dirs) != len(standardDirs) {
		t.Fatalf("len(Dirs) = %d, want %d", len(result.Dirs), len(standardDirs))
	}

	marker, err := os.ReadFile(filepath.Join(root, "c1", imageMarker))
	if err != nil {
		t.Fatalf("reading image marker: %v", err)
	}
	if string(marker) != "/images/alpine.tar\n" {
		t.Fatalf("marker = %q", marker)
	}
}

func TestSetupFilesystemInvalidImagePath(t *testing.T) {
	p := New(t.TempDir())

	_, err := p.SetupFilesystem(context.Background(), "c1", "")
	if !errors.Is(err, ErrFilesystemSetup) {
		t.Fatalf("SetupFilesystem() error = %v, want ErrFilesystemSetup", err)
	}
}

func TestTeardownFilesystem(t *testing.T) {
	root := t.TempDir()
	p := New(root)

	if _, err := p.SetupFilesystem(context.Background(), "c1", "/images/alpine.tar"); err != nil {
		t.Fatalf("SetupFilesystem() error = %v", err)
	}

	if err := p.TeardownFilesystem("c1"); err != nil {
		t.Fatalf("TeardownFilesystem() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(root, "c1")); !os.IsNotExist(err) {
		t.Fatalf("container dir still present: %v", err)
	}
}
