package runtime

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/kilnhq/kilnd/internal/build"
)

// Lifecycle state of a container.
type Status string

const (
	StatusCreated Status = "created"
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
	StatusFailed  Status = "failed"
)

// One line of container output.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Stream  string    `json:"stream"` // stdout, stderr, or engine.
	Message string    `json:"message"`
}

// The mutable container record.
//
// Owned exclusively by its handle; only the runtime mutates it, always
// under a borrow. Everything handed outside the runtime is a [Summary].
type Container struct {
	ID            string
	Image         string // Image reference (name:tag).
	ImageID       digest.Digest
	Command       []string
	Status        Status
	CreatedAt     time.Time
	StartedAt     time.Time // Zero until the first successful start.
	FinishedAt    time.Time // Zero until stopped.
	PID           int       // Zero unless running.
	ExitCode      int
	FailureReason string // Why the last transition failed, if it did.
	Ports         []int
	Env           map[string]string
	Network       string
	Volumes       []string
	Logs          []LogEntry
}

// Appends a log entry to the record. Caller must hold the borrow.
func (c *Container) appendLog(stream, message string) {
	c.Logs = append(c.Logs, LogEntry{Time: time.Now(), Stream: stream, Message: message})
}

// A read-only snapshot of a container record.
type Summary struct {
	ID            string        `json:"id"`
	Image         string        `json:"image"`
	ImageID       digest.Digest `json:"imageId"`
	Command       []string      `json:"command"`
	Status        Status        `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
	StartedAt     time.Time     `json:"startedAt,omitzero"`
	FinishedAt    time.Time     `json:"finishedAt,omitzero"`
	PID           int           `json:"pid,omitempty"`
	ExitCode      int           `json:"exitCode"`
	FailureReason string        `json:"failureReason,omitempty"`
	Ports         []int         `json:"ports,omitempty"`
	Network       string        `json:"network,omitempty"`
	Volumes       []string      `json:"volumes,omitempty"`
}

// Copies the record into a detached snapshot. Caller must hold the
// borrow; the snapshot shares no mutable state with the record.
func (c *Container) snapshot() Summary {
	return Summary{
		ID:            c.ID,
		Image:         c.Image,
		ImageID:       c.ImageID,
		Command:       append([]string(nil), c.Command...),
		Status:        c.Status,
		CreatedAt:     c.CreatedAt,
		StartedAt:     c.StartedAt,
		FinishedAt:    c.FinishedAt,
		PID:           c.PID,
		ExitCode:      c.ExitCode,
		FailureReason: c.FailureReason,
		Ports:         append([]int(nil), c.Ports...),
		Network:       c.Network,
		Volumes:       append([]string(nil), c.Volumes...),
	}
}

// Allocates a container ID: 256 bits from the system entropy source,
// hex-encoded. Collisions are treated as negligible.
func newContainerID() string {
	var buf [32]byte
	rand.Read(buf[:])
	return hex.EncodeToString(buf[:])
}

// Derives the container's environment from the image's env layers.
func envFromImage(img *build.Image) map[string]string {
	env := make(map[string]string)
	for _, layer := range img.Layers {
		for k, v := range layer.Env {
			env[k] = v
		}
	}
	return env
}

// Collects the ports exposed by the image's expose layers.
func portsFromImage(img *build.Image) []int {
	var ports []int
	for _, layer := range img.Layers {
		ports = append(ports, layer.Ports...)
	}
	return ports
}

// Returns the image's effective entrypoint: the last entrypoint layer
// wins, matching build instruction semantics.
func entrypointFromImage(img *build.Image) []string {
	var entrypoint []string
	for _, layer := range img.Layers {
		if len(layer.Entrypoint) > 0 {
			entrypoint = layer.Entrypoint
		}
	}
	return entrypoint
}
