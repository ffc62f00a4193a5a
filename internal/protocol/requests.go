package protocol

import (
	"github.com/kilnhq/kilnd/internal/isolation"
	"github.com/kilnhq/kilnd/internal/runtime"
)

// Payload for build_image. Either File (a build file on disk) or
// Source (inline build instructions) must be set; File wins.
type BuildImageRequest struct {
	Ref    string `json:"ref"`
	File   string `json:"file,omitempty"`
	Source string `json:"source,omitempty"`
}

// Payload for pull_image.
type PullImageRequest struct {
	Ref string `json:"ref"`
}

// Payload for remove_image and inspect_image.
type ImageRequest struct {
	Ref string `json:"ref"`
}

// Payload for create_namespace.
type CreateNamespaceRequest struct {
	Type string `json:"type"` // Namespace kind: pid, network, mount, ...
	Name string `json:"name"`
}

// Payload for create_cgroup.
type CreateCgroupRequest struct {
	Name   string           `json:"name"`
	Limits isolation.Limits `json:"limits,omitzero"`
}

// Payload for isolate_container.
type IsolateContainerRequest struct {
	ContainerID string           `json:"containerId"`
	Limits      isolation.Limits `json:"limits,omitzero"`
}

// Payload for setup_filesystem.
type SetupFilesystemRequest struct {
	ContainerID string `json:"containerId"`
	ImagePath   string `json:"imagePath"`
}

// Payload for run_container.
type RunContainerRequest struct {
	Image   string          `json:"image"`
	Options runtime.Options `json:"options,omitzero"`
}

// Payload for start_container, stop_container, and logs_container.
type ContainerRequest struct {
	ID string `json:"id"`
}

// Payload for exec_container.
type ExecContainerRequest struct {
	ID      string   `json:"id"`
	Command []string `json:"command"`
}

// Payload for list_containers.
type ListContainersRequest struct {
	All bool `json:"all,omitempty"` // Include stopped, failed, and created containers.
}

// Payload for create_network.
type CreateNetworkRequest struct {
	Name   string `json:"name"`
	Driver string `json:"driver,omitempty"`
	Subnet string `json:"subnet,omitempty"`
}

// Payload for connect_container.
type ConnectContainerRequest struct {
	Network     string `json:"network"`
	ContainerID string `json:"containerId"`
}

// Payload for create_volume.
type CreateVolumeRequest struct {
	Name   string `json:"name"`
	Driver string `json:"driver,omitempty"`
}

// Payload for remove_volume.
type VolumeRequest struct {
	Name string `json:"name"`
}

// Daemon-level operations handled by the server itself rather than an
// engine subsystem.
const (
	OpStatus   = "status"
	OpShutdown = "shutdown"
)

// Per-subsystem counters reported in a status result.
type SubsystemStats struct {
	Operations  int64  `json:"operations"`
	TotalTime   string `json:"totalTime"`
	AverageTime string `json:"averageTime"`
}

// Result of a status operation.
type StatusResult struct {
	Running    bool                      `json:"running"`
	Version    string                    `json:"version"`
	Pid        int                       `json:"pid"`
	Uptime     string                    `json:"uptime"`
	Subsystems map[string]SubsystemStats `json:"subsystems,omitempty"`
}
