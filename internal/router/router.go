package router

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	specs "github.com/opencontainers/runtime-spec/specs-go"

	"github.com/kilnhq/kilnd/internal/build"
	"github.com/kilnhq/kilnd/internal/isolation"
	"github.com/kilnhq/kilnd/internal/network"
	"github.com/kilnhq/kilnd/internal/protocol"
	"github.com/kilnhq/kilnd/internal/runtime"
	"github.com/kilnhq/kilnd/internal/volume"
)

// Result of one dispatched operation.
//
// Failures are part of the outcome, never thrown past the dispatch
// boundary: Err carries the engine error and Success is false, but the
// dispatch itself always returns normally.
type Outcome struct {
	Op        Op
	Subsystem Subsystem
	Success   bool
	Result    any
	Err       error
	Elapsed   time.Duration
}

// Wires the router to every engine subsystem.
type Config struct {
	Builder     *build.Builder
	Images      *build.Store
	Provisioner *isolation.Provisioner
	Runtime     *runtime.Runtime
	Networks    *network.Store
	Volumes     *volume.Store
}

// Dispatches operations to their owning subsystems.
type Router struct {
	builder     *build.Builder
	images      *build.Store
	provisioner *isolation.Provisioner
	runtime     *runtime.Runtime
	networks    *network.Store
	volumes     *volume.Store

	metrics   *metricsTable
	observers []Observer
}

// Creates a router over the given engine components.
func New(cfg Config) *Router {
	return &Router{
		builder:     cfg.Builder,
		images:      cfg.Images,
		provisioner: cfg.Provisioner,
		runtime:     cfg.Runtime,
		networks:    cfg.Networks,
		volumes:     cfg.Volumes,
		metrics:     newMetricsTable(),
	}
}

// Registers an observer for dispatch outcomes.
func (r *Router) Observe(o Observer) {
	r.observers = append(r.observers, o)
}

// Returns a copy of the per-subsystem counters.
func (r *Router) Metrics() map[Subsystem]Metrics {
	return r.metrics.snapshot()
}

// Routes an operation to its subsystem and returns the outcome.
//
// Engine failures come back inside the outcome. Unknown operations fail
// with [ErrNoRoute] and are not counted against any subsystem, since no
// subsystem owned them; observers still see the outcome.
func (r *Router) Dispatch(ctx context.Context, op Op, payload json.RawMessage) Outcome {
	started := time.Now()
	subsystem := subsystemFor(op)

	result, err := r.route(ctx, op, payload)

	outcome := Outcome{
		Op:        op,
		Subsystem: subsystem,
		Success:   err == nil,
		Result:    result,
		Err:       err,
		Elapsed:   time.Since(started),
	}

	if subsystem != "" {
		r.metrics.record(subsystem, outcome.Elapsed)
	}
	for _, o := range r.observers {
		o.OperationComplete(outcome)
	}

	return outcome
}

// The exhaustive operation switch.
func (r *Router) route(ctx context.Context, op Op, payload json.RawMessage) (any, error) {
	switch op {
	case OpBuildImage:
		req, err := protocol.DecodePayload[protocol.BuildImageRequest](payload)
		if err != nil {
			return nil, err
		}
		if req.File != "" {
			return r.builder.BuildFile(ctx, req.Ref, req.File)
		}
		return r.builder.Build(ctx, req.Ref, req.Source)

	case OpPullImage:
		req, err := protocol.DecodePayload[protocol.PullImageRequest](payload)
		if err != nil {
			return nil, err
		}
		return r.builder.Pull(ctx, req.Ref)

	case OpListImages:
		return r.images.List(), nil

	case OpRemoveImage:
		req, err := protocol.DecodePayload[protocol.ImageRequest](payload)
		if err != nil {
			return nil, err
		}
		return nil, r.images.Remove(req.Ref)

	case OpInspectImage:
		req, err := protocol.DecodePayload[protocol.ImageRequest](payload)
		if err != nil {
			return nil, err
		}
		return r.images.Get(req.Ref)

	case OpCreateNamespace:
		req, err := protocol.DecodePayload[protocol.CreateNamespaceRequest](payload)
		if err != nil {
			return nil, err
		}
		return r.provisioner.CreateNamespace(specs.LinuxNamespaceType(req.Type), req.Name)

	case OpCreateCgroup:
		req, err := protocol.DecodePayload[protocol.CreateCgroupRequest](payload)
		if err != nil {
			return nil, err
		}
		return r.provisioner.CreateCgroup(req.Name, req.Limits)

	case OpIsolate:
		req, err := protocol.DecodePayload[protocol.IsolateContainerRequest](payload)
		if err != nil {
			return nil, err
		}
		return r.provisioner.IsolateContainer(ctx, req.ContainerID, req.Limits)

	case OpSetupFilesystem:
		req, err := protocol.DecodePayload[protocol.SetupFilesystemRequest](payload)
		if err != nil {
			return nil, err
		}
		return r.provisioner.SetupFilesystem(ctx, req.ContainerID, req.ImagePath)

	case OpRunContainer:
		req, err := protocol.DecodePayload[protocol.RunContainerRequest](payload)
		if err != nil {
			return nil, err
		}
		return r.runtime.Run(ctx, req.Image, req.Options)

	case OpStartContainer:
		req, err := protocol.DecodePayload[protocol.ContainerRequest](payload)
		if err != nil {
			return nil, err
		}
		return r.runtime.Start(ctx, req.ID)

	case OpStopContainer:
		req, err := protocol.DecodePayload[protocol.ContainerRequest](payload)
		if err != nil {
			return nil, err
		}
		return r.runtime.Stop(ctx, req.ID)

	case OpListContainers:
		req, err := protocol.DecodePayload[protocol.ListContainersRequest](payload)
		if err != nil {
			return nil, err
		}
		return r.runtime.List(req.All)

	case OpExecContainer:
		req, err := protocol.DecodePayload[protocol.ExecContainerRequest](payload)
		if err != nil {
			return nil, err
		}
		return r.runtime.Exec(req.ID, req.Command)

	case OpLogsContainer:
		req, err := protocol.DecodePayload[protocol.ContainerRequest](payload)
		if err != nil {
			return nil, err
		}
		return r.runtime.Logs(req.ID)

	case OpCreateNetwork:
		req, err := protocol.DecodePayload[protocol.CreateNetworkRequest](payload)
		if err != nil {
			return nil, err
		}
		return r.networks.Create(req.Name, req.Driver, req.Subnet)

	case OpListNetworks:
		return r.networks.List(), nil

	case OpConnect:
		req, err := protocol.DecodePayload[protocol.ConnectContainerRequest](payload)
		if err != nil {
			return nil, err
		}
		return nil, r.networks.Connect(req.Network, req.ContainerID)

	case OpCreateVolume:
		req, err := protocol.DecodePayload[protocol.CreateVolumeRequest](payload)
		if err != nil {
			return nil, err
		}
		return r.volumes.Create(req.Name, req.Driver)

	case OpListVolumes:
		return r.volumes.List(), nil

	case OpRemoveVolume:
		req, err := protocol.DecodePayload[protocol.VolumeRequest](payload)
		if err != nil {
			return nil, err
		}
		return nil, r.volumes.Remove(req.Name)

	default:
		return nil, fmt.Errorf("%w: %q", ErrNoRoute, op)
	}
}
