package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/containerd/errdefs"

	"github.com/kilnhq/kilnd/internal/build"
	"github.com/kilnhq/kilnd/internal/handle"
	"github.com/kilnhq/kilnd/internal/isolation"
	"github.com/kilnhq/kilnd/internal/network"
	"github.com/kilnhq/kilnd/internal/taskset"
	"github.com/kilnhq/kilnd/internal/volume"
)

// Simulated PIDs handed to started containers.
var pidSeq atomic.Int64

// Returns the next free simulated process ID.
func nextPID() int {
	return int(1000 + pidSeq.Add(1))
}

// Wires the runtime to the rest of the engine.
type Config struct {
	Images      *build.Store
	Provisioner *isolation.Provisioner
	Networks    *network.Store
	Volumes     *volume.Store
}

// The engine context for container operations.
type Runtime struct {
	images      *build.Store
	provisioner *isolation.Provisioner
	networks    *network.Store
	volumes     *volume.Store

	mu         sync.Mutex
	containers map[string]*handle.Handle[*Container]
	order      []string // Container IDs in creation order.
}

// Creates a runtime backed by the given stores and provisioner.
func New(cfg Config) *Runtime {
	return &Runtime{
		images:      cfg.Images,
		provisioner: cfg.Provisioner,
		networks:    cfg.Networks,
		volumes:     cfg.Volumes,
		containers:  make(map[string]*handle.Handle[*Container]),
	}
}

// Caller-supplied settings for a new container.
type Options struct {
	Command []string          `json:"command,omitempty"` // Overrides the image entrypoint.
	Env     map[string]string `json:"env,omitempty"`     // Merged over the image environment.
	Ports   []int             `json:"ports,omitempty"`   // Published in addition to exposed ports.
	Network string            `json:"network,omitempty"` // Existing network to connect to.
	Volumes []string          `json:"volumes,omitempty"` // Existing volumes to mount.
	Limits  isolation.Limits  `json:"limits,omitzero"`   // Control group sizing.
}

// Value produced by the process-start setup task.
type started struct {
	pid int
	iso *isolation.Result
}

// Creates a container from an image and brings it to running.
//
// The record starts in the created state, wrapped in its ownership
// handle. Network attachment, volume mounts, and process start then run
// as three concurrent setup tasks; none of them touches the record.
// Only after all tasks finish does the lifecycle borrow the handle and
// merge the results: running on all-success, failed otherwise, with the
// reason stored on the record. A failed container is returned as a
// normal summary, not an error; it remains a valid, listable entity.
func (r *Runtime) Run(ctx context.Context, imageRef string, opts Options) (Summary, error) {
	img, err := r.images.Get(imageRef)
	if err != nil {
		return Summary{}, err
	}

	id := newContainerID()

	command := opts.Command
	if len(command) == 0 {
		command = entrypointFromImage(img)
	}
	env := envFromImage(img)
	for k, v := range opts.Env {
		env[k] = v
	}

	c := &Container{
		ID:        id,
		Image:     img.Ref(),
		ImageID:   img.ID,
		Command:   command,
		Status:    StatusCreated,
		CreatedAt: time.Now(),
		Ports:     append(portsFromImage(img), opts.Ports...),
		Env:       env,
	}

	h := handle.Acquire(c, func(c *Container) {
		r.provisioner.ReleaseContainer(c.ID)
		r.provisioner.TeardownFilesystem(c.ID)
		r.networks.Disconnect(c.ID)
		r.volumes.Detach(c.ID)
	})

	r.mu.Lock()
	r.containers[id] = h
	r.order = append(r.order, id)
	r.mu.Unlock()

	slog.Info("container created", "id", shortID(id), "image", img.Ref())

	tasks := taskset.New[started]()
	tasks.Add(func(ctx context.Context) (started, error) {
		if opts.Network == "" {
			return started{}, nil
		}
		return started{}, r.networks.Connect(opts.Network, id)
	})
	tasks.Add(func(ctx context.Context) (started, error) {
		for _, name := range opts.Volumes {
			if err := r.volumes.Attach(name, id); err != nil {
				return started{}, err
			}
		}
		return started{}, nil
	})
	tasks.Add(func(ctx context.Context) (started, error) {
		return r.startProcess(ctx, id, img.Ref(), opts.Limits)
	})

	results := tasks.Run(ctx)

	// Merge-write: the only writer is this lifecycle step, under borrow.
	rec, err := h.Borrow()
	if err != nil {
		return Summary{}, err
	}
	defer h.Release()

	if err := taskset.FirstError(results); err != nil {
		rec.Status = StatusFailed
		rec.FailureReason = err.Error()
		rec.appendLog("engine", "setup failed: "+err.Error())

		// Tear down whatever setup did manage to allocate.
		r.provisioner.ReleaseContainer(id)
		r.provisioner.TeardownFilesystem(id)
		r.networks.Disconnect(id)
		r.volumes.Detach(id)

		slog.Warn("container failed", "id", shortID(id), "reason", err)
		return rec.snapshot(), nil
	}

	res := results[2].Value
	for _, ns := range res.iso.Namespaces {
		ns.AddProcess(res.pid)
	}
	res.iso.Cgroup.AddProcess(res.pid)

	rec.PID = res.pid
	rec.Network = opts.Network
	rec.Volumes = append([]string(nil), opts.Volumes...)
	rec.Status = StatusRunning
	rec.StartedAt = time.Now()
	rec.appendLog("engine", "container started")

	slog.Info("container running", "id", shortID(id), "pid", res.pid)
	return rec.snapshot(), nil
}

// Provisions isolation for a container and starts its process.
//
// On partial isolation failure the successfully allocated primitives
// are torn down here before the error is surfaced, so a failed start
// leaves no provisioner state behind.
func (r *Runtime) startProcess(ctx context.Context, id, imageRef string, limits isolation.Limits) (started, error) {
	iso, err := r.provisioner.IsolateContainer(ctx, id, limits)
	if err != nil {
		r.provisioner.ReleaseContainer(id)
		return started{}, err
	}

	if _, err := r.provisioner.SetupFilesystem(ctx, id, imageRef); err != nil {
		r.provisioner.ReleaseContainer(id)
		return started{}, err
	}

	return started{pid: nextPID(), iso: iso}, nil
}

// Starts a container that is not currently running.
//
// Containers stopped earlier keep their isolation primitives and only
// need a new process; failed containers lost theirs during rollback and
// are re-provisioned. Fails with [ErrAlreadyRunning] on a running
// container.
func (r *Runtime) Start(ctx context.Context, id string) (Summary, error) {
	h, err := r.lookup(id)
	if err != nil {
		return Summary{}, err
	}

	rec, err := h.Borrow()
	if err != nil {
		return Summary{}, err
	}
	defer h.Release()

	if rec.Status == StatusRunning {
		return Summary{}, fmt.Errorf("%w: %s: %w", ErrAlreadyRunning, shortID(id), errdefs.ErrConflict)
	}

	if rec.Status == StatusFailed {
		res, err := r.startProcess(ctx, rec.ID, rec.Image, isolation.Limits{})
		if err != nil {
			rec.FailureReason = err.Error()
			rec.appendLog("engine", "restart failed: "+err.Error())
			return rec.snapshot(), nil
		}
		rec.PID = res.pid
	} else {
		rec.PID = nextPID()
	}

	for _, ns := range r.provisioner.ContainerNamespaces(rec.ID) {
		ns.AddProcess(rec.PID)
	}

	rec.Status = StatusRunning
	rec.StartedAt = time.Now()
	rec.FailureReason = ""
	rec.appendLog("engine", "container started")

	slog.Info("container running", "id", shortID(id), "pid", rec.PID)
	return rec.snapshot(), nil
}

// Stops a running container.
//
// The process goes away but the isolation primitives and the record
// stay; a stopped container remains listable and can be started again.
// Fails with [ErrNotRunning] unless the container is running.
func (r *Runtime) Stop(ctx context.Context, id string) (Summary, error) {
	h, err := r.lookup(id)
	if err != nil {
		return Summary{}, err
	}

	rec, err := h.Borrow()
	if err != nil {
		return Summary{}, err
	}
	defer h.Release()

	if rec.Status != StatusRunning {
		return Summary{}, fmt.Errorf("%w: %s is %s: %w", ErrNotRunning, shortID(id), rec.Status, errdefs.ErrFailedPrecondition)
	}

	for _, ns := range r.provisioner.ContainerNamespaces(rec.ID) {
		ns.RemoveProcess(rec.PID)
	}

	rec.Status = StatusStopped
	rec.PID = 0
	rec.ExitCode = 0
	rec.FinishedAt = time.Now()
	rec.appendLog("engine", "container stopped")

	slog.Info("container stopped", "id", shortID(id))
	return rec.snapshot(), nil
}

// Lists containers as read-only snapshots, in creation order.
//
// The default view includes only running containers; all also includes
// created, stopped, and failed ones.
func (r *Runtime) List(all bool) ([]Summary, error) {
	r.mu.Lock()
	handles := make([]*handle.Handle[*Container], 0, len(r.order))
	for _, id := range r.order {
		handles = append(handles, r.containers[id])
	}
	r.mu.Unlock()

	summaries := make([]Summary, 0, len(handles))
	for _, h := range handles {
		rec, err := h.Borrow()
		if err != nil {
			return nil, err
		}
		s := rec.snapshot()
		h.Release()

		if !all && s.Status != StatusRunning {
			continue
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

// Returns a copy of a container's log, in append order.
func (r *Runtime) Logs(id string) ([]LogEntry, error) {
	h, err := r.lookup(id)
	if err != nil {
		return nil, err
	}

	rec, err := h.Borrow()
	if err != nil {
		return nil, err
	}
	defer h.Release()

	return append([]LogEntry(nil), rec.Logs...), nil
}

// Resolves a container ID to its handle.
//
// Accepts unique ID prefixes so callers can use shortened IDs.
func (r *Runtime) lookup(id string) (*handle.Handle[*Container], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.containers[id]; ok {
		return h, nil
	}

	var match *handle.Handle[*Container]
	if id != "" {
		for full, h := range r.containers {
			if len(id) <= len(full) && full[:len(id)] == id {
				if match != nil {
					match = nil
					break
				}
				match = h
			}
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrContainerNotFound, id, errdefs.ErrNotFound)
	}
	return match, nil
}

// Shortens a container ID for logs, docker-style.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
