package isolation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/containerd/errdefs"
	units "github.com/docker/go-units"
	specs "github.com/opencontainers/runtime-spec/specs-go"

	"github.com/kilnhq/kilnd/internal/taskset"
)

const (

	// Memory limit applied when the caller does not supply one.
	DefaultMemory = 512 * units.MiB

	// CPU core limit applied when the caller does not supply one.
	DefaultCPUCores = 1.0

	// CFS scheduler period used when deriving a CPU quota from cores.
	cpuPeriod = 100000
)

// Resource limits for a container's control group.
//
// Zero fields fall back to the engine defaults when the control group
// is created.
type Limits struct {
	Memory   int64   `json:"memory"` // Memory limit in bytes.
	CPUCores float64 `json:"cpu"`    // CPU limit in cores.
}

// Returns a copy with engine defaults filled in for zero fields.
func (l Limits) withDefaults() Limits {
	if l.Memory <= 0 {
		l.Memory = DefaultMemory
	}
	if l.CPUCores <= 0 {
		l.CPUCores = DefaultCPUCores
	}
	return l
}

// Converts the limits to an OCI resource specification.
func (l Limits) resources() specs.LinuxResources {
	memory := l.Memory
	period := uint64(cpuPeriod)
	quota := int64(l.CPUCores * cpuPeriod)

	return specs.LinuxResources{
		Memory: &specs.LinuxMemory{Limit: &memory},
		CPU:    &specs.LinuxCPU{Quota: &quota, Period: &period},
	}
}

// A scoping boundary limiting what a set of processes can observe.
//
// A namespace is owned by exactly one container for its lifetime.
// Membership is mutated only by the owning container's lifecycle, which
// performs all writes sequentially.
type Namespace struct {
	Type      specs.LinuxNamespaceType // Namespace kind (pid, net, mnt, ...).
	Name      string                   // Unique name within the provisioner.
	CreatedAt time.Time
	members   map[int]struct{}
}

// Records a process as a member of the namespace.
func (n *Namespace) AddProcess(pid int) {
	n.members[pid] = struct{}{}
}

// Removes a process from the namespace.
func (n *Namespace) RemoveProcess(pid int) {
	delete(n.members, pid)
}

// Number of member processes.
func (n *Namespace) ProcessCount() int {
	return len(n.members)
}

// A resource-limiting boundary applied to a set of processes.
type Cgroup struct {
	Name      string               // Unique name within the provisioner.
	Limits    Limits               // Effective limits after defaults.
	Resources specs.LinuxResources // OCI view of the same limits.
	CreatedAt time.Time
	members   map[int]struct{}
}

// Records a process as governed by the control group.
func (c *Cgroup) AddProcess(pid int) {
	c.members[pid] = struct{}{}
}

// Number of member processes.
func (c *Cgroup) ProcessCount() int {
	return len(c.members)
}

// Allocates and tracks isolation primitives by name.
type Provisioner struct {
	root       string // Base directory for container root filesystems.
	mu         sync.Mutex
	defaults   Limits // Configured default limits; zero fields fall back to the engine defaults.
	namespaces map[string]*Namespace
	cgroups    map[string]*Cgroup
}

// Creates a provisioner that sets up container filesystems under root.
func New(root string) *Provisioner {
	return &Provisioner{
		root:       root,
		namespaces: make(map[string]*Namespace),
		cgroups:    make(map[string]*Cgroup),
	}
}

// Overrides the default limits applied to control groups created
// without explicit limits. Zero fields keep the engine defaults.
func (p *Provisioner) SetDefaultLimits(l Limits) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.defaults = l
}

// Allocates a namespace of the given type under a unique name.
//
// Fails with [ErrDuplicateNamespace] when the name is already taken.
func (p *Provisioner) CreateNamespace(nsType specs.LinuxNamespaceType, name string) (*Namespace, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.namespaces[name]; ok {
		return nil, fmt.Errorf("%w: %q: %w", ErrDuplicateNamespace, name, errdefs.ErrAlreadyExists)
	}

	ns := &Namespace{
		Type:      nsType,
		Name:      name,
		CreatedAt: time.Now(),
		members:   make(map[int]struct{}),
	}
	p.namespaces[name] = ns

	slog.Debug("namespace created", "type", nsType, "name", name)
	return ns, nil
}

// Allocates a control group under a unique name.
//
// Caller-supplied limits are merged over the configured defaults, then
// the engine defaults (512MiB memory, 1.0 CPU core). Fails with
// [ErrDuplicateCgroup] when the name is already taken.
func (p *Provisioner) CreateCgroup(name string, limits Limits) (*Cgroup, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.cgroups[name]; ok {
		return nil, fmt.Errorf("%w: %q: %w", ErrDuplicateCgroup, name, errdefs.ErrAlreadyExists)
	}

	effective := limits
	if effective.Memory <= 0 {
		effective.Memory = p.defaults.Memory
	}
	if effective.CPUCores <= 0 {
		effective.CPUCores = p.defaults.CPUCores
	}
	effective = effective.withDefaults()
	cg := &Cgroup{
		Name:      name,
		Limits:    effective,
		Resources: effective.resources(),
		CreatedAt: time.Now(),
		members:   make(map[int]struct{}),
	}
	p.cgroups[name] = cg

	slog.Debug("cgroup created", "name", name,
		"memory", units.BytesSize(float64(effective.Memory)),
		"cpu", effective.CPUCores,
	)
	return cg, nil
}

// Looks up a namespace by name.
func (p *Provisioner) Namespace(name string) (*Namespace, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ns, ok := p.namespaces[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q: %w", ErrNamespaceNotFound, name, errdefs.ErrNotFound)
	}
	return ns, nil
}

// Looks up a control group by name.
func (p *Provisioner) Cgroup(name string) (*Cgroup, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cg, ok := p.cgroups[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q: %w", ErrCgroupNotFound, name, errdefs.ErrNotFound)
	}
	return cg, nil
}

// One of the four provisioning steps of IsolateContainer.
type Step string

const (
	StepPIDNamespace Step = "pid-namespace"
	StepNetNamespace Step = "net-namespace"
	StepMntNamespace Step = "mnt-namespace"
	StepCgroup       Step = "cgroup"
)

// Outcome of a single provisioning step.
type StepResult struct {
	Step Step
	Err  error
}

// Everything provisioned for a container, successful or not.
//
// Steps always holds one entry per provisioning step, in step order,
// so the caller can tell exactly which steps failed. Namespaces and
// Cgroup hold only what was actually allocated.
type Result struct {
	ContainerID string
	Namespaces  []*Namespace // Successfully allocated namespaces.
	Cgroup      *Cgroup      // Nil when the cgroup step failed.
	Steps       []StepResult
}

// Value produced by one provisioning task.
type provisioned struct {
	ns     *Namespace
	cgroup *Cgroup
}

// Provisions the full isolation set for a container.
//
// Four independent steps run concurrently: a pid namespace, a net
// namespace, a mnt namespace, and a control group sized from limits.
// Every step runs to completion regardless of the others. When any step
// fails the returned error wraps [ErrPartialIsolation] and the result
// still lists what succeeded; the provisioner performs no rollback of
// its own, leaving the teardown decision to the caller.
func (p *Provisioner) IsolateContainer(ctx context.Context, containerID string, limits Limits) (*Result, error) {
	steps := []Step{StepPIDNamespace, StepNetNamespace, StepMntNamespace, StepCgroup}

	tasks := taskset.New[provisioned]()
	for _, nsType := range []specs.LinuxNamespaceType{specs.PIDNamespace, specs.NetworkNamespace, specs.MountNamespace} {
		tasks.Add(func(ctx context.Context) (provisioned, error) {
			ns, err := p.CreateNamespace(nsType, namespaceName(containerID, nsType))
			if err != nil {
				return provisioned{}, err
			}
			return provisioned{ns: ns}, nil
		})
	}
	tasks.Add(func(ctx context.Context) (provisioned, error) {
		cg, err := p.CreateCgroup(containerID, limits)
		if err != nil {
			return provisioned{}, err
		}
		return provisioned{cgroup: cg}, nil
	})

	result := &Result{ContainerID: containerID}
	results := tasks.Run(ctx)

	var failed []string
	for i, r := range results {
		result.Steps = append(result.Steps, StepResult{Step: steps[i], Err: r.Err})
		if r.Err != nil {
			failed = append(failed, string(steps[i]))
			continue
		}
		if r.Value.ns != nil {
			result.Namespaces = append(result.Namespaces, r.Value.ns)
		}
		if r.Value.cgroup != nil {
			result.Cgroup = r.Value.cgroup
		}
	}

	if len(failed) > 0 {
		return result, fmt.Errorf("%w: container %s: steps failed: %s: %w",
			ErrPartialIsolation, containerID, strings.Join(failed, ", "), taskset.FirstError(results))
	}

	slog.Debug("container isolated", "id", containerID, "namespaces", len(result.Namespaces))
	return result, nil
}

// Returns the namespaces currently allocated for a container, in
// pid, net, mnt order. Missing namespaces are skipped.
func (p *Provisioner) ContainerNamespaces(containerID string) []*Namespace {
	p.mu.Lock()
	defer p.mu.Unlock()

	var namespaces []*Namespace
	for _, nsType := range []specs.LinuxNamespaceType{specs.PIDNamespace, specs.NetworkNamespace, specs.MountNamespace} {
		if ns, ok := p.namespaces[namespaceName(containerID, nsType)]; ok {
			namespaces = append(namespaces, ns)
		}
	}
	return namespaces
}

// Removes every primitive allocated for a container.
//
// Used by the orchestrator to roll back after a partial isolation
// failure and when a container is removed. Unknown names are ignored.
func (p *Provisioner) ReleaseContainer(containerID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, nsType := range []specs.LinuxNamespaceType{specs.PIDNamespace, specs.NetworkNamespace, specs.MountNamespace} {
		delete(p.namespaces, namespaceName(containerID, nsType))
	}
	delete(p.cgroups, containerID)
}

// Returns the provisioner-wide name for one of a container's namespaces.
func namespaceName(containerID string, nsType specs.LinuxNamespaceType) string {
	return containerID + "-" + string(nsType)
}
