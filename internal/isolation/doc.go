// Package isolation provisions the primitives that keep a container
// apart from the host: namespaces, control groups, and a private root
// filesystem.
//
// A [Provisioner] tracks every allocated namespace and control group by
// name and rejects duplicates. [Provisioner.IsolateContainer] runs the
// four provisioning steps for a container (pid, net, and mnt namespaces
// plus a control group) concurrently and reports per-step results; it
// deliberately performs no rollback of its own, so the orchestrator can
// see exactly which steps succeeded and decide what to tear down.
//
// The primitives here are engine records, not kernel objects. The
// provisioner defines the ownership and failure contract a real backend
// must satisfy; how isolation is physically achieved on a given OS is
// left to that backend.
package isolation
