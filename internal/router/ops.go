package router

// An engine operation. The set is closed; dispatch switches over it
// exhaustively.
type Op string

const (
	OpBuildImage      Op = "build_image"
	OpPullImage       Op = "pull_image"
	OpListImages      Op = "list_images"
	OpRemoveImage     Op = "remove_image"
	OpInspectImage    Op = "inspect_image"
	OpCreateNamespace Op = "create_namespace"
	OpCreateCgroup    Op = "create_cgroup"
	OpIsolate         Op = "isolate_container"
	OpSetupFilesystem Op = "setup_filesystem"
	OpRunContainer    Op = "run_container"
	OpStartContainer  Op = "start_container"
	OpStopContainer   Op = "stop_container"
	OpListContainers  Op = "list_containers"
	OpExecContainer   Op = "exec_container"
	OpLogsContainer   Op = "logs_container"
	OpCreateNetwork   Op = "create_network"
	OpListNetworks    Op = "list_networks"
	OpConnect         Op = "connect_container"
	OpCreateVolume    Op = "create_volume"
	OpListVolumes     Op = "list_volumes"
	OpRemoveVolume    Op = "remove_volume"
)

// The component that owns an operation.
type Subsystem string

const (
	SubsystemImage     Subsystem = "image"
	SubsystemIsolation Subsystem = "isolation"
	SubsystemRuntime   Subsystem = "runtime"
	SubsystemNetwork   Subsystem = "network"
	SubsystemStorage   Subsystem = "storage"
)

// Maps an operation to its owning subsystem. Unknown operations map to
// the empty subsystem.
func subsystemFor(op Op) Subsystem {
	switch op {
	case OpBuildImage, OpPullImage, OpListImages, OpRemoveImage, OpInspectImage:
		return SubsystemImage
	case OpCreateNamespace, OpCreateCgroup, OpIsolate, OpSetupFilesystem:
		return SubsystemIsolation
	case OpRunContainer, OpStartContainer, OpStopContainer, OpListContainers, OpExecContainer, OpLogsContainer:
		return SubsystemRuntime
	case OpCreateNetwork, OpListNetworks, OpConnect:
		return SubsystemNetwork
	case OpCreateVolume, OpListVolumes, OpRemoveVolume:
		return SubsystemStorage
	default:
		return ""
	}
}
