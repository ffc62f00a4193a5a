package build

// Classifies a layer by the instruction that produced it.
type LayerKind string

const (
	LayerBase       LayerKind = "base"       // FROM
	LayerRun        LayerKind = "run"        // RUN
	LayerCopy       LayerKind = "copy"       // COPY / ADD
	LayerEnv        LayerKind = "env"        // ENV
	LayerExpose     LayerKind = "expose"     // EXPOSE
	LayerEntrypoint LayerKind = "entrypoint" // CMD / ENTRYPOINT
	LayerUnknown    LayerKind = "unknown"    // Anything else.
)

// Maps an instruction verb to its layer kind.
//
// Unrecognized verbs map to [LayerUnknown]; they are recorded, not
// rejected, so unknown instructions never fail a build.
func kindForVerb(verb string) LayerKind {
	switch verb {
	case "FROM":
		return LayerBase
	case "RUN":
		return LayerRun
	case "COPY", "ADD":
		return LayerCopy
	case "ENV":
		return LayerEnv
	case "EXPOSE":
		return LayerExpose
	case "CMD", "ENTRYPOINT":
		return LayerEntrypoint
	default:
		return LayerUnknown
	}
}

// One incremental, ordered delta produced from a single instruction.
//
// Layers are immutable once produced. Layer i logically depends on the
// filesystem state left by layer i-1.
type Layer struct {
	Kind        LayerKind `json:"kind"`
	Instruction string    `json:"instruction"` // Source instruction text.
	Size        int64     `json:"size"`        // Estimated layer size in bytes.

	// Kind-specific fields.
	Base       string            `json:"base,omitempty"`       // Base image reference (base).
	Command    string            `json:"command,omitempty"`    // Shell command (run).
	Source     string            `json:"source,omitempty"`     // Copy source (copy).
	Dest       string            `json:"dest,omitempty"`       // Copy destination (copy).
	Env        map[string]string `json:"env,omitempty"`        // Variables set (env).
	Ports      []int             `json:"ports,omitempty"`      // Exposed ports (expose).
	Entrypoint []string          `json:"entrypoint,omitempty"` // Entrypoint args (entrypoint).
}
