package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (

	// Name used for directory and file naming.
	daemonName = "kilnd"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644
)

// Path to the directory for runtime files (sockets, PIDs).
//
//	Linux:   $XDG_RUNTIME_DIR/kilnd or /run/user/<uid>/kilnd
//	macOS:   ~/Library/Caches/kilnd/run
func Runtime() string {
	if xdg.RuntimeDir != "" {
		return filepath.Join(xdg.RuntimeDir, daemonName)
	}
	return filepath.Join(xdg.CacheHome, daemonName, "run")
}

// Default path to the Unix domain socket for CLI-to-daemon communication.
func Socket() string {
	return filepath.Join(Runtime(), daemonName+".sock")
}

// Default path to the PID file.
func PIDFile() string {
	return filepath.Join(Runtime(), daemonName+".pid")
}

// Path to the directory for engine state.
//
//	Linux:   ~/.local/share/kilnd
//	macOS:   ~/Library/Application Support/kilnd
func Data() string {
	return filepath.Join(xdg.DataHome, daemonName)
}

// Path to the base directory for container root filesystems.
func Containers() string {
	return filepath.Join(Data(), "containers")
}

// Default path to the daemon configuration file.
//
//	Linux:   ~/.config/kilnd/config.yaml
func ConfigFile() string {
	return filepath.Join(xdg.ConfigHome, daemonName, "config.yaml")
}
