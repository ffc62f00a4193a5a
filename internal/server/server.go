package server

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/kilnhq/kilnd/internal/build"
	"github.com/kilnhq/kilnd/internal/isolation"
	"github.com/kilnhq/kilnd/internal/network"
	"github.com/kilnhq/kilnd/internal/paths"
	"github.com/kilnhq/kilnd/internal/router"
	"github.com/kilnhq/kilnd/internal/runtime"
	"github.com/kilnhq/kilnd/internal/volume"
)

const (

	// Group name used to grant socket access. Members of this group can
	// connect to the daemon socket without owning the process.
	socketGroup = "kilnd"

	// File mode applied to the Unix socket. Owner and group get read-write
	// (required for connect); others get no access.
	socketMode = 0660
)

// Holds server configuration.
type Config struct {
	SocketPath    string           // Override for the Unix socket path. Empty uses the default.
	DataDir       string           // Root directory for container and volume state. Empty uses the default.
	PullDelay     time.Duration    // Simulated registry latency applied to image pulls.
	DefaultLimits isolation.Limits // Default resource limits for new control groups.
}

// Listens on a Unix domain socket and dispatches engine operations.
type Server struct {
	socketPath string
	router     *router.Router
	listener   net.Listener
	startedAt  time.Time
	done       chan struct{}
	stopOnce   sync.Once
}

// Creates a new server instance with a fully wired engine.
//
// The socket is not opened until [Start] is called.
func New(cfg Config) (*Server, error) {
	socketPath := cfg.SocketPath
	if socketPath == "" {
		socketPath = paths.Socket()
	}

	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = paths.Data()
	}

	images := build.NewStore()
	builder := build.NewBuilder(images)
	if cfg.PullDelay > 0 {
		builder.SetPullDelay(cfg.PullDelay)
	}

	provisioner := isolation.New(filepath.Join(dataDir, "containers"))
	provisioner.SetDefaultLimits(cfg.DefaultLimits)
	networks := network.NewStore()
	volumes := volume.NewStore(dataDir)

	rt := runtime.New(runtime.Config{
		Images:      images,
		Provisioner: provisioner,
		Networks:    networks,
		Volumes:     volumes,
	})

	r := router.New(router.Config{
		Builder:     builder,
		Images:      images,
		Provisioner: provisioner,
		Runtime:     rt,
		Networks:    networks,
		Volumes:     volumes,
	})
	r.Observe(router.LogObserver{})

	return &Server{
		socketPath: socketPath,
		router:     r,
		done:       make(chan struct{}),
	}, nil
}

// Opens the Unix socket and begins accepting connections.
func (s *Server) Start() error {
	listener, err := listen(s.socketPath)
	if err != nil {
		return err
	}

	s.listener = listener
	s.startedAt = time.Now()

	if err := writePID(); err != nil {
		slog.Warn("failed to write PID file", "error", err)
	}

	slog.Info("server listening on socket", "path", s.socketPath)

	go s.accept()
	return nil
}

// Creates the Unix socket listener, removes any stale socket from a previous
// run, and applies permissions.
func listen(socketPath string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(socketPath), paths.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrServer, err)
	}

	os.Remove(socketPath)

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to listen on %s: %w", ErrServer, socketPath, err)
	}

	if err := setSocketPermissions(socketPath); err != nil {
		listener.Close()
		return nil, err
	}

	return listener, nil
}

// Restricts socket access to owner and group. The daemon does not run as
// root; any user in the kilnd group can also connect.
func setSocketPermissions(socketPath string) error {
	if err := os.Chmod(socketPath, socketMode); err != nil {
		return fmt.Errorf("%w: failed to chmod socket %s: %w", ErrServer, socketPath, err)
	}

	if g, err := user.LookupGroup(socketGroup); err == nil {
		if gid, err := strconv.Atoi(g.Gid); err == nil {
			if err := os.Chown(socketPath, -1, gid); err != nil {
				slog.Warn("failed to chgrp socket", "group", socketGroup, "error", err)
			}
		}
	} else {
		slog.Warn("socket group not found, socket accessible to owner only", "group", socketGroup)
	}

	return nil
}

// Shuts down the server and cleans up resources. Safe to call more
// than once.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		close(s.done)

		if s.listener != nil {
			s.listener.Close()
		}

		os.Remove(s.socketPath)
		os.Remove(paths.PIDFile())
	})
	return nil
}

// Blocks until the server stops.
func (s *Server) Wait() {
	<-s.done
}

// Accepts connections in a loop until the server shuts down.
func (s *Server) accept() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				slog.Error("accept error", "error", err)
				continue
			}
		}

		go s.handle(conn)
	}
}

// Writes the daemon PID to the PID file so clients can detect whether the
// daemon is already running and send it signals.
func writePID() error {
	if err := os.MkdirAll(paths.Runtime(), paths.DefaultDirMode); err != nil {
		return err
	}
	return os.WriteFile(paths.PIDFile(), []byte(strconv.Itoa(os.Getpid())), paths.DefaultFileMode)
}
