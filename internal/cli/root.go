package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/kilnhq/kilnd/internal"
)

// Represents the root command for the kilnd daemon.
var RootCmd struct {
	Quiet   bool       `short:"q" help:"Suppress informational output."`
	Verbose bool       `short:"v" help:"Enable verbose output."`
	Debug   bool       `short:"d" help:"Enable debug output."`
	Socket  string     `short:"s" help:"Override the default Unix socket path." placeholder:"PATH"`
	Config  string     `short:"c" help:"Path to a YAML config file." placeholder:"PATH"`
	Start   StartCmd   `cmd:"" help:"Start the daemon."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// Parses arguments, configures logging, and runs the selected subcommand.
func Execute() error {

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(&RootCmd,
		kong.Name(internal.Name),
		kong.Description("The kiln daemon.\n\nListens on a Unix domain socket for engine operations from clients."),
		kong.UsageOnError(),
		kong.Vars{
			"version": internal.VersionString(),
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	configureLogger()

	return kongCtx.Run()
}

// Reconfigures the global logger based on CLI flags.
//
// Flags override build-time defaults set via linker flags.
func configureLogger() {
	if RootCmd.Debug {
		internal.SetDebug(true)
	}
	if RootCmd.Quiet {
		internal.SetQuiet(true)
	}
	if RootCmd.Verbose {
		internal.SetVerbose(true)
	}

	setDefaultLogger(os.Stderr)
}

// Whether the given file is an interactive terminal.
func isatty(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
