package cli

import (
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cdprelay/relay/internal/config"
	"github.com/cdprelay/relay/internal/logging"
	"github.com/cdprelay/relay/internal/relay"
)

// ServeCmd starts the relay and blocks until SIGINT/SIGTERM (§6 exit codes).
func ServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the CDP relay server",
		Long:  `Start the relay, listening for the browser extension on /extension and automation clients on /cdp.`,
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(runServe(ServerConfig))
		},
	}
}

func runServe(cfg relay.Config) int {
	if cfgFile != "" {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cdprelayd: %v\n", err)
			return 3
		}
		cfg = loaded
	}
	if verbose {
		logging.Enable()
	} else {
		logging.Disable()
	}

	resolved, err := relay.ResolveConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cdprelayd: %v\n", err)
		return 3
	}

	srv := relay.NewServer(resolved)
	if err := srv.Start(); err != nil {
		if isAddrInUse(err) {
			fmt.Fprintf(os.Stderr, "cdprelayd: %s already in use\n", resolved.Addr)
		} else {
			fmt.Fprintf(os.Stderr, "cdprelayd: %v\n", err)
		}
		return 2
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logging.Info("cdprelayd: shutting down")
	if err := srv.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "cdprelayd: shutdown error: %v\n", err)
	}
	return 0
}

func isAddrInUse(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.EADDRINUSE)
}
