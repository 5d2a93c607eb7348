package cli

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"github.com/cdprelay/relay/internal/config"
	"github.com/cdprelay/relay/internal/relay"
)

// DoctorCmd runs a handful of pre-flight checks against the configured
// address and extension allowlist.
func DoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check relay configuration and port availability",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := ServerConfig
			if cfgFile != "" {
				loaded, err := config.Load(cfgFile)
				if err != nil {
					fmt.Printf("[FAIL] config: %v\n", err)
					return
				}
				cfg = loaded
			}
			runDoctor(cfg)
		},
	}
}

func runDoctor(cfg relay.Config) {
	fmt.Println("cdprelayd doctor")
	fmt.Println("================")

	resolved, err := relay.ResolveConfig(cfg)
	if err != nil {
		fmt.Printf("[FAIL] config: %v\n", err)
		return
	}
	fmt.Printf("[ OK ] config resolved: addr=%s token-set=%v\n", resolved.Addr, resolved.Token != "")

	if len(resolved.ExtensionIDs) == 0 {
		fmt.Println("[WARN] extension allowlist is empty — /extension will reject everything")
	} else {
		fmt.Printf("[ OK ] extension allowlist has %d id(s)\n", len(resolved.ExtensionIDs))
	}

	l, err := net.Listen("tcp", resolved.Addr)
	if err != nil {
		fmt.Printf("[FAIL] port check: %v\n", err)
		return
	}
	l.Close()
	fmt.Printf("[ OK ] %s is free\n", resolved.Addr)

	fmt.Printf("[ OK ] ping interval %s, command timeout %s (long: %s)\n",
		resolved.PingInterval, resolved.CommandTimeout, resolved.LongCommandTimeout)
}
