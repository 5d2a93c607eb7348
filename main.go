package main

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	cli "github.com/cdprelay/relay/cmd/cdprelayd"
	"github.com/cdprelay/relay/internal/config"
)

//go:embed etc/cdprelayd.yaml
var embeddedConfig []byte

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadFromBytes(embeddedConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cdprelayd: load embedded config: %v\n", err)
		os.Exit(3)
	}

	root := cli.SetupRootCmd(cfg)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
