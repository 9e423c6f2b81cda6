// Command node runs a full peer: it serves the wire protocol, replays or
// syncs its chain on startup, and periodically cleans its mempool and
// persists its chain to disk.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/educhain/chainnode/internal/config"
	"github.com/educhain/chainnode/internal/log"
	"github.com/educhain/chainnode/pkg/chain"
	"github.com/educhain/chainnode/pkg/node"
	"github.com/educhain/chainnode/pkg/peerconn"
)

func main() {
	v := config.NewViper()

	rootCmd := &cobra.Command{
		Use:   "node",
		Short: "Run a chainnode peer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode(v)
		},
	}
	config.BindNodeFlags(rootCmd, v)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runNode(v *viper.Viper) error {
	if err := config.ReadConfigFile(v); err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	cfg := config.LoadNodeConfig(v)

	level := log.ParseLevel(cfg.LogLevel)
	chain.UseLogger(log.NewSubsystem("CHAN", level))
	node.UseLogger(log.NewSubsystem("NODE", level))
	peerconn.UseLogger(log.NewSubsystem("PEER", level))

	bc := chain.New()
	n := node.New(node.Config{
		ListenAddr:             cfg.ListenAddr,
		SeedAddrs:              cfg.SeedAddrs,
		MempoolCleanupInterval: cfg.MempoolCleanupInterval,
		ChainSaveInterval:      cfg.ChainSaveInterval,
		ChainFilePath:          cfg.ChainFilePath,
	}, bc)

	if err := n.Start(); err != nil {
		return fmt.Errorf("start node: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	n.Stop()
	return nil
}
