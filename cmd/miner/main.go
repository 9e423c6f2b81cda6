// Command miner fetches a candidate block from a node, grinds its nonce,
// and submits the sealed block back, looping forever.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/educhain/chainnode/internal/config"
	"github.com/educhain/chainnode/internal/log"
	"github.com/educhain/chainnode/pkg/client"
	"github.com/educhain/chainnode/pkg/keys"
	"github.com/educhain/chainnode/pkg/mining"
	"github.com/educhain/chainnode/pkg/serialization"
)

var minerLog = log.Disabled

func main() {
	v := config.NewViper()
	var keyHex string

	rootCmd := &cobra.Command{
		Use:   "miner",
		Short: "Mine blocks against a chainnode peer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMiner(v, keyHex)
		},
	}
	config.BindMinerFlags(rootCmd, v)
	rootCmd.Flags().StringVar(&keyHex, "key", "", "hex-encoded public key to mine rewards to (required)")
	rootCmd.MarkFlagRequired("key")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runMiner(v *viper.Viper, keyHex string) error {
	if err := config.ReadConfigFile(v); err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	cfg := config.LoadMinerConfig(v)
	minerLog = log.NewSubsystem("MINR", log.ParseLevel(cfg.LogLevel))

	keyBytes, err := hex.DecodeString(keyHex)
	if err != nil {
		return fmt.Errorf("invalid public key: %w", err)
	}
	pub, err := keys.NewPublicKeyFromBytes(keyBytes)
	if err != nil {
		return err
	}

	c := client.New(cfg.NodeAddr, 0)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	for ctx.Err() == nil {
		if err := mineOnce(ctx, c, pub); err != nil {
			minerLog.Warnf("mining round failed: %v", err)
			select {
			case <-time.After(2 * time.Second):
			case <-ctx.Done():
			}
		}
	}
	return nil
}

func mineOnce(ctx context.Context, c *client.Client, pub *keys.PublicKey) error {
	template, err := c.FetchTemplate(pub)
	if err != nil {
		return fmt.Errorf("fetch template: %w", err)
	}

	start := time.Now()
	sealed, err := mining.Mine(ctx, template, func(s mining.Stats) {
		minerLog.Debugf("mining: %d attempts, %.0f h/s", s.Attempts, s.HashRate())
	})
	if err != nil {
		return fmt.Errorf("mine: %w", err)
	}

	valid, err := c.ValidateTemplate(sealed)
	if err != nil {
		return fmt.Errorf("validate before submit: %w", err)
	}
	if !valid {
		minerLog.Infof("template went stale after %v, refetching", time.Since(start))
		return nil
	}

	if err := c.SubmitTemplate(sealed); err != nil {
		return fmt.Errorf("submit template: %w", err)
	}

	hash, err := serialization.HashBlockHeader(&sealed.Header)
	if err != nil {
		return err
	}
	minerLog.Infof("mined block %s in %v (nonce %d)", hash, time.Since(start), sealed.Header.Nonce)
	return nil
}
