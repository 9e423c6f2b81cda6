// Package config loads the three binaries' settings with CLI flag > env
// var > TOML file > built-in default precedence, using viper bound to
// cobra's flag set the way the pack's adrenochain CLI does.
package config

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NodeConfig holds the settings cmd/node needs to start serving.
type NodeConfig struct {
	ListenAddr             string
	SeedAddrs              []string
	ChainFilePath          string
	MempoolCleanupInterval time.Duration
	ChainSaveInterval      time.Duration
	LogLevel               string
}

// WalletConfig holds the settings cmd/wallet needs to build and submit a
// transaction.
type WalletConfig struct {
	NodeAddr   string
	FeeFixed   uint64
	FeePercent float64
	LogLevel   string
}

// MinerConfig holds the settings cmd/miner needs to grind templates
// against a node.
type MinerConfig struct {
	NodeAddr string
	LogLevel string
}

// defaults mirror the original node's NodeConfig/MiningConfig/WalletConfig
// (listen port 9000, blockchain.bin, 30s cleanup, 15s save).
const (
	defaultListenAddr             = ":9000"
	defaultChainFilePath          = "./blockchain.bin"
	defaultMempoolCleanupInterval = 30 * time.Second
	defaultChainSaveInterval      = 15 * time.Second
	defaultNodeAddr               = "127.0.0.1:9000"
	defaultLogLevel               = "info"
)

// BindNodeFlags registers the node's CLI flags and binds them into v with
// CLI > env > file > default precedence.
func BindNodeFlags(cmd *cobra.Command, v *viper.Viper) {
	flags := cmd.Flags()
	flags.String("listen", defaultListenAddr, "address to listen for peer connections on")
	flags.StringSlice("seeds", nil, "seed peer addresses to sync from on startup")
	flags.String("chain-file", defaultChainFilePath, "path to the persisted chain blob")
	flags.Duration("cleanup-interval", defaultMempoolCleanupInterval, "mempool cleanup period")
	flags.Duration("save-interval", defaultChainSaveInterval, "chain persistence period")
	flags.String("log-level", defaultLogLevel, "log level: trace|debug|info|warn|error|critical|off")

	v.BindPFlag("node.listen", flags.Lookup("listen"))
	v.BindPFlag("node.seeds", flags.Lookup("seeds"))
	v.BindPFlag("node.chain_file", flags.Lookup("chain-file"))
	v.BindPFlag("node.cleanup_interval", flags.Lookup("cleanup-interval"))
	v.BindPFlag("node.save_interval", flags.Lookup("save-interval"))
	v.BindPFlag("node.log_level", flags.Lookup("log-level"))
}

// LoadNodeConfig reads a NodeConfig from v, which must already have CLI
// flags bound via BindNodeFlags and AutomaticEnv/ReadInConfig applied by
// the caller.
func LoadNodeConfig(v *viper.Viper) NodeConfig {
	return NodeConfig{
		ListenAddr:             v.GetString("node.listen"),
		SeedAddrs:              v.GetStringSlice("node.seeds"),
		ChainFilePath:          v.GetString("node.chain_file"),
		MempoolCleanupInterval: v.GetDuration("node.cleanup_interval"),
		ChainSaveInterval:      v.GetDuration("node.save_interval"),
		LogLevel:               v.GetString("node.log_level"),
	}
}

// BindWalletFlags registers cmd/wallet's CLI flags.
func BindWalletFlags(cmd *cobra.Command, v *viper.Viper) {
	flags := cmd.PersistentFlags()
	flags.String("node", defaultNodeAddr, "address of the node to submit transactions to")
	flags.Uint64("fee-fixed", 0, "flat fee in satoshis, takes precedence over fee-percent")
	flags.Float64("fee-percent", 0.01, "fee as a fraction of the amount sent")
	flags.String("log-level", defaultLogLevel, "log level: trace|debug|info|warn|error|critical|off")

	v.BindPFlag("wallet.node", flags.Lookup("node"))
	v.BindPFlag("wallet.fee_fixed", flags.Lookup("fee-fixed"))
	v.BindPFlag("wallet.fee_percent", flags.Lookup("fee-percent"))
	v.BindPFlag("wallet.log_level", flags.Lookup("log-level"))
}

// LoadWalletConfig reads a WalletConfig from v.
func LoadWalletConfig(v *viper.Viper) WalletConfig {
	return WalletConfig{
		NodeAddr:   v.GetString("wallet.node"),
		FeeFixed:   v.GetUint64("wallet.fee_fixed"),
		FeePercent: v.GetFloat64("wallet.fee_percent"),
		LogLevel:   v.GetString("wallet.log_level"),
	}
}

// BindMinerFlags registers cmd/miner's CLI flags.
func BindMinerFlags(cmd *cobra.Command, v *viper.Viper) {
	flags := cmd.Flags()
	flags.String("node", defaultNodeAddr, "address of the node to fetch templates from and submit to")
	flags.String("log-level", defaultLogLevel, "log level: trace|debug|info|warn|error|critical|off")

	v.BindPFlag("miner.node", flags.Lookup("node"))
	v.BindPFlag("miner.log_level", flags.Lookup("log-level"))
}

// LoadMinerConfig reads a MinerConfig from v.
func LoadMinerConfig(v *viper.Viper) MinerConfig {
	return MinerConfig{
		NodeAddr: v.GetString("miner.node"),
		LogLevel: v.GetString("miner.log_level"),
	}
}

// NewViper returns a viper instance configured to read a TOML config file
// named "config.toml" from the current directory (if present) and from
// environment variables prefixed CHAINNODE_, e.g. CHAINNODE_NODE_LISTEN.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("CHAINNODE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadConfigFile loads the TOML config file into v if one is present; a
// missing file is not an error, matching CLI > env > file > default
// precedence when no file was ever written.
func ReadConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return err
	}
	return nil
}
