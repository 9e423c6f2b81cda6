// Command wallet generates keypairs, reports balances, and sends coins by
// fetching UTXOs from a node over the wire protocol and submitting a
// signed transaction back to it.
package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/educhain/chainnode/internal/config"
	"github.com/educhain/chainnode/pkg/client"
	"github.com/educhain/chainnode/pkg/keys"
	"github.com/educhain/chainnode/pkg/serialization"
	"github.com/educhain/chainnode/pkg/wallet"
)

func main() {
	v := config.NewViper()

	rootCmd := &cobra.Command{
		Use:   "wallet",
		Short: "Generate keys and move coins against a chainnode peer",
	}
	config.BindWalletFlags(rootCmd, v)

	rootCmd.AddCommand(
		newKeygenCmd(),
		newBalanceCmd(v),
		newSendCmd(v),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new keypair and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			priv, err := keys.GeneratePrivateKey()
			if err != nil {
				return err
			}
			fmt.Printf("private: %x\n", priv.Bytes())
			fmt.Printf("public:  %s\n", priv.PublicKey().String())
			return nil
		},
	}
}

func newBalanceCmd(v *viper.Viper) *cobra.Command {
	var keyHex string
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Report the spendable balance for a private key",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, c, err := openWallet(v, keyHex)
			if err != nil {
				return err
			}
			if err := refreshUTXOs(w, c); err != nil {
				return err
			}
			fmt.Printf("balance: %d satoshis\n", w.Balance())
			return nil
		},
	}
	cmd.Flags().StringVar(&keyHex, "key", "", "hex-encoded private key (required)")
	cmd.MarkFlagRequired("key")
	return cmd
}

func newSendCmd(v *viper.Viper) *cobra.Command {
	var keyHex, toHex string
	var amount uint64
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send amount satoshis to a recipient public key",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, c, err := openWallet(v, keyHex)
			if err != nil {
				return err
			}
			if err := refreshUTXOs(w, c); err != nil {
				return err
			}

			toBytes, err := hex.DecodeString(toHex)
			if err != nil {
				return fmt.Errorf("invalid recipient public key: %w", err)
			}
			recipient, err := keys.NewPublicKeyFromBytes(toBytes)
			if err != nil {
				return err
			}

			tx, err := w.CreateTransaction(recipient, amount)
			if err != nil {
				return fmt.Errorf("build transaction: %w", err)
			}
			if err := c.SubmitTransaction(*tx); err != nil {
				return fmt.Errorf("submit transaction: %w", err)
			}

			txHash, err := serialization.HashTransaction(tx)
			if err != nil {
				return err
			}
			fmt.Printf("submitted transaction %s\n", txHash)
			return nil
		},
	}
	cmd.Flags().StringVar(&keyHex, "key", "", "hex-encoded sender private key (required)")
	cmd.Flags().StringVar(&toHex, "to", "", "hex-encoded recipient public key (required)")
	cmd.Flags().Uint64Var(&amount, "amount", 0, "amount in satoshis (required)")
	cmd.MarkFlagRequired("key")
	cmd.MarkFlagRequired("to")
	cmd.MarkFlagRequired("amount")
	return cmd
}

func openWallet(v *viper.Viper, keyHex string) (*wallet.Wallet, *client.Client, error) {
	if err := config.ReadConfigFile(v); err != nil {
		return nil, nil, fmt.Errorf("read config file: %w", err)
	}
	cfg := config.LoadWalletConfig(v)

	keyBytes, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid private key: %w", err)
	}
	priv, err := keys.NewPrivateKeyFromBytes(keyBytes)
	if err != nil {
		return nil, nil, err
	}

	w := wallet.New(wallet.FeeConfig{Fixed: cfg.FeeFixed, Percent: cfg.FeePercent})
	w.Import(priv)

	return w, client.New(cfg.NodeAddr, 0), nil
}

func refreshUTXOs(w *wallet.Wallet, c *client.Client) error {
	var owned []wallet.OwnedUTXO
	for _, pub := range w.Keys() {
		entries, err := c.FetchUTXOs(pub)
		if err != nil {
			return fmt.Errorf("fetch utxos: %w", err)
		}
		for _, e := range entries {
			hash, err := serialization.HashOutput(&e.Output)
			if err != nil {
				return err
			}
			owned = append(owned, wallet.OwnedUTXO{OutputHash: hash, Output: e.Output, Marked: e.Marked})
		}
	}
	w.SetUTXOs(owned)
	return nil
}
