package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"

	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/config"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/domain/model"
)

type checkpointFlags struct {
	chain string
	scope string
}

func (f *checkpointFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.chain, "chain", "", "wormhole chain id or name")
	cmd.Flags().StringVar(&f.scope, "scope", string(model.ScopeMessages), "watcher scope (vaa or ntt)")
	_ = cmd.MarkFlagRequired("chain")
}

func (f *checkpointFlags) parse() (vaa.ChainID, model.Scope, error) {
	chain, err := model.ParseChainID(f.chain)
	if err != nil {
		return vaa.ChainIDUnset, "", err
	}
	switch sc := model.Scope(f.scope); sc {
	case model.ScopeMessages, model.ScopeNTT:
		return chain, sc, nil
	default:
		return vaa.ChainIDUnset, "", fmt.Errorf("unknown scope %q", f.scope)
	}
}

func newCheckpointCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect or rewrite per-chain checkpoints",
	}
	cmd.AddCommand(newCheckpointGetCmd(), newCheckpointSetCmd())
	return cmd
}

func newCheckpointGetCmd() *cobra.Command {
	var flags checkpointFlags
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print the checkpoint of a chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			chain, scope, err := flags.parse()
			if err != nil {
				return err
			}
			cfg, logger, err := loadRuntime()
			if err != nil {
				return err
			}
			st, err := openStorage(cmd.Context(), cfg, false, logger)
			if err != nil {
				return err
			}
			defer st.Close()
			return printCheckpoint(cmd.Context(), cmd.OutOrStdout(), st.scope(scope), chain)
		},
	}
	flags.register(cmd)
	return cmd
}

func newCheckpointSetCmd() *cobra.Command {
	var (
		flags     checkpointFlags
		block     uint64
		timestamp string
		remove    bool
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Overwrite or delete the checkpoint of a chain for a backfill",
		Long: "Overwrite the checkpoint so the next run resumes after --block, or delete it with --delete " +
			"so the next run starts from the chain's initial_block. The watcher must be stopped.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			chain, scope, err := flags.parse()
			if err != nil {
				return err
			}
			if !remove && !cmd.Flags().Changed("block") {
				return fmt.Errorf("--block is required unless --delete is set")
			}
			cfg, logger, err := loadRuntime()
			if err != nil {
				return err
			}
			st, err := openStorage(cmd.Context(), cfg, false, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			admin := st.scope(scope)
			if remove {
				if err := admin.DeleteCheckpoint(cmd.Context(), chain); err != nil {
					return err
				}
				logger.Info("checkpoint deleted", "chain", chain.String(), "scope", scope)
				return nil
			}

			key, err := resolveBlockKey(cmd.Context(), cfg, chain, block, timestamp, logger)
			if err != nil {
				return err
			}
			if err := admin.SetCheckpoint(cmd.Context(), chain, key); err != nil {
				return err
			}
			logger.Info("checkpoint set", "chain", chain.String(), "scope", scope, "block_key", key.String())
			return printCheckpoint(cmd.Context(), cmd.OutOrStdout(), admin, chain)
		},
	}
	flags.register(cmd)
	cmd.Flags().Uint64Var(&block, "block", 0, "last block considered stored; the watcher resumes at block+1")
	cmd.Flags().StringVar(&timestamp, "timestamp", "", "RFC3339 block time; looked up over RPC when empty")
	cmd.Flags().BoolVar(&remove, "delete", false, "delete the checkpoint instead of setting it")
	return cmd
}

// resolveBlockKey builds the key for block, fetching its time from the
// chain's RPC when no timestamp is given.
func resolveBlockKey(ctx context.Context, cfg *config.Config, chain vaa.ChainID, block uint64, timestamp string, logger *slog.Logger) (model.BlockKey, error) {
	if timestamp != "" {
		ts, err := time.Parse(time.RFC3339, timestamp)
		if err != nil {
			return model.BlockKey{}, fmt.Errorf("parse timestamp: %w", err)
		}
		return model.NewBlockKey(block, ts), nil
	}

	for _, ch := range cfg.Chains {
		if ch.ChainID != chain {
			continue
		}
		adapter, err := dialAdapter(ctx, ch.RPCURL, adapterConfig(ch), logger)
		if err != nil {
			return model.BlockKey{}, err
		}
		ts, err := adapter.BlockTime(ctx, block)
		if err != nil {
			return model.BlockKey{}, fmt.Errorf("lookup block %d time: %w", block, err)
		}
		return model.NewBlockKey(block, ts), nil
	}
	return model.BlockKey{}, fmt.Errorf("chain %s is not configured; pass --timestamp", chain)
}

type checkpointReader interface {
	GetCheckpoint(ctx context.Context, chain vaa.ChainID) (*model.Checkpoint, error)
}

func printCheckpoint(ctx context.Context, w io.Writer, st checkpointReader, chain vaa.ChainID) error {
	cp, err := st.GetCheckpoint(ctx, chain)
	if err != nil {
		return err
	}
	if cp == nil {
		return fmt.Errorf("no checkpoint for chain %s", chain)
	}
	out := struct {
		Chain        uint16      `json:"chain"`
		ChainName    string      `json:"chain_name"`
		Scope        model.Scope `json:"scope"`
		LastBlockKey string      `json:"last_block_key"`
		ResumeBlock  uint64      `json:"resume_block"`
		UpdatedAt    time.Time   `json:"updated_at"`
	}{
		Chain:        uint16(cp.Chain),
		ChainName:    cp.Chain.String(),
		Scope:        cp.Scope,
		LastBlockKey: cp.LastBlockKey.String(),
		ResumeBlock:  cp.NextBlock(),
		UpdatedAt:    cp.UpdatedAt,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
