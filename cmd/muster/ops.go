package main

import (
	"fmt"

	"github.com/musterhq/muster/pkg/config"
	"github.com/musterhq/muster/pkg/log"
	"github.com/musterhq/muster/pkg/store"
	"github.com/musterhq/muster/pkg/sweep"
	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one retention sweep cycle and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		log.Init(log.Config{Level: log.Level(cfg.Log.Level), JSONOutput: cfg.Log.JSON})

		st, err := store.NewBoltStore(cfg.DataDir, cfg.Record.TableName)
		if err != nil {
			return fmt.Errorf("failed to open record store: %w", err)
		}
		defer st.Close()

		blobs, _, err := openBlobStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		s := sweep.NewSweeper(st, blobs,
			[]string{cfg.Blob.OriginalsBucket, cfg.Blob.RedactedBucket}, nil, 0)
		return s.RunOnce(cmd.Context())
	},
}

var processCmd = &cobra.Command{
	Use:   "process <document-id>",
	Short: "Run the pipeline for one document and exit",
	Long: `Run a single execution for an existing document record. Useful for
reprocessing a document whose execution failed partway; completed
steps are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		log.Init(log.Config{Level: log.Level(cfg.Log.Level), JSONOutput: cfg.Log.JSON})

		st, err := store.NewBoltStore(cfg.DataDir, cfg.Record.TableName)
		if err != nil {
			return fmt.Errorf("failed to open record store: %w", err)
		}
		defer st.Close()

		blobs, _, err := openBlobStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		orch, err := buildOrchestrator(cmd.Context(), cfg, st, blobs, nil)
		if err != nil {
			return err
		}
		return orch.Execute(cmd.Context(), args[0])
	},
}
