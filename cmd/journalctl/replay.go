package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ondbase/kvjournal/journal"
	"github.com/ondbase/kvjournal/journal/faketxn"
	"github.com/ondbase/kvjournal/journal/pagestore"
)

func newReplayCmd() *cobra.Command {
	var filename, logDir string
	var pageSize int
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a journal file pair against in-memory fake collaborators",
		Long: "Replay runs the same two-phase recovery a real environment would " +
			"run on startup, but against in-memory fakes instead of a real page " +
			"store and transaction manager, for inspecting what a crash recovery " +
			"would do. With -n the journal files are left untouched afterward.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := journal.Config{Filename: filename, LogDir: logDir, PageSize: pageSize, EnableTransactions: true}
			j, err := journal.Open(cfg)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer j.Close(dryRun)

			store := pagestore.New(pageSize)
			txnMgr := faketxn.NewManager()
			dbStore := faketxn.NewStore()
			env := &faketxn.Environment{}

			var recoverErr error
			if dryRun {
				recoverErr = j.RecoverDryRun(txnMgr, dbStore, store, env)
			} else {
				recoverErr = j.Recover(txnMgr, dbStore, store, env)
			}
			if recoverErr != nil {
				return fmt.Errorf("recover: %w", recoverErr)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "recovered: %d pages touched, %d committed-transaction flushes\n",
				store.PageCount(), env.Flushed)
			return nil
		},
	}

	cmd.Flags().StringVarP(&filename, "filename", "f", "", "database filename the journal was opened against")
	cmd.Flags().StringVar(&logDir, "log-dir", "", "directory holding the journal files, if not alongside filename")
	cmd.Flags().IntVar(&pageSize, "page-size", 16*1024, "page store page size in bytes")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "do not clear the journal files afterward")
	cmd.MarkFlagRequired("filename")

	return cmd
}
