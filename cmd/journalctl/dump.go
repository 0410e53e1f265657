package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ondbase/kvjournal/journal"
)

func newDumpCmd() *cobra.Command {
	var filename, logDir string
	var pageSize int

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print every entry in a journal file pair, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := journal.Config{Filename: filename, LogDir: logDir, PageSize: pageSize}
			j, err := journal.Open(cfg)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer j.Close(true)

			count := 0
			err = j.Walk(func(e journal.EntryInfo) error {
				fmt.Fprintf(cmd.OutOrStdout(), "file=%d lsn=%d txn=%d type=%-9s dbname=%d followup=%d\n",
					e.FileIndex, e.LSN, e.TxnID, e.Type, e.DBName, e.FollowupSize)
				count++
				return nil
			})
			if err != nil {
				return fmt.Errorf("walk journal: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d entries\n", count)
			return nil
		},
	}

	cmd.Flags().StringVarP(&filename, "filename", "f", "", "database filename the journal was opened against")
	cmd.Flags().StringVar(&logDir, "log-dir", "", "directory holding the journal files, if not alongside filename")
	cmd.Flags().IntVar(&pageSize, "page-size", 16*1024, "page store page size in bytes")
	cmd.MarkFlagRequired("filename")

	return cmd
}
