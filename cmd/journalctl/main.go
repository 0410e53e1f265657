// Command journalctl inspects and dry-run replays a journal file pair
// outside of a running storage engine.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ondbase/kvjournal/utils/log"
)

func main() {
	defer log.Sync()

	root := &cobra.Command{
		Use:   "journalctl",
		Short: "Inspect and replay kvjournal write-ahead log files",
	}
	root.AddCommand(newDumpCmd())
	root.AddCommand(newReplayCmd())

	if err := root.Execute(); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
}
