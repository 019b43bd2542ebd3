package main

import (
	"github.com/spf13/cobra"

	"github.com/wilfredor/addwikigeolocation/pkg/checkpoint"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan [username]",
	Short: "Scan a scope and build the work queue without editing",
	Long: `Scan an upload scope and classify every new JPEG, growing the
checkpoint's work queues, but apply no edits. Useful for building a
queue ahead of time or inspecting what a run would touch.

The scope flags are the same as for 'run'.`,
	Example: `  # Queue a user's uploads for a later run
  addwikigeolocation scan ExampleUser

  # Queue a category subtree
  addwikigeolocation scan --category "Churches in Norway" --max-depth 2`,
	Args: cobra.MaximumNArgs(1),
	Run:  runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	addScopeFlags(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) {
	cfg, log := setup(cmd, args)

	client := newClient(cfg, log)
	defer client.Close()

	store := checkpoint.NewStore(cfg.Processing.StateFile, log)
	state := loadState(store)

	scan(client, store, state, cfg, args, log)
}
