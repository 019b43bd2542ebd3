package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wilfredor/addwikigeolocation/pkg/checkpoint"
	"github.com/wilfredor/addwikigeolocation/pkg/config"
	"github.com/wilfredor/addwikigeolocation/pkg/logger"
	"github.com/wilfredor/addwikigeolocation/pkg/ui"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the current checkpoint",
	Long: `Show the queues and scan position stored in the checkpoint file,
without touching the network.`,
	Run: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVar(&stateFile, "state-file", "", "checkpoint file path (default: gps_scan.json)")
}

func runStatus(cmd *cobra.Command, args []string) {
	flags := make(map[string]interface{})
	if stateFile != "" {
		flags["state-file"] = stateFile
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	store := checkpoint.NewStore(cfg.Processing.StateFile, logger.NewNop())

	if !store.Exists() {
		ui.PrintInfo("Checkpoint", cfg.Processing.StateFile+" (none)")
		return
	}

	state, err := store.Load()
	if err != nil {
		ui.PrintError("Failed to load checkpoint", err.Error())
		os.Exit(1)
	}

	ui.PrintInfo("Checkpoint", cfg.Processing.StateFile)
	ui.PrintInfo("Queued for EXIF edit", fmt.Sprintf("%d", len(state.NeedsExif)))
	ui.PrintInfo("Flagged for location template", fmt.Sprintf("%d", len(state.NeedsTemplate)))
	if state.Continue != nil {
		ui.PrintInfo("Scan position", "mid-scan, resumable")
	} else {
		ui.PrintInfo("Scan position", "complete")
	}

	for _, title := range state.NeedsTemplate {
		fmt.Println(ui.Dim("  needs {{Location}}: " + title))
	}
}
