package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wilfredor/addwikigeolocation/pkg/auth"
	"github.com/wilfredor/addwikigeolocation/pkg/checkpoint"
	"github.com/wilfredor/addwikigeolocation/pkg/commons"
	"github.com/wilfredor/addwikigeolocation/pkg/config"
	"github.com/wilfredor/addwikigeolocation/pkg/geotag"
	"github.com/wilfredor/addwikigeolocation/pkg/logger"
	"github.com/wilfredor/addwikigeolocation/pkg/processor"
	"github.com/wilfredor/addwikigeolocation/pkg/ratelimit"
	"github.com/wilfredor/addwikigeolocation/pkg/scanner"
	"github.com/wilfredor/addwikigeolocation/pkg/storage"
	"github.com/wilfredor/addwikigeolocation/pkg/ui"
)

var (
	// Scope flags
	category string
	fileList string
	maxDepth int

	// Scan flags
	authorFilter string
	forceRescan  bool

	// Processing flags
	stateFile      string
	maxEdits       int
	baseSleep      time.Duration
	maxEditsPerMin int
	upload         bool
	downloadDir    string
	dryRun         bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [username]",
	Short: "Scan a scope and apply queued geotag edits",
	Long: `Scan an upload scope for JPEG files that have page coordinates but no
GPS EXIF, then download each queued file, write the coordinates into
its EXIF, and optionally re-upload it.

The scope is one of:
  - a username (positional argument): that user's upload log
  - --category: a category subtree, walked down to --max-depth
  - --file-list: an explicit list of file titles, one per line

Progress is checkpointed to the state file after every listing page and
after every edit, so an interrupted run resumes where it stopped.`,
	Example: `  # Scan a user's uploads and write EXIF locally (no re-upload)
  addwikigeolocation run ExampleUser

  # Full bot run: scan, edit, and re-upload at most 19 files
  addwikigeolocation run ExampleUser --upload --max-edits 19

  # Work through a category subtree
  addwikigeolocation run --category "Churches in Norway" --max-depth 2

  # Preview what would be edited
  addwikigeolocation run ExampleUser --dry-run`,
	Args: cobra.MaximumNArgs(1),
	Run:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	addScopeFlags(runCmd)

	runCmd.Flags().IntVar(&maxEdits, "max-edits", 19, "maximum successful edits per run (0 = unlimited)")
	runCmd.Flags().DurationVar(&baseSleep, "sleep", 10*time.Second, "base pause between edits (randomized 0.5x-1.5x)")
	runCmd.Flags().IntVar(&maxEditsPerMin, "max-edits-per-min", 30, "sliding-window edit rate limit")
	runCmd.Flags().BoolVar(&upload, "upload", false, "re-upload modified files to Commons")
	runCmd.Flags().StringVar(&downloadDir, "download-dir", "", "directory for downloaded files (default: temp dir)")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "preview edits without downloading or uploading")
}

// addScopeFlags registers the flags shared by run and scan
func addScopeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&category, "category", "", "scan a category subtree instead of a user's uploads")
	cmd.Flags().StringVar(&fileList, "file-list", "", "scan an explicit list of file titles, one per line")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 1, "maximum category recursion depth")
	cmd.Flags().StringVar(&authorFilter, "author-filter", "", "keep only files whose author contains this string")
	cmd.Flags().StringVar(&stateFile, "state-file", "", "checkpoint file path (default: gps_scan.json)")
	cmd.Flags().BoolVar(&forceRescan, "force-rescan", false, "discard the existing checkpoint and scan from the start")
}

func runRun(cmd *cobra.Command, args []string) {
	cfg, log := setup(cmd, args)

	client := newClient(cfg, log)
	defer client.Close()

	if !cfg.Processing.DryRun && cfg.Processing.Upload {
		login(client, cfg, log)
	}

	store := checkpoint.NewStore(cfg.Processing.StateFile, log)
	state := loadState(store)

	scan(client, store, state, cfg, args, log)

	if len(state.NeedsExif) == 0 {
		ui.PrintInfo("Queue", "empty, nothing to edit")
		return
	}

	var action processor.Action
	if cfg.Processing.DryRun {
		action = geotag.NewDryRunAction(log)
	} else {
		files, err := storage.NewManager(cfg.Processing.DownloadDir)
		if err != nil {
			ui.PrintError("Failed to prepare download directory", err.Error())
			os.Exit(1)
		}
		defer files.Close()
		action = geotag.NewAction(client, files, cfg.Processing.Upload, log)
	}

	pacer := ratelimit.NewPacer(cfg.RateLimit.MaxEditsPerMinute, cfg.RateLimit.BaseSleep)
	proc := processor.New(action, store, pacer, cfg.Processing.MaxEdits, log)

	report, err := proc.Run(state)
	printReport(report)
	if err != nil {
		ui.PrintError("Processing stopped", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Done")
}

// setup loads configuration and initializes logging
func setup(cmd *cobra.Command, args []string) (*config.Config, logger.Logger) {
	flags := make(map[string]interface{})
	if stateFile != "" {
		flags["state-file"] = stateFile
	}
	if downloadDir != "" {
		flags["download-dir"] = downloadDir
	}
	if cmd.Flags().Changed("max-edits") {
		flags["max-edits"] = maxEdits
	}
	if cmd.Flags().Changed("upload") {
		flags["upload"] = upload
	}
	if cmd.Flags().Changed("dry-run") {
		flags["dry-run"] = dryRun
	}
	if cmd.Flags().Changed("sleep") {
		flags["sleep"] = baseSleep
	}
	if cmd.Flags().Changed("max-edits-per-min") {
		flags["max-edits-per-min"] = maxEditsPerMin
	}
	if authorFilter != "" {
		flags["author-filter"] = authorFilter
	}
	if cmd.Flags().Changed("max-depth") {
		flags["max-depth"] = maxDepth
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logger", err.Error())
		os.Exit(1)
	}
	log := logger.GetLogger()

	if len(args) == 0 && category == "" && fileList == "" {
		ui.PrintError("No scope given", "provide a username, --category, or --file-list")
		os.Exit(1)
	}

	return cfg, log
}

func newClient(cfg *config.Config, log logger.Logger) *commons.Client {
	client, err := commons.NewClient(cfg.Commons, log)
	if err != nil {
		ui.PrintError("Failed to create API client", err.Error())
		os.Exit(1)
	}
	return client
}

// login resolves credentials and authenticates the client
func login(client *commons.Client, cfg *config.Config, log logger.Logger) {
	username := cfg.Commons.Username
	password := cfg.Commons.Password

	if password == "" {
		creds, err := auth.NewResolver().Resolve(username)
		if err == nil {
			username = creds.Username
			password = creds.Password
		}
	}
	if username == "" {
		ui.PrintError("No bot account configured", "set COMMONS_USER or run 'addwikigeolocation auth login'")
		os.Exit(1)
	}
	if password == "" {
		var err error
		password, err = auth.PromptPassword(username)
		if err != nil {
			ui.PrintError("Failed to read password", err.Error())
			os.Exit(1)
		}
	}

	if err := client.Login(username, password); err != nil {
		log.WithError(err).Error("login failed")
		ui.PrintError("Login failed", err.Error())
		os.Exit(1)
	}
	ui.PrintInfo("Logged in as", username)
}

// loadState loads the checkpoint, honoring --force-rescan
func loadState(store *checkpoint.Store) *checkpoint.ScanState {
	if forceRescan {
		if err := store.Delete(); err != nil {
			ui.PrintError("Failed to remove old checkpoint", err.Error())
			os.Exit(1)
		}
		return checkpoint.NewScanState()
	}

	state, err := store.Load()
	if err != nil {
		ui.PrintError("Failed to load checkpoint", err.Error())
		os.Exit(1)
	}
	return state
}

// scan crawls the selected scope into the state's queues
func scan(client scanner.Gateway, store *checkpoint.Store, state *checkpoint.ScanState, cfg *config.Config, args []string, log logger.Logger) {
	sc := scanner.New(client, store, scanner.Options{
		AuthorFilter: cfg.Scan.AuthorFilter,
		BatchSize:    cfg.Scan.BatchSize,
		PagePause:    cfg.Scan.PagePause,
	}, log)

	var err error
	switch {
	case fileList != "":
		var titles []string
		titles, err = readTitleList(fileList)
		if err == nil {
			ui.PrintInfo("Scope", fmt.Sprintf("%d listed titles", len(titles)))
			err = sc.ScanTitles(titles, state)
		}
	case category != "":
		ui.PrintInfo("Scope", "Category:"+strings.TrimPrefix(category, "Category:"))
		err = sc.ScanCategory(strings.TrimPrefix(category, "Category:"), cfg.Scan.MaxDepth, state)
	default:
		ui.PrintInfo("Scope", "uploads by "+args[0])
		err = sc.ScanUserUploads(strings.TrimSpace(args[0]), state)
	}
	if err != nil {
		ui.PrintError("Scan failed", err.Error())
		os.Exit(1)
	}

	ui.PrintInfo("Queued for EXIF edit", fmt.Sprintf("%d", len(state.NeedsExif)))
	ui.PrintInfo("Flagged for location template", fmt.Sprintf("%d", len(state.NeedsTemplate)))
}

// readTitleList reads file titles from a text file, one per line.
// Lines may be CSV rows; only the first column is the title, so
// exports that carry extra columns work unmodified.
func readTitleList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file list: %w", err)
	}

	var titles []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if i := strings.IndexByte(line, ','); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line != "" {
			titles = append(titles, line)
		}
	}
	return titles, nil
}

func printReport(report processor.Report) {
	ui.PrintInfo("Updated", fmt.Sprintf("%d", report.Updated))
	ui.PrintInfo("Skipped (already had GPS EXIF)", fmt.Sprintf("%d", report.SkippedHasGPS))
	ui.PrintInfo("Skipped (no usable coordinates)", fmt.Sprintf("%d", report.SkippedNoGPS))
	if report.Errors > 0 {
		ui.PrintWarning("Errors", report.Errors)
	}
	ui.PrintInfo("Remaining in queue", fmt.Sprintf("%d", report.Remaining))
}
