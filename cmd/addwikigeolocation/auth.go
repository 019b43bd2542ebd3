package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wilfredor/addwikigeolocation/pkg/auth"
	"github.com/wilfredor/addwikigeolocation/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage bot account credentials",
	Long: `Manage stored Wikimedia Commons bot credentials.

Credentials are stored in the system keychain when available. For
headless environments, set COMMONS_USER and COMMONS_PASS instead.

Use a bot password (Special:BotPasswords), never your main account
password.`,
}

// authLoginCmd represents the auth login command
var authLoginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store bot credentials in the system keychain",
	Example: `  # Interactive login
  addwikigeolocation auth login

  # Login with username
  addwikigeolocation auth login "MyBot@geotag"`,
	Args: cobra.MaximumNArgs(1),
	Run:  runAuthLogin,
}

// authLogoutCmd represents the auth logout command
var authLogoutCmd = &cobra.Command{
	Use:   "logout <username>",
	Short: "Remove stored credentials",
	Args:  cobra.ExactArgs(1),
	Run:   runAuthLogout,
}

// authStatusCmd represents the auth status command
var authStatusCmd = &cobra.Command{
	Use:   "status [username]",
	Short: "Show where credentials would be resolved from",
	Args:  cobra.MaximumNArgs(1),
	Run:   runAuthStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
}

func runAuthLogin(cmd *cobra.Command, args []string) {
	store, err := auth.NewKeyringStore()
	if err != nil {
		ui.PrintError("System keychain unavailable", err.Error())
		fmt.Println("\nFor headless environments, set environment variables instead:")
		fmt.Println("  export COMMONS_USER=MyBot@geotag")
		fmt.Println("  export COMMONS_PASS=botpassword")
		os.Exit(1)
	}

	var username string
	if len(args) > 0 {
		username = args[0]
	}
	if username == "" {
		fmt.Print("Bot username (e.g. MyBot@geotag): ")
		reader := bufio.NewReader(os.Stdin)
		input, err := reader.ReadString('\n')
		if err != nil {
			ui.PrintError("Failed to read username", err.Error())
			os.Exit(1)
		}
		username = strings.TrimSpace(input)
	}
	if username == "" {
		ui.PrintError("Username is required")
		os.Exit(1)
	}

	if store.Exists(username) {
		ui.PrintWarning("Replacing stored credentials for", username)
	}

	password, err := auth.PromptPassword(username)
	if err != nil {
		ui.PrintError("Failed to read password", err.Error())
		os.Exit(1)
	}
	if password == "" {
		ui.PrintError("Password is required")
		os.Exit(1)
	}

	if err := store.Save(&auth.Credentials{Username: username, Password: password}); err != nil {
		ui.PrintError("Failed to store credentials", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Credentials stored for " + username)
}

func runAuthLogout(cmd *cobra.Command, args []string) {
	store, err := auth.NewKeyringStore()
	if err != nil {
		ui.PrintError("System keychain unavailable", err.Error())
		os.Exit(1)
	}

	if err := store.Delete(args[0]); err != nil {
		ui.PrintError("Failed to remove credentials", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Credentials removed for " + args[0])
}

func runAuthStatus(cmd *cobra.Command, args []string) {
	var username string
	if len(args) > 0 {
		username = args[0]
	}

	if creds, err := auth.NewEnvironmentStore().Retrieve(username); err == nil {
		ui.PrintInfo("Environment", fmt.Sprintf("%s / %s", creds.Username, auth.MaskPassword(creds.Password)))
	} else {
		ui.PrintInfo("Environment", "not set")
	}

	store, err := auth.NewKeyringStore()
	if err != nil {
		ui.PrintInfo("Keychain", "unavailable")
		return
	}
	if username == "" {
		ui.PrintInfo("Keychain", "available (give a username to check for stored credentials)")
		return
	}
	if creds, err := store.Retrieve(username); err == nil {
		ui.PrintInfo("Keychain", fmt.Sprintf("%s / %s", creds.Username, auth.MaskPassword(creds.Password)))
	} else {
		ui.PrintInfo("Keychain", "no credentials for "+username)
	}
}
