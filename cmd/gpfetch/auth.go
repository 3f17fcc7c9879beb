package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gpfetch/pkg/auth"
	"gpfetch/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage GoPro cloud credentials",
	Long: `Manage stored GoPro cloud credentials securely.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read-only fallback)

Never share your credentials or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [name]",
	Short: "Store GoPro cloud credentials securely",
	Long: `Store GoPro cloud credentials securely in the system keychain or an
encrypted file.

You will be prompted for:
  - An account name (if not provided)
  - The browser Cookie header for api.gopro.com
  - User Agent (optional, press Enter for default)

The cookie must contain a gp_access_token entry; that token is what
authorizes API requests.`,
	Example: `  # Interactive login
  gpfetch auth login

  # Login with an account name
  gpfetch auth login personal`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [name]",
	Short: "Remove stored credentials",
	Long: `Remove stored GoPro cloud credentials.

If no account name is provided, you will be shown the stored accounts
to choose from.`,
	Example: `  # Interactive logout
  gpfetch auth logout

  # Logout specific account
  gpfetch auth logout personal`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogout,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Long:  `List all stored GoPro cloud accounts with sanitized credential information.`,
	Run:   runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)
}

func runLogin(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	var name string
	if len(args) > 0 {
		name = args[0]
	}

	reader := bufio.NewReader(os.Stdin)

	auth.ShowCookieExtractionGuide()

	fmt.Print("Ready to enter your cookie? (Y/n): ")
	ready, _ := reader.ReadString('\n')
	if strings.ToLower(strings.TrimSpace(ready)) == "n" {
		fmt.Println("\nRun 'gpfetch auth login' when you're ready.")
		return
	}

	fmt.Println()

	if name == "" {
		fmt.Print("Account name (e.g. personal): ")
		input, err := reader.ReadString('\n')
		if err != nil {
			ui.PrintError("Failed to read account name", err.Error())
			os.Exit(1)
		}
		name = strings.TrimSpace(input)
	}

	if name == "" {
		ui.PrintError("Account name is required", "")
		os.Exit(1)
	}

	if existing, _ := manager.Retrieve(name); existing != nil {
		fmt.Printf("\nAccount '%s' already exists. Update credentials? (y/N): ", name)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	fmt.Println("\nEnter your Cookie header value (it will be hidden as you type):")
	fmt.Println()

	var cookieHeader string
	for {
		fmt.Print("Cookie header: ")
		cookieHeader, err = readPassword()
		if err != nil {
			ui.PrintError("Failed to read cookie", err.Error())
			os.Exit(1)
		}
		cookieHeader = strings.TrimSpace(cookieHeader)

		if auth.TokenFromCookieHeader(cookieHeader) == "" {
			fmt.Println("\nThat cookie has no gp_access_token entry.")
			fmt.Println("Copy the complete Cookie header from a request to api.gopro.com.")
			fmt.Print("\nTry again? (Y/n): ")
			retry, _ := reader.ReadString('\n')
			if strings.ToLower(strings.TrimSpace(retry)) == "n" {
				os.Exit(1)
			}
			continue
		}
		break
	}

	fmt.Print("\nUser Agent (press Enter to use default): ")
	userAgent, _ := reader.ReadString('\n')
	userAgent = strings.TrimSpace(userAgent)

	account := &auth.Account{
		Name:         name,
		CookieHeader: cookieHeader,
		UserAgent:    userAgent,
		LastModified: time.Now(),
	}

	fmt.Println("\nStoring credentials securely...")
	if err := manager.Store(account); err != nil {
		ui.PrintError("Failed to store credentials", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess(fmt.Sprintf("Account saved: %s", name))

	fmt.Println("\nYour credentials are stored in:")
	if auth.IsKeyringAvailable() {
		fmt.Println("  - System keychain (primary)")
	}
	fmt.Println("  - Encrypted file (backup)")

	fmt.Println("\nDownload your library with:")
	fmt.Println("  $ gpfetch fetch")
	fmt.Println("\nUse this specific account:")
	fmt.Printf("  $ gpfetch fetch --account %s\n", name)
	fmt.Println("\nNever share your credentials or config files!")
}

func runLogout(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	if len(args) > 0 {
		name := args[0]
		if err := manager.Delete(name); err != nil {
			ui.PrintError("Failed to remove account", err.Error())
			os.Exit(1)
		}
		ui.PrintSuccess("Account removed: " + name)
		return
	}

	accounts, err := manager.List()
	if err != nil || len(accounts) == 0 {
		ui.PrintError("No stored accounts found", "")
		return
	}

	reader := bufio.NewReader(os.Stdin)

	if len(accounts) == 1 {
		account := accounts[0]
		fmt.Printf("Remove account '%s'? (y/N): ", account.Name)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}

		if err := manager.Delete(account.Name); err != nil {
			ui.PrintError("Failed to remove account", err.Error())
			os.Exit(1)
		}
		ui.PrintSuccess("Account removed: " + account.Name)
		return
	}

	fmt.Println("Select account to remove:")
	for i, account := range accounts {
		fmt.Printf("  %d. %s\n", i+1, account.Name)
	}
	fmt.Printf("  0. Cancel\n\n")

	fmt.Print("Choice: ")
	input, _ := reader.ReadString('\n')

	var choice int
	fmt.Sscanf(strings.TrimSpace(input), "%d", &choice)

	if choice < 1 || choice > len(accounts) {
		return
	}

	account := accounts[choice-1]
	if err := manager.Delete(account.Name); err != nil {
		ui.PrintError("Failed to remove account", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Account removed: " + account.Name)
}

func runList(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	accounts, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list accounts", err.Error())
		os.Exit(1)
	}

	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "Use 'gpfetch auth login' to add an account")
		return
	}

	ui.PrintHighlight("Stored Accounts")
	fmt.Println()

	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Printf("%d. Name: %s\n", i+1, sanitized.Name)
		fmt.Printf("   Cookie: %s\n", sanitized.CookieHeader)
		if sanitized.AccessToken != "" {
			fmt.Printf("   Access Token: %s\n", sanitized.AccessToken)
		}
		if sanitized.UserAgent != "" {
			fmt.Printf("   User Agent: %s\n", sanitized.UserAgent)
		}
		fmt.Printf("   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		fmt.Println()
	}
}

// readPassword reads a secret from stdin without echoing
func readPassword() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		secret, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return string(secret), nil
		}
	}

	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
