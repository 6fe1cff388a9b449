package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"threadscraper/pkg/auth"
	"threadscraper/pkg/ui"
)

var (
	tokenExpiresIn time.Duration
	loginUserAgent string
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage API access tokens",
	Long: `Manage stored API access tokens.

Fetching works without a token, but authenticated requests go to the OAuth
host and are throttled less. Tokens are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables THREADSCRAPER_ACCESS_TOKEN / THREADSCRAPER_USER_AGENT (read-only)`,
}

var loginCmd = &cobra.Command{
	Use:   "login [account]",
	Short: "Store an access token",
	Example: `  # Interactive login, prints how to obtain a token first
  threadscraper auth login

  # Named account with a known expiry
  threadscraper auth login research --expires-in 1h`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout <account>",
	Short: "Remove a stored token",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogout,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored accounts with masked tokens",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)

	loginCmd.Flags().DurationVar(&tokenExpiresIn, "expires-in", 0, "token lifetime, e.g. 1h (0 means unknown)")
	loginCmd.Flags().StringVar(&loginUserAgent, "user-agent", "", "User-Agent registered with the app")
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	out := cmd.OutOrStdout()
	reader := bufio.NewReader(os.Stdin)

	name := "default"
	if len(args) > 0 {
		name = strings.TrimSpace(args[0])
	}

	if existing, _ := manager.Retrieve(name); existing != nil {
		fmt.Fprintf(out, "Account '%s' already exists. Replace its token? (y/N): ", name)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return nil
		}
	}

	auth.WriteTokenGuide(out)
	fmt.Fprint(out, "\nAccess token (hidden): ")
	token, err := readSecret(reader)
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}
	if token == "" {
		return fmt.Errorf("%w: empty token", auth.ErrInvalidCredentials)
	}

	userAgent := loginUserAgent
	if userAgent == "" {
		fmt.Fprint(out, "User agent (Enter to keep the configured one): ")
		input, _ := reader.ReadString('\n')
		userAgent = strings.TrimSpace(input)
	}

	account := &auth.Account{
		Name:        name,
		AccessToken: token,
		UserAgent:   userAgent,
	}
	if tokenExpiresIn > 0 {
		account.ExpiresAt = time.Now().Add(tokenExpiresIn)
	}

	if err := manager.Store(account); err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Account saved: %s (%s)", name, auth.SanitizeAccount(account).AccessToken))
	if len(args) > 0 {
		ui.PrintInfo("Use it with", "threadscraper run --account "+name)
	}
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	if err := manager.Delete(args[0]); err != nil {
		return err
	}
	ui.PrintSuccess("Account removed: " + args[0])
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	accounts, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "use 'threadscraper auth login' to add one")
		return nil
	}

	console := ui.Default()
	console.Block(console.Accounts(accounts, now()))
	return nil
}

// readSecret reads a line without echo when stdin is a terminal
func readSecret(reader *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
