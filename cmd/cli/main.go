package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const defaultBaseURL = "http://localhost:8080"

var (
	baseURL   string
	tokenPath string
	timeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "tvcompare",
	Short:         "Browse and administer the TV comparison catalog",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseURL, "api", envOr("TVCOMPARE_API", defaultBaseURL), "API base URL")
	rootCmd.PersistentFlags().StringVar(&tokenPath, "token", defaultTokenPath(), "token file path")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 15*time.Second, "request timeout")

	authCmd.AddCommand(loginCmd, logoutCmd, passwdCmd)
	itemsCmd.AddCommand(itemsListCmd, itemsShowCmd, itemsDeleteCmd)
	fieldsCmd.AddCommand(fieldsListCmd, fieldsDeleteCmd)
	cloudCmd.AddCommand(cloudStatusCmd, cloudConnectCmd, cloudTestCmd, cloudPushCmd, cloudDisconnectCmd, cloudSetupSQLCmd)

	rootCmd.AddCommand(authCmd, itemsCmd, fieldsCmd, compareCmd, summaryCmd, cloudCmd, watchCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
