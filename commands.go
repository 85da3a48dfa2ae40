package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	flagDays  int
	flagTop   int
	flagForce bool
	flagAddr  string
)

var rootCmd = &cobra.Command{
	Use:           "dentalytics",
	Short:         "View and engagement reports for the dental-education YouTube channels",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var authCmd = &cobra.Command{
	Use:   "auth <channel>",
	Short: "Authorize (or repair) a channel session interactively",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := app.authManager()
		if err != nil {
			return err
		}
		sess, err := mgr.Authorize(cmd.Context(), args[0], stdinAuthorizer)
		if err != nil {
			return err
		}
		fmt.Printf("authorized %s: %s (%s)\n", sess.Channel, sess.Title, sess.ChannelID)
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report <channel>",
	Short: "Fetch and print one channel's report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rep, err := app.BuildReport(cmd.Context(), args[0], flagDays, flagTop, flagForce)
		if err != nil {
			return err
		}
		renderReport(os.Stdout, rep)
		return nil
	},
}

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Fetch and print reports for every registered channel",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ov, err := app.BuildOverview(cmd.Context(), flagDays, flagTop, flagForce)
		if err != nil {
			return err
		}
		renderOverview(os.Stdout, ov)
		return nil
	},
}

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "List the registered channels",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, ch := range app.registry.Channels {
			fmt.Printf("%-16s %-28s %s\n", ch.Key, ch.Name, ch.ID)
		}
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard JSON API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveAPI(cmd.Context(), app, flagAddr)
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete snapshots older than the retention window",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := app.store.Prune(time.Now().Add(-app.cfg.SnapshotRetention))
		if err != nil {
			return err
		}
		fmt.Printf("pruned %d snapshots\n", n)
		return nil
	},
}

func init() {
	reportCmd.Flags().IntVar(&flagDays, "days", 28, "report period length in days, ending yesterday")
	reportCmd.Flags().IntVar(&flagTop, "top", 10, "number of top videos to include")
	reportCmd.Flags().BoolVar(&flagForce, "force", false, "skip the snapshot store and hit the API")
	overviewCmd.Flags().IntVar(&flagDays, "days", 28, "report period length in days, ending yesterday")
	overviewCmd.Flags().IntVar(&flagTop, "top", 10, "number of top videos to include")
	overviewCmd.Flags().BoolVar(&flagForce, "force", false, "skip the snapshot store and hit the API")
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (default from LISTEN_ADDR or :8080)")

	rootCmd.AddCommand(authCmd, reportCmd, overviewCmd, channelsCmd, serveCmd, pruneCmd)
}

// stdinAuthorizer is the installed-app interaction: show the URL, read the
// code the user pastes back.
func stdinAuthorizer(authURL string) (string, error) {
	fmt.Printf("Open this URL in a browser, approve access, then paste the code here:\n\n%s\n\ncode: ", authURL)
	reader := bufio.NewReader(os.Stdin)
	code, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading authorization code: %w", err)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return "", fmt.Errorf("empty authorization code")
	}
	return code, nil
}
