package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zonenet/splashgate/internal/config"
	"github.com/zonenet/splashgate/internal/logging"
	"github.com/zonenet/splashgate/internal/provision"
	"github.com/zonenet/splashgate/internal/uci"
	"github.com/zonenet/splashgate/internal/verify"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Re-check a provisioned gateway and print the report",
	Long: `Re-run the post-install checks against the current system state:
deployed splash assets, committed gateway configuration, and the portal
daemon's listening socket. Nothing is modified. Useful after manual
configuration edits or a reboot.`,
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	lay := layout()

	log, closeLog, err := logging.New(lay.InstallLog(), flagVerbose)
	if err != nil {
		return err
	}
	defer closeLog()

	cfg, err := config.Load(lay.ConfigFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	verifier, err := provision.NewVerifier(log, lay, cfg, uci.NewExecStore(log, lay.UCIConfigDir), nil)
	if err != nil {
		return err
	}
	report := verifier.Run(ctx)
	printReport(cmd.OutOrStdout(), report)
	if !report.Passed() {
		return fmt.Errorf("verification failed: %d check(s)", report.Summary.Fail)
	}
	return nil
}

// printReport renders a verification report for the operator, one line
// per check and a final tally.
func printReport(w io.Writer, r verify.Report) {
	groups := []struct {
		name  string
		items []verify.CheckItem
	}{
		{"assets", r.Checks.Assets},
		{"config", r.Checks.Config},
		{"service", r.Checks.Service},
	}
	for _, g := range groups {
		for _, item := range g.items {
			fmt.Fprintf(w, "%-4s %s/%s: %s\n",
				strings.ToUpper(item.Status), g.name, item.Name, item.Message)
		}
	}
	fmt.Fprintf(w, "%d passed, %d failed, %d warning(s)\n",
		r.Summary.Pass, r.Summary.Fail, r.Summary.Warn)
}
