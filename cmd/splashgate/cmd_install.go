package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zonenet/splashgate/internal/config"
	"github.com/zonenet/splashgate/internal/gateway"
	"github.com/zonenet/splashgate/internal/identity"
	"github.com/zonenet/splashgate/internal/logging"
	"github.com/zonenet/splashgate/internal/provision"
	"github.com/zonenet/splashgate/internal/uci"
	"github.com/zonenet/splashgate/internal/wireless"
)

var (
	installContract string
	installSecret   string
	installServer   string
	installSSID     string
	installAdminMAC string
	installAdminIP  string
	installIface    string
	installNoInput  bool
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Provision this device as a captive-portal gateway",
	Long: `Provision this access point as a captive-portal gateway.

Install collects the contract credentials, resolves the router and admin
device identity, deploys the splash page, rewrites the gateway, firewall
and wireless configuration, restarts the portal daemon, schedules the
background jobs, and verifies the result. Configuration files touched
along the way are backed up first; a failing change is rolled back from
its backup.

Missing credentials are prompted for. This command must run as root on
the gateway itself:

  splashgate install
  splashgate install --contract C-1042 --secret ... --server https://portal.example.net --ssid "Guest WiFi"`,
	RunE: runInstall,
}

func init() {
	f := installCmd.Flags()
	f.StringVar(&installContract, "contract", "", "contract identifier")
	f.StringVar(&installSecret, "secret", "", "contract secret key")
	f.StringVar(&installServer, "server", "", "portal backend base URL")
	f.StringVar(&installSSID, "ssid", "", "WiFi network name to broadcast")
	f.StringVar(&installAdminMAC, "admin-mac", "", "admin device MAC, skips autodetection")
	f.StringVar(&installAdminIP, "admin-ip", "", "admin device IP hint for MAC autodetection")
	f.StringVar(&installIface, "wifi-iface", "wlan0", "wireless interface watched after radio reload")
	f.BoolVar(&installNoInput, "no-input", false, "fail on missing values instead of prompting")
}

func runInstall(cmd *cobra.Command, args []string) error {
	lay := layout()

	log, closeLog, err := logging.New(lay.InstallLog(), flagVerbose)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := &config.Provisioning{
		ContractID: installContract,
		SecretKey:  installSecret,
		MainServer: installServer,
		WifiSSID:   installSSID,
		AdminMAC:   installAdminMAC,
	}
	prompts := newPrompter(cmd.InOrStdin(), installNoInput)
	fillCredentials(prompts, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := resolveAdmin(ctx, log, prompts, cfg); err != nil {
		return err
	}

	deps := provision.Deps{
		Store:    uci.NewExecStore(log, lay.UCIConfigDir),
		Service:  gateway.Detect(log),
		Reloader: wireless.NewWatchdog(log, installIface),
	}
	runs, closeState := openRunState(ctx, log, lay.StateDB())
	defer closeState()
	deps.Runs = runs

	report, err := provision.NewInstaller(log, lay, deps).Run(ctx, cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printReport(out, report)
	if report.Passed() {
		fmt.Fprintln(out, "install complete")
	} else {
		// A failed check is a warning at this point: the daemon may still
		// be settling. The operator can re-check without reinstalling.
		fmt.Fprintln(out, "install finished with failed checks; run 'splashgate verify' once the gateway settles")
	}
	return nil
}

func fillCredentials(p *prompter, cfg *config.Provisioning) {
	if cfg.ContractID == "" {
		cfg.ContractID = p.String("Contract ID", "")
	}
	if cfg.SecretKey == "" {
		cfg.SecretKey = p.String("Secret key", "")
	}
	if cfg.MainServer == "" {
		cfg.MainServer = p.String("Portal server URL", "")
	}
	if cfg.WifiSSID == "" {
		cfg.WifiSSID = p.String("WiFi SSID", "")
	}
}

// resolveAdmin fills cfg.AdminMAC before the pipeline starts, so the
// operator can be asked for a manual MAC while there is still nothing to
// undo. An unresolved admin device is allowed; the whitelist phase is
// skipped for it.
func resolveAdmin(ctx context.Context, log *zap.Logger, p *prompter, cfg *config.Provisioning) error {
	if cfg.AdminMAC != "" {
		mac, ok := identity.CanonicalMAC(cfg.AdminMAC)
		if !ok {
			return fmt.Errorf("invalid admin MAC %q", cfg.AdminMAC)
		}
		cfg.AdminMAC = mac
		return nil
	}

	admin := identity.NewResolver(log).ResolveAdmin(ctx, installAdminIP)
	if admin.MAC == "" {
		entered := p.String("Admin device MAC (blank to skip whitelisting)", "")
		if entered != "" {
			manual, err := identity.ManualAdmin(entered)
			if err != nil {
				return err
			}
			admin = manual
		}
	}
	cfg.AdminMAC = admin.MAC
	return nil
}
