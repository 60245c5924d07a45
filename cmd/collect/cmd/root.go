package cmd

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/stormspotter-go/stormspotter/internal/arm"
	"github.com/stormspotter-go/stormspotter/internal/cloudprofile"
	"github.com/stormspotter-go/stormspotter/internal/collector"
	"github.com/stormspotter-go/stormspotter/internal/credential"
	"github.com/stormspotter-go/stormspotter/internal/signal"
	"github.com/stormspotter-go/stormspotter/internal/telemetry"
	"github.com/stormspotter-go/stormspotter/internal/utils"
	"github.com/stormspotter-go/stormspotter/internal/version"
)

// CollectRootCmdFlags are the flags shared by every "collect" subcommand,
// mirroring the original collector's {azcli,spn} mode split.
type CollectRootCmdFlags struct {
	Cloud                string
	Config               string
	Mode                 string
	Backfill             bool
	IncludeSubs          []string
	ExcludeSubs          []string
	SSLCert              string
	OutputRoot           string
	MetricsListenAddress string
	LogVerbosity         int
}

func (f *CollectRootCmdFlags) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Cloud, "cloud", "PUBLIC", "Azure cloud: PUBLIC, GERMAN, CHINA, or USGOV")
	cmd.Flags().StringVar(&f.Config, "config", "", "Path to a custom cloud profile INI file, overriding --cloud")
	cmd.Flags().StringVar(&f.Mode, "mode", "BOTH", "Enumeration mode: AAD, ARM, or BOTH")
	cmd.Flags().BoolVar(&f.Backfill, "backfill", false, "Back-fill AAD objects referenced only by RBAC role assignments (ARM-only mode)")
	cmd.Flags().StringSliceVar(&f.IncludeSubs, "include-subs", nil, "Subscription IDs to include (default: all visible subscriptions)")
	cmd.Flags().StringSliceVar(&f.ExcludeSubs, "exclude-subs", nil, "Subscription IDs to exclude")
	cmd.Flags().StringVar(&f.SSLCert, "ssl-cert", "", "Path to a PEM bundle of additional trusted CA certificates")
	cmd.Flags().StringVar(&f.OutputRoot, "output", ".", "Directory under which to create the results_<timestamp> directory")
	cmd.Flags().StringVar(&f.MetricsListenAddress, "metrics-listen-address", "", "Address on which to expose Prometheus metrics (empty disables)")
	cmd.Flags().IntVar(&f.LogVerbosity, "log-verbosity", 0, "Log verbosity. 0 is INFO; higher values are more verbose")
}

func (f *CollectRootCmdFlags) validate() error {
	switch f.Mode {
	case "AAD", "ARM", "BOTH":
	default:
		return utils.TrackError(fmt.Errorf("--mode must be one of AAD, ARM, BOTH"))
	}
	if f.Config == "" {
		switch f.Cloud {
		case "PUBLIC", "GERMAN", "CHINA", "USGOV":
		default:
			return utils.TrackError(fmt.Errorf("--cloud must be one of PUBLIC, GERMAN, CHINA, USGOV (or use --config)"))
		}
	}
	if f.Backfill && f.Mode != "ARM" {
		return utils.TrackError(fmt.Errorf("--backfill only applies to --mode ARM"))
	}
	if f.LogVerbosity < 0 {
		return utils.TrackError(fmt.Errorf("--log-verbosity must be a value >= 0"))
	}
	return nil
}

// resolveProfile loads the cloud profile named by --config if set,
// otherwise the built-in --cloud profile.
func (f *CollectRootCmdFlags) resolveProfile() (cloudprofile.Profile, error) {
	if f.Config != "" {
		return cloudprofile.LoadCustom(f.Config)
	}
	return cloudprofile.Resolve(f.Cloud)
}

// buildHTTPClient installs the CA bundle named by --ssl-cert (or, when the
// flag is unset, by the REQUESTS_CA_BUNDLE environment variable) on a
// cloned transport; with neither set it returns http.DefaultClient.
func (f *CollectRootCmdFlags) buildHTTPClient() (*http.Client, error) {
	certPath := f.SSLCert
	if certPath == "" {
		certPath = os.Getenv("REQUESTS_CA_BUNDLE")
	}
	if certPath == "" {
		return http.DefaultClient, nil
	}

	pem, err := os.ReadFile(certPath)
	if err != nil {
		return nil, utils.TrackError(fmt.Errorf("reading CA bundle %s: %w", certPath, err))
	}

	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, utils.TrackError(fmt.Errorf("no certificates parsed from CA bundle %s", certPath))
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{RootCAs: pool}

	return &http.Client{Transport: transport}, nil
}

// toCollectorOptions builds collector.Options from the shared flags plus
// a credential already constructed by the azcli/spn subcommand.
func (f *CollectRootCmdFlags) toCollectorOptions(cred credential.Provider) (collector.Options, error) {
	if err := f.validate(); err != nil {
		return collector.Options{}, err
	}

	profile, err := f.resolveProfile()
	if err != nil {
		return collector.Options{}, utils.TrackError(fmt.Errorf("resolving cloud profile: %w", err))
	}

	httpClient, err := f.buildHTTPClient()
	if err != nil {
		return collector.Options{}, err
	}

	return collector.Options{
		Profile:    profile,
		Credential: cred,
		Mode:       collector.Mode(f.Mode),
		Backfill:   f.Backfill,
		SubscriptionFilter: arm.SubscriptionFilter{
			Include: f.IncludeSubs,
			Exclude: f.ExcludeSubs,
		},
		HTTPClient: httpClient,
		OutputRoot: f.OutputRoot,
	}, nil
}

// NewCmdRoot builds the "collect" command tree: a root with shared flags,
// plus "azcli" and "spn" subcommands selecting the credential source.
func NewCmdRoot() *cobra.Command {
	processName := filepath.Base(os.Args[0])
	flags := &CollectRootCmdFlags{}

	root := &cobra.Command{
		Use:           processName,
		Short:         "Stormspotter collector",
		Long:          "Enumerates Azure Active Directory and Azure Resource Manager objects into a local record store, then archives the results.",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetErrPrefix(root.Short + " error:")
	root.Version = version.CommitSHA
	flags.AddFlags(root)

	root.AddCommand(newAzCLICmd(flags))
	root.AddCommand(newSPNCmd(flags))

	return root
}

func newAzCLICmd(flags *CollectRootCmdFlags) *cobra.Command {
	var tenantID string

	cmd := &cobra.Command{
		Use:   "azcli",
		Short: "Collect using the signed-in Azure CLI session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cred, err := credential.NewAzureCLI(tenantID)
			if err != nil {
				return utils.TrackError(fmt.Errorf("constructing azure cli credential: %w", err))
			}
			return runCollect(flags, cred)
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenantid", "", "Tenant ID to scope the Azure CLI credential to (default: CLI's active tenant)")
	return cmd
}

func newSPNCmd(flags *CollectRootCmdFlags) *cobra.Command {
	var tenantID, clientID, secret string

	cmd := &cobra.Command{
		Use:   "spn",
		Short: "Collect using a service principal's client credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tenantID == "" || clientID == "" || secret == "" {
				return utils.TrackError(fmt.Errorf("--tenantid, --clientid, and --secret are all required for spn"))
			}
			cred, err := credential.NewClientSecret(tenantID, clientID, secret)
			if err != nil {
				return utils.TrackError(fmt.Errorf("constructing client secret credential: %w", err))
			}
			return runCollect(flags, cred)
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenantid", "", "Service principal's tenant ID")
	cmd.Flags().StringVar(&clientID, "clientid", "", "Service principal's client (application) ID")
	cmd.Flags().StringVar(&secret, "secret", "", "Service principal's client secret")
	return cmd
}

func runCollect(flags *CollectRootCmdFlags, cred credential.Provider) error {
	ctx := signal.SetupSignalContext()

	handlerOptions := &slog.HandlerOptions{Level: slog.Level(flags.LogVerbosity * -1)}
	logger := logr.FromSlogHandler(slog.NewJSONHandler(os.Stderr, handlerOptions))
	ctx = utils.ContextWithLogger(ctx, logger)

	if flags.MetricsListenAddress != "" {
		go serveMetrics(ctx, flags.MetricsListenAddress, logger)
	}

	opts, err := flags.toCollectorOptions(cred)
	if err != nil {
		return err
	}

	summary, err := collector.Run(ctx, opts)
	if err != nil {
		return utils.TrackError(fmt.Errorf("collection run failed: %w", err))
	}

	logger.Info("collection complete", "archive", summary.ArchivePath)
	fmt.Fprintln(os.Stdout, collector.RenderSummary(summary))

	return nil
}

func serveMetrics(ctx context.Context, addr string, logger logr.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.Handler())
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()

	logger.Info("metrics server listening", "address", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error(err, "metrics server exited")
	}
}
