package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/stormspotter-go/stormspotter/internal/graphwriter"
	"github.com/stormspotter-go/stormspotter/internal/ingest"
	"github.com/stormspotter-go/stormspotter/internal/signal"
	"github.com/stormspotter-go/stormspotter/internal/telemetry"
	"github.com/stormspotter-go/stormspotter/internal/utils"
	"github.com/stormspotter-go/stormspotter/internal/version"
)

// IngestRootCmdFlags holds the ingestor's flags: the archive to ingest,
// the graph store connection, and ambient logging/metrics knobs.
type IngestRootCmdFlags struct {
	ArchivePath          string
	GraphUser            string
	GraphPassword        string
	GraphServer          string
	GraphPort            int
	MetricsListenAddress string
	LogVerbosity         int
}

func (f *IngestRootCmdFlags) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.ArchivePath, "file", "f", "", "Path to the .tar.xz archive produced by the collector")
	cmd.Flags().StringVar(&f.GraphUser, "user", "neo4j", "Graph store username")
	cmd.Flags().StringVar(&f.GraphPassword, "pass", "", "Graph store password")
	cmd.Flags().StringVar(&f.GraphServer, "server", "localhost", "Graph store host")
	cmd.Flags().IntVar(&f.GraphPort, "port", 7687, "Graph store Bolt port")
	cmd.Flags().StringVar(&f.MetricsListenAddress, "metrics-listen-address", "", "Address on which to expose Prometheus metrics (empty disables)")
	cmd.Flags().IntVar(&f.LogVerbosity, "log-verbosity", 0, "Log verbosity. 0 is INFO; higher values are more verbose")

	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("pass")
}

func (f *IngestRootCmdFlags) validate() error {
	if f.ArchivePath == "" {
		return utils.TrackError(fmt.Errorf("-f/--file is required"))
	}
	if f.GraphPassword == "" {
		return utils.TrackError(fmt.Errorf("--pass is required"))
	}
	if f.LogVerbosity < 0 {
		return utils.TrackError(fmt.Errorf("--log-verbosity must be a value >= 0"))
	}
	return nil
}

func (f *IngestRootCmdFlags) boltURI() string {
	return fmt.Sprintf("bolt://%s:%d", f.GraphServer, f.GraphPort)
}

// NewCmdRoot builds the "ingest" command: no subcommands, a single run
// of the unpack-read-derive-write pipeline.
func NewCmdRoot() *cobra.Command {
	processName := filepath.Base(os.Args[0])
	flags := &IngestRootCmdFlags{}

	root := &cobra.Command{
		Use:           processName,
		Short:         "Stormspotter ingestor",
		Long:          "Unpacks a collector archive, derives graph nodes and relationships from its records, and writes them to a Neo4j-compatible graph store.",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(flags)
		},
	}
	root.SetErrPrefix(root.Short + " error:")
	root.Version = version.CommitSHA
	flags.AddFlags(root)

	return root
}

func runIngest(flags *IngestRootCmdFlags) error {
	if err := flags.validate(); err != nil {
		return err
	}

	ctx := signal.SetupSignalContext()

	handlerOptions := &slog.HandlerOptions{Level: slog.Level(flags.LogVerbosity * -1)}
	logger := logr.FromSlogHandler(slog.NewJSONHandler(os.Stderr, handlerOptions))
	ctx = utils.ContextWithLogger(ctx, logger)

	if flags.MetricsListenAddress != "" {
		go serveMetrics(ctx, flags.MetricsListenAddress, logger)
	}

	writer, err := graphwriter.Open(ctx, flags.boltURI(), flags.GraphUser, flags.GraphPassword)
	if err != nil {
		return utils.TrackError(fmt.Errorf("opening graph store: %w", err))
	}

	destDir, err := os.MkdirTemp("", "stormspotter-ingest-")
	if err != nil {
		return utils.TrackError(fmt.Errorf("creating scratch directory: %w", err))
	}
	defer os.RemoveAll(destDir)

	runErr := ingest.Run(ctx, flags.ArchivePath, destDir, writer)

	if err := writer.Close(ctx); err != nil {
		logger.Error(err, "graph writer reported errors during close")
	}

	if runErr != nil {
		return utils.TrackError(fmt.Errorf("ingest failed: %w", runErr))
	}

	logger.Info("ingest complete", "archive", flags.ArchivePath)
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
