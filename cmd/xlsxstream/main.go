// Command xlsxstream converts an .xlsx workbook to CSV on a bounded memory
// budget, reading from a local path, an HTTP(S) URL, or an S3 object.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bsirb/xlsxstream"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cmd, exitCode := newRootCmd()
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		// RunE sets a non-zero code for conversion failures; an error with
		// the code still at exitSuccess came from argument or flag parsing.
		if exitCode != nil && *exitCode != exitSuccess {
			return *exitCode
		}
		return exitUsageError
	}
	if exitCode != nil {
		return *exitCode
	}
	return exitSuccess
}

// Exit codes, matching the external interface's error-kind-to-status table.
const (
	exitSuccess = iota
	exitUsageError
	exitUnsupportedSource
	exitNotFound
	exitAuth
	exitMalformed
	exitIOError
	exitCancelled
)

func newRootCmd() (*cobra.Command, *int) {
	var (
		output    string
		sheetName string
		chunkSize int
		verbose   bool
	)
	code := exitSuccess

	cmd := &cobra.Command{
		Use:           "xlsxstream <source>",
		Short:         "Stream an .xlsx workbook to CSV without loading it fully into memory",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(verbose)
			defer logger.Sync() //nolint:errcheck

			exit, err := execute(cmd.Context(), args[0], output, sheetName, chunkSize, logger)
			code = exit
			return err
		},
	}

	cmd.Flags().StringVar(&output, "output", "", "output CSV path (default: stdout)")
	cmd.Flags().StringVar(&sheetName, "sheet-name", "", "worksheet to convert (default: first sheet)")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", xlsxstream.DefaultChunkSize, "upper bound, in bytes, for the worksheet pass's read buffer")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "enable development-mode logging")

	return cmd, &code
}

func newLogger(verbose bool) *zap.Logger {
	var logger *zap.Logger
	var err error
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		logger = zap.NewNop()
	}
	return logger
}

func execute(ctx context.Context, source, output, sheetName string, chunkSize int, logger *zap.Logger) (int, error) {
	var opts []xlsxstream.Option
	if sheetName != "" {
		opts = append(opts, xlsxstream.WithSheetName(sheetName))
	}
	if chunkSize > 0 {
		opts = append(opts, xlsxstream.WithChunkSize(chunkSize))
	}
	opts = append(opts, xlsxstream.WithObserver(zapObserver{logger: logger}))

	reader, err := xlsxstream.New(source, opts...)
	if err != nil {
		return reportError(logger, err)
	}

	out := os.Stdout
	if output != "" {
		f, createErr := os.Create(output)
		if createErr != nil {
			return reportError(logger, &xlsxstream.Error{Kind: xlsxstream.SinkIO, Detail: createErr.Error(), Err: createErr})
		}
		defer f.Close()
		out = f
	}

	n, err := reader.ToCSV(ctx, out)
	if err != nil {
		return reportError(logger, err)
	}
	logger.Info("conversion complete", zap.Int("rows", n), zap.String("source", source))
	return exitSuccess, nil
}

func reportError(logger *zap.Logger, err error) (int, error) {
	kind, ok := xlsxstream.KindOf(err)
	if !ok {
		logger.Error("conversion failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "xlsxstream: %v\n", err)
		return exitIOError, err
	}
	logger.Error("conversion failed", zap.String("kind", string(kind)), zap.Error(err))
	fmt.Fprintf(os.Stderr, "xlsxstream: %s: %v\n", kind, err)
	return exitCodeForKind(kind), err
}

func exitCodeForKind(kind xlsxstream.Kind) int {
	switch kind {
	case xlsxstream.UnsupportedSource:
		return exitUnsupportedSource
	case xlsxstream.NotFound, xlsxstream.SheetNotFound, xlsxstream.MissingWorkbookPart, xlsxstream.MissingRelationshipsPart:
		return exitNotFound
	case xlsxstream.PermissionDenied, xlsxstream.Auth:
		return exitAuth
	case xlsxstream.MalformedXML, xlsxstream.UnexpectedEOF, xlsxstream.CRCMismatch, xlsxstream.UnsupportedMethod,
		xlsxstream.EncryptedEntry, xlsxstream.SplitArchive, xlsxstream.SharedStringIndex, xlsxstream.BadCellAddress:
		return exitMalformed
	case xlsxstream.Timeout:
		return exitCancelled
	case xlsxstream.Network, xlsxstream.HTTPStatus, xlsxstream.TooManyRedirects, xlsxstream.SinkIO:
		return exitIOError
	default:
		return exitIOError
	}
}

// zapObserver forwards non-fatal taxonomy warnings (e.g. duplicate sheet
// names, an empty workbook) to the structured logger instead of dropping
// them.
type zapObserver struct {
	logger *zap.Logger
}

func (o zapObserver) Warn(kind xlsxstream.Kind, detail string) {
	o.logger.Warn("workbook warning", zap.String("kind", string(kind)), zap.String("detail", detail))
}
