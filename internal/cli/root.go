// Package cli implements the offline assess command.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"aml-triage/internal/ingest"
	"aml-triage/internal/usecase"
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

type Assessor interface {
	Assess(ctx context.Context, in usecase.AssessInput) (usecase.AssessOutput, error)
}

// BuildFunc constructs the assessor once flags are parsed.
type BuildFunc func(ctx context.Context) (Assessor, error)

type options struct {
	Format string
}

// NewRootCommand creates the assess command.
func NewRootCommand(build BuildFunc) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "assess <file>",
		Short: "Run AML risk triage on a CSV or free-text file",
		Long: "Reads a CSV file (one transaction per row) or a text file (transactions separated by ---),\n" +
			"assesses every transaction and prints the results.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssess(cmd, build, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "text", "output format (text|json|yaml)")
	return cmd
}

func runAssess(cmd *cobra.Command, build BuildFunc, opts *options, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, err := build(ctx)
	if err != nil {
		return err
	}

	out, err := svc.Assess(ctx, usecase.AssessInput{File: &ingest.Upload{Filename: filepath.Base(path), Content: content}})
	if err != nil {
		return err
	}
	return writeAssessments(cmd.OutOrStdout(), opts.Format, out.Assessments)
}
