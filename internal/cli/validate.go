package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/firemap/internal/modelcue"
)

// ValidationResult holds validation results for JSON output.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Models []string `json:"models,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <models-dir>",
		Short: "Validate CUE model declarations",
		Long: `Compile CUE model declarations and report every problem with its
source position, without touching any database.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, modelsDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}

	result, loadErrors := modelcue.LoadModels(modelsDir, modelcue.LoadModeCollectAll)
	if result == nil && len(loadErrors) > 0 {
		return &ExitError{Code: ExitCommandError, Message: "load failed", Err: loadErrors[0]}
	}

	vr := ValidationResult{Valid: len(loadErrors) == 0}
	for _, desc := range result.Descriptors {
		vr.Models = append(vr.Models,
			fmt.Sprintf("%s (%s)", desc.Name, strings.Join(desc.AttributeNames(), ", ")))
	}
	for _, err := range loadErrors {
		vr.Errors = append(vr.Errors, err.Error())
	}
	if _, err := result.Registry(); err != nil {
		vr.Valid = false
		vr.Errors = append(vr.Errors, err.Error())
	}

	if opts.Format == "json" {
		if err := formatter.Success(vr); err != nil {
			return err
		}
	} else {
		for _, m := range vr.Models {
			fmt.Fprintf(cmd.OutOrStdout(), "model %s\n", m)
		}
		for _, e := range vr.Errors {
			fmt.Fprintf(cmd.OutOrStdout(), "error %s\n", e)
		}
	}

	if !vr.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d invalid model declaration(s)", len(vr.Errors)))
	}
	return nil
}
