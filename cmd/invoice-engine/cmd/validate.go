package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rezonia/invoice-engine/internal/importer"
	"github.com/rezonia/invoice-engine/internal/model"
	"github.com/rezonia/invoice-engine/internal/validation"
)

var (
	strictValidation bool
	peppolRules      bool
)

var validateCmd = &cobra.Command{
	Use:   "validate [files...]",
	Short: "Validate invoice files",
	Long: `Validate one or more UBL invoices against the EN 16931 business rules.

The documents are imported leniently so every violation is reported, not just
the first one. Import anomalies and total discrepancies are shown as warnings.

Checks performed:
  - Mandatory header fields, seller and buyer
  - Code lists (currency, unit, tax category, payment means)
  - Line and allowance/charge arithmetic
  - Tax breakdown and document totals

Examples:
  invoice-engine validate invoice.xml
  invoice-engine validate *.xml --peppol
  invoice-engine validate invoices/ --strict`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&strictValidation, "strict", false, "Treat import warnings as errors")
	validateCmd.Flags().BoolVar(&peppolRules, "peppol", false, "Apply the Peppol BIS Billing rules (env: VALIDATION_PEPPOL)")
}

// ValidationResult holds the result of validating a single file
type ValidationResult struct {
	File     string   `json:"file"`
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return fmt.Errorf("no files found to validate")
	}

	opts, err := importOptions(string(importer.ModeLenient), "")
	if err != nil {
		return err
	}
	imp := importer.New(opts...)

	var rules []validation.Rule
	if peppolRules || cfg.Peppol {
		rules = validation.PeppolRules()
	}
	v := validation.New(rules...)

	results := make([]*ValidationResult, 0, len(files))
	allValid := true

	for _, file := range files {
		result := validateFile(cmd.Context(), imp, v, file)
		results = append(results, result)

		if !result.Valid {
			allValid = false
		}
	}

	if outputFormat == "json" {
		if err := outputJSON(os.Stdout, results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.Valid {
				fmt.Printf("✓ %s: VALID\n", r.File)
			} else {
				fmt.Printf("✗ %s: INVALID\n", r.File)
				for _, e := range r.Errors {
					fmt.Printf("  - %s\n", e)
				}
			}
			for _, w := range r.Warnings {
				fmt.Printf("  ⚠ %s\n", w)
			}
		}
	}

	if !allValid {
		return fmt.Errorf("validation failed for some files")
	}

	return nil
}

func validateFile(ctx context.Context, imp *importer.Importer, v *validation.Validator, filePath string) *ValidationResult {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := &ValidationResult{
		File:  filePath,
		Valid: true,
	}

	f, err := os.Open(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("failed to read file: %v", err))
		return result
	}
	defer f.Close()

	res, err := imp.ImportXML(ctx, f)
	if err != nil {
		var pe *model.ParseError
		if errors.As(err, &pe) {
			err = fmt.Errorf("parse error: %w", err)
		}
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	result.Errors = model.Messages(v.Validate(res.Invoice))
	if len(result.Errors) > 0 {
		result.Valid = false
	}

	var w *importer.ImportWarning
	if errors.As(res.Warning(), &w) {
		result.Warnings = w.Messages()
		if strictValidation {
			result.Valid = false
		}
	}

	return result
}
