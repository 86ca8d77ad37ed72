package cmd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	money "github.com/rezonia/invoice-engine/internal/decimal"
	"github.com/rezonia/invoice-engine/internal/importer"
	"github.com/rezonia/invoice-engine/internal/model"
	"github.com/rezonia/invoice-engine/internal/parser/ubl"
)

var (
	outputFile      string
	exportDir       string
	timeout         time.Duration
	importMode      string
	importTolerance string
)

var importCmd = &cobra.Command{
	Use:   "import [files...]",
	Short: "Import UBL invoices and reconcile their totals",
	Long: `Import one or more UBL Invoice or CreditNote documents, recompute their
totals and compare them with the totals the documents declare.

In strict mode the first inconsistent field or a total drifting beyond the
tolerance fails the file. In lenient mode the file is imported and every
inconsistency is reported.

Examples:
  invoice-engine import invoice.xml
  invoice-engine import invoices/ --mode lenient -f table
  invoice-engine import *.xml --tolerance 0.05 -o results.json
  invoice-engine import invoice.xml --export out/`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	importCmd.Flags().StringVar(&exportDir, "export", "", "Write the recomputed invoices as UBL into this directory")
	importCmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Processing timeout per file")
	importCmd.Flags().StringVar(&importMode, "mode", "", "Import mode, strict or lenient (env: IMPORT_MODE)")
	importCmd.Flags().StringVar(&importTolerance, "tolerance", "", "Reconciliation tolerance (env: IMPORT_TOLERANCE)")
}

// ImportResult holds the result of importing a single file
type ImportResult struct {
	File          string              `json:"file"`
	ID            string              `json:"id,omitempty"`
	TypeCode      string              `json:"type_code,omitempty"`
	Currency      string              `json:"currency,omitempty"`
	CorrelationID string              `json:"correlation_id,omitempty"`
	Mode          string              `json:"mode,omitempty"`
	Lines         int                 `json:"lines,omitempty"`
	Totals        *model.Totals       `json:"totals,omitempty"`
	Anomalies     []importer.Anomaly  `json:"anomalies,omitempty"`
	Discrepancies []model.Discrepancy `json:"discrepancies,omitempty"`
	Error         string              `json:"error,omitempty"`
}

func runImport(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return fmt.Errorf("no files found to import")
	}

	opts, err := importOptions(importMode, importTolerance)
	if err != nil {
		return err
	}
	imp := importer.New(opts...)

	log.Debug().Int("files", len(files)).Str("mode", string(imp.Mode())).Msg("importing")

	results := make([]*ImportResult, 0, len(files))
	failed := 0
	for _, file := range files {
		result, inv := importFile(cmd.Context(), imp, file)
		results = append(results, result)

		if result.Error != "" {
			failed++
			log.Debug().Str("file", file).Str("error", result.Error).Msg("import failed")
			continue
		}
		if exportDir != "" {
			if err := exportInvoice(inv); err != nil {
				return err
			}
		}
	}

	if err := outputResults(results); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("import failed for %d of %d files", failed, len(files))
	}
	return nil
}

func importFile(ctx context.Context, imp *importer.Importer, filePath string) (*ImportResult, *model.Invoice) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := &ImportResult{File: filePath}

	f, err := os.Open(filePath)
	if err != nil {
		result.Error = fmt.Sprintf("failed to read file: %v", err)
		return result, nil
	}
	defer f.Close()

	res, err := imp.ImportXML(ctx, f)
	if err != nil {
		result.Error = err.Error()
		return result, nil
	}

	inv := res.Invoice
	result.ID = inv.ID()
	result.TypeCode = string(inv.TypeCode())
	result.Currency = string(inv.Currency())
	result.CorrelationID = res.CorrelationID
	result.Mode = string(res.Mode)
	result.Lines = len(inv.Lines())
	result.Totals = inv.Totals()
	result.Anomalies = res.Anomalies
	result.Discrepancies = res.Discrepancies
	return result, inv
}

func exportInvoice(inv *model.Invoice) error {
	out, err := ubl.Encode(inv)
	if err != nil {
		return fmt.Errorf("encode %s: %w", inv.ID(), err)
	}
	if err := os.MkdirAll(exportDir, 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(exportDir, filepath.Base(inv.ID())+".xml")
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.Debug().Str("invoice", inv.ID()).Str("path", path).Msg("exported")
	return nil
}

func outputResults(results []*ImportResult) error {
	var writer io.Writer = os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		writer = f
	}

	switch outputFormat {
	case "json":
		return outputJSON(writer, results)
	case "table":
		return outputTable(writer, results)
	case "csv":
		return outputCSV(writer, results)
	default:
		return fmt.Errorf("unsupported output format: %s", outputFormat)
	}
}

func outputJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func outputTable(w io.Writer, results []*ImportResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tID\tCURRENCY\tLINES\tTAX EXCL\tTAX\tPAYABLE\tSTATUS")
	fmt.Fprintln(tw, "----\t--\t--------\t-----\t--------\t---\t-------\t------")

	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(tw, "%s\t\t\t\t\t\t\tERROR: %s\n", r.File, r.Error)
			continue
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			r.File,
			r.ID,
			r.Currency,
			r.Lines,
			money.Format(r.Totals.TaxExclusive),
			money.Format(r.Totals.TaxTotal),
			money.Format(r.Totals.Payable),
			status(r),
		)
	}

	return tw.Flush()
}

func outputCSV(w io.Writer, results []*ImportResult) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{"file", "id", "type_code", "currency", "lines", "tax_exclusive_amount", "tax_amount",
		"tax_inclusive_amount", "payable_amount", "anomalies", "discrepancies", "error"})

	for _, r := range results {
		if r.Error != "" {
			cw.Write([]string{r.File, "", "", "", "", "", "", "", "", "", "", r.Error})
			continue
		}
		cw.Write([]string{
			r.File,
			r.ID,
			r.TypeCode,
			r.Currency,
			strconv.Itoa(r.Lines),
			money.Format(r.Totals.TaxExclusive),
			money.Format(r.Totals.TaxTotal),
			money.Format(r.Totals.TaxInclusive),
			money.Format(r.Totals.Payable),
			strconv.Itoa(len(r.Anomalies)),
			strconv.Itoa(len(r.Discrepancies)),
			"",
		})
	}

	cw.Flush()
	return cw.Error()
}

func status(r *ImportResult) string {
	if len(r.Anomalies) == 0 && len(r.Discrepancies) == 0 {
		return "clean"
	}
	return fmt.Sprintf("%d anomalies, %d discrepancies", len(r.Anomalies), len(r.Discrepancies))
}
