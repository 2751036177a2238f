package commands

import (
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/rpattn/ctedash/internal/domain"
	"github.com/rpattn/ctedash/internal/export"
	"github.com/rpattn/ctedash/internal/logging"
	"github.com/rpattn/ctedash/internal/query"
	"github.com/spf13/cobra"
)

var (
	exportTenant string
	exportOutput string
	exportLedger bool
)

var exportFilter = map[string]*string{}

var exportCmd = &cobra.Command{
	Use:   "export (--tenant T | --ledger) [-o file.xlsx]",
	Short: "Export a tenant's records, or the whole ledger, as xlsx",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportTenant, "tenant", "", "tenant to export")
	exportCmd.Flags().BoolVar(&exportLedger, "ledger", false, "export the consolidated ledger of every tenant")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default <tenant>_cte_export.xlsx)")
	for _, name := range []string{"from", "to", "origin", "destination", "product", "carrier"} {
		exportFilter[name] = exportCmd.Flags().String(name, "", "filter: "+name)
	}
	exportCmd.MarkFlagsMutuallyExclusive("tenant", "ledger")
	exportCmd.MarkFlagsOneRequired("tenant", "ledger")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	output := exportOutput
	var tenant domain.TenantID
	if !exportLedger {
		var err error
		tenant, err = domain.ParseTenantID(exportTenant)
		if err != nil {
			return err
		}
		if output == "" {
			output = export.FileName(tenant)
		}
	} else if output == "" {
		output = export.LedgerFileName
	}

	values := url.Values{}
	for name, value := range exportFilter {
		values.Set(name, *value)
	}
	filter, err := query.ParseFilter(values)
	if err != nil {
		return err
	}

	ctx := operatorContext(cmd.Context())
	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.close()

	queries := query.NewService(b.store, b.ledger, b.users, nil, logging.Component("query"))
	service := export.NewService(queries)

	rows, err := writeExportFile(output, func(w io.Writer) (int, error) {
		if exportLedger {
			return service.ExportLedger(ctx, w)
		}
		return service.ExportTenant(ctx, tenant, filter, w)
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", rows, output)
	return nil
}

// writeExportFile creates path and fills it with write. The file is removed
// again when write or the final close fails.
func writeExportFile(path string, write func(io.Writer) (int, error)) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}

	rows, err := write(f)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close %s: %w", path, closeErr)
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, err
	}
	return rows, nil
}
