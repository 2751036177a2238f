package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/rpattn/ctedash/internal/domain"
	"github.com/rpattn/ctedash/internal/ingestion"
	"github.com/rpattn/ctedash/internal/logging"
	"github.com/spf13/cobra"
)

var ingestTenant string

var ingestCmd = &cobra.Command{
	Use:   "ingest --tenant T <file.xml>...",
	Short: "Parse CT-e documents and append them to a tenant",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestTenant, "tenant", "", "tenant (table) to append to (required)")
	_ = ingestCmd.MarkFlagRequired("tenant")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	tenant, err := domain.ParseTenantID(ingestTenant)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	defer cancel()

	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.close()

	service := ingestion.NewService(b.store, b.ledger, b.logs, nil, logging.Component("ingestion"))
	summary, err := service.Ingest(operatorContext(ctx), ingestion.Request{Tenant: tenant, Documents: fileDocuments(args)})

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "batch %s: %d documents, %d parsed, %d skipped\n", summary.BatchID, summary.TotalDocuments, summary.ParsedDocuments, summary.FailedDocuments)
	for _, failure := range summary.Failures {
		fmt.Fprintf(out, "  skipped %s: %s\n", failure.FileName, failure.Error)
	}
	fmt.Fprintf(out, "tenant %s: %d rows written, ledger: %d rows written\n", tenant, summary.TenantRowsWritten, summary.LedgerRowsWritten)
	return err
}
