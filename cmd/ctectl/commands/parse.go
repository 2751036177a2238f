package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rpattn/ctedash/internal/cte"
	"github.com/rpattn/ctedash/internal/export"
	"github.com/rpattn/ctedash/internal/ingestion"
	"github.com/rpattn/ctedash/internal/logging"
	"github.com/spf13/cobra"
)

var parseXLSX string

var parseCmd = &cobra.Command{
	Use:   "parse <file.xml>...",
	Short: "Extract CT-e documents and print the canonical records",
	Long:  "Parse CT-e XML files without storing anything. Records are printed as JSON; --xlsx also writes them to a workbook.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runParse,
}

func init() {
	parseCmd.Flags().StringVar(&parseXLSX, "xlsx", "", "also write the records to this xlsx file")
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	service := ingestion.NewService(nil, nil, nil, nil, logging.Component("ctectl"))
	summary := service.Preview(fileDocuments(args))

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("encode records: %w", err)
	}

	if parseXLSX != "" {
		f, err := os.Create(parseXLSX)
		if err != nil {
			return fmt.Errorf("create %s: %w", parseXLSX, err)
		}
		defer f.Close()
		if err := export.WriteRecords(f, summary.Records); err != nil {
			return err
		}
	}
	return nil
}

func fileDocuments(paths []string) []cte.RawDocument {
	docs := make([]cte.RawDocument, len(paths))
	for i, path := range paths {
		docs[i] = cte.FileDocument(path)
	}
	return docs
}
