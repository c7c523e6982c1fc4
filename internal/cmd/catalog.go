package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/IIExpanse/honest-sign-test-task/internal/core"
	"github.com/IIExpanse/honest-sign-test-task/internal/output"
)

type catalogGroup struct {
	Name string `json:"name"`
	Code int    `json:"code"`
}

type catalogReport struct {
	ProductGroups []catalogGroup      `json:"product_groups"`
	DocumentTypes []core.DocumentType `json:"document_types"`
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List product group codes and document types",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}

		var rendered string
		switch format {
		case output.FormatJSON:
			report := catalogReport{DocumentTypes: core.DocumentTypes}
			for _, group := range core.ProductGroups {
				code, _ := group.Code()
				report.ProductGroups = append(report.ProductGroups, catalogGroup{Name: string(group), Code: code})
			}
			rendered, err = output.MarshalJSON(report)
			if err != nil {
				return err
			}
		default:
			rendered = output.FormatCatalog(format == output.FormatMarkdown)
		}

		_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
		return err
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.Flags().String("output-format", string(output.FormatTable), "output format: table, json, markdown")
}
