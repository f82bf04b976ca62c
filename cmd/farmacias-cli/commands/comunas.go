package commands

import (
	"farmacias-turno/internal/farmacias"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(comunasCmd)
}

var comunasCmd = &cobra.Command{
	Use:   "comunas",
	Short: "Lists every comuna present in the upstream list with its number of pharmacies.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline, err := loadPipeline()
		if err != nil {
			return err
		}
		records, err := pipeline.Records(cmd.Context())
		if err != nil {
			return err
		}

		counts := farmacias.CountComunas(records)
		t := newTable(cmd)
		t.AppendHeader(table.Row{"Comuna", "Farmacias"})
		for _, c := range counts {
			t.AppendRow(table.Row{c.Comuna, c.Count})
		}
		t.AppendFooter(table.Row{len(counts), len(records)})
		t.Render()
		return nil
	},
}
