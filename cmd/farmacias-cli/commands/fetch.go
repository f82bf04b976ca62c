package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"farmacias-turno/internal/farmacias"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var fetchJSON bool

func init() {
	fetchCmd.Flags().BoolVar(&fetchJSON, "json", false, "Print the response envelope instead of a table.")
	rootCmd.AddCommand(fetchCmd)
}

func formatCoordinate(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.5f", *v)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [comuna]",
	Short: "Lists the pharmacies on duty of a comuna, the configured default when omitted.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline, err := loadPipeline()
		if err != nil {
			return err
		}

		query := strings.Join(args, " ")
		envelope := pipeline.Run(cmd.Context(), query)

		if fetchJSON {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(envelope)
		}
		if !envelope.OK {
			return errors.New(envelope.Error)
		}

		t := newTable(cmd)
		t.SetTitle(fmt.Sprintf("%s (%d)", envelope.Comuna, envelope.Total))
		t.AppendHeader(table.Row{"Nombre", "Dirección", "Teléfono", "Horario", "Lat", "Lng"})
		for _, f := range envelope.Data {
			t.AppendRow(table.Row{
				f.Name,
				f.Address,
				f.Phone,
				f.Hours,
				formatCoordinate(f.Lat),
				formatCoordinate(f.Lng),
			})
		}
		t.Render()

		if envelope.Total > 0 {
			return nil
		}
		// a second fetch, only needed when the query matched nothing
		records, err := pipeline.Records(cmd.Context())
		if err != nil {
			return err
		}
		suggestions := farmacias.SuggestComunas(envelope.Comuna, records, 3)
		if len(suggestions) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "no pharmacies found, did you mean: %s?\n", strings.Join(suggestions, ", "))
		}
		return nil
	},
}
