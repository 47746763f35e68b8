package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/backend-liquido/internal/calculation"
	"github.com/noah-isme/backend-liquido/internal/form"
	"github.com/noah-isme/backend-liquido/internal/obs"
)

func calcCmd() *cobra.Command {
	var (
		contract   string
		settled    string
		cost       string
		commission string
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Compute the net result of an operation",
		Example: `  liquido calc --valor-contrato 1000 --valor-quitado 200 --custo-produto 50 --percentual-comissao 10
  liquido calc --valor-contrato 1000 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := calculation.Service{Source: obs.SourceCLI}
			result, err := svc.Calculate(map[string]string{
				form.FieldContractValue:     contract,
				form.FieldSettledValue:      settled,
				form.FieldProductCost:       cost,
				form.FieldCommissionPercent: commission,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			_, err = fmt.Fprintln(out, result.Display)
			return err
		},
	}
	cmd.Flags().StringVar(&contract, "valor-contrato", "", "contract value")
	cmd.Flags().StringVar(&settled, "valor-quitado", "", "amount already settled")
	cmd.Flags().StringVar(&cost, "custo-produto", "", "product cost")
	cmd.Flags().StringVar(&commission, "percentual-comissao", "", "commission percent of the contract value")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full summary as JSON")
	return cmd
}
