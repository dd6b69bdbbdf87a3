// Derive command: compile a derivation-convention method name into SQL.
package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/larder/internal/query"
)

var flagDeriveTable string

var deriveCmd = &cobra.Command{
	Use:   "derive <methodName>",
	Short: "Compile a derivation-convention method name into SQL",
	Long: `Derive parses a method name such as findByEmailAndActiveOrderByNameDesc
and prints the SQL statement it compiles to, together with the order of the
bound parameters. Snake_case names (find_by_email) are accepted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := query.NormalizeMethodName(args[0])
		parsed, err := query.Parse(name)
		if err != nil {
			return err
		}
		compiled, err := query.Generate(parsed, flagDeriveTable)
		if err != nil {
			return err
		}

		fmt.Println(compiled.SQL)
		if order := compiled.ParamOrder(); len(order) > 0 {
			fmt.Println("params:", strings.Join(order, ", "))
		}
		return nil
	},
}

func init() {
	deriveCmd.Flags().StringVar(&flagDeriveTable, "table", "t", "table name to compile against")
}
