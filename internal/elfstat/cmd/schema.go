package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"elfstat/internal/analysis"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Generate JSON schema for the report",
		Long:  "Generate the JSON schema of the report printed by elfstat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reflector := &jsonschema.Reflector{DoNotReference: true}
			bts, err := json.MarshalIndent(reflector.Reflect(&analysis.Result{}), "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal schema: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(bts))
			return err
		},
	}
}
