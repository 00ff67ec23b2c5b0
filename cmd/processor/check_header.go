package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckHeaderCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "check-header <source>...",
		Short: "Validate only the header row of action logs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var errs []error
			for _, ref := range args {
				if err := c.service.CheckHeader(cmd.Context(), ref); err != nil {
					fmt.Fprintf(c.stdout, "FAIL %s: %v\n", ref, err)
					errs = append(errs, err)
					continue
				}
				fmt.Fprintf(c.stdout, "ok   %s\n", ref)
			}
			return errors.Join(errs...)
		},
	}
}

func newListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the data sources of the configured data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := c.service.ListDataSources(cmd.Context())
			if err != nil {
				return err
			}

			enc := json.NewEncoder(c.stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(list)
		},
	}
}
