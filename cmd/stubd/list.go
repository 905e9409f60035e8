package main

import (
	"encoding/json"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/getstubd/stubd/pkg/engine"
	"github.com/getstubd/stubd/pkg/logging"
	"github.com/getstubd/stubd/pkg/stub"
)

func listCmd() *cobra.Command {
	var (
		destType string
		destName string
		ownerID  string
		protocol string
		status   string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored stubs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			eng := engine.New(store, logging.Nop())
			stubs, err := eng.ListStubs(cmd.Context(), engine.ListFilter{
				DestinationType: destType,
				DestinationName: destName,
				OwnerID:         ownerID,
				Protocol:        stub.Protocol(protocol),
				Status:          stub.Status(status),
			})
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(stubs)
			}
			printStubTable(stubs)
			return nil
		},
	}

	cmd.Flags().StringVar(&destType, "destination-type", "", "filter by destination type")
	cmd.Flags().StringVar(&destName, "destination-name", "", "filter by destination name")
	cmd.Flags().StringVar(&ownerID, "owner", "", "filter by owner id")
	cmd.Flags().StringVar(&protocol, "protocol", "", "filter by protocol")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}

func printStubTable(stubs []*stub.Stub) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ID", "Name", "Protocol", "Destination", "Priority", "Status", "Updated"})
	for _, s := range stubs {
		t.AppendRow(table.Row{
			s.ID, s.Name, s.Protocol, s.Destination.Key(),
			s.Priority, s.Status, s.UpdatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	t.Render()
}
