package main

import (
	"fmt"
	"time"

	"github.com/mercadia/orderdesk/internal/orders"
	"github.com/spf13/cobra"
)

func newConsolidateCmd() *cobra.Command {
	var (
		configPath   string
		distributor  string
		receivedDate string
		deliveryDate string
	)

	cmd := &cobra.Command{
		Use:   "consolidate <order-id>...",
		Short: "Merge several orders into one new order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if distributor == "" {
				return fmt.Errorf("consolidate: --distributor is required")
			}

			now := time.Now().UTC()
			received := now
			if receivedDate != "" {
				received, err = time.Parse("2006-01-02", receivedDate)
				if err != nil {
					return fmt.Errorf("consolidate: parse --received-date: %w", err)
				}
			}
			var delivery *time.Time
			if deliveryDate != "" {
				d, err := time.Parse("2006-01-02", deliveryDate)
				if err != nil {
					return fmt.Errorf("consolidate: parse --delivery-date: %w", err)
				}
				delivery = &d
			}

			res, err := orders.Consolidate(gormDB, distributor, args, received, delivery, now)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created order %s: %d item(s) from %d order(s), total %.2f\n",
				res.OrderID, res.TotalItems, res.SourceCount, res.TotalAmount)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "orderdesk.yaml", "path to Orderdesk config file")
	cmd.Flags().StringVarP(&distributor, "distributor", "d", "", "distributor id owning the orders")
	cmd.Flags().StringVar(&receivedDate, "received-date", "", "received date for the new order (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&deliveryDate, "delivery-date", "", "delivery date for the new order (YYYY-MM-DD)")
	return cmd
}
