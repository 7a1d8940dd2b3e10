package cli

import (
	"fmt"
	"io"

	"github.com/example/catalog-engine/modules/inventory"
	"github.com/example/catalog-engine/modules/ledger"
	"github.com/spf13/cobra"
)

func newCartCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Inspect and clear user carts",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every non-empty cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp inventory.ListCartsResponse
			if err := opts.call(cmd, "inventory", "list-carts", &inventory.ListCartsRequest{}, &resp); err != nil {
				return err
			}
			return opts.output(cmd).Success(resp, func(w io.Writer) {
				writeCarts(w, resp.Carts)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear <user-id>",
		Short: "Empty a user's cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp inventory.ClearCartResponse
			if err := opts.call(cmd, "inventory", "clear-cart", &inventory.ClearCartRequest{UserID: args[0]}, &resp); err != nil {
				return err
			}
			return opts.output(cmd).Success(resp, func(w io.Writer) {
				if resp.Removed == 0 {
					fmt.Fprintf(w, "Cart of %s was already empty\n", args[0])
					return
				}
				fmt.Fprintf(w, "Removed %d entries from the cart of %s\n", resp.Removed, args[0])
			})
		},
	})

	return cmd
}

func newPurchaseCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purchase",
		Short: "Record and list completed sales",
	}
	cmd.AddCommand(newRecordPurchaseCommand(opts))

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the purchase ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp ledger.ListPurchasesResponse
			if err := opts.call(cmd, "ledger", "list-purchases", &ledger.ListPurchasesRequest{}, &resp); err != nil {
				return err
			}
			return opts.output(cmd).Success(resp, func(w io.Writer) {
				writePurchases(w, resp.Purchases)
			})
		},
	})

	return cmd
}

func newRecordPurchaseCommand(opts *RootOptions) *cobra.Command {
	req := ledger.RecordPurchaseRequest{RecordedBy: "catalogctl"}

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Append a purchase to the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp ledger.PurchaseResponse
			if err := opts.call(cmd, "ledger", "record-purchase", &req, &resp); err != nil {
				return err
			}
			return opts.output(cmd).Success(resp.Purchase, func(w io.Writer) {
				fmt.Fprintf(w, "Purchase %s recorded: %s paid R$ %s\n",
					resp.Purchase.ID, resp.Purchase.BuyerID, resp.Purchase.Amount)
			})
		},
	}

	cmd.Flags().StringVar(&req.BuyerID, "buyer", "", "buyer user id")
	cmd.Flags().StringVar(&req.ProductDescription, "description", "", "what was sold")
	cmd.Flags().StringVar(&req.Amount, "amount", "", "amount paid")
	cmd.Flags().StringVar(&req.Note, "note", "", "free-form note")
	_ = cmd.MarkFlagRequired("buyer")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}
