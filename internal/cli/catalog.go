package cli

import (
	"fmt"
	"io"

	"github.com/example/catalog-engine/modules/inventory"
	"github.com/spf13/cobra"
)

func newCatalogCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage products for sale",
	}
	cmd.AddCommand(newAddProductCommand(opts))
	cmd.AddCommand(newUpdateProductCommand(opts))
	cmd.AddCommand(newRemoveProductCommand(opts))
	cmd.AddCommand(newListProductsCommand(opts))
	return cmd
}

func newAddProductCommand(opts *RootOptions) *cobra.Command {
	var req inventory.AddProductRequest

	cmd := &cobra.Command{
		Use:   "add-product",
		Short: "Add a product and post it to the shop channel",
		Example: `  catalogctl catalog add-product --name "Website Pro" \
    --description "Full website" --price 199,90 --stock 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp inventory.ProductResponse
			if err := opts.call(cmd, "inventory", "add-product", &req, &resp); err != nil {
				return err
			}
			return opts.output(cmd).Success(resp.Product, func(w io.Writer) {
				fmt.Fprintf(w, "Product %s created: %s at R$ %s (%d in stock)\n",
					resp.Product.ID, resp.Product.Name, resp.Product.Price, resp.Product.Stock)
			})
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "product name")
	cmd.Flags().StringVar(&req.Description, "description", "", "product description")
	cmd.Flags().StringVar(&req.Price, "price", "", "price, e.g. 199.90 or 199,90")
	cmd.Flags().IntVar(&req.Stock, "stock", 0, "units in stock")
	cmd.Flags().StringVar(&req.Image, "image", "", "image URL")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("price")

	return cmd
}

func newUpdateProductCommand(opts *RootOptions) *cobra.Command {
	var (
		name, description, price, image string
		stock                           int
	)

	cmd := &cobra.Command{
		Use:   "update-product <id>",
		Short: "Change fields of an existing product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := inventory.UpdateProductRequest{ProductID: args[0]}
			flags := cmd.Flags()
			if flags.Changed("name") {
				req.Name = &name
			}
			if flags.Changed("description") {
				req.Description = &description
			}
			if flags.Changed("price") {
				req.Price = &price
			}
			if flags.Changed("stock") {
				req.Stock = &stock
			}
			if flags.Changed("image") {
				req.Image = &image
			}
			if req.Name == nil && req.Description == nil && req.Price == nil && req.Stock == nil && req.Image == nil {
				return NewExitError(ExitCommandError, "nothing to update: pass at least one of --name, --description, --price, --stock, --image")
			}

			var resp inventory.ProductResponse
			if err := opts.call(cmd, "inventory", "update-product", &req, &resp); err != nil {
				return err
			}
			return opts.output(cmd).Success(resp.Product, func(w io.Writer) {
				fmt.Fprintf(w, "Product %s updated\n", resp.Product.ID)
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&price, "price", "", "new price")
	cmd.Flags().IntVar(&stock, "stock", 0, "new stock level")
	cmd.Flags().StringVar(&image, "image", "", "new image URL")

	return cmd
}

func newRemoveProductCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-product <id>",
		Short: "Remove a product and take down its message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp inventory.ProductResponse
			if err := opts.call(cmd, "inventory", "remove-product", &inventory.ProductRequest{ProductID: args[0]}, &resp); err != nil {
				return err
			}
			return opts.output(cmd).Success(resp.Product, func(w io.Writer) {
				fmt.Fprintf(w, "Product %s removed\n", resp.Product.ID)
			})
		},
	}
}

func newListProductsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp inventory.ListProductsResponse
			if err := opts.call(cmd, "inventory", "list-products", &inventory.ListProductsRequest{}, &resp); err != nil {
				return err
			}
			return opts.output(cmd).Success(resp, func(w io.Writer) {
				writeProducts(w, resp.Products)
			})
		},
	}
}

func newFreeCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "free",
		Short: "Manage free downloadable items",
	}
	cmd.AddCommand(newAddFreeItemCommand(opts))
	cmd.AddCommand(newRemoveFreeItemCommand(opts))
	cmd.AddCommand(newListFreeItemsCommand(opts))
	return cmd
}

func newAddFreeItemCommand(opts *RootOptions) *cobra.Command {
	var (
		req   inventory.AddFreeItemRequest
		stock int
	)

	cmd := &cobra.Command{
		Use:   "add-item",
		Short: "Add a free item; omit --stock for unlimited",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("stock") {
				req.Stock = &stock
			}
			var resp inventory.FreeItemResponse
			if err := opts.call(cmd, "inventory", "add-free-item", &req, &resp); err != nil {
				return err
			}
			return opts.output(cmd).Success(resp.FreeItem, func(w io.Writer) {
				fmt.Fprintf(w, "Free item %s created: %s\n", resp.FreeItem.ID, resp.FreeItem.Name)
			})
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "item name")
	cmd.Flags().StringVar(&req.Description, "description", "", "item description")
	cmd.Flags().StringVar(&req.Link, "link", "", "download link")
	cmd.Flags().IntVar(&stock, "stock", 0, "number of redemptions available")
	cmd.Flags().StringVar(&req.Image, "image", "", "image URL")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("link")

	return cmd
}

func newRemoveFreeItemCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-item <id>",
		Short: "Remove a free item and take down its message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp inventory.FreeItemResponse
			if err := opts.call(cmd, "inventory", "remove-free-item", &inventory.FreeItemRequest{ItemID: args[0]}, &resp); err != nil {
				return err
			}
			return opts.output(cmd).Success(resp.FreeItem, func(w io.Writer) {
				fmt.Fprintf(w, "Free item %s removed\n", resp.FreeItem.ID)
			})
		},
	}
}

func newListFreeItemsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List free items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp inventory.ListFreeItemsResponse
			if err := opts.call(cmd, "inventory", "list-free-items", &inventory.ListFreeItemsRequest{}, &resp); err != nil {
				return err
			}
			return opts.output(cmd).Success(resp, func(w io.Writer) {
				writeFreeItems(w, resp.FreeItems)
			})
		},
	}
}
