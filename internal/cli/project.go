package cli

import (
	"fmt"
	"io"

	"github.com/example/catalog-engine/modules/interaction"
	"github.com/example/catalog-engine/modules/inventory"
	"github.com/example/catalog-engine/modules/notification"
	"github.com/example/catalog-engine/modules/storage"
	"github.com/spf13/cobra"
)

func newProjectCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage portfolio projects",
	}

	var add inventory.AddProjectRequest
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a portfolio project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp inventory.ProjectResponse
			if err := opts.call(cmd, "inventory", "add-project", &add, &resp); err != nil {
				return err
			}
			return opts.output(cmd).Success(resp.Project, func(w io.Writer) {
				fmt.Fprintf(w, "Project %s created: %s\n", resp.Project.ID, resp.Project.Name)
			})
		},
	}
	addCmd.Flags().StringVar(&add.Name, "name", "", "project name")
	addCmd.Flags().StringVar(&add.Description, "description", "", "project description")
	addCmd.Flags().StringVar(&add.URL, "url", "", "project URL")
	addCmd.Flags().StringVar(&add.Image, "image", "", "image URL")
	addCmd.Flags().StringVar(&add.Client, "client", "", "client name")
	_ = addCmd.MarkFlagRequired("name")
	_ = addCmd.MarkFlagRequired("description")
	cmd.AddCommand(addCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a portfolio project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp inventory.ProjectResponse
			if err := opts.call(cmd, "inventory", "remove-project", &inventory.ProjectRequest{ProjectID: args[0]}, &resp); err != nil {
				return err
			}
			return opts.output(cmd).Success(resp.Project, func(w io.Writer) {
				fmt.Fprintf(w, "Project %s removed\n", resp.Project.ID)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List portfolio projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp inventory.ListProjectsResponse
			if err := opts.call(cmd, "inventory", "list-projects", &inventory.ListProjectsRequest{}, &resp); err != nil {
				return err
			}
			return opts.output(cmd).Success(resp, func(w io.Writer) {
				writeProjects(w, resp.Projects)
			})
		},
	})

	return cmd
}

func newClickCommand(opts *RootOptions) *cobra.Command {
	var req interaction.DispatchRequest

	cmd := &cobra.Command{
		Use:   "click",
		Short: "Dispatch a control click as if a user pressed it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp interaction.DispatchResponse
			if err := opts.call(cmd, "interaction", "dispatch", &req, &resp); err != nil {
				return err
			}
			return opts.output(cmd).Success(resp.Response, func(w io.Writer) {
				fmt.Fprintf(w, "[%s] %s\n", resp.Response.Result, resp.Response.Message)
			})
		},
	}

	cmd.Flags().StringVar(&req.Token, "token", "", "control token")
	cmd.Flags().StringVar(&req.UserID, "user", "", "clicking user id")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newAuditCommand(opts *RootOptions) *cobra.Command {
	var req notification.ListAuditRequest

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the most recent audit entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp notification.ListAuditResponse
			if err := opts.call(cmd, "notification", "list-audit", &req, &resp); err != nil {
				return err
			}
			return opts.output(cmd).Success(resp, func(w io.Writer) {
				writeAudit(w, resp.Entries)
			})
		},
	}
	cmd.Flags().IntVar(&req.Limit, "limit", 20, "number of entries, 0 for all")

	return cmd
}

func newStatsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show entity counts of the active store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp storage.StatsResponse
			if err := opts.call(cmd, "storage", "stats", &storage.StatsRequest{}, &resp); err != nil {
				return err
			}
			return opts.output(cmd).Success(resp, func(w io.Writer) {
				fmt.Fprintf(w, "Backend:      %s\n", resp.Backend)
				fmt.Fprintf(w, "Products:     %d\n", resp.Products)
				fmt.Fprintf(w, "Free items:   %d\n", resp.FreeItems)
				fmt.Fprintf(w, "Cart entries: %d\n", resp.CartEntries)
				fmt.Fprintf(w, "Purchases:    %d\n", resp.Purchases)
				fmt.Fprintf(w, "Projects:     %d\n", resp.Projects)
			})
		},
	}
}
