// Package cli implements catalogctl, the operator command line for a running
// catalog engine.
package cli

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	NATSURL string
	Timeout time.Duration
	Format  string // "json" | "text"

	dial Dialer
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command talking to NATS.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWithDialer(DialNATS)
}

// NewRootCommandWithDialer creates the root command using dial to reach
// the engine.
func NewRootCommandWithDialer(dial Dialer) *cobra.Command {
	opts := &RootOptions{dial: dial}

	cmd := &cobra.Command{
		Use:   "catalogctl",
		Short: "Operate a running catalog engine",
		Long: `catalogctl manages products, free items, carts, the purchase ledger and
portfolio projects of a running catalog engine over NATS request-reply.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if opts.Timeout <= 0 {
				return NewExitError(ExitCommandError, "--timeout must be positive")
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.NATSURL, "nats-url", "nats://127.0.0.1:4222", "NATS server URL")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 5*time.Second, "request timeout")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newCatalogCommand(opts))
	cmd.AddCommand(newFreeCommand(opts))
	cmd.AddCommand(newCartCommand(opts))
	cmd.AddCommand(newPurchaseCommand(opts))
	cmd.AddCommand(newProjectCommand(opts))
	cmd.AddCommand(newClickCommand(opts))
	cmd.AddCommand(newAuditCommand(opts))
	cmd.AddCommand(newStatsCommand(opts))

	return cmd
}

// call sends one request to services.<module>.<service> and decodes the reply.
func (o *RootOptions) call(cmd *cobra.Command, module, service string, req, resp any) error {
	client, err := o.dial(o.NATSURL)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to connect to NATS", err)
	}
	defer client.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()

	if err := client.Request(ctx, Subject(module, service), req, resp); err != nil {
		return WrapExitError(ExitFailure, service+" failed", err)
	}
	return nil
}

func (o *RootOptions) output(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}
