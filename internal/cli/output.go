package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/example/catalog-engine/domain/catalog"
	"github.com/example/catalog-engine/modules/notification"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the engine rejected or failed the request
	ExitCommandError = 2 // bad flags or no connection
)

// ExitError is an error carrying the process exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error, ExitFailure by default.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter writes command results as JSON or text.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// CLIResponse is the JSON envelope of every successful command.
type CLIResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

// Success writes data. In text mode render is used instead of the raw value.
func (f *OutputFormatter) Success(data any, render func(w io.Writer)) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	render(f.Writer)
	return nil
}

func writeProducts(w io.Writer, products []catalog.Product) {
	if len(products) == 0 {
		fmt.Fprintln(w, "No products.")
		return
	}
	fmt.Fprintf(w, "%-10s %-24s %12s %6s\n", "ID", "NAME", "PRICE", "STOCK")
	for _, p := range products {
		fmt.Fprintf(w, "%-10s %-24s %12s %6d\n", p.ID, p.Name, "R$ "+p.Price, p.Stock)
	}
}

func writeFreeItems(w io.Writer, items []catalog.FreeItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No free items.")
		return
	}
	fmt.Fprintf(w, "%-10s %-24s %9s  %s\n", "ID", "NAME", "AVAILABLE", "LINK")
	for _, it := range items {
		avail := "unlimited"
		if it.Stock != nil {
			avail = fmt.Sprintf("%d", *it.Stock)
		}
		fmt.Fprintf(w, "%-10s %-24s %9s  %s\n", it.ID, it.Name, avail, it.DownloadLink)
	}
}

func writeCarts(w io.Writer, carts []catalog.Cart) {
	if len(carts) == 0 {
		fmt.Fprintln(w, "All carts are empty.")
		return
	}
	for _, c := range carts {
		fmt.Fprintf(w, "%s (%d)\n", c.UserID, len(c.Entries))
		for _, e := range c.Entries {
			fmt.Fprintf(w, "  - %s %s R$ %s\n", e.ProductID, e.ProductName, e.Price)
		}
	}
}

func writePurchases(w io.Writer, records []catalog.PurchaseRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No purchases recorded.")
		return
	}
	fmt.Fprintf(w, "%-10s %-16s %12s  %s\n", "ID", "BUYER", "AMOUNT", "DESCRIPTION")
	for _, r := range records {
		fmt.Fprintf(w, "%-10s %-16s %12s  %s\n", r.ID, r.BuyerID, "R$ "+r.Amount, r.ProductDescription)
	}
}

func writeProjects(w io.Writer, projects []catalog.Project) {
	if len(projects) == 0 {
		fmt.Fprintln(w, "No projects.")
		return
	}
	for _, p := range projects {
		fmt.Fprintf(w, "%-10s %s", p.ID, p.Name)
		if p.Client != "" {
			fmt.Fprintf(w, " (%s)", p.Client)
		}
		fmt.Fprintln(w)
	}
}

func writeAudit(w io.Writer, entries []notification.AuditEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "Audit log is empty.")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s %-18s %s\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.Action, e.Message)
	}
}
