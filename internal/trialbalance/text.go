package trialbalance

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// RenderText writes the view model as a plain text report.
func RenderText(out io.Writer, vm ViewModel) error {
	if _, err := fmt.Fprintf(out, "%s\n%s\nTotal Debit: %s\nTotal Credit: %s\n\n",
		vm.Title, vm.Banner.Label, vm.Banner.TotalDebit, vm.Banner.TotalCredit); err != nil {
		return err
	}
	if vm.ShowSpinner {
		_, err := fmt.Fprintln(out, "Loading...")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "Account Name\tCode\tType\tDebit\tCredit\tNet Balance")
	for _, row := range vm.Rows {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", row.Name, row.Code, row.Type, row.Debit, row.Credit, row.Balance)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if vm.Error != "" {
		if _, err := fmt.Fprintf(out, "\nerror: %s\n", vm.Error); err != nil {
			return err
		}
	}
	return nil
}
