package plan

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/yurifrl/ezimport/pkg/importer"
	"github.com/yurifrl/ezimport/pkg/reconcile"
)

var (
	syncedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // gray
	addedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
)

// Print writes a human readable preview of the report followed by the
// planned category creations and a summary line.
func (p *Plan) Print(w io.Writer, report *importer.Report) {
	for _, e := range report.Entries {
		line := fmt.Sprintf("%s | %-8s | %-30s | %-20s | %s", e.Date, e.Kind, importer.Truncate(e.Description, 30), e.ID, e.Amount.StringFixed(2))
		switch {
		case e.Failed():
			fmt.Fprintln(w, failedStyle.Render("! "+line+" | "+e.Err.Error()))
		case e.Status == reconcile.Synced:
			fmt.Fprintln(w, syncedStyle.Render("= "+line))
		default:
			fmt.Fprintln(w, addedStyle.Render("+ "+line))
		}
	}

	for _, c := range p.Categories {
		fmt.Fprintln(w, addedStyle.Render(fmt.Sprintf("+ category %s (type %d, parent %s)", c.Name, c.Type, c.ParentID)))
	}

	toAdd, synced := report.Count(reconcile.ToAdd), report.Count(reconcile.Synced)
	if toAdd == 0 {
		fmt.Fprintf(w, "\nPlan: all %d record(s) are in sync\n", synced)
		return
	}
	fmt.Fprintf(w, "\nPlan: %d transaction(s) and %d transfer(s) will be added, %d new categories, %d already in sync\n",
		p.Stats.NewTransactions, p.Stats.NewTransfers, len(p.Categories), synced)
}
