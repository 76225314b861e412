package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"check-review-gateway/internal/services/review"
)

// terminalPresenter renders review state as lines of text. Colors are only
// used when out is a terminal.
type terminalPresenter struct {
	out io.Writer

	match    lipgloss.Style
	mismatch lipgloss.Style
	warning  lipgloss.Style
	failure  lipgloss.Style
	muted    lipgloss.Style
}

func newTerminalPresenter(out io.Writer) *terminalPresenter {
	r := lipgloss.NewRenderer(out)
	return &terminalPresenter{
		out:      out,
		match:    r.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		mismatch: r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		warning:  r.NewStyle().Foreground(lipgloss.Color("3")),
		failure:  r.NewStyle().Foreground(lipgloss.Color("1")),
		muted:    r.NewStyle().Faint(true),
	}
}

func (p *terminalPresenter) RenderTotal(ev review.Evaluation) {
	total := "$" + ev.Total.StringFixed(2)
	switch ev.Status {
	case review.StatusMatch:
		fmt.Fprintf(p.out, "Total: %s (matches expected $%s)\n", p.match.Render(total), ev.Expected.StringFixed(2))
	case review.StatusMismatch:
		fmt.Fprintf(p.out, "Total: %s\n", p.mismatch.Render(total))
		fmt.Fprintln(p.out, p.warning.Render(fmt.Sprintf("Expected $%s, difference $%s",
			ev.Expected.StringFixed(2), ev.Difference.StringFixed(2))))
	default:
		fmt.Fprintf(p.out, "Total: %s\n", total)
	}
}

func (p *terminalPresenter) RenderItem(review.Item) {}

func (p *terminalPresenter) SubmitControl(c review.Control) {
	if !c.Enabled {
		fmt.Fprintln(p.out, p.muted.Render(c.Label))
	}
}

func (p *terminalPresenter) Notify(n review.Notice) {
	switch n.Level {
	case review.NoticeError:
		fmt.Fprintln(p.out, p.failure.Render(n.String()))
	case review.NoticeWarning:
		fmt.Fprintln(p.out, p.warning.Render(n.String()))
	default:
		fmt.Fprintln(p.out, n.String())
	}
}

func (p *terminalPresenter) Navigate(string) {}
