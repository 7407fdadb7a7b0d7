package command

import (
	"fmt"
	"io"
	"strings"

	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/blueprint"
	"github.com/fatih/color"
)

var (
	errorColor = color.RGB(229, 50, 50)
	okColor    = color.RGB(50, 168, 82)
	dimColor   = color.New(color.Faint)
)

// renderFindings prints one line per finding, grouped by entity.
func renderFindings(w io.Writer, findings []blueprint.MissingRequirement) {
	if len(findings) == 0 {
		fmt.Fprintln(w, okColor.Sprint("Valid!"), "no missing requirements.")
		return
	}
	fmt.Fprintln(w, errorColor.Sprintf("Incomplete!"), pluralize(len(findings), "missing requirement"))
	last := ""
	for _, f := range findings {
		if f.EntityID != last {
			fmt.Fprintln(w, Highlight("%s", f.EntityID))
			last = f.EntityID
		}
		fmt.Fprintf(w, "  %s %s: %s\n", errorColor.Sprint("✗"), f.Path, f.Reason)
		if len(f.Options) > 0 {
			fmt.Fprintln(w, dimColor.Sprintf("    options: %s", strings.Join(f.Options, ", ")))
		}
	}
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
