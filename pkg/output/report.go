package output

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/fatih/color"
	"github.com/ritzau/notegraph/pkg/linkgraph"
)

// PrintLinkReport prints a colored summary of the vault's link structure:
// note count, cycles, unresolved references and orphans.
func PrintLinkReport(w io.Writer, vaultRoot string, lg *linkgraph.LinkGraph) {
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	bold.Fprintln(w, "notegraph - Link Report")
	bold.Fprintln(w, "=======================")
	fmt.Fprintf(w, "Vault: %s\n", vaultRoot)
	fmt.Fprintf(w, "Notes: %d\n", lg.Len())
	fmt.Fprintln(w)

	dangling := lg.Dangling()
	if len(dangling) > 0 {
		red.Fprintln(w, "UNRESOLVED LINKS:")
		for _, id := range sortedKeys(dangling) {
			yellow.Fprintf(w, "  %s\n", relative(vaultRoot, id))
			for _, ref := range dangling[id] {
				cyan.Fprintf(w, "    -> %s\n", ref)
			}
		}
		fmt.Fprintln(w)
	}

	cycles := lg.Cycles()
	if len(cycles) > 0 {
		yellow.Fprintln(w, "LINK CYCLES:")
		for i, c := range cycles {
			fmt.Fprintf(w, "  %d.", i+1)
			for _, id := range c.Notes {
				fmt.Fprintf(w, " %s", relative(vaultRoot, id))
			}
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w)
	}

	orphans := lg.Orphans()
	if len(orphans) > 0 {
		cyan.Fprintf(w, "ORPHANS (%d):\n", len(orphans))
		for _, id := range orphans {
			fmt.Fprintf(w, "  %s\n", relative(vaultRoot, id))
		}
		fmt.Fprintln(w)
	}

	if len(dangling) == 0 {
		green.Fprintf(w, "Summary: all links resolve (%d cycles, %d orphans)\n", len(cycles), len(orphans))
		return
	}
	red.Fprintf(w, "Summary: %d note(s) with unresolved links\n", len(dangling))
}

func relative(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return rel
	}
	return path
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
