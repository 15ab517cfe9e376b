package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/csv2oltp/internal/core"
)

var tablesCmd = &cobra.Command{
	Use:   "tables [name]",
	Short: "List registered tables in load order",
	Long: `Tables lists every registered table with its position in the load
order, source file and uniqueness key. With a name, only that table is
shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTables,
}

func init() {
	rootCmd.AddCommand(tablesCmd)
}

func runTables(cmd *cobra.Command, args []string) error {
	descs := core.All()
	if len(args) == 1 {
		desc, ok := core.Get(args[0])
		if !ok {
			return fmt.Errorf("unknown table %q", args[0])
		}
		descs = []core.TableDescriptor{desc}
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tTABLE\tFILE\tKEY")
	for _, desc := range descs {
		fmt.Fprintf(tw, "%d\t%s\t%s.csv\t%s\n", loadPosition(desc.Name), desc.Name, desc.Name, strings.Join(desc.Key, ", "))
	}
	return tw.Flush()
}

// loadPosition returns the 1-based position of name in the load order.
func loadPosition(name string) int {
	for i, desc := range core.All() {
		if desc.Name == name {
			return i + 1
		}
	}
	return 0
}
