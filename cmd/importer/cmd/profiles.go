package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"ledger-import-service/internal/parsers"
	"ledger-import-service/internal/reporter"
)

// profilesCmd represents the profiles command
var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Show the statement formats after applying configuration",
	Args:  cobra.NoArgs,
	RunE:  runProfiles,
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}

func runProfiles(cmd *cobra.Command, args []string) error {
	settings, _, err := loadSettings()
	if err != nil {
		return err
	}
	return printProfiles(settings.ProfileSet(), settings.ReportConfig().Format, cmd.OutOrStdout())
}

func printProfiles(ps *parsers.ProfileSet, format reporter.OutputFormat, out io.Writer) error {
	if format == reporter.FormatJSON {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(ps)
	}

	for _, p := range ps.All() {
		fmt.Fprintf(out, "%s (%s)\n", p.Kind, p.SourceLabel)
		switch p.Kind {
		case parsers.KindWallet:
			fmt.Fprintf(out, "  identifier:      %s\n", p.WalletIdentifier)
			fmt.Fprintf(out, "  default account: %s (%s)\n", p.DefaultAccount, p.DefaultAdministration)
			fmt.Fprintf(out, "  split fees:      %t\n", p.SplitFees)
		case parsers.KindCard:
			fmt.Fprintf(out, "  file prefixes:   %s\n", strings.Join(p.FilePrefixes, ", "))
			fmt.Fprintf(out, "  expense/credit:  %s / %s\n", p.ExpenseAccount, p.CreditAccount)
			fmt.Fprintf(out, "  settlement:      %s\n", p.SettlementAccount)
			if p.PrimaryIdentifier != "" {
				fmt.Fprintf(out, "  primary:         %s (%s)\n", p.PrimaryIdentifier, p.PrimaryAdministration)
			}
			fmt.Fprintf(out, "  min fields:      %d\n", p.MinFields)
		case parsers.KindBank:
			fmt.Fprintf(out, "  default account: %s (%s)\n", p.DefaultAccount, p.DefaultAdministration)
			fmt.Fprintf(out, "  min fields:      %d\n", p.MinFields)
		}
		fmt.Fprintf(out, "  columns:         %s\n\n", describeColumns(p.Columns))
	}
	return nil
}

func describeColumns(columns map[parsers.Column]parsers.ColumnSpec) string {
	names := make([]string, 0, len(columns))
	for col := range columns {
		names = append(names, string(col))
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		cs := columns[parsers.Column(name)]
		part := fmt.Sprintf("%s=%d", name, cs.Index)
		if len(cs.Aliases) > 0 {
			part += fmt.Sprintf("[%s]", strings.Join(cs.Aliases, "|"))
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, " ")
}
