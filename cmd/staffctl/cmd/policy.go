package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/studio-ops/studio-erp/internal/access"
)

var (
	policyFile  string
	policyCheck string
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Show the role access policy",
	Long: `Prints the prefixes each role may reach. With --file the override is
validated the same way the server validates it at startup. With --check the
verdict for a single path is printed per role.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := policyFile
		if path == "" {
			path = os.Getenv("ACCESS_POLICY_FILE")
		}
		table, err := access.LoadTable(path)
		if err != nil {
			return fmt.Errorf("invalid policy: %w", err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		if policyCheck != "" {
			_, _ = fmt.Fprintf(w, "ROLE\t%s\n", policyCheck)
			for _, role := range table.Roles() {
				verdict := "deny"
				if table.Lookup(role).Allows(policyCheck) {
					verdict = "allow"
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\n", role, verdict)
			}
			return w.Flush()
		}

		_, _ = fmt.Fprintln(w, "ROLE\tPREFIXES")
		for _, role := range table.Roles() {
			p := table.Lookup(role)
			prefixes := access.Wildcard
			if !p.IsWildcard() {
				prefixes = strings.Join(p.List(), " ")
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\n", role, prefixes)
		}
		return w.Flush()
	},
}

func init() {
	policyCmd.Flags().StringVar(&policyFile, "file", "", "Policy YAML to validate (defaults to ACCESS_POLICY_FILE)")
	policyCmd.Flags().StringVar(&policyCheck, "check", "", "Print each role's verdict for this path")
}
