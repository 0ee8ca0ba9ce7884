package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/sentcheck/internal/policy"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// policiesCmd represents the policies command
var policiesCmd = &cobra.Command{
	Use:   "policies",
	Short: "List strictness levels",
	Long:  `Print the active rule set with each level's root tags and validity law, after config overrides.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}

		table, err := buildTable(cfg.Policy)
		if err != nil {
			return err
		}

		printPolicies(cmd.OutOrStdout(), table, cfg.Policy.Default)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(policiesCmd)
}

func printPolicies(w io.Writer, table *policy.Table, defaultLevel string) {
	fmt.Fprintf(w, "Rule set: %s\n\n", table.Name)
	for _, p := range table.Policies() {
		marker := " "
		if strings.EqualFold(p.Name, defaultLevel) {
			marker = "*"
		}

		tags := make([]string, len(p.RootTags))
		for i, t := range p.RootTags {
			tags[i] = string(t)
		}

		fmt.Fprintf(w, "%s %-9s root tags: %s\n", marker, p.Name, strings.Join(tags, " "))
		if len(p.SubjectTags) > 0 {
			subj := make([]string, len(p.SubjectTags))
			for i, t := range p.SubjectTags {
				subj[i] = string(t)
			}
			fmt.Fprintf(w, "  %-9s subject tags: %s\n", "", strings.Join(subj, " "))
		}
		fmt.Fprintf(w, "  %-9s valid when: %s\n", "", p.Law())
	}
}
