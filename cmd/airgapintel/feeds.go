package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"airgapintel/pkg/catalog"
	"airgapintel/pkg/ui"
)

// feedsCmd represents the feeds command
var feedsCmd = &cobra.Command{
	Use:   "feeds",
	Short: "List the feeds a run would download",
	Long: `Print the resolved catalog grouped by category, in the order a run processes
it. With --sources the given YAML catalog is shown instead of the built-in one.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := make(map[string]interface{})
		if cmd.Flags().Changed("sources") {
			flags["sources"] = sourcesFile
		}
		cfg, err := loadConfig(cmd, flags)
		if err != nil {
			return err
		}

		entries, err := loadCatalog(cfg)
		if err != nil {
			return err
		}
		printCatalog(entries)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(feedsCmd)
	feedsCmd.Flags().StringVar(&sourcesFile, "sources", "", "YAML catalog replacing the built-in feed list")
}

func printCatalog(entries []catalog.Entry) {
	for _, cat := range catalog.Categories(entries) {
		fmt.Printf("\n%s\n", ui.Magenta(string(cat)))
		for _, e := range entries {
			if e.Category != cat {
				continue
			}
			kind := string(e.Kind)
			if e.DatePolicy != "" && e.DatePolicy != "none" {
				kind += ", dated by " + e.DatePolicy
			}
			fmt.Printf("  %s %s\n", e.Name, ui.Dim("("+kind+")"))
			fmt.Printf("    %s\n", ui.Dim(e.URL))
		}
	}
	fmt.Printf("\n%d feeds in %d categories\n", len(entries), len(catalog.Categories(entries)))
}
