package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"airgapintel/pkg/manifest"
	"airgapintel/pkg/ui"
)

// verifyCmd re-hashes a feed tree against its manifest, typically on the
// disconnected side after transfer
var verifyCmd = &cobra.Command{
	Use:   "verify [directory]",
	Short: "Check a feed tree against its manifest.json",
	Long: `Re-hash every file listed in manifest.json and report anything missing,
truncated or modified. Run it on the disconnected side after the transfer.

The directory defaults to the configured output directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := ""
		if len(args) == 1 {
			root = args[0]
		} else {
			cfg, err := loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			root = cfg.Output.BaseDirectory
		}

		m, err := manifest.Load(filepath.Join(root, manifest.FileName))
		if err != nil {
			return err
		}

		ui.PrintInfo("Run", m.RunID)
		ui.PrintInfo("Generated", m.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
		ui.PrintInfo("Files", fmt.Sprintf("%d (%s)", len(m.Files), ui.FormatBytes(m.TotalSize())))

		problems := manifest.Verify(root, m)
		if len(problems) == 0 {
			ui.PrintSuccess("All files match the manifest")
			return nil
		}

		for _, p := range problems {
			fmt.Printf("  %s %s: %s\n", ui.Red("✗"), p.Path, p.Detail)
		}
		return fmt.Errorf("%d of %d files do not match the manifest", len(problems), len(m.Files))
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
