package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/eodex/internal/extract"
	"github.com/nhle/eodex/internal/model"
	"github.com/nhle/eodex/internal/output"
)

// demoMessages are processed by "eodex demo" so the extraction and output
// stages can be tried without a mailbox.
var demoMessages = []model.EmailMessage{
	{
		UID:     101,
		Subject: "Daily Status Update - 2024-01-15",
		From:    "John",
		Date:    time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC),
		Body: `Hi Team,

Here's my daily status update:

EOD:
- Checking tracker and tickets-20 min
- Team meeting and discussion-30 min
- TLS #49172 - TLS Error- 01:25 hrs
- Discussion with Ritu regarding their ticket-45 min

Thanks,
John
`,
	},
	{
		UID:     102,
		Subject: "Weekly Summary - 2024-01-16",
		From:    "Sarah",
		Date:    time.Date(2024, 1, 16, 17, 0, 0, 0, time.UTC),
		Body: `Team,

End of Day Summary:
• Code review session - 45 min
• Bug fix for issue #12345 - 2.5 hrs
• Client meeting preparation - 30min
• Database optimization task - 01:15 hrs

Best regards,
Sarah
`,
	},
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the extractor over built-in sample emails.",
	Long: `Runs extraction over two built-in sample emails using the parsing rules
from the config file (or the defaults when no config exists). No network
connection is made.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := model.LoadConfig(configPath)
		if err != nil {
			return err
		}

		format, err := resolveFormat(cfg)
		if err != nil {
			return err
		}

		rules, err := extract.NewRuleset(
			cfg.Parsing.EODKeywords,
			cfg.Parsing.TimePatterns,
			cfg.Parsing.SectionEndMarkers,
		)
		if err != nil {
			return err
		}

		var results []model.Extraction
		for _, msg := range demoMessages {
			section := rules.Extract(msg.Body)
			if section == nil {
				continue
			}
			results = append(results, model.Extraction{
				EmailID: msg.ID(),
				Subject: msg.Subject,
				Date:    msg.Date,
				Section: *section,
			})
		}

		return output.WriteFile(outputPath, cmd.OutOrStdout(), results, format)
	},
}
