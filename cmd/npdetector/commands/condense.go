package commands

import (
	"github.com/spf13/cobra"

	"npdetector/internal/aggregate"
	"npdetector/internal/ioformats"
)

var condenseCmd = &cobra.Command{
	Use:   "condense",
	Short: "Condense every bundle in the work directory into a record",
	Long: `Condense reads every <identifier>.json bundle in the work directory,
writes <identifier>.md with the review record as YAML frontmatter, and
writes the corpus report counting navigation and footer link texts.`,
	RunE: runCondense,
}

func init() {
	rootCmd.AddCommand(condenseCmd)
	addReportFlags(condenseCmd)
}

func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().String("report", "", "report file (default <workdir>/npdetector.json)")
	cmd.Flags().Int("min-count", 0, "drop link texts counted fewer than this many times")
}

var reportKeys = map[string]string{
	"report":    "report",
	"min-count": "min_count",
}

func runCondense(cmd *cobra.Command, _ []string) error {
	if err := bindFlags(cmd, reportKeys); err != nil {
		return err
	}
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.runner.Condense(s.cfg.WorkDir); err != nil {
		return err
	}
	rep := s.runner.Report(aggregate.WithMinCount(s.cfg.MinCount))
	if err := ioformats.WriteReport(s.cfg.Report, rep); err != nil {
		return err
	}
	s.Close()
	s.log.Infof("condensed %d sites, %d errors, report at %s", len(rep.Sites), len(rep.ErrorLog), s.cfg.Report)
	return nil
}
