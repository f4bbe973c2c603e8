package commands

import (
	"github.com/spf13/cobra"

	"npdetector/internal/aggregate"
	"npdetector/internal/ioformats"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scrape then condense in one pass",
	RunE:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	addFetchFlags(runCmd.Flags())
	addReportFlags(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	keys := map[string]string{}
	for f, k := range fetchKeys {
		keys[f] = k
	}
	for f, k := range reportKeys {
		keys[f] = k
	}
	if err := bindFlags(cmd, keys); err != nil {
		return err
	}
	s, err := openSession(cmd, true)
	if err != nil {
		return err
	}
	defer s.Close()

	orgs, err := ioformats.ReadOrgs(s.cfg.Input)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(cmd)
	defer cancel()

	rep, err := s.runner.Run(ctx, orgs, aggregate.WithMinCount(s.cfg.MinCount))
	if err != nil {
		return err
	}
	s.Close()
	s.log.Infof("processed %d sites, %d errors, report at %s", len(rep.Sites), len(rep.ErrorLog), s.cfg.Report)
	return nil
}
