package commands

import (
	"github.com/spf13/cobra"

	"npdetector/internal/ioformats"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Fetch every site and write one signal bundle per site",
	Long: `Scrape reads the organization list, fetches each home page (from the
page cache unless --refresh is set), extracts its signals and writes
<identifier>.json into the work directory. Every column of the input
becomes an override field on the bundle.`,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
	addFetchFlags(scrapeCmd.Flags())
}

func runScrape(cmd *cobra.Command, _ []string) error {
	if err := bindFlags(cmd, fetchKeys); err != nil {
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

	paths, err := s.runner.Scrape(ctx, orgs)
	s.Close()
	s.log.Infof("wrote %d of %d bundles to %s", len(paths), len(orgs), s.cfg.WorkDir)
	return err
}
