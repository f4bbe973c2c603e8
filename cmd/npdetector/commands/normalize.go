package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"npdetector/internal/mdnormalize"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize [dir]",
	Short: "Align record frontmatter with a JSON schema's properties",
	Long: `Normalize rewrites the frontmatter of every .md record in dir (default:
the work directory) so that it lists the schema's properties first, in
schema order, with blank or missing values as null. Other non-null keys
are kept after them and the markdown body is left untouched.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runNormalize,
}

func init() {
	rootCmd.AddCommand(normalizeCmd)
	normalizeCmd.Flags().String("schema", "", "JSON schema file with a properties object")
}

func runNormalize(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, map[string]string{"schema": "schema"}); err != nil {
		return err
	}
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	if s.cfg.Schema == "" {
		return errors.New("normalize: --schema is required")
	}
	fields, err := mdnormalize.SchemaFields(s.cfg.Schema)
	if err != nil {
		return err
	}
	dir := s.cfg.WorkDir
	if len(args) == 1 {
		dir = args[0]
	}
	lines, err := mdnormalize.NormalizeDir(dir, fields)
	s.Close()
	for _, l := range lines {
		fmt.Fprintln(cmd.OutOrStdout(), l)
	}
	return err
}
