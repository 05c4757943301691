package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nephila016/emailvalidate/internal/classifier"
)

var listsCmd = &cobra.Command{
	Use:   "lists",
	Short: "Print the effective reference lists as YAML",
	Long: `Print the free provider, disposable provider, role prefix and blacklist
entries in use, as YAML. The output is a valid lists_file and can be edited
and passed back with --lists-file.

Examples:
  emailvalidate lists > lists.yaml
  emailvalidate serve --lists-file lists.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lists, blacklist, err := classifier.Load(cfg.ListsFile)
		if err != nil {
			return err
		}

		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(classifier.Export(lists, blacklist)); err != nil {
			return err
		}
		return enc.Close()
	},
}

func init() {
	rootCmd.AddCommand(listsCmd)
}
