// assessmentctl is the operator CLI for the assessment pipeline.
//
// Usage:
//
//	assessmentctl score -f answers.json [--catalog=<file>] [--json]
//	assessmentctl process <submission-id> [--config=<file>]
//	assessmentctl token process <submission-id> [--config=<file>]
//	assessmentctl catalog validate <file>
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"assessment-pipeline/internal/common/config"
)

// version is set at build time via -ldflags.
var version = "dev"

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "assessmentctl",
		Short:         "Operate the compliance maturity assessment pipeline",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: configs/config.yaml lookup)")

	root.AddCommand(newScoreCmd())
	root.AddCommand(newProcessCmd(opts))
	root.AddCommand(newTokenCmd(opts))
	root.AddCommand(newCatalogCmd())
	return root
}

func (o *rootOptions) load() (*config.Config, error) {
	if o.configPath != "" {
		return config.LoadFromFile(o.configPath)
	}
	return config.Load()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
