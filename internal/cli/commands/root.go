package commands

import (
	"fmt"
	"runtime"

	"github.com/conduit-lang/schemaviewer/internal/cli/config"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// globalOptions are the persistent flags shared by every subcommand
type globalOptions struct {
	configPath string
	noColor    bool
	demo       bool
	manifests  []string
}

// loadConfig reads the configuration and applies the persistent flag overrides
func (o *globalOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("demo") {
		cfg.Schema.Demo = o.demo
	}
	cfg.Schema.Manifests = append(cfg.Schema.Manifests, o.manifests...)
	return cfg, nil
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "schemaviewer",
		Short: "Browse the models, fields and relationships of a schema registry",
		Long: color.CyanString(`Schema Viewer - interactive model metadata browser

Schema Viewer loads the built-in apps, the demo app and any YAML model
manifests into a registry and serves them as JSON and as an HTML page.

Endpoints (below the mount prefix, /__schema by default):
  • /                          HTML viewer
  • /api/schema/               every model, grouped by app
  • /api/model/{app}/{model}/  one model with methods and managers`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file (default ./schemaviewer.yml)")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	flags.BoolVar(&opts.demo, "demo", false, "register the sample_app demo models")
	flags.StringSliceVarP(&opts.manifests, "manifest", "m", nil, "model manifest file or directory (repeatable)")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewServeCommand(opts))
	rootCmd.AddCommand(NewDumpCommand(opts))
	rootCmd.AddCommand(NewCheckCommand(opts))
	rootCmd.AddCommand(NewModelsCommand(opts))
	rootCmd.AddCommand(NewInitCommand(opts))

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the schemaviewer version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			out := cmd.OutOrStdout()
			titleColor := color.New(color.FgCyan, color.Bold)

			for _, line := range [][2]string{
				{"Schema Viewer version: ", Version},
				{"Git commit: ", GitCommit},
				{"Build date: ", BuildDate},
				{"Go version: ", goVer},
			} {
				titleColor.Fprint(out, line[0])
				fmt.Fprintln(out, line[1])
			}
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}
