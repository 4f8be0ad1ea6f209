package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/conduit-lang/schemaviewer/internal/cli/config"
	"github.com/conduit-lang/schemaviewer/internal/cli/ui"
	"github.com/spf13/cobra"
)

type initOptions struct {
	output string
	yes    bool
	force  bool
}

// NewInitCommand creates the init command
func NewInitCommand(global *globalOptions) *cobra.Command {
	opts := &initOptions{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a schemaviewer.yml config file",
		Long: `Interactively create a config file. With --yes the defaults are written without
prompting.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(opts.output); err == nil && !opts.force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", opts.output)
			}

			cfg := config.Default()
			if !opts.yes {
				if err := promptConfig(cfg); err != nil {
					return err
				}
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			if err := config.Save(cfg, opts.output); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Created "+opts.output, global.noColor))
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", config.FileName+".yml", "config file to write")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "accept the defaults without prompting")
	cmd.Flags().BoolVar(&opts.force, "force", false, "overwrite an existing file")

	return cmd
}

func promptConfig(cfg *config.Config) error {
	if err := survey.AskOne(&survey.Input{
		Message: "Host:",
		Default: cfg.Server.Host,
	}, &cfg.Server.Host, survey.WithValidator(survey.Required)); err != nil {
		return err
	}

	portStr := strconv.Itoa(cfg.Server.Port)
	if err := survey.AskOne(&survey.Input{
		Message: "Port:",
		Default: portStr,
	}, &portStr, survey.WithValidator(validatePort)); err != nil {
		return err
	}
	cfg.Server.Port, _ = strconv.Atoi(portStr)

	if err := survey.AskOne(&survey.Input{
		Message: "Mount prefix (empty to mount at /):",
		Default: cfg.Server.MountPrefix,
	}, &cfg.Server.MountPrefix); err != nil {
		return err
	}

	if err := survey.AskOne(&survey.Confirm{
		Message: "Register the demo sample_app models?",
		Default: cfg.Schema.Demo,
	}, &cfg.Schema.Demo); err != nil {
		return err
	}

	var manifests string
	if err := survey.AskOne(&survey.Input{
		Message: "Model manifests (comma-separated files or directories):",
	}, &manifests); err != nil {
		return err
	}
	cfg.Schema.Manifests = splitList(manifests)

	if len(cfg.Schema.Manifests) > 0 {
		if err := survey.AskOne(&survey.Confirm{
			Message: "Reload manifests when they change?",
			Default: cfg.Schema.Watch,
		}, &cfg.Schema.Watch); err != nil {
			return err
		}
	}

	if err := survey.AskOne(&survey.Select{
		Message: "API response cache:",
		Options: []string{"none", "memory", "redis"},
		Default: cfg.Cache.Backend,
	}, &cfg.Cache.Backend); err != nil {
		return err
	}
	if cfg.Cache.Backend == "redis" {
		if err := survey.AskOne(&survey.Input{
			Message: "Redis address:",
			Default: cfg.Cache.Redis.Addr,
		}, &cfg.Cache.Redis.Addr, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}

	return survey.AskOne(&survey.Select{
		Message: "Log format:",
		Options: []string{"console", "json"},
		Default: cfg.Log.Format,
	}, &cfg.Log.Format)
}

func validatePort(ans interface{}) error {
	s, _ := ans.(string)
	port, err := strconv.Atoi(s)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("port must be a number between 1 and 65535")
	}
	return nil
}

func splitList(s string) []string {
	items := make([]string, 0)
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
