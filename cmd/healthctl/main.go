package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"

	"swasthai/internal/config"
)

const appName = "swasthai"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOpts struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOpts{}
	root := &cobra.Command{
		Use:           "healthctl",
		Short:         "Operate the swasthai health reminder service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default $XDG_CONFIG_HOME/swasthai/config.yaml, then ./config.json)")

	root.AddCommand(
		newScanCmd(opts),
		newMembersCmd(opts),
		newNotificationsCmd(opts),
		newCalendarCmd(opts),
		newConfigCmd(opts),
		newServiceCmd(),
	)
	return root
}

// resolveConfigPath prefers the flag, then the XDG config file, then ./config.json.
func (o *rootOpts) resolveConfigPath() string {
	if p := strings.TrimSpace(o.configPath); p != "" {
		return p
	}
	for _, name := range []string{"config.yaml", "config.yml", "config.json"} {
		if p, err := xdg.SearchConfigFile(appName + "/" + name); err == nil {
			return p
		}
	}
	return "./config.json"
}

func (o *rootOpts) load() (*config.Config, error) {
	path := o.resolveConfigPath()
	cfg, err := config.NewManager(path).Load()
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}
