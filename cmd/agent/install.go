package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Guliveer/vitalis/secagent/internal/autostart"
)

func newServiceCmd(opts *rootOptions, manager func() autostart.Manager) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the agent as a boot-time OS service",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "install",
		Short: "Install and start the service",
		RunE: func(c *cobra.Command, _ []string) error {
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("locating executable: %w", err)
			}
			var args []string
			if c.Flags().Changed("config") {
				path, err := filepath.Abs(opts.configPath)
				if err != nil {
					return err
				}
				args = append(args, "--config", path)
			}
			m := manager()
			if err := m.Install(exe, args...); err != nil {
				return err
			}
			fmt.Fprintf(c.OutOrStdout(), "%s installed\n", m.ServiceName())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "uninstall",
		Short: "Stop and remove the service",
		RunE: func(c *cobra.Command, _ []string) error {
			m := manager()
			if err := m.Uninstall(); err != nil {
				return err
			}
			fmt.Fprintf(c.OutOrStdout(), "%s removed\n", m.ServiceName())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Report whether the service is installed",
		RunE: func(c *cobra.Command, _ []string) error {
			m := manager()
			installed, err := m.IsInstalled()
			if err != nil {
				return err
			}
			state := "not installed"
			if installed {
				state = "installed"
			}
			fmt.Fprintf(c.OutOrStdout(), "%s %s\n", m.ServiceName(), state)
			return nil
		},
	})
	return cmd
}
