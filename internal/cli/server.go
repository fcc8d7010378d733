package cli

import (
	"fmt"
	"time"

	"github.com/promptping-ai/pull-request-ping/internal/server"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Manage the prping daemon",
	Long:  `Start, stop, and manage the prping background daemon.`,
}

var foregroundFlag bool
var portFlag int

func init() {
	serverCmd.AddCommand(serverStartCmd)
	serverCmd.AddCommand(serverStopCmd)
	serverCmd.AddCommand(serverStatusCmd)
	serverCmd.AddCommand(serverInstallCmd)
	serverCmd.AddCommand(serverPollCmd)

	serverStartCmd.Flags().BoolVar(&foregroundFlag, "foreground", false, "Run in foreground (don't daemonize)")
	serverStartCmd.Flags().IntVar(&portFlag, "port", 0, "Server port (default from config or 4098)")
}

var serverStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the prping daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		port := portFlag
		if port == 0 {
			port = appConfig.Server.Port
		}
		if port == 0 {
			port = 4098
		}

		return server.StartDaemon(port, appConfig.Server.PIDDir, "", foregroundFlag)
	},
}

var serverStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the prping daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := server.StopDaemon(appConfig.Server.PIDDir); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "daemon stopped")
		return nil
	},
}

var serverStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	RunE: func(cmd *cobra.Command, args []string) error {
		running, pid, uptime, err := server.DaemonStatus(appConfig.Server.PIDDir)
		if err != nil {
			return err
		}

		if running {
			fmt.Fprintf(cmd.OutOrStdout(), "daemon is running (PID %d, uptime %s)\n", pid, uptime.Round(time.Second))
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "daemon is not running")
		}
		return nil
	},
}

var serverInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install as systemd user service",
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.InstallSystemdService()
	},
}

var serverPollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Ask the running daemon for an immediate ingestion cycle",
	RunE: func(cmd *cobra.Command, args []string) error {
		port := appConfig.Server.Port
		if port == 0 {
			port = 4098
		}
		if err := server.RequestPoll(cmd.Context(), port); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "poll requested")
		return nil
	},
}
