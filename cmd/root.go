package cmd

import (
	"fmt"
	"github.com/ValentinKolb/dIPC/cmd/call"
	"github.com/ValentinKolb/dIPC/cmd/serve"
	"github.com/ValentinKolb/dIPC/cmd/util"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dipc",
		Short: "inter-process calls to a session's main instance",
		Long: fmt.Sprintf(`dIPC (v%s)

Lets any number of worker processes call functions of one long-lived
main instance per session over a local socket. Calls are multiplexed over
a single channel per process, a persistent client restarts the main
instance if it goes away.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dIPC",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dIPC v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(call.ClientCommands...)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "binary", util.WrapString("serializer to use (json, gob, binary), must match the main instance"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "unix", util.WrapString("transport to use (unix, tcp)"))
	key = "log-level"
	RootCmd.PersistentFlags().String(key, "info", util.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
