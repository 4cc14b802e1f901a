package serve

import (
	"context"
	cmdUtil "github.com/ValentinKolb/dIPC/cmd/util"
	"github.com/ValentinKolb/dIPC/rpc/common"
	"github.com/ValentinKolb/dIPC/rpc/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"os/signal"
	"syscall"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	serveWorkers   = 64
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Run the main instance of a session",
		Long:    `Run the main instance of a session. Clients and workers of the session connect to it via <session>/ipc.sock (or --endpoint). The configuration can be set via command line flags or environment variables. The format of the environment variables is DIPC_<flag> (e.g. DIPC_TIMEOUT=15)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	key := "session"
	ServeCmd.PersistentFlags().String(key, cmdUtil.DefaultSessionDir(), cmdUtil.WrapString("The session directory, the main instance listens on <session>/ipc.sock"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Overrides the address to listen on (socket path, or host:port for tcp)"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 5, cmdUtil.WrapString("Timeout in seconds for writing a response"))

	key = "max-frame-size"
	ServeCmd.PersistentFlags().Int(key, common.DefaultMaxFrameSize, cmdUtil.WrapString("Maximum size of a single frame in bytes"))

	key = "workers"
	ServeCmd.PersistentFlags().Int(key, 64, cmdUtil.WrapString("Maximum number of calls handled concurrently per channel"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.SessionDir = viper.GetString("session")
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.Transport = viper.GetString("transport")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.MaxFrameSize = viper.GetInt("max-frame-size")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveWorkers = viper.GetInt("workers")

	return common.InitLoggers(serveCmdConfig.LogLevel)
}

// run starts the main instance and blocks until it receives SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	s, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}

	t, err := cmdUtil.GetServerTransport(serveCmdConfig, s, serveWorkers)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serv := server.NewRPCServer(*serveCmdConfig, t)
	return serv.Serve(ctx)
}
