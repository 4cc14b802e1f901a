package call

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dIPC/cmd/util"
	"github.com/ValentinKolb/dIPC/lib/session"
	"github.com/ValentinKolb/dIPC/rpc/client"
	"github.com/ValentinKolb/dIPC/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
)

var (
	rpcClient *client.Client

	// ClientCommands are all commands that talk to a main instance
	ClientCommands = []*cobra.Command{callCmd, pingCmd, statsCmd, perfTestCmd}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	for _, cmd := range ClientCommands {
		util.SetupClientFlags(cmd)
		cmd.PersistentFlags().Bool("metrics", false, util.WrapString("Print the client metrics (prometheus format) to stderr when done"))
		cmd.PersistentPreRunE = setupClient
		cmd.PersistentPostRunE = teardownClient
	}
}

// setupClient connects the client, the main instance is started first if --spawn is set
func setupClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	config := util.GetClientConfig()
	if err := common.InitLoggers(config.LogLevel); err != nil {
		return err
	}

	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	dialer, err := util.GetDialer(config, s)
	if err != nil {
		return err
	}

	opts := []client.Option{client.WithDialer(dialer)}
	if config.Endpoint == "" {
		opts = append(opts, client.WithSession(session.New(config.SessionDir)))
	}
	if viper.GetBool("spawn") {
		if config.Transport == common.TransportTCP {
			return fmt.Errorf("--spawn is only supported for the unix transport")
		}
		opts = append(opts, client.WithStarter(session.NewProcessStarter(
			"--serializer", viper.GetString("serializer"),
			"--log-level", config.LogLevel,
		)))
	}

	rpcClient = client.NewClient(*config, opts...)
	return rpcClient.Connect(context.Background())
}

// teardownClient disconnects the client
func teardownClient(_ *cobra.Command, _ []string) error {
	if rpcClient == nil {
		return nil
	}
	if viper.GetBool("metrics") {
		rpcClient.WritePrometheus(os.Stderr)
	}
	return rpcClient.Disconnect()
}
