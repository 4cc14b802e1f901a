package util

import (
	"fmt"
	"github.com/ValentinKolb/dIPC/rpc/common"
	"github.com/ValentinKolb/dIPC/rpc/serializer"
	"github.com/ValentinKolb/dIPC/rpc/transport"
	"github.com/ValentinKolb/dIPC/rpc/transport/tcp"
	"github.com/ValentinKolb/dIPC/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"path/filepath"
	"strings"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupClientFlags adds the flags that configure an IPC client to a command
func SetupClientFlags(cmd *cobra.Command) {
	key := "session"
	cmd.PersistentFlags().String(key, DefaultSessionDir(), WrapString("The session directory. The main instance listens on <session>/ipc.sock"))

	key = "endpoint"
	cmd.PersistentFlags().String(key, "", WrapString("Overrides the address of the main instance (socket path, or host:port for tcp)"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, common.DefaultTimeoutSecond, WrapString("Timeout in seconds for connecting and for starting the main instance"))

	key = "persistent"
	cmd.PersistentFlags().Bool(key, false, WrapString("Run as persistent client (restart the main instance and reconnect when the channel is lost) instead of a one-shot worker"))

	key = "spawn"
	cmd.PersistentFlags().Bool(key, false, WrapString("Start the main instance of the session if it is not running"))

	key = "reconnect-backoff"
	cmd.PersistentFlags().Int(key, common.DefaultReconnectBackoffMs, WrapString("Initial wait in milliseconds after a failed reconnect (0 disables the backoff)"))

	key = "reconnect-backoff-max"
	cmd.PersistentFlags().Int(key, common.DefaultReconnectBackoffMaxMs, WrapString("Maximum wait in milliseconds between reconnect attempts"))

	key = "max-frame-size"
	cmd.PersistentFlags().Int(key, common.DefaultMaxFrameSize, WrapString("Maximum size of a single frame in bytes"))
}

// InitConfig loads .env files and binds environment variables (DIPC_<flag>, e.g. DIPC_LOG_LEVEL=debug)
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dipc")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// DefaultSessionDir returns the session directory used when none is given
func DefaultSessionDir() string {
	return filepath.Join(os.TempDir(), "dipc")
}

// GetClientConfig reads the client configuration from viper
func GetClientConfig() *common.ClientConfig {
	return &common.ClientConfig{
		SessionDir:            viper.GetString("session"),
		Endpoint:              viper.GetString("endpoint"),
		Transport:             viper.GetString("transport"),
		Persistent:            viper.GetBool("persistent"),
		TimeoutSecond:         viper.GetInt("timeout"),
		ReconnectBackoffMs:    viper.GetInt("reconnect-backoff"),
		ReconnectBackoffMaxMs: viper.GetInt("reconnect-backoff-max"),
		MaxFrameSize:          viper.GetInt("max-frame-size"),
		LogLevel:              viper.GetString("log-level"),
	}
}

// GetSerializer creates a serializer based on configuration
func GetSerializer() (serializer.IRPCSerializer, error) {
	return serializer.New(viper.GetString("serializer"))
}

// GetDialer creates the channel dialer based on configuration
func GetDialer(config *common.ClientConfig, s serializer.IRPCSerializer) (transport.IChannelDialer, error) {
	switch config.Transport {
	case common.TransportUnix, "":
		return unix.NewUnixDialer(s, config.GetMaxFrameSize()), nil
	case common.TransportTCP:
		if config.Endpoint == "" {
			return nil, fmt.Errorf("the tcp transport requires --endpoint")
		}
		return tcp.NewTCPDialer(s, config.GetMaxFrameSize()), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", config.Transport)
	}
}

// GetServerTransport creates the server transport based on configuration
func GetServerTransport(config *common.ServerConfig, s serializer.IRPCSerializer, workers int) (transport.IRPCServerTransport, error) {
	switch config.Transport {
	case common.TransportUnix, "":
		return unix.NewUnixServerTransport(s, workers), nil
	case common.TransportTCP:
		if config.Endpoint == "" {
			return nil, fmt.Errorf("the tcp transport requires --endpoint")
		}
		return tcp.NewTCPServerTransport(s, workers), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", config.Transport)
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
