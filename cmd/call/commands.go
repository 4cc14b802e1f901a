package call

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dIPC/rpc/client"
	"github.com/ValentinKolb/dIPC/rpc/common"
	"github.com/ValentinKolb/dIPC/rpc/server"
	"github.com/spf13/cobra"
	"io"
	"os"
	"strconv"
	"time"
)

var (
	callCmd = &cobra.Command{
		Use:   "call [function] [value]",
		Short: "Calls a function of the main instance and prints its result",
		Long:  `Calls a function of the main instance and prints its result. If value is "-" it is read from stdin. With --by-id the function is given by its numeric id.`,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fn := common.ByName(args[0])
			if byID, _ := cmd.Flags().GetBool("by-id"); byID {
				id, err := strconv.ParseUint(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("function id must be a number: %w", err)
				}
				fn = common.ByID(id)
			}

			var value []byte
			if len(args) == 2 {
				if args[1] == "-" {
					var err error
					if value, err = io.ReadAll(os.Stdin); err != nil {
						return fmt.Errorf("failed to read stdin: %w", err)
					}
				} else {
					value = []byte(args[1])
				}
			}

			ctx, cancel := callContext(cmd)
			defer cancel()

			result, err := rpcClient.Invoke(ctx, fn, client.Plain(value))
			if err != nil {
				return err
			}
			fmt.Println(string(result))
			return nil
		},
	}
	pingCmd = &cobra.Command{
		Use:   "ping",
		Short: "Checks whether the main instance answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := callContext(cmd)
			defer cancel()

			start := time.Now()
			result, err := rpcClient.Call(ctx, server.FunctionPing, nil)
			if err != nil {
				return err
			}
			fmt.Printf("%s in %s\n", result, time.Since(start))
			return nil
		},
	}
	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Prints the call statistics of the main instance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := callContext(cmd)
			defer cancel()

			result, err := rpcClient.Call(ctx, server.FunctionStats, nil)
			if err != nil {
				return err
			}
			stats, err := server.DecodeStats(result)
			if err != nil {
				return fmt.Errorf("invalid stats: %w", err)
			}

			fmt.Printf("uptime: %s, unknown functions called: %d\n",
				time.Duration(stats.UptimeSeconds)*time.Second, stats.UnknownFunctions)
			fmt.Printf("%-20s%10s%10s%12s%12s\n", "function", "calls", "failures", "mean", "p99")
			for _, name := range stats.FunctionNames() {
				fs := stats.Functions[name]
				fmt.Printf("%-20s%10d%10d%10.3fms%10.3fms\n", name, fs.Calls, fs.Failures, fs.MeanMs, fs.P99Ms)
			}
			return nil
		},
	}
)

func init() {
	callCmd.Flags().Bool("by-id", false, "The function is given by its numeric id")
	callCmd.Flags().Duration("deadline", 0, "Abandon the call after this duration (0 = wait for the result)")
	pingCmd.Flags().Duration("deadline", 5*time.Second, "Abandon the call after this duration")
	statsCmd.Flags().Duration("deadline", 5*time.Second, "Abandon the call after this duration")
}

// callContext returns the context bounded by the --deadline flag of cmd
func callContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	deadline, _ := cmd.Flags().GetDuration("deadline")
	if deadline <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), deadline)
}
