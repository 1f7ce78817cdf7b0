package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tsinghua-fib-lab/takeover-sim/status"
)

func newStatusCmd() *cobra.Command {
	var follow bool
	cmd := &cobra.Command{
		Use:   "status [url]",
		Short: "查看正在运行的试次状态（需要在配置中设置status.listen）",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := statusURL(args)
			if err != nil {
				return err
			}
			ctx, stop := ossignal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			if !follow {
				m, err := status.Fetch(ctx, url)
				if err != nil {
					return err
				}
				return printStatus(out, m)
			}
			return status.Follow(ctx, url, func(m map[string]any) {
				if err := printStatus(out, m); err != nil {
					log.Warnf("print status: %v", err)
				}
			})
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "持续输出状态变化")
	return cmd
}

// statusURL 参数优先，否则由配置的监听地址推导
func statusURL(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	addr := cfg.Status.Listen
	if addr == "" {
		return "", fmt.Errorf("status.listen is not configured, pass the status server url")
	}
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	return "http://" + addr, nil
}

func printStatus(w io.Writer, m map[string]any) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
