package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tsinghua-fib-lab/takeover-sim/bridge"
	"github.com/tsinghua-fib-lab/takeover-sim/entity/sandbox"
	"github.com/tsinghua-fib-lab/takeover-sim/utils/config"
)

// 主车手动驾驶时横向摆动的周期（秒）
const wobblePeriod = 4.0

func newSimCmd() *cobra.Command {
	var (
		listen string
		wobble float64
	)
	cmd := &cobra.Command{
		Use:   "sim [scenario]",
		Short: "在内存仿真世界中彩排一次接管试次",
		Long: `启动内存中的直道世界，通过本机桥接服务运行一次完整试次，用于在没有仿真器的机器上检查
信号文件、朗读进程、阅读任务与数据输出的衔接。`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := scenarioID(args)
			if err != nil {
				return err
			}
			printBanner()
			ctx, stop := ossignal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts := sandbox.DefaultOptions()
			if wobble > 0 {
				opts.EgoLateral = func(t float64) float64 {
					return wobble * math.Sin(2*math.Pi*t/wobblePeriod)
				}
			}
			w := sandbox.New(opts)

			ln, err := net.Listen("tcp", listen)
			if err != nil {
				return fmt.Errorf("sandbox bridge listen %s: %w", listen, err)
			}
			mux := http.NewServeMux()
			bridge.Register(mux, sandbox.NewClient(w))
			srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Errorf("sandbox bridge: %v", err)
				}
			}()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()
			log.Infof("sandbox bridge listening on %s", ln.Addr())

			rc := config.NewRuntimeConfig(cfg)
			client, err := bridge.Dial(ctx, "http://"+ln.Addr().String(), rc.All.Simulator)
			if err != nil {
				return err
			}
			defer client.Close()
			if err := execute(ctx, client, rc, id); err != nil {
				return err
			}
			frame, t := w.Frame()
			log.Infof("sandbox finished at frame %d (%.2fs): %v", frame, t, w)
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "127.0.0.1:0", "内存世界桥接服务的监听地址")
	cmd.Flags().Float64Var(&wobble, "wobble", 0.3, "接管后主车横向摆动幅度（米）")
	return cmd
}
