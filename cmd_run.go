package main

import (
	"context"
	"fmt"
	"os"
	ossignal "os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tsinghua-fib-lab/takeover-sim/bridge"
	"github.com/tsinghua-fib-lab/takeover-sim/clock"
	"github.com/tsinghua-fib-lab/takeover-sim/entity"
	"github.com/tsinghua-fib-lab/takeover-sim/scenario"
	"github.com/tsinghua-fib-lab/takeover-sim/status"
	"github.com/tsinghua-fib-lab/takeover-sim/task"
	"github.com/tsinghua-fib-lab/takeover-sim/utils/config"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [scenario]",
		Short: "运行一次接管试次（1=EW 2=LVAD 3=CSA 4=ACR，缺省为4）",
		Long: `连接仿真器桥接服务并运行一次接管试次。

场景编号：1 极端天气（EW），2 前车急减速（LVAD），3 施工路段（CSA），4 动物横穿（ACR）。
未给出或给出其他整数时运行ACR。`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := scenarioID(args)
			if err != nil {
				return err
			}
			printBanner()
			ctx, stop := ossignal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rc := config.NewRuntimeConfig(cfg)
			client, err := bridge.Dial(ctx, rc.SimulatorURL(), rc.All.Simulator)
			if err != nil {
				return err
			}
			defer client.Close()
			return execute(ctx, client, rc, id)
		},
	}
}

// scenarioID 解析场景编号，不在注册表中的编号由scenario.New回退到ACR
func scenarioID(args []string) (int, error) {
	if len(args) == 0 {
		return scenario.DefaultID, nil
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("scenario must be an integer, got %q", args[0])
	}
	return id, nil
}

// execute 运行一次试次，配置了监听地址时同时提供状态服务
func execute(ctx context.Context, client entity.IClient, rc *config.RuntimeConfig, id int) error {
	board := status.NewBoard()
	clk := clock.New(rc.All.Simulator.FixedDeltaSeconds)
	if addr := rc.All.Status.Listen; addr != "" {
		srvCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		srv := status.NewServer(board, clk)
		go func() {
			if err := srv.ListenAndServe(srvCtx, addr); err != nil {
				log.Errorf("status server: %v", err)
			}
		}()
	}
	sc := scenario.New(id)
	if err := task.Run(ctx, client, rc, sc, task.Options{
		ConfigPath: configPath,
		Board:      board,
		Clock:      clk,
	}); err != nil {
		return fmt.Errorf("scenario %v: %w", sc.Profile(), err)
	}
	log.Infof("scenario %v finished", sc.Profile())
	return nil
}
