package main

import (
	"fmt"
	ossignal "os/signal"

	"github.com/spf13/cobra"
	"github.com/tsinghua-fib-lab/takeover-sim/narration"
	"github.com/tsinghua-fib-lab/takeover-sim/utils/config"
	"github.com/tsinghua-fib-lab/takeover-sim/utils/input"
)

func newTTSCmd() *cobra.Command {
	var (
		offset     int
		adjustment int
		muted      bool
	)
	cmd := &cobra.Command{
		Use:   "tts",
		Short: "朗读子进程：逐词朗读阅读材料并写入词流与句子偏移文件",
		Long: `由run子命令启动的朗读子进程。SIGUSR1暂停、SIGUSR2继续、SIGTERM结束。
朗读从阅读材料的--offset字节处开始，语速为被试设置的WPM减去--adjustment。`,
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl := narration.ListenControl()
			defer ctrl.Stop()
			ctx, stop := ossignal.NotifyContext(cmd.Context(), narration.TerminationSignals()...)
			defer stop()

			rc := config.NewRuntimeConfig(cfg)
			in, err := input.Init(rc)
			if err != nil {
				return err
			}
			if offset < 0 || offset > len(in.Text) {
				return fmt.Errorf("offset %d out of range [0, %d]", offset, len(in.Text))
			}
			nc := rc.All.Narration
			if muted {
				nc.Volume = 0
			}
			wpm := narration.Speed(in.WPM, adjustment)
			sp, err := narration.NewSpeechdSpeaker(nc, wpm)
			if err != nil {
				return err
			}
			defer sp.Close()

			n := narration.NewNarrator(rc.StreamFile, rc.SentenceIndexFile, in.Text[offset:], offset)
			log.Infof("narrating %s from offset %d at %d wpm (muted=%v)", in.Settings.TextFile, offset, wpm, muted)
			if err := narration.Serve(ctx, n, sp, ctrl); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&offset, "offset", 0, "从阅读材料的该字节偏移开始朗读")
	cmd.Flags().IntVar(&adjustment, "adjustment", 0, "语速下调量（词/分钟）")
	cmd.Flags().BoolVar(&muted, "muted", false, "静音朗读，仍然写入词流")
	return cmd
}
