package main

import (
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tsinghua-fib-lab/takeover-sim/reading"
	"github.com/tsinghua-fib-lab/takeover-sim/scenario"
	"github.com/tsinghua-fib-lab/takeover-sim/signal"
	"github.com/tsinghua-fib-lab/takeover-sim/utils/config"
	"github.com/tsinghua-fib-lab/takeover-sim/utils/input"
)

func newReadingCmd() *cobra.Command {
	var (
		frame time.Duration
		id    int
	)
	cmd := &cobra.Command{
		Use:   "reading",
		Short: "在终端中运行阅读任务（NDRT），按信号文件暂停与继续，完成后写入信号3",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := ossignal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rc := config.NewRuntimeConfig(cfg)
			in, err := input.Init(rc)
			if err != nil {
				return err
			}
			out := signal.NewFile(rc.SignalFile)
			if err := reading.Prepare(out, rc.StreamFile); err != nil {
				return err
			}
			poll := time.Duration(rc.C.PollInterval * float64(time.Second))
			watcher, err := signal.Watch(ctx, out, poll)
			if err != nil {
				return err
			}
			defer watcher.Close()

			log.Info("waiting for the runner to start the reading task")
			if err := watcher.Wait(ctx, signal.Reading); err != nil {
				return err
			}
			opts := readingOptions(in, scenario.New(id).Profile())
			e := reading.New(in.Text, opts, reading.NewConsole(cmd.OutOrStdout()), out, reading.FileStream(rc.StreamFile))
			log.Infof("reading task ready (rsvp=%v, tts=%v, wpm=%d)", opts.RSVP, opts.TTS, opts.WPM)
			return reading.Run(ctx, e, watcher, frame)
		},
	}
	cmd.Flags().DurationVar(&frame, "frame", time.Second/60, "画面刷新间隔")
	cmd.Flags().IntVar(&id, "scenario", scenario.DefaultID, "本试次的接管场景，决定是否跟随静音朗读的词流")
	return cmd
}

// readingOptions 按被试设置与场景选择呈现方式
func readingOptions(in *input.Input, p scenario.Profile) reading.Options {
	rsvp, tts := in.Settings.RSVPEnabled(), in.Settings.TTSEnabled()
	return reading.Options{
		RSVP: rsvp,
		TTS:  p.StreamDriven(rsvp, tts),
		WPM:  in.WPM,
	}
}
