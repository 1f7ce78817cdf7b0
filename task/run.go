package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tsinghua-fib-lab/takeover-sim/clock"
	"github.com/tsinghua-fib-lab/takeover-sim/entity"
	"github.com/tsinghua-fib-lab/takeover-sim/narration"
	"github.com/tsinghua-fib-lab/takeover-sim/output"
	"github.com/tsinghua-fib-lab/takeover-sim/perf"
	"github.com/tsinghua-fib-lab/takeover-sim/scenario"
	"github.com/tsinghua-fib-lab/takeover-sim/sensor"
	"github.com/tsinghua-fib-lab/takeover-sim/signal"
	"github.com/tsinghua-fib-lab/takeover-sim/status"
	"github.com/tsinghua-fib-lab/takeover-sim/utils/config"
	"github.com/tsinghua-fib-lab/takeover-sim/utils/input"
	"github.com/tsinghua-fib-lab/takeover-sim/utils/randengine"
)

// 以仿真时间计的等待
const (
	ResumeDelay = 3.0 // 写入恢复信号后等待多久再恢复朗读（秒）
	FinishDelay = 5.0 // 阅读任务完成后等待多久再结束（秒）
)

// Options 运行选项
// 说明：为空的字段使用默认实现
type Options struct {
	ConfigPath string        // 传给朗读子进程的YAML配置文件
	Board      *status.Board // 状态板
	Signals    Signals       // 默认使用信号文件
	Sink       output.Sink   // 默认按配置打开
	Starter    Starter       // 默认StartProcess
	Clock      *clock.Clock  // 对外发布的仿真时钟，为空时使用内部时钟
}

// runner 一次试次的运行状态
type runner struct {
	tc      *Context
	sc      scenario.Scenario
	profile scenario.Profile
	in      *input.Input
	session string

	signals  Signals
	sink     output.Sink
	narrator *narrationSupervisor

	triggered bool
	restored  bool
}

// Run 运行一次接管试次
// 功能：按固定流程执行场景：准备、阅读、接近、接管、测量、恢复、等待阅读任务完成、清理
// 参数：client-仿真器客户端，rc-运行时配置，sc-场景，opts-运行选项
// 返回：错误信息，清理的错误与流程中的错误合并返回
// 算法说明：
// 1. 读取被试设置与阅读材料（失败直接返回，此时尚未改动仿真器）
// 2. 准备仿真器：天气、交通管理器、同步模式、蓝图、主车自动驾驶
// 3. 场景布置，写入信号0，按设置启动朗读
// 4. 推进直到主车进入接管距离，暂停朗读，写入信号1，关闭主车自动驾驶并触发危险
// 5. 挂载碰撞传感器，按最小间隔采样车道偏移直到测量窗口结束，写出绩效数据
// 6. 恢复场景与主车自动驾驶，写入信号2，等待后恢复朗读
// 7. 推进直到阅读任务写入信号3，再等待一段时间
// 8. 无论成功与否都执行清理
func Run(ctx context.Context, client entity.IClient, rc *config.RuntimeConfig, sc scenario.Scenario, opts Options) (err error) {
	board := opts.Board
	profile := sc.Profile()
	session := uuid.NewString()
	board.Update(func(s *status.Status) {
		s.Session = session
		s.Scenario = profile.Code
		s.Phase = status.PhaseSetup
		s.Error = ""
	})
	log.Infof("session %s: running scenario %v", session, profile)

	in, err := input.Init(rc)
	if err != nil {
		board.Update(func(s *status.Status) { s.Phase, s.Error = status.PhaseFailed, err.Error() })
		return err
	}

	r := &runner{
		tc:      NewContext(client, rc, randengine.New(rc.C.Seed), board),
		sc:      sc,
		profile: profile,
		in:      in,
		session: session,
		signals: opts.Signals,
		sink:    opts.Sink,
	}
	if opts.Clock != nil {
		r.tc.useClock(opts.Clock)
	}
	log.Infof("random seed %d", r.tc.Rand().Seed())
	if r.signals == nil {
		poll := time.Duration(rc.C.PollInterval * float64(time.Second))
		r.signals = OpenSignals(ctx, rc.SignalFile, poll)
	}
	if r.sink == nil {
		r.sink = output.Open(ctx, rc)
	}
	starter := opts.Starter
	if starter == nil {
		starter = StartProcess
	}
	r.narrator = &narrationSupervisor{
		start: starter,
		args: narration.Args{
			ConfigPath: opts.ConfigPath,
			Adjustment: profile.TTSAdjustment,
			Muted:      !in.Settings.TTSEnabled(),
		},
		restart:    profile.RestartNarration && in.Settings.RSVPEnabled(),
		streamFile: rc.StreamFile,
		indexFile:  rc.SentenceIndexFile,
	}

	defer func() {
		board.SetPhase(status.PhaseCleanup)
		if cerr := r.cleanup(ctx); cerr != nil {
			log.Errorf("cleanup: %v", cerr)
			err = errors.Join(err, cerr)
		}
		if err != nil {
			board.Update(func(s *status.Status) { s.Phase, s.Error = status.PhaseFailed, err.Error() })
		} else {
			board.SetPhase(status.PhaseDone)
		}
	}()
	return r.run(ctx)
}

func (r *runner) run(ctx context.Context) error {
	tc := r.tc
	w := tc.World()
	board := tc.board

	if err := tc.Init(ctx, r.profile.LeadingDistance, r.profile.SpeedDifference); err != nil {
		return err
	}
	hazard, err := r.sc.Setup(ctx, tc)
	if err != nil {
		return fmt.Errorf("setup %s: %w", r.profile.Code, err)
	}
	log.Infof("hazard at %v, tor at %v m", hazard, r.profile.Approach)

	// 阅读
	r.writeSignal(signal.Reading)
	board.SetPhase(status.PhaseReading)
	log.Info("starting reading comprehension task")
	if r.profile.Narrated(r.in.Settings.TTSEnabled()) {
		r.narrator.Start()
	}

	// 接近
	for {
		loc, err := w.Location(ctx, tc.Ego().ID)
		if err != nil {
			return fmt.Errorf("ego location: %w", err)
		}
		d := entity.Distance(loc, hazard)
		if _, step := tc.Clock().Now(); step%boardInterval == 0 {
			board.Update(func(s *status.Status) { s.Distance = d })
		}
		if d <= r.profile.Approach {
			break
		}
		if err := r.sc.Approach(ctx, tc); err != nil {
			return err
		}
		if err := tc.Tick(ctx); err != nil {
			return err
		}
	}

	// 接管
	r.narrator.Pause()
	r.writeSignal(signal.TOR)
	board.SetPhase(status.PhaseTOR)
	log.Info("TOR is issued")
	if err := w.SetAutopilot(ctx, tc.Ego().ID, false, tc.TrafficManager().Port()); err != nil {
		return fmt.Errorf("disable ego autopilot: %w", err)
	}
	r.triggered = true
	if err := r.sc.Trigger(ctx, tc); err != nil {
		return fmt.Errorf("trigger %s: %w", r.profile.Code, err)
	}

	record, err := r.measure(ctx)
	if err != nil {
		return err
	}
	if r.in.Settings.Recorded() {
		if err := r.sink.Write(ctx, record); err != nil {
			log.Errorf("write performance data: %v", err)
		}
	} else {
		log.Info("performance data not recorded (IGNORE)")
	}

	// 恢复
	r.restored = true
	if err := r.sc.Restore(ctx, tc); err != nil {
		log.Errorf("restore %s: %v", r.profile.Code, err)
	}
	if err := w.SetAutopilot(ctx, tc.Ego().ID, true, tc.TrafficManager().Port()); err != nil {
		return fmt.Errorf("enable ego autopilot: %w", err)
	}
	r.writeSignal(signal.Resume)
	board.SetPhase(status.PhaseResume)
	if err := tc.Wait(ctx, ResumeDelay); err != nil {
		return err
	}
	r.narrator.Resume()

	// 等待阅读任务完成
	board.SetPhase(status.PhaseAwaitNDRT)
	for !r.ndrtDone() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := tc.Tick(ctx); err != nil {
			return err
		}
	}
	log.Info("reading task complete")
	board.Update(func(s *status.Status) { s.Signal = signal.NDRTDone })
	return tc.Wait(ctx, FinishDelay)
}

// measure 测量阶段
// 说明：碰撞传感器挂载失败时只采样车道偏移，找不到眼动仪时不记录辐辏距离
func (r *runner) measure(ctx context.Context) (perf.Record, error) {
	tc := r.tc
	w := tc.World()
	ego := tc.Ego().ID
	collisions, err := perf.ListenCollisions(ctx, w, ego)
	if err != nil {
		log.Errorf("collision sensor: %v", err)
	} else {
		tc.Track(collisions.Sensor())
	}
	eye, err := sensor.FindEyeTracker(ctx, w, tc.RuntimeConfig().All.Simulator.EyeTrackerFilter)
	if err != nil {
		log.Warnf("eye tracker: %v", err)
	}
	sampler := perf.NewLaneSampler(tc.RuntimeConfig().C.SampleSpacing)
	for {
		ok, err := r.sc.Measuring(ctx, tc)
		if err != nil {
			return perf.Record{}, fmt.Errorf("measure %s: %w", r.profile.Code, err)
		}
		if !ok {
			break
		}
		now, _ := tc.Clock().Now()
		if sampled, err := sampler.Sample(ctx, w, ego, now); err != nil {
			log.Warnf("sample lane offset: %v", err)
		} else if sampled {
			if eye != nil {
				if d, err := eye.Read(ctx); err != nil {
					log.Debugf("%v", err)
				} else {
					sampler.Annotate(d.Vergence)
				}
			}
			n := len(sampler.Samples())
			tc.board.Update(func(s *status.Status) { s.Samples = n })
		}
		if err := tc.Tick(ctx); err != nil {
			return perf.Record{}, err
		}
		r.pollCollisions(ctx, collisions)
	}
	r.pollCollisions(ctx, collisions)
	rec := perf.NewRecord(r.session, r.in.Settings, r.profile.Code, sampler, collisions)
	log.Infof("measured %d samples, SDLP %.3f, %d collisions", rec.Summary.Samples, rec.Summary.SDLP, rec.Summary.Collisions)
	return rec, nil
}

func (r *runner) pollCollisions(ctx context.Context, c *perf.CollisionRecorder) {
	if c == nil {
		return
	}
	if err := c.Poll(ctx); err != nil {
		log.Warnf("%v", err)
		return
	}
	n := len(c.Events())
	r.tc.board.Update(func(s *status.Status) { s.Collisions = n })
}

func (r *runner) writeSignal(s signal.Signal) {
	if err := r.signals.Write(s); err != nil {
		log.Errorf("error occurred while writing %v to the signal file: %v", s, err)
	}
	r.tc.board.Update(func(st *status.Status) { st.Signal = s })
}

func (r *runner) ndrtDone() bool {
	s, ok := r.signals.Latest()
	return ok && s == signal.NDRTDone
}

// cleanup 清理
// 算法说明：未恢复的场景先恢复，结束朗读子进程，关闭信号通道与输出，最后恢复仿真器状态
func (r *runner) cleanup(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	var errs []error
	if r.triggered && !r.restored {
		if err := r.sc.Restore(ctx, r.tc); err != nil {
			errs = append(errs, fmt.Errorf("restore %s: %w", r.profile.Code, err))
		}
	}
	if err := r.narrator.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop narration: %w", err))
	}
	if err := r.signals.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close signals: %w", err))
	}
	if err := r.sink.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close output: %w", err))
	}
	if err := r.tc.Cleanup(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
