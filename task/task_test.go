package task_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/takeover-sim/entity"
	"github.com/tsinghua-fib-lab/takeover-sim/entity/sandbox"
	"github.com/tsinghua-fib-lab/takeover-sim/narration"
	"github.com/tsinghua-fib-lab/takeover-sim/perf"
	"github.com/tsinghua-fib-lab/takeover-sim/scenario"
	"github.com/tsinghua-fib-lab/takeover-sim/signal"
	"github.com/tsinghua-fib-lab/takeover-sim/status"
	"github.com/tsinghua-fib-lab/takeover-sim/task"
	"github.com/tsinghua-fib-lab/takeover-sim/utils/config"
	"gonum.org/v1/gonum/spatial/r3"
)

// fakeSignals 记录写入的信号，写入恢复信号后阅读任务立即完成
type fakeSignals struct {
	writes []signal.Signal
	closed bool
}

func (s *fakeSignals) Write(sig signal.Signal) error {
	s.writes = append(s.writes, sig)
	return nil
}

func (s *fakeSignals) Latest() (signal.Signal, bool) {
	if slices.Contains(s.writes, signal.Resume) {
		return signal.NDRTDone, true
	}
	if len(s.writes) == 0 {
		return 0, false
	}
	return s.writes[len(s.writes)-1], true
}

func (s *fakeSignals) Close() error {
	s.closed = true
	return nil
}

type recordSink struct {
	records []perf.Record
	closed  bool
}

func (s *recordSink) Write(ctx context.Context, r perf.Record) error {
	s.records = append(s.records, r)
	return nil
}

func (s *recordSink) Close(ctx context.Context) error {
	s.closed = true
	return nil
}

type fakeNarration struct {
	suspended, resumed, terminated int
}

func (n *fakeNarration) Suspend() error {
	n.suspended++
	return nil
}

func (n *fakeNarration) Resume() error {
	n.resumed++
	return nil
}

func (n *fakeNarration) Terminate(timeout time.Duration) error {
	n.terminated++
	return nil
}

type fakeStarter struct {
	args  []narration.Args
	procs []*fakeNarration
}

func (s *fakeStarter) Start(args narration.Args) (task.Narration, error) {
	p := &fakeNarration{}
	s.args = append(s.args, args)
	s.procs = append(s.procs, p)
	return p, nil
}

// fakeScenario 危险点在x轴上，测量固定时长
type fakeScenario struct {
	profile  scenario.Profile
	hazard   float64
	window   float64
	setupErr error
	prop     entity.ActorID

	calls       []string
	torDistance float64
	deadline    float64
}

func (f *fakeScenario) Profile() scenario.Profile {
	return f.profile
}

func (f *fakeScenario) Setup(ctx context.Context, tc entity.ITaskContext) (r3.Vec, error) {
	f.calls = append(f.calls, "setup")
	hazard := r3.Vec{X: f.hazard}
	a, err := tc.World().SpawnActor(ctx, "static.prop.laneblock", entity.Transform{Location: hazard}, 0)
	if err != nil {
		return r3.Vec{}, err
	}
	tc.Track(a.ID)
	f.prop = a.ID
	return hazard, f.setupErr
}

func (f *fakeScenario) Approach(ctx context.Context, tc entity.ITaskContext) error {
	return nil
}

func (f *fakeScenario) Trigger(ctx context.Context, tc entity.ITaskContext) error {
	f.calls = append(f.calls, "trigger")
	loc, err := tc.World().Location(ctx, tc.Ego().ID)
	if err != nil {
		return err
	}
	f.torDistance = entity.Distance(loc, r3.Vec{X: f.hazard})
	f.deadline = tc.Clock().Deadline(f.window)
	return nil
}

func (f *fakeScenario) Measuring(ctx context.Context, tc entity.ITaskContext) (bool, error) {
	return tc.Clock().Before(f.deadline), nil
}

func (f *fakeScenario) Restore(ctx context.Context, tc entity.ITaskContext) error {
	f.calls = append(f.calls, "restore")
	return nil
}

func newFake() *fakeScenario {
	return &fakeScenario{
		profile: scenario.Profile{ID: 9, Code: "FAKE", LeadingDistance: 2, SpeedDifference: -400, Approach: 50},
		hazard:  200,
		window:  2,
	}
}

type fixture struct {
	world   *sandbox.World
	rc      *config.RuntimeConfig
	board   *status.Board
	signals *fakeSignals
	sink    *recordSink
	starter *fakeStarter
}

func newFixture(t *testing.T, settings string) *fixture {
	t.Helper()
	dir := t.TempDir()
	configDir := filepath.Join(dir, config.DefaultConfigDir)
	require.NoError(t, os.MkdirAll(configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.txt"), []byte(settings), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "Text1.txt"), []byte("The quick fox. It ran away."), 0o644))

	c := config.Default()
	c.Paths.Content = dir
	c.Control.Seed = 1
	return &fixture{
		world:   sandbox.New(sandbox.DefaultOptions()),
		rc:      config.NewRuntimeConfig(c),
		board:   status.NewBoard(),
		signals: &fakeSignals{},
		sink:    &recordSink{},
		starter: &fakeStarter{},
	}
}

func (f *fixture) run(sc scenario.Scenario) error {
	return task.Run(context.Background(), sandbox.NewClient(f.world), f.rc, sc, task.Options{
		Board:   f.board,
		Signals: f.signals,
		Sink:    f.sink,
		Starter: f.starter.Start,
	})
}

const plainSettings = "PARTICIPANT_ID: 007\nTRIAL_NO: 1\nIGNORE: 0\nRSVP: 0\nTTS: 0\nWPM: 150\nTEXTFILE: Text1\n"

func TestRunPhases(t *testing.T) {
	f := newFixture(t, plainSettings)
	sc := newFake()
	require.NoError(t, f.run(sc))

	assert.Equal(t, []signal.Signal{signal.Reading, signal.TOR, signal.Resume}, f.signals.writes)
	assert.Equal(t, []string{"setup", "trigger", "restore"}, sc.calls)
	assert.True(t, f.signals.closed)
	assert.True(t, f.sink.closed)
	assert.Empty(t, f.starter.args)

	snap := f.board.Snapshot()
	assert.Equal(t, status.PhaseDone, snap.Phase)
	assert.Equal(t, "FAKE", snap.Scenario)
	assert.NotEmpty(t, snap.Session)
	assert.Equal(t, signal.NDRTDone, snap.Signal)
}

func TestRunTORWithinApproach(t *testing.T) {
	f := newFixture(t, plainSettings)
	sc := newFake()
	require.NoError(t, f.run(sc))
	assert.LessOrEqual(t, sc.torDistance, sc.profile.Approach)
	// 每帧前进0.375米，触发时刚好进入接管距离
	assert.Greater(t, sc.torDistance, sc.profile.Approach-1)
}

func TestRunSamples(t *testing.T) {
	f := newFixture(t, plainSettings)
	sc := newFake()
	require.NoError(t, f.run(sc))

	require.Len(t, f.sink.records, 1)
	rec := f.sink.records[0]
	assert.Equal(t, "FAKE", rec.Scenario)
	assert.Equal(t, "007", rec.Settings.ParticipantID)
	require.GreaterOrEqual(t, len(rec.Samples), 5)
	for i := 1; i < len(rec.Samples); i++ {
		assert.GreaterOrEqual(t, rec.Samples[i].T-rec.Samples[i-1].T, f.rc.C.SampleSpacing-1e-9)
	}
	assert.Equal(t, len(rec.Samples), rec.Summary.Samples)
	// 沙盒眼动仪两条视线交于前方1米
	assert.InDelta(t, 1.0, rec.Samples[0].Vergence, 1e-6)
	assert.Zero(t, rec.Summary.Collisions)
}

func TestRunIgnored(t *testing.T) {
	f := newFixture(t, "PARTICIPANT_ID: 007\nTRIAL_NO: 1\nIGNORE: 1\nRSVP: 0\nTTS: 0\nWPM: 150\nTEXTFILE: Text1\n")
	require.NoError(t, f.run(newFake()))
	assert.Empty(t, f.sink.records)
	assert.True(t, f.sink.closed)
}

func TestRunCleanup(t *testing.T) {
	f := newFixture(t, plainSettings)
	sc := newFake()
	require.NoError(t, f.run(sc))

	ego := f.world.Ego()
	assert.False(t, f.world.Autopilot(ego.ID))
	assert.Equal(t, 1.0, f.world.Control(ego.ID).Brake)
	v, held := f.world.ConstantVelocity(ego.ID)
	assert.True(t, held)
	assert.Equal(t, r3.Vec{}, v)
	assert.Contains(t, f.world.Destroyed(), sc.prop)

	settings, err := f.world.Settings(context.Background())
	require.NoError(t, err)
	assert.False(t, settings.SynchronousMode)
	assert.Zero(t, settings.FixedDeltaSeconds)
}

func TestRunSetupFailure(t *testing.T) {
	f := newFixture(t, plainSettings)
	sc := newFake()
	sc.setupErr = errors.New("no spawn point")

	err := f.run(sc)
	require.Error(t, err)
	assert.ErrorContains(t, err, "no spawn point")
	assert.Empty(t, f.signals.writes)
	assert.Equal(t, []string{"setup"}, sc.calls)

	// 失败时仍然清理
	assert.Contains(t, f.world.Destroyed(), sc.prop)
	assert.Equal(t, 1.0, f.world.Control(f.world.Ego().ID).Brake)
	assert.True(t, f.signals.closed)
	assert.True(t, f.sink.closed)

	snap := f.board.Snapshot()
	assert.Equal(t, status.PhaseFailed, snap.Phase)
	assert.Contains(t, snap.Error, "no spawn point")
}

func TestRunMissingSettings(t *testing.T) {
	f := newFixture(t, plainSettings)
	require.NoError(t, os.Remove(f.rc.SettingsFile))
	sc := newFake()
	assert.Error(t, f.run(sc))
	assert.Empty(t, sc.calls)
	assert.Equal(t, status.PhaseFailed, f.board.Snapshot().Phase)
}

func TestRunNarrationSuspend(t *testing.T) {
	f := newFixture(t, "PARTICIPANT_ID: 007\nTRIAL_NO: 1\nIGNORE: 0\nRSVP: 0\nTTS: 1\nWPM: 150\nTEXTFILE: Text1\n")
	sc := newFake()
	sc.profile.TTSAdjustment = 25
	require.NoError(t, f.run(sc))

	require.Len(t, f.starter.args, 1)
	assert.Equal(t, narration.Args{Adjustment: 25}, f.starter.args[0])
	p := f.starter.procs[0]
	assert.Equal(t, 1, p.suspended)
	assert.Equal(t, 1, p.resumed)
	assert.Equal(t, 1, p.terminated)
}

func TestRunNarrationRestart(t *testing.T) {
	f := newFixture(t, "PARTICIPANT_ID: 007\nTRIAL_NO: 1\nIGNORE: 0\nRSVP: 1\nTTS: 0\nWPM: 150\nTEXTFILE: Text1\n")
	require.NoError(t, os.WriteFile(f.rc.SentenceIndexFile, []byte("15"), 0o644))
	require.NoError(t, os.WriteFile(f.rc.StreamFile, []byte("fox"), 0o644))
	sc := newFake()
	sc.profile.AlwaysNarrate = true
	sc.profile.RestartNarration = true
	require.NoError(t, f.run(sc))

	require.Len(t, f.starter.args, 2)
	assert.Equal(t, narration.Args{Muted: true}, f.starter.args[0])
	assert.Equal(t, narration.Args{Offset: 15, Muted: true}, f.starter.args[1])
	first, second := f.starter.procs[0], f.starter.procs[1]
	assert.Zero(t, first.suspended)
	assert.Equal(t, 1, first.terminated)
	assert.Equal(t, 1, second.terminated)

	stream, err := os.ReadFile(f.rc.StreamFile)
	require.NoError(t, err)
	assert.Empty(t, stream)
}

func TestRunFileSignals(t *testing.T) {
	f := newFixture(t, plainSettings)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signals := task.OpenSignals(ctx, f.rc.SignalFile, 10*time.Millisecond)
	require.NoError(t, signals.Write(signal.TOR))
	got, ok := signals.Latest()
	require.True(t, ok)
	assert.Equal(t, signal.TOR, got)
	require.NoError(t, signal.NewFile(f.rc.SignalFile).Write(signal.NDRTDone))
	assert.Eventually(t, func() bool {
		got, ok := signals.Latest()
		return ok && got == signal.NDRTDone
	}, 2*time.Second, 10*time.Millisecond)
	assert.NoError(t, signals.Close())
}

func TestContextWait(t *testing.T) {
	w := sandbox.New(sandbox.DefaultOptions())
	rc := config.NewRuntimeConfig(config.Default())
	tc := task.NewContext(sandbox.NewClient(w), rc, nil, nil)
	require.NoError(t, tc.Init(context.Background(), 2, -400))
	start, _ := tc.Clock().Now()
	require.NoError(t, tc.Wait(context.Background(), 1))
	now, _ := tc.Clock().Now()
	assert.InDelta(t, 1, now-start, rc.All.Simulator.FixedDeltaSeconds+1e-9)

	ego := tc.Ego()
	assert.Equal(t, sandbox.EgoTypeID, ego.TypeID)
	assert.True(t, w.Autopilot(ego.ID))
	assert.NotEmpty(t, tc.VehicleBlueprints())
	for _, bp := range tc.VehicleBlueprints() {
		assert.NotEqual(t, sandbox.EgoTypeID, bp.ID)
	}
}
