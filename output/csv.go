package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/takeover-sim/perf"
)

const (
	LanePositionFile = "LanePositionDifference.csv"
	CollisionFile    = "CollisionData.csv"
	ScenarioFile     = "Scenario.csv"

	NoCollision = "No Collision"
)

// CSVSink 追加写入DataFiles下的三个CSV文件
// 说明：每行以换行开头，列之间用", "分隔，前4列为被试编号、RSVP、TTS、试次
type CSVSink struct {
	dir string
}

// NewCSVSink 创建CSV输出
func NewCSVSink(dir string) *CSVSink {
	return &CSVSink{dir: dir}
}

// Row 生成一行CSV文本
func Row(items []string) string {
	return "\n" + strings.Join(items, ", ")
}

// LanePositionRow 车道偏移行
func LanePositionRow(r perf.Record) []string {
	return append(r.Settings.Header(), lo.Map(r.Samples, func(s perf.Sample, _ int) string {
		return strconv.FormatFloat(s.Offset, 'f', -1, 64)
	})...)
}

// CollisionRow 碰撞行，没有碰撞时为"No Collision"，否则依次为时间戳与对方对象
func CollisionRow(r perf.Record) []string {
	row := r.Settings.Header()
	if len(r.Collisions) == 0 {
		return append(row, NoCollision)
	}
	for _, e := range r.Collisions {
		row = append(row, strconv.FormatFloat(e.Timestamp, 'f', -1, 64), e.OtherActor.String())
	}
	return row
}

// ScenarioRow 场景行
func ScenarioRow(r perf.Record) []string {
	return append(r.Settings.Header(), r.Scenario)
}

func appendRow(path string, items []string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := f.WriteString(Row(items)); err != nil {
		f.Close()
		return fmt.Errorf("append %s: %w", path, err)
	}
	return f.Close()
}

func (s *CSVSink) Write(ctx context.Context, r perf.Record) error {
	rows := []struct {
		file  string
		items []string
	}{
		{LanePositionFile, LanePositionRow(r)},
		{CollisionFile, CollisionRow(r)},
		{ScenarioFile, ScenarioRow(r)},
	}
	for _, row := range rows {
		if err := appendRow(filepath.Join(s.dir, row.file), row.items); err != nil {
			return err
		}
	}
	log.Infof("appended %s trial %s to %s", r.Scenario, r.Settings.TrialNo, s.dir)
	return nil
}

func (s *CSVSink) Close(ctx context.Context) error {
	return nil
}
