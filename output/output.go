// Package output 绩效数据的输出：原始CSV、SQLite汇总与MongoDB归档
package output

import (
	"context"
	"errors"

	"github.com/tsinghua-fib-lab/takeover-sim/perf"
)

// Sink 绩效数据输出目标
type Sink interface {
	Write(ctx context.Context, r perf.Record) error
	Close(ctx context.Context) error
}

// Multi 依次写入多个输出目标
type Multi []Sink

// Write 写入全部目标，单个目标失败不影响其他目标
func (m Multi) Write(ctx context.Context, r perf.Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close 关闭全部目标
func (m Multi) Close(ctx context.Context) error {
	var errs []error
	for _, s := range m {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
