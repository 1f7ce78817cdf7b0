package output

import (
	"context"

	"github.com/tsinghua-fib-lab/takeover-sim/utils/config"
)

// Open 按配置打开全部输出目标
// 说明：可选目标打开失败时记录错误并跳过，CSV始终可用
func Open(ctx context.Context, rc *config.RuntimeConfig) Multi {
	sinks := make(Multi, 0, 3)
	c := rc.All.Output
	if c.CSV {
		sinks = append(sinks, NewCSVSink(rc.DataDir))
	}
	if c.SQLite != "" {
		if s, err := OpenSQLite(c.SQLite); err != nil {
			log.Errorf("disable sqlite output: %v", err)
		} else {
			sinks = append(sinks, s)
		}
	}
	if c.Mongo != nil {
		if s, err := OpenMongo(ctx, *c.Mongo); err != nil {
			log.Errorf("disable mongo output: %v", err)
		} else {
			sinks = append(sinks, s)
		}
	}
	return sinks
}
