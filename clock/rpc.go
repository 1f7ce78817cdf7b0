package clock

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"
)

// NowProcedure 时钟查询RPC的完整路径
const NowProcedure = "/takeover.clock.v1.ClockService/Now"

// Handler 返回时钟服务的路由与处理器
// 功能：将时钟查询注册为Connect unary服务，供status服务挂载到HTTP mux
// 返回：路由路径与HTTP处理器
func (c *Clock) Handler(opts ...connect.HandlerOption) (pattern string, handler http.Handler) {
	return NowProcedure, connect.NewUnaryHandler(NowProcedure, c.now, opts...)
}

// now 获取当前仿真时间
// 功能：RPC接口，返回当前仿真时间、步数与帧号
func (c *Clock) now(ctx context.Context, in *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	c.mtx.RLock()
	t, step, frame := c.T, c.InternalStep, c.Frame
	c.mtx.RUnlock()
	msg, err := structpb.NewStruct(map[string]any{
		"t":     t,
		"step":  step,
		"frame": frame,
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}
