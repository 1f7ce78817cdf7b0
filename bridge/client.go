// Package bridge 仿真器桥接服务的Connect RPC客户端与服务端
//
// 仿真器侧运行一个桥接进程，把SimulatorService与TrafficManagerService映射到仿真器自身的API；
// 消息统一使用google.protobuf.Struct，字段见codec.go。
package bridge

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"connectrpc.com/connect"
	"github.com/tsinghua-fib-lab/takeover-sim/entity"
	"github.com/tsinghua-fib-lab/takeover-sim/utils/config"
	"google.golang.org/protobuf/types/known/structpb"
)

type unaryClient = connect.Client[structpb.Struct, structpb.Struct]

// Client 桥接服务客户端，实现entity.IClient
type Client struct {
	baseURL    string
	httpClient connect.HTTPClient
	opts       []connect.ClientOption
	timeout    time.Duration

	mtx     sync.Mutex
	clients map[string]*unaryClient // 按过程名缓存
	tms     map[int]*TrafficManager

	world *World
}

// NewClient 创建客户端
// 参数：baseURL-桥接服务地址，c-仿真器配置（超时与编码），httpClient-为空时使用http.DefaultClient
func NewClient(baseURL string, c config.Simulator, httpClient connect.HTTPClient) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	opts := make([]connect.ClientOption, 0, 1)
	if c.JSON {
		opts = append(opts, connect.WithProtoJSON())
	}
	timeout := time.Duration(c.Timeout * float64(time.Second))
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cl := &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		opts:       opts,
		timeout:    timeout,
		clients:    make(map[string]*unaryClient),
		tms:        make(map[int]*TrafficManager),
	}
	cl.world = &World{c: cl}
	return cl
}

// Dial 创建客户端并确认桥接服务可用
func Dial(ctx context.Context, baseURL string, c config.Simulator) (*Client, error) {
	cl := NewClient(baseURL, c, nil)
	if _, err := cl.world.Settings(ctx); err != nil {
		return nil, fmt.Errorf("connect to simulator bridge %s: %w", baseURL, err)
	}
	log.Infof("connected to simulator bridge %s", baseURL)
	return cl, nil
}

func (c *Client) client(procedure string) *unaryClient {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	cl, ok := c.clients[procedure]
	if !ok {
		cl = connect.NewClient[structpb.Struct, structpb.Struct](c.httpClient, c.baseURL+procedure, c.opts...)
		c.clients[procedure] = cl
	}
	return cl
}

// call 发起一次调用
// 参数：in-请求字段（只能包含基础类型），out-响应解码目标，为空则忽略响应
func (c *Client) call(ctx context.Context, procedure string, in map[string]any, out any) error {
	if in == nil {
		in = map[string]any{}
	}
	msg, err := structpb.NewStruct(in)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", procedure, err)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	res, err := c.client(procedure).CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return fmt.Errorf("%s: %w", procedure, err)
	}
	if out == nil {
		return nil
	}
	if err := decode(res.Msg.AsMap(), out); err != nil {
		return fmt.Errorf("%s: decode response: %w", procedure, err)
	}
	return nil
}

func (c *Client) World() entity.IWorld {
	return c.world
}

func (c *Client) TrafficManager(port int) entity.ITrafficManager {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	tm, ok := c.tms[port]
	if !ok {
		tm = &TrafficManager{c: c, port: port}
		c.tms[port] = tm
	}
	return tm
}

// Close 释放空闲连接
func (c *Client) Close() error {
	if hc, ok := c.httpClient.(*http.Client); ok {
		hc.CloseIdleConnections()
	}
	return nil
}

// TrafficManager 远程交通管理器
type TrafficManager struct {
	c    *Client
	port int
}

func (tm *TrafficManager) Port() int {
	return tm.port
}

func (tm *TrafficManager) req(fields map[string]any) map[string]any {
	fields["port"] = tm.port
	return fields
}

func (tm *TrafficManager) SetSynchronousMode(ctx context.Context, enabled bool) error {
	return tm.c.call(ctx, SetSynchronousModeProcedure, tm.req(map[string]any{"enabled": enabled}), nil)
}

func (tm *TrafficManager) SetGlobalDistanceToLeadingVehicle(ctx context.Context, meters float64) error {
	return tm.c.call(ctx, SetGlobalDistanceToLeadingVehicleProcedure, tm.req(map[string]any{"meters": meters}), nil)
}

func (tm *TrafficManager) GlobalPercentageSpeedDifference(ctx context.Context, percent float64) error {
	return tm.c.call(ctx, GlobalPercentageSpeedDifferenceProcedure, tm.req(map[string]any{"percent": percent}), nil)
}

func (tm *TrafficManager) VehiclePercentageSpeedDifference(ctx context.Context, id entity.ActorID, percent float64) error {
	return tm.c.call(ctx, VehiclePercentageSpeedDifferenceProcedure, tm.req(map[string]any{"actor_id": uint32(id), "percent": percent}), nil)
}

func (tm *TrafficManager) AutoLaneChange(ctx context.Context, id entity.ActorID, enabled bool) error {
	return tm.c.call(ctx, AutoLaneChangeProcedure, tm.req(map[string]any{"actor_id": uint32(id), "enabled": enabled}), nil)
}

func (tm *TrafficManager) UpdateVehicleLights(ctx context.Context, id entity.ActorID, enabled bool) error {
	return tm.c.call(ctx, UpdateVehicleLightsProcedure, tm.req(map[string]any{"actor_id": uint32(id), "enabled": enabled}), nil)
}
