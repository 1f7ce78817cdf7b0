package sandbox

import (
	"context"
	"sync"

	"github.com/tsinghua-fib-lab/takeover-sim/entity"
)

// TrafficManager 记录所有设置的交通管理器
type TrafficManager struct {
	port int

	mtx             sync.Mutex
	Synchronous     bool
	LeadingDistance float64
	SpeedDifference float64
	VehicleSpeed    map[entity.ActorID]float64
	LaneChange      map[entity.ActorID]bool
	Lights          map[entity.ActorID]bool
}

func newTrafficManager(port int) *TrafficManager {
	return &TrafficManager{
		port:         port,
		VehicleSpeed: make(map[entity.ActorID]float64),
		LaneChange:   make(map[entity.ActorID]bool),
		Lights:       make(map[entity.ActorID]bool),
	}
}

func (tm *TrafficManager) Port() int {
	return tm.port
}

func (tm *TrafficManager) SetSynchronousMode(ctx context.Context, enabled bool) error {
	tm.mtx.Lock()
	defer tm.mtx.Unlock()
	tm.Synchronous = enabled
	return nil
}

func (tm *TrafficManager) SetGlobalDistanceToLeadingVehicle(ctx context.Context, meters float64) error {
	tm.mtx.Lock()
	defer tm.mtx.Unlock()
	tm.LeadingDistance = meters
	return nil
}

func (tm *TrafficManager) GlobalPercentageSpeedDifference(ctx context.Context, percent float64) error {
	tm.mtx.Lock()
	defer tm.mtx.Unlock()
	tm.SpeedDifference = percent
	return nil
}

func (tm *TrafficManager) VehiclePercentageSpeedDifference(ctx context.Context, id entity.ActorID, percent float64) error {
	tm.mtx.Lock()
	defer tm.mtx.Unlock()
	tm.VehicleSpeed[id] = percent
	return nil
}

func (tm *TrafficManager) AutoLaneChange(ctx context.Context, id entity.ActorID, enabled bool) error {
	tm.mtx.Lock()
	defer tm.mtx.Unlock()
	tm.LaneChange[id] = enabled
	return nil
}

func (tm *TrafficManager) UpdateVehicleLights(ctx context.Context, id entity.ActorID, enabled bool) error {
	tm.mtx.Lock()
	defer tm.mtx.Unlock()
	tm.Lights[id] = enabled
	return nil
}

// Client 内存仿真器客户端，实现entity.IClient
type Client struct {
	world *World
	tms   map[int]*TrafficManager
	mtx   sync.Mutex
}

// NewClient 基于给定世界创建客户端
func NewClient(w *World) *Client {
	return &Client{world: w, tms: make(map[int]*TrafficManager)}
}

func (c *Client) World() entity.IWorld {
	return c.world
}

func (c *Client) TrafficManager(port int) entity.ITrafficManager {
	return c.Sandbox(port)
}

// Sandbox 返回具体类型的交通管理器，便于检查记录的设置
func (c *Client) Sandbox(port int) *TrafficManager {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	tm, ok := c.tms[port]
	if !ok {
		tm = newTrafficManager(port)
		c.tms[port] = tm
	}
	return tm
}

func (c *Client) Close() error {
	return nil
}
