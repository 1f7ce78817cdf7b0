package bridge

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"github.com/tsinghua-fib-lab/takeover-sim/entity"
	"gonum.org/v1/gonum/spatial/r3"
	"google.golang.org/protobuf/types/known/structpb"
)

type handlerFunc func(ctx context.Context, in map[string]any) (map[string]any, error)

var errBadRequest = errors.New("bad request")

// unary 把handlerFunc包装为Connect处理器
func unary(procedure string, fn handlerFunc, opts ...connect.HandlerOption) http.Handler {
	return connect.NewUnaryHandler(procedure, func(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
		out, err := fn(ctx, req.Msg.AsMap())
		if err != nil {
			if errors.Is(err, errBadRequest) {
				return nil, connect.NewError(connect.CodeInvalidArgument, err)
			}
			return nil, connect.NewError(connect.CodeInternal, err)
		}
		if out == nil {
			out = map[string]any{}
		}
		msg, err := structpb.NewStruct(out)
		if err != nil {
			return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("encode response: %w", err))
		}
		return connect.NewResponse(msg), nil
	}, opts...)
}

// request 解码请求，失败时返回errBadRequest
func request[T any](in map[string]any) (T, error) {
	var req T
	if err := decode(in, &req); err != nil {
		return req, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return req, nil
}

type actorRequest struct {
	ActorID  entity.ActorID
	SensorID entity.ActorID
	Parent   entity.ActorID
	Enabled  bool
	TMPort   int
	Location r3.Vec
	Velocity r3.Vec
	Control  entity.VehicleControl
}

type waypointRequest struct {
	Waypoint entity.Waypoint
	Distance float64
}

type spawnRequest struct {
	Blueprint string
	Transform entity.Transform
	Parent    entity.ActorID
}

type trafficRequest struct {
	Port    int
	ActorID entity.ActorID
	Enabled bool
	Meters  float64
	Percent float64
}

// Register 在mux上挂载一个以client为后端的桥接服务
// 说明：与内存世界（entity/sandbox）配合即可在没有仿真器的机器上彩排整个实验流程
func Register(mux *http.ServeMux, client entity.IClient, opts ...connect.HandlerOption) {
	w := client.World()
	handlers := map[string]handlerFunc{
		TickProcedure: func(ctx context.Context, in map[string]any) (map[string]any, error) {
			frame, err := w.Tick(ctx)
			return map[string]any{"frame": frame}, err
		},
		GetSettingsProcedure: func(ctx context.Context, in map[string]any) (map[string]any, error) {
			s, err := w.Settings(ctx)
			return encodeSettings(s), err
		},
		ApplySettingsProcedure: func(ctx context.Context, in map[string]any) (map[string]any, error) {
			s, err := request[entity.WorldSettings](in)
			if err != nil {
				return nil, err
			}
			return nil, w.ApplySettings(ctx, s)
		},
		GetWeatherProcedure: func(ctx context.Context, in map[string]any) (map[string]any, error) {
			weather, err := w.Weather(ctx)
			return encodeWeather(weather), err
		},
		SetWeatherProcedure: func(ctx context.Context, in map[string]any) (map[string]any, error) {
			weather, err := request[entity.Weather](in)
			if err != nil {
				return nil, err
			}
			return nil, w.SetWeather(ctx, weather)
		},
		SetWeatherPresetProcedure: func(ctx context.Context, in map[string]any) (map[string]any, error) {
			req, err := request[struct{ Name string }](in)
			if err != nil {
				return nil, err
			}
			return nil, w.SetWeatherPreset(ctx, req.Name)
		},
		GetBlueprintsProcedure: func(ctx context.Context, in map[string]any) (map[string]any, error) {
			req, err := request[struct{ Filter string }](in)
			if err != nil {
				return nil, err
			}
			bps, err := w.Blueprints(ctx, req.Filter)
			return map[string]any{"blueprints": encodeList(bps, encodeBlueprint)}, err
		},
		GetActorsProcedure: func(ctx context.Context, in map[string]any) (map[string]any, error) {
			req, err := request[struct{ Filter string }](in)
			if err != nil {
				return nil, err
			}
			actors, err := w.Actors(ctx, req.Filter)
			return map[string]any{"actors": encodeList(actors, encodeActor)}, err
		},
		SpawnActorProcedure: func(ctx context.Context, in map[string]any) (map[string]any, error) {
			req, err := request[spawnRequest](in)
			if err != nil {
				return nil, err
			}
			a, err := w.SpawnActor(ctx, req.Blueprint, req.Transform, req.Parent)
			return encodeActor(a), err
		},
		TrySpawnActorProcedure: func(ctx context.Context, in map[string]any) (map[string]any, error) {
			req, err := request[spawnRequest](in)
			if err != nil {
				return nil, err
			}
			a, ok, err := w.TrySpawnActor(ctx, req.Blueprint, req.Transform)
			return map[string]any{"ok": ok, "value": encodeActor(a)}, err
		},
		ApplyBatchProcedure: func(ctx context.Context, in map[string]any) (map[string]any, error) {
			req, err := request[struct{ Commands []entity.SpawnCommand }](in)
			if err != nil {
				return nil, err
			}
			res, err := w.ApplyBatch(ctx, req.Commands)
			return map[string]any{"results": encodeList(res, encodeSpawnResult)}, err
		},
		DestroyActorsProcedure: func(ctx context.Context, in map[string]any) (map[string]any, error) {
			req, err := request[struct{ ActorIDs []entity.ActorID }](in)
			if err != nil {
				return nil, err
			}
			return nil, w.DestroyActors(ctx, req.ActorIDs)
		},
		GetSpawnPointsProcedure: func(ctx context.Context, in map[string]any) (map[string]any, error) {
			ts, err := w.SpawnPoints(ctx)
			return map[string]any{"transforms": encodeList(ts, encodeTransform)}, err
		},
		GetWaypointProcedure: func(ctx context.Context, in map[string]any) (map[string]any, error) {
			req, err := request[actorRequest](in)
			if err != nil {
				return nil, err
			}
			wp, err := w.Waypoint(ctx, req.Location)
			return encodeWaypoint(wp), err
		},
		WaypointNextProcedure: func(ctx context.Context, in map[string]any) (map[string]any, error) {
			req, err := request[waypointRequest](in)
			if err != nil {
				return nil, err
			}
			wps, err := w.WaypointNext(ctx, req.Waypoint, req.Distance)
			return map[string]any{"waypoints": encodeList(wps, encodeWaypoint)}, err
		},
		WaypointPreviousProcedure: func(ctx context.Context, in map[string]any) (map[string]any, error) {
			req, err := request[waypointRequest](in)
			if err != nil {
				return nil, err
			}
			wps, err := w.WaypointPrevious(ctx, req.Waypoint, req.Distance)
			return map[string]any{"waypoints": encodeList(wps, encodeWaypoint)}, err
		},
		LeftLaneProcedure: func(ctx context.Context, in map[string]any) (map[string]any, error) {
			req, err := request[waypointRequest](in)
			if err != nil {
				return nil, err
			}
			wp, ok, err := w.LeftLane(ctx, req.Waypoint)
			return map[string]any{"ok": ok, "value": encodeWaypoint(wp)}, err
		},
		RightLaneProcedure: func(ctx context.Context, in map[string]any) (map[string]any, error) {
			req, err := request[waypointRequest](in)
			if err != nil {
				return nil, err
			}
			wp, ok, err := w.RightLane(ctx, req.Waypoint)
			return map[string]any{"ok": ok, "value": encodeWaypoint(wp)}, err
		},
		GetLocationProcedure: func(ctx context.Context, in map[string]any) (map[string]any, error) {
			req, err := request[actorRequest](in)
			if err != nil {
				return nil, err
			}
			loc, err := w.Location(ctx, req.ActorID)
			return encodeVec(loc), err
		},
		SetLocationProcedure: func(ctx context.Context, in map[string]any) (map[string]any, error) {
			req, err := request[actorRequest](in)
			if err != nil {
				return nil, err
			}
			return nil, w.SetLocation(ctx, req.ActorID, req.Location)
		},
		SetAutopilotProcedure: func(ctx context.Context, in map[string]any) (map[string]any, error) {
			req, err := request[actorRequest](in)
			if err != nil {
				return nil, err
			}
			return nil, w.SetAutopilot(ctx, req.ActorID, req.Enabled, req.TMPort)
		},
		ApplyControlProcedure: func(ctx context.Context, in map[string]any) (map[string]any, error) {
			req, err := request[actorRequest](in)
			if err != nil {
				return nil, err
			}
			return nil, w.ApplyControl(ctx, req.ActorID, req.Control)
		},
		EnableConstantVelocityProcedure: func(ctx context.Context, in map[string]any) (map[string]any, error) {
			req, err := request[actorRequest](in)
			if err != nil {
				return nil, err
			}
			return nil, w.EnableConstantVelocity(ctx, req.ActorID, req.Velocity)
		},
		DisableConstantVelocityProcedure: func(ctx context.Context, in map[string]any) (map[string]any, error) {
			req, err := request[actorRequest](in)
			if err != nil {
				return nil, err
			}
			return nil, w.DisableConstantVelocity(ctx, req.ActorID)
		},
		ListenCollisionsProcedure: func(ctx context.Context, in map[string]any) (map[string]any, error) {
			req, err := request[actorRequest](in)
			if err != nil {
				return nil, err
			}
			id, err := w.ListenCollisions(ctx, req.Parent)
			return map[string]any{"sensor_id": uint32(id)}, err
		},
		CollisionEventsProcedure: func(ctx context.Context, in map[string]any) (map[string]any, error) {
			req, err := request[actorRequest](in)
			if err != nil {
				return nil, err
			}
			events, err := w.CollisionEvents(ctx, req.SensorID)
			return map[string]any{"events": encodeList(events, encodeCollision)}, err
		},
		EyeTrackerDataProcedure: func(ctx context.Context, in map[string]any) (map[string]any, error) {
			req, err := request[actorRequest](in)
			if err != nil {
				return nil, err
			}
			d, err := w.EyeTrackerData(ctx, req.SensorID)
			return encodeEyeData(d), err
		},

		// 交通管理器
		SetSynchronousModeProcedure: trafficHandler(client, func(ctx context.Context, tm entity.ITrafficManager, req trafficRequest) error {
			return tm.SetSynchronousMode(ctx, req.Enabled)
		}),
		SetGlobalDistanceToLeadingVehicleProcedure: trafficHandler(client, func(ctx context.Context, tm entity.ITrafficManager, req trafficRequest) error {
			return tm.SetGlobalDistanceToLeadingVehicle(ctx, req.Meters)
		}),
		GlobalPercentageSpeedDifferenceProcedure: trafficHandler(client, func(ctx context.Context, tm entity.ITrafficManager, req trafficRequest) error {
			return tm.GlobalPercentageSpeedDifference(ctx, req.Percent)
		}),
		VehiclePercentageSpeedDifferenceProcedure: trafficHandler(client, func(ctx context.Context, tm entity.ITrafficManager, req trafficRequest) error {
			return tm.VehiclePercentageSpeedDifference(ctx, req.ActorID, req.Percent)
		}),
		AutoLaneChangeProcedure: trafficHandler(client, func(ctx context.Context, tm entity.ITrafficManager, req trafficRequest) error {
			return tm.AutoLaneChange(ctx, req.ActorID, req.Enabled)
		}),
		UpdateVehicleLightsProcedure: trafficHandler(client, func(ctx context.Context, tm entity.ITrafficManager, req trafficRequest) error {
			return tm.UpdateVehicleLights(ctx, req.ActorID, req.Enabled)
		}),
	}
	for procedure, fn := range handlers {
		mux.Handle(procedure, unary(procedure, fn, opts...))
	}
	log.Debugf("registered %d bridge procedures", len(handlers))
}

func trafficHandler(client entity.IClient, fn func(ctx context.Context, tm entity.ITrafficManager, req trafficRequest) error) handlerFunc {
	return func(ctx context.Context, in map[string]any) (map[string]any, error) {
		req, err := request[trafficRequest](in)
		if err != nil {
			return nil, err
		}
		return nil, fn(ctx, client.TrafficManager(req.Port), req)
	}
}
