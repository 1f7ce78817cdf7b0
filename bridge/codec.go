package bridge

import (
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/tsinghua-fib-lab/takeover-sim/entity"
	"gonum.org/v1/gonum/spatial/r3"
)

// 消息编码：只产生structpb可接受的基础类型（数字、字符串、布尔、[]any、map[string]any）

func encodeVec(v r3.Vec) map[string]any {
	return map[string]any{"x": v.X, "y": v.Y, "z": v.Z}
}

func encodeTransform(t entity.Transform) map[string]any {
	return map[string]any{
		"location": encodeVec(t.Location),
		"rotation": map[string]any{"pitch": t.Rotation.Pitch, "yaw": t.Rotation.Yaw, "roll": t.Rotation.Roll},
	}
}

// 路点ID用字符串传输，避免超过2^53时丢失精度
func encodeWaypoint(w entity.Waypoint) map[string]any {
	return map[string]any{
		"id":          strconv.FormatUint(w.ID, 10),
		"transform":   encodeTransform(w.Transform),
		"road_id":     w.RoadID,
		"section_id":  w.SectionID,
		"lane_id":     w.LaneID,
		"s":           w.S,
		"lane_change": int32(w.LaneChange),
	}
}

func encodeActor(a entity.Actor) map[string]any {
	return map[string]any{"id": uint32(a.ID), "type_id": a.TypeID, "parent": uint32(a.Parent)}
}

func encodeBlueprint(b entity.Blueprint) map[string]any {
	attrs := make(map[string]any, len(b.Attributes))
	for k, a := range b.Attributes {
		attrs[k] = map[string]any{"value": a.Value, "recommended_values": encodeStrings(a.RecommendedValues)}
	}
	return map[string]any{"id": b.ID, "attributes": attrs}
}

func encodeStrings(s []string) []any {
	res := make([]any, len(s))
	for i, v := range s {
		res[i] = v
	}
	return res
}

func encodeIDs(ids []entity.ActorID) []any {
	res := make([]any, len(ids))
	for i, id := range ids {
		res[i] = uint32(id)
	}
	return res
}

func encodeControl(c entity.VehicleControl) map[string]any {
	return map[string]any{
		"throttle":          c.Throttle,
		"steer":             c.Steer,
		"brake":             c.Brake,
		"hand_brake":        c.HandBrake,
		"reverse":           c.Reverse,
		"manual_gear_shift": c.ManualGearShift,
		"gear":              c.Gear,
	}
}

func encodeSettings(s entity.WorldSettings) map[string]any {
	return map[string]any{
		"synchronous_mode":    s.SynchronousMode,
		"no_rendering_mode":   s.NoRenderingMode,
		"fixed_delta_seconds": s.FixedDeltaSeconds,
	}
}

func encodeWeather(w entity.Weather) map[string]any {
	return map[string]any{
		"cloudiness":                w.Cloudiness,
		"precipitation":             w.Precipitation,
		"precipitation_deposits":    w.PrecipitationDeposits,
		"wind_intensity":            w.WindIntensity,
		"sun_azimuth_angle":         w.SunAzimuthAngle,
		"sun_altitude_angle":        w.SunAltitudeAngle,
		"fog_density":               w.FogDensity,
		"fog_distance":              w.FogDistance,
		"wetness":                   w.Wetness,
		"fog_falloff":               w.FogFalloff,
		"scattering_intensity":      w.ScatteringIntensity,
		"mie_scattering_scale":      w.MieScatteringScale,
		"rayleigh_scattering_scale": w.RayleighScatteringScale,
	}
}

func encodeSpawnCommand(c entity.SpawnCommand) map[string]any {
	attrs := make(map[string]any, len(c.Attributes))
	for k, v := range c.Attributes {
		attrs[k] = v
	}
	return map[string]any{
		"blueprint":  c.Blueprint,
		"attributes": attrs,
		"transform":  encodeTransform(c.Transform),
		"autopilot":  c.Autopilot,
		"tm_port":    c.TMPort,
	}
}

func encodeSpawnResult(r entity.SpawnResult) map[string]any {
	return map[string]any{"actor_id": uint32(r.ActorID), "error": r.Error}
}

func encodeCollision(e entity.CollisionEvent) map[string]any {
	return map[string]any{
		"timestamp":   e.Timestamp,
		"frame":       e.Frame,
		"other_actor": encodeActor(e.OtherActor),
	}
}

func encodeEyeData(d entity.EyeData) map[string]any {
	return map[string]any{
		"timestamp":    d.Timestamp,
		"left_origin":  encodeVec(d.LeftOrigin),
		"right_origin": encodeVec(d.RightOrigin),
		"left_dir":     encodeVec(d.LeftDir),
		"right_dir":    encodeVec(d.RightDir),
		"gaze_origin":  encodeVec(d.GazeOrigin),
		"gaze_dir":     encodeVec(d.GazeDir),
		"vergence":     d.Vergence,
	}
}

func encodeList[T any](items []T, fn func(T) map[string]any) []any {
	res := make([]any, len(items))
	for i, v := range items {
		res[i] = fn(v)
	}
	return res
}

// decode 把消息解码到结构体
// 说明：键名忽略大小写、下划线与连字符，数字与字符串之间可以互相转换
func decode(input map[string]any, out any) error {
	cfg := &mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		MatchName: func(mapKey, fieldName string) bool {
			return normalizeKey(mapKey) == normalizeKey(fieldName)
		},
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

func normalizeKey(value string) string {
	value = strings.ToLower(value)
	value = strings.ReplaceAll(value, "_", "")
	value = strings.ReplaceAll(value, "-", "")
	return value
}
