package sandbox

import "github.com/tsinghua-fib-lab/takeover-sim/entity"

func vehicle(id, wheels, generation string, colors ...string) entity.Blueprint {
	attrs := map[string]entity.Attribute{
		"number_of_wheels": {Value: wheels},
		"generation":       {Value: generation},
	}
	if len(colors) > 0 {
		attrs["color"] = entity.Attribute{Value: colors[0], RecommendedValues: colors}
	}
	return entity.Blueprint{ID: id, Attributes: attrs}
}

func prop(id string) entity.Blueprint {
	return entity.Blueprint{ID: id, Attributes: map[string]entity.Attribute{}}
}

// 蓝图库
var library = []entity.Blueprint{
	vehicle(EgoTypeID, "4", "2"),
	vehicle("vehicle.audi.tt", "4", "1", "17,37,78", "255,255,255"),
	vehicle("vehicle.chevrolet.impala", "4", "1", "0,0,0", "110,110,110"),
	vehicle("vehicle.ford.mustang", "4", "2", "150,0,0"),
	vehicle("vehicle.tesla.model3", "4", "2", "255,255,255", "0,0,0"),
	vehicle("vehicle.bh.crossbike", "2", "1"),
	vehicle("vehicle.yamaha.yzf", "2", "1"),
	{ID: "walker.pedestrian.0001", Attributes: map[string]entity.Attribute{
		"driver_id": {Value: "1", RecommendedValues: []string{"1", "2"}},
	}},
	prop("static.prop.buffalo"),
	prop("static.prop.laneblock"),
	prop("static.prop.jcb"),
	prop(CollisionTypeID),
	prop(EyeTrackerTypeID),
}

// 天气预设
var presets = map[string]entity.Weather{
	"ClearNoon": {
		Cloudiness: 5, SunAltitudeAngle: 45, FogDistance: 0.75, FogFalloff: 0.1,
		ScatteringIntensity: 1, MieScatteringScale: 0.03, RayleighScatteringScale: 0.0331,
	},
	"MidRainyNoon": {
		Cloudiness: 60, Precipitation: 60, PrecipitationDeposits: 60, WindIntensity: 60,
		SunAltitudeAngle: 45, FogDistance: 0.75, Wetness: 60, FogFalloff: 0.1,
		ScatteringIntensity: 1, MieScatteringScale: 0.03, RayleighScatteringScale: 0.0331,
	},
}
