package bridge

// 桥接服务的RPC过程名
const (
	SimulatorServiceName      = "takeover.bridge.v1.SimulatorService"
	TrafficManagerServiceName = "takeover.bridge.v1.TrafficManagerService"

	TickProcedure                    = "/" + SimulatorServiceName + "/Tick"
	GetSettingsProcedure             = "/" + SimulatorServiceName + "/GetSettings"
	ApplySettingsProcedure           = "/" + SimulatorServiceName + "/ApplySettings"
	GetWeatherProcedure              = "/" + SimulatorServiceName + "/GetWeather"
	SetWeatherProcedure              = "/" + SimulatorServiceName + "/SetWeather"
	SetWeatherPresetProcedure        = "/" + SimulatorServiceName + "/SetWeatherPreset"
	GetBlueprintsProcedure           = "/" + SimulatorServiceName + "/GetBlueprints"
	GetActorsProcedure               = "/" + SimulatorServiceName + "/GetActors"
	SpawnActorProcedure              = "/" + SimulatorServiceName + "/SpawnActor"
	TrySpawnActorProcedure           = "/" + SimulatorServiceName + "/TrySpawnActor"
	ApplyBatchProcedure              = "/" + SimulatorServiceName + "/ApplyBatch"
	DestroyActorsProcedure           = "/" + SimulatorServiceName + "/DestroyActors"
	GetSpawnPointsProcedure          = "/" + SimulatorServiceName + "/GetSpawnPoints"
	GetWaypointProcedure             = "/" + SimulatorServiceName + "/GetWaypoint"
	WaypointNextProcedure            = "/" + SimulatorServiceName + "/WaypointNext"
	WaypointPreviousProcedure        = "/" + SimulatorServiceName + "/WaypointPrevious"
	LeftLaneProcedure                = "/" + SimulatorServiceName + "/LeftLane"
	RightLaneProcedure               = "/" + SimulatorServiceName + "/RightLane"
	GetLocationProcedure             = "/" + SimulatorServiceName + "/GetLocation"
	SetLocationProcedure             = "/" + SimulatorServiceName + "/SetLocation"
	SetAutopilotProcedure            = "/" + SimulatorServiceName + "/SetAutopilot"
	ApplyControlProcedure            = "/" + SimulatorServiceName + "/ApplyControl"
	EnableConstantVelocityProcedure  = "/" + SimulatorServiceName + "/EnableConstantVelocity"
	DisableConstantVelocityProcedure = "/" + SimulatorServiceName + "/DisableConstantVelocity"
	ListenCollisionsProcedure        = "/" + SimulatorServiceName + "/ListenCollisions"
	CollisionEventsProcedure         = "/" + SimulatorServiceName + "/CollisionEvents"
	EyeTrackerDataProcedure          = "/" + SimulatorServiceName + "/EyeTrackerData"

	SetSynchronousModeProcedure                = "/" + TrafficManagerServiceName + "/SetSynchronousMode"
	SetGlobalDistanceToLeadingVehicleProcedure = "/" + TrafficManagerServiceName + "/SetGlobalDistanceToLeadingVehicle"
	GlobalPercentageSpeedDifferenceProcedure   = "/" + TrafficManagerServiceName + "/GlobalPercentageSpeedDifference"
	VehiclePercentageSpeedDifferenceProcedure  = "/" + TrafficManagerServiceName + "/VehiclePercentageSpeedDifference"
	AutoLaneChangeProcedure                    = "/" + TrafficManagerServiceName + "/AutoLaneChange"
	UpdateVehicleLightsProcedure               = "/" + TrafficManagerServiceName + "/UpdateVehicleLights"
)
