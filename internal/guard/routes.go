package guard

// fullChain is what every CRITICAL route implements via Chain.Guard plus its
// post-action audit write.
var fullChain = []Stage{StageActorResolution, StageKillSwitch, StageFailureInjection, StagePermission, StageAuditLog}

// ProductionRoutes declares the real route table. Every handler in
// cmd/server must appear here; `govctl verify-coverage` gates the build on
// this registry.
func ProductionRoutes() *Registry {
	reg := NewRegistry()

	// Read routes still pass through the chain, so they implement more than
	// their criticality requires; extra guards are never a violation.
	readChain := []Stage{StageActorResolution, StageKillSwitch, StageFailureInjection, StagePermission}

	reg.Register(Route{Method: "POST", Path: "/api/ingestions", Criticality: CriticalityCritical, Implemented: fullChain})
	reg.Register(Route{Method: "GET", Path: "/api/ingestions", Criticality: CriticalityMedium, Implemented: readChain})
	reg.Register(Route{Method: "POST", Path: "/api/promotions", Criticality: CriticalityCritical, Implemented: fullChain})
	reg.Register(Route{Method: "POST", Path: "/api/rollbacks", Criticality: CriticalityCritical, Implemented: fullChain})
	reg.Register(Route{Method: "GET", Path: "/api/snapshots/active", Criticality: CriticalityLow, Implemented: nil})
	reg.Register(Route{Method: "GET", Path: "/api/snapshots/history", Criticality: CriticalityMedium, Implemented: readChain})
	reg.Register(Route{Method: "POST", Path: "/api/admin/killswitch", Criticality: CriticalityCritical, Implemented: fullChain})
	reg.Register(Route{Method: "POST", Path: "/api/admin/chaos", Criticality: CriticalityHigh, Implemented: fullChain})

	return reg
}
