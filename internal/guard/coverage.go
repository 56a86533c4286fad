package guard

import (
	"fmt"
	"strings"
)

// Stage is one guard in the canonical chain. The integer value is the
// canonical order index; lower runs first.
type Stage int

const (
	StageActorResolution Stage = iota
	StageKillSwitch
	StageFailureInjection
	StagePermission
	StageAuditLog
)

var stageNames = map[Stage]string{
	StageActorResolution:  "ACTOR_RESOLUTION",
	StageKillSwitch:       "KILL_SWITCH",
	StageFailureInjection: "FAILURE_INJECTION",
	StagePermission:       "PERMISSION",
	StageAuditLog:         "AUDIT_LOG",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STAGE(%d)", int(s))
}

// Criticality classifies how much of the chain a route must implement.
type Criticality string

const (
	CriticalityCritical Criticality = "CRITICAL"
	CriticalityHigh     Criticality = "HIGH"
	CriticalityMedium   Criticality = "MEDIUM"
	CriticalityLow      Criticality = "LOW"
)

// RequiredGuardsFor maps criticality to the stages a route must implement, in
// canonical order.
func RequiredGuardsFor(c Criticality) []Stage {
	switch c {
	case CriticalityCritical:
		return []Stage{StageActorResolution, StageKillSwitch, StageFailureInjection, StagePermission, StageAuditLog}
	case CriticalityHigh:
		return []Stage{StageActorResolution, StagePermission, StageAuditLog}
	case CriticalityMedium:
		return []Stage{StageActorResolution, StagePermission}
	default:
		return nil
	}
}

// Route declares one registered entry point and the guards it implements.
type Route struct {
	Method      string
	Path        string
	Criticality Criticality
	Implemented []Stage
}

// Registry is the static table of registered routes. It is constructed once
// at process start and passed explicitly to the verification routine; there
// is no ambient package-level table.
type Registry struct {
	routes []Route
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds one route declaration.
func (r *Registry) Register(route Route) {
	r.routes = append(r.routes, route)
}

// Routes returns the registered declarations in registration order.
func (r *Registry) Routes() []Route {
	return append([]Route(nil), r.routes...)
}

// Violation describes one route that fails coverage.
type Violation struct {
	Route      Route
	Missing    []Stage
	OutOfOrder bool
}

func (v Violation) String() string {
	parts := []string{}
	if len(v.Missing) > 0 {
		names := make([]string, len(v.Missing))
		for i, stage := range v.Missing {
			names[i] = stage.String()
		}
		parts = append(parts, "missing "+strings.Join(names, ", "))
	}
	if v.OutOfOrder {
		parts = append(parts, "guards out of canonical order")
	}
	return fmt.Sprintf("%s %s (%s): %s", v.Route.Method, v.Route.Path, v.Route.Criticality, strings.Join(parts, "; "))
}

// CoverageReport is the result of verifying a registry.
type CoverageReport struct {
	Covered    bool
	Violations []Violation
}

// VerifyCoverage checks every registered route: required guards must all be
// implemented, and implemented guards must appear in non-decreasing canonical
// order. The order check is independent of the presence check; an
// out-of-order guard is a violation even when all guards are present.
func VerifyCoverage(reg *Registry) CoverageReport {
	report := CoverageReport{Covered: true}

	for _, route := range reg.Routes() {
		violation := Violation{Route: route}

		implemented := make(map[Stage]bool, len(route.Implemented))
		for _, stage := range route.Implemented {
			implemented[stage] = true
		}
		for _, required := range RequiredGuardsFor(route.Criticality) {
			if !implemented[required] {
				violation.Missing = append(violation.Missing, required)
			}
		}

		for i := 1; i < len(route.Implemented); i++ {
			if route.Implemented[i] < route.Implemented[i-1] {
				violation.OutOfOrder = true
				break
			}
		}

		if len(violation.Missing) > 0 || violation.OutOfOrder {
			report.Covered = false
			report.Violations = append(report.Violations, violation)
		}
	}

	return report
}

// AssertFullCoverage fails when any route misses a required guard or has
// guards out of order. It is meant to run as a build/CI gate, before a
// missing guard ever reaches deployment.
func AssertFullCoverage(reg *Registry) error {
	report := VerifyCoverage(reg)
	if report.Covered {
		return nil
	}

	lines := make([]string, len(report.Violations))
	for i, violation := range report.Violations {
		lines[i] = violation.String()
	}
	return fmt.Errorf("guard coverage verification failed:\n%s", strings.Join(lines, "\n"))
}
