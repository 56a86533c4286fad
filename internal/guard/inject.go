package guard

import (
	"context"
	"log"
	"math/rand"
	"time"

	"github.com/rpattn/datagov/internal/domain"
	"github.com/rpattn/datagov/internal/repository"
)

// injectableActions is the fixed set of actions chaos testing may target.
var injectableActions = map[domain.Action]bool{
	domain.ActionPromote:          true,
	domain.ActionRollback:         true,
	domain.ActionSnapshotActivate: true,
	domain.ActionIngest:           true,
	domain.ActionReadAnalytics:    true,
}

// partialStepTotals fixes the step count reported by a partial injection per
// action. No step ever actually runs; the injector fires before any mutation.
var partialStepTotals = map[domain.Action]int{
	domain.ActionPromote:          3,
	domain.ActionRollback:         2,
	domain.ActionSnapshotActivate: 2,
	domain.ActionIngest:           2,
	domain.ActionReadAnalytics:    1,
}

// Injector simulates failures for chaos testing. The random source is
// injected so tests can assert exact roll outcomes; sleep is injected so the
// timeout simulation is instant under test.
type Injector struct {
	repo  repository.FailureInjectionRepository
	audit *AuditLogger
	roll  func() int
	sleep func(time.Duration)
}

// NewInjector wires the failure-injection guard over a seedable random
// source. A nil source falls back to a time-seeded one.
func NewInjector(repo repository.FailureInjectionRepository, audit *AuditLogger, src *rand.Rand) *Injector {
	if src == nil {
		src = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Injector{
		repo:  repo,
		audit: audit,
		roll:  func() int { return src.Intn(100) + 1 },
		sleep: time.Sleep,
	}
}

// AssertNoInjectedFailure rolls against the configured probability for the
// (workspace, action) pair and simulates the configured failure on a hit. The
// audit entry is written before the simulated failure is returned. Config
// lookup failure fails open: chaos testing must never become a source of real
// unavailability.
func (i *Injector) AssertNoInjectedFailure(ctx context.Context, actor domain.Actor, action domain.Action) error {
	if !injectableActions[action] {
		return nil
	}

	config, err := i.repo.Get(ctx, actor.WorkspaceID, action)
	if err != nil {
		log.Printf("WARN: failure injection lookup failed, failing open: %v", err)
		return nil
	}
	if config == nil || !config.Enabled || config.Probability <= 0 {
		return nil
	}

	rolled := i.roll()
	if rolled > config.Probability {
		return nil
	}

	i.audit.Record(ctx, domain.AuditLogEntry{
		WorkspaceID: actor.WorkspaceID,
		ActorID:     actor.ID,
		ActorRole:   actor.Role,
		Action:      action,
		EntityType:  "failure_injection",
		EntityID:    string(config.FailureType),
		Metadata: map[string]any{
			"guard":       "failure_injection",
			"rolled":      rolled,
			"probability": config.Probability,
		},
	})

	return i.simulate(config.FailureType, action)
}

func (i *Injector) simulate(failureType domain.FailureType, action domain.Action) error {
	switch failureType {
	case domain.FailureTypeTimeout:
		// Nothing real is in flight; the guard runs before any mutation.
		delay := time.Duration(5+i.roll()%6) * time.Second
		i.sleep(delay)
		return &domain.InjectedFailureError{Type: domain.FailureTypeTimeout, Action: action}
	case domain.FailureTypePartial:
		total := partialStepTotals[action]
		if total < 1 {
			total = 1
		}
		return &domain.InjectedFailureError{
			Type:           domain.FailureTypePartial,
			Action:         action,
			StepsCompleted: total - 1,
			StepsTotal:     total,
		}
	case domain.FailureTypeStaleData:
		return &domain.InjectedFailureError{Type: domain.FailureTypeStaleData, Action: action}
	default:
		return &domain.InjectedFailureError{Type: domain.FailureTypeThrow, Action: action}
	}
}
