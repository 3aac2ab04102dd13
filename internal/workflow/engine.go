// Package workflow implements the incident status state machine.
//
// The machine carries two guard layers on purpose: the generic-update
// transition table, and separate archive/reset predicates. The full
// lifecycle contains RESOLVED->ARCHIVED and ARCHIVED->OPEN edges, but those
// are reachable only through the dedicated archive and reset operations,
// never through a plain status update.
package workflow

import (
	"fmt"

	"github.com/incidentops/tracker/internal/config"
	"github.com/incidentops/tracker/internal/domain"
)

// Engine answers legality questions about status changes and enumeration
// membership. It is stateless; all rules come from configuration.
type Engine struct {
	statuses    map[domain.Status]struct{}
	initial     domain.Status
	generic     map[domain.Status]map[domain.Status]struct{}
	archiveFrom map[domain.Status]struct{}
	resetFrom   domain.Status
	categories  map[domain.Category]struct{}
	severities  map[domain.Severity]struct{}
}

// NewEngine builds an engine from configuration. It fails if the transition
// table or the archive/reset rules reference a status that is not declared.
func NewEngine(cfg config.WorkflowConfig) (*Engine, error) {
	e := &Engine{
		statuses:    make(map[domain.Status]struct{}, len(cfg.Statuses)),
		initial:     domain.Status(cfg.InitialStatus),
		generic:     make(map[domain.Status]map[domain.Status]struct{}, len(cfg.Transitions)),
		archiveFrom: make(map[domain.Status]struct{}, len(cfg.ArchiveFrom)),
		resetFrom:   domain.Status(cfg.ResetFrom),
		categories:  make(map[domain.Category]struct{}, len(cfg.Categories)),
		severities:  make(map[domain.Severity]struct{}, len(cfg.Severities)),
	}

	for _, s := range cfg.Statuses {
		e.statuses[domain.Status(s)] = struct{}{}
	}
	if _, ok := e.statuses[e.initial]; !ok {
		return nil, fmt.Errorf("workflow: initial status %q is not a declared status", cfg.InitialStatus)
	}

	for from, tos := range cfg.Transitions {
		f := domain.Status(from)
		if _, ok := e.statuses[f]; !ok {
			return nil, fmt.Errorf("workflow: transition source %q is not a declared status", from)
		}
		edges := make(map[domain.Status]struct{}, len(tos))
		for _, to := range tos {
			t := domain.Status(to)
			if _, ok := e.statuses[t]; !ok {
				return nil, fmt.Errorf("workflow: transition target %q is not a declared status", to)
			}
			edges[t] = struct{}{}
		}
		e.generic[f] = edges
	}

	for _, s := range cfg.ArchiveFrom {
		f := domain.Status(s)
		if _, ok := e.statuses[f]; !ok {
			return nil, fmt.Errorf("workflow: archive source %q is not a declared status", s)
		}
		e.archiveFrom[f] = struct{}{}
	}
	if _, ok := e.statuses[e.resetFrom]; !ok {
		return nil, fmt.Errorf("workflow: reset source %q is not a declared status", cfg.ResetFrom)
	}

	for _, c := range cfg.Categories {
		e.categories[domain.Category(c)] = struct{}{}
	}
	for _, s := range cfg.Severities {
		e.severities[domain.Severity(s)] = struct{}{}
	}

	return e, nil
}

// Initial returns the status assigned at creation.
func (e *Engine) Initial() domain.Status {
	return e.initial
}

// KnownStatus reports whether s is a declared status value.
func (e *Engine) KnownStatus(s domain.Status) bool {
	_, ok := e.statuses[s]
	return ok
}

// CanTransition reports whether the generic status-update table allows
// from -> to. Archive and reset edges are not part of this table.
func (e *Engine) CanTransition(from, to domain.Status) bool {
	edges, ok := e.generic[from]
	if !ok {
		return false
	}
	_, ok = edges[to]
	return ok
}

// CanArchive reports whether an incident in the given status may be
// archived through the dedicated archive operation.
func (e *Engine) CanArchive(from domain.Status) bool {
	_, ok := e.archiveFrom[from]
	return ok
}

// CanReset reports whether an incident in the given status may be returned
// to the initial status through the dedicated reset operation.
func (e *Engine) CanReset(from domain.Status) bool {
	return from == e.resetFrom
}

// KnownCategory reports whether c is a declared category.
func (e *Engine) KnownCategory(c domain.Category) bool {
	_, ok := e.categories[c]
	return ok
}

// KnownSeverity reports whether s is a declared severity.
func (e *Engine) KnownSeverity(s domain.Severity) bool {
	_, ok := e.severities[s]
	return ok
}
