// Package playbook loads and validates the sales playbook configuration.
//
// The playbook is a static tree of conversation stages loaded once at
// startup and read-only thereafter. Each stage declares the routes the
// conversation may take next, with a natural-language condition that the
// stage decision engine evaluates at request time.
package playbook

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// NoRoutesSentinel is rendered when a stage has no outgoing routes, so the
// decision prompt still carries an explicit instruction.
const NoRoutesSentinel = "Nenhuma rota de próximo estágio definida. Mantenha o estágio atual."

// Transition is one allowed route out of a stage. The condition is free
// text, evaluated by the language model rather than by code.
type Transition struct {
	StageID   string `json:"stage_id"`
	Condition string `json:"condition"`
}

// Stage is a named phase of the sales conversation with a goal and the
// set of allowed next phases. An empty PossibleNextStages list makes the
// stage implicitly terminal.
type Stage struct {
	Name               string       `json:"name"`
	Goal               string       `json:"goal"`
	PossibleNextStages []Transition `json:"possible_next_stages"`
}

// Playbook is the full stage tree keyed by stage ID.
type Playbook struct {
	InitialStageID string           `json:"initial_stage"`
	Stages         map[string]Stage `json:"stages"`
}

// Load reads and validates a playbook from a JSON file. A missing or
// invalid playbook is a startup error; the service must not serve without one.
func Load(path string) (*Playbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Error("playbook.Load: failed to read playbook file", "error", err, "path", path)
		return nil, fmt.Errorf("failed to read playbook %s: %w", path, err)
	}
	var pb Playbook
	if err := json.Unmarshal(data, &pb); err != nil {
		slog.Error("playbook.Load: failed to parse playbook JSON", "error", err, "path", path)
		return nil, fmt.Errorf("failed to parse playbook %s: %w", path, err)
	}
	if err := pb.Validate(); err != nil {
		return nil, err
	}
	slog.Info("playbook.Load: playbook loaded", "path", path, "stages", len(pb.Stages), "initial_stage", pb.InitialStageID)
	return &pb, nil
}

// Validate checks the structural invariants of the stage tree: the
// initial stage must exist and every transition must reference a defined
// stage. Validation happens at load time so traversal never fails later.
func (p *Playbook) Validate() error {
	if len(p.Stages) == 0 {
		return fmt.Errorf("playbook has no stages")
	}
	if p.InitialStageID == "" {
		return fmt.Errorf("playbook initial_stage is not set")
	}
	if _, ok := p.Stages[p.InitialStageID]; !ok {
		return fmt.Errorf("playbook initial_stage %q is not a defined stage", p.InitialStageID)
	}
	for id, stage := range p.Stages {
		for _, t := range stage.PossibleNextStages {
			if t.StageID == "" {
				return fmt.Errorf("stage %q has a transition without stage_id", id)
			}
			if _, ok := p.Stages[t.StageID]; !ok {
				return fmt.Errorf("stage %q references undefined stage %q", id, t.StageID)
			}
		}
	}
	return nil
}

// Stage returns the stage for the given ID.
func (p *Playbook) Stage(id string) (Stage, bool) {
	s, ok := p.Stages[id]
	return s, ok
}

// Routes returns the allowed transitions out of the given stage. Unknown
// stages yield no routes, which keeps the decision engine conservative.
func (p *Playbook) Routes(id string) []Transition {
	s, ok := p.Stages[id]
	if !ok {
		return nil
	}
	return s.PossibleNextStages
}

// FormatRoutes renders transitions as the route list used in the stage
// decision prompt, one route per line.
func FormatRoutes(routes []Transition) string {
	if len(routes) == 0 {
		return NoRoutesSentinel
	}
	lines := make([]string, 0, len(routes))
	for _, t := range routes {
		lines = append(lines, fmt.Sprintf("- stage_id: %s, condition: %s", t.StageID, t.Condition))
	}
	return strings.Join(lines, "\n")
}
