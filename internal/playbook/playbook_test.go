package playbook

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func samplePlaybook() *Playbook {
	return &Playbook{
		InitialStageID: "intro",
		Stages: map[string]Stage{
			"intro": {
				Name: "Introdução",
				Goal: "Entender quem é o cliente.",
				PossibleNextStages: []Transition{
					{StageID: "qualify", Condition: "O cliente respondeu à saudação."},
					{StageID: "demo", Condition: "O cliente pediu uma demonstração."},
				},
			},
			"qualify": {Name: "Qualificação", Goal: "Levantar as necessidades do cliente."},
			"demo":    {Name: "Demonstração", Goal: "Agendar uma demonstração."},
		},
	}
}

func TestValidateAcceptsWellFormedPlaybook(t *testing.T) {
	if err := samplePlaybook().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsUndefinedTransitionTarget(t *testing.T) {
	pb := samplePlaybook()
	stage := pb.Stages["intro"]
	stage.PossibleNextStages = append(stage.PossibleNextStages, Transition{StageID: "ghost", Condition: "never"})
	pb.Stages["intro"] = stage
	err := pb.Validate()
	if err == nil {
		t.Fatal("expected error for undefined stage reference")
	}
	if !strings.Contains(err.Error(), "ghost") {
		t.Errorf("error should name the undefined stage; got %v", err)
	}
}

func TestValidateRejectsBadInitialStage(t *testing.T) {
	pb := samplePlaybook()
	pb.InitialStageID = "missing"
	if err := pb.Validate(); err == nil {
		t.Fatal("expected error for undefined initial stage")
	}
	pb.InitialStageID = ""
	if err := pb.Validate(); err == nil {
		t.Fatal("expected error for empty initial stage")
	}
}

func TestRoutesForUnknownStage(t *testing.T) {
	pb := samplePlaybook()
	if routes := pb.Routes("nope"); routes != nil {
		t.Errorf("expected nil routes for unknown stage, got %v", routes)
	}
}

func TestFormatRoutes(t *testing.T) {
	pb := samplePlaybook()
	out := FormatRoutes(pb.Routes("intro"))
	if !strings.Contains(out, "- stage_id: qualify, condition: O cliente respondeu à saudação.") {
		t.Errorf("route line missing; got %q", out)
	}
	if FormatRoutes(nil) != NoRoutesSentinel {
		t.Errorf("empty routes should render sentinel")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "playbook.json")
	content := `{
		"initial_stage": "intro",
		"stages": {
			"intro": {"name": "Introdução", "goal": "Abrir a conversa.", "possible_next_stages": [{"stage_id": "close", "condition": "Cliente pronto para fechar."}]},
			"close": {"name": "Fechamento", "goal": "Fechar a venda."}
		}
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	pb, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pb.InitialStageID != "intro" {
		t.Errorf("expected initial stage intro, got %q", pb.InitialStageID)
	}
	if _, ok := pb.Stage("close"); !ok {
		t.Error("close stage should be loaded")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing playbook file")
	}
}
