package scope

import (
	"testing"

	"github.com/javadec/javadec/internal/types"
)

func TestBindParameters_MainHeuristic(t *testing.T) {
	s := New(KindMethod, 0, 100, nil)
	stringArray := types.NewArray(types.NewClass("java.lang", "String"), 1)
	s.BindParameters(nil, []types.Type{stringArray}, "main")
	v := s.GetVariable(0, true)
	if v.Name != "args" {
		t.Fatalf("expected main(String[]) param named args, got %q", v.Name)
	}
}

func TestGetVariable_CreatesAnyTypePlaceholder(t *testing.T) {
	s := New(KindMethod, 0, 100, nil)
	v := s.GetVariable(5, false)
	if v.Type.Kind != types.KindAny {
		t.Fatalf("expected AnyType placeholder, got %+v", v.Type)
	}
}

func TestChooseNames_DisambiguatesCollisions(t *testing.T) {
	s := New(KindMethod, 0, 100, nil)
	s.AddVariable(&Variable{Slot: 1, Type: types.Int})
	s.AddVariable(&Variable{Slot: 2, Type: types.Int})
	s.ChooseNames()
	n1, n2 := s.vars[1].Name, s.vars[2].Name
	if n1 == n2 {
		t.Fatalf("expected distinct names, got %q and %q", n1, n2)
	}
}
