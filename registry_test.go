package stellaecs

import (
	"errors"
	"fmt"
	"testing"
)

func TestStaticRegistrationIsIdempotent(t *testing.T) {
	w := Factory.NewWorld()
	position := FactoryNewComponent[testPosition]()
	velocity := FactoryNewComponent[testVelocity]()

	idPos1, err := position.resolve(w)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	idVel, err := velocity.resolve(w)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	idPos2, err := position.resolve(w)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if idPos1 != idPos2 {
		t.Errorf("Re-resolving a type changed its id: %d then %d", idPos1, idPos2)
	}
	if idPos1 == idVel {
		t.Errorf("Distinct types share id %d", idPos1)
	}

	// A second handle for the same Go type resolves to the same id
	other := FactoryNewComponent[testPosition]()
	idOther, _ := other.resolve(w)
	if idOther != idPos1 {
		t.Errorf("Second handle for same type resolved to %d, expected %d", idOther, idPos1)
	}
}

func TestIdsAreWorldLocal(t *testing.T) {
	a := Factory.NewWorld()
	b := Factory.NewWorld()
	position := FactoryNewComponent[testPosition]()
	velocity := FactoryNewComponent[testVelocity]()

	// Registration order differs per world; ids follow first use
	velIDa, _ := velocity.resolve(a)
	posIDa, _ := position.resolve(a)
	posIDb, _ := position.resolve(b)

	if velIDa != 0 || posIDa != 1 {
		t.Errorf("World a assigned ids %d, %d, expected 0, 1", velIDa, posIDa)
	}
	if posIDb != 0 {
		t.Errorf("World b assigned id %d for its first type, expected 0", posIDb)
	}
}

func TestDefineComponentDefaults(t *testing.T) {
	w := Factory.NewWorld()

	mana, err := w.DefineComponent("Mana", map[string]any{"value": 100.0, "max": 150.0})
	if err != nil {
		t.Fatalf("DefineComponent failed: %v", err)
	}

	e := w.CreateEntity()
	if err := mana.Set(w, e, map[string]any{"value": 50.0}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	record, ok := mana.Get(w, e)
	if !ok {
		t.Fatalf("Dynamic component absent after Set")
	}
	if record["value"] != 50.0 {
		t.Errorf("Override field value = %v, expected 50", record["value"])
	}
	if record["max"] != 150.0 {
		t.Errorf("Default field max = %v, expected 150", record["max"])
	}

	// Setting with no overrides attaches the pure template
	e2 := w.CreateEntity()
	if err := mana.Set(w, e2, nil); err != nil {
		t.Fatalf("Set with nil overrides failed: %v", err)
	}
	record, _ = mana.Get(w, e2)
	if record["value"] != 100.0 {
		t.Errorf("Template field value = %v, expected 100", record["value"])
	}
}

func TestRedeclareDynamicUpdatesTemplate(t *testing.T) {
	w := Factory.NewWorld()

	if _, err := w.DefineComponent("Stamina", map[string]any{"value": 10.0}); err != nil {
		t.Fatalf("DefineComponent failed: %v", err)
	}
	before := w.CreateEntity()
	if err := w.SetNamed(before, "Stamina", nil); err != nil {
		t.Fatalf("SetNamed failed: %v", err)
	}

	if _, err := w.DefineComponent("Stamina", map[string]any{"value": 99.0}); err != nil {
		t.Fatalf("Re-declaring dynamic type failed: %v", err)
	}

	// Existing records keep their values; new sets see the new template
	after := w.CreateEntity()
	if err := w.SetNamed(after, "Stamina", nil); err != nil {
		t.Fatalf("SetNamed failed: %v", err)
	}
	beforeRec, _ := w.GetNamed(before, "Stamina")
	afterRec, _ := w.GetNamed(after, "Stamina")
	if beforeRec["value"] != 10.0 {
		t.Errorf("Pre-existing record changed on re-declare: %v", beforeRec["value"])
	}
	if afterRec["value"] != 99.0 {
		t.Errorf("New record ignores updated template: %v", afterRec["value"])
	}
}

func TestDefineComponentConflictsWithStaticType(t *testing.T) {
	w := Factory.NewWorld()
	position := FactoryNewComponent[testPosition]()
	e := w.CreateEntity()
	if err := position.Set(w, e, testPosition{}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	_, err := w.DefineComponent(position.TypeName(), map[string]any{"x": 0.0})
	if err == nil {
		t.Fatalf("DefineComponent accepted a name already used by a static type")
	}
	var conflict TypeConflictError
	if !errors.As(err, &conflict) {
		t.Errorf("Expected TypeConflictError, got %T", err)
	}
}

func TestSetNamedUnknownType(t *testing.T) {
	w := Factory.NewWorld()
	e := w.CreateEntity()

	err := w.SetNamed(e, "NeverDeclared", map[string]any{"v": 1.0})
	if err == nil {
		t.Fatalf("SetNamed accepted an undeclared type name")
	}
	var unknown UnknownComponentError
	if !errors.As(err, &unknown) {
		t.Errorf("Expected UnknownComponentError, got %T", err)
	}

	// Reads on undeclared names behave as absence, not errors
	if w.HasNamed(e, "NeverDeclared") {
		t.Errorf("HasNamed reports an undeclared type as present")
	}
	if _, ok := w.GetNamed(e, "NeverDeclared"); ok {
		t.Errorf("GetNamed returned a record for an undeclared type")
	}
}

func TestRegistryCapacity(t *testing.T) {
	w := Factory.NewWorld()

	for i := 0; i < MaxComponentTypes; i++ {
		name := fmt.Sprintf("Type%d", i)
		if _, err := w.DefineComponent(name, nil); err != nil {
			t.Fatalf("DefineComponent(%s) failed: %v", name, err)
		}
	}

	_, err := w.DefineComponent("Overflow", nil)
	if err == nil {
		t.Fatalf("Registry accepted more than %d types", MaxComponentTypes)
	}
	var full RegistryFullError
	if !errors.As(err, &full) {
		t.Errorf("Expected RegistryFullError, got %T", err)
	}
	if full.Capacity != MaxComponentTypes {
		t.Errorf("Error capacity is %d, expected %d", full.Capacity, MaxComponentTypes)
	}
}

func TestNamedHandleResolvesAtUseTime(t *testing.T) {
	w := Factory.NewWorld()
	e := w.CreateEntity()
	mana := Named("Mana")

	// Before declaration the handle reads as absent and refuses writes
	if mana.Has(w, e) {
		t.Errorf("Undeclared named handle reports presence")
	}
	if err := mana.Set(w, e, nil); err == nil {
		t.Errorf("Undeclared named handle accepted a Set")
	}

	if _, err := w.DefineComponent("Mana", map[string]any{"value": 1.0}); err != nil {
		t.Fatalf("DefineComponent failed: %v", err)
	}
	if err := mana.Set(w, e, nil); err != nil {
		t.Fatalf("Set through named handle failed after declaration: %v", err)
	}
	if !mana.Has(w, e) {
		t.Errorf("Named handle does not see the record it wrote")
	}
}
