package meallog

import (
	"testing"

	"github.com/tinybites/tinybites/internal/storage"
)

func foodLog(id string, logged bool) storage.FoodLog {
	return storage.FoodLog{
		Food:    storage.Food{ID: id, Name: id},
		Logged:  logged,
		Allergy: "none",
	}
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name   string
		active []storage.FoodLog
		want   Status
	}{
		{"empty", []storage.FoodLog{}, StatusPlanned},
		{"none logged", []storage.FoodLog{foodLog("a", false), foodLog("b", false)}, StatusPlanned},
		{"some logged", []storage.FoodLog{foodLog("a", true), foodLog("b", false)}, StatusPartial},
		{"all logged", []storage.FoodLog{foodLog("a", true), foodLog("b", true)}, StatusComplete},
		{"single logged", []storage.FoodLog{foodLog("a", true)}, StatusComplete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveStatus(tt.active); got != tt.want {
				t.Errorf("DeriveStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func testSession(foods ...storage.FoodLog) *Session {
	return newSession(storage.Meal{
		ID:           "meal1",
		OwnerUserID:  "user1",
		Date:         "2024-01-01",
		MealType:     "snack",
		PlannedFoods: foods,
	})
}

func strPtr(s string) *string { return &s }

func TestUpdateLog_MarksLogged(t *testing.T) {
	sess := testSession(foodLog("banana", false))

	sess.updateLog("banana", LogPatch{Amount: strPtr("some")})

	if !sess.foods[0].Logged {
		t.Error("recording an amount alone should mark the entry logged")
	}
	if sess.foods[0].Amount != "some" {
		t.Errorf("expected amount 'some', got %q", sess.foods[0].Amount)
	}
	if sess.foods[0].Reaction != "" {
		t.Errorf("reaction should stay empty, got %q", sess.foods[0].Reaction)
	}
}

func TestUpdateLog_Idempotent(t *testing.T) {
	sess := testSession(foodLog("banana", false))

	patch := LogPatch{Reaction: strPtr("yum"), Amount: strPtr("all")}
	sess.updateLog("banana", patch)
	first := sess.foods[0]

	sess.updateLog("banana", patch)
	if sess.foods[0] != first {
		t.Errorf("second identical patch changed the entry: %+v vs %+v", sess.foods[0], first)
	}
}

func TestUpdateLog_UnknownFoodIsNoOp(t *testing.T) {
	sess := testSession(foodLog("banana", false))

	sess.updateLog("missing", LogPatch{Reaction: strPtr("yum")})

	if sess.foods[0].Logged {
		t.Error("unknown food id must not touch other entries")
	}
	if sess.alert != nil {
		t.Error("unknown food id must not raise an alert")
	}
}

func TestUpdateLog_AllergyRaisesAlert(t *testing.T) {
	sess := testSession(foodLog("egg", false), foodLog("banana", false))

	sess.updateLog("egg", LogPatch{Allergy: strPtr("mild")})

	if sess.alert == nil {
		t.Fatal("expected a pending alert")
	}
	if sess.alert.Food.ID != "egg" || sess.alert.Severity != "mild" {
		t.Errorf("unexpected alert: %+v", sess.alert)
	}

	// A newer detection replaces the pending one, last write wins.
	sess.updateLog("banana", LogPatch{Allergy: strPtr("severe")})
	if sess.alert.Food.ID != "banana" || sess.alert.Severity != "severe" {
		t.Errorf("expected alert replaced by banana/severe, got %+v", sess.alert)
	}
}

func TestUpdateLog_AllergyNoneDoesNotAlert(t *testing.T) {
	sess := testSession(foodLog("banana", false))

	sess.updateLog("banana", LogPatch{Allergy: strPtr("none")})

	if sess.alert != nil {
		t.Error("allergy 'none' must not raise an alert")
	}
}

func TestRemoveRestore_PreservesOrderAndFields(t *testing.T) {
	sess := testSession(foodLog("a", false), foodLog("b", false), foodLog("c", false))
	sess.updateLog("b", LogPatch{Reaction: strPtr("good")})

	before := sess.activeFoods()

	sess.removeFood("b")
	active := sess.activeFoods()
	if len(active) != 2 || active[0].Food.ID != "a" || active[1].Food.ID != "c" {
		t.Fatalf("unexpected active set after removal: %+v", active)
	}

	sess.restoreFood("b")
	after := sess.activeFoods()
	if len(after) != len(before) {
		t.Fatalf("expected %d active foods after restore, got %d", len(before), len(after))
	}
	for i := range before {
		if after[i] != before[i] {
			t.Errorf("entry %d differs after restore: %+v vs %+v", i, after[i], before[i])
		}
	}
}

func TestRemove_ExcludedFromStatus(t *testing.T) {
	sess := testSession(foodLog("a", true), foodLog("b", false))

	if got := DeriveStatus(sess.activeFoods()); got != StatusPartial {
		t.Fatalf("expected partial, got %v", got)
	}

	sess.removeFood("b")
	if got := DeriveStatus(sess.activeFoods()); got != StatusComplete {
		t.Errorf("expected complete after removing the unlogged food, got %v", got)
	}
}
