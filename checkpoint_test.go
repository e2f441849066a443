package arlam

import (
	"path/filepath"
	"testing"
)

func legacyDict() map[string]Param {
	return map[string]Param{
		"g2m_gnn.grid_mlp.0.weight": {Shape: []int{2, 2}, Data: []float64{1, 2, 3, 4}},
		"g2m_gnn.grid_mlp.0.bias":   {Shape: []int{2}, Data: []float64{5, 6}},
		"processor.0.weight":        {Shape: []int{2}, Data: []float64{7, 8}},
	}
}

func TestMigrateStateDict(t *testing.T) {
	sd := legacyDict()
	MigrateStateDict(sd)

	if _, ok := sd["g2m_gnn.grid_mlp.0.weight"]; ok {
		t.Errorf("legacy key survived the migration")
	}
	w, ok := sd["encoding_grid_mlp.0.weight"]
	if !ok {
		t.Fatalf("migrated key missing; have %v", keysOf(sd))
	}
	if len(w.Data) != 4 || w.Data[0] != 1 {
		t.Errorf("migration corrupted the parameter: %+v", w)
	}
	if _, ok := sd["encoding_grid_mlp.0.bias"]; !ok {
		t.Errorf("sibling legacy key not renamed")
	}
	if _, ok := sd["processor.0.weight"]; !ok {
		t.Errorf("unrelated key touched")
	}

	// idempotent: a second pass finds nothing to rename
	MigrateStateDict(sd)
	if len(sd) != 3 {
		t.Errorf("expected 3 keys after re-migration, got %d", len(sd))
	}
}

func TestMigrateSkipsWithoutProbe(t *testing.T) {
	sd := map[string]Param{
		"g2m_gnn.grid_mlp.0.bias": {Data: []float64{1}}, // prefix but no probe key
		"encoding_grid_mlp.0.weight": {Data: []float64{2}},
	}
	MigrateStateDict(sd)
	if _, ok := sd["g2m_gnn.grid_mlp.0.bias"]; !ok {
		t.Errorf("dict without the probe key must pass through untouched")
	}
}

func TestCheckpointGobRoundTrip(t *testing.T) {
	fp := filepath.Join(t.TempDir(), "test.ckpt.gob")
	c := Checkpoint{
		StateDict:  legacyDict(),
		OptMoments: map[string][]float64{"processor.0.weight": {0.1, 0.2}},
		Epoch:      7,
	}
	if err := c.SaveGob(fp); err != nil {
		t.Fatalf("SaveGob: %v", err)
	}

	// default restore: migrated names, fresh optimizer state
	got, err := LoadGobCheckpoint(fp, false)
	if err != nil {
		t.Fatalf("LoadGobCheckpoint: %v", err)
	}
	if got.Epoch != 7 {
		t.Errorf("expected epoch 7, got %d", got.Epoch)
	}
	if got.OptMoments != nil {
		t.Errorf("optimizer state kept on a fresh restore")
	}
	if _, ok := got.StateDict["encoding_grid_mlp.0.weight"]; !ok {
		t.Errorf("legacy names not migrated on load; have %v", keysOf(got.StateDict))
	}

	got, err = LoadGobCheckpoint(fp, true)
	if err != nil {
		t.Fatalf("LoadGobCheckpoint: %v", err)
	}
	if m, ok := got.OptMoments["processor.0.weight"]; !ok || len(m) != 2 {
		t.Errorf("optimizer state lost on a full restore: %v", got.OptMoments)
	}
}

func keysOf(sd map[string]Param) []string {
	ks := make([]string, 0, len(sd))
	for k := range sd {
		ks = append(ks, k)
	}
	return ks
}
