package arlam

import (
	"errors"
	"testing"
)

func TestBuildVarIndexOrdering(t *testing.T) {
	// listing order must not matter: positions sort by (name, level)
	vi, err := BuildVarIndex([]string{"T_2M", "OTHER"}, map[string]bool{"OTHER": true}, []int{1, 2})
	if err != nil {
		t.Fatalf("BuildVarIndex: %v", err)
	}
	if got := vi["OTHER"]; len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("expected OTHER -> [0 1], got %v", got)
	}
	if got := vi["T_2M"]; len(got) != 1 || got[0] != 2 {
		t.Errorf("expected T_2M -> [2], got %v", got)
	}

	// the index lists partition the feature dimension
	seen := map[int]bool{}
	n := 0
	for _, idx := range vi {
		for _, i := range idx {
			if seen[i] {
				t.Fatalf("position %d assigned twice", i)
			}
			seen[i] = true
			n++
		}
	}
	for i := 0; i < n; i++ {
		if !seen[i] {
			t.Errorf("position %d unassigned", i)
		}
	}
}

func TestFlatVarNames(t *testing.T) {
	fn, err := FlatVarNames([]string{"T_2M", "OTHER"}, map[string]bool{"OTHER": true}, []int{1, 2})
	if err != nil {
		t.Fatalf("FlatVarNames: %v", err)
	}
	want := []string{"OTHER_l01", "OTHER_l02", "T_2M"}
	if len(fn) != len(want) {
		t.Fatalf("expected %d flat names, got %d", len(want), len(fn))
	}
	for i, w := range want {
		if fn[i] != w {
			t.Errorf("flat name %d: expected %q, got %q", i, w, fn[i])
		}
	}
}

func TestVarIndexRejectsBadConfigs(t *testing.T) {
	var ce *ConfigurationError
	if _, err := BuildVarIndex([]string{"T", "T"}, nil, nil); !errors.As(err, &ce) {
		t.Errorf("duplicate name: expected ConfigurationError, got %v", err)
	}
	if _, err := BuildVarIndex([]string{"T"}, map[string]bool{"T": true}, nil); !errors.As(err, &ce) {
		t.Errorf("3-D variable without levels: expected ConfigurationError, got %v", err)
	}
}
