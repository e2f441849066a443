package arlam

import (
	"fmt"
	"sort"
)

type varLevel struct {
	name  string
	level int
}

// sortedVarLevels expands the (variable, level) cross product, pinning 2-D
// variables to level 0, and sorts lexicographically by (name, level).
func sortedVarLevels(varNames []string, is3D map[string]bool, levels []int) ([]varLevel, error) {
	seen := make(map[string]bool, len(varNames))
	vls := []varLevel{}
	for _, nam := range varNames {
		if seen[nam] {
			return nil, confErrf("variable %q listed more than once", nam)
		}
		seen[nam] = true
		if is3D[nam] {
			if len(levels) == 0 {
				return nil, confErrf("3-D variable %q with no vertical levels", nam)
			}
			for _, lvl := range levels {
				vls = append(vls, varLevel{nam, lvl})
			}
		} else {
			vls = append(vls, varLevel{nam, 0})
		}
	}
	sort.Slice(vls, func(i, j int) bool {
		if vls[i].name != vls[j].name {
			return vls[i].name < vls[j].name
		}
		return vls[i].level < vls[j].level
	})
	return vls, nil
}

// BuildVarIndex assigns every (variable, level) pair a position in the
// flattened feature dimension and groups positions by variable name. The
// returned lists partition [0, feature dim): no gaps, no overlaps.
func BuildVarIndex(varNames []string, is3D map[string]bool, levels []int) (map[string][]int, error) {
	vls, err := sortedVarLevels(varNames, is3D, levels)
	if err != nil {
		return nil, err
	}
	vi := make(map[string][]int, len(varNames))
	for i, vl := range vls {
		vi[vl.name] = append(vi[vl.name], i)
	}
	return vi, nil
}

// FlatVarNames labels every position of the flattened feature dimension,
// in index order. 3-D variables are suffixed with their level.
func FlatVarNames(varNames []string, is3D map[string]bool, levels []int) ([]string, error) {
	vls, err := sortedVarLevels(varNames, is3D, levels)
	if err != nil {
		return nil, err
	}
	fn := make([]string, len(vls))
	for i, vl := range vls {
		if is3D[vl.name] {
			fn[i] = fmt.Sprintf("%s_l%02d", vl.name, vl.level)
		} else {
			fn[i] = vl.name
		}
	}
	return fn, nil
}
