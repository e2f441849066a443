package arlam

import (
	"encoding/gob"
	"fmt"
	"os"
	"strings"
)

// Param is one named model parameter: a flat value buffer and its shape.
type Param struct {
	Shape []int
	Data  []float64
}

// Checkpoint is the persisted training state: the model parameters keyed
// by name, the optimizer moment vectors keyed the same way, and the epoch
// the state was written at.
type Checkpoint struct {
	StateDict  map[string]Param
	OptMoments map[string][]float64
	Epoch      int
}

func (c *Checkpoint) SaveGob(fp string) error {
	f, err := os.Create(fp)
	defer f.Close()
	if err != nil {
		return fmt.Errorf(" Checkpoint.SaveGob %v", err)
	}
	if err := gob.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf(" Checkpoint.SaveGob %v", err)
	}
	return nil
}

// LoadGobCheckpoint reads a checkpoint, migrates legacy parameter names,
// and with restoreOpt false discards the optimizer state so training
// restarts with fresh moments.
func LoadGobCheckpoint(fp string, restoreOpt bool) (*Checkpoint, error) {
	var c Checkpoint
	f, err := os.Open(fp)
	defer f.Close()
	if err != nil {
		return nil, err
	}
	enc := gob.NewDecoder(f)
	err = enc.Decode(&c)
	if err != nil {
		return nil, err
	}
	MigrateStateDict(c.StateDict)
	if !restoreOpt {
		c.OptMoments = nil
	}
	return &c, nil
}

const (
	legacyEncoderPrefix = "g2m_gnn.grid_mlp"
	legacyEncoderProbe  = "g2m_gnn.grid_mlp.0.weight"
	encoderPrefix       = "encoding_grid_mlp"
)

// MigrateStateDict renames parameters saved under the pre-rework encoder
// naming in place. Checkpoints already using the current names pass
// through untouched, so migrating twice is harmless.
func MigrateStateDict(sd map[string]Param) {
	if _, ok := sd[legacyEncoderProbe]; !ok {
		return
	}
	old := []string{}
	for k := range sd {
		if strings.HasPrefix(k, legacyEncoderPrefix) {
			old = append(old, k)
		}
	}
	for _, k := range old {
		sd[encoderPrefix+strings.TrimPrefix(k, legacyEncoderPrefix)] = sd[k]
		delete(sd, k)
	}
}
