package forcing

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"time"

	"github.com/maseology/goHydro/grid"
	"github.com/maseology/mmio"
)

func (ds *Dataset) SaveGob(fp string) error {
	f, err := os.Create(fp)
	if err != nil {
		return fmt.Errorf(" Dataset.SaveGob %v", err)
	}
	if err := gob.NewEncoder(f).Encode(ds); err != nil {
		return fmt.Errorf(" Dataset.SaveGob %v", err)
	}
	f.Close()
	return nil
}

func LoadGobDataset(fp string) (*Dataset, error) {
	var ds Dataset
	f, err := os.Open(fp)
	if err != nil {
		return nil, err
	}
	enc := gob.NewDecoder(f)
	err = enc.Decode(&ds)
	if err != nil {
		return nil, err
	}
	f.Close()
	return &ds, nil
}

func (st *Stats) SaveGob(fp string) error {
	f, err := os.Create(fp)
	if err != nil {
		return fmt.Errorf(" Stats.SaveGob %v", err)
	}
	if err := gob.NewEncoder(f).Encode(st); err != nil {
		return fmt.Errorf(" Stats.SaveGob %v", err)
	}
	f.Close()
	return nil
}

func LoadGobStats(fp string) (*Stats, error) {
	var st Stats
	f, err := os.Open(fp)
	if err != nil {
		return nil, err
	}
	enc := gob.NewDecoder(f)
	err = enc.Decode(&st)
	if err != nil {
		return nil, err
	}
	f.Close()
	return &st, nil
}

// FromBins reads a flat float32 series dumped (time, nodes, vars)
// row-major, timestamped from t0 at the model interval.
func FromBins(fp string, t0 time.Time, stepHr, nt, n, v int) *Dataset {
	b := mmio.OpenBinary(fp)
	ds := &Dataset{States: make([]float64, nt*n*v), N: n, V: v, StepHr: stepHr}
	ds.T = make([]time.Time, nt)
	for it := range ds.T {
		ds.T[it] = t0.Add(time.Duration(it*stepHr) * time.Hour)
	}
	for i := range ds.States {
		ds.States[i] = float64(mmio.ReadFloat32(b))
	}
	return ds
}

// ToBil prints the time-mean of every state variable as a check raster.
// cids maps node order to cell ids.
func (ds *Dataset) ToBil(gd *grid.Definition, cids []int, varNames []string, chkdirprfx string) {
	println(" > printing series check rasters..")

	nt := float64(ds.NT())
	for iv, nam := range varNames {
		sva := gd.NullArray(-9999.)
		for in, c := range cids {
			s := 0.
			for it := 0; it < ds.NT(); it++ {
				s += ds.stateAt(it, in, iv)
			}
			sva[c] = s / nt
		}
		writeBil32(gd, fmt.Sprintf("%sseries.mean.%s.bil", chkdirprfx, nam), sva)
	}
}

func writeBil32(gd *grid.Definition, fp string, f []float64) {
	f32 := func() []float32 {
		o := make([]float32, len(f))
		for i, v := range f {
			o[i] = float32(v)
		}
		return o
	}()
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, f32)
	os.WriteFile(fp, buf.Bytes(), 0644)
	gd.ToHDRfloat(mmio.RemoveExtension(fp)+".hdr", 1, 32)
}
