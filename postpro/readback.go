package postpro

import (
	"fmt"
	"os"

	"github.com/maseology/arlam"
	"github.com/maseology/mmio"
)

// ReadPrediction reads an exported single-sample prediction dump back
// into a sequence of the given dimensions. Dumps hold float32, so values
// round-trip at single precision.
func ReadPrediction(fp string, s, n, v int) (arlam.Seq, error) {
	fi, err := os.Stat(fp)
	if err != nil {
		return arlam.Seq{}, fmt.Errorf(" postpro.ReadPrediction: %v", err)
	}
	if fi.Size() != int64(4*s*n*v) {
		return arlam.Seq{}, fmt.Errorf(" postpro.ReadPrediction: %s holds %d values, need (%d,%d,%d)", fp, fi.Size()/4, s, n, v)
	}
	b := mmio.OpenBinary(fp)
	q := arlam.NewSeq(1, s, n, v)
	for i := range q.Buf {
		q.Buf[i] = float64(mmio.ReadFloat32(b))
	}
	return q, nil
}
