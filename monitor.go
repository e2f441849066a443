package arlam

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/maseology/mmio"
)

var gwg sync.WaitGroup
var smu sync.Mutex
var tmu sync.Mutex

// DeleteMonitors deletes monitor output from a previous run
func DeleteMonitors(mdldir string, preserveLast bool) {
	if preserveLast {
		mmio.DeleteAllInDirectory(mdldir, ".last")
		if fps, err := mmio.FileListExt(mdldir, ".mon"); err == nil {
			for _, fp := range fps {
				mmio.MoveFile(fp, fp+".last")
			}
		}
	}
	mmio.MakeDir(mdldir)
	mmio.DeleteAllInDirectory(mdldir, ".mon")
	mmio.DeleteAllInDirectory(mdldir, ".tbl")
	mmio.DeleteAllInDirectory(mdldir, ".rmap")
}

// WaitMonitors waits for all writes to complete
func WaitMonitors() {
	gwg.Wait()
}

// Async queues fn on the shared monitor wait group; WaitMonitors blocks
// until it returns.
func Async(fn func()) {
	gwg.Add(1)
	go func() {
		defer gwg.Done()
		fn()
	}()
}

// scalarMonitor collects every logged scalar over a run and prints one
// long-format csv at flush.
type scalarMonitor struct {
	steps []int
	names []string
	vals  []float64
	n     int
}

func (sm *scalarMonitor) log(vals map[string]float64) {
	smu.Lock()
	defer smu.Unlock()
	sm.n++
	names := make([]string, 0, len(vals))
	for nam := range vals {
		names = append(names, nam)
	}
	sort.Strings(names)
	for _, nam := range names {
		sm.steps = append(sm.steps, sm.n)
		sm.names = append(sm.names, nam)
		sm.vals = append(sm.vals, vals[nam])
	}
}

func (sm *scalarMonitor) print(mdir string) {
	defer gwg.Done()
	smu.Lock()
	defer smu.Unlock()
	csvw := mmio.NewCSVwriter(mdir + "scalars.mon")
	defer csvw.Close()
	if err := csvw.WriteHead("step,name,value"); err != nil {
		log.Fatalf("%v", err)
	}
	for i, s := range sm.steps {
		csvw.WriteLine(s, sm.names[i], sm.vals[i])
	}
}

// tmonitor prints one epoch-end metric table, lead steps as rows and
// variables as columns.
type tmonitor struct {
	prefix, metric string
	tbl            []float64
	steps, vars    int
	cols           []string
	dir            string
}

func (tm *tmonitor) print() {
	tmu.Lock()
	defer tmu.Unlock()
	defer gwg.Done()
	csvw := mmio.NewCSVwriter(fmt.Sprintf("%s%s_%s.tbl", tm.dir, tm.prefix, tm.metric))
	defer csvw.Close()
	if err := csvw.WriteHead("step," + strings.Join(tm.cols, ",")); err != nil {
		log.Fatalf("%v", err)
	}
	for is := 0; is < tm.steps; is++ {
		row := make([]interface{}, tm.vars+1)
		row[0] = is + 1
		for iv := 0; iv < tm.vars; iv++ {
			row[iv+1] = tm.tbl[is*tm.vars+iv]
		}
		csvw.WriteLine(row...)
	}
}

// smonitor prints one mean spatial loss map; with cell ids attached the
// map is also written keyed by id for mapping.
type smonitor struct {
	prefix string
	k      int
	v      []float64
	cids   []int
	dir    string
}

func (m *smonitor) print() {
	defer gwg.Done()
	mmio.WriteFloats(fmt.Sprintf("%s%s.loss.t%02d.mon", m.dir, m.prefix, m.k), m.v)
	if len(m.cids) == len(m.v) {
		mv := make(map[int]float64, len(m.v))
		for i, c := range m.cids {
			mv[c] = m.v[i]
		}
		mmio.WriteRMAP(fmt.Sprintf("%s%s.loss.t%02d.rmap", m.dir, m.prefix, m.k), mv, false)
	}
}

// NewMonitorSinks wires the default file-backed sinks rooted at mdldir.
// cids, when given, additionally keys the spatial outputs by cell id.
// The returned flush queues the scalar log print; call it before
// WaitMonitors.
func NewMonitorSinks(ctx *StaticContext, mdldir string, cids []int) (Sinks, func()) {
	sm := &scalarMonitor{}
	s := Sinks{
		Scalars: sm.log,
		Table: func(prefix, metric string, tbl []float64, steps, vars int) {
			tm := &tmonitor{prefix, metric, tbl, steps, vars, ctx.FlatNames, mdldir}
			gwg.Add(1)
			go tm.print()
		},
		Spatial: func(prefix string, k int, vals []float64) {
			m := &smonitor{prefix, k, vals, cids, mdldir}
			gwg.Add(1)
			go m.print()
		},
	}
	return s, func() {
		gwg.Add(1)
		go sm.print(mdldir)
	}
}
