package postpro

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/maseology/mmio"
)

// regional climate-data service, queried per station name
const (
	obsAPI     = "https://api.oakridgeswater.ca/api/locnamcl?l="
	obsTimeFmt = "2006-01-02T15:04:05"
	obsCache   = "obs.gob"
)

var obsClient = &http.Client{Timeout: 2 * time.Minute}

// StationRecord is one climate station's observed series, pinned to the
// model node nearest the gauge.
type StationRecord struct {
	Name string
	Node int
	T    []time.Time
	V    []float64
}

// stationSample mirrors one row of the service's JSON payload.
type stationSample struct {
	Date string  `json:"Date"`
	Val  float64 `json:"Val"`
	RDTC int32   `json:"RDTC"`
}

// fetchRecord pulls a station's full record. A nil series with no error
// means the service holds nothing under that name.
func fetchRecord(ctx context.Context, staName string) ([]time.Time, []float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, obsAPI+staName, nil)
	if err != nil {
		return nil, nil, err
	}
	resp, err := obsClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusInternalServerError { // the service 500s on unknown stations
		return nil, nil, nil
	} else if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("unexpected http GET status: %s", resp.Status)
	}

	var rows []stationSample
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, nil, fmt.Errorf("cannot decode JSON: %v", err)
	}
	dts, vals := make([]time.Time, len(rows)), make([]float64, len(rows))
	for i, r := range rows { // rows arrive pre-sorted
		t, err := time.Parse(obsTimeFmt, r.Date)
		if err != nil {
			return nil, nil, fmt.Errorf("date parse error: %v", err)
		}
		dts[i], vals[i] = t, r.Val
	}
	return dts, vals, nil
}

// collectStations fetches every station named by the csv (name,node).
func collectStations(ctx context.Context, obsFP string) (map[int]StationRecord, error) {
	f, err := os.Open(obsFP)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	recs := make(map[int]StationRecord)
	for lns := range mmio.LoadCSV(io.Reader(f), 1) {
		nam := lns[0]
		nid, err := strconv.Atoi(lns[1])
		if err != nil {
			return nil, fmt.Errorf("station list %s: node %q: %v", obsFP, lns[1], err)
		}
		fmt.Printf("%s (node %d): loading.. ", nam, nid)

		dts, vals, err := fetchRecord(ctx, nam)
		if err != nil {
			return nil, err
		}
		if len(dts) == 0 {
			fmt.Println("no data found")
			continue
		}

		fmt.Printf("count = %d: %s to %s\n", len(dts), dts[0].Format("2006-01-02"), dts[len(dts)-1].Format("2006-01-02"))
		recs[nid] = StationRecord{Name: nam, Node: nid, T: dts, V: vals}
	}
	return recs, nil
}

func writeObsCache(fp string, recs map[int]StationRecord) error {
	f, err := os.Create(fp)
	if err != nil {
		return fmt.Errorf(" writeObsCache %v", err)
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(recs); err != nil {
		return fmt.Errorf(" writeObsCache %v", err)
	}
	return nil
}

func readObsCache(fp string) (map[int]StationRecord, error) {
	f, err := os.Open(fp)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var recs map[int]StationRecord
	if err := gob.NewDecoder(f).Decode(&recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// GetObservations maps model nodes to their climate station's observed
// series. Stations are fetched from the regional service once and cached
// to gob under odir, so reruns stay offline.
func GetObservations(ctx context.Context, odir, obsFP string) (map[int]StationRecord, error) {
	cfp := odir + obsCache
	if _, ok := mmio.FileExists(cfp); ok {
		recs, err := readObsCache(cfp)
		if err != nil {
			return nil, fmt.Errorf(" postpro.GetObservations: %v", err)
		}
		return recs, nil
	}
	recs, err := collectStations(ctx, obsFP)
	if err != nil {
		return nil, err
	}
	if err := writeObsCache(cfp, recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// MatchSeries aligns a station's record to the forecast verification
// times; false when any step lacks an observation.
func MatchSeries(r StationRecord, ts []time.Time) ([]float64, bool) {
	m := make(map[int64]float64, len(r.T))
	for i, t := range r.T {
		m[t.Unix()] = r.V[i]
	}
	out := make([]float64, len(ts))
	for i, t := range ts {
		v, ok := m[t.Unix()]
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}
