// Package trace records FS calls and exports them as CSV.
package trace

import (
	"encoding/csv"
	"io"
	"sync"

	"github.com/jszwec/csvutil"

	"github.com/pgavlin/capfs/shim"
)

// Record is one traced call.
type Record struct {
	Seq        int    `csv:"seq"`
	Op         string `csv:"op"`
	FD         int    `csv:"fd"`
	Path       string `csv:"path"`
	Result     int64  `csv:"result"`
	Error      string `csv:"error"`
	DurationUS int64  `csv:"duration_us"`
}

// Recorder is a shim.Observer that keeps every call it sees.
type Recorder struct {
	m       sync.Mutex
	records []Record
}

func (r *Recorder) ObserveCall(c shim.Call) {
	rec := Record{
		Op:         c.Op,
		FD:         c.FD,
		Path:       c.Path,
		Result:     c.Result,
		DurationUS: c.Duration.Microseconds(),
	}
	if c.Err != nil {
		rec.Error = shim.KindOf(c.Err).Code()
	}

	r.m.Lock()
	defer r.m.Unlock()

	rec.Seq = len(r.records)
	r.records = append(r.records, rec)
}

// Records returns a copy of the records so far.
func (r *Recorder) Records() []Record {
	r.m.Lock()
	defer r.m.Unlock()

	return append([]Record(nil), r.records...)
}

// WriteCSV writes a header row followed by one row per record.
func (r *Recorder) WriteCSV(w io.Writer) error {
	records := r.Records()

	csvWriter := csv.NewWriter(w)
	encoder := csvutil.NewEncoder(csvWriter)

	if len(records) == 0 {
		if err := encoder.EncodeHeader(Record{}); err != nil {
			return err
		}
	}
	for i := range records {
		if err := encoder.Encode(&records[i]); err != nil {
			return err
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}
