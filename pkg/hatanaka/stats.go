package hatanaka

import (
	"io"
	"sort"
	"time"

	"github.com/de-bkg/hatanaka/pkg/gnss"
	"github.com/gocarina/gocsv"
)

// Stats holds some statistics about a file pass, derived from the data.
type Stats struct {
	Epochs         int          `json:"numEpochs"`      // The number of normal epochs.
	EventEpochs    int          `json:"numEventEpochs"` // The number of special event epochs.
	Satellites     int          `json:"numSatellites"`  // The number of satellites observed.
	Systems        gnss.Systems `json:"systems"`        // The satellite systems declared in the header.
	TimeOfFirstObs time.Time    `json:"timeOfFirstObs"` // Time of the first observation.
	TimeOfLastObs  time.Time    `json:"timeOfLastObs"`  // Time of the last observation.
	Reinits        int          `json:"numReinits"`     // The number of initialized arcs.
	LinesRead      int          `json:"linesRead"`      // The number of input lines.
	LinesWritten   int          `json:"linesWritten"`   // The number of output lines.

	EpochsPerSat map[gnss.PRN]int `json:"-"` // Number of epochs per satellite.
	ObsPerSat    map[gnss.PRN]int `json:"-"` // Number of observations per satellite.
	BlanksPerSat map[gnss.PRN]int `json:"-"` // Number of missing observations per satellite.
}

// SatStats are the statistics of one satellite.
type SatStats struct {
	PRN          string `csv:"prn"`
	Epochs       int    `csv:"epochs"`
	Observations int    `csv:"observations"`
	Missing      int    `csv:"missing"`
}

func newStats() Stats {
	return Stats{
		EpochsPerSat: map[gnss.PRN]int{},
		ObsPerSat:    map[gnss.PRN]int{},
		BlanksPerSat: map[gnss.PRN]int{},
	}
}

func (st *Stats) addTime(t time.Time) {
	if st.TimeOfFirstObs.IsZero() || t.Before(st.TimeOfFirstObs) {
		st.TimeOfFirstObs = t
	}
	if t.After(st.TimeOfLastObs) {
		st.TimeOfLastObs = t
	}
}

func (st *Stats) addSat(prn gnss.PRN, obss []obsValue) {
	st.EpochsPerSat[prn]++
	for _, obs := range obss {
		if obs.ok {
			st.ObsPerSat[prn]++
		} else {
			st.BlanksPerSat[prn]++
		}
	}
}

func (st *Stats) done(reg *Registry) Stats {
	st.Satellites = reg.Satellites()
	return *st
}

// Sats returns the statistics per satellite, ordered by system and number.
func (st Stats) Sats() []SatStats {
	prns := make([]gnss.PRN, 0, len(st.EpochsPerSat))
	for prn := range st.EpochsPerSat {
		prns = append(prns, prn)
	}
	sort.Slice(prns, func(i, j int) bool {
		if prns[i].Sys != prns[j].Sys {
			return prns[i].Sys < prns[j].Sys
		}
		return prns[i].Num < prns[j].Num
	})

	rows := make([]SatStats, 0, len(prns))
	for _, prn := range prns {
		rows = append(rows, SatStats{
			PRN:          prn.String(),
			Epochs:       st.EpochsPerSat[prn],
			Observations: st.ObsPerSat[prn],
			Missing:      st.BlanksPerSat[prn],
		})
	}
	return rows
}

// WriteCSV writes the statistics per satellite as CSV to w.
func (st Stats) WriteCSV(w io.Writer) error {
	return gocsv.Marshal(st.Sats(), w)
}
