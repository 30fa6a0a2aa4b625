package hatanaka

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/de-bkg/hatanaka/pkg/gnss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStats_Sats(t *testing.T) {
	assert := assert.New(t)
	st := newStats()
	g12 := gnss.PRN{Sys: gnss.SysGPS, Num: 12}
	g03 := gnss.PRN{Sys: gnss.SysGPS, Num: 3}
	e01 := gnss.PRN{Sys: gnss.SysGAL, Num: 1}
	st.addSat(e01, []obsValue{{val: 1, ok: true}})
	st.addSat(g12, []obsValue{{val: 1, ok: true}, {}})
	st.addSat(g12, []obsValue{{val: 1, ok: true}, {val: 2, ok: true}})
	st.addSat(g03, []obsValue{{}, {}})

	assert.Equal([]SatStats{
		{PRN: "G03", Epochs: 1, Missing: 2},
		{PRN: "G12", Epochs: 2, Observations: 3, Missing: 1},
		{PRN: "E01", Epochs: 1, Observations: 1},
	}, st.Sats())

	var buf bytes.Buffer
	require.NoError(t, st.WriteCSV(&buf))
	assert.Equal("prn,epochs,observations,missing\nG03,1,0,2\nG12,2,3,1\nE01,1,1,0\n", buf.String())
}

func TestStats_addTime(t *testing.T) {
	assert := assert.New(t)
	st := newStats()
	t1 := time.Date(2021, 12, 28, 0, 0, 30, 0, time.UTC)
	t0 := time.Date(2021, 12, 28, 0, 0, 0, 0, time.UTC)
	st.addTime(t1)
	st.addTime(t0)
	assert.Equal(t0, st.TimeOfFirstObs)
	assert.Equal(t1, st.TimeOfLastObs)
}

func TestStats_json(t *testing.T) {
	st := newStats()
	st.Epochs = 3
	st.Systems = gnss.Systems{gnss.SysGPS, gnss.SysGAL}
	st.EpochsPerSat[gnss.PRN{Sys: gnss.SysGPS, Num: 1}] = 3
	b, err := json.Marshal(st)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"numEpochs":3`)
	assert.Contains(t, string(b), `"systems":["G","E"]`)
	assert.NotContains(t, string(b), "EpochsPerSat")
}
