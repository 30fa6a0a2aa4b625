package hatanaka

import (
	"fmt"
	"strings"
	"time"

	"github.com/de-bkg/hatanaka/pkg/gnss"
	"github.com/de-bkg/hatanaka/pkg/rinex"
	"github.com/lestrrat-go/strftime"
)

// crinexDateFormat is the date format of the CRINEX PROG / DATE header line.
const crinexDateFormat = "%d-%b-%y %H:%M"

// encoder compresses RINEX observation data to Compact RINEX.
type encoder struct {
	*session
	cur encEpoch // the current normal epoch
}

// encEpoch is a normal epoch read from RINEX.
type encEpoch struct {
	line     string // first RINEX epoch line
	nsat     int
	ids      []string
	clk      int64
	hasClock bool
	contLeft int      // epoch continuation lines left
	next     int      // index of the next satellite
	satLines []string // RINEX lines of the current satellite
	body     []string // compact observation and comment lines
}

func newEncoder(opts *Options) (*encoder, error) {
	s, err := newSession(opts)
	if err != nil {
		return nil, err
	}
	return &encoder{session: s}, nil
}

func (e *encoder) base() *session {
	return e.session
}

func (e *encoder) feed(line string) ([]string, error) {
	switch e.state {
	case stateHeader:
		return e.header(line)
	case stateEvent:
		return e.passThrough(line), nil
	}

	if rinex.IsComment(line) {
		if e.state == stateEpoch {
			return []string{line}, nil
		}
		e.cur.body = append(e.cur.body, line)
		return nil, nil
	}

	switch e.state {
	case stateEpoch:
		return e.epochLine(line)
	case stateEpochCont:
		return e.epochCont(line)
	case stateObs:
		return e.obsLine(line)
	default:
		return nil, fmt.Errorf("unexpected state %s", e.state)
	}
}

func (e *encoder) finish() error {
	return e.unfinished(len(e.hdrLines))
}

// header collects the header lines and precedes them with the CRINEX lines.
func (e *encoder) header(line string) ([]string, error) {
	if len(e.hdrLines) == 0 && strings.Contains(line, rinex.LabelCRINEXVersion) {
		return nil, ErrAlreadyCompact
	}
	e.hdrLines = append(e.hdrLines, line)
	if !rinex.IsEndOfHeader(line) {
		return nil, nil
	}

	hdr, err := rinex.ParseObsHeader(e.hdrLines)
	if err != nil {
		return nil, err
	}
	if hdr.IsHatanaka() {
		return nil, ErrAlreadyCompact
	}
	if err := e.setHeader(hdr); err != nil {
		return nil, err
	}
	crx, err := crinexHeader(e.lay.crinex, e.opts.Program, e.opts.timeSource().Now())
	if err != nil {
		return nil, err
	}

	e.state = stateEpoch
	return append(crx, e.hdrLines...), nil
}

// crinexHeader returns the two CRINEX header lines.
func crinexHeader(crinex int, program string, now time.Time) ([]string, error) {
	date, err := strftime.Format(crinexDateFormat, now.UTC())
	if err != nil {
		return nil, err
	}
	return []string{
		fmt.Sprintf("%-20s%-40s%s", fmt.Sprintf("%d.0", crinex), "COMPACT RINEX FORMAT", rinex.LabelCRINEXVersion),
		fmt.Sprintf("%-40.40s%-20.20s%s", program, date, rinex.LabelCRINEXProgram),
	}, nil
}

func (e *encoder) epochLine(line string) ([]string, error) {
	if strings.TrimSpace(line) == "" {
		e.log.Warn("skip empty line", "epoch", e.stats.Epochs)
		return nil, nil
	}
	if e.lay.crinex == 3 && line[0] != '>' {
		return nil, fmt.Errorf("%w: epoch line must start with '>': %q", ErrMalformedEpochHeader, line)
	}
	info, err := e.lay.parseEpoch(line)
	if err != nil {
		return nil, err
	}

	if info.flag > 1 {
		ref := strings.TrimRight(line, " ")
		if e.lay.crinex == 1 {
			ref = " " + ref[1:]
		}
		e.epoch.Init(ref)
		e.startEvent(info.nsat)
		return []string{e.lay.initEpoch(ref)}, nil
	}

	clk, hasClock, err := e.lay.parseClock(line)
	if err != nil {
		return nil, err
	}
	e.cur = encEpoch{line: line, nsat: info.nsat, clk: clk, hasClock: hasClock, ids: make([]string, 0, info.nsat)}
	e.countEpoch(line)

	if e.lay.satsPerLine > 0 {
		e.addSatIDs(line)
		e.cur.contLeft = e.lay.epochLines(info.nsat) - 1
	}
	switch {
	case info.nsat == 0:
		return e.flush(), nil
	case e.cur.contLeft > 0:
		e.state = stateEpochCont
	default:
		e.state = stateObs
	}
	return nil, nil
}

// addSatIDs reads the satellites of a RINEX-2 epoch line.
func (e *encoder) addSatIDs(line string) {
	line = pad(line, e.lay.epochLen+3*e.lay.satsPerLine)
	for i := e.lay.epochLen; len(e.cur.ids) < e.cur.nsat && i < e.lay.epochLen+3*e.lay.satsPerLine; i += 3 {
		e.cur.ids = append(e.cur.ids, line[i:i+3])
	}
}

func (e *encoder) epochCont(line string) ([]string, error) {
	e.addSatIDs(line)
	e.cur.contLeft--
	if e.cur.contLeft == 0 {
		e.state = stateObs
	}
	return nil, nil
}

func (e *encoder) obsLine(line string) ([]string, error) {
	e.cur.satLines = append(e.cur.satLines, line)

	var id string
	if e.lay.satsPerLine > 0 {
		id = e.cur.ids[e.cur.next]
	} else {
		id = cut(pad(line, 3), 3)
	}
	prn, err := gnss.ParsePRN(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedObservation, err)
	}
	codes := e.hdr.Codes(prn.Sys)
	if len(codes) == 0 {
		return nil, fmt.Errorf("%w: no observation types for %s", ErrMalformedObservation, prn)
	}
	if len(e.cur.satLines) < e.lay.obsLines(len(codes)) {
		return nil, nil
	}

	rec := e.lay.obsRecord(e.cur.satLines)
	e.cur.satLines = e.cur.satLines[:0]
	if e.opts.Strict && len(strings.TrimRight(rec, " ")) > len(codes)*obsWidth {
		return nil, fmt.Errorf("%w: %s: more fields than the %d observation types", ErrMalformedObservation, prn, len(codes))
	}
	obss, err := parseObsRecord(rec, len(codes))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", prn, err)
	}

	kernels, _, err := e.sat(prn)
	if err != nil {
		return nil, err
	}
	if e.lay.satsPerLine == 0 {
		e.cur.ids = append(e.cur.ids, id)
	}
	e.cur.body = append(e.cur.body, encodeObs(kernels, obss, &e.stats))
	e.stats.addSat(prn, obss)

	e.cur.next++
	if e.cur.next == e.cur.nsat {
		return e.flush(), nil
	}
	return nil, nil
}

// encodeObs returns the compact observation line of one satellite.
func encodeObs(kernels []*Observable, obss []obsValue, stats *Stats) string {
	toks := make([]string, len(obss))
	flags := make([]byte, 2*len(obss))
	for i, obs := range obss {
		k := kernels[i]
		if obs.ok {
			if !k.Value.Ready() {
				stats.Reinits++
			}
			toks[i] = k.Value.Encode(obs.val)
		} else {
			k.Value.Reset()
		}
		flags[2*i] = encodeFlag(k.LLI, obs.lli)
		flags[2*i+1] = encodeFlag(k.SSI, obs.ssi)
	}

	line := strings.Join(toks, " ")
	if f := strings.TrimRight(string(flags), " "); f != "" {
		return line + " " + f
	}
	return strings.TrimRight(line, " ")
}

// encodeFlag returns the flag difference column for flag c.
func encodeFlag(k *TextKernel, c byte) byte {
	tok := k.Encode(string(c))
	if tok == "" {
		return ' '
	}
	return tok[0]
}

// flush returns the compact lines of the current epoch.
func (e *encoder) flush() []string {
	compact := e.lay.compactEpoch(e.cur.line, e.cur.ids)
	var epo string
	if e.epoch.Ready() {
		epo = e.epoch.Encode(compact)
	} else {
		e.epoch.Init(compact)
		epo = e.lay.initEpoch(compact)
	}

	clk := ""
	if e.cur.hasClock {
		if !e.clock.Ready() {
			e.stats.Reinits++
		}
		clk = e.clock.Encode(e.cur.clk)
	} else {
		e.clock.Reset()
	}

	out := make([]string, 0, 2+len(e.cur.body))
	out = append(out, epo, clk)
	out = append(out, e.cur.body...)
	e.cur.body = nil
	e.endEpoch()
	return out
}
