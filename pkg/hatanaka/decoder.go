package hatanaka

import (
	"fmt"
	"strings"

	"github.com/de-bkg/hatanaka/pkg/gnss"
	"github.com/de-bkg/hatanaka/pkg/rinex"
)

// decoder restores RINEX observation data from Compact RINEX.
type decoder struct {
	*session
	cur     decEpoch // the current normal epoch
	pending []string // blank lines read in place of an epoch line
}

// decEpoch is a normal epoch read from the compact stream.
type decEpoch struct {
	line string // recovered compact epoch line
	ids  []string
	prns []gnss.PRN
	next int // index of the next satellite
}

func newDecoder(opts *Options) (*decoder, error) {
	s, err := newSession(opts)
	if err != nil {
		return nil, err
	}
	return &decoder{session: s}, nil
}

func (d *decoder) base() *session {
	return d.session
}

// feed holds back blank epoch lines until the next record, so blank lines at the end of input are dropped.
// A blank epoch line in the middle of the stream repeats the previous epoch line.
func (d *decoder) feed(line string) ([]string, error) {
	if d.state == stateEpoch && strings.TrimSpace(line) == "" {
		d.pending = append(d.pending, line)
		return nil, nil
	}

	var out []string
	for len(d.pending) > 0 {
		blank := d.pending[0]
		d.pending = d.pending[1:]
		res, err := d.record(blank)
		if err != nil {
			return nil, err
		}
		out = append(out, res...)
	}
	res, err := d.record(line)
	if err != nil {
		return nil, err
	}
	return append(out, res...), nil
}

func (d *decoder) record(line string) ([]string, error) {
	if d.state == stateHeader {
		return d.header(line)
	}
	if d.state == stateEvent {
		return d.passThrough(line), nil
	}
	if rinex.IsComment(line) {
		return []string{line}, nil
	}

	switch d.state {
	case stateEpoch:
		return d.epochLine(line)
	case stateClock:
		return d.clockLine(line)
	case stateObs:
		return d.obsLine(line)
	default:
		return nil, fmt.Errorf("unexpected state %s", d.state)
	}
}

func (d *decoder) finish() error {
	if d.state == stateHeader && len(d.hdrLines) == 0 {
		return ErrNotCompactRinex
	}
	if len(d.pending) > 0 {
		d.log.Warn("skip empty lines at end of input", "lines", len(d.pending))
	}
	return d.unfinished(len(d.hdrLines))
}

// header collects the header lines. The CRINEX lines are removed.
func (d *decoder) header(line string) ([]string, error) {
	switch len(d.hdrLines) {
	case 0:
		if !strings.Contains(line, rinex.LabelCRINEXVersion) {
			return nil, ErrNotCompactRinex
		}
	case 1:
		if !strings.Contains(line, rinex.LabelCRINEXProgram) {
			return nil, fmt.Errorf("%w: missing %s", ErrNotCompactRinex, rinex.LabelCRINEXProgram)
		}
	}
	d.hdrLines = append(d.hdrLines, line)
	if !rinex.IsEndOfHeader(line) {
		return nil, nil
	}

	hdr, err := rinex.ParseObsHeader(d.hdrLines)
	if err != nil {
		return nil, err
	}
	if !hdr.IsHatanaka() {
		return nil, ErrNotCompactRinex
	}
	if err := d.setHeader(hdr); err != nil {
		return nil, err
	}
	if hdr.CRINEXMajor() != d.lay.crinex {
		return nil, fmt.Errorf("%w: CRINEX version %.1f with RINEX version %.2f", ErrNotCompactRinex, hdr.CRINEXVersion, hdr.RINEXVersion)
	}

	d.state = stateEpoch
	return d.hdrLines[2:], nil
}

func (d *decoder) epochLine(line string) ([]string, error) {
	var compact string
	switch {
	case d.lay.isInitEpoch(line):
		d.epoch.Init(d.lay.epochReference(line))
		compact = d.epoch.Text()
	case !d.epoch.Ready():
		return nil, fmt.Errorf("%w: first epoch must start with %q", ErrMalformedEpochHeader, d.lay.marker)
	default:
		compact, _ = d.epoch.Decode(line)
	}

	info, err := d.lay.parseEpoch(compact)
	if err != nil {
		return nil, err
	}
	if info.flag > 1 {
		d.startEvent(info.nsat)
		return []string{strings.TrimRight(compact, " ")}, nil
	}

	ids, err := d.lay.satIDs(compact, info.nsat)
	if err != nil {
		return nil, err
	}
	prns := make([]gnss.PRN, 0, len(ids))
	for _, id := range ids {
		prn, err := gnss.ParsePRN(id)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEpochHeader, err)
		}
		prns = append(prns, prn)
	}

	d.countEpoch(compact)
	d.cur = decEpoch{line: compact, ids: ids, prns: prns}
	d.state = stateClock
	return nil, nil
}

func (d *decoder) clockLine(line string) ([]string, error) {
	var clk int64
	hasClock := false
	if tok := strings.TrimSpace(line); tok == "" {
		d.clock.Reset()
	} else {
		v, seeded, err := d.clock.decodeToken(tok)
		if err != nil {
			return nil, fmt.Errorf("clock offset: %w", err)
		}
		if seeded {
			d.stats.Reinits++
		}
		clk, hasClock = v, true
	}

	out := d.lay.rinexEpoch(d.cur.line, d.cur.ids, clk, hasClock)
	d.state = stateObs
	if len(d.cur.ids) == 0 {
		d.endEpoch()
	}
	return out, nil
}

func (d *decoder) obsLine(line string) ([]string, error) {
	prn := d.cur.prns[d.cur.next]
	kernels, codes, err := d.sat(prn)
	if err != nil {
		return nil, err
	}
	n := len(codes)

	fields := strings.SplitN(line, " ", n+1)
	flags := ""
	if len(fields) > n {
		flags, fields = fields[n], fields[:n]
	}
	if len(flags) > 2*n {
		if d.opts.Strict {
			return nil, fmt.Errorf("%w: %s: more fields than the %d observation types", ErrMalformedObservation, prn, n)
		}
		flags = flags[:2*n]
	}

	obss := make([]obsValue, n)
	for i, k := range kernels {
		if i < len(fields) && fields[i] != "" {
			v, seeded, err := k.Value.decodeToken(fields[i])
			if err != nil {
				return nil, fmt.Errorf("%s %s: %w", prn, codes[i], err)
			}
			if seeded {
				d.stats.Reinits++
			}
			obss[i].val, obss[i].ok = v, true
		}
		obss[i].lli = decodeFlag(k.LLI, flags, 2*i)
		obss[i].ssi = decodeFlag(k.SSI, flags, 2*i+1)
	}
	d.stats.addSat(prn, obss)

	out := d.lay.rinexObs(d.cur.ids[d.cur.next], obss)
	d.cur.next++
	if d.cur.next == len(d.cur.prns) {
		d.endEpoch()
	}
	return out, nil
}

// decodeFlag recovers the flag from column i of the flag difference.
func decodeFlag(k *TextKernel, flags string, i int) byte {
	tok := " "
	if i < len(flags) {
		tok = flags[i : i+1]
	}
	s, err := k.Decode(tok)
	if err != nil || s == "" {
		return ' '
	}
	return s[0]
}
