package hatanaka

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/de-bkg/hatanaka/pkg/gnss"
	"github.com/de-bkg/hatanaka/pkg/rinex"
)

// maxLineLength is the longest input line accepted.
const maxLineLength = 1024 * 1024

// state is the record state of a file pass.
type state int

// Record states.
const (
	stateHeader    state = iota // reading the header
	stateEpoch                  // expecting an epoch line
	stateEpochCont              // expecting a RINEX-2 epoch continuation line
	stateClock                  // expecting the compact clock line
	stateObs                    // reading the observations of an epoch
	stateEvent                  // passing through the records of an event epoch
)

func (s state) String() string {
	return [...]string{"header", "epoch", "epoch continuation", "clock offset", "observation", "event"}[s]
}

// A lineCodec transforms a stream line by line.
type lineCodec interface {
	// feed consumes one input line and returns the output lines it completes.
	feed(line string) ([]string, error)
	// finish is called at the end of input.
	finish() error
	// base returns the shared state.
	base() *session
}

// session is the state of one file pass shared by decoder and encoder.
// It is never shared between file passes.
type session struct {
	opts     *Options
	log      *log.Logger
	state    state
	hdrLines []string
	hdr      rinex.ObsHeader
	lay      layout
	epoch    TextKernel
	clock    *NumKernel
	reg      *Registry
	prevSats map[gnss.PRN]bool // satellites of the previous normal epoch
	curSats  map[gnss.PRN]bool
	remain   int // records left in an event epoch
	stats    Stats
}

func newSession(opts *Options) (*session, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	clk, err := NewNumKernel(opts.ClockOrder, opts.MaxOrder)
	if err != nil {
		return nil, err
	}
	reg, err := NewRegistry(opts.Order, opts.MaxOrder)
	if err != nil {
		return nil, err
	}
	return &session{
		opts:     opts,
		log:      opts.logger(),
		clock:    clk,
		reg:      reg,
		prevSats: map[gnss.PRN]bool{},
		curSats:  map[gnss.PRN]bool{},
		stats:    newStats(),
	}, nil
}

// setHeader validates the parsed header and selects the record layout.
func (s *session) setHeader(hdr rinex.ObsHeader) error {
	if hdr.RINEXType != "O" {
		return fmt.Errorf("%w: %q", ErrUnsupportedRecordType, hdr.RINEXType)
	}
	if err := hdr.Validate(); err != nil {
		return fmt.Errorf("invalid RINEX header: %v", err)
	}
	s.hdr = hdr
	s.stats.Systems = hdr.SatSystems()
	s.lay = layoutV1
	if hdr.RINEXMajor() >= 3 {
		s.lay = layoutV3
	}
	s.log.Debug("header read", "rinex", hdr.RINEXVersion, "crinex", s.lay.crinex, "systems", len(hdr.ObsTypes))
	return nil
}

// startEvent begins the pass-through of nrec records.
func (s *session) startEvent(nrec int) {
	s.stats.EventEpochs++
	s.remain = nrec
	s.state = stateEpoch
	if nrec > 0 {
		s.state = stateEvent
	}
}

func (s *session) passThrough(line string) []string {
	s.remain--
	if s.remain <= 0 {
		s.state = stateEpoch
	}
	return []string{line}
}

// sat returns the observation codes of satellite prn and starts new arcs if it was missing in the previous epoch.
func (s *session) sat(prn gnss.PRN) ([]*Observable, []rinex.ObsCode, error) {
	codes := s.hdr.Codes(prn.Sys)
	if len(codes) == 0 {
		return nil, nil, fmt.Errorf("%w: no observation types for %s", ErrMalformedObservation, prn)
	}
	if !s.prevSats[prn] {
		s.reg.Reset(prn)
	}
	s.curSats[prn] = true
	return s.reg.Get(prn, len(codes)), codes, nil
}

// endEpoch completes a normal epoch.
func (s *session) endEpoch() {
	s.prevSats, s.curSats = s.curSats, s.prevSats
	clear(s.curSats)
	s.state = stateEpoch
}

// countEpoch records a normal epoch in the statistics.
func (s *session) countEpoch(line string) {
	s.stats.Epochs++
	t, err := rinex.EpochTime(line, s.lay.crinex)
	if err != nil {
		s.log.Debug("parse epoch time", "epoch", s.stats.Epochs, "err", err)
		return
	}
	s.stats.addTime(t)
}

func (s *session) unfinished(lines int) error {
	switch s.state {
	case stateEpoch:
		return nil
	case stateHeader:
		if lines == 0 {
			return fmt.Errorf("%w: empty input", ErrTruncatedStream)
		}
		return fmt.Errorf("%w: missing %s", ErrTruncatedStream, rinex.LabelEndOfHeader)
	default:
		return fmt.Errorf("%w: end of input in %s record", ErrTruncatedStream, s.state)
	}
}

// Decompress reads Compact RINEX from r and writes the RINEX observation data to w.
func Decompress(ctx context.Context, r io.Reader, w io.Writer, opts Options) (Stats, error) {
	dec, err := newDecoder(&opts)
	if err != nil {
		return Stats{}, err
	}
	return run(ctx, r, w, dec)
}

// Compress reads RINEX observation data from r and writes Compact RINEX to w.
func Compress(ctx context.Context, r io.Reader, w io.Writer, opts Options) (Stats, error) {
	enc, err := newEncoder(&opts)
	if err != nil {
		return Stats{}, err
	}
	return run(ctx, r, w, enc)
}

// run drives c over all lines of r. The context is checked before each epoch.
func run(ctx context.Context, r io.Reader, w io.Writer, c lineCodec) (Stats, error) {
	s := c.base()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	bw := bufio.NewWriter(w)

	lineNum := 0
	for sc.Scan() {
		lineNum++
		s.stats.LinesRead = lineNum
		if s.state == stateEpoch {
			if err := ctx.Err(); err != nil {
				return s.stats.done(s.reg), fmt.Errorf("hatanaka: canceled at line %d: %w", lineNum, err)
			}
		}

		out, err := c.feed(strings.TrimSuffix(sc.Text(), "\r"))
		if err != nil {
			return s.stats.done(s.reg), &RecordError{Line: lineNum, Epoch: s.stats.Epochs + s.stats.EventEpochs, Err: err}
		}
		for _, line := range out {
			bw.WriteString(line)
			bw.WriteByte('\n')
		}
		s.stats.LinesWritten += len(out)
	}
	if err := sc.Err(); err != nil {
		return s.stats.done(s.reg), err
	}
	if err := c.finish(); err != nil {
		return s.stats.done(s.reg), &RecordError{Line: lineNum, Epoch: s.stats.Epochs + s.stats.EventEpochs, Err: err}
	}
	return s.stats.done(s.reg), bw.Flush()
}
