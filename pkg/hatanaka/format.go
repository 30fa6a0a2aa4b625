package hatanaka

import (
	"fmt"
	"strconv"
	"strings"
)

// layout describes the version dependent columns of the epoch and observation records.
type layout struct {
	crinex        int // CRINEX major version, 1 or 3
	marker        byte
	flagCol       int // epoch flag
	nsatStart     int // number of satellites, ends at epochLen
	epochLen      int // columns of the RINEX epoch line kept in the compact epoch line
	satCol        int // first satellite in the compact epoch line
	clockCol      int // clock offset in the first RINEX epoch line
	clockDecimals int
	clockWidth    int
	satsPerLine   int // satellites per RINEX epoch line, 0 if not listed in the epoch line
	obsPerLine    int // observations per RINEX data line, 0 for one line per satellite
}

var (
	layoutV1 = layout{crinex: 1, marker: '&', flagCol: 28, nsatStart: 29, epochLen: 32, satCol: 32,
		clockCol: 68, clockDecimals: 9, clockWidth: 12, satsPerLine: 12, obsPerLine: 5}
	layoutV3 = layout{crinex: 3, marker: '>', flagCol: 31, nsatStart: 32, epochLen: 35, satCol: 41,
		clockCol: 41, clockDecimals: 12, clockWidth: 15}
)

const (
	obsWidth    = 16 // F14.3 value, LLI, SSI
	obsDecimals = 3
)

// obsValue is one observation of a satellite.
type obsValue struct {
	val      int64 // value without decimal point
	ok       bool  // the value is present
	lli, ssi byte
}

// epochInfo holds the parsed fields of an epoch line.
type epochInfo struct {
	flag int
	nsat int
}

// parseEpoch parses the event flag and number of satellites of a RINEX or compact epoch line.
func (l layout) parseEpoch(line string) (epochInfo, error) {
	line = pad(line, l.epochLen)
	c := line[l.flagCol]
	if c < '0' || c > '9' {
		return epochInfo{}, fmt.Errorf("%w: epoch flag %q", ErrMalformedEpochHeader, c)
	}
	nsat, err := strconv.Atoi(strings.TrimSpace(line[l.nsatStart:l.epochLen]))
	if err != nil || nsat < 0 {
		return epochInfo{}, fmt.Errorf("%w: number of satellites %q", ErrMalformedEpochHeader, line[l.nsatStart:l.epochLen])
	}
	return epochInfo{flag: int(c - '0'), nsat: nsat}, nil
}

// satIDs returns the nsat satellite identifiers of a compact epoch line.
func (l layout) satIDs(line string, nsat int) ([]string, error) {
	end := l.satCol + 3*nsat
	if nsat > 0 && len(line) < end {
		return nil, fmt.Errorf("%w: %d satellites expected", ErrMalformedEpochHeader, nsat)
	}
	sats := make([]string, 0, nsat)
	for i := l.satCol; i < end; i += 3 {
		sats = append(sats, line[i:i+3])
	}
	return sats, nil
}

// compactEpoch returns the compact epoch line for the RINEX epoch line and its satellites.
func (l layout) compactEpoch(epochLine string, sats []string) string {
	var sb strings.Builder
	sb.WriteString(pad(cut(epochLine, l.epochLen), l.satCol))
	for _, sat := range sats {
		sb.WriteString(sat)
	}
	return strings.TrimRight(sb.String(), " ")
}

// initEpoch returns the initialization form of a compact epoch line.
func (l layout) initEpoch(compact string) string {
	if l.crinex == 1 && compact != "" {
		return "&" + compact[1:]
	}
	return compact
}

// isInitEpoch reports whether a compact epoch line is in initialization form.
func (l layout) isInitEpoch(line string) bool {
	return line != "" && line[0] == l.marker
}

// epochReference returns the reference text stored for an initialization line.
func (l layout) epochReference(line string) string {
	if l.crinex == 1 {
		return " " + line[1:]
	}
	return line
}

// parseClock reads the receiver clock offset of the first RINEX epoch line.
func (l layout) parseClock(epochLine string) (int64, bool, error) {
	if len(epochLine) <= l.clockCol {
		return 0, false, nil
	}
	field := cut(epochLine[l.clockCol:], l.clockWidth)
	v, ok, err := parseScaled(field, l.clockDecimals)
	if err != nil {
		return 0, false, fmt.Errorf("%w: clock offset: %v", ErrMalformedObservation, err)
	}
	return v, ok, nil
}

// rinexEpoch rebuilds the RINEX epoch lines from a compact epoch line, the satellites and the clock offset.
func (l layout) rinexEpoch(compact string, sats []string, clk int64, hasClock bool) []string {
	first := cut(compact, l.epochLen)
	if l.satsPerLine == 0 {
		if hasClock {
			first = pad(first, l.clockCol) + formatScaled(clk, l.clockDecimals, l.clockWidth)
		}
		return []string{strings.TrimRight(first, " ")}
	}

	lines := make([]string, 0, 1+len(sats)/l.satsPerLine)
	for i := 0; i < len(sats) || i == 0; i += l.satsPerLine {
		var sb strings.Builder
		if i == 0 {
			sb.WriteString(pad(first, l.epochLen))
		} else {
			sb.WriteString(strings.Repeat(" ", l.epochLen))
		}
		for _, sat := range sats[i:min(i+l.satsPerLine, len(sats))] {
			sb.WriteString(sat)
		}
		line := sb.String()
		if i == 0 && hasClock {
			line = pad(line, l.clockCol) + formatScaled(clk, l.clockDecimals, l.clockWidth)
		}
		lines = append(lines, strings.TrimRight(line, " "))
	}
	return lines
}

// epochLines returns the number of RINEX epoch lines for nsat satellites.
func (l layout) epochLines(nsat int) int {
	if l.satsPerLine == 0 || nsat <= l.satsPerLine {
		return 1
	}
	return (nsat + l.satsPerLine - 1) / l.satsPerLine
}

// obsLines returns the number of RINEX data lines per satellite for nCodes observation types.
func (l layout) obsLines(nCodes int) int {
	if l.obsPerLine == 0 || nCodes <= l.obsPerLine {
		return 1
	}
	return (nCodes + l.obsPerLine - 1) / l.obsPerLine
}

// obsRecord joins the RINEX data lines of one satellite to a record of 16 columns per observation.
// The satellite identifier of RINEX-3 lines is removed.
func (l layout) obsRecord(lines []string) string {
	if l.obsPerLine == 0 {
		if len(lines[0]) <= 3 {
			return ""
		}
		return lines[0][3:]
	}
	var sb strings.Builder
	for i, line := range lines {
		if i < len(lines)-1 {
			line = pad(cut(line, l.obsPerLine*obsWidth), l.obsPerLine*obsWidth)
		}
		sb.WriteString(line)
	}
	return sb.String()
}

// rinexObs formats the observations of one satellite as RINEX data lines.
func (l layout) rinexObs(satID string, obss []obsValue) []string {
	fields := make([]string, len(obss))
	for i, obs := range obss {
		val := strings.Repeat(" ", obsWidth-2)
		if obs.ok {
			val = formatScaled(obs.val, obsDecimals, obsWidth-2)
		}
		fields[i] = val + string([]byte{obs.lli, obs.ssi})
	}

	if l.obsPerLine == 0 {
		return []string{strings.TrimRight(satID+strings.Join(fields, ""), " ")}
	}
	lines := make([]string, 0, l.obsLines(len(fields)))
	for i := 0; i < len(fields); i += l.obsPerLine {
		lines = append(lines, strings.TrimRight(strings.Join(fields[i:min(i+l.obsPerLine, len(fields))], ""), " "))
	}
	return lines
}

// parseObsRecord parses nCodes observations from a record of 16 columns per observation.
func parseObsRecord(rec string, nCodes int) ([]obsValue, error) {
	rec = pad(rec, nCodes*obsWidth)
	obss := make([]obsValue, nCodes)
	for i := range obss {
		field := rec[i*obsWidth : (i+1)*obsWidth]
		v, ok, err := parseScaled(field[:obsWidth-2], obsDecimals)
		if err != nil {
			return nil, fmt.Errorf("%w: observation %d: %v", ErrMalformedObservation, i+1, err)
		}
		obss[i] = obsValue{val: v, ok: ok, lli: field[obsWidth-2], ssi: field[obsWidth-1]}
	}
	return obss, nil
}

// parseScaled parses a fixed-point number like "-1234.567" into an integer scaled by 10^decimals.
// A blank field is reported as absent.
func parseScaled(field string, decimals int) (int64, bool, error) {
	s := strings.TrimSpace(field)
	if s == "" {
		return 0, false, nil
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	ipart, frac, _ := strings.Cut(s, ".")
	if len(frac) > decimals {
		return 0, false, fmt.Errorf("too many decimals: %q", field)
	}
	digits := ipart + frac + strings.Repeat("0", decimals-len(frac))
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, false, fmt.Errorf("invalid number: %q", field)
		}
	}
	if ipart == "" && frac == "" {
		return 0, false, fmt.Errorf("invalid number: %q", field)
	}
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid number: %q", field)
	}
	if neg {
		v = -v
	}
	return v, true, nil
}

// formatScaled formats the integer v scaled by 10^decimals right-justified in width columns, e.g. "  -1234.567".
func formatScaled(v int64, decimals, width int) string {
	neg := v < 0
	u := uint64(v)
	if neg {
		u = uint64(-v)
	}
	digits := strconv.FormatUint(u, 10)
	if len(digits) <= decimals {
		digits = strings.Repeat("0", decimals-len(digits)+1) + digits
	}
	s := digits[:len(digits)-decimals] + "." + digits[len(digits)-decimals:]
	if neg {
		s = "-" + s
	}
	return fmt.Sprintf("%*s", width, s)
}

// pad appends blanks to s up to n columns.
func pad(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len(s))
}

// cut returns the first n columns of s.
func cut(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
