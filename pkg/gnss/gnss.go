// Package gnss contains common constants and type definitions.
package gnss

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// System is a satellite system.
type System int

// Available satellite systems.
const (
	SysGPS System = iota + 1
	SysGLO
	SysGAL
	SysQZSS
	SysBDS
	SysIRNSS
	SysSBAS
	SysMIXED
)

var sysPerAbbr = map[string]System{
	"G": SysGPS,
	"R": SysGLO,
	"E": SysGAL,
	"J": SysQZSS,
	"C": SysBDS,
	"I": SysIRNSS,
	"S": SysSBAS,
	"M": SysMIXED,
}

func (sys System) String() string {
	if sys < 0 || sys > SysMIXED {
		return ""
	}
	return [...]string{"", "GPS", "GLO", "GAL", "QZSS", "BDS", "IRNSS", "SBAS", "MIXED"}[sys]
}

// Abbr returns the systems' abbreviation used in RINEX.
func (sys System) Abbr() string {
	if sys < 0 || sys > SysMIXED {
		return ""
	}
	return [...]string{"", "G", "R", "E", "J", "C", "I", "S", "M"}[sys]
}

// SystemByAbbr returns the satellite system for the RINEX abbreviation abbr, e.g. "G".
// A blank abbreviation is GPS, as in RINEX-2 files.
func SystemByAbbr(abbr string) (System, bool) {
	if strings.TrimSpace(abbr) == "" {
		return SysGPS, true
	}
	sys, ok := sysPerAbbr[abbr]
	return sys, ok
}

// Systems specifies a list of satellite systems.
type Systems []System

// String returns the contained systems in sitelog manner GPS+GLO+...
func (syss Systems) String() string {
	str := make([]string, 0, len(syss))
	for _, sys := range syss {
		str = append(str, sys.String())
	}
	return strings.Join(str, "+")
}

// MarshalJSON encodes the systems as a list of RINEX abbreviations.
func (syss Systems) MarshalJSON() ([]byte, error) {
	abbrs := make([]string, 0, len(syss))
	for _, sys := range syss {
		abbrs = append(abbrs, sys.Abbr())
	}
	return json.Marshal(abbrs)
}

// PRN specifies a GNSS satellite.
type PRN struct {
	Sys System // The satellite system.
	Num int8   // The satellite number.
}

// ParsePRN returns the PRN for a satellite identifier like "G12" or, in RINEX-2 files, " 12".
func ParsePRN(prn string) (PRN, error) {
	if len(prn) != 3 {
		return PRN{}, fmt.Errorf("invalid satellite identifier: %q", prn)
	}
	sys, ok := SystemByAbbr(prn[:1])
	if !ok || sys == SysMIXED {
		return PRN{}, fmt.Errorf("invalid satellite system: %q", prn)
	}
	snum, err := strconv.Atoi(strings.TrimSpace(prn[1:3]))
	if err != nil {
		return PRN{}, fmt.Errorf("parse sat num: %q: %v", prn, err)
	}
	if snum < 1 {
		return PRN{}, fmt.Errorf("check satellite number '%v%d'", sys, snum)
	}
	return PRN{Sys: sys, Num: int8(snum)}, nil
}

// String is a PRN Stringer.
func (prn PRN) String() string {
	return fmt.Sprintf("%s%02d", prn.Sys.Abbr(), prn.Num)
}
