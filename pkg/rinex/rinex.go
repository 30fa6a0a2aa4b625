// Package rinex provides the RINEX observation header, epoch-time parsing and the
// RINEX file naming conventions needed for Hatanaka compression.
package rinex

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const (
	// epochTimeFormat is the time format for the epoch-time in RINEX3 files.
	epochTimeFormat string = "2006  1  2 15  4  5.0000000"

	// epochTimeFormatv2 is the time format for the epoch-time in RINEX2 files.
	epochTimeFormatv2 string = "06  1  2 15  4  5.0000000"
)

// errors
var (
	// ErrNoHeader is returned when reading RINEX data that does not begin with a RINEX Header.
	ErrNoHeader = errors.New("RINEX: no header")

	// ErrNoStandardName is returned if a filename follows neither the RINEX-2 nor the RINEX-3 naming convention.
	ErrNoStandardName = errors.New("RINEX: file has no standard RINEX name")
)

var (
	// Rnx2FileNamePattern is the regex for RINEX2 filenames.
	Rnx2FileNamePattern = regexp.MustCompile(`(([a-zA-Z0-9]{4})(\d{3})([a-xA-X0])(\d{2})?\.(\d{2})([domnglqfphDO]))\.?([a-zA-Z0-9]+)?`)

	// Rnx3FileNamePattern is the regex for RINEX3 filenames.
	Rnx3FileNamePattern = regexp.MustCompile(`((([A-Z0-9]{4})(\d)(\d)([A-Z]{3})_([RSU])_((\d{4})(\d{3})(\d{2})(\d{2}))_(\d{2}[A-Z])_?(\d{2}[CZSMHDU])?_([GREJCSM][MNO]))\.(rnx|crx))\.?([a-zA-Z0-9]+)?`)
)

// matchFilename matches the base name fil against pattern. The whole name must match.
func matchFilename(pattern *regexp.Regexp, fil string) []string {
	res := pattern.FindStringSubmatch(fil)
	if res == nil || res[0] != fil {
		return nil
	}
	return res
}

// IsHatanakaCompressed returns true if the file given by filename is Hatanaka compressed.
// This is checked by the filenames' extension, a trailing compression extension like .gz is ignored.
func IsHatanakaCompressed(filename string) bool {
	fil := filepath.Base(filename)
	if res := matchFilename(Rnx3FileNamePattern, fil); res != nil {
		return res[16] == "crx"
	}
	if res := matchFilename(Rnx2FileNamePattern, fil); res != nil {
		return strings.EqualFold(res[7], "d")
	}
	ext := strings.ToLower(filepath.Ext(fil))
	return ext == ".crx"
}

// CompactFilename returns the Compact RINEX filename for the RINEX observation file rnxFilename,
// e.g. brst155h.20o -> brst155h.20d or BRUX00BEL_R_20183101900_01H_30S_MO.rnx -> BRUX00BEL_R_20183101900_01H_30S_MO.crx.
// A compression extension of the input is dropped.
func CompactFilename(rnxFilename string) (string, error) {
	dir, rnxFil := filepath.Split(rnxFilename)

	crxFil := ""
	if res := matchFilename(Rnx3FileNamePattern, rnxFil); res != nil {
		if res[16] != "rnx" || !strings.HasSuffix(res[15], "O") {
			return "", fmt.Errorf("%q is no RINEX observation file", rnxFil)
		}
		crxFil = res[2] + ".crx"
	} else if res := matchFilename(Rnx2FileNamePattern, rnxFil); res != nil {
		typ := ""
		switch res[7] {
		case "o":
			typ = "d"
		case "O":
			typ = "D"
		default:
			return "", fmt.Errorf("%q is no RINEX observation file", rnxFil)
		}
		crxFil = res[2] + res[3] + res[4] + res[5] + "." + res[6] + typ
	} else {
		return "", fmt.Errorf("%w: %q", ErrNoStandardName, rnxFil)
	}

	return filepath.Join(dir, crxFil), nil
}

// ObsFilename returns the RINEX observation filename for the Compact RINEX file crxFilename,
// e.g. brst155h.20d.Z -> brst155h.20o. A compression extension of the input is dropped.
func ObsFilename(crxFilename string) (string, error) {
	dir, crxFil := filepath.Split(crxFilename)

	rnxFil := ""
	if res := matchFilename(Rnx3FileNamePattern, crxFil); res != nil {
		if res[16] != "crx" {
			return "", fmt.Errorf("%q is not Hatanaka compressed", crxFil)
		}
		rnxFil = res[2] + ".rnx"
	} else if res := matchFilename(Rnx2FileNamePattern, crxFil); res != nil {
		typ := ""
		switch res[7] {
		case "d":
			typ = "o"
		case "D":
			typ = "O"
		default:
			return "", fmt.Errorf("%q is not Hatanaka compressed", crxFil)
		}
		rnxFil = res[2] + res[3] + res[4] + res[5] + "." + res[6] + typ
	} else {
		return "", fmt.Errorf("%w: %q", ErrNoStandardName, crxFil)
	}

	return filepath.Join(dir, rnxFil), nil
}

// EpochTime parses the time of an epoch line. major is the RINEX major version and selects
// the layout: RINEX-2 " yy mm dd hh mm ss.sssssss" or RINEX-3 "> yyyy mm dd hh mm ss.sssssss".
func EpochTime(line string, major int) (time.Time, error) {
	if major < 3 {
		if len(line) < 26 {
			return time.Time{}, fmt.Errorf("epoch line too short: %q", line)
		}
		return time.Parse(epochTimeFormatv2, strings.TrimSpace(line[1:26]))
	}
	if len(line) < 29 {
		return time.Time{}, fmt.Errorf("epoch line too short: %q", line)
	}
	return time.Parse(epochTimeFormat, strings.TrimSpace(line[2:29]))
}
