package rinex

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/de-bkg/hatanaka/pkg/gnss"
	"github.com/go-playground/validator/v10"
)

// Header labels that control Hatanaka compression.
const (
	LabelCRINEXVersion = "CRINEX VERS   / TYPE"
	LabelCRINEXProgram = "CRINEX PROG / DATE"
	LabelRINEXVersion  = "RINEX VERSION / TYPE"
	LabelComment       = "COMMENT"
	LabelEndOfHeader   = "END OF HEADER"
)

const (
	// The Date/Time format in the PGM / RUN BY / DATE header record.
	headerDateFormat string = "20060102 150405"

	// The Date/Time format with time zone in the PGM / RUN BY / DATE header record.
	//
	// Format: "yyyymmdd hhmmss zone" with 3–4 character code for the time zone.
	headerDateWithZoneFormat string = "20060102 150405 MST"

	// The RINEX-2 Date/Time format in the PGM / RUN BY / DATE header record. Also used in CRINEX PROG / DATE.
	headerDateFormatv2 string = "02-Jan-06 15:04"
)

// use a single instance of Validate, it caches struct info
var validate = validator.New()

// ObsCode is the RINEX observation code that specifies frequency, signal and tracking mode like "L1C".
type ObsCode string

// ObsHeader stores the RINEX observation header, optionally preceded by the Compact RINEX lines.
type ObsHeader struct {
	CRINEXVersion float32   `validate:"omitempty,gte=1,lt=4"` // Compact RINEX format version, 0 if not Hatanaka compressed.
	CRINEXPgm     string    // Program that Hatanaka compressed the file.
	CRINEXDate    time.Time // Date of compression.

	RINEXVersion float32 `validate:"gte=1,lt=5"` // RINEX Format version
	RINEXType    string  `validate:"required"`   // RINEX File type. O for Obs
	// The header satellite system. Note that system is "Mixed" if more than one. Use SatSystems() to get a list of all used systems.
	SatSystem gnss.System

	Pgm   string    // name of program creating this file
	RunBy string    // name of agency creating this file
	Date  time.Time // Date and time of file creation.

	Comments []string // * comment lines

	MarkerName   string // The name of the antenna marker, usually the 9-character station ID.
	MarkerNumber string // The IERS DOMES number assigned to the station marker is expected.

	ReceiverNumber, ReceiverType, ReceiverVersion string
	AntennaNumber, AntennaType                    string

	ObsTypes map[gnss.System][]ObsCode `validate:"required,min=1,dive,min=1"` // List of all observation types per GNSS.

	Interval       float64 // Observation interval in seconds
	TimeOfFirstObs time.Time
	TimeOfLastObs  time.Time

	Labels []string // all Header Labels found.
}

// ParseObsHeader parses the header lines of a RINEX or Compact RINEX observation file.
// lines must start with the first header line and may include the END OF HEADER line.
func ParseObsHeader(lines []string) (hdr ObsHeader, err error) {
	hdr.ObsTypes = map[gnss.System][]ObsCode{}
	var rememberSys gnss.System

readln:
	for i, line := range lines {
		lineNum := i + 1
		if lineNum == 1 {
			if !strings.Contains(line, "RINEX VERS") { // "CRINEX VERS   / TYPE" or "RINEX VERSION / TYPE"
				err = ErrNoHeader
				return
			}
		}

		if IsEndOfHeader(line) {
			break readln
		}

		if len(line) < 60 {
			continue
		}

		val := line[:60] // RINEX files are ASCII
		key := strings.TrimSpace(line[60:])
		hdr.Labels = append(hdr.Labels, key)

		switch key {
		case LabelCRINEXVersion:
			f64, err := strconv.ParseFloat(strings.TrimSpace(val[:20]), 32)
			if err != nil {
				return hdr, fmt.Errorf("parse CRINEX VERSION: %v", err)
			}
			hdr.CRINEXVersion = float32(f64)
		case LabelCRINEXProgram:
			hdr.CRINEXPgm = strings.TrimSpace(val[:40])
			if date, err := parseHeaderDate(strings.TrimSpace(val[40:])); err == nil {
				hdr.CRINEXDate = date
			} else {
				log.Debug("parse CRINEX date", "date", val[40:], "err", err)
			}
		case LabelRINEXVersion:
			f64, err := strconv.ParseFloat(strings.TrimSpace(val[:20]), 32)
			if err != nil {
				return hdr, fmt.Errorf("parse RINEX VERSION: %v", err)
			}
			hdr.RINEXVersion = float32(f64)
			hdr.RINEXType = strings.TrimSpace(val[20:21])
			sys, ok := gnss.SystemByAbbr(val[40:41])
			if !ok {
				return hdr, fmt.Errorf("read header: invalid satellite system in line %d: %s", lineNum, line)
			}
			hdr.SatSystem = sys
		case "PGM / RUN BY / DATE":
			// Additional lines of this type can appear together after the second line, if needed to preserve the history of previous actions on the file.
			if hdr.Pgm != "" {
				continue
			}
			hdr.Pgm = strings.TrimSpace(val[:20])
			hdr.RunBy = strings.TrimSpace(val[20:40])
			if date, err := parseHeaderDate(strings.TrimSpace(val[40:])); err == nil {
				hdr.Date = date
			} else {
				log.Debug("parse header date", "date", val[40:], "err", err)
			}
		case LabelComment:
			hdr.Comments = append(hdr.Comments, strings.TrimSpace(val))
		case "MARKER NAME":
			hdr.MarkerName = strings.TrimSpace(val)
		case "MARKER NUMBER":
			hdr.MarkerNumber = strings.TrimSpace(val[:20])
		case "REC # / TYPE / VERS":
			hdr.ReceiverNumber = strings.TrimSpace(val[:20])
			hdr.ReceiverType = strings.TrimSpace(val[20:40])
			hdr.ReceiverVersion = strings.TrimSpace(val[40:])
		case "ANT # / TYPE":
			hdr.AntennaNumber = strings.TrimSpace(val[:20])
			hdr.AntennaType = strings.TrimSpace(val[20:40])
		case "SYS / # / OBS TYPES":
			var sys gnss.System
			if val[:1] == " " { // line continued
				sys = rememberSys
			} else {
				ok := false
				if sys, ok = gnss.SystemByAbbr(val[:1]); !ok || sys == gnss.SysMIXED {
					return hdr, fmt.Errorf("read header: invalid satellite system: %q: line %d", val[:1], lineNum)
				}
				rememberSys = sys
				nTypes, err := strconv.Atoi(strings.TrimSpace(val[3:6]))
				if err != nil {
					return hdr, fmt.Errorf("parse %q: %v", key, err)
				}
				hdr.ObsTypes[sys] = make([]ObsCode, 0, nTypes)
			}
			hdr.ObsTypes[sys] = append(hdr.ObsTypes[sys], toObsCodes(strings.Fields(val[7:]))...)
		case "# / TYPES OF OBSERV": // RINEX-2
			sys := hdr.SatSystem
			if strings.TrimSpace(val[:6]) != "" { // number of obs types
				nTypes, err := strconv.Atoi(strings.TrimSpace(val[:6]))
				if err != nil {
					return hdr, fmt.Errorf("parse %q: %v", key, err)
				}
				hdr.ObsTypes[sys] = make([]ObsCode, 0, nTypes)
			}
			hdr.ObsTypes[sys] = append(hdr.ObsTypes[sys], toObsCodes(strings.Fields(val[6:]))...)
		case "INTERVAL":
			if f64, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
				hdr.Interval = f64
			}
		case "TIME OF FIRST OBS":
			t, err := time.Parse(epochTimeFormat, strings.TrimSpace(val[:43]))
			if err != nil {
				return hdr, fmt.Errorf("parse %q: %v", key, err)
			}
			hdr.TimeOfFirstObs = t
		case "TIME OF LAST OBS":
			t, err := time.Parse(epochTimeFormat, strings.TrimSpace(val[:43]))
			if err != nil {
				return hdr, fmt.Errorf("parse %q: %v", key, err)
			}
			hdr.TimeOfLastObs = t
		default:
			log.Debug("header field not interpreted", "label", key)
		}
	}

	if hdr.RINEXVersion == 0 {
		return hdr, fmt.Errorf("unknown RINEX Version")
	}

	return hdr, nil
}

// IsEndOfHeader reports whether line is the END OF HEADER record.
func IsEndOfHeader(line string) bool {
	return strings.Contains(line, LabelEndOfHeader)
}

// IsComment reports whether line carries the COMMENT label in column 61.
func IsComment(line string) bool {
	return len(line) >= 60 && strings.TrimSpace(line[60:]) == LabelComment
}

// IsHatanaka reports whether the header was preceded by the Compact RINEX lines.
func (hdr *ObsHeader) IsHatanaka() bool {
	return hdr.CRINEXVersion > 0
}

// RINEXMajor returns the RINEX major version, e.g. 3 for 3.04.
func (hdr *ObsHeader) RINEXMajor() int {
	return int(hdr.RINEXVersion)
}

// CRINEXMajor returns the Compact RINEX major version, 1 or 3. It is 0 if not Hatanaka compressed.
func (hdr *ObsHeader) CRINEXMajor() int {
	return int(hdr.CRINEXVersion)
}

// Codes returns the observation codes for the system sys, in header order.
// RINEX-2 files have one list of codes for all systems.
func (hdr *ObsHeader) Codes(sys gnss.System) []ObsCode {
	if hdr.RINEXMajor() < 3 {
		return hdr.ObsTypes[hdr.SatSystem]
	}
	return hdr.ObsTypes[sys]
}

// SatSystems returns all used satellite systems, ordered by system. The header must have been read before.
// For RINEX-2 files use SatSystem.
func (hdr *ObsHeader) SatSystems() []gnss.System {
	if hdr.ObsTypes == nil {
		return []gnss.System{}
	}
	sysList := make([]gnss.System, 0, len(hdr.ObsTypes))
	for sys := range hdr.ObsTypes {
		sysList = append(sysList, sys)
	}
	sort.Slice(sysList, func(i, j int) bool { return sysList[i] < sysList[j] })
	return sysList
}

// Validate checks the header fields needed for Hatanaka compression.
func (hdr *ObsHeader) Validate() error {
	return validate.Struct(hdr)
}

func toObsCodes(s []string) []ObsCode {
	codes := make([]ObsCode, 0, len(s))
	for _, code := range s {
		codes = append(codes, ObsCode(code))
	}
	return codes
}

// Parse the Date/Time in the PGM / RUN BY / DATE header record.
// It is recommended to use UTC as the time zone. Set zone to LCL if an unknown local time was used.
func parseHeaderDate(date string) (time.Time, error) {
	format := headerDateFormat
	if len(date) == 19 || len(date) == 20 {
		format = headerDateWithZoneFormat
	} else if len(date) == 15 && strings.Contains(date, "-") {
		format = headerDateFormatv2
	} else if len(date) == 18 && strings.Contains(date, "-") {
		format = "02-Jan-06 15:04:05" // unofficial!
	} else if len(date) == 16 && strings.Contains(date, "-") {
		format = "2006-01-02 15:04" // unofficial!
	}

	return time.Parse(format, date)
}
