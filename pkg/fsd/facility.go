package fsd

import "strings"

// Facility is the category of a controller position.
// Values follow the FSD numeric encoding.
type Facility int

const (
	FacilityOBS Facility = iota
	FacilityFSS
	FacilityDEL
	FacilityGND
	FacilityTWR
	FacilityAPP
	FacilityCTR
	FacilityUndefined
)

var facilityNames = [...]string{"OBS", "FSS", "DEL", "GND", "TWR", "APP", "CTR", "Undefined"}

// String returns the short facility name.
func (f Facility) String() string {
	if f < 0 || int(f) >= len(facilityNames) {
		return "Undefined"
	}
	return facilityNames[f]
}

// ObservesOnly reports whether the facility only sees traffic rather than
// owning radar tracks. Observer, delivery and ground positions fall here,
// as does anything unrecognised.
func (f Facility) ObservesOnly() bool {
	switch f {
	case FacilityOBS, FacilityDEL, FacilityGND:
		return true
	case FacilityFSS, FacilityTWR, FacilityAPP, FacilityCTR:
		return false
	default:
		return true
	}
}

// ParseFacility accepts a short name ("TWR") or the FSD integer ("4").
// Unknown input yields FacilityUndefined.
func ParseFacility(s string) Facility {
	s = strings.TrimSpace(s)
	for i, name := range facilityNames {
		if strings.EqualFold(s, name) {
			return Facility(i)
		}
	}
	if len(s) == 1 && s[0] >= '0' && s[0] <= '6' {
		return Facility(s[0] - '0')
	}
	return FacilityUndefined
}

// Rating is a controller network rating. Values follow the FSD encoding,
// which starts at 1 for observers.
type Rating int

const (
	RatingOBS Rating = iota + 1
	RatingS1
	RatingS2
	RatingS3
	RatingC1
	RatingC2
	RatingC3
	RatingI1
	RatingI2
	RatingI3
	RatingSUP
	RatingADM
)

var ratingNames = map[Rating]string{
	RatingOBS: "OBS",
	RatingS1:  "S1",
	RatingS2:  "S2",
	RatingS3:  "S3",
	RatingC1:  "C1",
	RatingC2:  "C2",
	RatingC3:  "C3",
	RatingI1:  "I1",
	RatingI2:  "I2",
	RatingI3:  "I3",
	RatingSUP: "SUP",
	RatingADM: "ADM",
}

// String returns the short rating code, or "Unknown".
func (r Rating) String() string {
	if name, ok := ratingNames[r]; ok {
		return name
	}
	return "Unknown"
}

// ParseRating accepts a short code ("C1"). Unknown input yields 0.
func ParseRating(s string) Rating {
	s = strings.TrimSpace(s)
	for r, name := range ratingNames {
		if strings.EqualFold(s, name) {
			return r
		}
	}
	return 0
}
