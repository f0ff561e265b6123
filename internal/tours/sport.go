package tours

import "strings"

// SportType is the normalized activity category of a tour
type SportType string

const (
	Biking  SportType = "Biking"
	EBiking SportType = "EBiking"
	Running SportType = "Running"
	Hiking  SportType = "Hiking"
	Other   SportType = "Other"
)

// Name suffixes that tag which bike a ride was recorded on
const (
	suffixPropella = "(P)"
	suffixRoad     = "(R)"
	suffixCoop     = "(C)"
)

// ClassifySport maps Komoot's free-text sport label and the tour name to a SportType.
// Bike labels are split on the road-bike suffix: only "(R)" rides count as Biking,
// every other bike tour is assumed electric.
func ClassifySport(label, name string) SportType {
	switch {
	case strings.Contains(label, "bike") || strings.Contains(label, "bicycle"):
		if strings.HasSuffix(name, suffixRoad) {
			return Biking
		}
		return EBiking
	case label == "jogging" || label == "running":
		return Running
	case label == "hiking":
		return Hiking
	default:
		return Other
	}
}

// IsBike reports whether the sport type is one of the bike categories
func (s SportType) IsBike() bool {
	return s == Biking || s == EBiking
}

// BikeType identifies the bike a ride was recorded on
type BikeType string

const (
	Propella7S           BikeType = "Propella_7S"
	SpecializedTurboVado BikeType = "Specialized_Turbo_Vado"
	CerveloSLCSL         BikeType = "Cervelo_SLC_SL"
	REICoopGenerationE   BikeType = "REI_CO_OP_GENERATION_E"
)

// IsElectric reports whether the bike has motor assistance
func (b BikeType) IsElectric() bool {
	return b != CerveloSLCSL
}

// BikeInfo is the serialized form of a BikeType
type BikeInfo struct {
	Name       string `json:"name"`
	IsElectric bool   `json:"isElectric"`
}

// Info returns the serialized form of the bike
func (b BikeType) Info() BikeInfo {
	return BikeInfo{Name: string(b), IsElectric: b.IsElectric()}
}

// BikeVariant strips a known bike suffix from a tour name and returns the display
// name together with the bike it denotes. Names without a suffix keep their text
// and map to the default e-bike.
func BikeVariant(name string) (string, BikeType) {
	switch {
	case strings.HasSuffix(name, suffixPropella):
		return strings.TrimSpace(strings.TrimSuffix(name, suffixPropella)), Propella7S
	case strings.HasSuffix(name, suffixRoad):
		return strings.TrimSpace(strings.TrimSuffix(name, suffixRoad)), CerveloSLCSL
	case strings.HasSuffix(name, suffixCoop):
		return strings.TrimSpace(strings.TrimSuffix(name, suffixCoop)), REICoopGenerationE
	default:
		return name, SpecializedTurboVado
	}
}
