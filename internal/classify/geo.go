package classify

const (
	ZoneStraitCore  = "strait_core"
	ZonePersianGulf = "persian_gulf"
	ZoneGulfOfOman  = "gulf_of_oman"
	ZoneArabianSea  = "arabian_sea"
	ZoneOutside     = "outside"

	VesselTanker    = "tanker"
	VesselCargo     = "cargo"
	VesselPassenger = "passenger"
	VesselMilitary  = "military"
	VesselFishing   = "fishing"
	VesselTug       = "tug"
	VesselSpecial   = "special"
	VesselOther     = "other"
)

// Place is a gazetteer entry.
type Place struct {
	Name   string
	Lat    float64
	Lon    float64
	Region string
}

// StraitOfHormuz is the reference point for the strait itself.
var StraitOfHormuz = Place{Name: "Strait of Hormuz", Lat: 26.5667, Lon: 56.25, Region: RegionStrait}

// Gazetteer is matched in order: specific ports and islands before seas, and
// the bare "strait" and "gulf" last.
var Gazetteer = []struct {
	Phrase string
	Place  Place
}{
	{"strait of hormuz", StraitOfHormuz},
	{"bandar abbas", Place{"Bandar Abbas", 27.1832, 56.2666, RegionStrait}},
	{"qeshm", Place{"Qeshm Island", 26.9581, 56.2719, RegionStrait}},
	{"larak", Place{"Larak Island", 26.8667, 56.3667, RegionStrait}},
	{"musandam", Place{"Musandam", 26.1950, 56.2470, RegionStrait}},
	{"fujairah", Place{"Fujairah", 25.1288, 56.3265, RegionGulfOfOman}},
	{"khor fakkan", Place{"Khor Fakkan", 25.3390, 56.3560, RegionGulfOfOman}},
	{"jask", Place{"Jask", 25.6441, 57.7746, RegionGulfOfOman}},
	{"sohar", Place{"Sohar", 24.3643, 56.7468, RegionGulfOfOman}},
	{"muscat", Place{"Muscat", 23.5880, 58.3829, RegionGulfOfOman}},
	{"kharg", Place{"Kharg Island", 29.2333, 50.3167, RegionPersianGulf}},
	{"bushehr", Place{"Bushehr", 28.9234, 50.8203, RegionPersianGulf}},
	{"ras tanura", Place{"Ras Tanura", 26.6439, 50.1597, RegionPersianGulf}},
	{"ras laffan", Place{"Ras Laffan", 25.9126, 51.5657, RegionPersianGulf}},
	{"jebel ali", Place{"Jebel Ali", 25.0118, 55.0612, RegionPersianGulf}},
	{"dubai", Place{"Dubai", 25.2048, 55.2708, RegionPersianGulf}},
	{"abu dhabi", Place{"Abu Dhabi", 24.4539, 54.3773, RegionPersianGulf}},
	{"bahrain", Place{"Bahrain", 26.0667, 50.5577, RegionPersianGulf}},
	{"kuwait", Place{"Kuwait", 29.3759, 47.9774, RegionPersianGulf}},
	{"basra", Place{"Basra", 30.5085, 47.7804, RegionPersianGulf}},
	{"chabahar", Place{"Chabahar", 25.2919, 60.6430, RegionArabianSea}},
	{"duqm", Place{"Duqm", 19.6617, 57.7049, RegionArabianSea}},
	{"bab el mandeb", Place{"Bab el-Mandeb", 12.5833, 43.3333, RegionRedSea}},
	{"hodeidah", Place{"Hodeidah", 14.7978, 42.9545, RegionRedSea}},
	{"aden", Place{"Gulf of Aden", 12.0, 47.0, RegionRedSea}},
	{"red sea", Place{"Red Sea", 20.2802, 38.5126, RegionRedSea}},
	{"gulf of oman", Place{"Gulf of Oman", 24.5, 58.5, RegionGulfOfOman}},
	{"persian gulf", Place{"Persian Gulf", 26.8, 52.0, RegionPersianGulf}},
	{"arabian gulf", Place{"Persian Gulf", 26.8, 52.0, RegionPersianGulf}},
	{"arabian sea", Place{"Arabian Sea", 16.0, 62.0, RegionArabianSea}},
	{"hormuz", StraitOfHormuz},
	{"strait", StraitOfHormuz},
	{"gulf", Place{"Persian Gulf", 26.8, 52.0, RegionPersianGulf}},
}

// ExtractGeo returns the first gazetteer entry contained in text.
func ExtractGeo(text string) (Place, bool) {
	norm := normalize(text)
	for _, entry := range Gazetteer {
		if contains(norm, entry.Phrase) {
			return entry.Place, true
		}
	}
	return Place{}, false
}

type box struct {
	zone           string
	minLat, maxLat float64
	minLon, maxLon float64
}

// zoneBoxes are checked in order, so the strait core wins over the seas it overlaps.
var zoneBoxes = []box{
	{ZoneStraitCore, 25.8, 27.2, 55.8, 57.2},
	{ZonePersianGulf, 23.5, 30.5, 47.5, 56.5},
	{ZoneGulfOfOman, 22.0, 26.5, 56.0, 61.0},
	{ZoneArabianSea, 10.0, 22.0, 55.0, 72.0},
}

func Zone(lat, lon float64) string {
	for _, b := range zoneBoxes {
		if lat >= b.minLat && lat <= b.maxLat && lon >= b.minLon && lon <= b.maxLon {
			return b.zone
		}
	}
	return ZoneOutside
}

// VesselType maps an ITU ship-type code to a coarse vessel class.
func VesselType(code int) string {
	switch {
	case code >= 80 && code <= 89:
		return VesselTanker
	case code >= 70 && code <= 79:
		return VesselCargo
	case code >= 60 && code <= 69:
		return VesselPassenger
	case code == 35:
		return VesselMilitary
	case code == 30:
		return VesselFishing
	case code == 31 || code == 32 || code == 52:
		return VesselTug
	case code == 33 || code == 34 || code == 50 || code == 51 || (code >= 53 && code <= 59):
		return VesselSpecial
	}
	return VesselOther
}
