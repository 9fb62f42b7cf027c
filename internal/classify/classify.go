// Package classify holds the pure labelling functions used by every collector.
// Each axis is one ordered rule table so policy changes never touch control flow.
package classify

const (
	ThreatCritical = "critical"
	ThreatHigh     = "high"
	ThreatElevated = "elevated"
	ThreatLow      = "low"

	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"

	RegionStrait      = "strait_of_hormuz"
	RegionPersianGulf = "persian_gulf"
	RegionGulfOfOman  = "gulf_of_oman"
	RegionRedSea      = "red_sea"
	RegionArabianSea  = "arabian_sea"
	RegionOther       = "other"

	EventMissileLaunch    = "missile_launch"
	EventDroneAttack      = "drone_attack"
	EventNavalClash       = "naval_clash"
	EventVesselSeizure    = "vessel_seizure"
	EventMine             = "mine"
	EventExplosion        = "explosion"
	EventMilitaryExercise = "military_exercise"
	EventDiplomatic       = "diplomatic"
	EventOther            = "other"

	CategoryMilitaryOps = "military_ops"
	CategoryShipping    = "shipping"
	CategoryEnergy      = "energy"
	CategoryDiplomacy   = "diplomacy"
	CategorySanctions   = "sanctions"
	CategoryGeneral     = "general"
)

var ThreatRules = []Rule{
	{Label: ThreatCritical, Keywords: []string{
		"attack", "attacked", "attacks", "missile", "missiles", "explosion", "explosions",
		"hijack", "hijacked", "boarded", "seized", "seizure", "mine", "mines", "sunk", "sinking",
		"struck", "projectile", "fire onboard",
	}},
	{Label: ThreatHigh, Keywords: []string{
		"suspicious approach", "armed", "warship", "warships", "drone", "drones", "uav", "uavs",
		"gps interference", "jamming", "threat", "threats", "harassment", "harassed",
		"boarding attempt", "small craft",
	}},
	{Label: ThreatElevated, Keywords: []string{
		"advisory", "caution", "heightened", "increased", "military activity", "exercise",
		"exercises", "warning", "warns", "vigilance", "tension", "tensions",
	}},
}

var SeverityRules = []Rule{
	{Label: SeverityCritical, Keywords: []string{
		"missile", "missiles", "attack", "attacked", "attacks", "explosion", "explosions",
		"strike", "strikes", "struck", "sunk", "sinking", "seized", "seizure", "hijacked",
		"closure", "closed", "blockade", "killed", "casualties", "mine", "mines", "war",
	}},
	{Label: SeverityHigh, Keywords: []string{
		"military", "warship", "warships", "naval", "navy", "heightened", "threat", "threatens",
		"warning", "warns", "drone", "drones", "tension", "tensions", "escalation", "escalates",
		"harassment", "exercise", "exercises", "jamming", "interference", "irgc",
	}},
	{Label: SeverityMedium, Keywords: []string{
		"sanction", "sanctions", "talks", "diplomatic", "negotiations", "protest", "protests",
		"price", "prices", "insurance", "premium", "premiums", "rerouting", "rerouted",
		"delay", "delays", "surge", "surges",
	}},
}

// RegionRules list named seas before the bare "strait" and "gulf" fallbacks.
var RegionRules = []Rule{
	{Label: RegionStrait, Keywords: []string{
		"strait of hormuz", "hormuz", "musandam", "bandar abbas", "qeshm", "larak",
	}},
	{Label: RegionGulfOfOman, Keywords: []string{
		"gulf of oman", "fujairah", "khor fakkan", "jask", "muscat", "sohar",
	}},
	{Label: RegionPersianGulf, Keywords: []string{
		"persian gulf", "arabian gulf", "kharg", "ras tanura", "bahrain", "kuwait", "qatar",
		"ras laffan", "jebel ali", "dubai", "abu dhabi", "bushehr", "basra",
	}},
	{Label: RegionRedSea, Keywords: []string{
		"red sea", "bab el mandeb", "bab al mandab", "hodeidah", "aden", "houthi", "houthis",
	}},
	{Label: RegionArabianSea, Keywords: []string{
		"arabian sea", "chabahar", "duqm", "salalah", "gwadar",
	}},
	{Label: RegionStrait, Keywords: []string{"strait"}},
	{Label: RegionPersianGulf, Keywords: []string{"gulf"}},
}

var EventTypeRules = []Rule{
	{Label: EventMissileLaunch, Keywords: []string{
		"missile", "missiles", "ballistic", "rocket", "rockets", "cruise missile",
	}},
	{Label: EventDroneAttack, Keywords: []string{
		"drone", "drones", "uav", "uavs", "unmanned",
	}},
	{Label: EventVesselSeizure, Keywords: []string{
		"seized", "seizes", "seize", "seizure", "hijack", "hijacked", "boarded", "detained", "captured",
	}},
	{Label: EventMine, Keywords: []string{
		"mine", "mines", "naval mine", "limpet",
	}},
	{Label: EventNavalClash, Keywords: []string{
		"clash", "clashes", "exchange of fire", "gunboat", "gunboats", "fast attack craft",
		"skirmish", "confrontation", "warships confront",
	}},
	{Label: EventExplosion, Keywords: []string{
		"explosion", "explosions", "blast", "exploded", "fire", "ablaze",
	}},
	{Label: EventMilitaryExercise, Keywords: []string{
		"exercise", "exercises", "drill", "drills", "war games", "maneuvers", "manoeuvres",
	}},
	{Label: EventDiplomatic, Keywords: []string{
		"talks", "negotiation", "negotiations", "diplomatic", "ceasefire", "summit",
		"agreement", "envoy", "sanctions",
	}},
}

var CategoryRules = []Rule{
	{Label: CategoryMilitaryOps, Keywords: []string{
		"military", "navy", "naval", "warship", "warships", "missile", "missiles", "drone",
		"drones", "strike", "strikes", "attack", "attacks", "irgc", "troops", "exercise",
		"destroyer", "airstrike", "airstrikes",
	}},
	{Label: CategoryShipping, Keywords: []string{
		"tanker", "tankers", "vessel", "vessels", "ship", "ships", "shipping", "maritime",
		"cargo", "port", "transit", "crew", "ukmto", "freight", "container", "lloyd s",
	}},
	{Label: CategoryEnergy, Keywords: []string{
		"oil", "crude", "brent", "wti", "lng", "gas", "barrel", "barrels", "opec", "refinery",
		"pipeline", "fuel",
	}},
	{Label: CategoryDiplomacy, Keywords: []string{
		"talks", "negotiation", "negotiations", "diplomatic", "ceasefire", "summit",
		"ambassador", "minister", "united nations", "agreement", "envoy",
	}},
	{Label: CategorySanctions, Keywords: []string{
		"sanction", "sanctions", "sanctioned", "embargo", "export ban", "treasury", "ofac",
		"blacklist", "asset freeze",
	}},
}

var relevanceKeywords = []string{
	"hormuz", "strait", "persian gulf", "gulf of oman", "iran", "iranian", "irgc", "tanker",
	"tankers", "oil", "crude", "brent", "shipping", "navy", "naval", "missile", "drone",
	"houthi", "red sea", "ukmto", "sanctions", "blockade", "seized", "mine",
}

// ThreatLevel grades advisory text: critical, high, elevated or low.
func ThreatLevel(text string) string {
	return firstMatch(ThreatRules, text, ThreatLow)
}

func Severity(text string) string {
	return firstMatch(SeverityRules, text, SeverityLow)
}

func Region(text string) string {
	return firstMatch(RegionRules, text, RegionOther)
}

func EventType(text string) string {
	return firstMatch(EventTypeRules, text, EventOther)
}

// Category picks the bucket with the most keyword hits.
func Category(text string) string {
	return bestMatch(CategoryRules, text, CategoryGeneral)
}

// Keywords returns the relevance keywords present in text, in table order.
func Keywords(text string) []string {
	norm := normalize(text)
	out := make([]string, 0, 4)
	for _, kw := range relevanceKeywords {
		if contains(norm, kw) {
			out = append(out, kw)
		}
	}
	return out
}

func IsRelevant(text string) bool {
	norm := normalize(text)
	for _, kw := range relevanceKeywords {
		if contains(norm, kw) {
			return true
		}
	}
	return false
}

// AffectsStrait reports whether text places an advisory in or next to the strait.
func AffectsStrait(text string) bool {
	switch Region(text) {
	case RegionStrait, RegionPersianGulf, RegionGulfOfOman:
		return true
	}
	return false
}
