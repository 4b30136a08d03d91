package transform

import (
	"regexp"
	"strings"
)

var (
	// parenContentRe captures the first "(...)" group: "Bench Press (Barbell)" -> "Barbell"
	parenContentRe = regexp.MustCompile(`\((.*?)\)`)

	// parenStripRe removes every parenthetical along with the whitespace before it.
	parenStripRe = regexp.MustCompile(`\s*\(.*?\)`)
)

const (
	EquipmentMachine = "Machine"
	EquipmentCable   = "Cable"
)

// equipmentRule maps a lower-case title substring to an equipment category.
type equipmentRule struct {
	substring string
	equipment string
}

// equipmentRules are evaluated in order; the first match wins.
var equipmentRules = []equipmentRule{
	{"butterfly", EquipmentMachine},
	{"face pull", EquipmentCable},
	{"seated", EquipmentMachine},
	{"cable", EquipmentCable},
	{"t bar", EquipmentMachine},
	{"rope", EquipmentCable},
}

// CleanTitle strips parenthetical content from an exercise title.
// The content of the first group is returned as aux; aux is nil when the
// title has no parentheses.
func CleanTitle(raw string) (title string, aux *string) {
	m := parenContentRe.FindStringSubmatch(raw)
	if m == nil {
		return strings.TrimSpace(raw), nil
	}
	content := m[1]
	return strings.TrimSpace(parenStripRe.ReplaceAllString(raw, "")), &content
}

// ClassifyEquipment applies the keyword rules to title. When no rule matches
// the fallback is returned unchanged.
func ClassifyEquipment(title string, fallback *string) *string {
	lower := strings.ToLower(title)
	for _, rule := range equipmentRules {
		if strings.Contains(lower, rule.substring) {
			eq := rule.equipment
			return &eq
		}
	}
	return fallback
}

// ResolveEquipment cleans a raw exercise title and classifies its equipment.
// Untagged exercises fall back to the parenthetical content, e.g.
// "Squat (Barbell)" -> ("Squat", "Barbell").
func ResolveEquipment(raw string) (title string, equipment *string) {
	title, aux := CleanTitle(raw)
	return title, ClassifyEquipment(title, aux)
}
