package registry

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Permit is one commercial building permit record.
type Permit struct {
	PermitNumber string  `json:"permit_number"`
	IssueDate    string  `json:"issue_date,omitempty"`
	Address      string  `json:"address,omitempty"`
	Owner        string  `json:"owner,omitempty"`
	Scope        string  `json:"scope,omitempty"`
	WorkType     string  `json:"work_type,omitempty"`
	BuildingType string  `json:"building_type"`
	Value        float64 `json:"value,omitempty"`
}

// DefaultMinPermitValue filters out small commercial permits.
const DefaultMinPermitValue = 350_000

var (
	permitBlockRe  = regexp.MustCompile(`(?:ACC|COMM|DECK|DEMO|HALT|INST|MFR|SFD|SIGN|TENT|PLUMB|FIRE|MOVE)-\d{4}-\d+`)
	permitNumberRe = regexp.MustCompile(`^(COMM-\d{4}-\d+)`)
	issueDateRe    = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)
	permitValueRe  = regexp.MustCompile(`(?m)\$([0-9,]+)\s*$`)
	nextPermitRe   = regexp.MustCompile(`^\$|^(?:ACC|COMM|DECK|DEMO)-`)

	permitAddressRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d+\s+(?:\d+\s+)?[A-Za-z][A-Za-z\s]+?(?:AVE|ST|DR|RD|BLVD|CRES|PL|WAY|LANE|CRT|TERR|PKWY|HWY|CIRCLE|MANOR|MEWS|TRAIL|GATE)\s*[NSEW]?\s*(?:#\s*\d+)?),?\s*\n?\s*Saskatoon,?\s*SK`),
		regexp.MustCompile(`(?i)(\d+\s+[A-Za-z][A-Za-z\s]+?(?:AVE|ST|DR|RD|BLVD|CRES)\s*[NSEW]?\s*#\d+),?\s*\n?\s*Saskatoon`),
	}

	ownerCompanyRe = regexp.MustCompile(`([A-Z][A-Za-z\s&\-']+(?:Inc|Ltd|Corp|Co|LP|LLP|Group|Properties|Investments|Construction|Development|Developments|Holdings|Realty|Real Estate|Partnership|Trust|Association)\.?(?:\s+(?:Inc|Ltd|Corp)\.?)?)`)
)

// ParseBuildingPermits parses the extracted text of a weekly building
// permit report, returning only commercial permits (COMM- prefix) at
// or above minValue.
func ParseBuildingPermits(text string, minValue float64) []Permit {
	var permits []Permit

	for _, block := range splitPermitBlocks(text) {
		if !strings.HasPrefix(block, "COMM-") {
			continue
		}
		permit, ok := parsePermitBlock(block)
		if ok && permit.Value >= minValue {
			permits = append(permits, permit)
		}
	}

	return permits
}

// splitPermitBlocks splits report text at permit-number boundaries.
func splitPermitBlocks(text string) []string {
	starts := permitBlockRe.FindAllStringIndex(text, -1)
	if starts == nil {
		return nil
	}

	var blocks []string
	for i, loc := range starts {
		end := len(text)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		if block := strings.TrimSpace(text[loc[0]:end]); block != "" {
			blocks = append(blocks, block)
		}
	}
	return blocks
}

func parsePermitBlock(block string) (Permit, bool) {
	lines := strings.Split(block, "\n")
	m := permitNumberRe.FindStringSubmatch(lines[0])
	if m == nil {
		return Permit{}, false
	}

	permit := Permit{
		PermitNumber: m[1],
		BuildingType: "Commercial",
	}

	dateEnd := 0
	if d := issueDateRe.FindStringSubmatchIndex(block); d != nil {
		month, _ := strconv.Atoi(block[d[2]:d[3]])
		day, _ := strconv.Atoi(block[d[4]:d[5]])
		year := block[d[6]:d[7]]
		permit.IssueDate = fmt.Sprintf("%s-%02d-%02d", year, month, day)
		dateEnd = d[1]
	}

	if v := permitValueRe.FindStringSubmatch(block); v != nil {
		if value, err := strconv.ParseFloat(strings.ReplaceAll(v[1], ",", ""), 64); err == nil {
			permit.Value = value
		}
	}

	for _, re := range permitAddressRes {
		if a := re.FindString(block); a != "" {
			permit.Address = strings.TrimSpace(strings.TrimSuffix(squash(a), ","))
			break
		}
	}

	permit.Scope = extractScope(lines)
	permit.WorkType = extractWorkType(block, lines)

	if owner := ownerCompanyRe.FindStringSubmatch(block[dateEnd:]); owner != nil {
		permit.Owner = dedupOwner(strings.TrimSpace(owner[1]))
	}

	return permit, true
}

// extractScope collects the description lines that follow the
// "Commercial" building-type line, stopping at a value or the next
// permit.
func extractScope(lines []string) string {
	var desc []string
	found := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !found && strings.Contains(line, "Commercial") {
			found = true
			if trimmed != "Commercial Building" && trimmed != "Commercial" {
				desc = append(desc, trimmed)
			}
			continue
		}
		if found {
			if nextPermitRe.MatchString(trimmed) {
				break
			}
			if trimmed != "" {
				desc = append(desc, trimmed)
			}
		}
	}
	return strings.Join(desc, " - ")
}

func extractWorkType(block string, lines []string) string {
	for _, line := range lines {
		if strings.TrimSpace(line) == "New" {
			return "New Construction"
		}
	}
	if strings.Contains(block, "Alteration/Renovation") {
		return "Alteration/Renovation"
	}
	if strings.Contains(block, "Demolition") {
		return "Demolition"
	}
	return ""
}

// dedupOwner trims names duplicated by side-by-side report columns,
// e.g. "Wright Construction Wright Co" becomes "Wright Construction".
func dedupOwner(name string) string {
	words := strings.Fields(name)
	for split := 2; split < len(words); split++ {
		firstPart := strings.Join(words[:split], " ")
		if words[split] == words[0] || (len(words[split]) > 3 && strings.Contains(firstPart, words[split])) {
			return firstPart
		}
	}
	return name
}
