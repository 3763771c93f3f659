// Package registry parses the three external data feeds that supply
// entity facts for document patching: corporate registry profile
// reports, property transfer lists and building permit reports. All
// parsers take already-extracted text or CSV; upstream PDF and
// spreadsheet extraction is handled outside this module.
package registry

import (
	"regexp"
	"strconv"
	"strings"
)

// Person is a director or officer tied to an entity.
type Person struct {
	Name          string `json:"name"`
	Role          string `json:"role"`
	EffectiveDate string `json:"effective_date,omitempty"`
	Address       string `json:"address,omitempty"`
	Title         string `json:"title,omitempty"`
}

// Shareholder is one row of an entity's shareholder table.
type Shareholder struct {
	Name       string `json:"name"`
	Address    string `json:"address,omitempty"`
	ShareClass string `json:"share_class"`
	SharesHeld int    `json:"shares_held"`
}

// ShareClass describes one authorized class of shares.
type ShareClass struct {
	ClassName    string `json:"class_name"`
	VotingRights bool   `json:"voting_rights"`
	Authorized   string `json:"authorized"`
	Issued       int    `json:"issued,omitempty"`
}

// Event is one row of an entity's filing history.
type Event struct {
	Type string `json:"type"`
	Date string `json:"date"`
}

// Entity is a parsed corporate registry profile report.
type Entity struct {
	EntityNumber      string        `json:"entity_number,omitempty"`
	EntityName        string        `json:"entity_name,omitempty"`
	ReportDate        string        `json:"report_date,omitempty"`
	EntityType        string        `json:"entity_type,omitempty"`
	EntitySubtype     string        `json:"entity_subtype,omitempty"`
	Status            string        `json:"status,omitempty"`
	IncorporationDate string        `json:"incorporation_date,omitempty"`
	AnnualReturnDue   string        `json:"annual_return_due,omitempty"`
	NatureOfBusiness  string        `json:"nature_of_business,omitempty"`
	RegisteredAddress string        `json:"registered_address,omitempty"`
	MailingAddress    string        `json:"mailing_address,omitempty"`
	Directors         []Person      `json:"directors"`
	Officers          []Person      `json:"officers"`
	Shareholders      []Shareholder `json:"shareholders"`
	ShareStructure    []ShareClass  `json:"share_structure"`
	EventHistory      []Event       `json:"event_history"`
}

var (
	entityNumberRe = regexp.MustCompile(`EntityNumber:\s*(\S+)`)
	entityNameRe   = regexp.MustCompile(`EntityName:\s*(.+?)\s+ReportDate:`)
	reportDateRe   = regexp.MustCompile(`ReportDate:\s*(\S+)`)

	detailFields = []struct {
		re  *regexp.Regexp
		set func(*Entity, string)
	}{
		{regexp.MustCompile(`EntityType\s+(.+)`), func(e *Entity, v string) { e.EntityType = v }},
		{regexp.MustCompile(`EntitySubtype\s+(.+)`), func(e *Entity, v string) { e.EntitySubtype = v }},
		{regexp.MustCompile(`EntityStatus\s+(.+)`), func(e *Entity, v string) { e.Status = v }},
		{regexp.MustCompile(`IncorporationDate\s+(.+)`), func(e *Entity, v string) { e.IncorporationDate = v }},
		{regexp.MustCompile(`AnnualReturnDueDate\s+(.+)`), func(e *Entity, v string) { e.AnnualReturnDue = v }},
		{regexp.MustCompile(`NatureofBusiness\s+(.+)`), func(e *Entity, v string) { e.NatureOfBusiness = v }},
	}

	physicalAddressRe = regexp.MustCompile(`(?s)PhysicalAddress\s+(.+?)(?:\n|MailingAddress)`)
	mailingAddressRe  = regexp.MustCompile(`(?s)RegisteredOfficeAddresses.*?MailingAddress\s+(.+?)\n[A-Z]`)

	directorSectionRe = regexp.MustCompile(`(?s)Directors/Officers\n(.*?)(?:Shareholders|Articles|$)`)
	directorHeadRe    = regexp.MustCompile(`([A-Z][A-Z\s]+?)\((Director|Officer)\)\s+EffectiveDate:\s*(\S+)`)
	directorAddrRe    = regexp.MustCompile(`(?s)PhysicalAddress:\s*(.*?)(?:MailingAddress:|$)`)
	officeHeldRe      = regexp.MustCompile(`OfficeHeld:\s*([A-Z]+)`)

	shareholderSectionRe = regexp.MustCompile(`(?s)ShareholderName\s+MailingAddress\s+ShareClass\s+SharesHeld\n(.*?)(?:Articles|$)`)
	shareholderLineRe    = regexp.MustCompile(`^([A-Z][A-Z\s]+?)\s{2,}(.+?)\s+(CLASS[A-Z])\s+(\d+)`)
	shareholderNameRe    = regexp.MustCompile(`^[A-Z][A-Z\s]+?\s{2,}`)
	sectionKeywordRe     = regexp.MustCompile(`^(Articles|Share|Event|Class)`)

	shareSectionRe = regexp.MustCompile(`(?s)ClassName\s+VotingRights\s+AuthorizedNumber\s+NumberIssued\n(.*?)(?:EventHistory|$)`)

	eventSectionRe = regexp.MustCompile(`(?s)EventHistory\nType\s+Date\n(.*)$`)
	eventLineRe    = regexp.MustCompile(`^(.+?)\s+(\d{2}-[A-Z][a-z]{2}-\d{4})$`)

	spaceRunRe = regexp.MustCompile(`\s+`)
)

// ParseCorporateRegistry parses the extracted text of a corporate
// registry profile report into an Entity.
func ParseCorporateRegistry(text string) *Entity {
	entity := &Entity{
		Directors:      []Person{},
		Officers:       []Person{},
		Shareholders:   []Shareholder{},
		ShareStructure: []ShareClass{},
		EventHistory:   []Event{},
	}

	if m := entityNumberRe.FindStringSubmatch(text); m != nil {
		entity.EntityNumber = m[1]
	}
	if m := entityNameRe.FindStringSubmatch(text); m != nil {
		entity.EntityName = strings.TrimSpace(m[1])
	}
	if m := reportDateRe.FindStringSubmatch(text); m != nil {
		entity.ReportDate = m[1]
	}

	for _, field := range detailFields {
		if m := field.re.FindStringSubmatch(text); m != nil {
			field.set(entity, strings.TrimSpace(m[1]))
		}
	}

	if m := physicalAddressRe.FindStringSubmatch(text); m != nil {
		entity.RegisteredAddress = squash(m[1])
	}
	if m := mailingAddressRe.FindStringSubmatch(text); m != nil {
		entity.MailingAddress = squash(m[1])
	}

	parseDirectors(entity, text)
	parseShareholders(entity, text)
	parseShareStructure(entity, text)
	parseEventHistory(entity, text)

	return entity
}

func parseDirectors(entity *Entity, text string) {
	section := directorSectionRe.FindStringSubmatch(text)
	if section == nil {
		return
	}

	heads := directorHeadRe.FindAllStringSubmatchIndex(section[1], -1)
	for i, head := range heads {
		// Each entry's detail lines run to the next entry head.
		chunkEnd := len(section[1])
		if i+1 < len(heads) {
			chunkEnd = heads[i+1][0]
		}
		chunk := section[1][head[1]:chunkEnd]

		person := Person{
			Name:          TitleCase(strings.TrimSpace(section[1][head[2]:head[3]])),
			Role:          section[1][head[4]:head[5]],
			EffectiveDate: section[1][head[6]:head[7]],
		}
		if a := directorAddrRe.FindStringSubmatch(chunk); a != nil {
			person.Address = squash(a[1])
		}
		if o := officeHeldRe.FindStringSubmatch(chunk); o != nil {
			person.Title = o[1]
		}

		if person.Role == "Director" {
			entity.Directors = append(entity.Directors, person)
		} else {
			entity.Officers = append(entity.Officers, person)
		}
	}
}

func parseShareholders(entity *Entity, text string) {
	section := shareholderSectionRe.FindStringSubmatch(text)
	if section == nil {
		return
	}

	var lines []string
	for _, line := range strings.Split(section[1], "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}

	for i := 0; i < len(lines); i++ {
		m := shareholderLineRe.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}

		address := strings.TrimSpace(m[2])
		// Addresses can wrap onto the next line.
		if i+1 < len(lines) && !shareholderNameRe.MatchString(lines[i+1]) && !sectionKeywordRe.MatchString(lines[i+1]) {
			address += " " + lines[i+1]
			i++
		}

		shares, _ := strconv.Atoi(m[4])
		entity.Shareholders = append(entity.Shareholders, Shareholder{
			Name:       TitleCase(strings.TrimSpace(m[1])),
			Address:    address,
			ShareClass: m[3],
			SharesHeld: shares,
		})
	}
}

func parseShareStructure(entity *Entity, text string) {
	section := shareSectionRe.FindStringSubmatch(text)
	if section == nil {
		return
	}

	for _, line := range strings.Split(section[1], "\n") {
		parts := strings.Fields(line)
		if len(parts) < 3 || !strings.HasPrefix(parts[0], "CLASS") {
			continue
		}

		class := ShareClass{
			ClassName:    parts[0],
			VotingRights: parts[1] == "Yes",
			Authorized:   parts[2],
		}
		if len(parts) > 3 {
			if issued, err := strconv.Atoi(parts[3]); err == nil {
				class.Issued = issued
			}
		}
		entity.ShareStructure = append(entity.ShareStructure, class)
	}
}

func parseEventHistory(entity *Entity, text string) {
	section := eventSectionRe.FindStringSubmatch(text)
	if section == nil {
		return
	}

	for _, line := range strings.Split(section[1], "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := eventLineRe.FindStringSubmatch(line); m != nil {
			entity.EventHistory = append(entity.EventHistory, Event{
				Type: strings.TrimSpace(m[1]),
				Date: m[2],
			})
		}
	}
}

// TitleCase converts an ALL CAPS registry name to title case.
func TitleCase(name string) string {
	words := strings.Fields(strings.ToLower(name))
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

func squash(s string) string {
	return strings.TrimSpace(spaceRunRe.ReplaceAllString(s, " "))
}
