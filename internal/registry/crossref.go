package registry

import (
	"sort"

	"github.com/landmark-intel/docpatch/pkg/entitymatch"
)

// Link records one matched pair of entity names across sources.
type Link struct {
	RegistryEntity string  `json:"registry_entity,omitempty"`
	EntityNumber   string  `json:"entity_number,omitempty"`
	TransferEntity string  `json:"transfer_entity,omitempty"`
	MatchedName    string  `json:"matched_name"`
	MatchedSource  string  `json:"matched_source"`
	Score          float64 `json:"score"`
}

// CrossRefResult summarizes entity links found across the three feeds.
type CrossRefResult struct {
	Links             []Link `json:"entity_links"`
	RegistryCompanies int    `json:"registry_companies"`
	TransferCompanies int    `json:"transfer_companies"`
	PermitCompanies   int    `json:"permit_companies"`
}

// CrossReference links registry entities to transfer-list parties and
// permit owners, and transfer parties to permit owners, by fuzzy
// company-name matching at the given threshold.
func CrossReference(entities []*Entity, transfers []Transfer, permits []Permit, threshold float64) *CrossRefResult {
	transferCompanies := uniqueCandidates(transferParties(transfers), "transfer")
	permitCompanies := uniqueCandidates(permitOwners(permits), "permit")
	external := append(append([]entitymatch.Candidate{}, transferCompanies...), permitCompanies...)

	result := &CrossRefResult{
		Links:             []Link{},
		RegistryCompanies: len(entities),
		TransferCompanies: len(transferCompanies),
		PermitCompanies:   len(permitCompanies),
	}

	for _, entity := range entities {
		if entity.EntityName == "" {
			continue
		}
		for _, m := range entitymatch.MatchCompanies(entity.EntityName, external, threshold) {
			result.Links = append(result.Links, Link{
				RegistryEntity: entity.EntityName,
				EntityNumber:   entity.EntityNumber,
				MatchedName:    m.Name,
				MatchedSource:  m.Source,
				Score:          m.Score,
			})
		}
	}

	for _, tc := range transferCompanies {
		for _, m := range entitymatch.MatchCompanies(tc.Name, permitCompanies, threshold) {
			result.Links = append(result.Links, Link{
				TransferEntity: tc.Name,
				MatchedName:    m.Name,
				MatchedSource:  "permit",
				Score:          m.Score,
			})
		}
	}

	return result
}

func transferParties(transfers []Transfer) []string {
	var names []string
	for _, t := range transfers {
		if t.Vendor != "" {
			names = append(names, t.Vendor)
		}
		if t.Purchaser != "" {
			names = append(names, t.Purchaser)
		}
	}
	return names
}

func permitOwners(permits []Permit) []string {
	var names []string
	for _, p := range permits {
		if p.Owner != "" {
			names = append(names, p.Owner)
		}
	}
	return names
}

// uniqueCandidates dedupes names and returns them in a stable order.
func uniqueCandidates(names []string, source string) []entitymatch.Candidate {
	seen := make(map[string]bool, len(names))
	var unique []string
	for _, name := range names {
		if !seen[name] {
			seen[name] = true
			unique = append(unique, name)
		}
	}
	sort.Strings(unique)

	candidates := make([]entitymatch.Candidate, 0, len(unique))
	for _, name := range unique {
		candidates = append(candidates, entitymatch.Candidate{Name: name, Source: source})
	}
	return candidates
}
