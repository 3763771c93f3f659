package registry

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleProfile = `Corporate Registry Profile Report
EntityNumber: 102118427
EntityName: PRAIRIE SKY HOLDINGS LTD. ReportDate: 15-Jun-2025
EntityType Business Corporation
EntitySubtype Saskatchewan Corporation
EntityStatus Active
IncorporationDate 28-Mar-2022
AnnualReturnDueDate 31-Mar-2026
NatureofBusiness Real estate holding and development
RegisteredOfficeAddresses
PhysicalAddress 1201 Broadway Avenue, Saskatoon, SK S7N 1B4
MailingAddress PO Box 2250, Saskatoon, SK S7K 3V7
Directors/Officers
TRAVIS BATTING(Director) EffectiveDate: 28-Mar-2022
MARGARET HOLT(Officer) EffectiveDate: 28-Mar-2022 OfficeHeld: PRESIDENT
Shareholders
ShareholderName  MailingAddress  ShareClass  SharesHeld
TRAVIS BATTING  1201 Broadway Avenue Saskatoon SK CLASSA 100
Articles of Incorporation
ClassName  VotingRights  AuthorizedNumber  NumberIssued
CLASSA Yes Unlimited 100
CLASSB No Unlimited 0
EventHistory
Type Date
Incorporation 28-Mar-2022
Annual Return Filed 02-Apr-2024
`

func TestParseCorporateRegistry(t *testing.T) {
	entity := ParseCorporateRegistry(sampleProfile)

	assert.Equal(t, "102118427", entity.EntityNumber)
	assert.Equal(t, "PRAIRIE SKY HOLDINGS LTD.", entity.EntityName)
	assert.Equal(t, "15-Jun-2025", entity.ReportDate)
	assert.Equal(t, "Business Corporation", entity.EntityType)
	assert.Equal(t, "Active", entity.Status)
	assert.Equal(t, "28-Mar-2022", entity.IncorporationDate)
	assert.Equal(t, "Real estate holding and development", entity.NatureOfBusiness)
	assert.Equal(t, "1201 Broadway Avenue, Saskatoon, SK S7N 1B4", entity.RegisteredAddress)

	require.Len(t, entity.Directors, 1)
	assert.Equal(t, "Travis Batting", entity.Directors[0].Name)
	assert.Equal(t, "28-Mar-2022", entity.Directors[0].EffectiveDate)

	require.Len(t, entity.Officers, 1)
	assert.Equal(t, "Margaret Holt", entity.Officers[0].Name)
	assert.Equal(t, "PRESIDENT", entity.Officers[0].Title)

	require.Len(t, entity.Shareholders, 1)
	assert.Equal(t, "Travis Batting", entity.Shareholders[0].Name)
	assert.Equal(t, "CLASSA", entity.Shareholders[0].ShareClass)
	assert.Equal(t, 100, entity.Shareholders[0].SharesHeld)

	require.Len(t, entity.ShareStructure, 2)
	assert.True(t, entity.ShareStructure[0].VotingRights)
	assert.Equal(t, 100, entity.ShareStructure[0].Issued)
	assert.False(t, entity.ShareStructure[1].VotingRights)

	require.Len(t, entity.EventHistory, 2)
	assert.Equal(t, "Annual Return Filed", entity.EventHistory[1].Type)
	assert.Equal(t, "02-Apr-2024", entity.EventHistory[1].Date)
}

func TestParseCorporateRegistryEmptyText(t *testing.T) {
	entity := ParseCorporateRegistry("")
	assert.Empty(t, entity.EntityNumber)
	assert.Empty(t, entity.Directors)
	assert.Empty(t, entity.EventHistory)
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Travis Batting", TitleCase("TRAVIS BATTING"))
	assert.Equal(t, "Margaret Holt", TitleCase("  MARGARET   HOLT "))
}

const sampleTransferCSV = `Roll #,Civic_Address,Vendor,Purchaser,Sales_Date,Sales_Price,PPT,PPT_Descriptor
475310,1201 Broadway Ave,PRAIRIE SKY HOLDINGS LTD.,MERIDIAN DEVELOPMENT CORP.,2025-05-12,"2,450,000",COM,Commercial
475311,450 2nd Ave N,JOHN SMITH,JANE DOE,5/20/2025,385000,RES,Residential
,,,,,,,
475312,99 Idylwyld Dr,"ACME
HOLDINGS LTD.",102118427 SASKATCHEWAN LTD.,2025-06-01,,COM,Commercial
`

func TestParseTransferList(t *testing.T) {
	records, err := ParseTransferList(strings.NewReader(sampleTransferCSV))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "475310", records[0].RollNumber)
	assert.Equal(t, "PRAIRIE SKY HOLDINGS LTD.", records[0].Vendor)
	assert.Equal(t, 2450000.0, records[0].SalesPrice)
	assert.Equal(t, "2025-05-12", records[0].SalesDate)

	assert.Equal(t, "2025-05-20", records[1].SalesDate)
	assert.Equal(t, 385000.0, records[1].SalesPrice)

	// Embedded newline in a quoted name collapses to one space.
	assert.Equal(t, "ACME HOLDINGS LTD.", records[2].Vendor)
	assert.Zero(t, records[2].SalesPrice)
}

func TestParseTransferListBadPrice(t *testing.T) {
	csv := "Roll #,Civic_Address,Vendor,Purchaser,Sales_Date,Sales_Price,PPT,PPT_Descriptor\n" +
		"1,addr,v,p,2025-01-01,not-a-number,COM,Commercial\n"
	_, err := ParseTransferList(strings.NewReader(csv))
	assert.Error(t, err)
}

const samplePermitReport = `Building Permits Issued
First Day: June 9, 2025
Last Day: June 13, 2025
COMM-2025-01482 6/11/2025
Meridian Development Corp.
1201 Broadway Ave, Saskatoon, SK
Commercial Building
Interior fit-out of office space
Alteration/Renovation
$1,250,000
SFD-2025-00934 6/12/2025
Homes By Design Ltd.
12 Willow Grove Lane, Saskatoon, SK
$420,000
COMM-2025-01490 6/13/2025
Prairie Sky Holdings Ltd.
450 2nd Ave N, Saskatoon, SK
Commercial Building
Foundation for retail development
New
$310,000
`

func TestParseBuildingPermits(t *testing.T) {
	permits := ParseBuildingPermits(samplePermitReport, DefaultMinPermitValue)

	// SFD permit excluded by prefix, second COMM permit by value.
	require.Len(t, permits, 1)
	p := permits[0]
	assert.Equal(t, "COMM-2025-01482", p.PermitNumber)
	assert.Equal(t, "2025-06-11", p.IssueDate)
	assert.Equal(t, 1250000.0, p.Value)
	assert.Equal(t, "Meridian Development Corp.", p.Owner)
	assert.Contains(t, p.Address, "1201 Broadway Ave")
	assert.Equal(t, "Interior fit-out of office space - Alteration/Renovation", p.Scope)
	assert.Equal(t, "Alteration/Renovation", p.WorkType)
}

func TestParseBuildingPermitsLowerThreshold(t *testing.T) {
	permits := ParseBuildingPermits(samplePermitReport, 300_000)
	require.Len(t, permits, 2)
	assert.Equal(t, "COMM-2025-01490", permits[1].PermitNumber)
	assert.Equal(t, "New Construction", permits[1].WorkType)
}

func TestDedupOwner(t *testing.T) {
	assert.Equal(t, "Wright Construction", dedupOwner("Wright Construction Wright Co"))
	assert.Equal(t, "Prairie Sky Holdings Ltd.", dedupOwner("Prairie Sky Holdings Ltd."))
}

func TestCrossReference(t *testing.T) {
	entities := []*Entity{
		{EntityName: "PRAIRIE SKY HOLDINGS LTD.", EntityNumber: "102118427"},
		{EntityName: "NORTHERN LIGHTS CATERING INC."},
	}
	transfers := []Transfer{
		{Vendor: "Prairie Sky Holdings Inc", Purchaser: "Meridian Development Corp."},
	}
	permits := []Permit{
		{Owner: "Meridian Development Corp.", Value: 1_250_000},
	}

	result := CrossReference(entities, transfers, permits, 0.80)

	assert.Equal(t, 2, result.RegistryCompanies)
	assert.Equal(t, 2, result.TransferCompanies)
	assert.Equal(t, 1, result.PermitCompanies)

	var registryHit, transferHit bool
	for _, link := range result.Links {
		if link.RegistryEntity == "PRAIRIE SKY HOLDINGS LTD." && link.MatchedSource == "transfer" {
			registryHit = true
			assert.Equal(t, "102118427", link.EntityNumber)
		}
		if link.TransferEntity == "Meridian Development Corp." && link.MatchedSource == "permit" {
			transferHit = true
			assert.Equal(t, 1.0, link.Score)
		}
	}
	assert.True(t, registryHit)
	assert.True(t, transferHit)
}
