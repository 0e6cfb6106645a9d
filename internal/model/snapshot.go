package model

// Snapshot is a batch of organization data written in one transaction.
// Existing rows with the same id are replaced.
type Snapshot struct {
	Users             []User
	People            []Person
	OneOnOnes         []OneOnOne
	Initiatives       []Initiative
	InitiativeOwners  []InitiativeOwner
	CheckIns          []CheckIn
	FeedbackCampaigns []FeedbackCampaign
	Rules             []ToleranceRule
}
