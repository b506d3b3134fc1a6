package model

import "strings"

// DefaultProfileID is the id legacy single-profile data is migrated under
const DefaultProfileID = "default"

// StandardTerm defines something to extract. Name, not ID, is the join key
// used by extraction results and benchmark data.
type StandardTerm struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// BenchmarkProfile is a named set of market-standard values keyed by term name
type BenchmarkProfile struct {
	ID   string            `json:"id"`
	Name string            `json:"name"`
	Data map[string]string `json:"data"`
}

// Clone deep-copies the profile data
func (p BenchmarkProfile) Clone() BenchmarkProfile {
	out := p
	out.Data = make(map[string]string, len(p.Data))
	for k, v := range p.Data {
		out.Data[k] = v
	}
	return out
}

// AppSettings is the singleton settings aggregate
type AppSettings struct {
	Terms             []StandardTerm     `json:"terms"`
	BenchmarkProfiles []BenchmarkProfile `json:"benchmarkProfiles"`
	ActiveProfileID   string             `json:"activeProfileId"`
}

// Clone deep-copies terms and profiles
func (s AppSettings) Clone() AppSettings {
	out := AppSettings{
		Terms:           append([]StandardTerm(nil), s.Terms...),
		ActiveProfileID: s.ActiveProfileID,
	}
	out.BenchmarkProfiles = make([]BenchmarkProfile, len(s.BenchmarkProfiles))
	for i, p := range s.BenchmarkProfiles {
		out.BenchmarkProfiles[i] = p.Clone()
	}
	return out
}

// Profile finds a profile by id
func (s AppSettings) Profile(id string) (BenchmarkProfile, bool) {
	for _, p := range s.BenchmarkProfiles {
		if p.ID == id {
			return p, true
		}
	}
	return BenchmarkProfile{}, false
}

// Term finds a term by name, case-insensitively
func (s AppSettings) Term(name string) (StandardTerm, bool) {
	for _, t := range s.Terms {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return StandardTerm{}, false
}

// DefaultTerms is the built-in term list used when no settings exist yet
func DefaultTerms() []StandardTerm {
	return []StandardTerm{
		{ID: "t-borrower", Name: BorrowerTerm, Description: "Legal name of the borrower or parent company", Category: "General"},
		{ID: "t-facility", Name: "Facility Amount", Description: "Total committed amount of all facilities", Category: "General"},
		{ID: "t-maturity", Name: "Maturity Date", Description: "Final maturity date of the term loan", Category: "General"},
		{ID: "t-margin", Name: "Interest Rate Margin", Description: "Applicable margin over the reference rate", Category: "Pricing"},
		{ID: "t-commitment", Name: "Commitment Fee", Description: "Fee on undrawn commitments", Category: "Pricing"},
		{ID: "t-leverage", Name: "Max Total Net Leverage", Description: "Maximum total net leverage ratio covenant", Category: "Covenants"},
		{ID: "t-coverage", Name: "Min Interest Coverage", Description: "Minimum interest coverage ratio covenant", Category: "Covenants"},
		{ID: "t-capex", Name: "Capex Limit", Description: "Annual capital expenditure limit", Category: "Covenants"},
		{ID: "t-rp", Name: "Restricted Payments Basket", Description: "General basket for dividends and other restricted payments", Category: "Covenants"},
		{ID: "t-coc", Name: "Change of Control", Description: "Definition and consequence of a change of control", Category: "Legal"},
		{ID: "t-law", Name: "Governing Law", Description: "Jurisdiction whose law governs the agreement", Category: "Legal"},
	}
}

// DefaultProfiles are the built-in benchmark profiles
func DefaultProfiles() []BenchmarkProfile {
	return []BenchmarkProfile{
		{
			ID:   DefaultProfileID,
			Name: "Market Standard",
			Data: map[string]string{
				"Interest Rate Margin":       "SOFR + 3.25%",
				"Commitment Fee":             "0.375%",
				"Max Total Net Leverage":     "4.50x",
				"Min Interest Coverage":      "3.00x",
				"Capex Limit":                "$25,000,000",
				"Restricted Payments Basket": "$10,000,000",
				"Governing Law":              "New York",
			},
		},
		{
			ID:   "conservative",
			Name: "Conservative Lender",
			Data: map[string]string{
				"Interest Rate Margin":       "SOFR + 4.00%",
				"Commitment Fee":             "0.50%",
				"Max Total Net Leverage":     "3.50x",
				"Min Interest Coverage":      "3.50x",
				"Capex Limit":                "$15,000,000",
				"Restricted Payments Basket": "$5,000,000",
				"Governing Law":              "New York",
			},
		},
	}
}

// DefaultSettings returns fresh built-in settings
func DefaultSettings() AppSettings {
	return AppSettings{
		Terms:             DefaultTerms(),
		BenchmarkProfiles: DefaultProfiles(),
		ActiveProfileID:   DefaultProfileID,
	}
}
