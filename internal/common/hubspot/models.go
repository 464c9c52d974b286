package hubspot

// Object types of the CRM v3 API.
const (
	ObjectContacts = "contacts"
	ObjectDeals    = "deals"
	ObjectTickets  = "tickets"
)

// HUBSPOT_DEFINED association type ids.
const (
	AssociationCategoryDefined = "HUBSPOT_DEFINED"

	AssocDealToContact   = 3
	AssocTicketToContact = 16
	AssocTicketToDeal    = 28
)

// TokenResponse holds the response from the OAuth token endpoint.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

type Filter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value"`
}

type FilterGroup struct {
	Filters []Filter `json:"filters"`
}

type SearchRequest struct {
	FilterGroups []FilterGroup `json:"filterGroups"`
	Properties   []string      `json:"properties,omitempty"`
	Limit        int           `json:"limit"`
}

// EqualsSearch builds a single-filter EQ search returning at most one record.
func EqualsSearch(property, value string, properties ...string) SearchRequest {
	return SearchRequest{
		FilterGroups: []FilterGroup{{
			Filters: []Filter{{PropertyName: property, Operator: "EQ", Value: value}},
		}},
		Properties: properties,
		Limit:      1,
	}
}

type AssociationType struct {
	AssociationCategory string `json:"associationCategory"`
	AssociationTypeID   int    `json:"associationTypeId"`
}

type AssociationTarget struct {
	ID string `json:"id"`
}

type Association struct {
	To    AssociationTarget `json:"to"`
	Types []AssociationType `json:"types"`
}

// NewAssociation links to the record id with a HUBSPOT_DEFINED type.
func NewAssociation(id string, typeID int) Association {
	return Association{
		To: AssociationTarget{ID: id},
		Types: []AssociationType{{
			AssociationCategory: AssociationCategoryDefined,
			AssociationTypeID:   typeID,
		}},
	}
}

// ObjectInput is the body of create and update calls.
type ObjectInput struct {
	Properties   map[string]string `json:"properties"`
	Associations []Association     `json:"associations,omitempty"`
}

// Object is a CRM record as returned by the API.
type Object struct {
	ID         string                 `json:"id"`
	Properties map[string]interface{} `json:"properties"`
	CreatedAt  string                 `json:"createdAt,omitempty"`
	UpdatedAt  string                 `json:"updatedAt,omitempty"`
	Archived   bool                   `json:"archived"`
}

type SearchResponse struct {
	Total   int      `json:"total"`
	Results []Object `json:"results"`
}

// ListResponse keeps results undecoded so they pass through unchanged.
type ListResponse struct {
	Results []map[string]interface{} `json:"results"`
}
