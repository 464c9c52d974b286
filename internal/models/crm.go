package models

type ContactRequest struct {
	Email     string `mapstructure:"email"`
	FirstName string `mapstructure:"firstname"`
	LastName  string `mapstructure:"lastname"`
	Phone     string `mapstructure:"phone"`
}

type DealRequest struct {
	DealName  string  `mapstructure:"dealname"`
	Amount    float64 `mapstructure:"amount"`
	DealStage string  `mapstructure:"dealstage"`
	Email     string  `mapstructure:"email"`
	Pipeline  string  `mapstructure:"pipeline"`
	ContactID string  `mapstructure:"contact_id"`
}

type TicketRequest struct {
	Subject     string   `mapstructure:"subject"`
	Description string   `mapstructure:"description"`
	Category    string   `mapstructure:"category"`
	Pipeline    string   `mapstructure:"pipeline"`
	Priority    string   `mapstructure:"hs_ticket_priority"`
	Stage       string   `mapstructure:"hs_pipeline_stage"`
	ContactID   string   `mapstructure:"contact_id"`
	DealIDs     []string `mapstructure:"deal_ids"`
}

// RecentObjects is the body of the recent-objects listing.
type RecentObjects struct {
	Contacts []map[string]interface{} `json:"contacts"`
	Deals    []map[string]interface{} `json:"deals"`
	Tickets  []map[string]interface{} `json:"tickets"`
}
