package validators

import (
	"crm-gateway/internal/common/validation"
)

const dealIDsMessage = "deal_ids must be an array of record ids"

// dealIDsSchema describes the optional deal_ids list: an array of string or numeric ids.
var dealIDsSchema = validation.JSONSchema{
	Type: "object",
	Properties: map[string]validation.Property{
		"deal_ids": {
			Type:  "array",
			Items: &validation.Property{Type: []string{"string", "integer"}},
		},
	},
}

// Ticket validates a create_ticket payload. contact_id is enforced by the ticket
// service so the field can be reported without touching the CRM.
func Ticket(data map[string]interface{}) validation.Errors {
	errs := validation.New(data).
		Required("subject", "description", "category", "pipeline", "hs_ticket_priority", "hs_pipeline_stage").
		Length("subject", 3, 255).
		Length("description", 3, 5000).
		Length("category", 1, 255).
		Length("pipeline", 1, 255).
		Length("hs_ticket_priority", 1, 255).
		Length("hs_pipeline_stage", 1, 255).
		Custom("contact_id", isIdentifier, "contact_id must be a string or a whole number").
		Errors()

	if ids, ok := data["deal_ids"]; ok && ids != nil {
		result, err := validation.ValidateDocument(map[string]interface{}{"deal_ids": ids}, dealIDsSchema)
		if err != nil {
			errs.Add("deal_ids", dealIDsMessage)
			return errs
		}
		result.Merge(errs, func(string) string { return dealIDsMessage })
	}

	return errs
}
