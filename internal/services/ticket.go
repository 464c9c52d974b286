package services

import (
	"context"

	apperrors "crm-gateway/internal/common/errors"
	"crm-gateway/internal/common/hubspot"
	"crm-gateway/internal/models"
)

type TicketService struct {
	objects objectClient
}

func NewTicketService(deps ServiceDependencies) *TicketService {
	return &TicketService{objects: newObjectClient(hubspot.ObjectTickets, deps)}
}

// Create files a ticket associated with its contact and any listed deals.
// Tickets have no natural key, so every call creates a new record.
func (s *TicketService) Create(ctx context.Context, req models.TicketRequest) (*hubspot.Object, error) {
	if req.ContactID == "" {
		return nil, apperrors.NewValidationError(map[string]string{
			"contact_id": "contact_id is required",
		})
	}

	associations := []hubspot.Association{
		hubspot.NewAssociation(req.ContactID, hubspot.AssocTicketToContact),
	}
	for _, dealID := range req.DealIDs {
		if dealID == "" {
			continue
		}
		associations = append(associations, hubspot.NewAssociation(dealID, hubspot.AssocTicketToDeal))
	}

	ticket, err := s.objects.create(ctx, hubspot.ObjectInput{
		Properties: map[string]string{
			"subject":            req.Subject,
			"content":            req.Description,
			"hs_ticket_category": req.Category,
			"hs_pipeline":        req.Pipeline,
			"hs_ticket_priority": req.Priority,
			"hs_pipeline_stage":  req.Stage,
		},
		Associations: associations,
	})
	if err != nil {
		return nil, err
	}

	s.objects.log.Info("Ticket created", map[string]interface{}{
		"ticketId":  ticket.ID,
		"contactId": req.ContactID,
		"deals":     len(req.DealIDs),
	})
	return ticket, nil
}

func (s *TicketService) GetRecent(ctx context.Context, page, pageSize int) ([]map[string]interface{}, error) {
	return s.objects.recent(ctx, page, pageSize)
}
