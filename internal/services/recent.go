package services

import (
	"context"

	"crm-gateway/internal/models"
)

// Services bundles the entity services behind the CRM routes.
type Services struct {
	Contacts *ContactService
	Deals    *DealService
	Tickets  *TicketService
}

func New(deps ServiceDependencies) *Services {
	contacts := NewContactService(deps)
	return &Services{
		Contacts: contacts,
		Deals:    NewDealService(deps, contacts),
		Tickets:  NewTicketService(deps),
	}
}

// Recent returns one page of each object type.
func (s *Services) Recent(ctx context.Context, page, pageSize int) (*models.RecentObjects, error) {
	contacts, err := s.Contacts.GetRecent(ctx, page, pageSize)
	if err != nil {
		return nil, err
	}
	deals, err := s.Deals.GetRecent(ctx, page, pageSize)
	if err != nil {
		return nil, err
	}
	tickets, err := s.Tickets.GetRecent(ctx, page, pageSize)
	if err != nil {
		return nil, err
	}
	return &models.RecentObjects{Contacts: contacts, Deals: deals, Tickets: tickets}, nil
}
