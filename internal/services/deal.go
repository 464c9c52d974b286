package services

import (
	"context"
	"strconv"

	"crm-gateway/internal/common/hubspot"
	"crm-gateway/internal/models"
)

type DealService struct {
	objects  objectClient
	contacts *ContactService
}

func NewDealService(deps ServiceDependencies, contacts *ContactService) *DealService {
	return &DealService{
		objects:  newObjectClient(hubspot.ObjectDeals, deps),
		contacts: contacts,
	}
}

// CreateOrUpdate upserts a deal keyed by dealname. The deal is linked to the contact
// given by contact_id or, failing that, the contact found by email.
func (s *DealService) CreateOrUpdate(ctx context.Context, req models.DealRequest) (*hubspot.Object, error) {
	contactID := req.ContactID
	if contactID == "" && req.Email != "" {
		contact, err := s.contacts.FindByEmail(ctx, req.Email)
		if err != nil {
			return nil, err
		}
		if contact != nil {
			contactID = contact.ID
		}
	}

	properties := map[string]string{
		"dealname":  req.DealName,
		"amount":    strconv.FormatFloat(req.Amount, 'f', -1, 64),
		"dealstage": req.DealStage,
	}
	if req.Pipeline != "" {
		properties["pipeline"] = req.Pipeline
	}

	existing, err := s.objects.findBy(ctx, "dealname", req.DealName)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		s.objects.log.Info("Updating existing deal", map[string]interface{}{
			"dealId": existing.ID,
		})
		deal, err := s.objects.update(ctx, existing.ID, hubspot.ObjectInput{Properties: properties})
		if err != nil {
			return nil, err
		}
		if contactID != "" {
			if err := s.objects.associateDefault(ctx, existing.ID, hubspot.ObjectContacts, contactID); err != nil {
				return nil, err
			}
		}
		return deal, nil
	}

	input := hubspot.ObjectInput{Properties: properties}
	if contactID != "" {
		input.Associations = []hubspot.Association{
			hubspot.NewAssociation(contactID, hubspot.AssocDealToContact),
		}
	} else {
		s.objects.log.Warn("Creating deal without contact association", map[string]interface{}{
			"dealname": req.DealName,
		})
	}

	deal, err := s.objects.create(ctx, input)
	if err != nil {
		return nil, err
	}
	s.objects.log.Info("Deal created", map[string]interface{}{
		"dealId":    deal.ID,
		"contactId": contactID,
	})
	return deal, nil
}

func (s *DealService) GetRecent(ctx context.Context, page, pageSize int) ([]map[string]interface{}, error) {
	return s.objects.recent(ctx, page, pageSize)
}
