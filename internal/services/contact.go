package services

import (
	"context"

	"crm-gateway/internal/common/hubspot"
	"crm-gateway/internal/models"
)

type ContactService struct {
	objects objectClient
}

func NewContactService(deps ServiceDependencies) *ContactService {
	return &ContactService{objects: newObjectClient(hubspot.ObjectContacts, deps)}
}

// CreateOrUpdate upserts a contact keyed by email.
func (s *ContactService) CreateOrUpdate(ctx context.Context, req models.ContactRequest) (*hubspot.Object, error) {
	input := hubspot.ObjectInput{Properties: map[string]string{
		"email":     req.Email,
		"firstname": req.FirstName,
		"lastname":  req.LastName,
		"phone":     req.Phone,
	}}

	existing, err := s.objects.findBy(ctx, "email", req.Email)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		s.objects.log.Info("Updating existing contact", map[string]interface{}{
			"contactId": existing.ID,
		})
		return s.objects.update(ctx, existing.ID, input)
	}

	contact, err := s.objects.create(ctx, input)
	if err != nil {
		return nil, err
	}
	s.objects.log.Info("Contact created", map[string]interface{}{
		"contactId": contact.ID,
	})
	return contact, nil
}

// FindByEmail returns the contact with the given email, or nil.
func (s *ContactService) FindByEmail(ctx context.Context, email string) (*hubspot.Object, error) {
	return s.objects.findBy(ctx, "email", email)
}

func (s *ContactService) GetRecent(ctx context.Context, page, pageSize int) ([]map[string]interface{}, error) {
	return s.objects.recent(ctx, page, pageSize)
}
