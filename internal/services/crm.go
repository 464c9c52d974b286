package services

import (
	"context"
	"fmt"
	"net/http"

	apperrors "crm-gateway/internal/common/errors"
	"crm-gateway/internal/common/hubspot"
	"crm-gateway/internal/common/logger"
	"crm-gateway/internal/common/observability"
)

// CRM is the subset of the HubSpot client used by the entity services.
type CRM interface {
	MakeRequest(ctx context.Context, method, path string, body interface{}) (*hubspot.Response, error)
	HandleRateLimit(ctx context.Context, resp *hubspot.Response, attempt int) (bool, error)
}

type ServiceDependencies struct {
	CRM           CRM
	Logger        logger.Logger
	Observability *observability.Observability
	// RateLimitRetries is how many times a 429 is retried before it is surfaced.
	RateLimitRetries int
}

// objectClient performs CRM calls for a single object type.
type objectClient struct {
	objectType string
	crm        CRM
	log        logger.Logger
	obs        *observability.Observability
	retries    int
}

func newObjectClient(objectType string, deps ServiceDependencies) objectClient {
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return objectClient{
		objectType: objectType,
		crm:        deps.CRM,
		log:        log.WithFields(map[string]interface{}{"objectType": objectType}),
		obs:        deps.Observability,
		retries:    deps.RateLimitRetries,
	}
}

func (o objectClient) collectionPath() string {
	return fmt.Sprintf("/crm/v3/objects/%s", o.objectType)
}

func (o objectClient) objectPath(id string) string {
	return fmt.Sprintf("/crm/v3/objects/%s/%s", o.objectType, id)
}

// call performs the request, retrying 429s up to the configured limit. Non-2xx
// responses are returned as RemoteAPIError.
func (o objectClient) call(ctx context.Context, operation, method, path string, body interface{}) (*hubspot.Response, error) {
	for attempt := 0; ; attempt++ {
		resp, err := o.crm.MakeRequest(ctx, method, path, body)
		if err != nil {
			o.log.WithError(err).Warn("CRM request did not complete", map[string]interface{}{
				"operation": operation,
			})
			return nil, err
		}
		if resp.IsSuccess() {
			return resp, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < o.retries {
			retry, err := o.crm.HandleRateLimit(ctx, resp, attempt)
			if err != nil {
				return nil, err
			}
			if retry {
				continue
			}
		}

		o.log.Error("CRM request failed", map[string]interface{}{
			"operation": operation,
			"status":    resp.StatusCode,
			"body":      string(resp.Body),
		})
		return nil, apperrors.NewRemoteAPIError(operation, resp.StatusCode, string(resp.Body))
	}
}

// findBy returns the first record whose property equals value, or nil.
func (o objectClient) findBy(ctx context.Context, property, value string) (*hubspot.Object, error) {
	resp, err := o.call(ctx, "search "+o.objectType, http.MethodPost, o.collectionPath()+"/search",
		hubspot.EqualsSearch(property, value, property))
	if err != nil {
		return nil, err
	}

	var result hubspot.SearchResponse
	if err := resp.Decode(&result); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if len(result.Results) == 0 {
		return nil, nil
	}
	return &result.Results[0], nil
}

func (o objectClient) create(ctx context.Context, input hubspot.ObjectInput) (*hubspot.Object, error) {
	resp, err := o.call(ctx, "create "+o.objectType, http.MethodPost, o.collectionPath(), input)
	if err != nil {
		return nil, err
	}
	o.obs.RecordUpsert(ctx, o.objectType, "created")
	return decodeObject(resp)
}

func (o objectClient) update(ctx context.Context, id string, input hubspot.ObjectInput) (*hubspot.Object, error) {
	resp, err := o.call(ctx, "update "+o.objectType, http.MethodPatch, o.objectPath(id), input)
	if err != nil {
		return nil, err
	}
	o.obs.RecordUpsert(ctx, o.objectType, "updated")
	return decodeObject(resp)
}

// associateDefault links the record to another object with the default association type.
func (o objectClient) associateDefault(ctx context.Context, id, toObjectType, toID string) error {
	path := fmt.Sprintf("/crm/v4/objects/%s/%s/associations/default/%s/%s", o.objectType, id, toObjectType, toID)
	_, err := o.call(ctx, "associate "+o.objectType, http.MethodPut, path, nil)
	return err
}

// recent lists one page of records. after is the absolute offset page*pageSize.
func (o objectClient) recent(ctx context.Context, page, pageSize int) ([]map[string]interface{}, error) {
	path := fmt.Sprintf("%s?limit=%d&after=%d", o.collectionPath(), pageSize, page*pageSize)
	resp, err := o.call(ctx, "list "+o.objectType, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var list hubspot.ListResponse
	if err := resp.Decode(&list); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if list.Results == nil {
		list.Results = []map[string]interface{}{}
	}
	return list.Results, nil
}

func decodeObject(resp *hubspot.Response) (*hubspot.Object, error) {
	var obj hubspot.Object
	if err := resp.Decode(&obj); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &obj, nil
}
