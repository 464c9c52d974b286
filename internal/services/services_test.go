package services

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	apperrors "crm-gateway/internal/common/errors"
	"crm-gateway/internal/common/hubspot"
	"crm-gateway/internal/common/logger"
	"crm-gateway/internal/models"
)

type MockCRM struct {
	mock.Mock
}

func (m *MockCRM) MakeRequest(ctx context.Context, method, path string, body interface{}) (*hubspot.Response, error) {
	args := m.Called(ctx, method, path, body)
	if r := args.Get(0); r != nil {
		return r.(*hubspot.Response), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCRM) HandleRateLimit(ctx context.Context, resp *hubspot.Response, attempt int) (bool, error) {
	args := m.Called(ctx, resp, attempt)
	return args.Bool(0), args.Error(1)
}

func jsonResponse(t *testing.T, status int, body interface{}) *hubspot.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return &hubspot.Response{StatusCode: status, Header: http.Header{}, Body: raw}
}

func searchResult(t *testing.T, ids ...string) *hubspot.Response {
	t.Helper()
	results := make([]hubspot.Object, 0, len(ids))
	for _, id := range ids {
		results = append(results, hubspot.Object{ID: id})
	}
	return jsonResponse(t, http.StatusOK, hubspot.SearchResponse{Total: len(ids), Results: results})
}

func record(t *testing.T, id string) *hubspot.Response {
	t.Helper()
	return jsonResponse(t, http.StatusOK, hubspot.Object{
		ID:         id,
		Properties: map[string]interface{}{"hs_object_id": id},
	})
}

func testDeps(t *testing.T, crm CRM) ServiceDependencies {
	return ServiceDependencies{CRM: crm, Logger: logger.NewTestLogger(t)}
}

func contactRequest() models.ContactRequest {
	return models.ContactRequest{Email: "john@example.com", FirstName: "John", LastName: "Doe", Phone: "12345678"}
}

func searchFor(property, value string) interface{} {
	return hubspot.EqualsSearch(property, value, property)
}

func TestContactService_CreatesWhenAbsent(t *testing.T) {
	crm := new(MockCRM)
	ctx := context.Background()

	crm.On("MakeRequest", ctx, http.MethodPost, "/crm/v3/objects/contacts/search", searchFor("email", "john@example.com")).
		Return(searchResult(t), nil).Once()
	crm.On("MakeRequest", ctx, http.MethodPost, "/crm/v3/objects/contacts", hubspot.ObjectInput{
		Properties: map[string]string{
			"email":     "john@example.com",
			"firstname": "John",
			"lastname":  "Doe",
			"phone":     "12345678",
		},
	}).Return(record(t, "101"), nil).Once()

	contact, err := NewContactService(testDeps(t, crm)).CreateOrUpdate(ctx, contactRequest())
	require.NoError(t, err)
	assert.Equal(t, "101", contact.ID)

	crm.AssertExpectations(t)
	crm.AssertNotCalled(t, "MakeRequest", ctx, http.MethodPatch, mock.Anything, mock.Anything)
}

func TestContactService_UpdatesFoundID(t *testing.T) {
	crm := new(MockCRM)
	ctx := context.Background()

	crm.On("MakeRequest", ctx, http.MethodPost, "/crm/v3/objects/contacts/search", mock.Anything).
		Return(searchResult(t, "555"), nil).Once()
	crm.On("MakeRequest", ctx, http.MethodPatch, "/crm/v3/objects/contacts/555", mock.AnythingOfType("hubspot.ObjectInput")).
		Return(record(t, "555"), nil).Once()

	contact, err := NewContactService(testDeps(t, crm)).CreateOrUpdate(ctx, contactRequest())
	require.NoError(t, err)
	assert.Equal(t, "555", contact.ID)

	crm.AssertExpectations(t)
	crm.AssertNotCalled(t, "MakeRequest", ctx, http.MethodPost, "/crm/v3/objects/contacts", mock.Anything)
}

func TestContactService_RemoteErrorCarriesStatusAndBody(t *testing.T) {
	crm := new(MockCRM)
	ctx := context.Background()

	crm.On("MakeRequest", ctx, http.MethodPost, "/crm/v3/objects/contacts/search", mock.Anything).
		Return(&hubspot.Response{StatusCode: http.StatusBadRequest, Body: []byte(`{"message":"bad filter"}`)}, nil)

	_, err := NewContactService(testDeps(t, crm)).CreateOrUpdate(ctx, contactRequest())
	require.Error(t, err)

	stdErr := apperrors.AsStandardError(err)
	assert.Equal(t, apperrors.ErrCodeRemoteAPIError, stdErr.Code)
	assert.Equal(t, http.StatusBadRequest, stdErr.RemoteStatus)
	assert.Equal(t, `{"message":"bad filter"}`, stdErr.RemoteBody)
	assert.Equal(t, http.StatusBadRequest, apperrors.HTTPStatus(err))
}

func TestContactService_TransportErrorPassesThrough(t *testing.T) {
	crm := new(MockCRM)
	ctx := context.Background()

	unavailable := apperrors.NewRemoteUnavailableError("POST /crm/v3/objects/contacts/search", assert.AnError)
	crm.On("MakeRequest", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil, unavailable)

	core, logs := observer.New(zap.WarnLevel)
	deps := ServiceDependencies{CRM: crm, Logger: logger.NewZapAdapter(zap.New(core))}

	_, err := NewContactService(deps).CreateOrUpdate(ctx, contactRequest())
	assert.Same(t, unavailable, err)

	entries := logs.FilterMessage("CRM request did not complete").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "contacts", fields["objectType"])
	assert.Equal(t, "search contacts", fields["operation"])
	assert.Contains(t, fields["error"], "CRM unreachable")
}

func TestRateLimit_SurfacedWithoutRetries(t *testing.T) {
	crm := new(MockCRM)
	ctx := context.Background()

	crm.On("MakeRequest", ctx, mock.Anything, mock.Anything, mock.Anything).
		Return(&hubspot.Response{StatusCode: http.StatusTooManyRequests, Header: http.Header{}}, nil).Once()

	_, err := NewContactService(testDeps(t, crm)).CreateOrUpdate(ctx, contactRequest())
	require.Error(t, err)
	assert.Equal(t, http.StatusTooManyRequests, apperrors.AsStandardError(err).RemoteStatus)
	crm.AssertNotCalled(t, "HandleRateLimit", mock.Anything, mock.Anything, mock.Anything)
}

func TestRateLimit_RetriedUpToLimit(t *testing.T) {
	crm := new(MockCRM)
	ctx := context.Background()
	limited := &hubspot.Response{StatusCode: http.StatusTooManyRequests, Header: http.Header{}}

	crm.On("MakeRequest", ctx, http.MethodPost, "/crm/v3/objects/contacts/search", mock.Anything).
		Return(limited, nil).Twice()
	crm.On("MakeRequest", ctx, http.MethodPost, "/crm/v3/objects/contacts/search", mock.Anything).
		Return(searchResult(t), nil).Once()
	crm.On("MakeRequest", ctx, http.MethodPost, "/crm/v3/objects/contacts", mock.Anything).
		Return(record(t, "9"), nil).Once()
	crm.On("HandleRateLimit", ctx, limited, 0).Return(true, nil).Once()
	crm.On("HandleRateLimit", ctx, limited, 1).Return(true, nil).Once()

	deps := testDeps(t, crm)
	deps.RateLimitRetries = 2

	contact, err := NewContactService(deps).CreateOrUpdate(ctx, contactRequest())
	require.NoError(t, err)
	assert.Equal(t, "9", contact.ID)
	crm.AssertExpectations(t)
}

func TestRateLimit_GivesUpAfterLimit(t *testing.T) {
	crm := new(MockCRM)
	ctx := context.Background()
	limited := &hubspot.Response{StatusCode: http.StatusTooManyRequests, Header: http.Header{}}

	crm.On("MakeRequest", ctx, mock.Anything, mock.Anything, mock.Anything).Return(limited, nil).Times(2)
	crm.On("HandleRateLimit", ctx, limited, 0).Return(true, nil).Once()

	deps := testDeps(t, crm)
	deps.RateLimitRetries = 1

	_, err := NewContactService(deps).CreateOrUpdate(ctx, contactRequest())
	require.Error(t, err)
	assert.Equal(t, http.StatusTooManyRequests, apperrors.AsStandardError(err).RemoteStatus)
	crm.AssertExpectations(t)
}

func TestRateLimit_CancelledWait(t *testing.T) {
	crm := new(MockCRM)
	ctx := context.Background()
	limited := &hubspot.Response{StatusCode: http.StatusTooManyRequests, Header: http.Header{}}

	crm.On("MakeRequest", ctx, mock.Anything, mock.Anything, mock.Anything).Return(limited, nil).Once()
	crm.On("HandleRateLimit", ctx, limited, 0).Return(false, context.Canceled).Once()

	deps := testDeps(t, crm)
	deps.RateLimitRetries = 3

	_, err := NewContactService(deps).CreateOrUpdate(ctx, contactRequest())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDealService_UsesPayloadContactID(t *testing.T) {
	crm := new(MockCRM)
	ctx := context.Background()

	crm.On("MakeRequest", ctx, http.MethodPost, "/crm/v3/objects/deals/search", searchFor("dealname", "Big deal")).
		Return(searchResult(t), nil).Once()
	crm.On("MakeRequest", ctx, http.MethodPost, "/crm/v3/objects/deals", hubspot.ObjectInput{
		Properties: map[string]string{
			"dealname":  "Big deal",
			"amount":    "1500.5",
			"dealstage": "appointmentscheduled",
			"pipeline":  "default",
		},
		Associations: []hubspot.Association{hubspot.NewAssociation("501", hubspot.AssocDealToContact)},
	}).Return(record(t, "701"), nil).Once()

	svc := New(testDeps(t, crm))
	deal, err := svc.Deals.CreateOrUpdate(ctx, models.DealRequest{
		DealName:  "Big deal",
		Amount:    1500.5,
		DealStage: "appointmentscheduled",
		Email:     "john@example.com",
		Pipeline:  "default",
		ContactID: "501",
	})
	require.NoError(t, err)
	assert.Equal(t, "701", deal.ID)

	crm.AssertExpectations(t)
	crm.AssertNotCalled(t, "MakeRequest", ctx, http.MethodPost, "/crm/v3/objects/contacts/search", mock.Anything)
}

func TestDealService_ResolvesContactByEmail(t *testing.T) {
	crm := new(MockCRM)
	ctx := context.Background()

	crm.On("MakeRequest", ctx, http.MethodPost, "/crm/v3/objects/contacts/search", searchFor("email", "john@example.com")).
		Return(searchResult(t, "42"), nil).Once()
	crm.On("MakeRequest", ctx, http.MethodPost, "/crm/v3/objects/deals/search", mock.Anything).
		Return(searchResult(t), nil).Once()
	crm.On("MakeRequest", ctx, http.MethodPost, "/crm/v3/objects/deals", mock.MatchedBy(func(in hubspot.ObjectInput) bool {
		return len(in.Associations) == 1 &&
			in.Associations[0].To.ID == "42" &&
			in.Associations[0].Types[0].AssociationTypeID == hubspot.AssocDealToContact &&
			in.Properties["amount"] == "0"
	})).Return(record(t, "702"), nil).Once()

	svc := New(testDeps(t, crm))
	_, err := svc.Deals.CreateOrUpdate(ctx, models.DealRequest{
		DealName:  "Small deal",
		DealStage: "qualifiedtobuy",
		Email:     "john@example.com",
	})
	require.NoError(t, err)
	crm.AssertExpectations(t)
}

func TestDealService_UpdatesExistingDeal(t *testing.T) {
	crm := new(MockCRM)
	ctx := context.Background()

	crm.On("MakeRequest", ctx, http.MethodPost, "/crm/v3/objects/deals/search", mock.Anything).
		Return(searchResult(t, "800"), nil).Once()
	crm.On("MakeRequest", ctx, http.MethodPatch, "/crm/v3/objects/deals/800", mock.MatchedBy(func(in hubspot.ObjectInput) bool {
		_, hasPipeline := in.Properties["pipeline"]
		return len(in.Associations) == 0 && !hasPipeline
	})).Return(record(t, "800"), nil).Once()
	crm.On("MakeRequest", ctx, http.MethodPut, "/crm/v4/objects/deals/800/associations/default/contacts/501", nil).
		Return(jsonResponse(t, http.StatusOK, map[string]interface{}{"status": "COMPLETE"}), nil).Once()

	svc := New(testDeps(t, crm))
	deal, err := svc.Deals.CreateOrUpdate(ctx, models.DealRequest{
		DealName:  "Big deal",
		Amount:    10,
		DealStage: "closedwon",
		Email:     "john@example.com",
		ContactID: "501",
	})
	require.NoError(t, err)
	assert.Equal(t, "800", deal.ID)
	crm.AssertExpectations(t)
}

func TestDealService_UpdateWithoutContactSkipsLink(t *testing.T) {
	crm := new(MockCRM)
	ctx := context.Background()

	crm.On("MakeRequest", ctx, http.MethodPost, "/crm/v3/objects/contacts/search", mock.Anything).
		Return(searchResult(t), nil).Once()
	crm.On("MakeRequest", ctx, http.MethodPost, "/crm/v3/objects/deals/search", mock.Anything).
		Return(searchResult(t, "800"), nil).Once()
	crm.On("MakeRequest", ctx, http.MethodPatch, "/crm/v3/objects/deals/800", mock.Anything).
		Return(record(t, "800"), nil).Once()

	svc := New(testDeps(t, crm))
	_, err := svc.Deals.CreateOrUpdate(ctx, models.DealRequest{
		DealName:  "Big deal",
		Amount:    10,
		DealStage: "closedwon",
		Email:     "nobody@example.com",
	})
	require.NoError(t, err)
	crm.AssertExpectations(t)
	crm.AssertNotCalled(t, "MakeRequest", ctx, http.MethodPut, mock.Anything, mock.Anything)
}

func TestDealService_UpdateLinkFailureIsRemoteError(t *testing.T) {
	crm := new(MockCRM)
	ctx := context.Background()

	crm.On("MakeRequest", ctx, http.MethodPost, "/crm/v3/objects/deals/search", mock.Anything).
		Return(searchResult(t, "800"), nil).Once()
	crm.On("MakeRequest", ctx, http.MethodPatch, "/crm/v3/objects/deals/800", mock.Anything).
		Return(record(t, "800"), nil).Once()
	crm.On("MakeRequest", ctx, http.MethodPut, "/crm/v4/objects/deals/800/associations/default/contacts/999", nil).
		Return(jsonResponse(t, http.StatusNotFound, map[string]interface{}{"message": "Contact not found"}), nil).Once()

	svc := New(testDeps(t, crm))
	_, err := svc.Deals.CreateOrUpdate(ctx, models.DealRequest{
		DealName:  "Big deal",
		Amount:    10,
		DealStage: "closedwon",
		ContactID: "999",
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apperrors.AsStandardError(err).RemoteStatus)
	crm.AssertExpectations(t)
}

func TestTicketService_RequiresContactID(t *testing.T) {
	crm := new(MockCRM)

	_, err := NewTicketService(testDeps(t, crm)).Create(context.Background(), models.TicketRequest{Subject: "x"})
	require.Error(t, err)

	stdErr := apperrors.AsStandardError(err)
	assert.Equal(t, apperrors.ErrCodeValidationFailed, stdErr.Code)
	assert.Equal(t, "contact_id is required", stdErr.Fields["contact_id"])
	crm.AssertNotCalled(t, "MakeRequest", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTicketService_CreateWithAssociations(t *testing.T) {
	crm := new(MockCRM)
	ctx := context.Background()

	crm.On("MakeRequest", ctx, http.MethodPost, "/crm/v3/objects/tickets", hubspot.ObjectInput{
		Properties: map[string]string{
			"subject":            "Printer broken",
			"content":            "It does not print",
			"hs_ticket_category": "PRODUCT_ISSUE",
			"hs_pipeline":        "0",
			"hs_ticket_priority": "HIGH",
			"hs_pipeline_stage":  "1",
		},
		Associations: []hubspot.Association{
			hubspot.NewAssociation("501", hubspot.AssocTicketToContact),
			hubspot.NewAssociation("701", hubspot.AssocTicketToDeal),
			hubspot.NewAssociation("702", hubspot.AssocTicketToDeal),
		},
	}).Return(record(t, "901"), nil).Once()

	ticket, err := NewTicketService(testDeps(t, crm)).Create(ctx, models.TicketRequest{
		Subject:     "Printer broken",
		Description: "It does not print",
		Category:    "PRODUCT_ISSUE",
		Pipeline:    "0",
		Priority:    "HIGH",
		Stage:       "1",
		ContactID:   "501",
		DealIDs:     []string{"701", "702"},
	})
	require.NoError(t, err)
	assert.Equal(t, "901", ticket.ID)
	crm.AssertExpectations(t)
}

func TestServices_Recent(t *testing.T) {
	crm := new(MockCRM)
	ctx := context.Background()

	list := func(ids ...string) *hubspot.Response {
		results := []map[string]interface{}{}
		for _, id := range ids {
			results = append(results, map[string]interface{}{"id": id})
		}
		return jsonResponse(t, http.StatusOK, map[string]interface{}{"results": results})
	}

	crm.On("MakeRequest", ctx, http.MethodGet, "/crm/v3/objects/contacts?limit=10&after=20", nil).Return(list("1", "2"), nil).Once()
	crm.On("MakeRequest", ctx, http.MethodGet, "/crm/v3/objects/deals?limit=10&after=20", nil).Return(list("3"), nil).Once()
	crm.On("MakeRequest", ctx, http.MethodGet, "/crm/v3/objects/tickets?limit=10&after=20", nil).
		Return(jsonResponse(t, http.StatusOK, map[string]interface{}{}), nil).Once()

	recent, err := New(testDeps(t, crm)).Recent(ctx, 2, 10)
	require.NoError(t, err)

	assert.Len(t, recent.Contacts, 2)
	assert.Equal(t, "3", recent.Deals[0]["id"])
	assert.NotNil(t, recent.Tickets)
	assert.Empty(t, recent.Tickets)
	crm.AssertExpectations(t)
}

func TestServices_RecentStopsOnFirstError(t *testing.T) {
	crm := new(MockCRM)
	ctx := context.Background()

	crm.On("MakeRequest", ctx, http.MethodGet, mock.MatchedBy(func(p string) bool {
		return strings.HasPrefix(p, "/crm/v3/objects/contacts")
	}), nil).Return(&hubspot.Response{StatusCode: http.StatusForbidden, Body: []byte("forbidden")}, nil).Once()

	_, err := New(testDeps(t, crm)).Recent(ctx, 1, 10)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeRemoteAPIError))
	crm.AssertNumberOfCalls(t, "MakeRequest", 1)
}

// racingCRM answers searches with no match until every concurrent caller has searched.
type racingCRM struct {
	searched sync.WaitGroup
	creates  int32
}

func (r *racingCRM) MakeRequest(_ context.Context, method, path string, _ interface{}) (*hubspot.Response, error) {
	if strings.HasSuffix(path, "/search") {
		r.searched.Done()
		r.searched.Wait()
		raw, _ := json.Marshal(hubspot.SearchResponse{})
		return &hubspot.Response{StatusCode: http.StatusOK, Body: raw}, nil
	}
	n := atomic.AddInt32(&r.creates, 1)
	raw, _ := json.Marshal(hubspot.Object{ID: strconv.Itoa(int(n))})
	return &hubspot.Response{StatusCode: http.StatusCreated, Body: raw}, nil
}

func (r *racingCRM) HandleRateLimit(context.Context, *hubspot.Response, int) (bool, error) {
	return false, nil
}

// Create-or-update is not transactional: two concurrent upserts for the same email
// can both miss the search and both create.
func TestContactService_ConcurrentUpsertsMayBothCreate(t *testing.T) {
	crm := &racingCRM{}
	crm.searched.Add(2)
	svc := NewContactService(ServiceDependencies{CRM: crm})

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateOrUpdate(context.Background(), contactRequest())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(2), atomic.LoadInt32(&crm.creates))
}
