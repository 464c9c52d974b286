package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "crm-gateway/internal/common/errors"
	"crm-gateway/internal/common/hubspot"
	"crm-gateway/internal/models"
	"crm-gateway/internal/validators"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
)

type ContactService interface {
	CreateOrUpdate(ctx context.Context, req models.ContactRequest) (*hubspot.Object, error)
}

type DealService interface {
	CreateOrUpdate(ctx context.Context, req models.DealRequest) (*hubspot.Object, error)
}

type TicketService interface {
	Create(ctx context.Context, req models.TicketRequest) (*hubspot.Object, error)
}

type RecentService interface {
	Recent(ctx context.Context, page, pageSize int) (*models.RecentObjects, error)
}

// CRMHandler serves the create and listing endpoints backed by the CRM.
type CRMHandler struct {
	contacts ContactService
	deals    DealService
	tickets  TicketService
	recent   RecentService
	errs     *apperrors.ErrorHandler
}

func NewCRMHandler(contacts ContactService, deals DealService, tickets TicketService, recent RecentService, errs *apperrors.ErrorHandler) *CRMHandler {
	return &CRMHandler{
		contacts: contacts,
		deals:    deals,
		tickets:  tickets,
		recent:   recent,
		errs:     errs,
	}
}

func (h *CRMHandler) CreateContact(c *gin.Context) {
	var req models.ContactRequest
	if !bindPayload(c, h.errs, hubspot.ObjectContacts, validators.Contact, &req) {
		return
	}

	contact, err := h.contacts.CreateOrUpdate(c.Request.Context(), req)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, contact)
}

func (h *CRMHandler) CreateDeal(c *gin.Context) {
	var req models.DealRequest
	if !bindPayload(c, h.errs, hubspot.ObjectDeals, validators.Deal, &req) {
		return
	}

	deal, err := h.deals.CreateOrUpdate(c.Request.Context(), req)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, deal)
}

func (h *CRMHandler) CreateTicket(c *gin.Context) {
	var req models.TicketRequest
	if !bindPayload(c, h.errs, hubspot.ObjectTickets, validators.Ticket, &req) {
		return
	}

	ticket, err := h.tickets.Create(c.Request.Context(), req)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// NewObjects lists one page of contacts, deals and tickets.
func (h *CRMHandler) NewObjects(c *gin.Context) {
	page, err := intQuery(c, "page", defaultPage)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	pageSize, err := intQuery(c, "page_size", defaultPageSize)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	objects, err := h.recent.Recent(c.Request.Context(), page, pageSize)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, objects)
}

func intQuery(c *gin.Context, name string, fallback int) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewBadRequestError(name + " must be an integer")
	}
	return n, nil
}
