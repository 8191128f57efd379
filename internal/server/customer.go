package server

import (
	"net/http"
	"strings"

	auditdomain "github.com/cablebill/cablebill/internal/audit/domain"
	customerdomain "github.com/cablebill/cablebill/internal/customer/domain"
	"github.com/cablebill/cablebill/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

// maxDocumentSize bounds uploaded proof documents.
const maxDocumentSize = 10 << 20

type createCustomerRequest struct {
	Name      string         `json:"name"`
	Address   string         `json:"address"`
	Area      string         `json:"area"`
	Phone     string         `json:"phone"`
	Email     string         `json:"email"`
	STBNumber string         `json:"stb_number"`
	Metadata  map[string]any `json:"metadata"`
}

func (s *Server) CreateCustomer(c *gin.Context) {
	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.customerSvc.Create(c.Request.Context(), customerdomain.CreateCustomerRequest{
		Name:      strings.TrimSpace(req.Name),
		Address:   strings.TrimSpace(req.Address),
		Area:      strings.TrimSpace(req.Area),
		Phone:     strings.TrimSpace(req.Phone),
		Email:     strings.TrimSpace(req.Email),
		STBNumber: strings.TrimSpace(req.STBNumber),
		Metadata:  req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListCustomers(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Area   string `form:"area"`
		Search string `form:"search"`
		Active string `form:"active"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	active, err := parseOptionalBool("active", query.Active)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.customerSvc.List(c.Request.Context(), customerdomain.ListCustomerRequest{
		PageToken: query.PageToken,
		PageSize:  query.PageSize,
		Area:      strings.TrimSpace(query.Area),
		Search:    strings.TrimSpace(query.Search),
		Active:    active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCustomer(c *gin.Context) {
	resp, err := s.customerSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateCustomerRequest struct {
	Name      *string        `json:"name"`
	Address   *string        `json:"address"`
	Area      *string        `json:"area"`
	Phone     *string        `json:"phone"`
	Email     *string        `json:"email"`
	STBNumber *string        `json:"stb_number"`
	Metadata  map[string]any `json:"metadata"`
}

func (s *Server) UpdateCustomer(c *gin.Context) {
	var req updateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.customerSvc.Update(c.Request.Context(), customerdomain.UpdateCustomerRequest{
		ID:        strings.TrimSpace(c.Param("id")),
		Name:      req.Name,
		Address:   req.Address,
		Area:      req.Area,
		Phone:     req.Phone,
		Email:     req.Email,
		STBNumber: req.STBNumber,
		Metadata:  req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SetCustomerActive(c *gin.Context) {
	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("active", "invalid_active", "active must be a boolean"))
		return
	}

	resp, err := s.customerSvc.SetActive(c.Request.Context(), strings.TrimSpace(c.Param("id")), *req.Active)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, auditdomain.ActionCustomerSetActive, "customer", resp.ID.String(), map[string]any{"active": resp.Active})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteCustomer(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.customerSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, auditdomain.ActionCustomerDelete, "customer", id, nil)

	c.Status(http.StatusNoContent)
}

func (s *Server) UploadCustomerDocument(c *gin.Context) {
	kind, ok := customerdomain.ParseDocumentKind(strings.TrimSpace(c.Param("kind")))
	if !ok {
		AbortWithError(c, newValidationError("kind", "invalid_document_kind", "kind must be id_proof or address_proof"))
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxDocumentSize)
	header, err := c.FormFile("file")
	if err != nil {
		AbortWithError(c, newValidationError("file", "invalid_file", "file is required"))
		return
	}

	file, err := header.Open()
	if err != nil {
		AbortWithError(c, newValidationError("file", "invalid_file", "file could not be read"))
		return
	}
	defer file.Close()

	resp, err := s.customerSvc.UploadDocument(c.Request.Context(), customerdomain.UploadDocumentRequest{
		CustomerID:  strings.TrimSpace(c.Param("id")),
		Kind:        kind,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type verifyDocumentRequest struct {
	Verified *bool `json:"verified" binding:"required"`
}

func (s *Server) VerifyCustomerDocument(c *gin.Context) {
	kind, ok := customerdomain.ParseDocumentKind(strings.TrimSpace(c.Param("kind")))
	if !ok {
		AbortWithError(c, newValidationError("kind", "invalid_document_kind", "kind must be id_proof or address_proof"))
		return
	}

	var req verifyDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("verified", "invalid_verified", "verified must be a boolean"))
		return
	}

	resp, err := s.customerSvc.VerifyDocument(c.Request.Context(), strings.TrimSpace(c.Param("id")), kind, *req.Verified)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, auditdomain.ActionDocumentVerify, "customer", resp.ID.String(), map[string]any{
		"kind":     string(kind),
		"verified": *req.Verified,
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCustomerSubscriptions(c *gin.Context) {
	resp, err := s.subscriptionSvc.ListByCustomer(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCustomerBills(c *gin.Context) {
	resp, err := s.billSvc.ListByCustomer(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
