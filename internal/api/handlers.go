package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clearledger/claimflow/internal/application/port"
	"github.com/clearledger/claimflow/internal/application/service"
	"github.com/clearledger/claimflow/internal/domain/entity"
	"github.com/clearledger/claimflow/internal/domain/workflow"
	"github.com/clearledger/claimflow/internal/export"
	"github.com/clearledger/claimflow/internal/lifecycle"
)

const (
	ctxTenantID  = "tenant_id"
	ctxActorID   = "actor_id"
	ctxActorName = "actor_name"
	ctxActorRole = "actor_role"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	claims    service.ClaimService
	intake    service.IntakeService
	reporter  *export.SettlementReporter
	uploadDir string
	exportDir string
	logger    Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	claims service.ClaimService,
	intake service.IntakeService,
	reporter *export.SettlementReporter,
	uploadDir, exportDir string,
	logger Logger,
) *Handlers {
	return &Handlers{
		claims:    claims,
		intake:    intake,
		reporter:  reporter,
		uploadDir: uploadDir,
		exportDir: exportDir,
		logger:    logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// actorMiddleware resolves the calling identity from request headers. Claims
// are tenant-scoped, so every API call must name its tenant and actor.
func actorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.GetHeader("X-Tenant-ID")
		actorID := c.GetHeader("X-Actor-ID")
		if tenantID == "" || actorID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "X-Tenant-ID and X-Actor-ID headers are required",
			})
			return
		}

		role, ok := workflow.ParseRole(c.GetHeader("X-Actor-Role"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "X-Actor-Role header is missing or not a known role",
			})
			return
		}

		c.Set(ctxTenantID, tenantID)
		c.Set(ctxActorID, actorID)
		c.Set(ctxActorName, c.GetHeader("X-Actor-Name"))
		c.Set(ctxActorRole, role)
		c.Next()
	}
}

func tenantOf(c *gin.Context) string { return c.GetString(ctxTenantID) }

func actorOf(c *gin.Context) lifecycle.Actor {
	return lifecycle.Actor{
		ID:   c.GetString(ctxActorID),
		Role: c.MustGet(ctxActorRole).(workflow.Role),
	}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// CreateClaimRequest is the body for POST /api/claims
type CreateClaimRequest struct {
	ClaimType      string  `json:"claim_type" binding:"required"`
	CategoryCode   string  `json:"category_code" binding:"required"`
	Amount         float64 `json:"amount" binding:"required"`
	Currency       string  `json:"currency"`
	ClaimDate      string  `json:"claim_date"`
	Description    string  `json:"description"`
	TransactionRef string  `json:"transaction_ref"`
	Department     string  `json:"department"`
	Submit         bool    `json:"submit"`
}

// CreateClaim handles POST /api/claims
func (h *Handlers) CreateClaim(c *gin.Context) {
	var req CreateClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	var claimDate *time.Time
	if req.ClaimDate != "" {
		d, err := time.Parse("2006-01-02", req.ClaimDate)
		if err != nil {
			h.badRequest(c, "claim_date must be YYYY-MM-DD", err)
			return
		}
		claimDate = &d
	}

	claim, err := h.claims.CreateClaim(c.Request.Context(), service.CreateClaimInput{
		TenantID:       tenantOf(c),
		EmployeeID:     c.GetString(ctxActorID),
		EmployeeName:   c.GetString(ctxActorName),
		Department:     req.Department,
		ClaimType:      req.ClaimType,
		CategoryCode:   req.CategoryCode,
		Amount:         req.Amount,
		Currency:       req.Currency,
		ClaimDate:      claimDate,
		Description:    req.Description,
		TransactionRef: req.TransactionRef,
		Submit:         req.Submit,
	})
	if err != nil {
		h.serviceError(c, "create claim", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: claim})
}

// ListClaimsRequest represents query parameters for listing claims
type ListClaimsRequest struct {
	Status     string `form:"status"`
	EmployeeID string `form:"employee_id"`
	Limit      int    `form:"limit"`
	Offset     int    `form:"offset"`
}

// ListClaims handles GET /api/claims
func (h *Handlers) ListClaims(c *gin.Context) {
	var req ListClaimsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.badRequest(c, "invalid query parameters", err)
		return
	}

	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	claims, err := h.claims.ListClaims(c.Request.Context(), tenantOf(c), port.ClaimFilter{
		Status:     req.Status,
		EmployeeID: req.EmployeeID,
		Limit:      req.Limit,
		Offset:     req.Offset,
	})
	if err != nil {
		h.serviceError(c, "list claims", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: claims})
}

// GetClaim handles GET /api/claims/:id
func (h *Handlers) GetClaim(c *gin.Context) {
	id, ok := h.claimID(c)
	if !ok {
		return
	}

	claim, err := h.claims.GetClaim(c.Request.Context(), tenantOf(c), id)
	if err != nil {
		h.serviceError(c, "get claim", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: claim})
}

// TransitionRequest is the body for POST /api/claims/:id/transition
type TransitionRequest struct {
	Target     string `json:"target" binding:"required"`
	Comment    string `json:"comment"`
	Settlement *struct {
		PaymentReference string   `json:"payment_reference"`
		PaymentMethod    string   `json:"payment_method"`
		AmountPaid       *float64 `json:"amount_paid"`
	} `json:"settlement"`
}

// Transition handles POST /api/claims/:id/transition
func (h *Handlers) Transition(c *gin.Context) {
	id, ok := h.claimID(c)
	if !ok {
		return
	}

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	target := workflow.State(req.Target)
	if !target.IsValid() {
		h.badRequest(c, "target is not a known status", nil)
		return
	}

	input := service.TransitionInput{
		TenantID:  tenantOf(c),
		ClaimID:   id,
		Actor:     actorOf(c),
		ActorName: c.GetString(ctxActorName),
		Target:    target,
		Comment:   req.Comment,
	}
	if req.Settlement != nil {
		input.Settlement = &lifecycle.Settlement{
			PaymentReference: req.Settlement.PaymentReference,
			PaymentMethod:    req.Settlement.PaymentMethod,
			AmountPaid:       req.Settlement.AmountPaid,
		}
	}

	outcome, claim, err := h.claims.Transition(c.Request.Context(), input)
	if err != nil {
		h.serviceError(c, "transition claim", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{
		"claim":   claim,
		"outcome": outcome,
	}})
}

// EditClaimRequest is the body for POST /api/claims/:id/edit
type EditClaimRequest struct {
	Amount       *float64 `json:"amount"`
	ClaimDate    *string  `json:"claim_date"`
	Description  *string  `json:"description"`
	CategoryCode *string  `json:"category_code"`
	Resubmit     bool     `json:"resubmit"`
}

// EditClaim handles POST /api/claims/:id/edit
func (h *Handlers) EditClaim(c *gin.Context) {
	id, ok := h.claimID(c)
	if !ok {
		return
	}

	var req EditClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	edit := lifecycle.ClaimEdit{
		Amount:       req.Amount,
		Description:  req.Description,
		CategoryCode: req.CategoryCode,
	}
	if req.ClaimDate != nil {
		d, err := time.Parse("2006-01-02", *req.ClaimDate)
		if err != nil {
			h.badRequest(c, "claim_date must be YYYY-MM-DD", err)
			return
		}
		edit.ClaimDate = &d
	}

	claim, err := h.claims.EditAndResubmit(c.Request.Context(), tenantOf(c), id, actorOf(c), edit, req.Resubmit)
	if err != nil {
		h.serviceError(c, "edit claim", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: claim})
}

// Compliance handles GET /api/claims/:id/compliance
func (h *Handlers) Compliance(c *gin.Context) {
	id, ok := h.claimID(c)
	if !ok {
		return
	}

	report, err := h.claims.Compliance(c.Request.Context(), tenantOf(c), id)
	if err != nil {
		h.serviceError(c, "evaluate compliance", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: report})
}

// CommentRequest is the body for POST /api/claims/:id/comments
type CommentRequest struct {
	Text              string `json:"text" binding:"required"`
	Type              string `json:"type"`
	VisibleToEmployee *bool  `json:"visible_to_employee"`
}

// AddComment handles POST /api/claims/:id/comments
func (h *Handlers) AddComment(c *gin.Context) {
	id, ok := h.claimID(c)
	if !ok {
		return
	}

	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	visible := true
	if req.VisibleToEmployee != nil {
		visible = *req.VisibleToEmployee
	}

	actor := actorOf(c)
	comment, err := h.claims.AddComment(c.Request.Context(), service.CommentInput{
		TenantID:          tenantOf(c),
		ClaimID:           id,
		AuthorID:          actor.ID,
		AuthorName:        c.GetString(ctxActorName),
		AuthorRole:        string(actor.Role),
		Text:              req.Text,
		Type:              req.Type,
		VisibleToEmployee: visible,
	})
	if err != nil {
		h.serviceError(c, "add comment", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: comment})
}

// ListComments handles GET /api/claims/:id/comments. Employees only see the
// comments flagged visible to them.
func (h *Handlers) ListComments(c *gin.Context) {
	id, ok := h.claimID(c)
	if !ok {
		return
	}

	employeeView := actorOf(c).Role == workflow.RoleEmployee
	comments, err := h.claims.ListComments(c.Request.Context(), tenantOf(c), id, employeeView)
	if err != nil {
		h.serviceError(c, "list comments", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: comments})
}

// ApprovalTrail handles GET /api/claims/:id/approvals
func (h *Handlers) ApprovalTrail(c *gin.Context) {
	id, ok := h.claimID(c)
	if !ok {
		return
	}

	records, err := h.claims.ApprovalTrail(c.Request.Context(), tenantOf(c), id)
	if err != nil {
		h.serviceError(c, "list approvals", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: records})
}

// CheckDuplicates handles GET /api/claims/:id/duplicates. The report is
// advisory; duplicates never block a claim.
func (h *Handlers) CheckDuplicates(c *gin.Context) {
	id, ok := h.claimID(c)
	if !ok {
		return
	}

	report, err := h.claims.CheckDuplicates(c.Request.Context(), tenantOf(c), id)
	if err != nil {
		h.serviceError(c, "check duplicates", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: report})
}

// UploadDocument handles POST /api/claims/:id/documents. The receipt is
// stored on disk, then the intake pipeline registers it and, for drafts,
// pre-fills claim fields from the extraction.
func (h *Handlers) UploadDocument(c *gin.Context) {
	id, ok := h.claimID(c)
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		h.badRequest(c, "multipart field \"file\" is required", err)
		return
	}

	dir := filepath.Join(h.uploadDir, tenantOf(c), strconv.FormatInt(id, 10))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		h.serviceError(c, "prepare upload directory", err)
		return
	}

	storagePath := filepath.Join(dir, fmt.Sprintf("%d_%s", time.Now().UnixNano(), filepath.Base(file.Filename)))
	if err := c.SaveUploadedFile(file, storagePath); err != nil {
		h.serviceError(c, "store upload", err)
		return
	}

	doc, err := h.intake.ProcessReceipt(c.Request.Context(), tenantOf(c), id, storagePath, file.Filename, file.Size)
	if err != nil {
		h.serviceError(c, "process receipt", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: doc})
}

// ExportSettlements handles GET /api/exports/settlements
func (h *Handlers) ExportSettlements(c *gin.Context) {
	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		h.badRequest(c, "from must be YYYY-MM-DD", err)
		return
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		h.badRequest(c, "to must be YYYY-MM-DD", err)
		return
	}

	if err := os.MkdirAll(h.exportDir, 0o755); err != nil {
		h.serviceError(c, "prepare export directory", err)
		return
	}

	filename := fmt.Sprintf("settlements_%s_%s.xlsx", from.Format("20060102"), to.Format("20060102"))
	outputPath := filepath.Join(h.exportDir, filename)

	count, err := h.reporter.Generate(c.Request.Context(), tenantOf(c), from, to, outputPath)
	if err != nil {
		h.serviceError(c, "generate settlement report", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{
		"claims": count,
		"path":   outputPath,
	}})
}

// CategoryRequest is the body for POST /api/categories
type CategoryRequest struct {
	CategoryCode          string   `json:"category_code" binding:"required"`
	CategoryName          string   `json:"category_name" binding:"required"`
	CategoryType          string   `json:"category_type" binding:"required"`
	MaxAmount             *float64 `json:"max_amount"`
	MinAmount             *float64 `json:"min_amount"`
	Currency              string   `json:"currency"`
	SubmissionWindowDays  *int     `json:"submission_window_days"`
	ReceiptRequired       bool     `json:"receipt_required"`
	RequiredDocumentCount int      `json:"required_document_count"`
	AllowedDocumentTypes  []string `json:"allowed_document_types"`
	RegionCodes           []string `json:"region_codes"`
}

// CreateCategory handles POST /api/categories. Policy administration is
// limited to HR and Finance.
func (h *Handlers) CreateCategory(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}

	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	category := &entity.PolicyCategory{
		TenantID:              tenantOf(c),
		CategoryCode:          req.CategoryCode,
		CategoryName:          req.CategoryName,
		CategoryType:          req.CategoryType,
		MaxAmount:             req.MaxAmount,
		MinAmount:             req.MinAmount,
		Currency:              req.Currency,
		SubmissionWindowDays:  req.SubmissionWindowDays,
		ReceiptRequired:       req.ReceiptRequired,
		RequiredDocumentCount: req.RequiredDocumentCount,
		AllowedDocumentTypes:  req.AllowedDocumentTypes,
		RegionCodes:           req.RegionCodes,
	}
	if err := h.claims.CreateCategory(c.Request.Context(), category); err != nil {
		h.serviceError(c, "create category", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: category})
}

// ListCategories handles GET /api/categories
func (h *Handlers) ListCategories(c *gin.Context) {
	categories, err := h.claims.ListCategories(c.Request.Context(), tenantOf(c))
	if err != nil {
		h.serviceError(c, "list categories", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: categories})
}

// GetSettings handles GET /api/settings
func (h *Handlers) GetSettings(c *gin.Context) {
	settings, err := h.claims.GetSettings(c.Request.Context(), tenantOf(c))
	if err != nil {
		h.serviceError(c, "get settings", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: settings})
}

// SettingsRequest is the body for PUT /api/settings
type SettingsRequest struct {
	FiscalYearStartMonth      int     `json:"fiscal_year_start_month" binding:"required"`
	AIProcessing              bool    `json:"ai_processing"`
	AutoApprovalEnabled       bool    `json:"auto_approval_enabled"`
	AutoApprovalThreshold     float64 `json:"auto_approval_threshold"`
	MaxAutoApprovalAmount     float64 `json:"max_auto_approval_amount"`
	AutoSkipAfterManager      bool    `json:"auto_skip_after_manager"`
	PolicyComplianceThreshold float64 `json:"policy_compliance_threshold"`
}

// UpdateSettings handles PUT /api/settings. Limited to HR and Finance.
func (h *Handlers) UpdateSettings(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}

	var req SettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	settings := &entity.TenantSettings{
		TenantID:             tenantOf(c),
		FiscalYearStartMonth: time.Month(req.FiscalYearStartMonth),
		AutoApproval: entity.AutoApprovalConfig{
			AIProcessing:              req.AIProcessing,
			Enabled:                   req.AutoApprovalEnabled,
			Threshold:                 req.AutoApprovalThreshold,
			MaxAutoApprovalAmount:     req.MaxAutoApprovalAmount,
			AutoSkipAfterManager:      req.AutoSkipAfterManager,
			PolicyComplianceThreshold: req.PolicyComplianceThreshold,
		},
	}
	if err := h.claims.UpdateSettings(c.Request.Context(), settings); err != nil {
		h.serviceError(c, "update settings", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: settings})
}

// requireAdmin gates tenant administration endpoints to HR and Finance
func (h *Handlers) requireAdmin(c *gin.Context) bool {
	role := c.MustGet(ctxActorRole).(workflow.Role)
	if role != workflow.RoleHR && role != workflow.RoleFinance {
		c.JSON(http.StatusForbidden, Response{
			Success: false,
			Error:   "only HR or Finance may administer tenant policy",
		})
		return false
	}
	return true
}

func (h *Handlers) claimID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.badRequest(c, "invalid claim ID", err)
		return 0, false
	}
	return id, true
}

func (h *Handlers) badRequest(c *gin.Context, msg string, err error) {
	if err != nil {
		h.logger.Error(msg, "error", err)
	}
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

// serviceError maps application errors to HTTP status codes
func (h *Handlers) serviceError(c *gin.Context, op string, err error) {
	h.logger.Error("Request failed", "operation", op, "error", err)

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, port.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, port.ErrStatusConflict):
		status = http.StatusConflict
	case errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, workflow.ErrClaimNotEditable):
		status = http.StatusForbidden
	case errors.Is(err, workflow.ErrMissingRequiredComment),
		errors.Is(err, workflow.ErrInvalidState),
		errors.Is(err, lifecycle.ErrInvalidPaymentMethod),
		errors.Is(err, lifecycle.ErrInvalidAmount):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, workflow.ErrUnresolvedPolicy):
		status = http.StatusNotFound
	}

	c.JSON(status, Response{Success: false, Error: err.Error()})
}
