package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/JoaChP/talentbridge-backend/internal/events"
	"github.com/JoaChP/talentbridge-backend/internal/store"
)

const userIDContextKey = "talentbridge_user_id"

var (
	errMissingStore         = errors.New("entity store dependency required")
	errMissingTokenManager  = errors.New("token manager dependency required")
	errMissingBus           = errors.New("event bus dependency required")
	errInvalidAuthorization = errors.New("authorization header missing or invalid")
)

// TokenValidator checks bearer tokens and returns the user id they carry.
type TokenValidator interface {
	ValidateToken(token string) (string, error)
}

// RemoteStatusReporter exposes the outcome of the last remote mirror call.
type RemoteStatusReporter interface {
	RemoteStatus() error
}

// Dependencies wires the HTTP facade.
type Dependencies struct {
	Store      *store.Store
	Tokens     TokenValidator
	Bus        *events.Bus
	Remote     RemoteStatusReporter
	Classifier store.Classifier
	Logger     *zap.Logger
}

// NewHTTPHandler builds the gin router around the entity store.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Store == nil {
		return nil, errMissingStore
	}
	if deps.Tokens == nil {
		return nil, errMissingTokenManager
	}
	if deps.Bus == nil {
		return nil, errMissingBus
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	classifier := deps.Classifier
	if classifier == nil {
		classifier = store.NewHeuristicClassifier()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		store:      deps.Store,
		tokens:     deps.Tokens,
		bus:        deps.Bus,
		remote:     deps.Remote,
		classifier: classifier,
		logger:     logger,
	}

	router.POST("/auth/login", handler.handleLogin)
	router.POST("/auth/register", handler.handleRegister)
	router.GET("/practices", handler.handleListPractices)
	router.GET("/practices/:id", handler.handleGetPractice)
	router.GET("/status", handler.handleStatus)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.POST("/practices", handler.handleCreatePractice)
	protected.PATCH("/practices/:id", handler.handleUpdatePractice)
	protected.DELETE("/practices/:id", handler.requireAdmin, handler.handleDeletePractice)
	protected.POST("/practices/:id/applications", handler.handleApply)
	protected.GET("/practices/:id/applications", handler.handleListPracticeApplications)
	protected.GET("/applications", handler.handleListOwnApplications)
	protected.PATCH("/applications/:id", handler.handleUpdateApplicationStatus)
	protected.DELETE("/applications/:id", handler.handleDeleteApplication)
	protected.GET("/threads", handler.handleListThreads)
	protected.POST("/threads", handler.handleCreateThread)
	protected.GET("/threads/:id/messages", handler.handleListMessages)
	protected.POST("/threads/:id/messages", handler.handleSendMessage)
	protected.GET("/realtime", handler.handleRealtime)

	admin := protected.Group("/")
	admin.Use(handler.requireAdmin)
	admin.PATCH("/users/:id/role", handler.handleUpdateUserRole)
	admin.DELETE("/users/:id", handler.handleDeleteUser)
	admin.GET("/data", handler.handleGetData)
	admin.POST("/data", handler.handleReplaceData)
	admin.POST("/admin/reset", handler.handleReset)
	admin.POST("/admin/purge", handler.handlePurge)

	return router, nil
}

type httpHandler struct {
	store      *store.Store
	tokens     TokenValidator
	bus        *events.Bus
	remote     RemoteStatusReporter
	classifier store.Classifier
	logger     *zap.Logger
}

type loginRequestPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequestPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Phone    string `json:"phone"`
}

type sessionResponsePayload struct {
	User        store.User `json:"user"`
	AccessToken string     `json:"access_token"`
	ExpiresIn   int64      `json:"expires_in"`
	TokenType   string     `json:"token_type"`
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var request loginRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Email) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	session, err := h.store.Login(c.Request.Context(), request.Email, request.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionPayload(session))
}

func (h *httpHandler) handleRegister(c *gin.Context) {
	var request registerRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	session, err := h.store.Register(c.Request.Context(), request.Name, request.Email, request.Password, store.Role(request.Role), request.Phone)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sessionPayload(session))
}

func sessionPayload(session store.Session) sessionResponsePayload {
	return sessionResponsePayload{
		User:        session.User,
		AccessToken: session.Token,
		ExpiresIn:   session.ExpiresIn,
		TokenType:   "Bearer",
	}
}

func (h *httpHandler) handleListPractices(c *gin.Context) {
	filter := store.PracticeFilter{
		Query:    c.Query("q"),
		City:     c.Query("city"),
		Country:  c.Query("country"),
		Modality: store.Modality(c.Query("modality")),
	}
	if raw := c.Query("duration"); raw != "" {
		if months, err := strconv.Atoi(raw); err == nil {
			filter.DurationMonths = months
		}
	}
	if raw := c.Query("skills"); raw != "" {
		filter.Skills = strings.Split(raw, ",")
	}
	c.JSON(http.StatusOK, gin.H{"practices": h.store.ListPractices(filter)})
}

func (h *httpHandler) handleGetPractice(c *gin.Context) {
	practice, err := h.store.GetPractice(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, practice)
}

type createPracticePayload struct {
	Title          string         `json:"title"`
	CompanyName    string         `json:"companyName"`
	CompanyLogoURL string         `json:"companyLogoUrl"`
	City           string         `json:"city"`
	Country        string         `json:"country"`
	Modality       store.Modality `json:"modality"`
	DurationMonths int            `json:"durationMonths"`
	Skills         []string       `json:"skills"`
	Description    string         `json:"description"`
	Status         string         `json:"status"`
	Vacancies      int            `json:"vacancies"`
	Benefits       []string       `json:"benefits"`
}

func (h *httpHandler) handleCreatePractice(c *gin.Context) {
	var request createPracticePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	practice, err := h.store.CreatePractice(c.Request.Context(), store.Practice{
		Title: request.Title,
		Company: store.Company{
			Name:        request.CompanyName,
			LogoURL:     request.CompanyLogoURL,
			OwnerUserID: c.GetString(userIDContextKey),
		},
		City:           request.City,
		Country:        request.Country,
		Modality:       request.Modality,
		DurationMonths: request.DurationMonths,
		Skills:         request.Skills,
		Description:    request.Description,
		Status:         store.PracticeStatus(request.Status),
		Vacancies:      request.Vacancies,
		Benefits:       request.Benefits,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, practice)
}

type updatePracticePayload struct {
	Title          *string               `json:"title"`
	City           *string               `json:"city"`
	Country        *string               `json:"country"`
	Modality       *store.Modality       `json:"modality"`
	DurationMonths *int                  `json:"durationMonths"`
	Skills         *[]string             `json:"skills"`
	Description    *string               `json:"description"`
	Status         *store.PracticeStatus `json:"status"`
	Vacancies      *int                  `json:"vacancies"`
	Benefits       *[]string             `json:"benefits"`
	CompanyName    *string               `json:"companyName"`
	CompanyLogoURL *string               `json:"companyLogoUrl"`
}

func (h *httpHandler) handleUpdatePractice(c *gin.Context) {
	practiceID := c.Param("id")
	var request updatePracticePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	if err := h.authorizePracticeOwner(c, practiceID); err != nil {
		h.respondError(c, err)
		return
	}

	practice, err := h.store.UpdatePractice(c.Request.Context(), practiceID, store.PracticePatch{
		Title:          request.Title,
		City:           request.City,
		Country:        request.Country,
		Modality:       request.Modality,
		DurationMonths: request.DurationMonths,
		Skills:         request.Skills,
		Description:    request.Description,
		Status:         request.Status,
		Vacancies:      request.Vacancies,
		Benefits:       request.Benefits,
		CompanyName:    request.CompanyName,
		CompanyLogoURL: request.CompanyLogoURL,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, practice)
}

func (h *httpHandler) handleDeletePractice(c *gin.Context) {
	if err := h.store.DeletePractice(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleApply(c *gin.Context) {
	application, err := h.store.ApplyToPractice(c.Request.Context(), c.Param("id"), c.GetString(userIDContextKey))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, application)
}

func (h *httpHandler) handleListOwnApplications(c *gin.Context) {
	applications := h.store.ListApplicationsForUser(c.GetString(userIDContextKey))
	c.JSON(http.StatusOK, gin.H{"applications": applications})
}

func (h *httpHandler) handleListPracticeApplications(c *gin.Context) {
	practiceID := c.Param("id")
	if err := h.authorizePracticeOwner(c, practiceID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": h.store.ListApplicationsForPractice(practiceID)})
}

type updateApplicationPayload struct {
	Status store.ApplicationStatus `json:"status"`
}

func (h *httpHandler) handleUpdateApplicationStatus(c *gin.Context) {
	var request updateApplicationPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	application, err := h.store.UpdateApplicationStatus(c.Request.Context(), c.Param("id"), request.Status, c.GetString(userIDContextKey))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, application)
}

func (h *httpHandler) handleDeleteApplication(c *gin.Context) {
	if err := h.store.DeleteApplication(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type createThreadPayload struct {
	PracticeID string `json:"practiceId"`
	PartnerID  string `json:"partnerId"`
}

func (h *httpHandler) handleCreateThread(c *gin.Context) {
	var request createThreadPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	userID := c.GetString(userIDContextKey)
	var (
		thread store.Thread
		err    error
	)
	switch {
	case request.PracticeID != "":
		thread, err = h.store.CreateThreadForApplication(c.Request.Context(), request.PracticeID, userID)
	case request.PartnerID != "":
		thread, err = h.store.CreateDirectThread(c.Request.Context(), userID, request.PartnerID)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, thread)
}

func (h *httpHandler) handleListThreads(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"threads": h.store.ListThreadsForUser(c.GetString(userIDContextKey))})
}

func (h *httpHandler) handleListMessages(c *gin.Context) {
	messages, err := h.store.ListMessages(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

type sendMessagePayload struct {
	Text string `json:"text"`
}

func (h *httpHandler) handleSendMessage(c *gin.Context) {
	var request sendMessagePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	message, err := h.store.SendMessage(c.Request.Context(), c.Param("id"), c.GetString(userIDContextKey), request.Text)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, message)
}

type updateRolePayload struct {
	Role store.Role `json:"role"`
}

func (h *httpHandler) handleUpdateUserRole(c *gin.Context) {
	var request updateRolePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	user, err := h.store.UpdateUserRole(c.Request.Context(), c.Param("id"), request.Role)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *httpHandler) handleDeleteUser(c *gin.Context) {
	if err := h.store.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleGetData(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Snapshot())
}

func (h *httpHandler) handleReplaceData(c *gin.Context) {
	var snapshot store.Snapshot
	if err := c.ShouldBindJSON(&snapshot); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.store.ReplaceSnapshot(c.Request.Context(), snapshot); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleReset(c *gin.Context) {
	if err := h.store.ResetToSeed(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handlePurge(c *gin.Context) {
	report, err := h.store.PurgeDemoData(c.Request.Context(), h.classifier)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *httpHandler) handleStatus(c *gin.Context) {
	if h.remote == nil {
		c.JSON(http.StatusOK, gin.H{"remote": "unconfigured"})
		return
	}
	if err := h.remote.RemoteStatus(); err != nil {
		c.JSON(http.StatusOK, gin.H{"remote": "unavailable", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"remote": "ok"})
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	subject, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(userIDContextKey, subject)
	c.Next()
}

// requireAdmin gates administrative routes on the caller's stored role.
func (h *httpHandler) requireAdmin(c *gin.Context) {
	user, err := h.store.GetUser(c.GetString(userIDContextKey))
	if err != nil || user.Role != store.RoleAdmin {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	c.Next()
}

// authorizePracticeOwner permits the practice owner and admins.
func (h *httpHandler) authorizePracticeOwner(c *gin.Context, practiceID string) error {
	practice, err := h.store.GetPractice(practiceID)
	if err != nil {
		return err
	}
	userID := c.GetString(userIDContextKey)
	if practice.Company.OwnerUserID == userID {
		return nil
	}
	user, err := h.store.GetUser(userID)
	if err == nil && user.Role == store.RoleAdmin {
		return nil
	}
	return store.ErrForbidden
}

func (h *httpHandler) respondError(c *gin.Context, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, store.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrDuplicateEmail), errors.Is(err, store.ErrDuplicateApplication):
		return http.StatusConflict
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, store.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, store.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
