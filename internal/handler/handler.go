package handler

import (
	"sync"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"correctionloop/internal/domain"
	"correctionloop/internal/middleware"
	"correctionloop/internal/service"
)

// Handler manages all bot interactions
type Handler struct {
	bot         *tele.Bot
	authService *service.AuthService
	session     *service.Session
	logger      *zap.Logger

	// User states (in-memory state machine)
	states   map[int64]*domain.StateData
	stateMux sync.RWMutex

	// serializes callbacks of one user
	callbackLocks map[int64]*sync.Mutex
	callbackMux   sync.Mutex
}

// NewHandler creates a new handler instance
func NewHandler(
	bot *tele.Bot,
	authService *service.AuthService,
	session *service.Session,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		bot:           bot,
		authService:   authService,
		session:       session,
		logger:        logger,
		states:        make(map[int64]*domain.StateData),
		callbackLocks: make(map[int64]*sync.Mutex),
	}
}

// RegisterHandlers registers all bot handlers
func (h *Handler) RegisterHandlers() {
	auth := middleware.AuthMiddleware(h.authService, h.logger)

	// Commands
	h.bot.Handle("/start", h.handleStart)
	h.bot.Handle("/export", h.handleExport, auth)

	// Text messages carry the password, import text, category specs and notes
	h.bot.Handle(tele.OnText, h.handleText)

	// Every inline button goes through one dispatcher
	h.bot.Handle(tele.OnCallback, h.handleCallback, auth)
}

// GetState returns user's current state
func (h *Handler) GetState(userID int64) *domain.StateData {
	h.stateMux.RLock()
	defer h.stateMux.RUnlock()

	state, exists := h.states[userID]
	if !exists {
		return &domain.StateData{State: domain.StateIdle}
	}
	return state
}

// SetState sets user's state
func (h *Handler) SetState(userID int64, state *domain.StateData) {
	h.stateMux.Lock()
	defer h.stateMux.Unlock()
	h.states[userID] = state
}

// ResetState resets user to idle state
func (h *Handler) ResetState(userID int64) {
	h.SetState(userID, &domain.StateData{State: domain.StateIdle})
}

func (h *Handler) userLock(userID int64) *sync.Mutex {
	h.callbackMux.Lock()
	defer h.callbackMux.Unlock()

	lock, exists := h.callbackLocks[userID]
	if !exists {
		lock = &sync.Mutex{}
		h.callbackLocks[userID] = lock
	}
	return lock
}

// Callback endpoints. Item and category ids travel in the callback payload.
const (
	cbMenu           = "menu"
	cbCategory       = "cat"
	cbArchive        = "archive"
	cbImport         = "import"
	cbNewCategory    = "newcat"
	cbDeleteCategory = "delcat"
	cbModels         = "models"
	cbModel          = "model"
	cbCheck          = "check"
	cbFlip           = "flip"
	cbRestore        = "restore"
	cbDeleteItem     = "delitem"
	cbNote           = "note"
	cbCancel         = "cancel"
)
