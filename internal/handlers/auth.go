// internal/handlers/auth.go
package handlers

import (
	"errors"
	"net/http"
	"path/filepath"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/shoplane/storefront-backend/internal/accounts"
	"github.com/shoplane/storefront-backend/internal/config"
	"github.com/shoplane/storefront-backend/internal/i18n"
	"github.com/shoplane/storefront-backend/internal/services"
	"github.com/shoplane/storefront-backend/internal/utils"
)

const (
	deviceCookie = "sf_device"
	stateCookie  = "sf_oauth_state"
)

type AuthHandler struct {
	authService *services.AuthService
	provider    *accounts.GoogleProvider
	config      *config.Config
	redis       *redis.Client

	mu        sync.Mutex
	switchers map[string]*accounts.Switcher
}

func NewAuthHandler(authService *services.AuthService, provider *accounts.GoogleProvider, cfg *config.Config, redisClient *redis.Client) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		provider:    provider,
		config:      cfg,
		redis:       redisClient,
		switchers:   make(map[string]*accounts.Switcher),
	}
}

// switcherFor resolves the per-device account switcher, keyed by a device
// cookie so the saved-accounts list follows the browser, not the session.
func (h *AuthHandler) switcherFor(c *gin.Context) *accounts.Switcher {
	deviceID, err := c.Cookie(deviceCookie)
	if err != nil || deviceID == "" {
		deviceID, _ = utils.GenerateDeviceID()
		c.SetCookie(deviceCookie, deviceID, 90*24*3600, "/", "", h.config.IsProduction(), true)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if sw, ok := h.switchers[deviceID]; ok {
		return sw
	}

	var store accounts.ListStore
	if h.redis != nil {
		store = accounts.NewRedisStore(h.redis, deviceID)
	} else {
		store = accounts.NewFileStore(filepath.Join("./data/accounts", deviceID+".json"))
	}

	sw := accounts.NewSwitcher(store, h.provider)
	h.switchers[deviceID] = sw
	return sw
}

// POST /auth/google
// Accepts a Google ID token from the client-side sign-in flow.
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	var req struct {
		IDToken string `json:"id_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	resp, err := h.authService.LoginWithGoogle(c.Request.Context(), req.IDToken)
	if err != nil {
		utils.UnauthorizedResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyAuthInvalidToken))
		return
	}

	// Record the account on this device so it shows up in the switcher.
	h.provider.StageInteractive(accounts.Identity{
		Email:   resp.User.Email,
		Name:    resp.User.Name,
		Picture: resp.User.Picture,
	})
	if _, err := h.switcherFor(c).AddAccount(c.Request.Context()); err != nil {
		if errors.Is(err, accounts.ErrSwitchInProgress) {
			utils.ConflictResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyAccountSwitchBusy))
			return
		}
	}

	utils.SuccessResponse(c, resp)
}

// GET /auth/google/url
func (h *AuthHandler) GoogleAuthURL(c *gin.Context) {
	state, err := utils.GenerateRandomString(32)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}
	c.SetCookie(stateCookie, state, 600, "/", "", h.config.IsProduction(), true)

	utils.SuccessResponse(c, gin.H{
		"url": h.provider.AuthCodeURL(state, c.Query("login_hint")),
	})
}

// GET /auth/google/callback
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	state, err := c.Cookie(stateCookie)
	if err != nil || state == "" || state != c.Query("state") {
		utils.BadRequestResponse(c, "Invalid OAuth state", nil)
		return
	}
	c.SetCookie(stateCookie, "", -1, "/", "", h.config.IsProduction(), true)

	code := c.Query("code")
	if code == "" {
		utils.BadRequestResponse(c, "Missing authorization code", nil)
		return
	}

	resp, err := h.authService.CompleteGoogleCallback(c.Request.Context(), code)
	if err != nil {
		utils.UnauthorizedResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyAuthInvalidToken))
		return
	}

	if _, err := h.switcherFor(c).AddAccount(c.Request.Context()); err != nil &&
		errors.Is(err, accounts.ErrSwitchInProgress) {
		utils.ConflictResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyAccountSwitchBusy))
		return
	}

	utils.SuccessResponse(c, resp)
}

// POST /auth/login
// Password login for the seeded admin account.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	resp, err := h.authService.LoginWithPassword(req.Email, req.Password)
	if err != nil {
		utils.UnauthorizedResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyAuthInvalidCredentials))
		return
	}

	utils.SuccessResponse(c, resp)
}

// GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	email, _ := utils.GetUserEmailFromContext(c)
	name := ""
	picture := ""
	if id, ok := h.switcherFor(c).Active(); ok {
		name = id.Name
		picture = id.Picture
	}
	role, _ := utils.GetUserRoleFromContext(c)
	userID, _ := utils.GetUserIDFromContext(c)

	utils.SuccessResponse(c, gin.H{
		"id":      userID,
		"email":   email,
		"name":    name,
		"picture": picture,
		"role":    role,
	})
}

// POST /auth/logout
// Signs out of the active account but keeps the device's saved list.
func (h *AuthHandler) Logout(c *gin.Context) {
	sw := h.switcherFor(c)
	if err := sw.SignOut(c.Request.Context()); err != nil && !errors.Is(err, accounts.ErrNotSignedIn) {
		utils.InternalErrorResponse(c, "")
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeyAuthLogoutSuccess)})
}

// GET /auth/accounts
// The switcher view: active account, the device's other saved accounts and
// the switch state.
func (h *AuthHandler) GetAccounts(c *gin.Context) {
	sw := h.switcherFor(c)

	others, err := sw.OtherAccounts()
	if err != nil {
		utils.ServiceUnavailableResponse(c, gin.H{"accounts": []interface{}{}})
		return
	}

	var active interface{}
	if id, ok := sw.Active(); ok {
		active = id
	}

	utils.SuccessResponse(c, gin.H{
		"state":    sw.State(),
		"active":   active,
		"accounts": others,
	})
}

// POST /auth/accounts/switch
func (h *AuthHandler) SwitchAccount(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	lang := utils.GetLangFromContext(c)
	identity, err := h.switcherFor(c).SwitchAccount(c.Request.Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, accounts.ErrSwitchInProgress):
			utils.ConflictResponse(c, i18n.T(lang, i18n.KeyAccountSwitchBusy))
		case errors.Is(err, accounts.ErrInteractionRequired):
			// The provider could not sign this account in silently; the
			// client must send the user through the interactive flow.
			c.JSON(http.StatusAccepted, utils.APIResponse{
				Success: false,
				Data:    gin.H{"interaction_required": true},
				Error: &utils.APIError{
					Code:    "INTERACTION_REQUIRED",
					Message: i18n.T(lang, i18n.KeyAuthRequired),
				},
			})
		default:
			utils.NotFoundResponse(c, "account")
		}
		return
	}

	resp, err := h.authService.SessionForIdentity(identity)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyAccountSwitched),
		"token":   resp.Token,
		"user":    resp.User,
	})
}

// DELETE /auth/accounts/:email
func (h *AuthHandler) RemoveAccount(c *gin.Context) {
	email := c.Param("email")
	if !utils.IsValidEmail(email) {
		utils.BadRequestResponse(c, "Invalid email", nil)
		return
	}

	lang := utils.GetLangFromContext(c)
	if err := h.switcherFor(c).RemoveAccount(c.Request.Context(), email); err != nil {
		if errors.Is(err, accounts.ErrSwitchInProgress) {
			utils.ConflictResponse(c, i18n.T(lang, i18n.KeyAccountSwitchBusy))
			return
		}
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeyAccountRemoved)})
}
