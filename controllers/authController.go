package controllers

import (
	"net/http"

	"civicsync-api/apperrors"
	"civicsync-api/middlewares"
	"civicsync-api/services"
	"civicsync-api/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// CookieSettings controls the auth cookie written on login.
type CookieSettings struct {
	Domain string
	Secure bool
}

type AuthController struct {
	auth   *services.AuthService
	cookie CookieSettings
	log    zerolog.Logger
}

func NewAuthController(auth *services.AuthService, cookie CookieSettings, log zerolog.Logger) *AuthController {
	return &AuthController{auth: auth, cookie: cookie, log: log}
}

// RegisterUser handles user registration
func (h *AuthController) RegisterUser(c *gin.Context) {
	var input services.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, h.log, apperrors.Invalid("body", "Request body must be valid JSON"))
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.auth.Register(ctx, input)
	if err != nil {
		utils.RespondError(c, h.log, err)
		return
	}
	utils.OK(c, http.StatusCreated, user, gin.H{"message": "User registered successfully"})
}

// LoginUser returns the token in the body and also sets it as an HTTP-only
// cookie.
func (h *AuthController) LoginUser(c *gin.Context) {
	var input services.LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, h.log, apperrors.Invalid("body", "Request body must be valid JSON"))
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	token, user, err := h.auth.Login(ctx, input)
	if err != nil {
		utils.RespondError(c, h.log, err)
		return
	}

	sameSite := http.SameSiteLaxMode
	if h.cookie.Secure {
		// cross-origin frontend in production
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middlewares.AuthCookie,
		Value:    token,
		MaxAge:   int(utils.TokenTTL.Seconds()),
		Path:     "/",
		Domain:   h.cookie.Domain,
		Secure:   h.cookie.Secure,
		HttpOnly: true,
		SameSite: sameSite,
	})
	utils.OK(c, http.StatusOK, gin.H{"token": token, "user": user}, nil)
}

// GetMe retrieves the authenticated user's information
func (h *AuthController) GetMe(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.auth.Me(ctx, who)
	if err != nil {
		utils.RespondError(c, h.log, err)
		return
	}
	utils.OK(c, http.StatusOK, user, nil)
}

// LogoutUser clears the auth cookie.
func (h *AuthController) LogoutUser(c *gin.Context) {
	c.SetCookie(middlewares.AuthCookie, "", -1, "/", h.cookie.Domain, h.cookie.Secure, true)
	utils.Message(c, http.StatusOK, "Logged out successfully")
}
