package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/CTFPlatform/internal/access"
	"github.com/router-for-me/CTFPlatform/internal/http/respond"
	"github.com/router-for-me/CTFPlatform/internal/models"
	"github.com/router-for-me/CTFPlatform/internal/security"
	"github.com/router-for-me/CTFPlatform/internal/session"
	"github.com/router-for-me/CTFPlatform/internal/store"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Reasons specific to admin sign-in.
const (
	ReasonTOTPRequired = "totp_required"
	ReasonInvalidTOTP  = "invalid_totp"
)

// AuthHandler serves registration, login, logout and the current-user view.
type AuthHandler struct {
	users *store.UserStore
	nowFn func() time.Time
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB) *AuthHandler {
	return &AuthHandler{users: store.NewUserStore(db), nowFn: time.Now}
}

// registerRequest defines the request body for registration.
type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// loginRequest defines the request body for user and admin login.
type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Code     string `json:"code"`
}

// Register creates an account and signs it in.
func (h *AuthHandler) Register(c *gin.Context) {
	var body registerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		respond.BadRequest(c, "Username, a valid email and a password of at least 6 characters are required")
		return
	}
	username := strings.TrimSpace(body.Username)
	email := strings.ToLower(strings.TrimSpace(body.Email))
	if username == "" {
		respond.BadRequest(c, "Username is required")
		return
	}

	ctx := c.Request.Context()
	exists, errExists := h.users.ExistsByUsernameOrEmail(ctx, username, email)
	if errExists != nil {
		respond.ServerError(c, errExists, "register: check user")
		return
	}
	if exists {
		respond.Error(c, http.StatusBadRequest, "User with that email or username already exists", respond.ReasonDuplicate)
		return
	}

	hash, errHash := security.HashPassword(body.Password)
	if errHash != nil {
		respond.ServerError(c, errHash, "register: hash password")
		return
	}
	user := models.User{Username: username, Email: email, Password: hash}
	if errCreate := h.users.Create(ctx, &user); errCreate != nil {
		if errors.Is(errCreate, store.ErrDuplicate) {
			respond.Error(c, http.StatusBadRequest, "User with that email or username already exists", respond.ReasonDuplicate)
			return
		}
		respond.ServerError(c, errCreate, "register: create user")
		return
	}
	if errLogin := session.Login(c, user.ID); errLogin != nil {
		respond.ServerError(c, errLogin, "register: save session")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    userView(&user),
	})
}

// Login authenticates a competitor.
func (h *AuthHandler) Login(c *gin.Context) {
	user, _, ok := h.authenticate(c, "Invalid credentials")
	if !ok {
		return
	}
	h.finishLogin(c, user)
}

// AdminLogin authenticates an administrator, enforcing TOTP when enabled.
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	user, code, ok := h.authenticate(c, "Invalid admin credentials")
	if !ok {
		return
	}
	if !user.IsAdmin {
		respond.Error(c, http.StatusBadRequest, "Invalid admin credentials", "")
		return
	}
	if user.TOTPEnabled {
		if strings.TrimSpace(code) == "" {
			respond.Error(c, http.StatusBadRequest, "TOTP code required", ReasonTOTPRequired)
			return
		}
		if !security.ValidateTOTP(user.TOTPSecret, code, h.nowFn()) {
			respond.Error(c, http.StatusBadRequest, "Invalid TOTP code", ReasonInvalidTOTP)
			return
		}
	}
	h.finishLogin(c, user)
}

// authenticate checks credentials and the ban flag, writing the response on failure.
// It also returns the optional TOTP code from the body.
func (h *AuthHandler) authenticate(c *gin.Context, invalidMessage string) (*models.User, string, bool) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		respond.BadRequest(c, "Username and password are required")
		return nil, "", false
	}
	user, errFind := h.users.FindByUsername(c.Request.Context(), body.Username)
	if errFind != nil {
		if errors.Is(errFind, store.ErrNotFound) {
			respond.Error(c, http.StatusBadRequest, invalidMessage, "")
			return nil, "", false
		}
		respond.ServerError(c, errFind, "login: find user")
		return nil, "", false
	}
	if !security.CheckPassword(user.Password, body.Password) {
		respond.Error(c, http.StatusBadRequest, invalidMessage, "")
		return nil, "", false
	}
	if user.IsBanned {
		respond.Error(c, http.StatusForbidden, "Your account has been banned", access.ReasonBanned)
		return nil, "", false
	}
	return user, body.Code, true
}

func (h *AuthHandler) finishLogin(c *gin.Context, user *models.User) {
	if errLogin := session.Login(c, user.ID); errLogin != nil {
		respond.ServerError(c, errLogin, "login: save session")
		return
	}
	log.WithField("user", user.Username).Info("user signed in")
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    userView(user),
	})
}

// Logout destroys the session; it succeeds for anonymous callers too.
func (h *AuthHandler) Logout(c *gin.Context) {
	if errDestroy := session.Destroy(c); errDestroy != nil {
		log.WithError(errDestroy).Warn("logout: destroy session failed")
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Me returns the current user with solved challenges.
func (h *AuthHandler) Me(c *gin.Context) {
	current := access.CurrentUser(c)
	if current == nil {
		respond.Error(c, http.StatusUnauthorized, "Authentication required", access.ReasonAuthRequired)
		return
	}
	user, errFind := h.users.GetWithSolved(c.Request.Context(), current.ID)
	if errFind != nil {
		respond.ServerError(c, errFind, "me: load user")
		return
	}
	view := userView(user)
	view["solvedChallenges"] = solvedView(user.SolvedChallenges)
	c.JSON(http.StatusOK, gin.H{"user": view})
}

func userView(user *models.User) gin.H {
	return gin.H{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
		"isAdmin":  user.IsAdmin,
	}
}

func solvedView(rows []models.SolvedChallenge) []gin.H {
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"challengeId":     row.ChallengeID,
			"submissionIndex": row.SubmissionIndex,
			"solvedAt":        row.CreatedAt,
		})
	}
	return out
}
