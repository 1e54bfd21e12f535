package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/CTFPlatform/internal/http/respond"
	"github.com/router-for-me/CTFPlatform/internal/models"
	"github.com/router-for-me/CTFPlatform/internal/security"
	internalsettings "github.com/router-for-me/CTFPlatform/internal/settings"
	"github.com/router-for-me/CTFPlatform/internal/store"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// InitRequest contains the first admin account.
type InitRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// InitStatusResponse reports whether initialization is complete. Database is
// only disclosed while the platform is still waiting for its first admin.
type InitStatusResponse struct {
	Initialized bool          `json:"initialized"`
	Database    *databaseInfo `json:"database,omitempty"`
}

// ErrAlreadyInitialized is returned when an admin account already exists.
var ErrAlreadyInitialized = errors.New("app: already initialized")

// HasAdminInitialized reports whether the system has at least one admin account.
func HasAdminInitialized(conn *gorm.DB) (bool, error) {
	if conn == nil {
		return false, fmt.Errorf("nil db")
	}
	if !conn.Migrator().HasTable(&models.User{}) {
		return false, nil
	}
	var count int64
	if errCount := conn.Model(&models.User{}).Where("is_admin = ?", true).Count(&count).Error; errCount != nil {
		return false, errCount
	}
	return count > 0, nil
}

// CreateAdminUserWithConn creates an admin account.
func CreateAdminUserWithConn(ctx context.Context, conn *gorm.DB, username, email, password string) (*models.User, error) {
	if conn == nil {
		return nil, fmt.Errorf("open database: nil connection")
	}
	hashedPassword, errHash := security.HashPassword(password)
	if errHash != nil {
		return nil, fmt.Errorf("hash password: %w", errHash)
	}
	admin := &models.User{
		Username: username,
		Email:    email,
		Password: hashedPassword,
		IsAdmin:  true,
	}
	if errCreate := store.NewUserStore(conn).Create(ctx, admin); errCreate != nil {
		return nil, fmt.Errorf("create admin: %w", errCreate)
	}
	return admin, nil
}

// initializer serializes first-admin creation within the process.
type initializer struct {
	conn  *gorm.DB
	dsn   string
	mu    sync.Mutex
	state atomic.Bool
}

func registerInitRoutes(r *gin.Engine, conn *gorm.DB, dsn string) {
	flow := &initializer{conn: conn, dsn: dsn}
	if done, errInit := HasAdminInitialized(conn); errInit == nil {
		flow.state.Store(done)
	}
	r.GET("/api/init/status", flow.status)
	r.POST("/api/init/setup", flow.setup)
}

func (i *initializer) initialized() (bool, error) {
	if i.state.Load() {
		return true, nil
	}
	done, errInit := HasAdminInitialized(i.conn)
	if errInit != nil {
		return false, errInit
	}
	if done {
		i.state.Store(true)
	}
	return done, nil
}

func (i *initializer) status(c *gin.Context) {
	done, errInit := i.initialized()
	if errInit != nil {
		respond.ServerError(c, errInit, "init: check admin status")
		return
	}
	resp := InitStatusResponse{Initialized: done}
	if !done {
		if info, errDescribe := describeDatabase(i.dsn); errDescribe == nil {
			resp.Database = &info
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (i *initializer) setup(c *gin.Context) {
	var req InitRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		respond.BadRequest(c, "Username, a valid email and a password are required")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Username == "" {
		respond.BadRequest(c, "Admin username is required")
		return
	}
	if len(req.Password) < internalsettings.MinPasswordLength {
		respond.BadRequest(c, fmt.Sprintf("Password must be at least %d characters", internalsettings.MinPasswordLength))
		return
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	done, errInit := i.initialized()
	if errInit != nil {
		respond.ServerError(c, errInit, "init: check admin status")
		return
	}
	if done {
		respond.BadRequest(c, "System already initialized")
		return
	}

	admin, errAdmin := CreateAdminUserWithConn(c.Request.Context(), i.conn, req.Username, req.Email, req.Password)
	if errAdmin != nil {
		if errors.Is(errAdmin, store.ErrDuplicate) {
			respond.Error(c, http.StatusBadRequest, "User with that email or username already exists", respond.ReasonDuplicate)
			return
		}
		respond.ServerError(c, errAdmin, "init: create admin")
		return
	}
	i.state.Store(true)
	log.WithField("username", admin.Username).Info("first admin created")
	c.JSON(http.StatusOK, gin.H{"message": "Initialization successful"})
}
