package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	gormsessions "github.com/gin-contrib/sessions/gorm"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// userIDKey is the session value holding the authenticated user id.
const userIDKey = "userId"

// Options configures the session store and cookie.
type Options struct {
	Name           string
	Secret         string
	TTL            time.Duration
	Secure         bool
	CleanupExpired bool
}

// recordTable is the table gormstore keeps session records in.
const recordTable = "sessions"

// storeContextKey exposes the Store to Login and Destroy.
const storeContextKey = "sessionStore"

// Store is a server-side session store backed by the application database,
// so every process sharing the database sees the same sessions.
type Store struct {
	sessions.Store
	db     *gorm.DB
	cookie sessions.Options
}

// NewStore builds the database-backed session store.
func NewStore(db *gorm.DB, opts Options) (*Store, error) {
	if db == nil {
		return nil, errors.New("session: nil db")
	}
	if len(opts.Secret) < 16 {
		return nil, errors.New("session: secret must be at least 16 bytes")
	}
	backend := gormsessions.NewStore(db, opts.CleanupExpired, []byte(opts.Secret))
	cookie := cookieOptions(opts.TTL, opts.Secure)
	backend.Options(cookie)
	return &Store{Store: backend, db: db, cookie: cookie}, nil
}

// Middleware attaches the named session to each request.
func Middleware(name string, store *Store) gin.HandlerFunc {
	attach := sessions.Sessions(name, store.Store)
	return func(c *gin.Context) {
		c.Set(storeContextKey, store)
		attach(c)
	}
}

func cookieOptions(ttl time.Duration, secure bool) sessions.Options {
	return sessions.Options{
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func storeFrom(c *gin.Context) *Store {
	v, ok := c.Get(storeContextKey)
	if !ok {
		return nil
	}
	store, _ := v.(*Store)
	return store
}

// Login binds a fresh session to userID. Any record the request arrived with
// is deleted first, so a token issued before sign-in never carries the new identity.
func Login(c *gin.Context, userID uint64) error {
	store := storeFrom(c)
	if store == nil {
		return errors.New("session: middleware not installed")
	}
	s := sessions.Default(c)
	if previous := s.ID(); previous != "" {
		if errDelete := store.db.WithContext(c.Request.Context()).
			Exec("DELETE FROM "+recordTable+" WHERE id = ?", previous).Error; errDelete != nil {
			return fmt.Errorf("session: rotate: %w", errDelete)
		}
	}
	s.Clear()
	// A Destroy earlier in the same request leaves MaxAge -1 on this session.
	s.Options(store.cookie)
	s.Set(userIDKey, userID)
	return s.Save()
}

// UserID returns the authenticated user id, if any.
func UserID(c *gin.Context) (uint64, bool) {
	s := sessions.Default(c)
	switch v := s.Get(userIDKey).(type) {
	case uint64:
		return v, v > 0
	case int64:
		return uint64(v), v > 0
	case int:
		return uint64(v), v > 0
	default:
		return 0, false
	}
}

// Destroy invalidates the server-side record and expires the cookie.
func Destroy(c *gin.Context) error {
	expired := cookieOptions(0, false)
	if store := storeFrom(c); store != nil {
		expired = store.cookie
	}
	expired.MaxAge = -1
	s := sessions.Default(c)
	s.Clear()
	s.Options(expired)
	return s.Save()
}
