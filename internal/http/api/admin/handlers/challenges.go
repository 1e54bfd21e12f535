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
	internalsettings "github.com/router-for-me/CTFPlatform/internal/settings"
	"github.com/router-for-me/CTFPlatform/internal/store"
	"github.com/router-for-me/CTFPlatform/internal/uploads"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// deadlineLayouts are accepted for the deadline field, most specific first.
var deadlineLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

var (
	errInvalidCategory = errors.New("invalid category")
	errInvalidDeadline = errors.New("invalid deadline")
)

// ChallengeHandler manages challenges and their attachments.
type ChallengeHandler struct {
	challenges *store.ChallengeStore
	files      *uploads.Storage
}

// NewChallengeHandler constructs a ChallengeHandler.
func NewChallengeHandler(db *gorm.DB, files *uploads.Storage) *ChallengeHandler {
	return &ChallengeHandler{challenges: store.NewChallengeStore(db), files: files}
}

// challengeForm binds multipart or JSON challenge payloads.
type challengeForm struct {
	Title       string `form:"title" json:"title"`
	Description string `form:"description" json:"description"`
	Category    string `form:"category" json:"category"`
	Flag        string `form:"flag" json:"flag"`
	Hint        string `form:"hint" json:"hint"`
	Author      string `form:"author" json:"author"`
	FileURL     string `form:"fileUrl" json:"fileUrl"`
	Deadline    string `form:"deadline" json:"deadline"`
	RemoveFile  bool   `form:"removeFile" json:"removeFile"`
}

// List returns all challenges including flags.
func (h *ChallengeHandler) List(c *gin.Context) {
	rows, errList := h.challenges.List(c.Request.Context())
	if errList != nil {
		respond.ServerError(c, errList, "admin challenges: list")
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, adminChallengeView(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"challenges": out})
}

// Get returns one challenge including its flag.
func (h *ChallengeHandler) Get(c *gin.Context) {
	challenge, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"challenge": adminChallengeView(challenge)})
}

// Create stores a new challenge with an optional file.
func (h *ChallengeHandler) Create(c *gin.Context) {
	var body challengeForm
	if errBind := c.ShouldBind(&body); errBind != nil {
		respond.BadRequest(c, "Invalid request body")
		return
	}
	title := strings.TrimSpace(body.Title)
	description := body.Description
	flag := strings.TrimSpace(body.Flag)
	if title == "" || strings.TrimSpace(description) == "" || flag == "" {
		respond.BadRequest(c, "Title, description and flag are required")
		return
	}
	category, errCategory := normalizeCategory(body.Category)
	if errCategory != nil {
		respond.BadRequest(c, "Invalid category")
		return
	}
	deadline, errDeadline := parseDeadline(body.Deadline)
	if errDeadline != nil {
		respond.BadRequest(c, "Invalid deadline")
		return
	}
	author := strings.TrimSpace(body.Author)
	if author == "" {
		if admin := access.CurrentUser(c); admin != nil {
			author = admin.Username
		}
	}

	challenge := &models.Challenge{
		Title:       title,
		Description: description,
		Category:    category,
		Flag:        flag,
		Hint:        strings.TrimSpace(body.Hint),
		Author:      author,
		FileURL:     strings.TrimSpace(body.FileURL),
		Deadline:    deadline,
	}
	stored, ok := h.saveUpload(c)
	if !ok {
		return
	}
	challenge.SetStoredFile(stored)

	if errCreate := h.challenges.Create(c.Request.Context(), challenge); errCreate != nil {
		h.discard(stored)
		respond.ServerError(c, errCreate, "admin challenges: create")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":   "Challenge created successfully",
		"challenge": adminChallengeView(challenge),
	})
}

// Update changes the non-empty fields of a challenge and optionally replaces
// or removes its file. The previous file is deleted only after the row is saved.
func (h *ChallengeHandler) Update(c *gin.Context) {
	challenge, ok := h.load(c)
	if !ok {
		return
	}
	var body challengeForm
	if errBind := c.ShouldBind(&body); errBind != nil {
		respond.BadRequest(c, "Invalid request body")
		return
	}

	if v := strings.TrimSpace(body.Title); v != "" {
		challenge.Title = v
	}
	if strings.TrimSpace(body.Description) != "" {
		challenge.Description = body.Description
	}
	if v := strings.TrimSpace(body.Flag); v != "" {
		challenge.Flag = v
	}
	if v := strings.TrimSpace(body.Hint); v != "" {
		challenge.Hint = v
	}
	if v := strings.TrimSpace(body.Author); v != "" {
		challenge.Author = v
	}
	if v := strings.TrimSpace(body.FileURL); v != "" {
		challenge.FileURL = v
	}
	if strings.TrimSpace(body.Category) != "" {
		category, errCategory := normalizeCategory(body.Category)
		if errCategory != nil {
			respond.BadRequest(c, "Invalid category")
			return
		}
		challenge.Category = category
	}
	if strings.TrimSpace(body.Deadline) != "" {
		deadline, errDeadline := parseDeadline(body.Deadline)
		if errDeadline != nil {
			respond.BadRequest(c, "Invalid deadline")
			return
		}
		challenge.Deadline = deadline
	}

	previous, hadFile := challenge.StoredFile()
	stored, ok := h.saveUpload(c)
	if !ok {
		return
	}
	replaced := false
	switch {
	case stored != nil:
		challenge.SetStoredFile(stored)
		replaced = hadFile
	case body.RemoveFile && hadFile:
		challenge.SetStoredFile(nil)
		replaced = true
	}

	if errSave := h.challenges.Save(c.Request.Context(), challenge); errSave != nil {
		h.discard(stored)
		if errors.Is(errSave, store.ErrNotFound) {
			respond.NotFound(c, "Challenge not found")
			return
		}
		respond.ServerError(c, errSave, "admin challenges: update")
		return
	}
	if replaced {
		h.discard(&previous)
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   "Challenge updated successfully",
		"challenge": adminChallengeView(challenge),
	})
}

// Delete removes a challenge and its file. Solved entries are kept.
func (h *ChallengeHandler) Delete(c *gin.Context) {
	challenge, ok := h.load(c)
	if !ok {
		return
	}
	if errDelete := h.challenges.Delete(c.Request.Context(), challenge.ID); errDelete != nil {
		if errors.Is(errDelete, store.ErrNotFound) {
			respond.NotFound(c, "Challenge not found")
			return
		}
		respond.ServerError(c, errDelete, "admin challenges: delete")
		return
	}
	if file, hasFile := challenge.StoredFile(); hasFile {
		h.discard(&file)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Challenge deleted successfully"})
}

func (h *ChallengeHandler) load(c *gin.Context) (*models.Challenge, bool) {
	id, ok := respond.ParamID(c, "id")
	if !ok {
		return nil, false
	}
	challenge, errGet := h.challenges.Get(c.Request.Context(), id)
	if errGet != nil {
		if errors.Is(errGet, store.ErrNotFound) {
			respond.NotFound(c, "Challenge not found")
			return nil, false
		}
		respond.ServerError(c, errGet, "admin challenges: get")
		return nil, false
	}
	return challenge, true
}

// saveUpload stores the optional "file" form field. A nil result with ok=true
// means no file was sent.
func (h *ChallengeHandler) saveUpload(c *gin.Context) (*models.ChallengeFile, bool) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return nil, true
	}
	header, errFile := c.FormFile("file")
	if errFile != nil {
		if errors.Is(errFile, http.ErrMissingFile) {
			return nil, true
		}
		respond.BadRequest(c, "Invalid file upload")
		return nil, false
	}
	stored, errSave := h.files.Save(header)
	if errSave != nil {
		if errors.Is(errSave, uploads.ErrTooLarge) {
			respond.BadRequest(c, "File too large")
			return nil, false
		}
		respond.ServerError(c, errSave, "admin challenges: save upload")
		return nil, false
	}
	return stored, true
}

func (h *ChallengeHandler) discard(file *models.ChallengeFile) {
	if file == nil || file.Filename == "" {
		return
	}
	if errRemove := h.files.Remove(file.Filename); errRemove != nil {
		log.WithError(errRemove).WithField("file", file.Filename).Warn("admin challenges: remove file failed")
	}
}

func normalizeCategory(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return internalsettings.DefaultChallengeCategory, nil
	}
	for _, category := range internalsettings.ChallengeCategories {
		if strings.EqualFold(category, trimmed) {
			return category, nil
		}
	}
	return "", errInvalidCategory
}

func parseDeadline(raw string) (*time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	for _, layout := range deadlineLayouts {
		if parsed, errParse := time.Parse(layout, trimmed); errParse == nil {
			utc := parsed.UTC()
			return &utc, nil
		}
	}
	return nil, errInvalidDeadline
}

func adminChallengeView(ch *models.Challenge) gin.H {
	view := gin.H{
		"id":          ch.ID,
		"title":       ch.Title,
		"description": ch.Description,
		"category":    ch.Category,
		"flag":        ch.Flag,
		"hint":        ch.Hint,
		"deadline":    ch.Deadline,
		"author":      ch.Author,
		"fileUrl":     ch.FileURL,
		"file":        nil,
		"createdAt":   ch.CreatedAt,
		"updatedAt":   ch.UpdatedAt,
	}
	if file, ok := ch.StoredFile(); ok {
		view["file"] = file
	}
	return view
}
