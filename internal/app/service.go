package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path"
	"time"

	"github.com/google/uuid"

	"markboard/api/internal/access"
	"markboard/api/internal/auth"
	"markboard/api/internal/authpw"
	"markboard/api/internal/config"
	"markboard/api/internal/search"
	"markboard/api/internal/store"
	"markboard/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	Username     string
	Name         string
	Role         string
	JTI          string
	ExpiresAt    time.Time
}

type dataStore interface {
	GetBoard(ctx context.Context, boardID string) (store.Board, error)
	ListAllBoards(ctx context.Context) ([]store.Board, error)
	ListVisibleBoards(ctx context.Context, callerID string) ([]store.Board, error)
	ListSharedBoards(ctx context.Context, callerID string) ([]store.Board, error)
	InsertBoard(ctx context.Context, item store.Board) error
	UpdateBoardData(ctx context.Context, boardID, data string) error
	GetUserByID(ctx context.Context, userID string) (store.User, error)
	GetUserByUsername(ctx context.Context, username string) (store.User, error)
	UpdateUserImage(ctx context.Context, userID, imageURL string) error
	Ping(ctx context.Context) error
}

type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

type searcher interface {
	Search(q search.Query) search.Response
	IndexBoard(record search.BoardRecord)
	ReindexAll(records []search.BoardRecord)
}

// BlobStore is the object storage used for profile images. A nil BlobStore
// disables uploads.
type BlobStore interface {
	Upload(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) (string, error)
	Remove(ctx context.Context, objectName string) error
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions sessionStore
	search   searcher
	blobs    BlobStore
	authSvc  *authpw.Service
}

func New(cfg config.Config, dataStore *store.PostgresStore, searchSvc *search.Service, blobs BlobStore) *Service {
	return &Service{
		cfg:      cfg,
		store:    dataStore,
		sessions: dataStore,
		search:   searchSvc,
		blobs:    blobs,
		authSvc:  authpw.NewService(dataStore),
	}
}

// NewWithSessionStore uses a dedicated refresh-token backend (Redis) instead
// of the Postgres fallback.
func NewWithSessionStore(cfg config.Config, dataStore *store.PostgresStore, sessions sessionStore, searchSvc *search.Service, blobs BlobStore) *Service {
	svc := New(cfg, dataStore, searchSvc, blobs)
	svc.sessions = sessions
	return svc
}

func (s *Service) AuthPasswordService() *authpw.Service {
	return s.authSvc
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// PingSessions checks the refresh-token backend when it is a separate system
// (Redis). The Postgres fallback is already covered by Ping.
func (s *Service) PingSessions(ctx context.Context) error {
	if pinger, ok := s.sessions.(interface{ Ping(ctx context.Context) error }); ok {
		return pinger.Ping(ctx)
	}
	return nil
}

// Bootstrap rebuilds the search index from the boards table so Meilisearch
// catches up after downtime or a wiped volume.
func (s *Service) Bootstrap(ctx context.Context) error {
	if s.search == nil {
		return nil
	}
	boards, err := s.store.ListAllBoards(ctx)
	if err != nil {
		return fmt.Errorf("list boards: %w", err)
	}
	records := make([]search.BoardRecord, 0, len(boards))
	for _, board := range boards {
		records = append(records, search.BoardRecord{
			ID:       board.ID,
			Title:    board.Title,
			Data:     board.Data,
			AuthorID: board.AuthorID,
			IsPublic: board.IsPublic,
			Editors:  board.Editors,
		})
	}
	s.search.ReindexAll(records)
	return nil
}

// -- sessions --

func (s *Service) CreateSession(ctx context.Context, userID string) (Session, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, fmt.Errorf("load user: %w", err)
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	jti := util.NewID("")
	expiresAt := time.Now().Add(s.cfg.AccessTTL)
	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:      user.ID,
		Username: user.Username,
		Role:     user.Role,
		JTI:      jti,
		Exp:      expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refreshToken := newRefreshToken()
	refreshExpiry := time.Now().Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refreshToken), user.ID, refreshExpiry); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refreshToken,
		UserID:       user.ID,
		Username:     user.Username,
		Name:         user.Name,
		Role:         user.Role,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

// SessionFromToken resolves a bearer token into a session. Banned accounts
// stop resolving here, so every downstream operation sees them as anonymous.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, err
	}
	if isBanned(user) {
		return Session{}, auth.ErrInvalidToken
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		Username:  user.Username,
		Name:      user.Name,
		Role:      user.Role,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	user, err := s.sessions.LookupRefreshSession(ctx, auth.HashToken(refreshToken))
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	// Refresh against the authoritative row: the Redis record predates any
	// later ban or role change.
	fresh, err := s.store.GetUserByID(ctx, user.ID)
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	if isBanned(fresh) {
		return Session{}, auth.ErrInvalidToken
	}
	return s.issueSession(ctx, fresh)
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
}

func isBanned(user store.User) bool {
	if !user.Banned {
		return false
	}
	if user.BanExpires != nil && time.Now().After(*user.BanExpires) {
		return false
	}
	return true
}

// -- boards --

// ListBoards returns every board the caller may read. callerID may be empty
// for anonymous visitors, who see only public boards.
func (s *Service) ListBoards(ctx context.Context, callerID string) ([]map[string]any, error) {
	boards, err := s.store.ListVisibleBoards(ctx, callerID)
	if err != nil {
		return nil, storeFailure(err)
	}
	items := make([]map[string]any, 0, len(boards))
	for _, board := range boards {
		items = append(items, boardSummary(board))
	}
	return items, nil
}

// SharedBoards returns boards where the caller appears in the editor list.
func (s *Service) SharedBoards(ctx context.Context, callerID string) ([]map[string]any, error) {
	if callerID == "" {
		return nil, domainError(http.StatusUnauthorized, "AUTH_REQUIRED", "Sign in to view shared boards", nil)
	}
	boards, err := s.store.ListSharedBoards(ctx, callerID)
	if err != nil {
		return nil, storeFailure(err)
	}
	items := make([]map[string]any, 0, len(boards))
	for _, board := range boards {
		items = append(items, boardSummary(board))
	}
	return items, nil
}

// CreateBoard persists a new board owned by the caller. The editor list is
// normalized: duplicates and the author itself are dropped.
func (s *Service) CreateBoard(ctx context.Context, callerID, title string, isPublic bool, editorIDs []string) (map[string]any, error) {
	if callerID == "" {
		return nil, domainError(http.StatusUnauthorized, "AUTH_REQUIRED", "Sign in to create a board", nil)
	}
	if title == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}

	board := store.Board{
		ID:       util.NewID("brd"),
		AuthorID: callerID,
		Title:    title,
		IsPublic: isPublic,
		Editors:  access.NormalizeEditors(callerID, editorIDs),
		Data:     "",
	}
	if err := s.store.InsertBoard(ctx, board); err != nil {
		return nil, storeFailure(err)
	}
	s.indexBoard(board)

	created, err := s.store.GetBoard(ctx, board.ID)
	if err != nil {
		// The insert succeeded; answer from what we wrote.
		created = board
		created.CreatedAt = time.Now()
	}
	return boardPayload(created), nil
}

// GetBoard is the single gated accessor for board reads: it applies CanRead
// itself so no call site can forget to. NOT_FOUND and FORBIDDEN stay distinct
// here; the HTTP layer decides what to reveal.
func (s *Service) GetBoard(ctx context.Context, boardID, callerID string) (map[string]any, error) {
	board, err := s.lookupBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if !access.CanRead(board, callerID) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "You do not have access to this board", nil)
	}
	payload := boardPayload(board)
	// Editors configure their auto-save idle delay from this.
	payload["autosaveDebounceMs"] = s.cfg.DebounceMS
	return payload, nil
}

// SaveBoardContent replaces the full document after re-checking write access.
// Last writer wins: no version token is carried and concurrent saves race.
func (s *Service) SaveBoardContent(ctx context.Context, boardID, content, callerID string) (map[string]any, error) {
	board, err := s.lookupBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if !access.CanWrite(board, callerID) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "You do not have permission to edit this board", nil)
	}

	if err := s.store.UpdateBoardData(ctx, boardID, content); err != nil {
		return nil, storeFailure(err)
	}

	board.Data = content
	s.indexBoard(board)

	return map[string]any{"success": true, "message": "Board saved successfully"}, nil
}

func (s *Service) lookupBoard(ctx context.Context, boardID string) (store.Board, error) {
	board, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		if isNoRows(err) {
			return store.Board{}, domainError(http.StatusNotFound, "NOT_FOUND", "Board not found", nil)
		}
		return store.Board{}, storeFailure(err)
	}
	return board, nil
}

// SearchBoards runs a visibility-scoped search.
func (s *Service) SearchBoards(ctx context.Context, text, callerID string, limit, offset int) search.Response {
	return s.search.Search(search.Query{
		Text:     text,
		CallerID: callerID,
		Limit:    limit,
		Offset:   offset,
	})
}

func (s *Service) indexBoard(board store.Board) {
	if s.search == nil {
		return
	}
	s.search.IndexBoard(search.BoardRecord{
		ID:       board.ID,
		Title:    board.Title,
		Data:     board.Data,
		AuthorID: board.AuthorID,
		IsPublic: board.IsPublic,
		Editors:  board.Editors,
	})
}

// -- users --

// UserProfile returns the public fields of an account.
func (s *Service) UserProfile(ctx context.Context, username string) (map[string]any, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if isNoRows(err) {
			return nil, domainError(http.StatusNotFound, "NOT_FOUND", "User not found", nil)
		}
		return nil, storeFailure(err)
	}
	return map[string]any{
		"id":       user.ID,
		"name":     user.Name,
		"username": user.Username,
		"image":    user.Image,
	}, nil
}

// UploadProfileImage stores an image in the blob store and records its
// public URL on the account.
func (s *Service) UploadProfileImage(ctx context.Context, callerID, extension string, r io.Reader, size int64, contentType string) (string, error) {
	if s.blobs == nil {
		return "", domainError(http.StatusServiceUnavailable, "UPLOADS_UNAVAILABLE", "Image uploads are not configured", nil)
	}

	previous := ""
	if user, err := s.store.GetUserByID(ctx, callerID); err == nil {
		previous = user.Image
	}

	objectName := uuid.NewString() + extension
	url, err := s.blobs.Upload(ctx, objectName, r, size, contentType)
	if err != nil {
		return "", storeFailure(err)
	}
	if err := s.store.UpdateUserImage(ctx, callerID, url); err != nil {
		return "", storeFailure(err)
	}

	// Best effort: the replaced image is garbage now.
	if old := path.Base(previous); previous != "" && old != "." && old != "/" {
		if err := s.blobs.Remove(ctx, old); err != nil {
			log.Printf("remove old profile image %s: %v", old, err)
		}
	}
	return url, nil
}

// -- payload helpers --

func boardSummary(board store.Board) map[string]any {
	return map[string]any{
		"boardId":   board.ID,
		"authorId":  board.AuthorID,
		"title":     board.Title,
		"isPublic":  board.IsPublic,
		"editors":   board.Editors,
		"createdAt": board.CreatedAt,
	}
}

func boardPayload(board store.Board) map[string]any {
	payload := boardSummary(board)
	payload["data"] = board.Data
	return payload
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func storeFailure(err error) *DomainError {
	log.Printf("store failure: %v", err)
	return domainError(http.StatusInternalServerError, "STORE_FAILURE", "Storage unavailable, try again", nil)
}

func newRefreshToken() string {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
