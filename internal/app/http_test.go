package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"markboard/api/internal/store"
)

func newTestServer(t *testing.T, fs *fakeStore) (*httptest.Server, *Service) {
	t.Helper()
	svc := newTestService(fs)
	server := httptest.NewServer(NewHTTPServer(svc, "*").Handler())
	t.Cleanup(server.Close)
	return server, svc
}

func signedIn(t *testing.T, svc *Service, userID string) string {
	t.Helper()
	session, err := svc.CreateSession(context.Background(), userID)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return session.Token
}

func doRequest(t *testing.T, method, url, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	return resp
}

func decodeResponse(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return payload
}

func boardFixtureStore() *fakeStore {
	return &fakeStore{
		getUserByID: func(ctx context.Context, userID string) (store.User, error) {
			return testUser(userID), nil
		},
		getBoard: func(ctx context.Context, boardID string) (store.Board, error) {
			switch boardID {
			case "brd_private":
				return store.Board{ID: boardID, AuthorID: "alice", IsPublic: false, Editors: []string{"bob"}, Data: "secret"}, nil
			case "brd_public":
				return store.Board{ID: boardID, AuthorID: "alice", IsPublic: true, Data: "hello"}, nil
			default:
				return store.Board{}, sql.ErrNoRows
			}
		},
		updateBoardData: func(ctx context.Context, boardID, data string) error {
			return nil
		},
	}
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t, &fakeStore{})

	resp, err := http.Get(server.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	payload := decodeResponse(t, resp)
	if payload["ok"] != true {
		t.Fatalf("payload = %v", payload)
	}
}

func TestCreateBoardRequiresBearer(t *testing.T) {
	server, _ := newTestServer(t, &fakeStore{})

	resp := doRequest(t, http.MethodPost, server.URL+"/api/boards", "", `{"title":"X"}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	payload := decodeResponse(t, resp)
	if payload["code"] != "UNAUTHORIZED" {
		t.Fatalf("code = %v", payload["code"])
	}
}

func TestCreateBoardRejectsGarbageToken(t *testing.T) {
	server, _ := newTestServer(t, &fakeStore{})

	resp := doRequest(t, http.MethodPost, server.URL+"/api/boards", "not-a-token", `{"title":"X"}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestGetPublicBoardAnonymously(t *testing.T) {
	server, _ := newTestServer(t, boardFixtureStore())

	resp := doRequest(t, http.MethodGet, server.URL+"/api/boards/brd_public", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	payload := decodeResponse(t, resp)
	if payload["data"] != "hello" {
		t.Fatalf("data = %v, want hello", payload["data"])
	}
}

// Missing and off-limits boards answer identically so probing a board ID
// reveals nothing.
func TestGetBoardDenialsLookAlike(t *testing.T) {
	server, svc := newTestServer(t, boardFixtureStore())
	token := signedIn(t, svc, "mallory")

	for _, boardID := range []string{"brd_private", "brd_nope"} {
		resp := doRequest(t, http.MethodGet, server.URL+"/api/boards/"+boardID, token, "")
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("board %s status = %d, want 404", boardID, resp.StatusCode)
		}
		payload := decodeResponse(t, resp)
		if payload["error"] != "Board not found" {
			t.Fatalf("board %s error = %v, want generic message", boardID, payload["error"])
		}
	}
}

func TestGetPrivateBoardAsEditor(t *testing.T) {
	server, svc := newTestServer(t, boardFixtureStore())
	token := signedIn(t, svc, "bob")

	resp := doRequest(t, http.MethodGet, server.URL+"/api/boards/brd_private", token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	payload := decodeResponse(t, resp)
	if payload["data"] != "secret" {
		t.Fatalf("data = %v, want secret", payload["data"])
	}
}

func TestSaveDenialsLookAlike(t *testing.T) {
	server, svc := newTestServer(t, boardFixtureStore())
	token := signedIn(t, svc, "mallory")

	// Readable-but-not-writable and missing boards both answer the same 403.
	for _, boardID := range []string{"brd_public", "brd_nope"} {
		resp := doRequest(t, http.MethodPut, server.URL+"/api/boards/"+boardID+"/content", token, `{"content":"x"}`)
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("board %s status = %d, want 403", boardID, resp.StatusCode)
		}
		payload := decodeResponse(t, resp)
		if payload["code"] != "FORBIDDEN" {
			t.Fatalf("board %s code = %v", boardID, payload["code"])
		}
	}
}

func TestSaveBoardContentAsAuthor(t *testing.T) {
	server, svc := newTestServer(t, boardFixtureStore())
	token := signedIn(t, svc, "alice")

	resp := doRequest(t, http.MethodPut, server.URL+"/api/boards/brd_private/content", token, `{"content":"# updated"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	payload := decodeResponse(t, resp)
	if payload["success"] != true {
		t.Fatalf("payload = %v", payload)
	}
}

func TestSaveBoardContentInvalidBody(t *testing.T) {
	server, svc := newTestServer(t, boardFixtureStore())
	token := signedIn(t, svc, "alice")

	resp := doRequest(t, http.MethodPut, server.URL+"/api/boards/brd_private/content", token, `{broken`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	payload := decodeResponse(t, resp)
	if payload["code"] != "INVALID_BODY" {
		t.Fatalf("code = %v", payload["code"])
	}
}

func TestListBoardsAnonymousOverHTTP(t *testing.T) {
	fs := boardFixtureStore()
	fs.listVisibleBoards = func(ctx context.Context, callerID string) ([]store.Board, error) {
		if callerID != "" {
			t.Errorf("anonymous list passed callerID %q", callerID)
		}
		return []store.Board{{ID: "brd_public", AuthorID: "alice", Title: "Hello", IsPublic: true}}, nil
	}
	server, _ := newTestServer(t, fs)

	resp := doRequest(t, http.MethodGet, server.URL+"/api/boards", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	payload := decodeResponse(t, resp)
	boards, ok := payload["boards"].([]any)
	if !ok || len(boards) != 1 {
		t.Fatalf("boards = %v", payload["boards"])
	}
}

func TestSessionEndpointWithoutToken(t *testing.T) {
	server, _ := newTestServer(t, &fakeStore{})

	resp := doRequest(t, http.MethodGet, server.URL+"/api/session", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	payload := decodeResponse(t, resp)
	if payload["authenticated"] != false {
		t.Fatalf("payload = %v", payload)
	}
}

func TestSessionRefreshAndLogoutOverHTTP(t *testing.T) {
	server, svc := newTestServer(t, boardFixtureStore())

	session, err := svc.CreateSession(context.Background(), "alice")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	resp := doRequest(t, http.MethodPost, server.URL+"/api/session/refresh", "", `{"refreshToken":"`+session.RefreshToken+`"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh status = %d, want 200", resp.StatusCode)
	}
	payload := decodeResponse(t, resp)
	next, _ := payload["refreshToken"].(string)
	if next == "" {
		t.Fatal("refresh response missing refreshToken")
	}

	resp = doRequest(t, http.MethodPost, server.URL+"/api/session/logout", "", `{"refreshToken":"`+next+`"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doRequest(t, http.MethodPost, server.URL+"/api/session/refresh", "", `{"refreshToken":"`+next+`"}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("revoked refresh status = %d, want 401", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestUnknownRouteIs404(t *testing.T) {
	server, _ := newTestServer(t, &fakeStore{})

	resp := doRequest(t, http.MethodGet, server.URL+"/api/nope", "", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}
