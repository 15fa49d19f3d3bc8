package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientRoundTrip(t *testing.T) {
	var savedContent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method + " " + r.URL.Path {
		case "POST /api/auth/signin":
			json.NewEncoder(w).Encode(map[string]string{"accessToken": "tok-123"})
		case "GET /api/boards/brd_1":
			if r.Header.Get("Authorization") != "Bearer tok-123" {
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"code": "UNAUTHORIZED", "error": "Unauthorized"})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"boardId": "brd_1", "title": "Notes", "data": "# hi"})
		case "PUT /api/boards/brd_1/content":
			var body struct {
				Content string `json:"content"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			savedContent = body.Content
			json.NewEncoder(w).Encode(map[string]any{"success": true})
		default:
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"code": "NOT_FOUND", "error": "Not found"})
		}
	}))
	defer server.Close()

	client := New(server.URL)
	ctx := context.Background()

	if err := client.SignIn(ctx, "a@example.com", "password1"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	board, err := client.GetBoard(ctx, "brd_1")
	if err != nil {
		t.Fatalf("GetBoard: %v", err)
	}
	if board.Data != "# hi" || board.Title != "Notes" {
		t.Fatalf("board = %+v", board)
	}

	if err := client.SaveBoardContent(ctx, "brd_1", "# updated"); err != nil {
		t.Fatalf("SaveBoardContent: %v", err)
	}
	if savedContent != "# updated" {
		t.Fatalf("server received %q", savedContent)
	}
}

func TestClientSurfacesAPIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"code": "FORBIDDEN", "error": "You do not have permission to edit this board"})
	}))
	defer server.Close()

	client := New(server.URL)
	err := client.SaveBoardContent(context.Background(), "brd_1", "x")
	if err == nil {
		t.Fatal("expected error")
	}
	want := "PUT /api/boards/brd_1/content: You do not have permission to edit this board (FORBIDDEN)"
	if err.Error() != want {
		t.Fatalf("err = %q, want %q", err.Error(), want)
	}
}
