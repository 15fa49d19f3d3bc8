// Command mdedit is a minimal line-oriented client for editing a board from
// the terminal. Lines typed at the prompt are appended to the document and
// auto-saved after a short idle period, the same way the web editor behaves.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"markboard/api/internal/apiclient"
	"markboard/api/internal/editor"
)

func main() {
	_ = godotenv.Load()

	addr := flag.String("addr", "http://localhost:8686", "API base URL")
	boardID := flag.String("board", "", "board ID to edit")
	email := flag.String("email", os.Getenv("MARKBOARD_EMAIL"), "account email")
	password := flag.String("password", os.Getenv("MARKBOARD_PASSWORD"), "account password")
	debounce := flag.Duration("debounce", 0, "auto-save idle delay (default: server-advertised)")
	flag.Parse()

	if *boardID == "" {
		log.Fatal("usage: mdedit -board <id> [-addr url] [-email e -password p]")
	}

	ctx := context.Background()
	client := apiclient.New(*addr)

	if *email != "" {
		if err := client.SignIn(ctx, *email, *password); err != nil {
			log.Fatalf("sign in failed: %v", err)
		}
	}

	board, err := client.GetBoard(ctx, *boardID)
	if err != nil {
		log.Fatalf("load board failed: %v", err)
	}

	idle := *debounce
	if idle <= 0 && board.AutosaveDebounceMs > 0 {
		idle = time.Duration(board.AutosaveDebounceMs) * time.Millisecond
	}

	session := editor.NewSession(editor.Config{
		BoardID:  board.ID,
		Initial:  board.Data,
		Debounce: idle,
		Save: func(ctx context.Context, boardID, content string) error {
			return client.SaveBoardContent(ctx, boardID, content)
		},
		OnStatus: func(status editor.Status) {
			fmt.Printf("\r[%s]\n", status)
		},
		OnNotice: func(kind editor.NoticeKind, message string) {
			fmt.Printf("\r%s: %s\n", kind, message)
		},
	})
	defer session.Close()

	fmt.Printf("Editing %q (%d bytes). Type lines to append, :w to save, :q to quit.\n",
		board.Title, len(board.Data))

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()

		switch strings.TrimSpace(line) {
		case ":q":
			if session.Dirty() {
				fmt.Println("unsaved changes, saving before exit")
				if err := session.SaveNow(ctx); err != nil {
					log.Fatalf("final save failed: %v", err)
				}
			}
			return
		case ":w":
			if err := session.SaveNow(ctx); err != nil {
				fmt.Printf("save failed: %v\n", err)
			}
		default:
			buffer := session.Buffer()
			if buffer != "" && !strings.HasSuffix(buffer, "\n") {
				buffer += "\n"
			}
			session.Edit(buffer + line)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("read stdin: %v", err)
	}

	// stdin closed; flush whatever is left before exiting.
	if session.Dirty() {
		saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := session.SaveNow(saveCtx); err != nil {
			log.Fatalf("final save failed: %v", err)
		}
	}
}
