package main

import (
	"bufio"
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/quickienotes/quickie/internal/auth"
	"github.com/quickienotes/quickie/internal/config"
	"github.com/quickienotes/quickie/internal/media"
	"github.com/quickienotes/quickie/internal/notes"
	"github.com/quickienotes/quickie/internal/remote"
	"github.com/quickienotes/quickie/internal/storage"
	"github.com/quickienotes/quickie/internal/store"
)

func main() {
	cfg, err := config.Load(config.DefaultConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	kv, err := storage.NewSQLiteKV(cfg.KVPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer kv.Close()

	client := remote.NewClient(cfg.Server.URL)

	var backend remote.Store
	if cfg.Server.Enabled {
		backend = client
	}

	opts := []store.Option{}
	if cfg.PersistDelay > 0 {
		opts = append(opts, store.WithPersistDelay(cfg.PersistDelay))
	}

	st := store.New(kv, backend, media.FileSource{}, opts...)
	defer st.Close()

	session := auth.NewSession(kv, client)
	session.Subscribe(st.HandleAuth)

	ctx := context.Background()

	st.Load(ctx)
	if err := session.Restore(); err != nil {
		fmt.Fprintf(os.Stderr, "Session restore failed: %v\n", err)
	}

	repl(ctx, st, session)
}

func repl(ctx context.Context, st *store.Store, session *auth.Session) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("quickie — type 'help' for commands")

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		cmd, rest := splitCommand(line)
		switch cmd {
		case "help":
			printHelp()
		case "add":
			cmdAdd(ctx, st, rest)
		case "update":
			cmdUpdate(ctx, st, rest)
		case "delete":
			cmdDelete(ctx, st, rest)
		case "attach":
			cmdAttach(ctx, st, rest)
		case "list":
			printNotes(st.State().FilteredNotes)
		case "search":
			st.SetSearchQuery(rest)
			printNotes(st.State().FilteredNotes)
		case "login":
			cmdLogin(ctx, scanner, session, false)
		case "register":
			cmdLogin(ctx, scanner, session, true)
		case "logout":
			session.SignOut()
			fmt.Println("signed out")
		case "status":
			cmdStatus(st, session)
		case "quit", "exit":
			return
		default:
			fmt.Printf("unknown command %q, try 'help'\n", cmd)
		}
	}
}

func splitCommand(line string) (string, string) {
	parts := strings.SplitN(line, " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.TrimSpace(parts[1])
}

func printHelp() {
	fmt.Println(`commands:
  add <title> | <content>         create a note
  update <id> <title> | <content> replace a note's text
  attach <id> <path>              attach a local file
  delete <id>                     delete a note
  list                            show notes (filtered)
  search <text>                   filter by title; empty text clears
  login / register                authenticate against the server
  logout                          sign out
  status                          session and sync state
  quit                            exit`)
}

func cmdAdd(ctx context.Context, st *store.Store, rest string) {
	title, content := splitTitleContent(rest)
	note, err := st.AddNote(ctx, title, content, nil)
	if err != nil {
		fmt.Printf("add failed: %v\n", err)
		return
	}
	fmt.Printf("added %s\n", note.ID)
}

func cmdUpdate(ctx context.Context, st *store.Store, rest string) {
	id, text := splitCommand(rest)
	if id == "" {
		fmt.Println("usage: update <id> <title> | <content>")
		return
	}
	existing := findNote(st, id)
	if existing == nil {
		fmt.Println("no such note")
		return
	}
	title, content := splitTitleContent(text)
	if err := st.UpdateNote(ctx, id, title, content, existing.Attachments); err != nil {
		fmt.Printf("update failed: %v\n", err)
	}
}

func cmdDelete(ctx context.Context, st *store.Store, rest string) {
	if rest == "" {
		fmt.Println("usage: delete <id>")
		return
	}
	st.DeleteNote(ctx, rest)
}

func cmdAttach(ctx context.Context, st *store.Store, rest string) {
	id, path := splitCommand(rest)
	if id == "" || path == "" {
		fmt.Println("usage: attach <id> <path>")
		return
	}
	existing := findNote(st, id)
	if existing == nil {
		fmt.Println("no such note")
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("attach failed: %v\n", err)
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	att := notes.Attachment{
		URI:  "file://" + path,
		Type: contentType,
		Name: filepath.Base(path),
		Size: info.Size(),
	}

	updated := append(append([]notes.Attachment{}, existing.Attachments...), att)
	if err := st.UpdateNote(ctx, id, existing.Title, existing.Content, updated); err != nil {
		fmt.Printf("attach failed: %v\n", err)
	}
}

func cmdLogin(ctx context.Context, scanner *bufio.Scanner, session *auth.Session, register bool) {
	fmt.Print("email: ")
	if !scanner.Scan() {
		return
	}
	email := strings.TrimSpace(scanner.Text())

	fmt.Print("password: ")
	if !scanner.Scan() {
		return
	}
	password := scanner.Text()

	var identity *auth.Identity
	var err error
	if register {
		identity, err = session.Register(ctx, email, password)
	} else {
		identity, err = session.SignIn(ctx, email, password)
	}
	if err != nil {
		fmt.Printf("auth failed: %v\n", err)
		return
	}
	fmt.Printf("signed in as %s\n", identity.Email)
}

func cmdStatus(st *store.Store, session *auth.Session) {
	state := st.State()
	if identity := session.Current(); identity != nil {
		fmt.Printf("signed in: %s\n", identity.Email)
	} else {
		fmt.Println("signed out")
	}
	fmt.Printf("notes: %d/%d\n", len(state.Notes), notes.MaxNotesPerUser)
	if state.IsSyncing {
		fmt.Println("syncing...")
	} else if t := st.LastSyncAt(); !t.IsZero() {
		fmt.Printf("last sync: %s\n", t.Format("15:04:05"))
	}
}

func splitTitleContent(rest string) (string, string) {
	parts := strings.SplitN(rest, "|", 2)
	title := strings.TrimSpace(parts[0])
	content := ""
	if len(parts) == 2 {
		content = strings.TrimSpace(parts[1])
	}
	return title, content
}

func findNote(st *store.Store, id string) *notes.Note {
	state := st.State()
	for i := range state.Notes {
		if state.Notes[i].ID == id {
			return &state.Notes[i]
		}
	}
	return nil
}

func printNotes(list []notes.Note) {
	if len(list) == 0 {
		fmt.Println("(no notes)")
		return
	}
	for _, n := range list {
		line := n.Title
		if line == "" {
			line = "(untitled)"
		}
		fmt.Printf("  %-14s %s", n.ID, line)
		if len(n.Attachments) > 0 {
			fmt.Printf(" [%d attachment(s)]", len(n.Attachments))
		}
		fmt.Println()
	}
}
