// Package cli implements the command surface of the inkpad client.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/iudanet/inkpad/internal/client/auth"
	"github.com/iudanet/inkpad/internal/client/iocli"
	"github.com/iudanet/inkpad/internal/client/notebook"
	"github.com/iudanet/inkpad/internal/client/sync"
)

type Cli struct {
	io          iocli.IO
	authService auth.Service
	repo        *notebook.Repository
	syncService *sync.Service
}

func New(io iocli.IO, authService auth.Service, repo *notebook.Repository, syncService *sync.Service) *Cli {
	return &Cli{
		io:          io,
		authService: authService,
		repo:        repo,
		syncService: syncService,
	}
}

// Run dispatches one command. Ошибки печатаются в stderr, процесс
// завершается с ненулевым кодом.
func (c *Cli) Run(ctx context.Context, command string, args []string) {
	var err error

	switch command {
	case "register":
		err = c.runRegister(ctx)
	case "login":
		err = c.runLogin(ctx)
	case "logout":
		err = c.runLogout(ctx)
	case "status":
		err = c.runStatus(ctx)
	case "list":
		err = c.runList(ctx)
	case "create":
		err = c.runCreate(ctx, args)
	case "rename":
		err = c.runRename(ctx, args)
	case "cover":
		err = c.runCover(ctx, args)
	case "rm":
		err = c.runDelete(ctx, args)
	case "pages":
		err = c.runPages(ctx, args)
	case "page-add":
		err = c.runPageAdd(ctx, args)
	case "page-rm":
		err = c.runPageDelete(ctx, args)
	case "page-order":
		err = c.runPageOrder(ctx, args)
	case "draw":
		err = c.runDraw(ctx, args)
	case "sync":
		err = c.runSync(ctx)
	case "conflicts":
		err = c.runConflicts(ctx)
	case "resolve":
		err = c.runResolve(ctx, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		PrintUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func PrintUsage() {
	fmt.Println("Inkpad Client")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  inkpad [OPTIONS] COMMAND")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version             Show version information")
	fmt.Println("  --server URL          Server URL (default: http://localhost:8080)")
	fmt.Println("  --db PATH             Path to local database (default: inkpad-client.db)")
	fmt.Println("  --strategy NAME       Conflict strategy: newest_wins, local_wins, remote_wins, manual")
	fmt.Println("  --interval DURATION   Periodic sync interval in watch mode (default: 5m)")
	fmt.Println("  --debug               Enable debug logging")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  register                              Register new user")
	fmt.Println("  login                                 Login to server")
	fmt.Println("  logout                                Logout (local data is kept)")
	fmt.Println("  status                                Show session and sync status")
	fmt.Println("  list                                  List notebooks")
	fmt.Println("  create [TITLE] [COLOR]                Create a notebook")
	fmt.Println("  rename NOTEBOOK_ID TITLE              Rename a notebook")
	fmt.Println("  cover NOTEBOOK_ID COLOR               Change cover color (#RRGGBB)")
	fmt.Println("  rm NOTEBOOK_ID                        Delete a notebook")
	fmt.Println("  pages NOTEBOOK_ID                     List pages of a notebook")
	fmt.Println("  page-add NOTEBOOK_ID [TEMPLATE] [COLOR]  Add a page (blank, ruled, grid, dotted)")
	fmt.Println("  page-rm NOTEBOOK_ID PAGE_ID           Delete a page")
	fmt.Println("  page-order NOTEBOOK_ID PAGE_ID...     Reorder pages")
	fmt.Println("  draw NOTEBOOK_ID PAGE_ID FILE         Replace page drawing from file ('-' clears)")
	fmt.Println("  sync                                  Run one sync cycle")
	fmt.Println("  conflicts                             List unresolved conflicts")
	fmt.Println("  resolve NOTEBOOK_ID local|remote      Resolve a conflict")
	fmt.Println("  watch                                 Keep syncing until interrupted")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  inkpad register")
	fmt.Println("  inkpad login")
	fmt.Println("  inkpad create \"Travel journal\" \"#4A90D9\"")
	fmt.Println("  inkpad page-add b692f5c0-2d88-4aa1-a9e1-13aa6e4976d5 grid")
	fmt.Println("  inkpad --server https://example.com sync")
}
