package cli

import (
	"context"
	"fmt"
	"time"
)

func (c *Cli) runSync(ctx context.Context) error {
	isAuth, err := c.authService.IsAuthenticated(ctx)
	if err != nil {
		return fmt.Errorf("failed to check authentication: %w", err)
	}
	if !isAuth {
		return fmt.Errorf("not authenticated. Please run 'inkpad login' first")
	}

	c.io.Println("Synchronizing...")

	result, err := c.syncService.Sync(ctx)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	c.io.Println()
	c.io.Printf("✓ Sync complete\n")
	c.io.Printf("  Uploaded:   %d change(s)\n", result.Uploaded)
	if result.Coalesced > 0 {
		c.io.Printf("  Coalesced:  %d change(s)\n", result.Coalesced)
	}
	if result.Dropped > 0 {
		c.io.Printf("  ⚠ Dropped:  %d unrecoverable change(s)\n", result.Dropped)
	}
	c.io.Printf("  Downloaded: %d notebook(s)\n", result.Downloaded)
	c.io.Printf("  Collection: %d notebook(s)\n", result.Merged)
	if result.Conflicts > 0 {
		c.io.Printf("  ⚠ Conflicts: %d, see 'inkpad conflicts'\n", result.Conflicts)
	}
	return nil
}

func (c *Cli) runConflicts(ctx context.Context) error {
	conflicts, err := c.syncService.ListConflicts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list conflicts: %w", err)
	}

	if len(conflicts) == 0 {
		c.io.Println("No unresolved conflicts.")
		return nil
	}

	c.io.Printf("Found %d unresolved conflict(s):\n", len(conflicts))
	c.io.Println()

	for i, conflict := range conflicts {
		localTitle := conflict.Local.Title
		if localTitle == "" {
			localTitle = "(untitled)"
		}
		remoteTitle := conflict.Remote.Title
		if remoteTitle == "" {
			remoteTitle = "(untitled)"
		}

		c.io.Printf("%d. Notebook %s\n", i+1, conflict.EntityID)
		c.io.Printf("   Local:    %q, modified %s\n", localTitle, conflict.LocalModifiedAt.Format(time.RFC3339))
		c.io.Printf("   Remote:   %q, modified %s\n", remoteTitle, conflict.RemoteModifiedAt.Format(time.RFC3339))
		c.io.Printf("   Detected: %s\n", conflict.DetectedAt.Format(time.RFC3339))
		c.io.Println()
	}

	c.io.Println("Use 'inkpad resolve NOTEBOOK_ID local|remote' to resolve.")
	return nil
}

func (c *Cli) runResolve(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: inkpad resolve NOTEBOOK_ID local|remote")
	}

	var keepLocal bool
	switch args[1] {
	case "local":
		keepLocal = true
	case "remote":
		keepLocal = false
	default:
		return fmt.Errorf("choice must be 'local' or 'remote', got %q", args[1])
	}

	if err := c.syncService.ResolveConflict(ctx, args[0], keepLocal); err != nil {
		return err
	}

	c.io.Printf("✓ Conflict resolved, kept %s version\n", args[1])
	if keepLocal {
		c.io.Println("Run 'inkpad sync' to upload the local version.")
	}
	return nil
}
