package cli

import (
	"context"
	"fmt"
	"time"
)

func (c *Cli) runRegister(ctx context.Context) error {
	c.io.Println("=== Registration ===")
	c.io.Println()

	username, err := c.io.ReadInput("Username: ")
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}

	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	confirm, err := c.io.ReadPassword("Confirm password: ")
	if err != nil {
		return fmt.Errorf("failed to read password confirmation: %w", err)
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	userID, err := c.authService.Register(ctx, username, password)
	if err != nil {
		return err
	}

	c.io.Println()
	c.io.Printf("✓ Registered successfully (user id: %s)\n", userID)
	c.io.Println("Run 'inkpad login' to start syncing your notebooks.")
	return nil
}

func (c *Cli) runLogin(ctx context.Context) error {
	c.io.Println("=== Login ===")
	c.io.Println()

	username, err := c.io.ReadInput("Username: ")
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}

	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	session, err := c.authService.Login(ctx, username, password)
	if err != nil {
		return err
	}

	c.io.Println()
	c.io.Printf("✓ Logged in as %s\n", session.Username)
	return nil
}

func (c *Cli) runLogout(ctx context.Context) error {
	if err := c.authService.Logout(ctx); err != nil {
		return err
	}

	// Кэш и журнал остаются: тетради принадлежат устройству
	c.io.Println("✓ Logged out. Local notebooks are kept on this device.")
	return nil
}

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Status ===")
	c.io.Println()

	isAuth, err := c.authService.IsAuthenticated(ctx)
	if err != nil {
		return fmt.Errorf("failed to check authentication: %w", err)
	}

	if !isAuth {
		c.io.Println("Session: not authenticated")
		c.io.Println()
		c.io.Println("Run 'inkpad login' to authenticate.")
		return nil
	}

	session, err := c.authService.Session(ctx)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	c.io.Printf("Session: authenticated as %s\n", session.Username)
	c.io.Printf("Device:  %s\n", session.DeviceID)

	expiresAt := time.Unix(session.ExpiresAt, 0)
	if remaining := time.Until(expiresAt); remaining > 0 {
		c.io.Printf("Token:   valid for %s\n", remaining.Round(time.Second))
	} else {
		c.io.Println("Token:   expired, will be refreshed on next request")
	}

	status := c.syncService.Status()
	c.io.Println()
	if status.LastSyncTime.IsZero() {
		c.io.Println("Last sync: never")
	} else {
		c.io.Printf("Last sync: %s\n", status.LastSyncTime.Format(time.RFC3339))
	}
	if status.LastError != "" {
		c.io.Printf("Last error (%s): %s\n", status.LastError, status.LastErrorMsg)
	}

	pendingCount, err := c.syncService.PendingCount(ctx)
	if err != nil {
		c.io.Printf("Warning: failed to count pending changes: %v\n", err)
	} else if pendingCount > 0 {
		c.io.Printf("⚠  Pending: %d change(s) waiting for upload\n", pendingCount)
		c.io.Println("Run 'inkpad sync' to synchronize with server.")
	} else {
		c.io.Println("✓ All changes synchronized")
	}

	conflicts, err := c.syncService.ListConflicts(ctx)
	if err != nil {
		c.io.Printf("Warning: failed to list conflicts: %v\n", err)
	} else if len(conflicts) > 0 {
		c.io.Printf("⚠  Conflicts: %d notebook(s) need resolution, see 'inkpad conflicts'\n", len(conflicts))
	}

	return nil
}
