package cli

import (
	"context"
	"fmt"
	"time"
)

func (c *Cli) runList(ctx context.Context) error {
	notebooks := c.repo.List(ctx)

	if len(notebooks) == 0 {
		c.io.Println("No notebooks yet.")
		c.io.Println()
		c.io.Println("Use 'inkpad create \"My notebook\"' to create your first one.")
		return nil
	}

	c.io.Printf("Found %d notebook(s):\n", len(notebooks))
	c.io.Println()

	for i, nb := range notebooks {
		title := nb.Title
		if title == "" {
			title = "(untitled)"
		}
		c.io.Printf("%d. %s\n", i+1, title)
		c.io.Printf("   ID:       %s\n", nb.ID)
		c.io.Printf("   Cover:    %s\n", nb.CoverColor)
		c.io.Printf("   Pages:    %d\n", len(nb.Pages))
		c.io.Printf("   Modified: %s\n", nb.ModifiedAt.Format(time.RFC3339))
		c.io.Println()
	}
	return nil
}

func (c *Cli) runCreate(ctx context.Context, args []string) error {
	var title, color string
	if len(args) > 0 {
		title = args[0]
	}
	if len(args) > 1 {
		color = args[1]
	}

	nb, err := c.repo.Create(ctx, title, color)
	if err != nil {
		return err
	}

	c.io.Printf("✓ Notebook created: %s\n", nb.ID)
	return nil
}

func (c *Cli) runRename(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: inkpad rename NOTEBOOK_ID TITLE")
	}

	if err := c.repo.Rename(ctx, args[0], args[1]); err != nil {
		return err
	}
	c.io.Println("✓ Notebook renamed")
	return nil
}

func (c *Cli) runCover(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: inkpad cover NOTEBOOK_ID COLOR")
	}

	if err := c.repo.SetCoverColor(ctx, args[0], args[1]); err != nil {
		return err
	}
	c.io.Println("✓ Cover color updated")
	return nil
}

func (c *Cli) runDelete(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: inkpad rm NOTEBOOK_ID")
	}

	if err := c.repo.Delete(ctx, args[0]); err != nil {
		return err
	}
	c.io.Println("✓ Notebook deleted")
	return nil
}
