package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/iudanet/inkpad/internal/models"
)

func (c *Cli) runPages(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: inkpad pages NOTEBOOK_ID")
	}

	nb, err := c.repo.Get(ctx, args[0])
	if err != nil {
		return err
	}

	title := nb.Title
	if title == "" {
		title = "(untitled)"
	}
	c.io.Printf("Pages of %s:\n", title)
	c.io.Println()

	for i, page := range nb.Pages {
		c.io.Printf("%d. %s\n", i+1, page.ID)
		c.io.Printf("   Template:   %s, background %s\n", page.Template, page.BackgroundColor)
		if page.Drawing.Present() {
			c.io.Printf("   Drawing:    %d bytes\n", page.Drawing.Len())
		} else {
			c.io.Println("   Drawing:    empty")
		}
		c.io.Printf("   Modified:   %s\n", page.ModifiedAt.Format(time.RFC3339))
		c.io.Println()
	}
	return nil
}

func (c *Cli) runPageAdd(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: inkpad page-add NOTEBOOK_ID [TEMPLATE] [COLOR]")
	}

	template := models.TemplateBlank
	if len(args) > 1 {
		template = models.PageTemplate(args[1])
	}
	var color string
	if len(args) > 2 {
		color = args[2]
	}

	page, err := c.repo.AddPage(ctx, args[0], template, color)
	if err != nil {
		return err
	}

	c.io.Printf("✓ Page added: %s\n", page.ID)
	return nil
}

func (c *Cli) runPageDelete(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: inkpad page-rm NOTEBOOK_ID PAGE_ID")
	}

	if err := c.repo.DeletePage(ctx, args[0], args[1]); err != nil {
		return err
	}
	c.io.Println("✓ Page deleted")
	return nil
}

func (c *Cli) runPageOrder(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: inkpad page-order NOTEBOOK_ID PAGE_ID...")
	}

	if err := c.repo.ReorderPages(ctx, args[0], args[1:]); err != nil {
		return err
	}
	c.io.Println("✓ Pages reordered")
	return nil
}

func (c *Cli) runDraw(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: inkpad draw NOTEBOOK_ID PAGE_ID FILE")
	}
	notebookID, pageID, path := args[0], args[1], args[2]

	// "-" очищает рисунок страницы
	if path == "-" {
		if err := c.repo.UpdatePageDrawing(ctx, notebookID, pageID, models.AbsentBlob()); err != nil {
			return err
		}
		c.io.Println("✓ Page drawing cleared")
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read drawing file: %w", err)
	}

	if err := c.repo.UpdatePageDrawing(ctx, notebookID, pageID, models.NewBlob(data)); err != nil {
		return err
	}

	c.io.Printf("✓ Page drawing updated (%d bytes)\n", len(data))
	return nil
}
