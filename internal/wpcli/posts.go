package wpcli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// PostFields carries the optional fields of a post create/update. Zero
// values mean "not supplied".
type PostFields struct {
	Type    string
	Title   string
	Content string
	Status  string
	Name    string // slug
	Parent  int
}

// CreatePost creates a post and returns its numeric identifier as text.
// Content, when supplied, goes in a second separate `post update`
// invocation: large or structured content is fragile when combined with
// other flags in one command.
func (c *Client) CreatePost(ctx context.Context, fields PostFields) (string, error) {
	args := []string{"create", "--porcelain"}
	if fields.Type != "" {
		args = append(args, Flag("post_type", fields.Type))
	}
	if fields.Title != "" {
		args = append(args, Flag("post_title", fields.Title))
	}
	if fields.Status != "" {
		args = append(args, Flag("post_status", fields.Status))
	}
	if fields.Name != "" {
		args = append(args, Flag("post_name", fields.Name))
	}
	if fields.Parent != 0 {
		args = append(args, Flag("post_parent", strconv.Itoa(fields.Parent)))
	}

	out, err := c.Run(ctx, "post", args...)
	if err != nil {
		return "", err
	}

	id := strings.TrimSpace(out)
	if id == "" {
		return "", fmt.Errorf("%w: post create returned no id", ErrCommandFailed)
	}

	if fields.Content != "" {
		if _, err := c.updateContent(ctx, id, fields.Content); err != nil {
			return "", fmt.Errorf("post %s created but content update failed: %w", id, err)
		}
	}
	return id, nil
}

// UpdatePost applies whichever fields are present to an existing post. No
// basic fields means no basic update invocation; content still goes out
// separately when supplied.
func (c *Client) UpdatePost(ctx context.Context, id string, fields PostFields) error {
	var flags []string
	if fields.Title != "" {
		flags = append(flags, Flag("post_title", fields.Title))
	}
	if fields.Status != "" {
		flags = append(flags, Flag("post_status", fields.Status))
	}
	if fields.Name != "" {
		flags = append(flags, Flag("post_name", fields.Name))
	}

	if len(flags) > 0 {
		args := append([]string{"update", id}, flags...)
		if _, err := c.Run(ctx, "post", args...); err != nil {
			return err
		}
	}

	if fields.Content != "" {
		if _, err := c.updateContent(ctx, id, fields.Content); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) updateContent(ctx context.Context, id, content string) (string, error) {
	return c.Run(ctx, "post", "update", id, Flag("post_content", content))
}

// DeletePost deletes a post; force bypasses the trash.
func (c *Client) DeletePost(ctx context.Context, id string, force bool) (string, error) {
	args := []string{"delete", id}
	if force {
		args = append(args, "--force")
	}
	return c.Run(ctx, "post", args...)
}

// MenuItemFields carries the optional fields of a menu item.
type MenuItemFields struct {
	Title    string
	ParentID int
}

// AddMenuItem attaches a post to a navigation menu.
func (c *Client) AddMenuItem(ctx context.Context, menu, postID string, fields MenuItemFields) (string, error) {
	args := []string{"item", "add-post", menu, postID}
	if fields.Title != "" {
		args = append(args, Flag("title", fields.Title))
	}
	if fields.ParentID != 0 {
		args = append(args, Flag("parent-id", strconv.Itoa(fields.ParentID)))
	}
	return c.Run(ctx, "menu", args...)
}
