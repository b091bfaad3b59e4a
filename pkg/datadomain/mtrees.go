package datadomain

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ddtools/datadomain_sdk_go/internal/ddapi"
)

type mtreeCreate struct {
	MtreeCreate struct {
		Name string `json:"name"`
	} `json:"mtree_create"`
}

// CreateMtree creates /data/col1/<name> and returns the raw response. Only
// HTTP 201 counts as success.
func (c *Client) CreateMtree(ctx context.Context, name string) (json.RawMessage, error) {
	if strings.TrimSpace(name) == "" {
		return nil, invalidArg("mtree name is required")
	}
	var body mtreeCreate
	body.MtreeCreate.Name = ddapi.StoragePath(name)
	return c.post(ctx, "create mtree", ddapi.MtreesPath, body)
}

// GetMtree returns the raw document of one mtree, or of all mtrees when name
// is empty.
func (c *Client) GetMtree(ctx context.Context, name string) (json.RawMessage, error) {
	path := ddapi.MtreesPath
	if name != "" {
		path = ddapi.MtreeItemPath(name)
	}
	return c.get(ctx, "get mtree", path)
}

// ListMtrees returns the raw mtree collection.
func (c *Client) ListMtrees(ctx context.Context) (json.RawMessage, error) {
	return c.GetMtree(ctx, "")
}

// DeleteMtree deletes /data/col1/<name>.
func (c *Client) DeleteMtree(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return invalidArg("mtree name is required")
	}
	return c.delete(ctx, "delete mtree", ddapi.MtreeItemPath(name))
}
