package datadomain

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ddtools/datadomain_sdk_go/internal/ddapi"
)

// ExportClient is one entry of an export's client list: a host name, address,
// network or wildcard pattern, plus optional NFS options.
type ExportClient struct {
	Name    string `json:"name"`
	Options string `json:"options,omitempty"`
}

// Clients turns bare patterns into ExportClients with default options.
func Clients(patterns ...string) []ExportClient {
	out := make([]ExportClient, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, ExportClient{Name: p})
	}
	return out
}

type exportCreate struct {
	ExportCreate struct {
		Path    string         `json:"path"`
		Clients []ExportClient `json:"clients"`
	} `json:"export_create"`
}

// CreateExport exports /data/col1/<name> to clients and returns the raw
// response. Only HTTP 201 counts as success.
func (c *Client) CreateExport(ctx context.Context, name string, clients []ExportClient) (json.RawMessage, error) {
	if strings.TrimSpace(name) == "" {
		return nil, invalidArg("export name is required")
	}
	var body exportCreate
	body.ExportCreate.Path = ddapi.StoragePath(name)
	body.ExportCreate.Clients = clients
	if body.ExportCreate.Clients == nil {
		body.ExportCreate.Clients = []ExportClient{}
	}
	return c.post(ctx, "create export", ddapi.ExportsPath, body)
}

// GetExport returns the raw document of one export, or of all exports when
// name is empty.
func (c *Client) GetExport(ctx context.Context, name string) (json.RawMessage, error) {
	path := ddapi.ExportsPath
	if name != "" {
		path = ddapi.ExportItemPath(name)
	}
	return c.get(ctx, "get export", path)
}

// ListExports returns the raw export collection.
func (c *Client) ListExports(ctx context.Context) (json.RawMessage, error) {
	return c.GetExport(ctx, "")
}

// DeleteExport removes the export of /data/col1/<name>.
func (c *Client) DeleteExport(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return invalidArg("export name is required")
	}
	return c.delete(ctx, "delete export", ddapi.ExportItemPath(name))
}
