// Package ddapi holds the URL and path conventions of the DataDomain REST
// API v1.0 shared by the client and the mock appliance.
package ddapi

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// Port is the HTTPS port the management API listens on.
	Port = 3009
	// Version is the API version path segment.
	Version = "v1.0"
	// TokenHeader carries the session token in both directions.
	TokenHeader = "X-DD-AUTH-TOKEN"
	// StorageRoot is the collection every mtree lives under.
	StorageRoot = "/data/col1"
)

// Resource paths relative to the versioned base URL.
const (
	AuthPath     = "auth"
	MtreesPath   = "dd-systems/0/mtrees"
	NetworksPath = "dd-systems/0/networks"
	ExportsPath  = "dd-systems/0/protocols/nfs/exports"
)

// BaseURL returns https://<host>:3009/rest/v1.0.
func BaseURL(host string) string {
	return fmt.Sprintf("https://%s/rest/%s", hostPort(host, Port), Version)
}

func hostPort(host string, port int) string {
	if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
		return fmt.Sprintf("[%s]:%d", host, port)
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// StoragePath maps an mtree name to its appliance path, /data/col1/<name>.
func StoragePath(name string) string {
	return StorageRoot + "/" + name
}

// EscapePath percent-encodes a whole storage path as a single URL segment,
// so /data/col1/x becomes %2Fdata%2Fcol1%2Fx.
func EscapePath(p string) string {
	return url.PathEscape(p)
}

// MtreeItemPath is the request path of a single mtree.
func MtreeItemPath(name string) string {
	return MtreesPath + "/" + EscapePath(StoragePath(name))
}

// ExportItemPath is the request path of a single NFS export.
func ExportItemPath(name string) string {
	return ExportsPath + "/" + EscapePath(StoragePath(name))
}

// NetworkItemPath is the request path of a single interface. Interface names
// are appended verbatim.
func NetworkItemPath(name string) string {
	return NetworksPath + "/" + name
}

// ReplicationURL is the mtree:// locator used by replication commands.
func ReplicationURL(host, name string) string {
	return "mtree://" + host + StoragePath(name)
}
