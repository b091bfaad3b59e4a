package mock

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ddtools/datadomain_sdk_go/internal/ddapi"
)

func doJSON(t *testing.T, srv *httptest.Server, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, srv.URL+path, r)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set(ddapi.TokenHeader, token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func login(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, _ := doJSON(t, srv, http.MethodPost, "/rest/v1.0/auth", "", map[string]any{
		"auth_info": map[string]string{"username": "sysadmin", "password": "changeme"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	tok := resp.Header.Get(ddapi.TokenHeader)
	require.NotEmpty(t, tok)
	return tok
}

func TestHandlerRequiresToken(t *testing.T) {
	srv := httptest.NewServer(New(Config{}))
	defer srv.Close()

	resp, body := doJSON(t, srv, http.MethodGet, "/rest/v1.0/dd-systems/0/mtrees", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "authentication required", ddapi.ExtractDetails(body))

	resp, _ = doJSON(t, srv, http.MethodPost, "/rest/v1.0/auth", "", map[string]any{
		"auth_info": map[string]string{"username": "sysadmin", "password": "bad"},
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodGet, "/other", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandlerMtreeLifecycle(t *testing.T) {
	a := New(Config{})
	srv := httptest.NewServer(a)
	defer srv.Close()
	tok := login(t, srv)

	create := map[string]any{"mtree_create": map[string]string{"name": "/data/col1/t1"}}
	resp, _ := doJSON(t, srv, http.MethodPost, "/rest/v1.0/dd-systems/0/mtrees", tok, create)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, body := doJSON(t, srv, http.MethodPost, "/rest/v1.0/dd-systems/0/mtrees", tok, create)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "mtree already exists", ddapi.ExtractDetails(body))

	outside := map[string]any{"mtree_create": map[string]string{"name": "/data/col2/t1"}}
	resp, _ = doJSON(t, srv, http.MethodPost, "/rest/v1.0/dd-systems/0/mtrees", tok, outside)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = doJSON(t, srv, http.MethodGet, "/rest/v1.0/dd-systems/0/mtrees/%2Fdata%2Fcol1%2Ft1", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var m Mtree
	require.NoError(t, json.Unmarshal(body, &m))
	assert.Equal(t, "/data/col1/t1", m.Name)

	resp, body = doJSON(t, srv, http.MethodGet, "/rest/v1.0/dd-systems/0/mtrees", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Mtree []Mtree `json:"mtree"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list.Mtree, 1)

	resp, _ = doJSON(t, srv, http.MethodDelete, "/rest/v1.0/dd-systems/0/mtrees/%2Fdata%2Fcol1%2Ft1", tok, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = doJSON(t, srv, http.MethodDelete, "/rest/v1.0/dd-systems/0/mtrees/%2Fdata%2Fcol1%2Ft1", tok, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	reqs := a.Requests()
	assert.Equal(t, "/rest/v1.0/dd-systems/0/mtrees/%2Fdata%2Fcol1%2Ft1", reqs[len(reqs)-1].Path)
	assert.Equal(t, tok, reqs[len(reqs)-1].Token)
}

func TestHandlerExportsNeedMtree(t *testing.T) {
	a := New(Config{})
	require.NoError(t, a.Seed(&SeedData{Mtrees: []string{"t1"}}))
	srv := httptest.NewServer(a)
	defer srv.Close()
	tok := login(t, srv)

	missing := map[string]any{"export_create": map[string]any{"path": "/data/col1/t2", "clients": []ExportClient{}}}
	resp, _ := doJSON(t, srv, http.MethodPost, "/rest/v1.0/dd-systems/0/protocols/nfs/exports", tok, missing)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	ok := map[string]any{"export_create": map[string]any{"path": "/data/col1/t1", "clients": []ExportClient{{Name: "10.0.0.0/24", Options: "rw"}}}}
	resp, _ = doJSON(t, srv, http.MethodPost, "/rest/v1.0/dd-systems/0/protocols/nfs/exports", tok, ok)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	e, found := a.Export("/data/col1/t1")
	require.True(t, found)
	assert.Equal(t, []ExportClient{{Name: "10.0.0.0/24", Options: "rw"}}, e.Clients)

	resp, _ = doJSON(t, srv, http.MethodDelete, "/rest/v1.0/dd-systems/0/protocols/nfs/exports/%2Fdata%2Fcol1%2Ft1", tok, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_, found = a.Export("/data/col1/t1")
	assert.False(t, found)
}

func TestHandlerLogoutInvalidatesToken(t *testing.T) {
	srv := httptest.NewServer(New(Config{}))
	defer srv.Close()
	tok := login(t, srv)

	resp, _ := doJSON(t, srv, http.MethodDelete, "/rest/v1.0/auth", tok, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = doJSON(t, srv, http.MethodDelete, "/rest/v1.0/auth", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = doJSON(t, srv, http.MethodGet, "/rest/v1.0/dd-systems/0/networks", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandlerNetworksReadOnly(t *testing.T) {
	a := New(Config{})
	a.Exec("dd01", "net create interface veth2 vlan 5")
	srv := httptest.NewServer(a)
	defer srv.Close()
	tok := login(t, srv)

	resp, body := doJSON(t, srv, http.MethodGet, "/rest/v1.0/dd-systems/0/networks", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		NetworkInfo []Interface `json:"network_info"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.NetworkInfo, 2)
	assert.Equal(t, "veth2", list.NetworkInfo[0].ID)
	assert.Equal(t, "veth2.5", list.NetworkInfo[1].ID)

	resp, _ = doJSON(t, srv, http.MethodGet, "/rest/v1.0/dd-systems/0/networks/veth2.5", tok, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = doJSON(t, srv, http.MethodPost, "/rest/v1.0/dd-systems/0/networks", tok, map[string]string{})
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestExecInterfaces(t *testing.T) {
	a := New(Config{})
	assert.Equal(t, 1, a.Exec("dd01", "net create interface eth9 vlan 5").ExitStatus)
	assert.Equal(t, 1, a.Exec("dd01", "net create interface veth2 vlan 5000").ExitStatus)
	assert.Equal(t, 0, a.Exec("dd01", "net create interface veth2 vlan 5").ExitStatus)
	assert.Equal(t, 1, a.Exec("dd01", "net config veth2.6 10.0.0.1 netmask 255.0.0.0").ExitStatus)
	assert.Equal(t, 1, a.Exec("dd01", "net config veth2.5 nonsense netmask 255.0.0.0").ExitStatus)
	assert.Equal(t, 0, a.Exec("dd01", "net config veth2.5 10.0.0.1 netmask 255.0.0.0").ExitStatus)

	iface, ok := a.Interface("veth2.5")
	require.True(t, ok)
	assert.Equal(t, Interface{ID: "veth2.5", Physical: "veth2", VLANID: 5, Address: "10.0.0.1", Netmask: "255.0.0.0"}, iface)

	assert.Equal(t, 1, a.Exec("dd01", "net destroy veth2").ExitStatus)
	assert.Equal(t, 0, a.Exec("dd01", "net destroy veth2.5").ExitStatus)
	assert.Equal(t, 127, a.Exec("dd01", "reboot").ExitStatus)
	assert.Len(t, a.Commands(), 9)
}

func TestExecReplicationIsPerHost(t *testing.T) {
	a := New(Config{})
	add := "replication add source mtree://dd01/data/col1/t1 destination mtree://dd02/data/col1/t1"
	assert.Equal(t, 1, a.Exec("dd01", "replication initialize mtree://dd02/data/col1/t1").ExitStatus)
	assert.Equal(t, 0, a.Exec("dd02", add).ExitStatus)
	assert.Equal(t, 0, a.Exec("dd01", add).ExitStatus)
	assert.Equal(t, 1, a.Exec("dd01", add).ExitStatus)
	assert.Equal(t, 0, a.Exec("dd01", "replication initialize mtree://dd02/data/col1/t1").ExitStatus)

	assert.True(t, a.Pairings("dd01")[0].Initialized)
	assert.False(t, a.Pairings("dd02")[0].Initialized)
}

func TestFailCommandOverridesInterpreter(t *testing.T) {
	a := New(Config{})
	a.FailCommand("net destroy", 3)
	res := a.Exec("dd01", "net destroy veth2.1")
	assert.Equal(t, 3, res.ExitStatus)
	assert.True(t, strings.Contains(string(res.Stderr), "injected"))
}

func TestLoadSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"mtrees": ["t1", "t2"],
		"exports": [{"path": "/data/col1/t1", "clients": [{"name": "*"}]}],
		"interfaces": ["veth3"]
	}`), 0o600))

	seed, err := LoadSeed(path)
	require.NoError(t, err)
	a := New(Config{})
	require.NoError(t, a.Seed(seed))

	_, ok := a.Mtree("/data/col1/t2")
	assert.True(t, ok)
	e, ok := a.Export("/data/col1/t1")
	require.True(t, ok)
	assert.NotEmpty(t, e.ID)
	_, ok = a.Interface("veth3")
	assert.True(t, ok)

	require.Error(t, a.Seed(&SeedData{Exports: []Export{{Path: "/etc"}}}))
	require.Error(t, a.Seed(&SeedData{Mtrees: []string{" "}}))
	_, err = LoadSeed(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestNewFillsDefaultAccount(t *testing.T) {
	assert.Equal(t, DefaultConfig, New(Config{}).Credentials())
	assert.Equal(t, Config{Username: "ops", Password: "changeme"}, New(Config{Username: "ops"}).Credentials())
}
