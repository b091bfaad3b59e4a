package mock

import (
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/ddtools/datadomain_sdk_go/internal/ddapi"
)

const apiPrefix = "/rest/" + ddapi.Version + "/"

// ServeHTTP implements the REST API below /rest/v1.0.
func (a *Appliance) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	escaped := r.URL.EscapedPath()
	token := r.Header.Get(ddapi.TokenHeader)
	a.mu.Lock()
	a.requests = append(a.requests, RecordedRequest{Method: r.Method, Path: escaped, Token: token})
	a.mu.Unlock()

	if !strings.HasPrefix(escaped, apiPrefix) {
		writeError(w, http.StatusNotFound, "unknown path")
		return
	}
	rel := strings.TrimPrefix(escaped, apiPrefix)

	if rel == ddapi.AuthPath {
		a.handleAuth(w, r, token)
		return
	}
	if !a.validToken(token) {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	switch {
	case rel == ddapi.MtreesPath || strings.HasPrefix(rel, ddapi.MtreesPath+"/"):
		a.handleMtrees(w, r, strings.TrimPrefix(strings.TrimPrefix(rel, ddapi.MtreesPath), "/"))
	case rel == ddapi.ExportsPath || strings.HasPrefix(rel, ddapi.ExportsPath+"/"):
		a.handleExports(w, r, strings.TrimPrefix(strings.TrimPrefix(rel, ddapi.ExportsPath), "/"))
	case rel == ddapi.NetworksPath || strings.HasPrefix(rel, ddapi.NetworksPath+"/"):
		a.handleNetworks(w, r, strings.TrimPrefix(strings.TrimPrefix(rel, ddapi.NetworksPath), "/"))
	default:
		writeError(w, http.StatusNotFound, "unknown resource")
	}
}

func (a *Appliance) handleAuth(w http.ResponseWriter, r *http.Request, token string) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			AuthInfo struct {
				Username string `json:"username"`
				Password string `json:"password"`
			} `json:"auth_info"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.AuthInfo.Username != a.cfg.Username || req.AuthInfo.Password != a.cfg.Password {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		tok := uuid.NewString()
		a.mu.Lock()
		a.tokens[tok] = struct{}{}
		a.mu.Unlock()
		w.Header().Set(ddapi.TokenHeader, tok)
		writeJSON(w, http.StatusCreated, map[string]string{"username": req.AuthInfo.Username})
	case http.MethodDelete:
		a.mu.Lock()
		_, ok := a.tokens[token]
		delete(a.tokens, token)
		a.mu.Unlock()
		if !ok {
			writeError(w, http.StatusUnauthorized, "no session")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (a *Appliance) handleMtrees(w http.ResponseWriter, r *http.Request, item string) {
	if item == "" {
		switch r.Method {
		case http.MethodGet:
			a.mu.Lock()
			list := make([]Mtree, 0, len(a.mtrees))
			for _, m := range a.mtrees {
				list = append(list, *m)
			}
			a.mu.Unlock()
			sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
			writeJSON(w, http.StatusOK, map[string]any{"mtree": list})
		case http.MethodPost:
			var req struct {
				MtreeCreate struct {
					Name string `json:"name"`
				} `json:"mtree_create"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			p := req.MtreeCreate.Name
			if !strings.HasPrefix(p, ddapi.StorageRoot+"/") || len(p) == len(ddapi.StorageRoot)+1 {
				writeError(w, http.StatusBadRequest, "mtree name must be under "+ddapi.StorageRoot)
				return
			}
			a.mu.Lock()
			if _, exists := a.mtrees[p]; exists {
				a.mu.Unlock()
				writeError(w, http.StatusBadRequest, "mtree already exists")
				return
			}
			m := &Mtree{ID: uuid.NewString(), Name: p}
			a.mtrees[p] = m
			a.mu.Unlock()
			writeJSON(w, http.StatusCreated, m)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	p, err := url.PathUnescape(item)
	if err != nil || strings.Contains(item, "/") {
		writeError(w, http.StatusNotFound, "mtree not found")
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	m, ok := a.mtrees[p]
	if !ok {
		writeError(w, http.StatusNotFound, "mtree not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, m)
	case http.MethodDelete:
		delete(a.mtrees, p)
		writeJSON(w, http.StatusOK, map[string]string{})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (a *Appliance) handleExports(w http.ResponseWriter, r *http.Request, item string) {
	if item == "" {
		switch r.Method {
		case http.MethodGet:
			a.mu.Lock()
			list := make([]Export, 0, len(a.exports))
			for _, e := range a.exports {
				list = append(list, *e)
			}
			a.mu.Unlock()
			sort.Slice(list, func(i, j int) bool { return list[i].Path < list[j].Path })
			writeJSON(w, http.StatusOK, map[string]any{"exports": list})
		case http.MethodPost:
			var req struct {
				ExportCreate struct {
					Path    string         `json:"path"`
					Clients []ExportClient `json:"clients"`
				} `json:"export_create"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			p := req.ExportCreate.Path
			a.mu.Lock()
			defer a.mu.Unlock()
			if _, ok := a.mtrees[p]; !ok {
				writeError(w, http.StatusBadRequest, "no mtree at "+p)
				return
			}
			if _, exists := a.exports[p]; exists {
				writeError(w, http.StatusBadRequest, "export already exists")
				return
			}
			e := &Export{ID: uuid.NewString(), Path: p, Clients: req.ExportCreate.Clients}
			if e.Clients == nil {
				e.Clients = []ExportClient{}
			}
			a.exports[p] = e
			writeJSON(w, http.StatusCreated, e)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	p, err := url.PathUnescape(item)
	if err != nil || strings.Contains(item, "/") {
		writeError(w, http.StatusNotFound, "export not found")
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.exports[p]
	if !ok {
		writeError(w, http.StatusNotFound, "export not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, e)
	case http.MethodDelete:
		delete(a.exports, p)
		writeJSON(w, http.StatusOK, map[string]string{})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (a *Appliance) handleNetworks(w http.ResponseWriter, r *http.Request, item string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "interfaces are managed from the command line")
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if item == "" {
		list := make([]Interface, 0, len(a.ifaces))
		for _, i := range a.ifaces {
			list = append(list, *i)
		}
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
		writeJSON(w, http.StatusOK, map[string]any{"network_info": list})
		return
	}
	i, ok := a.ifaces[item]
	if !ok {
		writeError(w, http.StatusNotFound, "interface not found")
		return
	}
	writeJSON(w, http.StatusOK, i)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(ddapi.WriteError(status, details))
}
