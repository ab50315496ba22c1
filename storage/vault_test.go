package storage

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeKV serves the subset of the Vault KV v2 HTTP API the backend uses.
type fakeKV struct {
	mu      sync.Mutex
	mount   string
	secrets map[string]string
}

func (f *fakeKV) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rest, ok := strings.CutPrefix(r.URL.Path, "/v1/"+f.mount+"/")
	if !ok {
		writeVaultErrors(w, http.StatusNotFound)
		return
	}
	section, name, _ := strings.Cut(rest, "/")

	isList := r.Method == "LIST" || (r.Method == http.MethodGet && r.URL.Query().Get("list") == "true")

	switch {
	case section == "metadata" && isList:
		prefix := strings.TrimSuffix(name, "/")
		if prefix != "" {
			prefix += "/"
		}
		seen := map[string]bool{}
		var keys []interface{}
		var names []string
		for k := range f.secrets {
			entry, found := strings.CutPrefix(k, prefix)
			if !found {
				continue
			}
			if dir, _, nested := strings.Cut(entry, "/"); nested {
				entry = dir + "/"
			}
			if !seen[entry] {
				seen[entry] = true
				names = append(names, entry)
			}
		}
		if len(names) == 0 {
			writeVaultErrors(w, http.StatusNotFound)
			return
		}
		sort.Strings(names)
		for _, n := range names {
			keys = append(keys, n)
		}
		writeVaultJSON(w, map[string]interface{}{"data": map[string]interface{}{"keys": keys}})

	case section == "metadata" && r.Method == http.MethodDelete:
		delete(f.secrets, name)
		w.WriteHeader(http.StatusNoContent)

	case section == "data" && r.Method == http.MethodGet:
		content, ok := f.secrets[name]
		if !ok {
			writeVaultErrors(w, http.StatusNotFound)
			return
		}
		writeVaultJSON(w, map[string]interface{}{
			"data": map[string]interface{}{
				"data":     map[string]interface{}{"content": content},
				"metadata": map[string]interface{}{"version": 1},
			},
		})

	case section == "data" && (r.Method == http.MethodPut || r.Method == http.MethodPost):
		var body struct {
			Data    map[string]string      `json:"data"`
			Options map[string]interface{} `json:"options"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeVaultErrors(w, http.StatusBadRequest, err.Error())
			return
		}
		if cas, ok := body.Options["cas"]; ok && cas == float64(0) {
			if _, exists := f.secrets[name]; exists {
				writeVaultErrors(w, http.StatusBadRequest, "check-and-set parameter did not match the current version")
				return
			}
		}
		f.secrets[name] = body.Data["content"]
		writeVaultJSON(w, map[string]interface{}{"data": map[string]interface{}{"version": 1}})

	default:
		writeVaultErrors(w, http.StatusMethodNotAllowed)
	}
}

func writeVaultJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeVaultErrors(w http.ResponseWriter, status int, msgs ...string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if msgs == nil {
		msgs = []string{}
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"errors": msgs})
}

func newFakeVault(t *testing.T) (*fakeKV, *VaultBackend) {
	t.Helper()
	kv := &fakeKV{mount: "secret", secrets: map[string]string{}}
	server := httptest.NewServer(kv)
	t.Cleanup(server.Close)

	backend, err := NewVaultBackend(VaultConfig{
		Address:   server.URL,
		MountPath: "secret",
		DataPath:  "records",
		Token:     "test-token",
	}, testLogger())
	require.NoError(t, err)
	return kv, backend
}

func TestVaultBackend(t *testing.T) {
	_, backend := newFakeVault(t)
	runBackendContract(t, backend)
	assert.Equal(t, "vault-secret-records", backend.Name())
}

func TestVaultBackend_SkipsFolders(t *testing.T) {
	kv, backend := newFakeVault(t)
	kv.secrets["records/top.json"] = "{}"
	kv.secrets["records/nested/deep.json"] = "{}"

	keys, err := backend.List(t.Context())
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "top.json", keys[0].String())
}

func TestVaultBackend_StoresContentField(t *testing.T) {
	kv, backend := newFakeVault(t)
	require.NoError(t, backend.Write(t.Context(), "doc.json", []byte(`{"x":1}`)))
	assert.Equal(t, `{"x":1}`, kv.secrets["records/doc.json"])
}
