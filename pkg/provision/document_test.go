// pkg/provision/document_test.go
package provision

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collapseSpaces makes assertions whitespace-insensitive: hclwrite aligns
// attribute equals signs, so exact spacing depends on sibling name lengths.
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func testConfig() *Config {
	return &Config{
		BindAddr:       "0.0.0.0",
		Port:           8200,
		StorageBackend: "file",
		DataDir:        "/var/lib/vault",
		NodeID:         "node-a",
		UIEnabled:      true,
		APIAddr:        "http://10.0.0.5:8200",
		ClusterAddr:    "http://10.0.0.5:8201",
	}
}

func TestNormalizeBackend(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Backend
		known    bool
	}{
		{name: "file", input: "file", expected: BackendFile, known: true},
		{name: "raft", input: "raft", expected: BackendRaft, known: true},
		{name: "unknown falls back to file", input: "consul", expected: BackendFile, known: false},
		{name: "empty falls back to file", input: "", expected: BackendFile, known: false},
		{name: "case sensitive", input: "Raft", expected: BackendFile, known: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, known := NormalizeBackend(tt.input)
			assert.Equal(t, tt.expected, backend)
			assert.Equal(t, tt.known, known)
		})
	}
}

func TestBuildDocumentFileBackend(t *testing.T) {
	cfg := testConfig()
	cfg.DataDir = "/mnt/somewhere-else"

	doc, known := BuildDocument(cfg)
	require.True(t, known)

	// file backend ignores the configured data dir and uses the fixed path
	assert.Equal(t, BackendFile, doc.Storage.Backend)
	assert.Equal(t, FileStoragePath, doc.Storage.Path)
	assert.Empty(t, doc.Storage.NodeID)
}

func TestBuildDocumentRaftBackend(t *testing.T) {
	cfg := testConfig()
	cfg.StorageBackend = "raft"
	cfg.DataDir = "/opt/vault/data"

	doc, known := BuildDocument(cfg)
	require.True(t, known)

	assert.Equal(t, BackendRaft, doc.Storage.Backend)
	assert.Equal(t, "/opt/vault/data", doc.Storage.Path)
	assert.Equal(t, "node-a", doc.Storage.NodeID)
}

func TestBuildDocumentUnknownBackendFallsBack(t *testing.T) {
	cfg := testConfig()
	cfg.StorageBackend = "etcd"

	doc, known := BuildDocument(cfg)
	assert.False(t, known)
	assert.Equal(t, BackendFile, doc.Storage.Backend)
	assert.Equal(t, FileStoragePath, doc.Storage.Path)
}

func TestRenderTLSDisabled(t *testing.T) {
	cfg := testConfig()
	doc, _ := BuildDocument(cfg)

	out := collapseSpaces(string(doc.Render()))

	assert.Contains(t, out, `storage "file" {`)
	assert.Contains(t, out, `path = "/var/lib/vault"`)
	assert.Contains(t, out, `listener "tcp" {`)
	assert.Contains(t, out, `address = "0.0.0.0:8200"`)
	assert.Contains(t, out, "tls_disable = 1")
	assert.NotContains(t, out, "tls_cert_file")
	assert.NotContains(t, out, "tls_key_file")
	assert.Contains(t, out, "ui = true")
	assert.Contains(t, out, `api_addr = "http://10.0.0.5:8200"`)
	assert.Contains(t, out, `cluster_addr = "http://10.0.0.5:8201"`)
}

func TestRenderDefaultScenario(t *testing.T) {
	cfg := testConfig()
	doc, known := BuildDocument(cfg)
	require.True(t, known)

	out := collapseSpaces(string(doc.Render()))

	assert.Contains(t, out, `listener "tcp" { address = "0.0.0.0:8200" tls_disable = 1 }`)
	assert.Contains(t, out, `storage "file" { path = "/var/lib/vault" }`)
}

func TestRenderTLSEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.TLSEnabled = true
	cfg.CertPath = "/etc/vault.d/tls/vault.crt"
	cfg.KeyPath = "/etc/vault.d/tls/vault.key"
	cfg.APIAddr = "https://10.0.0.5:8200"
	cfg.ClusterAddr = "https://10.0.0.5:8201"

	doc, _ := BuildDocument(cfg)
	out := collapseSpaces(string(doc.Render()))

	assert.Contains(t, out, "tls_disable = 0")
	assert.Contains(t, out, `tls_cert_file = "/etc/vault.d/tls/vault.crt"`)
	assert.Contains(t, out, `tls_key_file = "/etc/vault.d/tls/vault.key"`)
	assert.NotContains(t, out, "tls_disable = 1")
}

func TestRenderRaftIncludesNodeID(t *testing.T) {
	cfg := testConfig()
	cfg.StorageBackend = "raft"

	doc, _ := BuildDocument(cfg)
	out := string(doc.Render())

	assert.Contains(t, out, `storage "raft" {`)
	assert.Contains(t, out, `node_id`)
	assert.Contains(t, out, "node-a")
}

func TestRenderDeterministic(t *testing.T) {
	cfg := testConfig()
	cfg.TLSEnabled = true
	cfg.CertPath = "/etc/vault.d/tls/vault.crt"
	cfg.KeyPath = "/etc/vault.d/tls/vault.key"

	docA, _ := BuildDocument(cfg)
	docB, _ := BuildDocument(cfg)

	assert.Equal(t, docA.Render(), docB.Render(),
		"equal documents must render to identical bytes")
}

func TestRenderBlockOrder(t *testing.T) {
	cfg := testConfig()
	doc, _ := BuildDocument(cfg)
	out := string(doc.Render())

	storageIdx := strings.Index(out, `storage "`)
	listenerIdx := strings.Index(out, `listener "`)
	uiIdx := strings.Index(out, "ui =")
	apiIdx := strings.Index(out, "api_addr")

	require.True(t, storageIdx >= 0 && listenerIdx >= 0 && uiIdx >= 0 && apiIdx >= 0)
	assert.Less(t, storageIdx, listenerIdx)
	assert.Less(t, listenerIdx, uiIdx)
	assert.Less(t, uiIdx, apiIdx)
}

func TestRenderStartsWithHeader(t *testing.T) {
	cfg := testConfig()
	doc, _ := BuildDocument(cfg)

	assert.True(t, strings.HasPrefix(string(doc.Render()), "# Vault configuration managed by Hestia\n"))
}
