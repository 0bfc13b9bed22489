// pkg/provision/document.go

// The rendered configuration is modelled as a small typed tree with an
// explicit HCL serializer, so rendering is a pure function independent of
// provisioning side effects: equal trees always serialize to identical bytes.
package provision

import (
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

// Backend selects the storage block variant.
type Backend string

const (
	BackendFile Backend = "file"
	BackendRaft Backend = "raft"
)

// NormalizeBackend maps a configured backend string onto a supported variant.
// Unrecognized values fall back to the file backend; ok is false so callers
// can surface the fallback to the operator.
func NormalizeBackend(s string) (backend Backend, ok bool) {
	switch Backend(s) {
	case BackendRaft:
		return BackendRaft, true
	case BackendFile:
		return BackendFile, true
	default:
		return BackendFile, false
	}
}

// StorageBlock is the persistence subsection of the document.
type StorageBlock struct {
	Backend Backend
	Path    string
	// NodeID is set only for the raft backend.
	NodeID string
}

// ListenerBlock is the tcp listener subsection.
type ListenerBlock struct {
	Address    string
	TLSEnabled bool
	CertFile   string
	KeyFile    string
}

// Document is the full configuration tree, concatenated in fixed order:
// storage, listener, ui, advertised addresses.
type Document struct {
	Storage     StorageBlock
	Listener    ListenerBlock
	UI          bool
	APIAddr     string
	ClusterAddr string
}

// BuildDocument derives the document purely from the config snapshot.
// backendKnown is false when the configured storage backend was not
// recognized and the file backend was substituted.
func BuildDocument(cfg *Config) (doc Document, backendKnown bool) {
	backend, known := NormalizeBackend(cfg.StorageBackend)

	storage := StorageBlock{Backend: backend}
	switch backend {
	case BackendRaft:
		storage.Path = cfg.DataDir
		storage.NodeID = cfg.NodeID
	default:
		storage.Path = FileStoragePath
	}

	listener := ListenerBlock{
		Address:    cfg.ListenerAddress(),
		TLSEnabled: cfg.TLSEnabled,
	}
	if cfg.TLSEnabled {
		listener.CertFile = cfg.CertPath
		listener.KeyFile = cfg.KeyPath
	}

	return Document{
		Storage:     storage,
		Listener:    listener,
		UI:          cfg.UIEnabled,
		APIAddr:     cfg.APIAddr,
		ClusterAddr: cfg.ClusterAddr,
	}, known
}

var documentHeader = []byte("# Vault configuration managed by Hestia\n\n")

// Render serializes the document to HCL. Equal documents render to
// byte-identical output.
func (d Document) Render() []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	storage := body.AppendNewBlock("storage", []string{string(d.Storage.Backend)}).Body()
	storage.SetAttributeValue("path", cty.StringVal(d.Storage.Path))
	if d.Storage.Backend == BackendRaft {
		storage.SetAttributeValue("node_id", cty.StringVal(d.Storage.NodeID))
	}
	body.AppendNewline()

	listener := body.AppendNewBlock("listener", []string{"tcp"}).Body()
	listener.SetAttributeValue("address", cty.StringVal(d.Listener.Address))
	if d.Listener.TLSEnabled {
		listener.SetAttributeValue("tls_disable", cty.NumberIntVal(0))
		listener.SetAttributeValue("tls_cert_file", cty.StringVal(d.Listener.CertFile))
		listener.SetAttributeValue("tls_key_file", cty.StringVal(d.Listener.KeyFile))
	} else {
		listener.SetAttributeValue("tls_disable", cty.NumberIntVal(1))
	}
	body.AppendNewline()

	body.SetAttributeValue("ui", cty.BoolVal(d.UI))
	body.AppendNewline()

	body.SetAttributeValue("api_addr", cty.StringVal(d.APIAddr))
	body.SetAttributeValue("cluster_addr", cty.StringVal(d.ClusterAddr))

	return append(append([]byte{}, documentHeader...), f.Bytes()...)
}
