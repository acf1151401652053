package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/matzehuels/procflow/pkg/layout"
)

// keyVersion changes whenever the meaning of cached values changes, which
// orphans every older entry.
const keyVersion = "v1"

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Keyer derives cache keys.
type Keyer interface {
	// LayoutKey identifies the result of running req.
	LayoutKey(req layout.Request) string

	// ArtifactKey identifies a rendering of the flow document with the
	// given content hash.
	ArtifactKey(flowHash string, opts ArtifactKeyOpts) string
}

// ArtifactKeyOpts are the render options that change the output bytes.
type ArtifactKeyOpts struct {
	Format    string           `json:"format"`
	Engine    string           `json:"engine,omitempty"`
	Direction layout.Direction `json:"direction,omitempty"`
	Detailed  bool             `json:"detailed,omitempty"`
	Relayout  bool             `json:"relayout,omitempty"`
}

// DefaultKeyer hashes the canonical JSON of the inputs.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// LayoutKey hashes the whole request: node order, sizes and positions all
// influence the result.
func (DefaultKeyer) LayoutKey(req layout.Request) string {
	return hashKey("layout", keyVersion, req)
}

// ArtifactKey hashes the flow hash with the render options.
func (DefaultKeyer) ArtifactKey(flowHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", keyVersion, flowHash, opts)
}
