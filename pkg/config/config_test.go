package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shapooo/dash-plat/pkg/wire"
)

func TestLoadNodeConfigParsesFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
host_address: "127.0.0.1:9000"
minimum_view_timeout_ms: 1500
sync_request_limit: 64
sync_response_timeout_ms: 3000
`), 0o600))

	c, err := LoadNodeConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", c.HostAddress)
	assert.Equal(t, uint32(64), c.SyncRequestLimit)
	assert.Equal(t, int64(1500e6), c.MinimumViewTimeout().Nanoseconds())
	assert.Equal(t, int64(3000e6), c.SyncResponseTimeout().Nanoseconds())
}

func TestLoadNodeConfigMissingFileErrors(t *testing.T) {
	_, err := LoadNodeConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadPeersPopulatesAddressesAndValidators(t *testing.T) {
	peersDir := t.TempDir()

	var pkA, pkB wire.PublicKey
	pkA[0], pkB[0] = 0x01, 0x02

	writePeerFile(t, peersDir, "a.yaml", pkA, "10.0.0.1:9000")
	writePeerFile(t, peersDir, "b.yaml", pkB, "10.0.0.2:9000")

	c := &NodeConfig{}
	require.NoError(t, c.LoadPeers(peersDir))

	assert.Len(t, c.PeerAddresses, 2)
	assert.Len(t, c.Validators, 2)
	assert.Equal(t, "10.0.0.1:9000", c.PeerAddresses[pkA])
	assert.Equal(t, uint64(1), c.Validators[pkB])
}

func TestLoadPeersRejectsMalformedPublicKey(t *testing.T) {
	peersDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(peersDir, "bad.yaml"), []byte(`
host_addr: "10.0.0.1:9000"
public_key: "not-valid-base64!!"
`), 0o600))

	c := &NodeConfig{}
	assert.Error(t, c.LoadPeers(peersDir))
}

func TestLoadClientConfigParsesNodeAddrs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "client_config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
node_addrs:
  - "127.0.0.1:9000"
  - "127.0.0.1:9001"
`), 0o600))

	c, err := LoadClientConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"127.0.0.1:9000", "127.0.0.1:9001"}, c.NodeAddresses)
}

func writePeerFile(t *testing.T, dir, name string, pk wire.PublicKey, addr string) {
	t.Helper()
	content := "host_addr: \"" + addr + "\"\npublic_key: \"" + base64.StdEncoding.EncodeToString(pk[:]) + "\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}
