// Package config loads node and client configuration from YAML files,
// grounded on original:dash-node/src/config.rs and
// original:dash-client/src/config.rs's Config{host_address,
// minimum_view_timeout, sync_request_limit, sync_response_timeout}
// shape and per-peer-file validator directory loading.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Shapooo/dash-plat/pkg/wire"
)

// NodeConfig is a validator's on-disk configuration (original:
// dash-node/src/config.rs's Config, minus the key material — loaded
// separately by the embedding caller, same as the original's
// `my_keypair: Option<DalekKeypair>` field kept out of the YAML via
// `#[serde(skip)]`).
type NodeConfig struct {
	HostAddress          string        `yaml:"host_address"`
	MinimumViewTimeoutMS uint64        `yaml:"minimum_view_timeout_ms"`
	SyncRequestLimit     uint32        `yaml:"sync_request_limit"`
	SyncResponseTimeoutMS uint64       `yaml:"sync_response_timeout_ms"`

	// PeerAddresses and Validators are populated by LoadPeers, never
	// read from the main YAML file (mirrors the source's `#[serde(skip)]`
	// fields).
	PeerAddresses map[wire.PublicKey]string `yaml:"-"`
	Validators    map[wire.PublicKey]uint64 `yaml:"-"`
}

// MinimumViewTimeout returns the configured view timeout as a
// time.Duration.
func (c *NodeConfig) MinimumViewTimeout() time.Duration {
	return time.Duration(c.MinimumViewTimeoutMS) * time.Millisecond
}

// SyncResponseTimeout returns the configured sync response timeout as a
// time.Duration.
func (c *NodeConfig) SyncResponseTimeout() time.Duration {
	return time.Duration(c.SyncResponseTimeoutMS) * time.Millisecond
}

// LoadNodeConfig reads and parses a node's config.yaml.
func LoadNodeConfig(path string) (*NodeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var c NodeConfig
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &c, nil
}

// peerFile is the per-peer YAML shape within the peers directory
// (original:dash-node/src/config.rs's PeerConfig{host_addr,
// public_key}).
type peerFile struct {
	HostAddr  string `yaml:"host_addr"`
	PublicKey string `yaml:"public_key"`
}

// LoadPeers reads every file in peersDir, each containing one
// base64-encoded validator public key and its host address, and
// populates c.PeerAddresses and c.Validators (equal voting power 1 per
// validator — spec.md has no weighted-validator concept). Grounded on
// config.rs's load_peers.
func (c *NodeConfig) LoadPeers(peersDir string) error {
	entries, err := os.ReadDir(peersDir)
	if err != nil {
		return fmt.Errorf("config: reading peers dir %s: %w", peersDir, err)
	}

	peerAddresses := make(map[wire.PublicKey]string)
	validators := make(map[wire.PublicKey]uint64)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(peersDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("config: reading peer file %s: %w", path, err)
		}
		var pf peerFile
		if err := yaml.Unmarshal(data, &pf); err != nil {
			return fmt.Errorf("config: parsing peer file %s: %w", path, err)
		}
		pk, err := decodePublicKey(pf.PublicKey)
		if err != nil {
			return fmt.Errorf("config: peer file %s: %w", path, err)
		}
		peerAddresses[pk] = pf.HostAddr
		validators[pk] = 1
	}

	c.PeerAddresses = peerAddresses
	c.Validators = validators
	return nil
}

func decodePublicKey(s string) (wire.PublicKey, error) {
	var pk wire.PublicKey
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return pk, fmt.Errorf("invalid base64 public key: %w", err)
	}
	if len(raw) != wire.PublicKeySize {
		return pk, fmt.Errorf("public key has length %d, want %d", len(raw), wire.PublicKeySize)
	}
	copy(pk[:], raw)
	return pk, nil
}

// ClientConfig is a client's on-disk configuration (original:
// dash-client/src/config.rs's Config{node_addrs}).
type ClientConfig struct {
	NodeAddresses []string `yaml:"node_addrs"`
}

// LoadClientConfig reads and parses a client's config.yaml.
func LoadClientConfig(path string) (*ClientConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var c ClientConfig
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &c, nil
}
