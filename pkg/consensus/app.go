package consensus

import "github.com/Shapooo/dash-plat/pkg/wire"

// App is the callback surface a HotStuff-style consensus library drives
// into this project (spec §6): chain_id identifies the network,
// produce_block asks for the next block's payload, validate_block
// checks a proposal before voting on it.
type App interface {
	ChainID() uint64
	ProduceBlock(req ProduceBlockRequest) (ProduceBlockResponse, error)
	ValidateBlock(req ValidateBlockRequest) (ValidateBlockResponse, error)
}

// ProduceBlockRequest carries the parent the new block will extend.
type ProduceBlockRequest struct {
	Parent *Block
}

// ProduceBlockResponse is the payload for the next proposal. AppUpdates
// and ValidatorUpdates are left nil by this project's App implementation
// (app-state mutation and validator rotation are out of scope, spec §1).
type ProduceBlockResponse struct {
	DataHash         wire.TransactionHash
	Data             [][]byte
	AppUpdates       map[string][]byte
	ValidatorUpdates map[wire.PublicKey]uint64
}

// ValidateBlockResponse is the outcome of validating a proposal: either
// Valid (optionally carrying the same update maps ProduceBlockResponse
// would) or Invalid.
type ValidateBlockResponse struct {
	Valid            bool
	AppUpdates       map[string][]byte
	ValidatorUpdates map[wire.PublicKey]uint64
}

// ValidateBlockRequest carries the proposal under review.
type ValidateBlockRequest struct {
	Proposal *Block
}
