package chaincore

// StoredBlock (the spec's "LiteBlock") composes a header with its chain
// info. Its identity is its header's identity. It is immutable once placed
// in a store; a StoredBlock with no parent in the store is instead held as
// an OrphanBlock by the chain engine's orphan pool.
type StoredBlock struct {
	*BlockHeader
	ChainInfo
}

// Hash returns the block's identity, the double-SHA-256 of its header.
func (b *StoredBlock) Hash() Hash {
	return b.BlockHeader.Hash()
}

// NewStoredBlock builds the child StoredBlock for header extending parent
// (nil for genesis), given how many transactions the block being connected
// contains.
func NewStoredBlock(header *BlockHeader, parent *StoredBlock, txCount int64) *StoredBlock {
	var parentInfo *ChainInfo
	if parent != nil {
		parentInfo = &parent.ChainInfo
	}
	return &StoredBlock{
		BlockHeader: header,
		ChainInfo:   NewChainInfo(parentInfo, header.Bits, txCount),
	}
}

// OrphanBlock is a StoredBlock whose parent is not yet in the store. It
// exists only in the chain engine's in-memory orphan pool; it is promoted
// to a real StoredBlock (and persisted) once its parent is connected, or
// dropped when the pool is drained.
type OrphanBlock = StoredBlock
