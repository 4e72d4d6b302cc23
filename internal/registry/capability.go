package registry

// Capability IDs the registry declares support for. The set is fixed and
// independent of registry state.
var (
	// CapRegistry covers the core ownership, approval, and transfer surface.
	CapRegistry = DeriveSelector("sigil.registry.v1")

	// CapMetadata covers collection name, symbol, and token URIs.
	CapMetadata = DeriveSelector("sigil.metadata.v1")

	// CapReceiverAck covers the safe-transfer acknowledgment protocol.
	CapReceiverAck = DeriveSelector("sigil.receiver-ack.v1")
)

var supportedCapabilities = map[Selector]bool{
	CapRegistry:    true,
	CapMetadata:    true,
	CapReceiverAck: true,
}

// SupportsCapability reports whether the registry implements the
// capability with the given ID.
func SupportsCapability(id Selector) bool {
	return supportedCapabilities[id]
}
