package mem

// PageShift is log2(PageSize). Used to convert a physical or virtual address
// to a page/frame index (shift right by PageShift) and back (shift left).
const PageShift = 12

// PageSize is the base page size for Sv39: 4 KiB. Sv39 never produces
// anything smaller; 2 MiB/1 GiB super-pages are not used by this kernel.
const PageSize = Size(1 << PageShift)

// Sv39 virtual addresses are 39 bits wide; physical addresses are 56 bits
// wide. VPN/PPN fields are each 9 bits (512 entries per table level).
const (
	VirtAddrBits = 39
	PhysAddrBits = 56

	VPNBits = 9
	VPNMask = (1 << VPNBits) - 1
)

// VPN shift amounts for the three Sv39 levels, outermost first: vpn2 selects
// the root table, vpn1 the middle table, vpn0 the leaf table.
const (
	VPN2Shift = PageShift + 2*VPNBits
	VPN1Shift = PageShift + 1*VPNBits
	VPN0Shift = PageShift
)
