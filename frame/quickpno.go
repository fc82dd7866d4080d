package frame

// QuickInfo is the minimal sub-id decode the merge tool needs to
// resynchronize three tape images and vote on interpolated bytes. It
// deliberately duplicates the relevant lines of Parse rather than
// calling it, since a full FrameInfo (subcode packs, dates, program
// numbers) is never needed for merging.
type QuickInfo struct {
	HexPNO           int
	InterpolateFlags byte
}

// QuickPNO extracts HexPNO and InterpolateFlags directly from a
// frame's sub-id bytes, without parsing subcode packs or main-id
// fields.
func QuickPNO(f Frame) QuickInfo {
	subid := f.subid()
	pno1 := (subid[1] >> 4) & 0xf
	pno2 := (subid[2] >> 4) & 0xf
	pno3 := (subid[2] >> 0) & 0xf
	return QuickInfo{
		HexPNO:           (int(pno1) << 8) | (int(pno2) << 4) | int(pno3),
		InterpolateFlags: subid[3],
	}
}
