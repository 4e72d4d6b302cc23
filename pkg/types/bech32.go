package types

import (
	"fmt"
	"strings"
)

// bech32Alphabet is the 32-character data alphabet of BIP-173.
const bech32Alphabet = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

// checksumLen is the number of trailing checksum characters.
const checksumLen = 6

// bech32Value maps an ASCII character to its 5-bit value, or -1.
var bech32Value [128]int8

func init() {
	for i := range bech32Value {
		bech32Value[i] = -1
	}
	for i, c := range bech32Alphabet {
		bech32Value[c] = int8(i)
	}
}

// Bech32Encode encodes data under the given human-readable part.
func Bech32Encode(hrp string, data []byte) (string, error) {
	if hrp == "" {
		return "", fmt.Errorf("bech32: empty HRP")
	}
	for _, c := range hrp {
		if c < 33 || c > 126 {
			return "", fmt.Errorf("bech32: invalid HRP character %q", c)
		}
	}

	groups := bytesToGroups(data)

	var sb strings.Builder
	sb.Grow(len(hrp) + 1 + len(groups) + checksumLen)
	sb.WriteString(hrp)
	sb.WriteByte('1')
	for _, g := range groups {
		sb.WriteByte(bech32Alphabet[g])
	}
	for _, g := range checksum(hrp, groups) {
		sb.WriteByte(bech32Alphabet[g])
	}
	return sb.String(), nil
}

// Bech32Decode returns the human-readable part and payload of s.
func Bech32Decode(s string) (string, []byte, error) {
	if s == "" {
		return "", nil, fmt.Errorf("bech32: empty string")
	}
	if strings.ToLower(s) != s && strings.ToUpper(s) != s {
		return "", nil, fmt.Errorf("bech32: mixed case")
	}
	s = strings.ToLower(s)

	sep := strings.LastIndexByte(s, '1')
	if sep < 1 {
		return "", nil, fmt.Errorf("bech32: missing separator")
	}
	hrp, body := s[:sep], s[sep+1:]
	if len(body) < checksumLen {
		return "", nil, fmt.Errorf("bech32: too short")
	}

	groups := make([]byte, len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c >= 128 || bech32Value[c] < 0 {
			return "", nil, fmt.Errorf("bech32: invalid character %q", c)
		}
		groups[i] = byte(bech32Value[c])
	}

	if polymod(append(expandHRP(hrp), groups...)) != 1 {
		return "", nil, fmt.Errorf("bech32: invalid checksum")
	}

	data, err := groupsToBytes(groups[:len(groups)-checksumLen])
	if err != nil {
		return "", nil, err
	}
	return hrp, data, nil
}

// bytesToGroups regroups 8-bit bytes into 5-bit values, zero-padding
// the final group.
func bytesToGroups(data []byte) []byte {
	out := make([]byte, 0, (len(data)*8+4)/5)
	acc, bits := uint32(0), uint(0)
	for _, b := range data {
		acc = acc<<8 | uint32(b)
		bits += 8
		for bits >= 5 {
			bits -= 5
			out = append(out, byte(acc>>bits)&31)
		}
	}
	if bits > 0 {
		out = append(out, byte(acc<<(5-bits))&31)
	}
	return out
}

// groupsToBytes reverses bytesToGroups, rejecting non-zero padding.
func groupsToBytes(groups []byte) ([]byte, error) {
	out := make([]byte, 0, len(groups)*5/8)
	acc, bits := uint32(0), uint(0)
	for _, g := range groups {
		acc = acc<<5 | uint32(g)
		bits += 5
		if bits >= 8 {
			bits -= 8
			out = append(out, byte(acc>>bits))
		}
	}
	if bits >= 5 || acc<<(8-bits)&0xff != 0 {
		return nil, fmt.Errorf("bech32: non-zero padding")
	}
	return out, nil
}

func polymod(values []byte) uint32 {
	gen := [5]uint32{0x3b6a57b2, 0x26508e6d, 0x1ea119fa, 0x3d4233dd, 0x2a1462b3}
	chk := uint32(1)
	for _, v := range values {
		top := chk >> 25
		chk = (chk&0x1ffffff)<<5 ^ uint32(v)
		for i := 0; i < 5; i++ {
			if top>>uint(i)&1 == 1 {
				chk ^= gen[i]
			}
		}
	}
	return chk
}

func expandHRP(hrp string) []byte {
	out := make([]byte, 0, len(hrp)*2+1)
	for i := 0; i < len(hrp); i++ {
		out = append(out, hrp[i]>>5)
	}
	out = append(out, 0)
	for i := 0; i < len(hrp); i++ {
		out = append(out, hrp[i]&31)
	}
	return out
}

func checksum(hrp string, groups []byte) []byte {
	values := append(expandHRP(hrp), groups...)
	values = append(values, make([]byte, checksumLen)...)
	pm := polymod(values) ^ 1
	out := make([]byte, checksumLen)
	for i := range out {
		out[i] = byte(pm>>uint(5*(5-i))) & 31
	}
	return out
}
