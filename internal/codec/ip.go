package codec

import (
	"encoding/binary"
	"fmt"
	"net/netip"

	"chnative/internal/binio"
	"chnative/internal/chtype"
	"chnative/internal/column"
)

// ipCodec handles IPv4 (a little-endian UInt32, so the wire bytes are
// the reverse of the textual octet order) and IPv6 (16 bytes verbatim).
// The contract is that the canonical text form survives a full
// encode+decode; the octet order itself is locked by regression tests.
type ipCodec struct {
	base
	v6 bool
}

func newIPCodec(t chtype.Type) Codec {
	return &ipCodec{base: newBase(t), v6: t.Base == "IPv6"}
}

func (c *ipCodec) EstimateSize(rows int) int {
	if c.v6 {
		return rows * 16
	}
	return rows * 4
}

func (c *ipCodec) Decode(r *binio.Reader, rows int, st *DecodeState) (column.Column, error) {
	if col, handled, err := interceptSparse(c, c.node, r, rows, st); handled {
		return col, err
	}
	vals := make([]netip.Addr, rows)
	for i := range vals {
		if c.v6 {
			p, err := r.Bytes(16)
			if err != nil {
				return nil, err
			}
			vals[i] = netip.AddrFrom16([16]byte(p))
			continue
		}
		v, err := r.Fixed32()
		if err != nil {
			return nil, err
		}
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], v)
		vals[i] = netip.AddrFrom4(b)
	}
	return column.NewIPs(c.typ, vals), nil
}

func (c *ipCodec) Encode(w *binio.Writer, col column.Column) error {
	ips, ok := col.(*column.IPs)
	if !ok {
		return coercionErr(c.typ.String(), 0, col, "ip column expected")
	}
	for _, v := range ips.Values {
		if c.v6 {
			b := v.As16()
			w.Raw(b[:])
			continue
		}
		b := v.As4()
		w.Fixed32(binary.BigEndian.Uint32(b[:]))
	}
	return nil
}

func (c *ipCodec) coerce(v any) (netip.Addr, error) {
	switch x := v.(type) {
	case netip.Addr:
		return c.checkFamily(x)
	case string:
		a, err := netip.ParseAddr(x)
		if err != nil {
			return netip.Addr{}, fmt.Errorf("not an IP address string")
		}
		return c.checkFamily(a)
	}
	return netip.Addr{}, fmt.Errorf("unsupported value kind")
}

func (c *ipCodec) checkFamily(a netip.Addr) (netip.Addr, error) {
	if c.v6 {
		if a.Is4() {
			return netip.AddrFrom16(a.As16()), nil
		}
		return a, nil
	}
	if !a.Is4() {
		return netip.Addr{}, fmt.Errorf("not an IPv4 address")
	}
	return a, nil
}

func (c *ipCodec) FromValues(values []any) (column.Column, error) {
	vals := make([]netip.Addr, len(values))
	for i, v := range values {
		a, err := c.coerce(v)
		if err != nil {
			return nil, coercionErr(c.typ.String(), i, v, err.Error())
		}
		vals[i] = a
	}
	return column.NewIPs(c.typ, vals), nil
}

func (c *ipCodec) ZeroValue() any {
	if c.v6 {
		return netip.IPv6Unspecified().String()
	}
	return netip.AddrFrom4([4]byte{}).String()
}
