package decoder

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"remote-screen/pkg/wallet/types"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/shopspring/decimal"
)

const xrpMaxDepth = 16

var errXRPTruncated = errors.New("truncated input")

// ripple 使用自己的 base58 字母表, 编码规则和比特币相同
const (
	bitcoinAlphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
	rippleAlphabet  = "rpshnaf39wBUDNEGHJKLM4PQRST7VWXYZ2bcdeCg65jkm8oFqi1tuvAxyz"
)

var toRippleAlphabet = func() *strings.Replacer {
	pairs := make([]string, 0, 2*len(bitcoinAlphabet))
	for i := 0; i < len(bitcoinAlphabet); i++ {
		pairs = append(pairs, bitcoinAlphabet[i:i+1], rippleAlphabet[i:i+1])
	}
	return strings.NewReplacer(pairs...)
}()

// XRPAddress encodes a 20 byte account ID as a classic r-address.
func XRPAddress(accountID []byte) string {
	return toRippleAlphabet.Replace(base58.CheckEncode(accountID, 0x00))
}

func fieldPlaceholder(id xrpFieldID) string {
	return fmt.Sprintf("Field(%d,%d)", id.typ, id.nth)
}

type xrpReader struct {
	b   []byte
	pos int
}

func (r *xrpReader) eof() bool {
	return r.pos >= len(r.b)
}

func (r *xrpReader) read(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.b) {
		return nil, errXRPTruncated
	}
	out := r.b[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

func (r *xrpReader) readByte() (int, error) {
	b, err := r.read(1)
	if err != nil {
		return 0, err
	}
	return int(b[0]), nil
}

// fieldID reads a 1-3 byte field header.
func (r *xrpReader) fieldID() (xrpFieldID, error) {
	b, err := r.readByte()
	if err != nil {
		return xrpFieldID{}, err
	}
	id := xrpFieldID{typ: b >> 4, nth: b & 0x0F}
	if id.typ == 0 {
		if id.typ, err = r.readByte(); err != nil {
			return id, err
		}
		if id.typ < 16 {
			return id, fmt.Errorf("non canonical type code %d", id.typ)
		}
	}
	if id.nth == 0 {
		if id.nth, err = r.readByte(); err != nil {
			return id, err
		}
		if id.nth < 16 {
			return id, fmt.Errorf("non canonical field code %d", id.nth)
		}
	}
	return id, nil
}

// vl reads a variable length prefix and the bytes it covers.
func (r *xrpReader) vl() ([]byte, error) {
	b1, err := r.readByte()
	if err != nil {
		return nil, err
	}
	var n int
	switch {
	case b1 <= 192:
		n = b1
	case b1 <= 240:
		b2, err := r.readByte()
		if err != nil {
			return nil, err
		}
		n = 193 + (b1-193)*256 + b2
	case b1 <= 254:
		rest, err := r.read(2)
		if err != nil {
			return nil, err
		}
		n = 12481 + (b1-241)*65536 + int(rest[0])*256 + int(rest[1])
	default:
		return nil, fmt.Errorf("invalid length prefix %#x", b1)
	}
	return r.read(n)
}

// xrpParser turns the canonical binary serialization into a field tree.
type xrpParser struct {
	r xrpReader
}

func (p *xrpParser) fields(depth int, nested bool) ([]types.Field, error) {
	if depth > xrpMaxDepth {
		return nil, errors.New("object nesting too deep")
	}
	var out []types.Field
	for {
		if p.r.eof() {
			if nested {
				return nil, errors.New("unterminated object")
			}
			return out, nil
		}
		id, err := p.r.fieldID()
		if err != nil {
			return nil, err
		}
		switch id {
		case xrpObjectEnd:
			if !nested {
				return nil, errors.New("unexpected object end marker")
			}
			return out, nil
		case xrpArrayEnd:
			return nil, errors.New("unexpected array end marker")
		}

		f, err := p.value(id, depth)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", xrpFieldName(id), err)
		}
		out = append(out, f)
	}
}

func (p *xrpParser) value(id xrpFieldID, depth int) (types.Field, error) {
	f := types.Field{Name: xrpFieldName(id)}

	fixed := func(n int) ([]byte, error) { return p.r.read(n) }

	switch id.typ {
	case stUInt8:
		b, err := fixed(1)
		if err != nil {
			return f, err
		}
		f.Value = fmt.Sprintf("%d", b[0])
	case stUInt16:
		b, err := fixed(2)
		if err != nil {
			return f, err
		}
		v := binary.BigEndian.Uint16(b)
		f.Value = fmt.Sprintf("%d", v)
		if f.Name == "TransactionType" {
			if name, ok := xrpTransactionTypes[v]; ok {
				f.Value = name
			}
		}
	case stUInt32:
		b, err := fixed(4)
		if err != nil {
			return f, err
		}
		f.Value = fmt.Sprintf("%d", binary.BigEndian.Uint32(b))
	case stUInt64:
		b, err := fixed(8)
		if err != nil {
			return f, err
		}
		f.Value = strings.ToUpper(hex.EncodeToString(b))
	case stHash128, stHash160, stHash256:
		size := map[int]int{stHash128: 16, stHash160: 20, stHash256: 32}[id.typ]
		b, err := fixed(size)
		if err != nil {
			return f, err
		}
		f.Value = strings.ToUpper(hex.EncodeToString(b))
	case stAmount:
		v, err := p.amount(f.Name)
		if err != nil {
			return f, err
		}
		f.Value = v
	case stBlob:
		b, err := p.r.vl()
		if err != nil {
			return f, err
		}
		f.Value = strings.ToUpper(hex.EncodeToString(b))
	case stAccountID:
		b, err := p.r.vl()
		if err != nil {
			return f, err
		}
		if len(b) != 20 {
			return f, fmt.Errorf("account id must be 20 bytes, got %d", len(b))
		}
		f.Value = XRPAddress(b)
	case stObject:
		children, err := p.fields(depth+1, true)
		if err != nil {
			return f, err
		}
		if f.Name == "Memo" {
			decodeMemoText(children)
		}
		f.Children = children
	case stArray:
		children, err := p.array(depth + 1)
		if err != nil {
			return f, err
		}
		f.Children = children
	case stPathSet:
		children, err := p.pathSet()
		if err != nil {
			return f, err
		}
		f.Value = fmt.Sprintf("%d paths", len(children))
		f.Children = children
	case stVector256:
		b, err := p.r.vl()
		if err != nil {
			return f, err
		}
		if len(b)%32 != 0 {
			return f, fmt.Errorf("vector256 length %d is not a multiple of 32", len(b))
		}
		for i := 0; i < len(b); i += 32 {
			f.Children = append(f.Children, types.Field{Name: "Hash", Value: strings.ToUpper(hex.EncodeToString(b[i : i+32]))})
		}
	default:
		return f, fmt.Errorf("unsupported type code %d", id.typ)
	}
	return f, nil
}

func (p *xrpParser) array(depth int) ([]types.Field, error) {
	var out []types.Field
	for {
		if p.r.eof() {
			return nil, errors.New("unterminated array")
		}
		id, err := p.r.fieldID()
		if err != nil {
			return nil, err
		}
		if id == xrpArrayEnd {
			return out, nil
		}
		if id.typ != stObject {
			return nil, fmt.Errorf("array element %s is not an object", xrpFieldName(id))
		}
		elem, err := p.value(id, depth)
		if err != nil {
			return nil, err
		}
		out = append(out, elem)
	}
}

// amount renders native XRP (scaled by 10^6), the fee in drops and issued currencies.
func (p *xrpParser) amount(name string) (string, error) {
	head, err := p.r.read(8)
	if err != nil {
		return "", err
	}
	v := binary.BigEndian.Uint64(head)
	positive := v&(1<<62) != 0

	// 1. 原生 XRP
	if v&(1<<63) == 0 {
		drops := int64(v & (1<<62 - 1))
		if !positive {
			drops = -drops
		}
		if name == "Fee" {
			return fmt.Sprintf("%d drops", drops), nil
		}
		return decimal.New(drops, -6).String() + " XRP", nil
	}

	// 2. IOU: 8 字节数值 + 20 字节币种 + 20 字节发行方
	rest, err := p.r.read(40)
	if err != nil {
		return "", err
	}
	mantissa := int64(v & (1<<54 - 1))
	exponent := int32((v>>54)&0xFF) - 97
	value := decimal.Zero
	if mantissa != 0 {
		value = decimal.New(mantissa, exponent)
		if !positive {
			value = value.Neg()
		}
	}
	return fmt.Sprintf("%s %s/%s", value.String(), xrpCurrency(rest[:20]), XRPAddress(rest[20:])), nil
}

func xrpCurrency(code []byte) string {
	standard := true
	for i, b := range code {
		if (i < 12 || i >= 15) && b != 0 {
			standard = false
			break
		}
	}
	if !standard {
		return strings.ToUpper(hex.EncodeToString(code))
	}
	iso := strings.TrimRight(string(code[12:15]), "\x00")
	if iso == "" {
		return "XRP"
	}
	return iso
}

func (p *xrpParser) pathSet() ([]types.Field, error) {
	var paths []types.Field
	var steps []types.Field
	for {
		t, err := p.r.readByte()
		if err != nil {
			return nil, err
		}
		switch t {
		case 0x00, 0xFF:
			paths = append(paths, types.Field{Name: "Path", Children: steps})
			steps = nil
			if t == 0x00 {
				return paths, nil
			}
			continue
		}
		if t&^0x31 != 0 {
			return nil, fmt.Errorf("unknown path step type %#x", t)
		}

		var parts []string
		if t&0x01 != 0 {
			b, err := p.r.read(20)
			if err != nil {
				return nil, err
			}
			parts = append(parts, "account="+XRPAddress(b))
		}
		if t&0x10 != 0 {
			b, err := p.r.read(20)
			if err != nil {
				return nil, err
			}
			parts = append(parts, "currency="+xrpCurrency(b))
		}
		if t&0x20 != 0 {
			b, err := p.r.read(20)
			if err != nil {
				return nil, err
			}
			parts = append(parts, "issuer="+XRPAddress(b))
		}
		steps = append(steps, types.Field{Name: "Step", Value: strings.Join(parts, " ")})
	}
}

// decodeMemoText replaces hex memo values with text when MemoFormat is text/*.
func decodeMemoText(memo []types.Field) {
	var format []byte
	for _, f := range memo {
		if f.Name == "MemoFormat" {
			format, _ = hex.DecodeString(f.Value)
		}
	}
	if !strings.HasPrefix(strings.ToLower(string(format)), "text/") {
		return
	}
	for i := range memo {
		switch memo[i].Name {
		case "MemoType", "MemoData", "MemoFormat":
			raw, err := hex.DecodeString(memo[i].Value)
			if err == nil && utf8.Valid(raw) {
				memo[i].Value = string(raw)
			}
		}
	}
}
