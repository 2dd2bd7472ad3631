package srptls

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/binary"
	"errors"
	"hash"
	"io"
)

var errBadRecordMAC = errors.New("srptls: record authentication failed")

// cbcState protects one direction: AES-256-CBC with an explicit IV per
// record and HMAC-SHA1 over seq|type|version|length|content (MAC-then-encrypt).
type cbcState struct {
	block cipher.Block
	mac   hash.Hash
	seq   uint64
}

func newCBCState(key, macKey []byte) (*cbcState, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &cbcState{block: block, mac: hmac.New(sha1.New, macKey)}, nil
}

func (s *cbcState) recordMAC(typ recordType, content []byte) []byte {
	var hdr [13]byte
	binary.BigEndian.PutUint64(hdr[:8], s.seq)
	hdr[8] = byte(typ)
	binary.BigEndian.PutUint16(hdr[9:], VersionTLS12)
	binary.BigEndian.PutUint16(hdr[11:], uint16(len(content)))

	s.mac.Reset()
	s.mac.Write(hdr[:])
	s.mac.Write(content)
	return s.mac.Sum(nil)
}

func (s *cbcState) seal(typ recordType, content []byte, rnd io.Reader) ([]byte, error) {
	bs := s.block.BlockSize()
	mac := s.recordMAC(typ, content)

	data := make([]byte, 0, len(content)+len(mac)+bs)
	data = append(data, content...)
	data = append(data, mac...)
	padLen := (bs - (len(data)+1)%bs) % bs
	for i := 0; i <= padLen; i++ {
		data = append(data, byte(padLen))
	}

	out := make([]byte, bs+len(data))
	if _, err := io.ReadFull(rnd, out[:bs]); err != nil {
		return nil, err
	}
	cipher.NewCBCEncrypter(s.block, out[:bs]).CryptBlocks(out[bs:], data)
	s.seq++
	return out, nil
}

func (s *cbcState) open(typ recordType, fragment []byte) ([]byte, error) {
	bs := s.block.BlockSize()
	macSize := s.mac.Size()
	minLen := bs + ((macSize+1+bs-1)/bs)*bs
	if len(fragment) < minLen || len(fragment)%bs != 0 {
		return nil, errBadRecordMAC
	}

	plain := make([]byte, len(fragment)-bs)
	cipher.NewCBCDecrypter(s.block, fragment[:bs]).CryptBlocks(plain, fragment[bs:])

	// padding 和 MAC 错误统一返回 bad_record_mac
	padLen := int(plain[len(plain)-1])
	if padLen+1+macSize > len(plain) {
		return nil, errBadRecordMAC
	}
	good := byte(0)
	for _, b := range plain[len(plain)-padLen-1:] {
		good |= b ^ byte(padLen)
	}

	n := len(plain) - padLen - 1 - macSize
	content := plain[:n]
	want := s.recordMAC(typ, content)
	if !hmac.Equal(want, plain[n:n+macSize]) || good != 0 {
		return nil, errBadRecordMAC
	}
	s.seq++
	return content, nil
}
