package srptls

import (
	"crypto/hmac"
	"crypto/sha256"
	"hash"
)

const (
	masterSecretLen = 48
	finishedLen     = 12
	macKeyLen       = 20 // HMAC-SHA1
	encKeyLen       = 32 // AES-256
)

const (
	labelMaster         = "master secret"
	labelKeyExpansion   = "key expansion"
	labelClientFinished = "client finished"
	labelServerFinished = "server finished"
)

// pHash implements P_hash of RFC 5246 section 5.
func pHash(result, secret, seed []byte, h func() hash.Hash) {
	mac := hmac.New(h, secret)
	mac.Write(seed)
	a := mac.Sum(nil)

	for j := 0; j < len(result); {
		mac.Reset()
		mac.Write(a)
		mac.Write(seed)
		b := mac.Sum(nil)
		j += copy(result[j:], b)

		mac.Reset()
		mac.Write(a)
		a = mac.Sum(nil)
	}
}

// prf12 is the TLS 1.2 PRF with SHA-256.
func prf12(secret []byte, label string, seed []byte, n int) []byte {
	out := make([]byte, n)
	labelAndSeed := make([]byte, 0, len(label)+len(seed))
	labelAndSeed = append(labelAndSeed, label...)
	labelAndSeed = append(labelAndSeed, seed...)
	pHash(out, secret, labelAndSeed, sha256.New)
	return out
}

func concat(a, b []byte) []byte {
	out := make([]byte, 0, len(a)+len(b))
	return append(append(out, a...), b...)
}

func masterFromPremaster(premaster, clientRandom, serverRandom []byte) []byte {
	return prf12(premaster, labelMaster, concat(clientRandom, serverRandom), masterSecretLen)
}

type keyBlock struct {
	clientMAC, serverMAC []byte
	clientKey, serverKey []byte
}

// keysFromMaster derives the CBC keys. TLS 1.2 CBC suites use explicit IVs,
// so no IV material is taken from the key block.
func keysFromMaster(master, clientRandom, serverRandom []byte) keyBlock {
	kb := prf12(master, labelKeyExpansion, concat(serverRandom, clientRandom), 2*macKeyLen+2*encKeyLen)
	return keyBlock{
		clientMAC: kb[0:macKeyLen],
		serverMAC: kb[macKeyLen : 2*macKeyLen],
		clientKey: kb[2*macKeyLen : 2*macKeyLen+encKeyLen],
		serverKey: kb[2*macKeyLen+encKeyLen:],
	}
}

func finishedSum(master []byte, label string, transcript hash.Hash) []byte {
	return prf12(master, label, transcript.Sum(nil), finishedLen)
}
