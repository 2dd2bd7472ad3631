package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/scrypt"

	"remote-screen/pkg/codec"
	"remote-screen/pkg/pairing"
)

// EncryptedSessionJSON 借用 Ethereum Keystore V3 的结构
// 存储的是配对信息 (guid / srpKey / publicKey)
type EncryptedSessionJSON struct {
	Crypto  CryptoJSON `json:"crypto"`
	Id      string     `json:"id"`      // UUID
	Version int        `json:"version"` // 3
}

type CryptoJSON struct {
	Cipher       string       `json:"cipher"`       // "aes-256-gcm"
	CipherText   string       `json:"ciphertext"`   // Hex string
	CipherParams CipherParams `json:"cipherparams"` // nonce
	KDF          string       `json:"kdf"`          // "scrypt"
	KDFParams    KDFParams    `json:"kdfparams"`
	MAC          string       `json:"mac"` // Hex string
}

type CipherParams struct {
	IV string `json:"iv"`
}

type KDFParams struct {
	DKLen int    `json:"dklen"`
	N     int    `json:"n"`
	R     int    `json:"r"`
	P     int    `json:"p"`
	Salt  string `json:"salt"`
}

// scrypt 参数；配对信息只在启动时解密一次
var (
	scryptN     = 1 << 15
	scryptR     = 8
	scryptP     = 1
	scryptDKLen = 32
)

var ErrWrongPassphrase = errors.New("invalid passphrase or corrupted keystore (MAC mismatch)")

// Seal 使用口令加密配对信息
func Seal(cfg pairing.SessionConfig, passphrase string) (*EncryptedSessionJSON, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	plaintext, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}

	// 1. 随机 Salt
	salt := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}

	// 2. Scrypt 派生密钥
	derivedKey, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, scryptDKLen)
	if err != nil {
		return nil, err
	}

	// 3. AES-256-GCM
	gcm, err := newGCM(derivedKey)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	// 4. MAC = SHA256(derivedKey + ciphertext)，用于区分口令错误和数据损坏
	mac := sha256.Sum256(append(derivedKey, ciphertext...))

	id, err := generateUUID()
	if err != nil {
		return nil, err
	}
	return &EncryptedSessionJSON{
		Version: 3,
		Id:      id,
		Crypto: CryptoJSON{
			Cipher:       "aes-256-gcm",
			CipherText:   codec.BytesToHex(ciphertext),
			CipherParams: CipherParams{IV: codec.BytesToHex(nonce)},
			KDF:          "scrypt",
			KDFParams: KDFParams{
				DKLen: scryptDKLen,
				N:     scryptN,
				R:     scryptR,
				P:     scryptP,
				Salt:  codec.BytesToHex(salt),
			},
			MAC: codec.BytesToHex(mac[:]),
		},
	}, nil
}

// Open 解密得到配对信息
func Open(k *EncryptedSessionJSON, passphrase string) (pairing.SessionConfig, error) {
	var cfg pairing.SessionConfig
	if k.Crypto.KDF != "scrypt" || k.Crypto.Cipher != "aes-256-gcm" {
		return cfg, fmt.Errorf("unsupported keystore %s/%s", k.Crypto.KDF, k.Crypto.Cipher)
	}

	// 1. 解析 Hex 参数
	salt, err := codec.HexToBytes(k.Crypto.KDFParams.Salt)
	if err != nil {
		return cfg, fmt.Errorf("invalid salt: %w", err)
	}
	nonce, err := codec.HexToBytes(k.Crypto.CipherParams.IV)
	if err != nil {
		return cfg, fmt.Errorf("invalid iv: %w", err)
	}
	ciphertext, err := codec.HexToBytes(k.Crypto.CipherText)
	if err != nil {
		return cfg, fmt.Errorf("invalid ciphertext: %w", err)
	}
	mac, err := codec.HexToBytes(k.Crypto.MAC)
	if err != nil {
		return cfg, fmt.Errorf("invalid mac: %w", err)
	}

	// 2. 重新派生密钥
	p := k.Crypto.KDFParams
	derivedKey, err := scrypt.Key([]byte(passphrase), salt, p.N, p.R, p.P, p.DKLen)
	if err != nil {
		return cfg, err
	}

	// 3. 验证 MAC
	calculated := sha256.Sum256(append(derivedKey, ciphertext...))
	if subtle.ConstantTimeCompare(mac, calculated[:]) != 1 {
		return cfg, ErrWrongPassphrase
	}

	// 4. 解密
	gcm, err := newGCM(derivedKey)
	if err != nil {
		return cfg, err
	}
	if len(nonce) != gcm.NonceSize() {
		return cfg, errors.New("invalid iv length")
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return cfg, fmt.Errorf("decryption failed: %w", err)
	}
	if err := json.Unmarshal(plaintext, &cfg); err != nil {
		return cfg, fmt.Errorf("corrupted session: %w", err)
	}
	return cfg, cfg.Validate()
}

// SaveToFile 保存到文件
func (k *EncryptedSessionJSON) SaveToFile(filename string) error {
	data, err := json.MarshalIndent(k, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	return os.WriteFile(filename, data, 0o600) // 只允许当前用户读取
}

// LoadFromFile 从文件加载
func LoadFromFile(filename string) (*EncryptedSessionJSON, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var k EncryptedSessionJSON
	if err := json.Unmarshal(data, &k); err != nil {
		return nil, err
	}
	return &k, nil
}

// Remove 删除配对信息；文件不存在不算错误
func Remove(filename string) error {
	if err := os.Remove(filename); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// --- Helpers ---

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func generateUUID() (string, error) {
	b := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:]), nil
}
