// Package srp implements the SRP-6a arithmetic of RFC 5054 with SHA-1,
// as used by the TLS-SRP cipher suites.
package srp

import (
	"crypto/rand"
	"crypto/sha1"
	"errors"
	"fmt"
	"io"
	"math/big"
)

// Group is an SRP group (safe prime N and generator g).
type Group struct {
	N *big.Int
	G *big.Int
}

// RFC5054Group1024 is the 1024-bit group of RFC 5054 appendix A.
var RFC5054Group1024 = &Group{
	N: mustHex("EEAF0AB9ADB38DD69C33F80AFA8FC5E86072618775FF3C0B9EA2314C9C256576" +
		"D674DF7496EA81D3383B4813D692C6E0E0D5D8E250B98BE48E495C1D6089DAD1" +
		"5DC7D7B46154D6B6CE8EF4AD69B15D4982559B297BCF1885C529F566660E57EC" +
		"68EDBC3C05726CC02FD4CBF4976EAA9AFD5138FE8376435B9FC61D2FC0EB06E3"),
	G: big.NewInt(2),
}

const (
	MinGroupBits = 1024
	MaxGroupBits = 8192

	secretSize = 32
)

var (
	ErrInvalidGroup  = errors.New("srp: unacceptable group parameters")
	ErrInvalidPublic = errors.New("srp: illegal public value")
)

func mustHex(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("srp: bad constant " + s)
	}
	return n
}

// Validate rejects groups a client must not compute with.
func (g *Group) Validate() error {
	if g == nil || g.N == nil || g.G == nil {
		return ErrInvalidGroup
	}
	bits := g.N.BitLen()
	if bits < MinGroupBits || bits > MaxGroupBits || g.N.Bit(0) == 0 {
		return fmt.Errorf("%w: %d-bit modulus", ErrInvalidGroup, bits)
	}
	nMinus1 := new(big.Int).Sub(g.N, big.NewInt(1))
	if g.G.Cmp(big.NewInt(1)) <= 0 || g.G.Cmp(nMinus1) >= 0 {
		return fmt.Errorf("%w: generator out of range", ErrInvalidGroup)
	}
	return nil
}

// Pad left-pads x to the byte length of N.
func (g *Group) Pad(x *big.Int) []byte {
	return x.FillBytes(make([]byte, (g.N.BitLen()+7)/8))
}

func hash(parts ...[]byte) []byte {
	h := sha1.New()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

func hashInt(parts ...[]byte) *big.Int {
	return new(big.Int).SetBytes(hash(parts...))
}

// K computes k = H(N | PAD(g)).
func (g *Group) K() *big.Int {
	return hashInt(g.N.Bytes(), g.Pad(g.G))
}

// X computes x = H(s | H(I | ":" | P)).
func X(salt, identity, password []byte) *big.Int {
	inner := hash(identity, []byte(":"), password)
	return hashInt(salt, inner)
}

// U computes u = H(PAD(A) | PAD(B)).
func (g *Group) U(A, B *big.Int) *big.Int {
	return hashInt(g.Pad(A), g.Pad(B))
}

// Verifier computes v = g^x mod N.
func (g *Group) Verifier(salt, identity, password []byte) *big.Int {
	return new(big.Int).Exp(g.G, X(salt, identity, password), g.N)
}

// isZeroMod reports x mod N == 0.
func (g *Group) isZeroMod(x *big.Int) bool {
	return new(big.Int).Mod(x, g.N).Sign() == 0
}

func randomSecret(rnd io.Reader) (*big.Int, error) {
	if rnd == nil {
		rnd = rand.Reader
	}
	buf := make([]byte, secretSize)
	if _, err := io.ReadFull(rnd, buf); err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(buf), nil
}

// Client holds the ephemeral client secret a and public A = g^a mod N.
type Client struct {
	group *Group
	a     *big.Int
	pub   *big.Int
}

// NewClient validates the group and draws a fresh ephemeral secret.
func NewClient(g *Group, rnd io.Reader) (*Client, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	a, err := randomSecret(rnd)
	if err != nil {
		return nil, err
	}
	return &Client{group: g, a: a, pub: new(big.Int).Exp(g.G, a, g.N)}, nil
}

// Public returns A.
func (c *Client) Public() *big.Int {
	return c.pub
}

// PremasterSecret computes S = (B - k*g^x) ^ (a + u*x) mod N.
func (c *Client) PremasterSecret(salt, identity, password []byte, B *big.Int) ([]byte, error) {
	g := c.group
	if g.isZeroMod(B) {
		return nil, ErrInvalidPublic
	}
	u := g.U(c.pub, B)
	if u.Sign() == 0 {
		return nil, ErrInvalidPublic
	}
	x := X(salt, identity, password)

	kgx := new(big.Int).Exp(g.G, x, g.N)
	kgx.Mul(kgx, g.K())
	base := new(big.Int).Sub(B, kgx)
	base.Mod(base, g.N)

	exp := new(big.Int).Mul(u, x)
	exp.Add(exp, c.a)

	return new(big.Int).Exp(base, exp, g.N).Bytes(), nil
}

// Server holds the verifier and the ephemeral b, B = k*v + g^b mod N.
type Server struct {
	group *Group
	v     *big.Int
	b     *big.Int
	pub   *big.Int
}

// NewServer draws a fresh ephemeral secret for verifier v.
func NewServer(g *Group, v *big.Int, rnd io.Reader) (*Server, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	b, err := randomSecret(rnd)
	if err != nil {
		return nil, err
	}
	pub := new(big.Int).Mul(g.K(), v)
	pub.Add(pub, new(big.Int).Exp(g.G, b, g.N))
	pub.Mod(pub, g.N)
	return &Server{group: g, v: v, b: b, pub: pub}, nil
}

// Public returns B.
func (s *Server) Public() *big.Int {
	return s.pub
}

// PremasterSecret computes S = (A * v^u) ^ b mod N.
func (s *Server) PremasterSecret(A *big.Int) ([]byte, error) {
	g := s.group
	if g.isZeroMod(A) {
		return nil, ErrInvalidPublic
	}
	u := g.U(A, s.pub)
	base := new(big.Int).Exp(s.v, u, g.N)
	base.Mul(base, A)
	base.Mod(base, g.N)
	return new(big.Int).Exp(base, s.b, g.N).Bytes(), nil
}
