package commitment

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	_ "github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	gchash "github.com/consensys/gnark-crypto/hash"
	"github.com/ethereum/go-ethereum/crypto"
)

// fieldFromString maps an arbitrary UTF-8 string into the BN254 scalar field
// by reducing its keccak256 digest modulo the field order. Deterministic and
// collision-resistant up to the field size.
func fieldFromString(s string) fr.Element {
	digest := crypto.Keccak256([]byte(s))
	n := new(big.Int).SetBytes(digest)
	n.Mod(n, fr.Modulus())

	var e fr.Element
	e.SetBigInt(n)
	return e
}

// mimcSum hashes the given field elements with MiMC over BN254.
func mimcSum(elements ...fr.Element) fr.Element {
	h := gchash.MIMC_BN254.New()
	for _, e := range elements {
		b := e.Bytes()
		_, _ = h.Write(b[:])
	}

	var out fr.Element
	out.SetBytes(h.Sum(nil))
	return out
}

// LeafFromRegion derives the commitment leaf for a region name. The same
// value doubles as the region-hash commitment disclosed in a proof's public
// signals: a one-way stand-in for the raw region name.
func LeafFromRegion(region string) fr.Element {
	return mimcSum(fieldFromString(region))
}

// LeavesFromRegions derives the ordered leaf sequence for a region set.
func LeavesFromRegions(regions []string) []fr.Element {
	leaves := make([]fr.Element, len(regions))
	for i, region := range regions {
		leaves[i] = LeafFromRegion(region)
	}
	return leaves
}

// RegionHashString returns the decimal field-element encoding of a region's
// commitment, the form it travels in over the wire.
func RegionHashString(region string) string {
	leaf := LeafFromRegion(region)
	return leaf.String()
}
