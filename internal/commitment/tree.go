// Package commitment builds the Merkle commitment over region leaf hashes and
// produces the inclusion proofs anonymous submitters prove against. The tree
// is a build-time artifact: computed once per region-set version, immutable
// afterwards.
package commitment

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	pkgerrors "github.com/hellokitty09/inharitance/pkg/errors"
)

// Tree is a dense array-of-levels Merkle structure. Level 0 holds the leaves,
// the last level is the single root. Parents are MiMC(left, right); the last
// node of an odd-length level pairs with itself, never with a zero pad. That
// exact convention must hold on both build and verify or proofs silently fail.
type Tree struct {
	levels [][]fr.Element
}

// ProofStep is one level of an inclusion proof: the sibling hash and whether
// that sibling sits on the left of the running hash.
type ProofStep struct {
	Sibling       fr.Element
	IsLeftSibling bool
}

// Proof is the sibling path from a leaf up to (but excluding) the root.
type Proof []ProofStep

// Build constructs the tree for an ordered leaf sequence. Deterministic: the
// same sequence always yields the same root; reordering changes it. Duplicate
// leaves are permitted and simply produce identical subtrees.
func Build(leaves []fr.Element) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyInput, "commitment tree requires at least one leaf")
	}

	level := make([]fr.Element, len(leaves))
	copy(level, leaves)
	levels := [][]fr.Element{level}

	for len(level) > 1 {
		next := make([]fr.Element, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			right := left // odd last node pairs with itself
			if i+1 < len(level) {
				right = level[i+1]
			}
			next = append(next, mimcSum(left, right))
		}
		levels = append(levels, next)
		level = next
	}

	return &Tree{levels: levels}, nil
}

// Root returns the commitment root, the public anchor proofs are checked
// against.
func (t *Tree) Root() fr.Element {
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// LeafCount returns the number of leaves the tree was built from.
func (t *Tree) LeafCount() int {
	return len(t.levels[0])
}

// Leaf returns the leaf at index.
func (t *Tree) Leaf(index int) (fr.Element, error) {
	if index < 0 || index >= len(t.levels[0]) {
		return fr.Element{}, pkgerrors.New(pkgerrors.CodeIndexOutOfRange,
			fmt.Sprintf("leaf index %d out of range [0,%d)", index, len(t.levels[0])))
	}
	return t.levels[0][index], nil
}

// Prove emits the inclusion proof for the leaf at index: one sibling per
// level below the root. A node that is the odd last element of its level has
// itself as sibling.
func (t *Tree) Prove(index int) (Proof, error) {
	if index < 0 || index >= len(t.levels[0]) {
		return nil, pkgerrors.New(pkgerrors.CodeIndexOutOfRange,
			fmt.Sprintf("leaf index %d out of range [0,%d)", index, len(t.levels[0])))
	}

	proof := make(Proof, 0, len(t.levels)-1)
	for _, level := range t.levels[:len(t.levels)-1] {
		isRightChild := index%2 == 1
		sibling := index // self-pairing fallback
		if isRightChild {
			sibling = index - 1
		} else if index+1 < len(level) {
			sibling = index + 1
		}
		proof = append(proof, ProofStep{
			Sibling:       level[sibling],
			IsLeftSibling: isRightChild,
		})
		index /= 2
	}
	return proof, nil
}

// Verify folds the proof left-to-right from the claimed leaf and compares the
// result to root. A tampered sibling anywhere in the path makes this fail.
func Verify(leaf fr.Element, proof Proof, root fr.Element) bool {
	current := leaf
	for _, step := range proof {
		if step.IsLeftSibling {
			current = mimcSum(step.Sibling, current)
		} else {
			current = mimcSum(current, step.Sibling)
		}
	}
	return current.Equal(&root)
}
