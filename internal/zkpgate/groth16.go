package zkpgate

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"
)

// Groth16Verifier checks groth16 proofs over BN254 against a fixed verifying
// key. The proof wire format is the gnark serialization, base64-encoded in the
// submission JSON. Deserialization failures surface as oracle errors; only a
// completed pairing check that fails counts as a rejection.
type Groth16Verifier struct {
	vk groth16.VerifyingKey
}

// NewGroth16VerifierFromFile loads a gnark-serialized verifying key.
func NewGroth16VerifierFromFile(path string) (*Groth16Verifier, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open verification key: %w", err)
	}
	defer f.Close()

	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(f); err != nil {
		return nil, fmt.Errorf("read verification key: %w", err)
	}
	return &Groth16Verifier{vk: vk}, nil
}

func (v *Groth16Verifier) Verify(ctx context.Context, publicSignals []string, proofRaw json.RawMessage) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var encoded string
	if err := json.Unmarshal(proofRaw, &encoded); err != nil {
		return false, fmt.Errorf("decode proof envelope: %w", err)
	}
	proofBytes, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return false, fmt.Errorf("decode proof bytes: %w", err)
	}

	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(proofBytes)); err != nil {
		return false, fmt.Errorf("read proof: %w", err)
	}

	w, err := witness.New(ecc.BN254.ScalarField())
	if err != nil {
		return false, fmt.Errorf("new witness: %w", err)
	}
	values := make(chan any, len(publicSignals))
	for _, s := range publicSignals {
		var e fr.Element
		if _, err := e.SetString(s); err != nil {
			return false, fmt.Errorf("public signal %q is not a field element: %w", s, err)
		}
		values <- e
	}
	close(values)
	if err := w.Fill(len(publicSignals), 0, values); err != nil {
		return false, fmt.Errorf("fill witness: %w", err)
	}

	if err := groth16.Verify(proof, v.vk, w); err != nil {
		// The oracle ran to completion and rejected the proof.
		return false, nil
	}
	return true, nil
}
