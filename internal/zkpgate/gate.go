// Package zkpgate is the admission checkpoint for anonymous submissions. It
// performs no cryptography itself: it forwards proofs to a verifier oracle
// and, on success, extracts the commitment-bound region hash for storage.
package zkpgate

import (
	"context"
	"encoding/json"

	pkgerrors "github.com/hellokitty09/inharitance/pkg/errors"
)

// Submission is an externally-produced proof bundle. By convention
// PublicSignals[0] is the commitment root being proven against and
// PublicSignals[1] is the disclosed region-hash commitment. It never contains
// identity.
type Submission struct {
	Proof         json.RawMessage `json:"proof"`
	PublicSignals []string        `json:"publicSignals"`
}

// Status is the terminal outcome of one admission attempt.
type Status string

const (
	// StatusUnverified means no proof was supplied. The submission may still
	// proceed; demo/no-proof mode is a first-class labeled outcome, not a
	// silent bypass.
	StatusUnverified Status = "unverified"
	StatusVerified   Status = "verified"
	StatusRejected   Status = "rejected"
)

// Result carries the gate decision. RegionHash is set only when Verified.
type Result struct {
	Status     Status
	RegionHash string
}

// Verifier is the external proof oracle. A false return means the oracle ran
// and rejected; a non-nil error means the oracle itself failed and the two
// must never be conflated.
type Verifier interface {
	Verify(ctx context.Context, publicSignals []string, proof json.RawMessage) (bool, error)
}

// Gate holds no state across calls; Verified and Rejected are mutually
// exclusive terminal outcomes of a single Admit.
type Gate struct {
	verifier Verifier
}

func New(verifier Verifier) *Gate {
	return &Gate{verifier: verifier}
}

// Admit decides whether a submission may proceed to the ledger.
func (g *Gate) Admit(ctx context.Context, sub *Submission) (Result, error) {
	if sub == nil {
		return Result{Status: StatusUnverified}, nil
	}

	if len(sub.Proof) == 0 || len(sub.PublicSignals) < 2 {
		return Result{Status: StatusRejected},
			pkgerrors.New(pkgerrors.CodeInvalidProof, "proof must carry public signals [root, regionHash]")
	}

	if g.verifier == nil {
		// A proof was supplied but no oracle is configured: fail closed as an
		// operator problem, not a proof rejection.
		return Result{}, pkgerrors.New(pkgerrors.CodeVerifier, "no verifier oracle configured")
	}

	ok, err := g.verifier.Verify(ctx, sub.PublicSignals, sub.Proof)
	if err != nil {
		return Result{}, pkgerrors.New(pkgerrors.CodeVerifier, "verifier oracle failed: "+err.Error())
	}
	if !ok {
		return Result{Status: StatusRejected},
			pkgerrors.New(pkgerrors.CodeInvalidProof, "proof rejected by verifier")
	}

	return Result{
		Status:     StatusVerified,
		RegionHash: sub.PublicSignals[1],
	}, nil
}
