// Package handler exposes the commitment tree read-only: the public root and
// per-leaf inclusion proofs. Proof generation serves client-side circuits;
// nothing here mutates the tree.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hellokitty09/inharitance/internal/commitment"
	pkgerrors "github.com/hellokitty09/inharitance/pkg/errors"
	"github.com/hellokitty09/inharitance/pkg/platform/httputil"
)

type Handler struct {
	tree    *commitment.Tree
	regions []string
	logger  *slog.Logger
}

// New builds the handler over an already-constructed tree. The regions slice
// must be the exact ordered sequence the tree was built from; it is only used
// to resolve region names to leaf indexes.
func New(tree *commitment.Tree, regions []string, logger *slog.Logger) *Handler {
	return &Handler{tree: tree, regions: regions, logger: logger}
}

// Register mounts the proof endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/zkp/commitment", h.HandleCommitment)
	r.Get("/zkp/proof", h.HandleProof)
}

type commitmentResponse struct {
	Root      string `json:"root"`
	LeafCount int    `json:"leaf_count"`
}

// HandleCommitment handles GET /api/zkp/commitment.
func (h *Handler) HandleCommitment(w http.ResponseWriter, r *http.Request) {
	root := h.tree.Root()
	httputil.WriteJSON(w, http.StatusOK, commitmentResponse{
		Root:      root.String(),
		LeafCount: h.tree.LeafCount(),
	})
}

type proofStep struct {
	Sibling       string `json:"sibling"`
	IsLeftSibling bool   `json:"is_left_sibling"`
}

type proofResponse struct {
	Index int         `json:"index"`
	Leaf  string      `json:"leaf"`
	Root  string      `json:"root"`
	Proof []proofStep `json:"proof"`
}

// HandleProof handles GET /api/zkp/proof?index=N or ?region=Name.
func (h *Handler) HandleProof(w http.ResponseWriter, r *http.Request) {
	index, err := h.resolveIndex(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	leaf, err := h.tree.Leaf(index)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	proof, err := h.tree.Prove(index)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	steps := make([]proofStep, 0, len(proof))
	for _, step := range proof {
		steps = append(steps, proofStep{
			Sibling:       step.Sibling.String(),
			IsLeftSibling: step.IsLeftSibling,
		})
	}

	root := h.tree.Root()
	httputil.WriteJSON(w, http.StatusOK, proofResponse{
		Index: index,
		Leaf:  leaf.String(),
		Root:  root.String(),
		Proof: steps,
	})
}

func (h *Handler) resolveIndex(r *http.Request) (int, error) {
	if region := r.URL.Query().Get("region"); region != "" {
		for i, name := range h.regions {
			if strings.EqualFold(name, region) {
				return i, nil
			}
		}
		return 0, pkgerrors.New(pkgerrors.CodeNotFound, "unknown region")
	}

	raw := r.URL.Query().Get("index")
	if raw == "" {
		return 0, pkgerrors.New(pkgerrors.CodeBadRequest, "index or region query parameter required")
	}
	index, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeBadRequest, "index must be an integer")
	}
	return index, nil
}
