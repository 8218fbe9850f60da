// Package server is the HTTP boundary: it translates the three external
// operations (mint, read-chain, query-oracle) plus diagnostics into calls
// against the minter, ledger, and oracle, and serializes the results.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"quantum-nft-ledger/internal/domain"
	"quantum-nft-ledger/internal/ledger"
	"quantum-nft-ledger/internal/mint"
	"quantum-nft-ledger/internal/observability"
	"quantum-nft-ledger/internal/oracle"
	"quantum-nft-ledger/internal/registry"
	"quantum-nft-ledger/internal/stream"
)

// maxBodyBytes caps mint request bodies; metadata is arbitrary but not
// unbounded.
const maxBodyBytes = 1 << 20

// Server holds the request handlers and their collaborators.
type Server struct {
	minter   *mint.Minter
	chain    *ledger.Chain
	registry *registry.Registry
	oracle   *oracle.Responder
	hub      *stream.Hub
	logger   *log.Logger
	started  time.Time
}

// Options configures a Server.
type Options struct {
	Minter   *mint.Minter
	Chain    *ledger.Chain
	Registry *registry.Registry
	Oracle   *oracle.Responder
	Hub      *stream.Hub
	Logger   *log.Logger
}

// New creates a Server.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		minter:   opts.Minter,
		chain:    opts.Chain,
		registry: opts.Registry,
		oracle:   opts.Oracle,
		hub:      opts.Hub,
		logger:   logger,
		started:  time.Now(),
	}
}

// Routes returns the HTTP mux with all endpoints registered.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/nft", s.handleMint)
	mux.HandleFunc("/blockchain", s.handleChain)
	mux.HandleFunc("/quantum-ai", s.handleOracle)
	mux.HandleFunc("/verify", s.handleVerify)
	mux.HandleFunc("/status", s.handleStatus)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())

	if s.hub != nil {
		mux.Handle("/ws", s.hub)
	}

	return mux
}

// handleMint serves POST /nft.
func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, kindMalformedRequest, "mint requires POST")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, kindMalformedRequest, "failed to read request body")
		return
	}

	var req mintRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, kindMalformedRequest, "request body is not valid JSON")
		return
	}
	if req.TokenID == "" {
		s.writeError(w, http.StatusBadRequest, kindInvalidMetadata, "token_id must be a non-empty string")
		return
	}
	if len(req.Metadata) == 0 {
		s.writeError(w, http.StatusBadRequest, kindMalformedRequest, "metadata is required")
		return
	}

	block, err := s.minter.Mint(r.Context(), req.TokenID, req.Metadata, req.Owner)
	if err != nil {
		s.writeMintError(w, req.TokenID, err)
		return
	}

	resp := mintResponse{
		Message:       fmt.Sprintf("token %q minted in block %d", req.TokenID, block.Index),
		SequenceIndex: block.Index,
		Hash:          block.Hash,
	}
	if block.Record != nil {
		resp.AssetAddress = block.Record.AssetAddress
	}
	s.writeJSON(w, http.StatusCreated, resp)
}

// handleChain serves GET /blockchain.
func (s *Server) handleChain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, kindMalformedRequest, "chain read requires GET")
		return
	}

	blocks := s.chain.Snapshot()
	out := make([]blockJSON, len(blocks))
	for i, b := range blocks {
		out[i] = blockToWire(b)
	}

	observability.RecordChainRead()
	s.writeJSON(w, http.StatusOK, out)
}

// handleOracle serves GET /quantum-ai. The optional q parameter seeds the
// response; its absence is the valid default case.
func (s *Server) handleOracle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, kindMalformedRequest, "oracle query requires GET")
		return
	}

	message := s.oracle.Respond(r.URL.Query().Get("q"), s.chain.Length())
	observability.RecordOracleQuery()
	s.writeJSON(w, http.StatusOK, messageResponse{Message: message})
}

// handleVerify serves GET /verify: a full chain integrity walk.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, kindMalformedRequest, "verify requires GET")
		return
	}

	if err := s.minter.Verify(); err != nil {
		s.logger.Printf("chain verification failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, kindCorruptionDetected, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, verifyResponse{Valid: true, Length: s.chain.Length()})
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status            string `json:"status"`
	Uptime            string `json:"uptime"`
	ChainHeight       int64  `json:"chain_height"`
	MintedTokens      int    `json:"minted_tokens"`
	StreamSubscribers int    `json:"stream_subscribers,omitempty"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:       "running",
		Uptime:       time.Since(s.started).String(),
		ChainHeight:  s.chain.Length(),
		MintedTokens: s.registry.Size(),
	}
	if s.hub != nil {
		resp.StreamSubscribers = s.hub.Subscribers()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// writeMintError maps internal mint errors onto wire status and kind.
func (s *Server) writeMintError(w http.ResponseWriter, tokenID string, err error) {
	switch {
	case errors.Is(err, registry.ErrDuplicateIdentifier):
		s.writeError(w, http.StatusConflict, kindDuplicateIdentifier,
			fmt.Sprintf("token %q is already minted", tokenID))
	case errors.Is(err, registry.ErrInvalidMetadata):
		s.writeError(w, http.StatusBadRequest, kindInvalidMetadata,
			"metadata must be a JSON object and token_id must be non-empty")
	case errors.Is(err, mint.ErrInvalidOwner):
		s.writeError(w, http.StatusBadRequest, kindMalformedRequest,
			"owner must be a valid base58 public key")
	case errors.Is(err, ledger.ErrCorrupted):
		s.logger.Printf("mint refused, chain corrupted: %v", err)
		s.writeError(w, http.StatusInternalServerError, kindCorruptionDetected,
			"chain integrity violation: minting is halted")
	default:
		s.logger.Printf("mint failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, kindMalformedRequest, "internal error")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Printf("write response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, kind, message string) {
	s.writeJSON(w, status, errorResponse{Message: message, Kind: kind})
}

// BlockBroadcaster adapts the stream hub to the minter's Broadcaster
// interface, converting blocks to their wire representation once.
type BlockBroadcaster struct {
	Hub *stream.Hub
}

// BroadcastBlock pushes one appended block to all WebSocket subscribers.
func (b *BlockBroadcaster) BroadcastBlock(block *domain.Block) {
	b.Hub.Broadcast(blockToWire(block))
}
