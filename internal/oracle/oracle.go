// Package oracle implements the "quantum AI" query responder.
//
// Despite the name there is no quantum computation here: the responder is a
// deterministic pseudo-random function keyed by the query content and the
// current chain height. Same query against the same chain state always
// yields the same message.
package oracle

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// responses are the canned oracle messages. Selection is keyed by the
// query digest, so the set can grow without breaking determinism for a
// fixed input.
var responses = []string{
	"The quantum oracle observes your query collapsing into a definite answer.",
	"Superposition resolved: the ledger favors your hypothesis.",
	"Entangled with block history, the oracle sees no contradiction.",
	"Decoherence complete. The answer was already written into the chain.",
	"The oracle measures your query against %d blocks of history and approves.",
	"Interference pattern stable: proceed with your mint.",
	"The wavefunction of this chain remains unbroken.",
	"Quantum state verified. The oracle has nothing further to add.",
}

// Responder answers oracle queries. Stateless; safe for concurrent use.
type Responder struct{}

// New creates a Responder.
func New() *Responder {
	return &Responder{}
}

// Respond produces the oracle's message for a query at a given chain
// height. Pure function of its inputs: no randomness, no side effects, no
// chain access. An empty query is the valid default case.
func (o *Responder) Respond(query string, chainHeight int64) string {
	digest := sha256.Sum256([]byte(fmt.Sprintf("%s|%d", query, chainHeight)))

	pick := binary.BigEndian.Uint64(digest[:8]) % uint64(len(responses))
	msg := responses[pick]
	if msg == responses[4] {
		msg = fmt.Sprintf(msg, chainHeight)
	}

	// The "entanglement signature" is a stand-in for quantum provenance:
	// a digest suffix that lets callers see determinism at a glance.
	return fmt.Sprintf("%s [entanglement signature: %s]", msg, hex.EncodeToString(digest[24:28]))
}
