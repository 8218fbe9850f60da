package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"quantum-nft-ledger/internal/ledger"
	"quantum-nft-ledger/internal/mint"
	"quantum-nft-ledger/internal/oracle"
	"quantum-nft-ledger/internal/registry"
	"quantum-nft-ledger/internal/storage/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	chain := ledger.New()
	reg := registry.New()
	minter := mint.New(mint.Options{
		Chain:    chain,
		Registry: reg,
		Archive:  memory.NewBlockArchive(),
		Events:   memory.NewMintEventStore(),
	})
	srv := New(Options{
		Minter:   minter,
		Chain:    chain,
		Registry: reg,
		Oracle:   oracle.New(),
	})

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()

	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, decoded
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestMintEndpoint_Success(t *testing.T) {
	ts := newTestServer(t)

	resp, body := postJSON(t, ts.URL+"/nft", `{"token_id":"t1","metadata":{"name":"Alice"}}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	msg, _ := body["message"].(string)
	if !strings.Contains(msg, "block 1") {
		t.Errorf("message %q does not reference block 1", msg)
	}
	if body["sequence_index"] != float64(1) {
		t.Errorf("sequence_index = %v, want 1", body["sequence_index"])
	}
	if body["asset_address"] == "" {
		t.Error("response missing asset_address")
	}

	// Subsequent chain read: genesis + t1.
	var blocks []map[string]any
	getJSON(t, ts.URL+"/blockchain", &blocks)
	if len(blocks) != 2 {
		t.Fatalf("chain length = %d, want 2", len(blocks))
	}
	if blocks[0]["token_id"] != nil {
		t.Errorf("genesis token_id = %v, want null", blocks[0]["token_id"])
	}
	if blocks[0]["previous_hash"] != nil {
		t.Errorf("genesis previous_hash = %v, want null", blocks[0]["previous_hash"])
	}
	if blocks[1]["token_id"] != "t1" {
		t.Errorf("block 1 token_id = %v, want t1", blocks[1]["token_id"])
	}
	if blocks[1]["previous_hash"] != blocks[0]["hash"] {
		t.Error("block 1 previous_hash does not match genesis hash")
	}
}

func TestMintEndpoint_Duplicate(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := postJSON(t, ts.URL+"/nft", `{"token_id":"t1","metadata":{}}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first mint status = %d, want 201", resp.StatusCode)
	}

	resp, body := postJSON(t, ts.URL+"/nft", `{"token_id":"t1","metadata":{}}`)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate mint status = %d, want 409", resp.StatusCode)
	}
	if body["kind"] != "duplicate_identifier" {
		t.Errorf("kind = %v, want duplicate_identifier", body["kind"])
	}
	if body["message"] == "" {
		t.Error("failure body missing message")
	}

	// Chain unchanged by the failed call.
	var blocks []map[string]any
	getJSON(t, ts.URL+"/blockchain", &blocks)
	if len(blocks) != 2 {
		t.Errorf("chain length after duplicate = %d, want 2", len(blocks))
	}
}

func TestMintEndpoint_InvalidMetadata(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name     string
		body     string
		wantKind string
	}{
		{"string metadata", `{"token_id":"t1","metadata":"oops"}`, "invalid_metadata"},
		{"array metadata", `{"token_id":"t1","metadata":[1]}`, "invalid_metadata"},
		{"empty token_id", `{"token_id":"","metadata":{}}`, "invalid_metadata"},
		{"missing token_id", `{"metadata":{}}`, "invalid_metadata"},
		{"missing metadata", `{"token_id":"t1"}`, "malformed_request"},
		{"not json", `{{{{`, "malformed_request"},
		{"bad owner", `{"token_id":"t1","metadata":{},"owner":"zzz"}`, "malformed_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := postJSON(t, ts.URL+"/nft", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
			if body["kind"] != tt.wantKind {
				t.Errorf("kind = %v, want %s", body["kind"], tt.wantKind)
			}
		})
	}

	// No ledger mutation from any rejected request.
	var blocks []map[string]any
	getJSON(t, ts.URL+"/blockchain", &blocks)
	if len(blocks) != 1 {
		t.Errorf("chain length after rejected mints = %d, want 1", len(blocks))
	}
}

func TestMintEndpoint_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nft")
	if err != nil {
		t.Fatalf("GET /nft failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestOracleEndpoint_Deterministic(t *testing.T) {
	ts := newTestServer(t)

	var first, second map[string]any
	getJSON(t, ts.URL+"/quantum-ai?q=hello", &first)
	getJSON(t, ts.URL+"/quantum-ai?q=hello", &second)

	msg, _ := first["message"].(string)
	if msg == "" {
		t.Fatal("oracle returned an empty message")
	}
	// No chain mutation between calls: identical output.
	if first["message"] != second["message"] {
		t.Errorf("oracle not deterministic: %q != %q", first["message"], second["message"])
	}

	// Default (absent) query is valid, not an error.
	resp := getJSON(t, ts.URL+"/quantum-ai", &first)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status without query = %d, want 200", resp.StatusCode)
	}
}

func TestVerifyEndpoint(t *testing.T) {
	ts := newTestServer(t)

	postJSON(t, ts.URL+"/nft", `{"token_id":"t1","metadata":{}}`)

	var body map[string]any
	resp := getJSON(t, ts.URL+"/verify", &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["valid"] != true {
		t.Errorf("valid = %v, want true", body["valid"])
	}
	if body["length"] != float64(2) {
		t.Errorf("length = %v, want 2", body["length"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	ts := newTestServer(t)

	postJSON(t, ts.URL+"/nft", `{"token_id":"t1","metadata":{}}`)
	postJSON(t, ts.URL+"/nft", `{"token_id":"t2","metadata":{}}`)

	var body StatusResponse
	resp := getJSON(t, ts.URL+"/status", &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body.Status != "running" {
		t.Errorf("Status = %q, want running", body.Status)
	}
	if body.ChainHeight != 3 {
		t.Errorf("ChainHeight = %d, want 3", body.ChainHeight)
	}
	if body.MintedTokens != 2 {
		t.Errorf("MintedTokens = %d, want 2", body.MintedTokens)
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
