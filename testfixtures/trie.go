// Package testfixtures loads the JSON test-vector files checked into
// testdata/ and runs them against the real trie and evm packages. It plays
// the role the teacher's core/genesis JSON loaders play for genesis specs:
// a thin decode-and-validate layer over hand-authored JSON, not a source of
// behavior itself.
package testfixtures

import (
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"chaincore/storage"
	"chaincore/trie"
)

//go:embed testdata/trie_cases.json testdata/evm_cases.json
var fixturesFS embed.FS

// TrieOp is one mutation applied to a trie in sequence.
type TrieOp struct {
	Type  string `json:"type"` // "put" or "delete"
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

// TrieCase is a named sequence of operations and, optionally, the root hash
// committing that sequence must produce.
type TrieCase struct {
	Name         string   `json:"name"`
	Ops          []TrieOp `json:"ops"`
	ExpectedRoot string   `json:"expectedRoot,omitempty"`
}

// LoadTrieCases decodes the built-in trie test-vector file.
func LoadTrieCases() ([]TrieCase, error) {
	raw, err := fixturesFS.ReadFile("testdata/trie_cases.json")
	if err != nil {
		return nil, fmt.Errorf("testfixtures: read trie_cases.json: %w", err)
	}
	var cases []TrieCase
	if err := json.Unmarshal(raw, &cases); err != nil {
		return nil, fmt.Errorf("testfixtures: decode trie_cases.json: %w", err)
	}
	return cases, nil
}

// Run applies c's operations to a fresh trie over an in-memory store and
// commits. It returns the committed root; if c.ExpectedRoot is set, Run
// also verifies the committed root matches it.
func (c TrieCase) Run() ([32]byte, error) {
	store := storage.NewMemDB()
	t := trie.New(store)

	for _, op := range c.Ops {
		switch op.Type {
		case "put":
			if err := t.TryUpdate([]byte(op.Key), []byte(op.Value)); err != nil {
				return [32]byte{}, fmt.Errorf("case %q: put %q: %w", c.Name, op.Key, err)
			}
		case "delete":
			if err := t.TryDelete([]byte(op.Key)); err != nil {
				return [32]byte{}, fmt.Errorf("case %q: delete %q: %w", c.Name, op.Key, err)
			}
		default:
			return [32]byte{}, fmt.Errorf("case %q: unknown op type %q", c.Name, op.Type)
		}
	}

	root, err := t.Commit()
	if err != nil {
		return [32]byte{}, fmt.Errorf("case %q: commit: %w", c.Name, err)
	}
	if c.ExpectedRoot != "" {
		want, err := hex.DecodeString(c.ExpectedRoot)
		if err != nil {
			return root, fmt.Errorf("case %q: decode expectedRoot: %w", c.Name, err)
		}
		if hex.EncodeToString(root[:]) != hex.EncodeToString(want) {
			return root, fmt.Errorf("case %q: root mismatch: got %x, want %x", c.Name, root, want)
		}
	}
	return root, nil
}
