package tokens

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// DefaultEncoding is the tiktoken encoding used when no tokenizer table is configured.
const DefaultEncoding = tiktoken.MODEL_CL100K_BASE

// Exact counts tokens with a real BPE tokenizer.
type Exact struct {
	enc  *tiktoken.Tiktoken
	name string
}

// Name returns the tokenizer name, e.g. "exact:cl100k_base".
func (e *Exact) Name() string {
	return "exact:" + e.name
}

// Count returns the exact number of BPE tokens in text. Special-token
// markers are encoded as ordinary text.
func (e *Exact) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(e.enc.EncodeOrdinary(text))
}

var offlineLoader sync.Once

// NewEncoding builds an exact counter for a named tiktoken encoding. The BPE
// ranks come from the embedded offline loader, so loading never touches the
// network.
func NewEncoding(name string) (*Exact, error) {
	offlineLoader.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", name, err)
	}
	return &Exact{enc: enc, name: name}, nil
}

// tableFile is the on-disk tokenizer table format. BPERanks is a space
// separated list: a header word, the rank offset, then base64 tokens in rank order.
type tableFile struct {
	Name          string         `json:"name"`
	BPERanks      string         `json:"bpe_ranks"`
	PatStr        string         `json:"pat_str"`
	SpecialTokens map[string]int `json:"special_tokens"`
}

// LoadTable builds an exact counter from a local tokenizer table file.
func LoadTable(path string) (*Exact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tokenizer table: %w", err)
	}

	var table tableFile
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse tokenizer table %s: %w", path, err)
	}
	if table.PatStr == "" {
		return nil, fmt.Errorf("tokenizer table %s has no pat_str", path)
	}

	ranks, err := parseRanks(table.BPERanks)
	if err != nil {
		return nil, fmt.Errorf("tokenizer table %s: %w", path, err)
	}

	special := table.SpecialTokens
	if special == nil {
		special = map[string]int{}
	}

	bpe, err := tiktoken.NewCoreBPE(ranks, special, table.PatStr)
	if err != nil {
		return nil, fmt.Errorf("tokenizer table %s: %w", path, err)
	}

	name := table.Name
	if name == "" {
		name = "table"
	}

	specialSet := make(map[string]any, len(special))
	for k := range special {
		specialSet[k] = true
	}

	encoding := &tiktoken.Encoding{
		Name:           name,
		PatStr:         table.PatStr,
		MergeableRanks: ranks,
		SpecialTokens:  special,
	}

	return &Exact{enc: tiktoken.NewTiktoken(bpe, encoding, specialSet), name: name}, nil
}

func parseRanks(s string) (map[string]int, error) {
	parts := strings.Fields(s)
	if len(parts) < 3 {
		return nil, fmt.Errorf("bpe_ranks is empty")
	}

	offset, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid bpe_ranks offset %q: %w", parts[1], err)
	}

	ranks := make(map[string]int, len(parts)-2)
	for i, tok := range parts[2:] {
		b, err := base64.StdEncoding.DecodeString(tok)
		if err != nil {
			return nil, fmt.Errorf("invalid bpe token %d: %w", i, err)
		}
		ranks[string(b)] = offset + i
	}
	return ranks, nil
}
