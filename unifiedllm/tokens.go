package unifiedllm

import (
	"sync"
	"sync/atomic"

	"github.com/pkoukk/tiktoken-go"
)

// tokenEncoding is the BPE used for estimates. Model-exact counts are not
// needed; cl100k_base is close enough for context-window warnings.
const tokenEncoding = "cl100k_base"

var (
	bpeEnabled atomic.Bool
	encOnce    sync.Once
	enc        *tiktoken.Tiktoken
)

// EnableBPE switches CountTokens to tiktoken counting. The BPE ranks are
// fetched (or read from TIKTOKEN_CACHE_DIR) on first use, so this stays off
// unless the host opts in.
func EnableBPE() {
	bpeEnabled.Store(true)
}

func encoder() *tiktoken.Tiktoken {
	if !bpeEnabled.Load() {
		return nil
	}
	encOnce.Do(func() {
		e, err := tiktoken.GetEncoding(tokenEncoding)
		if err == nil {
			enc = e
		}
	})
	return enc
}

// CountTokens estimates the token count of text. Without BPE ranks it falls
// back to one token per four bytes.
func CountTokens(text string) int {
	if text == "" {
		return 0
	}
	if e := encoder(); e != nil {
		return len(e.Encode(text, nil, nil))
	}
	return approxTokens(text)
}

// CountMessageTokens estimates the token count of a conversation, adding a
// small per-message overhead for role framing.
func CountMessageTokens(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += 4 + CountTokens(m.Content)
	}
	return total
}

func approxTokens(text string) int {
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}
