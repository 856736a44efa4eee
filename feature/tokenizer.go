package feature

import (
	"regexp"
	"strings"
)

// 两个及以上的单词字符组成一个 token
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Tokenizer 小写化文本并切分为 token，过滤停用词。
type Tokenizer struct {
	stopWords map[string]struct{}
}

// NewTokenizer 创建使用英文停用词表的分词器，extra 为额外停用词。
func NewTokenizer(extra ...string) *Tokenizer {
	sw := make(map[string]struct{}, len(englishStopWords)+len(extra))
	for _, w := range englishStopWords {
		sw[w] = struct{}{}
	}
	for _, w := range extra {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			sw[w] = struct{}{}
		}
	}
	return &Tokenizer{stopWords: sw}
}

// IsStopWord 判断 token 是否为停用词
func (t *Tokenizer) IsStopWord(token string) bool {
	_, ok := t.stopWords[token]
	return ok
}

// Tokenize 返回文本中的非停用词 token，保持出现顺序（含重复）。
func (t *Tokenizer) Tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, tok := range raw {
		if !t.IsStopWord(tok) {
			out = append(out, tok)
		}
	}
	return out
}
