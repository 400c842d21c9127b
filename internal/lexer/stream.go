package lexer

import (
	"github.com/funvibe/stubinfer/internal/pipeline"
	"github.com/funvibe/stubinfer/internal/token"
)

// TokenStream buffers lexer output so the parser can look ahead.
type TokenStream struct {
	lexer *Lexer
	buf   []token.Token
	eof   bool
}

var _ pipeline.TokenStream = (*TokenStream)(nil)

func NewTokenStream(l *Lexer) *TokenStream {
	return &TokenStream{lexer: l}
}

func (s *TokenStream) fill(n int) {
	for len(s.buf) < n && !s.eof {
		tok := s.lexer.NextToken()
		s.buf = append(s.buf, tok)
		if tok.Type == token.EOF {
			s.eof = true
		}
	}
}

func (s *TokenStream) Next() token.Token {
	s.fill(1)
	if len(s.buf) == 0 {
		return token.Token{Type: token.EOF}
	}
	tok := s.buf[0]
	if tok.Type == token.EOF {
		// keep returning EOF
		return tok
	}
	s.buf = s.buf[1:]
	return tok
}

func (s *TokenStream) Peek(n int) []token.Token {
	s.fill(n)
	if n > len(s.buf) {
		n = len(s.buf)
	}
	return s.buf[:n]
}

// Resync recovers from a bracket left open by a broken statement starting
// on line: buffered lookahead is dropped and lexing resumes at the next
// line at the same or a shallower indentation. It reports false when no
// bracket is open.
func (s *TokenStream) Resync(line int) bool {
	if !s.lexer.InBrackets() {
		return false
	}
	s.buf = s.buf[:0]
	s.eof = false
	s.lexer.ResumeAfter(line)
	return true
}

// SliceStream replays a fixed token slice, ending with EOF.
type SliceStream struct {
	toks []token.Token
	pos  int
}

func NewSliceStream(toks []token.Token) *SliceStream {
	return &SliceStream{toks: toks}
}

func (s *SliceStream) Next() token.Token {
	if s.pos >= len(s.toks) {
		return token.Token{Type: token.EOF}
	}
	tok := s.toks[s.pos]
	if tok.Type != token.EOF {
		s.pos++
	}
	return tok
}

func (s *SliceStream) Peek(n int) []token.Token {
	end := s.pos + n
	if end > len(s.toks) {
		end = len(s.toks)
	}
	return s.toks[s.pos:end]
}

// LexerProcessor attaches a token stream over the source code.
type LexerProcessor struct{}

func (lp *LexerProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	ctx.TokenStream = NewTokenStream(New(ctx.SourceCode))
	return ctx
}
