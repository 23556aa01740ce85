// Package preprocess implements the conditional-compilation pass applied to
// mark shader bodies before assembly.
//
// Supported directives are #define, #undef, #ifdef, #ifndef, #if, #elif,
// #else and #endif. #if and #elif take boolean expressions over
// defined(NAME), !, &&, ||, parentheses, integer literals and macro names.
// A macro name is true when it is defined with a value other than "0".
package preprocess

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrUnbalanced is returned for #elif, #else or #endif without a
	// matching #if, and for blocks left open at the end of the source.
	ErrUnbalanced = errors.New("preprocess: unbalanced conditional block")

	// ErrElseAfterElse is returned for #else or #elif following #else.
	ErrElseAfterElse = errors.New("preprocess: directive after #else")

	// ErrMalformed is returned for directives with invalid arguments.
	ErrMalformed = errors.New("preprocess: malformed directive")
)

// frame is one level of #if nesting.
type frame struct {
	parentActive bool
	active       bool
	anyTrue      bool
	seenElse     bool
	line         int
}

// Process runs the preprocessor over src with the given initial macros.
// Directive lines are removed from the output; other lines are kept when
// every enclosing block is active.
func Process(src string, defines map[string]string) (string, error) {
	macros := make(map[string]string, len(defines))
	for k, v := range defines {
		macros[k] = v
	}

	var stack []frame
	active := true
	lines := strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))

	for n, line := range lines {
		lineNo := n + 1
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#") {
			if active {
				out = append(out, line)
			}
			continue
		}
		directive, rest := trimmed, ""
		if i := strings.IndexAny(trimmed, " \t"); i >= 0 {
			directive, rest = trimmed[:i], strings.TrimSpace(trimmed[i:])
		}

		switch directive {
		case "#define":
			if !active {
				continue
			}
			fields := strings.Fields(rest)
			if len(fields) == 0 || !isIdent(fields[0]) {
				return "", fmt.Errorf("%w: line %d: #define needs a name", ErrMalformed, lineNo)
			}
			value := "1"
			if len(fields) > 1 {
				value = strings.Join(fields[1:], " ")
			}
			macros[fields[0]] = value

		case "#undef":
			if !active {
				continue
			}
			if !isIdent(rest) {
				return "", fmt.Errorf("%w: line %d: #undef needs a name", ErrMalformed, lineNo)
			}
			delete(macros, rest)

		case "#ifdef", "#ifndef":
			if !isIdent(rest) {
				return "", fmt.Errorf("%w: line %d: %s needs a name", ErrMalformed, lineNo, directive)
			}
			_, defined := macros[rest]
			cond := defined == (directive == "#ifdef")
			stack = append(stack, frame{parentActive: active, active: active && cond, anyTrue: cond, line: lineNo})
			active = active && cond

		case "#if":
			cond, err := eval(rest, macros)
			if err != nil {
				return "", fmt.Errorf("%w: line %d: %w", ErrMalformed, lineNo, err)
			}
			stack = append(stack, frame{parentActive: active, active: active && cond, anyTrue: cond, line: lineNo})
			active = active && cond

		case "#elif":
			if len(stack) == 0 {
				return "", fmt.Errorf("%w: line %d: #elif without #if", ErrUnbalanced, lineNo)
			}
			f := &stack[len(stack)-1]
			if f.seenElse {
				return "", fmt.Errorf("%w: line %d: #elif", ErrElseAfterElse, lineNo)
			}
			cond, err := eval(rest, macros)
			if err != nil {
				return "", fmt.Errorf("%w: line %d: %w", ErrMalformed, lineNo, err)
			}
			f.active = f.parentActive && !f.anyTrue && cond
			f.anyTrue = f.anyTrue || cond
			active = f.active

		case "#else":
			if len(stack) == 0 {
				return "", fmt.Errorf("%w: line %d: #else without #if", ErrUnbalanced, lineNo)
			}
			f := &stack[len(stack)-1]
			if f.seenElse {
				return "", fmt.Errorf("%w: line %d: #else", ErrElseAfterElse, lineNo)
			}
			f.seenElse = true
			f.active = f.parentActive && !f.anyTrue
			f.anyTrue = true
			active = f.active

		case "#endif":
			if len(stack) == 0 {
				return "", fmt.Errorf("%w: line %d: #endif without #if", ErrUnbalanced, lineNo)
			}
			stack = stack[:len(stack)-1]
			active = true
			if len(stack) > 0 {
				active = stack[len(stack)-1].active
			}

		default:
			// Not a directive, e.g. a WGSL attribute on its own line.
			if active {
				out = append(out, line)
			}
		}
	}
	if len(stack) > 0 {
		return "", fmt.Errorf("%w: line %d: missing #endif", ErrUnbalanced, stack[len(stack)-1].line)
	}
	return strings.Join(out, "\n"), nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// parser evaluates #if expressions by recursive descent:
//
//	or      = and { "||" and }
//	and     = unary { "&&" unary }
//	unary   = "!" unary | primary
//	primary = "(" or ")" | "defined" ( "(" NAME ")" | NAME ) | INT | NAME
type parser struct {
	toks   []string
	pos    int
	macros map[string]string
}

func eval(expr string, macros map[string]string) (bool, error) {
	toks, err := tokenize(expr)
	if err != nil {
		return false, err
	}
	if len(toks) == 0 {
		return false, errors.New("empty expression")
	}
	p := &parser{toks: toks, macros: macros}
	v, err := p.or()
	if err != nil {
		return false, err
	}
	if p.pos != len(p.toks) {
		return false, fmt.Errorf("unexpected %q", p.toks[p.pos])
	}
	return v, nil
}

func tokenize(expr string) ([]string, error) {
	var toks []string
	for i := 0; i < len(expr); {
		c := expr[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(' || c == ')' || c == '!':
			toks = append(toks, string(c))
			i++
		case strings.HasPrefix(expr[i:], "&&"), strings.HasPrefix(expr[i:], "||"):
			toks = append(toks, expr[i:i+2])
			i += 2
		case c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z':
			j := i + 1
			for j < len(expr) && (expr[j] == '_' || expr[j] >= '0' && expr[j] <= '9' ||
				expr[j] >= 'a' && expr[j] <= 'z' || expr[j] >= 'A' && expr[j] <= 'Z') {
				j++
			}
			toks = append(toks, expr[i:j])
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q", c)
		}
	}
	return toks, nil
}

func (p *parser) peek() string {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return ""
}

func (p *parser) next() string {
	t := p.peek()
	if t != "" {
		p.pos++
	}
	return t
}

func (p *parser) or() (bool, error) {
	v, err := p.and()
	if err != nil {
		return false, err
	}
	for p.peek() == "||" {
		p.pos++
		r, err := p.and()
		if err != nil {
			return false, err
		}
		v = v || r
	}
	return v, nil
}

func (p *parser) and() (bool, error) {
	v, err := p.unary()
	if err != nil {
		return false, err
	}
	for p.peek() == "&&" {
		p.pos++
		r, err := p.unary()
		if err != nil {
			return false, err
		}
		v = v && r
	}
	return v, nil
}

func (p *parser) unary() (bool, error) {
	if p.peek() == "!" {
		p.pos++
		v, err := p.unary()
		return !v, err
	}
	return p.primary()
}

func (p *parser) primary() (bool, error) {
	t := p.next()
	switch {
	case t == "":
		return false, errors.New("unexpected end of expression")
	case t == "(":
		v, err := p.or()
		if err != nil {
			return false, err
		}
		if p.next() != ")" {
			return false, errors.New("missing )")
		}
		return v, nil
	case t == "defined":
		paren := p.peek() == "("
		if paren {
			p.pos++
		}
		name := p.next()
		if !isIdent(name) {
			return false, errors.New("defined needs a name")
		}
		if paren && p.next() != ")" {
			return false, errors.New("missing ) after defined")
		}
		_, ok := p.macros[name]
		return ok, nil
	case t[0] >= '0' && t[0] <= '9':
		n, err := strconv.ParseInt(t, 0, 64)
		if err != nil {
			return false, fmt.Errorf("bad integer %q", t)
		}
		return n != 0, nil
	case isIdent(t):
		v, ok := p.macros[t]
		return ok && v != "0", nil
	}
	return false, fmt.Errorf("unexpected %q", t)
}
