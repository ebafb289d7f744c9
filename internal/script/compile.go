package script

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
)

// Program is the compiled form of a piece of source.
type Program struct {
	Key    string
	Source string
	Funcs  []*FuncDef
}

// FuncDef is one compiled function definition.
type FuncDef struct {
	Name   string
	Params []string // includes the leading self
	Stmts  []*Stmt
	Result hclsyntax.Expression
	Range  hcl.Range
}

// FreeParams returns the parameters after self.
func (d *FuncDef) FreeParams() []string {
	return d.Params[1:]
}

// Stmt is an assignment of an expression's value to a local name.
type Stmt struct {
	Target string
	Expr   hclsyntax.Expression
	Range  hcl.Range
}

// line is one physical source line with its position in the file.
type line struct {
	text  string
	num   int
	start int // byte offset of the first byte of the line
}

// Compile parses src into a Program. key is used as the filename of every
// range so diagnostics can be resolved through a source registry.
func Compile(key, src string) (*Program, error) {
	c := &compiler{key: key, prog: &Program{Key: key, Source: src}}
	c.run(splitSourceLines(src))
	if c.diags.HasErrors() {
		return nil, &CompileError{Key: key, Diags: c.diags}
	}
	return c.prog, nil
}

type compiler struct {
	key   string
	prog  *Program
	diags hcl.Diagnostics

	cur      *FuncDef
	returned bool
}

func (c *compiler) run(lines []line) {
	for _, ln := range lines {
		trimmed := strings.TrimSpace(ln.text)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		indent := len(ln.text) - len(strings.TrimLeft(ln.text, " \t"))
		if indent == 0 {
			c.finishFunc()
			c.parseHeader(ln)
			continue
		}
		if c.cur == nil {
			c.errorf(ln, 0, len(ln.text), "Unexpected indentation", "Indented lines must belong to a function definition.")
			continue
		}
		if c.returned {
			c.errorf(ln, indent, len(ln.text), "Unreachable statement", "No statements may follow the return of %q.", c.cur.Name)
			continue
		}
		c.parseStatement(ln, indent)
	}
	c.finishFunc()
}

func (c *compiler) parseHeader(ln line) {
	text := strings.TrimRight(ln.text, " \t")
	if !strings.HasPrefix(text, "def ") || !strings.HasSuffix(text, ":") {
		c.errorf(ln, 0, len(text), "Invalid function header", "Expected a header of the form `def name(self, ...):`.")
		return
	}

	sig := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(text, "def "), ":"))
	open := strings.Index(sig, "(")
	if open < 0 || !strings.HasSuffix(sig, ")") {
		c.errorf(ln, 0, len(text), "Invalid function header", "Function parameters must be enclosed in parentheses.")
		return
	}

	name := strings.TrimSpace(sig[:open])
	if !hclsyntax.ValidIdentifier(name) {
		c.errorf(ln, 0, len(text), "Invalid function name", "%q is not a valid identifier.", name)
		return
	}

	var params []string
	seen := make(map[string]struct{})
	if inner := strings.TrimSpace(sig[open+1 : len(sig)-1]); inner != "" {
		for _, p := range strings.Split(inner, ",") {
			p = strings.TrimSpace(p)
			if !hclsyntax.ValidIdentifier(p) {
				c.errorf(ln, 0, len(text), "Invalid parameter name", "%q is not a valid identifier.", p)
				return
			}
			if _, dup := seen[p]; dup {
				c.errorf(ln, 0, len(text), "Duplicate parameter", "Parameter %q is declared more than once.", p)
				return
			}
			seen[p] = struct{}{}
			params = append(params, p)
		}
	}
	if len(params) == 0 || params[0] != "self" {
		c.errorf(ln, 0, len(text), "Missing self parameter", "The first parameter of %q must be self.", name)
		return
	}

	for _, existing := range c.prog.Funcs {
		if existing.Name == name {
			c.errorf(ln, 0, len(text), "Duplicate function", "Function %q is defined more than once.", name)
			return
		}
	}

	c.cur = &FuncDef{Name: name, Params: params, Range: c.rangeOf(ln, 0, len(text))}
	c.returned = false
}

func (c *compiler) parseStatement(ln line, indent int) {
	body := strings.TrimRight(ln.text[indent:], " \t")

	if body == "return" || strings.HasPrefix(body, "return ") {
		exprText := strings.TrimSpace(strings.TrimPrefix(body, "return"))
		if exprText == "" {
			c.errorf(ln, indent, indent+len(body), "Missing return value", "A return statement must have an expression.")
			return
		}
		offset := indent + strings.Index(body, exprText)
		if expr := c.parseExpr(ln, offset, exprText); expr != nil {
			c.cur.Result = expr
		}
		c.returned = true
		return
	}

	target, exprText, offset, ok := splitAssignment(body)
	if !ok {
		c.errorf(ln, indent, indent+len(body), "Invalid statement", "Expected `name = expression` or `return expression`.")
		return
	}
	if target == "self" {
		c.errorf(ln, indent, indent+len(target), "Invalid assignment", "self cannot be reassigned.")
		return
	}
	if expr := c.parseExpr(ln, indent+offset, exprText); expr != nil {
		c.cur.Stmts = append(c.cur.Stmts, &Stmt{
			Target: target,
			Expr:   expr,
			Range:  c.rangeOf(ln, indent, indent+len(body)),
		})
	}
}

func (c *compiler) parseExpr(ln line, col int, text string) hclsyntax.Expression {
	start := hcl.Pos{Line: ln.num, Column: col + 1, Byte: ln.start + col}
	expr, diags := hclsyntax.ParseExpression([]byte(text), c.key, start)
	c.diags = append(c.diags, diags...)
	if diags.HasErrors() {
		return nil
	}
	return expr
}

func (c *compiler) finishFunc() {
	if c.cur == nil {
		return
	}
	if !c.returned {
		c.diags = append(c.diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Missing return",
			Detail:   fmt.Sprintf("Function %q must end with a return statement.", c.cur.Name),
			Subject:  c.cur.Range.Ptr(),
		})
	} else if c.cur.Result != nil {
		c.prog.Funcs = append(c.prog.Funcs, c.cur)
	}
	c.cur = nil
	c.returned = false
}

func (c *compiler) errorf(ln line, from, to int, summary, detail string, args ...any) {
	c.diags = append(c.diags, &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  summary,
		Detail:   fmt.Sprintf(detail, args...),
		Subject:  c.rangeOf(ln, from, to).Ptr(),
	})
}

func (c *compiler) rangeOf(ln line, from, to int) hcl.Range {
	return hcl.Range{
		Filename: c.key,
		Start:    hcl.Pos{Line: ln.num, Column: from + 1, Byte: ln.start + from},
		End:      hcl.Pos{Line: ln.num, Column: to + 1, Byte: ln.start + to},
	}
}

// splitAssignment splits `name = expr`, returning the byte offset of expr
// within body.
func splitAssignment(body string) (target, expr string, offset int, ok bool) {
	eq := strings.Index(body, "=")
	if eq <= 0 || strings.HasPrefix(body[eq:], "==") {
		return "", "", 0, false
	}
	target = strings.TrimSpace(body[:eq])
	if !hclsyntax.ValidIdentifier(target) {
		return "", "", 0, false
	}
	rest := body[eq+1:]
	expr = strings.TrimSpace(rest)
	if expr == "" {
		return "", "", 0, false
	}
	offset = eq + 1 + strings.Index(rest, expr)
	return target, expr, offset, true
}

func splitSourceLines(src string) []line {
	var out []line
	offset := 0
	for i, text := range strings.Split(src, "\n") {
		out = append(out, line{text: strings.TrimSuffix(text, "\r"), num: i + 1, start: offset})
		offset += len(text) + 1
	}
	return out
}
