package cgen

import "strconv"

const (
	ampersand      = "&"
	assign         = "="
	asterisk       = "*"
	brace1         = "{"
	brace2         = "}"
	cmpL           = "<"
	cmpG           = ">"
	comma          = ","
	const_         = "const"
	empty          = ""
	float          = "float"
	for_           = "for"
	hash           = "#"
	include        = "include"
	inc            = "++"
	minus          = "-"
	newline        = "\n"
	paren1         = "("
	paren2         = ")"
	plus           = "+"
	pragma         = "pragma"
	restrict       = "restrict"
	semicolon      = ";"
	slashes        = "//"
	space          = " "
	squareBracket1 = "["
	squareBracket2 = "]"
	unsignedInt    = "unsigned int"
	void           = "void"
	while          = "while"
	zero           = "0"
)

type Add struct {
	Expr1, Expr2 Gen
}

func (a Add) Append(to []byte) []byte {
	to = a.Expr1.Append(to)
	to = append(to, space+plus+space...)
	to = a.Expr2.Append(to)
	return to
}

type AddAssign struct {
	Expr1, Expr2 Gen
}

func (a AddAssign) Append(to []byte) []byte {
	to = a.Expr1.Append(to)
	to = append(to, space+plus+assign+space...)
	to = a.Expr2.Append(to)
	return to
}

type Addr struct {
	Expr Gen
}

func (a Addr) Append(to []byte) []byte {
	to = append(to, ampersand...)
	to = a.Expr.Append(to)
	return to
}

type AngleBracketed string

func (a AngleBracketed) Append(to []byte) []byte {
	to = append(to, cmpL...)
	to = append(to, a...)
	to = append(to, cmpG...)
	return to
}

type Assign struct {
	Expr1, Expr2 Gen
}

func (a Assign) Append(to []byte) []byte {
	to = a.Expr1.Append(to)
	to = append(to, space+assign+space...)
	to = a.Expr2.Append(to)
	return to
}

type Block struct {
	Inner Gen
}

func (b Block) Append(to []byte) []byte {
	to = append(to, brace1+newline...)
	to = Maybe{b.Inner}.Append(to)
	to = append(to, brace2...)
	return to
}

type Call struct {
	Func, Args Gen
}

func (c Call) Append(to []byte) []byte {
	to = c.Func.Append(to)
	to = Paren{c.Args}.Append(to)
	return to
}

type CmpL struct {
	Expr1, Expr2 Gen
}

func (c CmpL) Append(to []byte) []byte {
	to = c.Expr1.Append(to)
	to = append(to, space+cmpL+space...)
	to = c.Expr2.Append(to)
	return to
}

type CommaSpaced []Gen

func (c CommaSpaced) Append(to []byte) []byte {
	first := true
	for _, gen := range c {
		if gen == nil {
			continue
		}
		if first {
			first = false
		} else {
			to = append(to, comma+space...)
		}
		to = gen.Append(to)
	}
	return to
}

type Comment []string

func (c Comment) Append(to []byte) []byte {
	for _, line := range c {
		switch line {
		case empty:
			to = append(to, slashes+newline...)
		default:
			to = append(to, slashes+space...)
			to = append(to, line...)
			to = append(to, newline...)
		}
	}
	return to
}

type Const struct {
	Type Gen
}

func (c Const) Append(to []byte) []byte {
	to = append(to, const_+space...)
	to = c.Type.Append(to)
	return to
}

type ConstRestrictPtr Ptr

func (c ConstRestrictPtr) Append(to []byte) []byte {
	to = RestrictPtr(c).Append(to)
	to = append(to, space+const_...)
	return to
}

type Directive string

const (
	Include Directive = include
	Pragma  Directive = pragma
)

type Elem struct {
	Arr, Idx Gen
}

func (e Elem) Append(to []byte) []byte {
	to = e.Arr.Append(to)
	to = append(to, squareBracket1...)
	to = Maybe{e.Idx}.Append(to)
	to = append(to, squareBracket2...)
	return to
}

type For struct {
	Init, Cond, Post, Body Gen
}

func (f For) Append(to []byte) []byte {
	to = append(to, for_+space+paren1...)
	to = Maybe{f.Init}.Append(to)
	if to[len(to)-1] != semicolon[0] {
		to = append(to, semicolon...)
	}
	to = append(to, space...)
	to = Maybe{f.Cond}.Append(to)
	to = append(to, semicolon+space...)
	to = Maybe{f.Post}.Append(to)
	to = append(to, paren2...)
	if f.Body != nil {
		to = append(to, space...)
		to = Block{f.Body}.Append(to)
	}
	return to
}

type FuncDef struct {
	ReturnType Gen
	Name       string
	Params     Gen
	Body       Gen
}

func (f FuncDef) Append(to []byte) []byte {
	var g1, g2, g3 Gen
	g1 = f.ReturnType
	g2 = Call{Vb(f.Name), f.Params}
	g3 = Block{f.Body}
	to = Spaced{g1, g2, g3}.Append(to)
	to = append(to, newline...)
	return to
}

type Gen interface {
	Append(to []byte) []byte
}

type IncPost struct {
	Expr Gen
}

func (i IncPost) Append(to []byte) []byte {
	to = i.Expr.Append(to)
	to = append(to, inc...)
	return to
}

type IntLit int

func (i IntLit) Append(to []byte) []byte {
	to = strconv.AppendInt(to, int64(i), 10)
	return to
}

type Maybe struct {
	What Gen
}

func (m Maybe) Append(to []byte) []byte {
	if m.What != nil {
		to = m.What.Append(to)
	}
	return to
}

type MaybeSpace struct {
	What Gen
}

func (m MaybeSpace) Append(to []byte) []byte {
	if m.What != nil {
		to = append(to, space...)
		to = m.What.Append(to)
	}
	return to
}

type Mul struct {
	Expr1, Expr2 Gen
}

func (m Mul) Append(to []byte) []byte {
	to = m.Expr1.Append(to)
	to = append(to, space+asterisk+space...)
	to = m.Expr2.Append(to)
	return to
}

type Param struct {
	Type, What Gen
}

func (p Param) Append(to []byte) []byte {
	to = p.Type.Append(to)
	to = append(to, space...)
	to = p.What.Append(to)
	return to
}

type Paren struct {
	Inner Gen
}

func (p Paren) Append(to []byte) []byte {
	to = append(to, paren1...)
	to = Maybe{p.Inner}.Append(to)
	to = append(to, paren2...)
	return to
}

type Preprocessor struct {
	Head Directive
	Tail Gen
}

func (p Preprocessor) Append(to []byte) []byte {
	to = append(to, hash...)
	to = append(to, p.Head...)
	to = MaybeSpace{p.Tail}.Append(to)
	to = append(to, newline...)
	return to
}

type Ptr struct {
	Type Gen
}

func (p Ptr) Append(to []byte) []byte {
	to = p.Type.Append(to)
	to = append(to, space+asterisk...)
	return to
}

type RestrictPtr Ptr

func (r RestrictPtr) Append(to []byte) []byte {
	to = Ptr(r).Append(to)
	to = append(to, space+restrict...)
	return to
}

type Spaced []Gen

func (s Spaced) Append(to []byte) []byte {
	first := true
	for _, gen := range s {
		if gen == nil {
			continue
		}
		if first {
			first = false
		} else {
			to = append(to, space...)
		}
		to = gen.Append(to)
	}
	return to
}

type Stmts []Gen

func (s Stmts) Append(to []byte) []byte {
	for _, gen := range s {
		if gen == nil {
			continue
		}
		n1 := len(to)
		to = gen.Append(to)
		n2 := len(to)
		if n1 >= n2 {
			continue
		}
		switch to[n2-1] {
		case newline[0]:
		case brace2[0], semicolon[0]:
			to = append(to, newline...)
		default:
			to = append(to, semicolon+newline...)
		}
	}
	return to
}

type Sub struct {
	Expr1, Expr2 Gen
}

func (s Sub) Append(to []byte) []byte {
	to = s.Expr1.Append(to)
	to = append(to, space+minus+space...)
	to = s.Expr2.Append(to)
	return to
}

type Var struct {
	Type, What, Init Gen
}

func (v Var) Append(to []byte) []byte {
	to = v.Type.Append(to)
	to = append(to, space...)
	to = v.What.Append(to)
	if v.Init != nil {
		to = append(to, space+assign+space...)
		to = v.Init.Append(to)
	}
	to = append(to, semicolon...)
	return to
}

type Vb string

func (v Vb) Append(to []byte) []byte {
	to = append(to, v...)
	return to
}

type While struct {
	Cond, Body Gen
}

func (w While) Append(to []byte) []byte {
	to = append(to, while+space...)
	to = Paren{w.Cond}.Append(to)
	to = append(to, space...)
	to = Block{w.Body}.Append(to)
	return to
}

var (
	Float       Gen = Vb(float)
	Newline     Gen = Vb(newline)
	UnsignedInt Gen = Vb(unsignedInt)
	Void        Gen = Vb(void)
	Zero        Gen = Vb(zero)
)
