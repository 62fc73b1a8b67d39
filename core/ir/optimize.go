package ir

// Optimize runs the opt-in `--optimize` pass:
// constant folding over literal operands, followed by dead-assignment
// removal for module-level bindings that are never read again. It never
// runs unless a caller opts in, and it never touches a tree's node ids —
// folded nodes keep the id and type of the operation they replace, so a
// disabled run and an enabled run over the same source diverge only in
// the artifact bytes an optimizable construct produces.
func Optimize(stmts []Stmt) []Stmt {
	folded := make([]Stmt, len(stmts))
	for i, s := range stmts {
		folded[i] = foldStmt(s)
	}
	return removeDeadAssignments(folded)
}

func foldStmt(stmt Stmt) Stmt {
	switch s := stmt.(type) {
	case *IRAssignment:
		s.Value = foldExpr(s.Value)
		return s
	case *IRFunction:
		if s.ExprBody != nil {
			s.ExprBody = foldExpr(s.ExprBody)
		}
		s.Body = foldStmts(s.Body)
		return s
	case *IRIf:
		s.Cond = foldExpr(s.Cond)
		s.Then = foldStmts(s.Then)
		s.Else = foldStmts(s.Else)
		return s
	case *IRLoop:
		s.Start = foldExpr(s.Start)
		s.End = foldExpr(s.End)
		s.Body = foldStmts(s.Body)
		return s
	case *IRReturn:
		if s.Value != nil {
			s.Value = foldExpr(s.Value)
		}
		return s
	case *IRExpressionStmt:
		if s.Value != nil {
			s.Value = foldExpr(s.Value)
		}
		return s
	default:
		return stmt
	}
}

func foldStmts(in []Stmt) []Stmt {
	if in == nil {
		return nil
	}
	out := make([]Stmt, len(in))
	for i, s := range in {
		out[i] = foldStmt(s)
	}
	return out
}

func foldExpr(expr Expr) Expr {
	switch e := expr.(type) {
	case *IRUnary:
		operand := foldExpr(e.Operand)
		e.Operand = operand
		if lit, ok := operand.(*IRLiteral); ok {
			if folded, ok := foldUnary(e, lit); ok {
				return folded
			}
		}
		return e

	case *IRBinary:
		left := foldExpr(e.Left)
		right := foldExpr(e.Right)
		e.Left, e.Right = left, right
		litL, okL := left.(*IRLiteral)
		litR, okR := right.(*IRLiteral)
		if okL && okR {
			if folded, ok := foldBinary(e, litL, litR); ok {
				return folded
			}
		}
		return e

	case *IRCall:
		args := make([]Expr, len(e.Args))
		for i, a := range e.Args {
			args[i] = foldExpr(a)
		}
		e.Args = args
		return e

	case *IRLambda:
		e.Body = foldExpr(e.Body)
		return e

	default:
		return expr
	}
}

func foldUnary(u *IRUnary, operand *IRLiteral) (*IRLiteral, bool) {
	switch u.Op {
	case "-":
		if operand.Kind != LitNum {
			return nil, false
		}
		return &IRLiteral{Base: u.Base, Kind: LitNum, Num: -operand.Num}, true
	case "+":
		if operand.Kind != LitNum {
			return nil, false
		}
		return &IRLiteral{Base: u.Base, Kind: LitNum, Num: operand.Num}, true
	case "!":
		if operand.Kind != LitBool {
			return nil, false
		}
		return &IRLiteral{Base: u.Base, Kind: LitBool, Bool: !operand.Bool}, true
	}
	return nil, false
}

func foldBinary(b *IRBinary, l, r *IRLiteral) (*IRLiteral, bool) {
	if l.Kind == LitNum && r.Kind == LitNum {
		switch b.Op {
		case "+":
			return &IRLiteral{Base: b.Base, Kind: LitNum, Num: l.Num + r.Num}, true
		case "-":
			return &IRLiteral{Base: b.Base, Kind: LitNum, Num: l.Num - r.Num}, true
		case "*":
			return &IRLiteral{Base: b.Base, Kind: LitNum, Num: l.Num * r.Num}, true
		case "/":
			if r.Num == 0 {
				return nil, false
			}
			return &IRLiteral{Base: b.Base, Kind: LitNum, Num: l.Num / r.Num}, true
		case "%":
			if r.Num == 0 {
				return nil, false
			}
			return &IRLiteral{Base: b.Base, Kind: LitNum, Num: float64(int64(l.Num) % int64(r.Num))}, true
		case "<":
			return &IRLiteral{Base: b.Base, Kind: LitBool, Bool: l.Num < r.Num}, true
		case "<=":
			return &IRLiteral{Base: b.Base, Kind: LitBool, Bool: l.Num <= r.Num}, true
		case ">":
			return &IRLiteral{Base: b.Base, Kind: LitBool, Bool: l.Num > r.Num}, true
		case ">=":
			return &IRLiteral{Base: b.Base, Kind: LitBool, Bool: l.Num >= r.Num}, true
		case "==":
			return &IRLiteral{Base: b.Base, Kind: LitBool, Bool: l.Num == r.Num}, true
		case "!=":
			return &IRLiteral{Base: b.Base, Kind: LitBool, Bool: l.Num != r.Num}, true
		}
	}
	if l.Kind == LitBool && r.Kind == LitBool {
		switch b.Op {
		case "&&":
			return &IRLiteral{Base: b.Base, Kind: LitBool, Bool: l.Bool && r.Bool}, true
		case "||":
			return &IRLiteral{Base: b.Base, Kind: LitBool, Bool: l.Bool || r.Bool}, true
		case "==":
			return &IRLiteral{Base: b.Base, Kind: LitBool, Bool: l.Bool == r.Bool}, true
		case "!=":
			return &IRLiteral{Base: b.Base, Kind: LitBool, Bool: l.Bool != r.Bool}, true
		}
	}
	if l.Kind == LitStr && r.Kind == LitStr {
		switch b.Op {
		case "==":
			return &IRLiteral{Base: b.Base, Kind: LitBool, Bool: l.Str == r.Str}, true
		case "!=":
			return &IRLiteral{Base: b.Base, Kind: LitBool, Bool: l.Str != r.Str}, true
		}
	}
	return nil, false
}

// removeDeadAssignments drops a module-level assignment whose name is
// never referenced by any later statement and is immediately shadowed or
// simply unused — a conservative, single-scope pass that never removes an
// assignment referenced anywhere in the remaining statement list,
// including inside nested bodies, so it cannot change observable output.
func removeDeadAssignments(stmts []Stmt) []Stmt {
	out := make([]Stmt, 0, len(stmts))
	for i, s := range stmts {
		if a, ok := s.(*IRAssignment); ok {
			if !isReferencedAfter(a.Name, stmts[i+1:]) && !containsCall(a.Value) {
				continue
			}
		}
		out = append(out, s)
	}
	return out
}

// containsCall reports whether evaluating e could run a call; an unused
// assignment whose value calls a function still has observable effects
// and must survive.
func containsCall(e Expr) bool {
	switch v := e.(type) {
	case *IRCall:
		return true
	case *IRUnary:
		return containsCall(v.Operand)
	case *IRBinary:
		return containsCall(v.Left) || containsCall(v.Right)
	default:
		return false
	}
}

func isReferencedAfter(name string, rest []Stmt) bool {
	used := make(map[string]bool)
	for _, s := range rest {
		collectRefs(s, used)
	}
	return used[name]
}

func collectRefs(n Node, used map[string]bool) {
	switch v := n.(type) {
	case *IRAssignment:
		collectRefs(v.Value, used)
	case *IRFunction:
		if v.ExprBody != nil {
			collectRefs(v.ExprBody, used)
		}
		for _, s := range v.Body {
			collectRefs(s, used)
		}
	case *IRIf:
		collectRefs(v.Cond, used)
		for _, s := range v.Then {
			collectRefs(s, used)
		}
		for _, s := range v.Else {
			collectRefs(s, used)
		}
	case *IRLoop:
		collectRefs(v.Start, used)
		collectRefs(v.End, used)
		for _, s := range v.Body {
			collectRefs(s, used)
		}
	case *IRReturn:
		if v.Value != nil {
			collectRefs(v.Value, used)
		}
	case *IRExpressionStmt:
		if v.Value != nil {
			collectRefs(v.Value, used)
		}
	case *IRRef:
		used[v.Name] = true
	case *IRUnary:
		collectRefs(v.Operand, used)
	case *IRBinary:
		collectRefs(v.Left, used)
		collectRefs(v.Right, used)
	case *IRCall:
		used[v.Callee] = true
		for _, a := range v.Args {
			collectRefs(a, used)
		}
	case *IRLambda:
		collectRefs(v.Body, used)
	}
}
