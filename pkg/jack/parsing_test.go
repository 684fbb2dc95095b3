package jack

import (
	"strings"
	"testing"
)

func parse(t *testing.T, source string) Class {
	t.Helper()
	p := NewParser(strings.NewReader(source))
	class, err := p.Parse()
	if err != nil {
		t.Fatalf("unexpected parse error: %s", err)
	}
	return class
}

func TestParseClassWithFieldsAndSubroutines(t *testing.T) {
	class := parse(t, `
		class Point {
			field int x, y;
			static int count;

			constructor Point new(int ax, int ay) {
				let x = ax;
				let y = ay;
				return this;
			}

			method int getX() {
				return x;
			}
		}
	`)

	if class.Name != "Point" {
		t.Fatalf("expected class name 'Point', got %q", class.Name)
	}
	if class.Fields.Size() != 3 {
		t.Fatalf("expected 3 fields (x, y, count), got %d", class.Fields.Size())
	}
	if count, ok := class.Fields.Get("count"); !ok || count.VarType != Static {
		t.Fatalf("expected 'count' to be a Static field, got %+v (ok=%v)", count, ok)
	}
	if class.Subroutines.Size() != 2 {
		t.Fatalf("expected 2 subroutines, got %d", class.Subroutines.Size())
	}

	ctor, ok := class.Subroutines.Get("new")
	if !ok || ctor.Type != Constructor || ctor.Arguments.Size() != 2 {
		t.Fatalf("expected a 2-argument constructor named 'new', got %+v (ok=%v)", ctor, ok)
	}
}

func TestParseLetStatementArrayLhs(t *testing.T) {
	class := parse(t, `
		class Main {
			function void main() {
				var Array arr;
				let arr[0] = arr[1] + 1;
				return;
			}
		}
	`)

	main, _ := class.Subroutines.Get("main")
	var letStmt LetStmt
	for _, stmt := range main.Statements {
		if s, ok := stmt.(LetStmt); ok {
			letStmt = s
		}
	}

	lhs, ok := letStmt.Lhs.(ArrayExpr)
	if !ok {
		t.Fatalf("expected LHS to be an ArrayExpr, got %T", letStmt.Lhs)
	}
	if lhs.Var != "arr" {
		t.Fatalf("expected array variable 'arr', got %q", lhs.Var)
	}

	rhs, ok := letStmt.Rhs.(BinaryExpr)
	if !ok || rhs.Type != Plus {
		t.Fatalf("expected RHS to be a Plus BinaryExpr, got %+v", letStmt.Rhs)
	}
	if _, ok := rhs.Lhs.(ArrayExpr); !ok {
		t.Fatalf("expected RHS LHS operand to be an ArrayExpr, got %T", rhs.Lhs)
	}
}

func TestParseSubroutineCallForms(t *testing.T) {
	class := parse(t, `
		class Main {
			function void main() {
				do helper();
				do Main.helper(1, 2);
				do obj.run();
				return;
			}
		}
	`)

	main, _ := class.Subroutines.Get("main")
	var calls []FuncCallExpr
	for _, stmt := range main.Statements {
		if s, ok := stmt.(DoStmt); ok {
			calls = append(calls, s.FuncCall)
		}
	}
	if len(calls) != 3 {
		t.Fatalf("expected 3 do-statements, got %d", len(calls))
	}

	if calls[0].IsExtCall || calls[0].FuncName != "helper" {
		t.Fatalf("expected a sibling call to 'helper', got %+v", calls[0])
	}
	if !calls[1].IsExtCall || calls[1].Var != "Main" || calls[1].FuncName != "helper" || len(calls[1].Arguments) != 2 {
		t.Fatalf("expected an external call to 'Main.helper' w/ 2 args, got %+v", calls[1])
	}
	if !calls[2].IsExtCall || calls[2].Var != "obj" || calls[2].FuncName != "run" {
		t.Fatalf("expected an external call to 'obj.run', got %+v", calls[2])
	}
}

func TestParseExpressionIsFlatLeftAssociative(t *testing.T) {
	class := parse(t, `
		class Main {
			function int compute() {
				return 1 + 2 + 3;
			}
		}
	`)

	compute, _ := class.Subroutines.Get("compute")
	ret := compute.Statements[0].(ReturnStmt)

	outer, ok := ret.Expr.(BinaryExpr)
	if !ok || outer.Type != Plus {
		t.Fatalf("expected outermost expression to be a Plus BinaryExpr, got %+v", ret.Expr)
	}
	inner, ok := outer.Lhs.(BinaryExpr)
	if !ok || inner.Type != Plus {
		t.Fatalf("expected '1 + 2' to be folded as the LHS operand (left-associative), got %+v", outer.Lhs)
	}
	if lit, ok := outer.Rhs.(LiteralExpr); !ok || lit.Value != "3" {
		t.Fatalf("expected the RHS operand to be the trailing literal '3', got %+v", outer.Rhs)
	}
}

func TestParseMalformedClassFails(t *testing.T) {
	p := NewParser(strings.NewReader(`class Main { function void main() { let x = ; } }`))
	if _, err := p.Parse(); err == nil {
		t.Fatalf("expected a syntax error for a malformed assignment")
	}
}
