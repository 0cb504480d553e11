package parser_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/rcore/internal/ast"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/lexer"
	"github.com/funvibe/rcore/internal/parser"
	"github.com/funvibe/rcore/internal/pipeline"
)

func parseWithErrors(input string) *pipeline.PipelineContext {
	ctx := &pipeline.PipelineContext{SourceCode: input}
	ctx = (&lexer.LexerProcessor{}).Process(ctx)
	return (&parser.ParserProcessor{}).Process(ctx)
}

func TestDeparseRoundTrip(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{"assign_precedence", "x <- 1 + 2 * 3", "x <- 1 + 2 * 3"},
		{"named_args", "f(a, b = 2)", "f(a, b = 2)"},
		{"empty_index_arg", "x[1, ]", "x[1, ]"},
		{"unary_minus_power", "-2^2", "-2^2"},
		{"right_assign", "a -> b", "b <- a"},
		{"super_assign", "a <<- 1", "a <<- 1"},
		{"function", "function(x, y = 2) x + y", "function(x, y = 2) x + y"},
		{"if_else", "if (a) b else c", "if (a) b else c"},
		{"dollar", "x$name", "x$name"},
		{"double_bracket", "x[[1]]", "x[[1]]"},
		{"range", "1:3", "1:3"},
		{"special", "x %in% y", "x %in% y"},
		{"integer_literal", "5L", "5L"},
		{"string", `"a\"b"`, `"a\"b"`},
		{"backquoted", "`my var` <- 1", "`my var` <- 1"},
		{"block", "{\n  a\n  b\n}", "{\n    a\n    b\n}"},
		{"for", "for (i in 1:10) print(i)", "for (i in 1:10) print(i)"},
		{"while", "while (TRUE) break", "while (TRUE) break"},
		{"repeat", "repeat next", "repeat next"},
		{"replacement_call", "names(x) <- c(\"a\", \"b\")", "names(x) <- c(\"a\", \"b\")"},
		{"scientific", "1e6", "1e+06"},
		{"newline_in_parens", "f(1,\n  2)", "f(1, 2)"},
		{"operator_continues_line", "x <- 1 +\n  2", "x <- 1 + 2"},
		{"namespace", "base::sum(1)", "base::sum(1)"},
		{"logical_ops", "!a && b || c", "!a && b || c"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			prog, err := parser.Parse(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, prog.String())
		})
	}
}

func TestPrecedence(t *testing.T) {
	prog, err := parser.Parse("-1:3")
	require.NoError(t, err)
	infix, ok := prog.Expressions[0].(*ast.InfixExpression)
	require.True(t, ok)
	assert.Equal(t, ":", infix.Operator)
	assert.IsType(t, &ast.PrefixExpression{}, infix.Left)

	prog, err = parser.Parse("2^3^2")
	require.NoError(t, err)
	pow := prog.Expressions[0].(*ast.InfixExpression)
	assert.IsType(t, &ast.NumberLiteral{}, pow.Left)
	assert.IsType(t, &ast.InfixExpression{}, pow.Right)

	prog, err = parser.Parse("!x == y")
	require.NoError(t, err)
	not := prog.Expressions[0].(*ast.PrefixExpression)
	assert.Equal(t, "!", not.Operator)
	assert.IsType(t, &ast.InfixExpression{}, not.Right)
}

func TestSeparators(t *testing.T) {
	prog, err := parser.Parse("a <- 1; b <- 2\n\nc")
	require.NoError(t, err)
	assert.Len(t, prog.Expressions, 3)

	prog, err = parser.Parse("x\n+ 1")
	require.NoError(t, err)
	assert.Len(t, prog.Expressions, 2)
}

func TestElseOnNextLineInsideBraces(t *testing.T) {
	prog, err := parser.Parse("{\n  if (a) 1\n  else 2\n}")
	require.NoError(t, err)
	block := prog.Expressions[0].(*ast.BlockExpression)
	require.Len(t, block.Expressions, 1)
	ifExpr := block.Expressions[0].(*ast.IfExpression)
	assert.NotNil(t, ifExpr.Alternative)

	_, err = parser.Parse("if (a) 1\nelse 2")
	assert.Error(t, err)
}

func TestEmptyArguments(t *testing.T) {
	prog, err := parser.Parse("m[, 2]")
	require.NoError(t, err)
	idx := prog.Expressions[0].(*ast.IndexExpression)
	require.Len(t, idx.Arguments, 2)
	assert.Nil(t, idx.Arguments[0].Value)
	assert.NotNil(t, idx.Arguments[1].Value)
}

func TestParseErrors(t *testing.T) {
	testCases := []struct {
		name   string
		input  string
		code   diagnostics.ErrorCode
		line   int
		column int
	}{
		{"unexpected_symbol", "x y", diagnostics.ErrP001, 1, 3},
		{"unterminated_string", "x <- \"abc", diagnostics.ErrP002, 1, 6},
		{"incomplete", "x <- ", diagnostics.ErrP003, 1, 6},
		{"bad_number", "x <- 1a", diagnostics.ErrP004, 1, 6},
		{"stray_paren", "\n)", diagnostics.ErrP001, 2, 1},
		{"unclosed_call", "f(1, 2", diagnostics.ErrP003, 1, 7},
		{"repeated_formal", "function(x, x) 1", diagnostics.ErrP001, 1, 13},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := parseWithErrors(tc.input)
			require.NotEmpty(t, ctx.Errors)
			err := ctx.Errors[0]
			assert.Equal(t, tc.code, err.Code)
			assert.Equal(t, tc.line, err.Line)
			assert.Equal(t, tc.column, err.Column)
			assert.True(t, err.IsParseError())
			assert.True(t, errors.Is(err, &diagnostics.Error{Code: tc.code}))
			assert.Nil(t, ctx.AstRoot)
		})
	}
}
