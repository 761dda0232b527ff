package querybuilder

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/valyala/bytebufferpool"
)

// Condition renders one predicate of a WHERE clause with $n placeholders.
type Condition interface {
	appendSQL(buf *bytebufferpool.ByteBuffer, args *[]any)
}

type compareCondition struct {
	column string
	op     string
	value  any
}

func Eq(column string, value any) Condition {
	return compareCondition{column: column, op: "=", value: value}
}

func Gte(column string, value any) Condition {
	return compareCondition{column: column, op: ">=", value: value}
}

func Lte(column string, value any) Condition {
	return compareCondition{column: column, op: "<=", value: value}
}

func (c compareCondition) appendSQL(buf *bytebufferpool.ByteBuffer, args *[]any) {
	_, _ = buf.WriteString(c.column)
	_ = buf.WriteByte(' ')
	_, _ = buf.WriteString(c.op)
	_ = buf.WriteByte(' ')
	*args = append(*args, c.value)
	_, _ = buf.WriteString(placeholder(len(*args)))
}

type inCondition struct {
	column string
	values []any
}

func In(column string, values []any) Condition {
	return inCondition{column: column, values: values}
}

func (c inCondition) appendSQL(buf *bytebufferpool.ByteBuffer, args *[]any) {
	if len(c.values) == 0 {
		_, _ = buf.WriteString("1=0")
		return
	}

	_, _ = buf.WriteString(c.column)
	_, _ = buf.WriteString(" IN (")
	for i, v := range c.values {
		if i > 0 {
			_, _ = buf.WriteString(", ")
		}
		*args = append(*args, v)
		_, _ = buf.WriteString(placeholder(len(*args)))
	}
	_ = buf.WriteByte(')')
}

type notNullCondition struct {
	column string
}

func IsNotNull(column string) Condition {
	return notNullCondition{column: column}
}

func (c notNullCondition) appendSQL(buf *bytebufferpool.ByteBuffer, _ *[]any) {
	_, _ = buf.WriteString(c.column)
	_, _ = buf.WriteString(" IS NOT NULL")
}

type exprCondition struct {
	expr string
	args []any
}

// Expr embeds a raw predicate; each '?' is bound to the next arg.
func Expr(expr string, args ...any) Condition {
	return exprCondition{expr: expr, args: args}
}

func (c exprCondition) appendSQL(buf *bytebufferpool.ByteBuffer, args *[]any) {
	_, _ = buf.WriteString(rewritePlaceholders(c.expr, c.args, args))
}

type SelectBuilder struct {
	columns   []string
	table     string
	joins     []string
	where     []Condition
	orderBy   []string
	limit     int
	forUpdate bool
}

func Select(columns ...string) *SelectBuilder {
	return &SelectBuilder{columns: append([]string(nil), columns...)}
}

func (b *SelectBuilder) From(table string) *SelectBuilder {
	b.table = table
	return b
}

func (b *SelectBuilder) Join(clause string) *SelectBuilder {
	b.joins = append(b.joins, strings.TrimSpace(clause))
	return b
}

func (b *SelectBuilder) Where(conditions ...Condition) *SelectBuilder {
	b.where = append(b.where, conditions...)
	return b
}

func (b *SelectBuilder) OrderBy(parts ...string) *SelectBuilder {
	b.orderBy = append(b.orderBy, parts...)
	return b
}

func (b *SelectBuilder) Limit(limit int) *SelectBuilder {
	b.limit = limit
	return b
}

func (b *SelectBuilder) ForUpdate() *SelectBuilder {
	b.forUpdate = true
	return b
}

func (b *SelectBuilder) ToSQL() (string, []any, error) {
	if len(b.columns) == 0 {
		return "", nil, fmt.Errorf("select columns are required")
	}
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("select table is required")
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString("SELECT ")
	_, _ = buf.WriteString(strings.Join(b.columns, ", "))
	_, _ = buf.WriteString(" FROM ")
	_, _ = buf.WriteString(b.table)
	for _, join := range b.joins {
		_ = buf.WriteByte(' ')
		_, _ = buf.WriteString(join)
	}

	args := make([]any, 0, len(b.where))
	appendWhereClause(buf, b.where, &args)
	if len(b.orderBy) > 0 {
		_, _ = buf.WriteString(" ORDER BY ")
		_, _ = buf.WriteString(strings.Join(b.orderBy, ", "))
	}
	if b.limit > 0 {
		_, _ = buf.WriteString(" LIMIT ")
		_, _ = buf.WriteString(strconv.Itoa(b.limit))
	}
	if b.forUpdate {
		_, _ = buf.WriteString(" FOR UPDATE")
	}

	return buf.String(), args, nil
}

type InsertBuilder struct {
	table   string
	columns []string
	rows    [][]any
	suffix  string
}

func InsertInto(table string) *InsertBuilder {
	return &InsertBuilder{table: table}
}

func (b *InsertBuilder) Columns(columns ...string) *InsertBuilder {
	b.columns = append([]string(nil), columns...)
	return b
}

func (b *InsertBuilder) Values(values ...any) *InsertBuilder {
	b.rows = append(b.rows, append([]any(nil), values...))
	return b
}

// Suffix appends ON CONFLICT / RETURNING clauses verbatim.
func (b *InsertBuilder) Suffix(sql string) *InsertBuilder {
	b.suffix = strings.TrimSpace(sql)
	return b
}

func (b *InsertBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("insert table is required")
	}
	if len(b.columns) == 0 {
		return "", nil, fmt.Errorf("insert columns are required")
	}
	if len(b.rows) == 0 {
		return "", nil, fmt.Errorf("insert values are required")
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString("INSERT INTO ")
	_, _ = buf.WriteString(b.table)
	_, _ = buf.WriteString(" (")
	_, _ = buf.WriteString(strings.Join(b.columns, ", "))
	_, _ = buf.WriteString(") VALUES ")

	args := make([]any, 0, len(b.rows)*len(b.columns))
	for rowIdx, row := range b.rows {
		if len(row) != len(b.columns) {
			return "", nil, fmt.Errorf("insert row %d has %d values, expected %d", rowIdx, len(row), len(b.columns))
		}
		if rowIdx > 0 {
			_, _ = buf.WriteString(", ")
		}
		_ = buf.WriteByte('(')
		for colIdx, value := range row {
			if colIdx > 0 {
				_, _ = buf.WriteString(", ")
			}
			args = append(args, value)
			_, _ = buf.WriteString(placeholder(len(args)))
		}
		_ = buf.WriteByte(')')
	}

	if b.suffix != "" {
		_ = buf.WriteByte(' ')
		_, _ = buf.WriteString(b.suffix)
	}

	return buf.String(), args, nil
}

type setClause struct {
	column string
	value  any
	expr   *exprCondition
}

type UpdateBuilder struct {
	table  string
	sets   []setClause
	where  []Condition
	suffix string
}

func Update(table string) *UpdateBuilder {
	return &UpdateBuilder{table: table}
}

func (b *UpdateBuilder) Set(column string, value any) *UpdateBuilder {
	b.sets = append(b.sets, setClause{column: column, value: value})
	return b
}

func (b *UpdateBuilder) SetExpr(column, expr string, args ...any) *UpdateBuilder {
	b.sets = append(b.sets, setClause{column: column, expr: &exprCondition{expr: expr, args: args}})
	return b
}

func (b *UpdateBuilder) Where(conditions ...Condition) *UpdateBuilder {
	b.where = append(b.where, conditions...)
	return b
}

func (b *UpdateBuilder) Suffix(sql string) *UpdateBuilder {
	b.suffix = strings.TrimSpace(sql)
	return b
}

func (b *UpdateBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("update table is required")
	}
	if len(b.sets) == 0 {
		return "", nil, fmt.Errorf("update sets are required")
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString("UPDATE ")
	_, _ = buf.WriteString(b.table)
	_, _ = buf.WriteString(" SET ")

	args := make([]any, 0, len(b.sets)+len(b.where))
	for i, s := range b.sets {
		if i > 0 {
			_, _ = buf.WriteString(", ")
		}
		_, _ = buf.WriteString(s.column)
		_, _ = buf.WriteString(" = ")
		if s.expr != nil {
			_, _ = buf.WriteString(rewritePlaceholders(s.expr.expr, s.expr.args, &args))
			continue
		}
		args = append(args, s.value)
		_, _ = buf.WriteString(placeholder(len(args)))
	}

	appendWhereClause(buf, b.where, &args)
	if b.suffix != "" {
		_ = buf.WriteByte(' ')
		_, _ = buf.WriteString(b.suffix)
	}

	return buf.String(), args, nil
}

func appendWhereClause(buf *bytebufferpool.ByteBuffer, conditions []Condition, args *[]any) {
	if len(conditions) == 0 {
		return
	}
	_, _ = buf.WriteString(" WHERE ")
	for i, c := range conditions {
		if i > 0 {
			_, _ = buf.WriteString(" AND ")
		}
		c.appendSQL(buf, args)
	}
}

func placeholder(i int) string {
	return "$" + strconv.Itoa(i)
}

func rewritePlaceholders(expr string, exprArgs []any, args *[]any) string {
	if len(exprArgs) == 0 {
		return expr
	}

	var out strings.Builder
	next := 0
	for i := 0; i < len(expr); i++ {
		if expr[i] != '?' || next >= len(exprArgs) {
			out.WriteByte(expr[i])
			continue
		}
		*args = append(*args, exprArgs[next])
		out.WriteString(placeholder(len(*args)))
		next++
	}
	return out.String()
}
