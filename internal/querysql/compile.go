package querysql

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/vql/internal/ir"
	"github.com/roach88/vql/internal/queryir"
)

// Tables and columns of the variant schema the compiler writes against.
const (
	VariantsTable    = "variants"
	AnnotationsTable = "annotations"

	// IDColumn is the identifier always selected first.
	IDColumn = "id"
	// CountColumn is the alias of the aggregate added by GROUP BY.
	CountColumn = "count"
)

// Request describes one query to compile.
type Request struct {
	Fields    []ir.FieldRef
	Source    string // selection name; "" or "variants" means all variants
	Filters   queryir.Node
	OrderBy   *ir.FieldRef
	OrderDesc bool
	Limit     *int // nil: no LIMIT/OFFSET, for sub-queries and counting
	Offset    int
	GroupBy   []ir.FieldRef
	Having    queryir.Node
}

// Query is compiled, parameterized SQL.
type Query struct {
	SQL  string
	Args []any
	// Columns holds the result column names in select order:
	// id, then count when grouped, then the requested fields.
	Columns []string
}

// Compiler compiles Requests to SQLite SQL.
//
// Catalog and Samples are read-only snapshots taken by the caller for one
// command. Compile keeps no other state, so equal inputs give equal output.
type Compiler struct {
	Catalog       Catalog
	Samples       SampleIndex
	MissingSample MissingSample
	Logger        *slog.Logger
}

// NewCompiler creates a Compiler over the given catalogs.
func NewCompiler(catalog Catalog, samples SampleIndex) *Compiler {
	return &Compiler{Catalog: catalog, Samples: samples}
}

func (c *Compiler) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c.Logger
}

// Compile translates req into SQL.
//
// Clause order is fixed: select list, FROM, joins (annotations, source
// selection, one per sample), WHERE, GROUP BY, HAVING, ORDER BY, LIMIT.
// All literal values, the source name and sample ids are bound as
// arguments.
func (c *Compiler) Compile(req Request) (Query, error) {
	if err := c.check(req); err != nil {
		return Query{}, err
	}

	b := &builder{catalog: c.Catalog}

	// Select list. Resolution order also fixes the order of sample joins.
	selectList := []string{column(VariantsTable, IDColumn)}
	columns := []string{IDColumn}
	if len(req.GroupBy) > 0 {
		selectList = append(selectList, fmt.Sprintf("COUNT(%s) AS %s", column(VariantsTable, IDColumn), quoteIdent(CountColumn)))
		columns = append(columns, CountColumn)
	}
	for _, f := range req.Fields {
		if isIDField(f) {
			continue
		}
		expr, err := b.resolve(f)
		if err != nil {
			return Query{}, err
		}
		selectList = append(selectList, expr+" AS "+quoteIdent(f.String()))
		columns = append(columns, f.String())
	}

	where, whereArgs, err := Fragment(req.Filters, b.resolve)
	if err != nil {
		return Query{}, err
	}

	groups := make([]string, 0, len(req.GroupBy))
	for _, f := range req.GroupBy {
		g, err := b.groupTerm(f)
		if err != nil {
			return Query{}, err
		}
		groups = append(groups, g)
	}

	having, havingArgs, err := Fragment(req.Having, b.resolve)
	if err != nil {
		return Query{}, err
	}

	var orderExpr string
	if req.OrderBy != nil {
		if orderExpr, err = b.resolve(*req.OrderBy); err != nil {
			return Query{}, err
		}
	}

	var sql strings.Builder
	var args []any

	sql.WriteString("SELECT " + strings.Join(selectList, ", ") + " FROM " + VariantsTable)

	if b.annotations {
		sql.WriteString(" LEFT JOIN annotations ON annotations.variant_id = variants.id")
	}

	if source := req.Source; source != "" && source != VariantsTable {
		sql.WriteString(" INNER JOIN selection_has_variant sv ON sv.variant_id = variants.id" +
			" INNER JOIN selections s ON s.id = sv.selection_id AND s.name = ?")
		args = append(args, source)
	}

	for _, sample := range b.samples {
		id, ok := c.Samples[sample]
		if !ok {
			if c.MissingSample == MissingSampleFail {
				return Query{}, compileErrorf(ir.Call(ir.GenotypeFunc, sample, "").String(), "unknown sample %q", sample)
			}
			c.logger().Warn("sample not found, join skipped", "sample", sample)
			continue
		}
		alias := quoteIdent(sampleAlias(sample))
		fmt.Fprintf(&sql, " INNER JOIN sample_has_variant %s ON %s.variant_id = variants.id AND %s.sample_id = ?", alias, alias, alias)
		args = append(args, id)
	}

	if where != "" {
		sql.WriteString(" WHERE " + where)
		args = append(args, whereArgs...)
	}

	if len(groups) > 0 {
		sql.WriteString(" GROUP BY " + strings.Join(groups, ","))
	}

	if having != "" {
		sql.WriteString(" HAVING " + having)
		args = append(args, havingArgs...)
	}

	if orderExpr != "" {
		dir := "ASC"
		if req.OrderDesc {
			dir = "DESC"
		}
		sql.WriteString(" ORDER BY " + orderExpr + " " + dir)
	}

	if req.Limit != nil {
		fmt.Fprintf(&sql, " LIMIT %d OFFSET %d", *req.Limit, req.Offset)
	}

	q := Query{SQL: sql.String(), Args: args, Columns: columns}
	c.logger().Debug("compiled query", "sql", q.SQL, "args", len(q.Args))
	return q, nil
}

// check rejects requests that cannot compile regardless of catalogs.
func (c *Compiler) check(req Request) error {
	if err := queryir.Validate(req.Filters); err != nil {
		return &CompileError{Message: "invalid filters: " + err.Error(), Err: err}
	}
	if err := queryir.Validate(req.Having); err != nil {
		return &CompileError{Message: "invalid having: " + err.Error(), Err: err}
	}
	if !queryir.IsEmpty(req.Having) && len(req.GroupBy) == 0 {
		return compileErrorf("", "HAVING requires GROUP BY")
	}
	if req.Limit != nil && *req.Limit < 0 {
		return compileErrorf("", "negative LIMIT %d", *req.Limit)
	}
	if req.Offset < 0 {
		return compileErrorf("", "negative OFFSET %d", req.Offset)
	}
	if req.Source != "" && strings.TrimSpace(req.Source) == "" {
		return compileErrorf("", "blank source name")
	}
	return nil
}

// isIDField reports whether f is the identifier column, which is always
// selected first.
func isIDField(f ir.FieldRef) bool {
	return f == ir.Field(IDColumn) || f == ir.Qualified(VariantsTable, IDColumn)
}

// sampleAlias is the join alias of a sample's genotype rows.
func sampleAlias(sample string) string {
	return ir.GenotypeFunc + "_" + sample
}

// builder resolves fields and records the joins they need.
type builder struct {
	catalog     Catalog
	annotations bool
	samples     []string // distinct, in order of first reference
}

func (b *builder) addSample(name string) {
	for _, s := range b.samples {
		if s == name {
			return
		}
	}
	b.samples = append(b.samples, name)
}

// resolve maps a field to its qualified SQL column.
func (b *builder) resolve(f ir.FieldRef) (string, error) {
	switch f.Kind() {
	case ir.FieldFunc:
		if f.Func != ir.GenotypeFunc {
			return "", compileErrorf(f.String(), "%s() cannot be used as a column", f.Func)
		}
		if f.Arg == "" {
			return "", compileErrorf(f.String(), "sample name is empty")
		}
		name := f.Name
		if name == "" {
			name = ir.DefaultGenotypeField
		}
		if !validIdent(name) {
			return "", compileErrorf(f.String(), "invalid genotype field %q", name)
		}
		b.addSample(f.Arg)
		return column(sampleAlias(f.Arg), name), nil

	case ir.FieldQualified:
		if !validIdent(f.Table) || !validIdent(f.Name) {
			return "", compileErrorf(f.String(), "invalid identifier")
		}
		if f.Table == AnnotationsTable {
			b.annotations = true
		}
		return column(f.Table, f.Name), nil

	default:
		if !validIdent(f.Name) {
			return "", compileErrorf(f.String(), "invalid identifier")
		}
		if f.Name == IDColumn {
			return column(VariantsTable, IDColumn), nil
		}
		info, ok := b.catalog[f.Name]
		if !ok {
			return column("", f.Name), nil
		}
		table := info.Category
		switch table {
		case CategorySamples:
			return "", compileErrorf(f.String(), "sample field needs a sample: use sample('name').%s", f.Name)
		case "":
			table = VariantsTable
		case AnnotationsTable:
			b.annotations = true
		}
		if !validIdent(table) {
			return "", compileErrorf(f.String(), "invalid category %q", table)
		}
		return column(table, f.Name), nil
	}
}

// groupTerm renders one GROUP BY item. Plain and qualified names are
// written literally; genotype fields use their resolved column.
func (b *builder) groupTerm(f ir.FieldRef) (string, error) {
	switch f.Kind() {
	case ir.FieldPlain:
		if !validIdent(f.Name) {
			return "", compileErrorf(f.String(), "invalid identifier")
		}
		if info, ok := b.catalog[f.Name]; ok && info.Category == AnnotationsTable {
			b.annotations = true
		}
		return f.Name, nil
	case ir.FieldQualified:
		if !validIdent(f.Table) || !validIdent(f.Name) {
			return "", compileErrorf(f.String(), "invalid identifier")
		}
		if f.Table == AnnotationsTable {
			b.annotations = true
		}
		return f.Table + "." + f.Name, nil
	default:
		return b.resolve(f)
	}
}
