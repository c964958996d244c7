package syncer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tszyrowski/mosync/internal/store"
	"github.com/tszyrowski/mosync/pkg/types"
)

// plan holds the statement templates of one table, built once and reused by
// every run.
type plan struct {
	spec   types.TableSpec
	target string // schema-qualified target table

	selectAll   string // source, no filter
	selectSince string // source, change indicator filter
	selectTgt   string // target, natural order

	upsert string // native merge
	exists string // check-then-write
	update string
	insert string
}

func buildPlan(spec types.TableSpec, schema string, d store.Dialect) plan {
	cols := strings.Join(spec.Columns, ", ")
	pk := spec.PrimaryKey()
	target := store.Qualify(schema, spec.Name)

	p := plan{
		spec:        spec,
		target:      target,
		selectAll:   fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", cols, spec.Name, pk),
		selectSince: fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s", cols, spec.Name, sinceFilter(spec), pk),
		selectTgt:   fmt.Sprintf("SELECT %s FROM %s", cols, target),
		insert:      fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", target, cols, d.Placeholders(1, len(spec.Columns))),
		exists:      fmt.Sprintf("SELECT 1 FROM %s WHERE %s = %s", target, pk, d.Placeholder(1)),
	}

	values := spec.ValueColumns()
	if len(values) == 0 {
		p.upsert = fmt.Sprintf("%s ON CONFLICT (%s) DO NOTHING", p.insert, pk)
		return p
	}

	sets := make([]string, len(values))
	merge := make([]string, len(values))
	for i, c := range values {
		sets[i] = fmt.Sprintf("%s = %s", c, d.Placeholder(i+1))
		merge[i] = fmt.Sprintf("%s = EXCLUDED.%s", c, c)
	}
	p.update = fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s", target, strings.Join(sets, ", "), pk, d.Placeholder(len(values)+1))
	p.upsert = fmt.Sprintf("%s ON CONFLICT (%s) DO UPDATE SET %s", p.insert, pk, strings.Join(merge, ", "))
	return p
}

func sinceFilter(spec types.TableSpec) string {
	ind := spec.Indicator()
	if spec.ResendUnstamped {
		return fmt.Sprintf("%s > ? OR %s IS NULL", ind, ind)
	}
	return ind + " > ?"
}

// sourceQuery returns the verifier's source read, optionally key-ordered.
func (p plan) sourceQuery(orderByKey bool) string {
	if orderByKey {
		return p.selectAll
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(p.spec.Columns, ", "), p.spec.Name)
}

// targetQuery returns the verifier's target read, optionally key-ordered.
func (p plan) targetQuery(orderByKey bool) string {
	if orderByKey {
		return p.selectTgt + " ORDER BY " + p.spec.PrimaryKey()
	}
	return p.selectTgt
}

// updateArgs reorders a record for the UPDATE template: values, then key.
func updateArgs(r types.Record) []any {
	args := make([]any, 0, len(r))
	args = append(args, r[1:]...)
	return append(args, r[0])
}

// planCache builds plans lazily and keeps them for the engine's lifetime.
type planCache struct {
	schema  string
	dialect store.Dialect

	mu    sync.Mutex
	plans map[string]plan
}

func newPlanCache(schema string, d store.Dialect) *planCache {
	return &planCache{schema: schema, dialect: d, plans: make(map[string]plan)}
}

func (c *planCache) get(spec types.TableSpec) plan {
	key := fmt.Sprintf("%s\x00%s\x00%s\x00%t", spec.Name, strings.Join(spec.Columns, ","), spec.Indicator(), spec.ResendUnstamped)

	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.plans[key]
	if !ok {
		p = buildPlan(spec, c.schema, c.dialect)
		c.plans[key] = p
	}
	return p
}
