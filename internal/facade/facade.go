// Package facade is the URI-addressed read/write surface over the
// record store, for callers that must not import the store's
// internals.
//
// Four address patterns are supported - collection- and item-level
// for each of the two collections:
//
//	prescriptions           prescriptions/{uid}
//	time_terms              time_terms/{id}
//
// Operations mirror a generic CRUD surface: query with a
// caller-supplied filter/order appended to the built-in one, insert
// with derived-flag defaults, update and delete with item addresses
// translated into identifier-equality filters. Every mutating call
// that affects at least one row broadcasts a change notification
// keyed by the address.
//
// Failures surface as errors/absent results rather than panics: the
// facade has many independent callers that must degrade gracefully.
package facade

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/medsched/medsched/internal/store"
)

// Row is one result row keyed by column name.
type Row map[string]any

// Values holds the column values for an insert or update.
type Values map[string]any

// Facade dispatches address-routed operations against the store.
type Facade struct {
	st  *store.Store
	bus *Bus
	log zerolog.Logger

	// onMutate runs after every successful mutation; the host wires
	// it to the scheduler's on-demand trigger so external writes
	// promptly refresh the derived flags.
	onMutate func()
}

// Option configures a Facade.
type Option func(*Facade)

// WithOnMutate sets a hook invoked after every mutation that affected
// rows.
func WithOnMutate(fn func()) Option {
	return func(f *Facade) { f.onMutate = fn }
}

// New creates a Facade over the given store.
func New(st *store.Store, log zerolog.Logger, opts ...Option) *Facade {
	f := &Facade{
		st:  st,
		bus: NewBus(),
		log: log,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Bus returns the change-notification bus for observers.
func (f *Facade) Bus() *Bus {
	return f.bus
}

// tableFor maps a collection to its table name and column surface.
func tableFor(a Address) (table, idColumn string, columns []string) {
	if a.Collection() == PathTimeTerms {
		return "time_terms", "id", timeTermColumns
	}
	return "prescription_drugs", "uid", prescriptionColumns
}

var prescriptionColumns = []string{
	"uid", "shortName", "description", "startDateEpoch", "endDateEpoch",
	"timeTermId", "doctorName", "doctorLocation", "isActive",
	"lastDateReceivedEpoch", "hasReceivedToday",
}

var timeTermColumns = []string{"id", "code", "sortOrder"}

// Query builds a read against the addressed collection. Item-level
// addresses implicitly filter by identifier; a caller-supplied filter
// (a SQL boolean expression with ? placeholders) is ANDed onto the
// built-in one, and order (a SQL ORDER BY body) is appended verbatim.
func (f *Facade) Query(ctx context.Context, address, filter string, filterArgs []any, order string) ([]Row, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}

	table, idColumn, columns := tableFor(addr)

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", strings.Join(columns, ", "), table)

	where, args := whereClause(addr, idColumn, filter, filterArgs)
	sb.WriteString(where)
	if order != "" {
		fmt.Fprintf(&sb, " ORDER BY %s", order)
	}

	rows, err := f.st.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("facade query %s: %w", addr, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		dest := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("facade query %s: scan: %w", addr, err)
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			row[col] = dest[i]
		}
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("facade query %s: %w", addr, err)
	}

	if out == nil {
		out = []Row{}
	}

	return out, nil
}

// Insert adds a row to the addressed collection and returns the new
// item's address. Only collection-level addresses accept inserts.
//
// If the caller omits the derived flags, they default to
// inactive/not-received; the next recompute pass settles their real
// values. A failing insert (e.g. unknown timeTermId) returns an empty
// address and the error.
func (f *Facade) Insert(ctx context.Context, address string, values Values) (string, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return "", err
	}
	if addr.IsItem() {
		return "", fmt.Errorf("%w: insert not supported on item address %q", ErrUnsupportedAddress, address)
	}

	table, _, columns := tableFor(addr)

	if addr.Kind == KindPrescriptions {
		values = withFlagDefaults(values)
	}

	cols, args, err := orderedValues(values, columns)
	if err != nil {
		return "", err
	}
	if len(cols) == 0 {
		return "", fmt.Errorf("facade insert %s: no values", addr)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(cols, ", "),
		placeholders(len(cols)),
	)

	res, err := f.st.Exec(ctx, query, args...)
	if err != nil {
		f.log.Warn().Err(err).Str("address", address).Msg("facade insert failed")
		return "", fmt.Errorf("facade insert %s: %w", addr, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("facade insert %s: last insert id: %w", addr, err)
	}

	itemAddr := ItemAddress(addr.Collection(), id)
	f.notifyChanged(addr)
	return itemAddr, nil
}

// Update modifies rows under the address. Item-level addresses are
// translated into an identifier-equality filter ANDed with any
// caller-supplied filter. Returns the number of rows affected.
func (f *Facade) Update(ctx context.Context, address string, values Values, filter string, filterArgs []any) (int64, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return 0, err
	}

	table, idColumn, columns := tableFor(addr)

	cols, setArgs, err := orderedValues(values, columns)
	if err != nil {
		return 0, err
	}
	if len(cols) == 0 {
		return 0, fmt.Errorf("facade update %s: no values", addr)
	}

	sets := make([]string, len(cols))
	for i, col := range cols {
		sets[i] = col + " = ?"
	}

	where, whereArgs := whereClause(addr, idColumn, filter, filterArgs)
	query := fmt.Sprintf("UPDATE %s SET %s%s", table, strings.Join(sets, ", "), where)

	res, err := f.st.Exec(ctx, query, append(setArgs, whereArgs...)...)
	if err != nil {
		f.log.Warn().Err(err).Str("address", address).Msg("facade update failed")
		return 0, fmt.Errorf("facade update %s: %w", addr, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("facade update %s: rows affected: %w", addr, err)
	}

	if rows > 0 {
		f.notifyChanged(addr)
	}
	return rows, nil
}

// Delete removes rows under the address, with the same filter
// translation as Update. Returns the number of rows affected.
// Deleting a time term that is still referenced fails with
// store.ErrReferentialIntegrity and removes nothing.
func (f *Facade) Delete(ctx context.Context, address, filter string, filterArgs []any) (int64, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return 0, err
	}

	table, idColumn, _ := tableFor(addr)

	where, args := whereClause(addr, idColumn, filter, filterArgs)
	query := fmt.Sprintf("DELETE FROM %s%s", table, where)

	res, err := f.st.Exec(ctx, query, args...)
	if err != nil {
		f.log.Warn().Err(err).Str("address", address).Msg("facade delete failed")
		return 0, fmt.Errorf("facade delete %s: %w", addr, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("facade delete %s: rows affected: %w", addr, err)
	}

	if rows > 0 {
		f.notifyChanged(addr)
	}
	return rows, nil
}

// notifyChanged broadcasts the change and nudges the scheduler.
func (f *Facade) notifyChanged(addr Address) {
	f.bus.Publish(addr)
	if f.onMutate != nil {
		f.onMutate()
	}
}

// whereClause combines the address's implicit identifier filter with
// the caller's filter. Returns the clause (with leading " WHERE ", or
// empty) and its arguments.
func whereClause(addr Address, idColumn, filter string, filterArgs []any) (string, []any) {
	var parts []string
	var args []any

	if addr.IsItem() {
		parts = append(parts, idColumn+" = ?")
		args = append(args, addr.ID)
	}
	if filter != "" {
		parts = append(parts, "("+filter+")")
		args = append(args, filterArgs...)
	}

	if len(parts) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

// orderedValues validates value keys against the collection's column
// surface and returns them in deterministic order.
func orderedValues(values Values, columns []string) ([]string, []any, error) {
	allowed := make(map[string]bool, len(columns))
	for _, c := range columns {
		allowed[c] = true
	}

	cols := make([]string, 0, len(values))
	for col := range values {
		if !allowed[col] {
			return nil, nil, fmt.Errorf("unknown column %q", col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	args := make([]any, len(cols))
	for i, col := range cols {
		args[i] = values[col]
	}

	return cols, args, nil
}

// withFlagDefaults fills in the derived-flag defaults for a
// prescription insert that omits them.
func withFlagDefaults(values Values) Values {
	out := make(Values, len(values)+2)
	for k, v := range values {
		out[k] = v
	}
	if _, ok := out["isActive"]; !ok {
		out["isActive"] = 0
	}
	if _, ok := out["hasReceivedToday"]; !ok {
		out["hasReceivedToday"] = 0
	}
	return out
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
