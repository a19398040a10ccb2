package evaluator

import (
	"database/sql"
	"fmt"
	"time"

	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
)

// readSQL implements read_sql(driver, dsn, query[, params]): it runs a
// query and loads the result set into a DataFrame with one column per
// result column.
func readSQL(env *Environment, args ...Value) (Value, error) {
	if len(args) < 3 || len(args) > 4 {
		return nil, perrors.Arity("3 to 4", len(args))
	}
	driver, err := stringArg(args, 0, "read_sql")
	if err != nil {
		return nil, err
	}
	dsn, err := stringArg(args, 1, "read_sql")
	if err != nil {
		return nil, err
	}
	query, err := stringArg(args, 2, "read_sql")
	if err != nil {
		return nil, err
	}
	var params []any
	if len(args) == 4 {
		items, err := iterableValues(args[3])
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			params = append(params, toSQLParam(item))
		}
	}

	db, err := openDB(env.rt.dbs, driver, dsn)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(env.rt.ctx, query, params...)
	if err != nil {
		return nil, perrors.New("DB-0003", map[string]any{"GoError": err.Error()})
	}
	defer rows.Close()
	return scanDataFrame(rows, env.rt.sqlMaxRows)
}

// openDB returns a cached pool for driver and dsn, opening and pinging a
// new one on a miss.
func openDB(cache *dbCache, driver, dsn string) (*sql.DB, error) {
	name, ok := sqlDrivers[driver]
	if !ok {
		return nil, perrors.New("DB-0001", map[string]any{"Driver": driver})
	}
	key := name + ":" + dsn
	if db, ok := cache.get(key); ok {
		return db, nil
	}
	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, perrors.New("DB-0002", map[string]any{"Driver": driver, "GoError": err.Error()})
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, perrors.New("DB-0002", map[string]any{"Driver": driver, "GoError": err.Error()})
	}
	cache.put(key, db)
	return db, nil
}

func scanDataFrame(rows *sql.Rows, maxRows int) (*DataFrame, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, perrors.New("DB-0003", map[string]any{"GoError": err.Error()})
	}
	df := &DataFrame{Columns: make([]Column, len(columns))}
	for i, name := range columns {
		df.Columns[i] = Column{Name: name, Values: []Value{}}
	}

	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	n := 0
	for rows.Next() {
		if n >= maxRows {
			return nil, perrors.New("DB-0004", map[string]any{"Limit": maxRows})
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, perrors.New("DB-0003", map[string]any{"GoError": err.Error()})
		}
		for i, v := range values {
			df.Columns[i].Values = append(df.Columns[i].Values, fromSQLValue(v))
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return nil, perrors.New("DB-0003", map[string]any{"GoError": err.Error()})
	}
	return df, nil
}

// fromSQLValue converts a scanned driver value. NULL becomes nil.
func fromSQLValue(v any) Value {
	switch v := v.(type) {
	case nil:
		return NIL
	case int64:
		return &Integer{Value: v}
	case int32:
		return &Integer{Value: int64(v)}
	case float64:
		return &Float{Value: v}
	case float32:
		return &Float{Value: float64(v)}
	case bool:
		return nativeBoolToBool(v)
	case []byte:
		return &String{Value: string(v)}
	case string:
		return &String{Value: v}
	case time.Time:
		return &String{Value: v.Format(time.RFC3339Nano)}
	}
	return &String{Value: fmt.Sprint(v)}
}

func toSQLParam(v Value) any {
	switch v := v.(type) {
	case *Integer:
		return v.Value
	case *Float:
		return v.Value
	case *Bool:
		return v.Value
	case *String:
		return v.Value
	case *Char:
		return string(v.Value)
	case *Nil, *Unit:
		return nil
	}
	return Display(v)
}
