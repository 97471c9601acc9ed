package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const maxChain = 16

// PGFields are the server-side details of a Postgres error, whichever driver
// raised it.
type PGFields struct {
	Code       string
	Constraint string
	Table      string
	Column     string
	Detail     string
	Message    string
}

// ErrorDump is the log-only view of an error. Nothing in it reaches clients.
type ErrorDump struct {
	TopMessage string
	Code       Code
	Reason     string
	Chain      []string
	PG         *PGFields
}

// Dump flattens err for logging. Joined errors are walked depth-first and the
// chain is capped at 16 entries.
func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
		d.Reason = te.Reason()
	}
	walk(err, func(e error) bool {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
		return len(d.Chain) < maxChain
	})
	d.PG = pgFields(err)
	return d
}

// Fields renders the dump as structured log fields, omitting empty ones.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{"error": d.TopMessage}
	if d.Code != "" {
		fields["error_code"] = d.Code
	}
	if d.Reason != "" {
		fields["error_reason"] = d.Reason
	}
	if len(d.Chain) > 1 {
		fields["error_chain"] = d.Chain
	}
	if d.PG != nil {
		for k, v := range map[string]string{
			"pg_code":       d.PG.Code,
			"pg_constraint": d.PG.Constraint,
			"pg_table":      d.PG.Table,
			"pg_column":     d.PG.Column,
			"pg_detail":     d.PG.Detail,
			"pg_message":    d.PG.Message,
		} {
			if v != "" {
				fields[k] = v
			}
		}
	}
	return fields
}

func walk(err error, visit func(error) bool) bool {
	if err == nil {
		return true
	}
	if !visit(err) {
		return false
	}
	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		for _, inner := range u.Unwrap() {
			if !walk(inner, visit) {
				return false
			}
		}
		return true
	case interface{ Unwrap() error }:
		return walk(u.Unwrap(), visit)
	}
	return true
}

func pgFields(err error) *PGFields {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return &PGFields{
			Code:       pgxErr.Code,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     pgxErr.Detail,
			Message:    pgxErr.Message,
		}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &PGFields{
			Code:       string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}
	}
	return nil
}
