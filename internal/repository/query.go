package repository

import (
	"errors"
	"log/slog"
	"sort"
)

const (
	NotEmpty QueryFieldValue = "not_empty"
	Empty    QueryFieldValue = "empty"

	IDField        QueryField = "id"
	StatusField    QueryField = "status"
	RoleField      QueryField = "role"
	ActiveField    QueryField = "is_active"
	SearchField    QueryField = "search"
	OwnerField     QueryField = "user_id"
	ClientField    QueryField = "client_id"
	MechanicField  QueryField = "mechanic_id"
	UrgencyField   QueryField = "urgency_level"
	VerifiedField  QueryField = "is_verified"
	CreatedAtField QueryField = "created_at"
)

type Query struct {
	Values map[QueryField]string

	Limit int

	Paginator *Paginator
}

type QueryField string

type QueryFieldValue string

func NewQuery() *Query {
	return &Query{
		Values: map[QueryField]string{},
	}
}

func (q *Query) With(field QueryField, val string) *Query {
	q.Values[field] = val
	return q
}

// Fields returns the set fields in a stable order so generated SQL is deterministic.
func (q Query) Fields() []QueryField {
	fields := make([]QueryField, 0, len(q.Values))
	for f := range q.Values {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}

func (q *Query) ApplyPagination(limit int32, token string) error {
	queryLimit := DefaultPaginationLimit
	if limit > 0 {
		queryLimit = min(maxPaginationLimit, int(limit))
	}
	q.Limit = queryLimit

	if token == "" {
		return nil
	}

	paginator, err := DecodePageToken(token)
	if err != nil {
		slog.Error("failed to decode page token", slog.Any("err", err), slog.String("token", token))
		return errors.New("invalid page token")
	}
	q.Paginator = paginator
	return nil
}

// NextPageToken returns the cursor after the last item of a full page, or "" when the
// page was not full.
func NextPageToken(count, limit int, last Paginator) string {
	if limit <= 0 || count < limit {
		return ""
	}
	return last.Encode()
}
