package postgres

import (
	"fmt"
	"strings"

	"github.com/aawaaz/ticket-server/internal/lifecycle"
)

const ticketColumns = `id, title, description, category::text, severity::text, status::text,
	visibility::text, upvote_count, attachment_ref, created_by, created_at, updated_at`

// orderClauses mirror lifecycle.Order.Less. uuid comparison in Postgres is
// byte-wise, matching the in-memory tie break.
var orderClauses = map[lifecycle.Order]string{
	lifecycle.OrderNewest:    "created_at DESC, id ASC",
	lifecycle.OrderCommunity: "upvote_count DESC, created_at DESC, id ASC",
	lifecycle.OrderTriage:    "severity DESC, upvote_count DESC, created_at DESC, id ASC",
}

// buildTicketQuery renders q as a parameterized SELECT over tickets.
func buildTicketQuery(q lifecycle.Query) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	f := q.Filter
	if f.CreatedBy != nil {
		where = append(where, "created_by = "+arg(*f.CreatedBy))
	}
	if f.ExcludeCreatedBy != nil {
		where = append(where, "created_by <> "+arg(*f.ExcludeCreatedBy))
	}
	if f.RestrictIDs {
		if len(f.IDs) == 0 {
			where = append(where, "FALSE")
		} else {
			ids := make([]string, len(f.IDs))
			for i, id := range f.IDs {
				ids[i] = id.String()
			}
			where = append(where, "id = ANY("+arg(ids)+"::uuid[])")
		}
	}
	if f.Visibility != nil {
		where = append(where, "visibility = "+arg(string(*f.Visibility))+"::ticket_visibility")
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			statuses[i] = string(st)
		}
		where = append(where, "status::text = ANY("+arg(statuses)+"::text[])")
	}
	if f.ExcludeStatus != nil {
		where = append(where, "status <> "+arg(string(*f.ExcludeStatus))+"::ticket_status")
	}
	if f.Severity != nil {
		where = append(where, "severity = "+arg(string(*f.Severity))+"::ticket_severity")
	}
	if f.TitleContains != "" {
		where = append(where, "title ILIKE "+arg("%"+escapeLike(f.TitleContains)+"%"))
	}
	if f.Search != "" {
		pattern := arg("%" + escapeLike(f.Search) + "%")
		where = append(where, "(title ILIKE "+pattern+" OR description ILIKE "+pattern+")")
	}
	if f.CreatedFrom != nil {
		where = append(where, "created_at >= "+arg(*f.CreatedFrom))
	}
	if f.CreatedUntil != nil {
		where = append(where, "created_at < "+arg(*f.CreatedUntil))
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(ticketColumns)
	sb.WriteString(" FROM tickets")
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}

	order, ok := orderClauses[q.Order]
	if !ok {
		order = orderClauses[lifecycle.OrderNewest]
	}
	sb.WriteString(" ORDER BY ")
	sb.WriteString(order)

	if q.Limit > 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(arg(q.Limit))
	}
	return sb.String(), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
