package pgstore

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgtype"

	"stateflow.dev/stateflow/internal/domain"
	"stateflow.dev/stateflow/internal/repository/sqlc"
)

const termsTable = "state_io_terms"

type reader struct {
	q  *sqlc.Queries
	db sqlc.DBTX
}

func (r reader) GetTerm(ctx context.Context, id string) (domain.Term, error) {
	row, err := r.q.GetIOTerm(ctx, id)
	if err != nil {
		return domain.Term{}, fmt.Errorf("get term %s: %w", id, mapError(err))
	}
	return termFromRow(row), nil
}

// listTermsQuery builds the term listing. The search filter is optional, so
// the statement is assembled with the ent SQL builder instead of a static
// query.
func listTermsQuery(q domain.TermQuery) (string, []any) {
	b := entsql.Dialect(dialect.Postgres)
	t := b.Table(termsTable)
	sel := b.Select(
		t.C("id"), t.C("label"), t.C("description"),
		t.C("created_by"), t.C("updated_by"), t.C("created_at"), t.C("updated_at"),
	).From(t)
	if q.Search != "" {
		sel.Where(entsql.ContainsFold(t.C("label"), q.Search))
	}
	sel.OrderBy(t.C("label"), t.C("id")).Limit(q.Limit)
	return sel.Query()
}

func (r reader) ListTerms(ctx context.Context, q domain.TermQuery) ([]domain.Term, error) {
	query, args := listTermsQuery(q)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list terms: %w", err)
	}
	defer rows.Close()

	var out []domain.Term
	for rows.Next() {
		var row sqlc.StateIoTerm
		if err := rows.Scan(
			&row.ID,
			&row.Label,
			&row.Description,
			&row.CreatedBy,
			&row.UpdatedBy,
			&row.CreatedAt,
			&row.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan term: %w", err)
		}
		out = append(out, termFromRow(row))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list terms: %w", err)
	}
	return out, nil
}

func (r reader) CountLinks(ctx context.Context, termIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(termIDs))
	if len(termIDs) == 0 {
		return counts, nil
	}
	rows, err := r.q.CountIOTermLinks(ctx, termIDs)
	if err != nil {
		return nil, fmt.Errorf("count term links: %w", err)
	}
	for _, row := range rows {
		counts[row.IoTermID] = int(row.UsageCount)
	}
	return counts, nil
}

func (r reader) LinkedStateIDs(ctx context.Context, termID string) ([]string, error) {
	ids, err := r.q.ListLinkedStateIDs(ctx, termID)
	if err != nil {
		return nil, fmt.Errorf("list states linked to term %s: %w", termID, err)
	}
	return ids, nil
}

func (r reader) GetState(ctx context.Context, id string) (domain.State, error) {
	row, err := r.q.GetState(ctx, id)
	if err != nil {
		return domain.State{}, fmt.Errorf("get state %s: %w", id, mapError(err))
	}
	return stateFromRow(row), nil
}

func (r reader) ListStateIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	ids, err := r.q.ListStateIDs(ctx, sqlc.ListStateIDsParams{AfterID: afterID, RowLimit: int32(limit)})
	if err != nil {
		return nil, fmt.Errorf("list state ids: %w", err)
	}
	return ids, nil
}

func (r reader) LinkedTerms(ctx context.Context, stateIDs []string) ([]domain.LinkedTerm, error) {
	if len(stateIDs) == 0 {
		return nil, nil
	}
	rows, err := r.q.ListLinkedTerms(ctx, stateIDs)
	if err != nil {
		return nil, fmt.Errorf("list linked terms: %w", err)
	}
	out := make([]domain.LinkedTerm, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.LinkedTerm{
			StateID:   row.StateID,
			UsageType: domain.UsageType(row.UsageType),
			Order:     int(row.Order),
			Term: domain.Term{
				ID:          row.ID,
				Label:       row.Label,
				Description: row.Description,
				CreatedBy:   row.CreatedBy,
				UpdatedBy:   row.UpdatedBy,
				CreatedAt:   row.CreatedAt.Time,
				UpdatedAt:   row.UpdatedAt.Time,
			},
		})
	}
	return out, nil
}

func termFromRow(row sqlc.StateIoTerm) domain.Term {
	return domain.Term{
		ID:          row.ID,
		Label:       row.Label,
		Description: row.Description,
		CreatedBy:   row.CreatedBy,
		UpdatedBy:   row.UpdatedBy,
		CreatedAt:   row.CreatedAt.Time,
		UpdatedAt:   row.UpdatedAt.Time,
	}
}

func stateFromRow(row sqlc.State) domain.State {
	return domain.State{
		ID:            row.ID,
		ProjectID:     row.ProjectID,
		Name:          row.Name,
		Description:   row.Description,
		InputSummary:  row.InputSummary,
		OutputSummary: row.OutputSummary,
		InputSource:   domain.SummarySource(row.InputSource),
		OutputSource:  domain.SummarySource(row.OutputSource),
		CreatedBy:     row.CreatedBy,
		UpdatedBy:     row.UpdatedBy,
		CreatedAt:     row.CreatedAt.Time,
		UpdatedAt:     row.UpdatedAt.Time,
	}
}

func timestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}
