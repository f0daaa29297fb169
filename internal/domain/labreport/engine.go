package labreport

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinic/pkg/pagination"
)

// Engine answers lab report queries. It holds no state and is safe for
// concurrent use.
type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

func (e *Engine) Query(ctx context.Context, req Request) (*pagination.Page[View], error) {
	plan := Normalize(req)

	zerolog.Ctx(ctx).Debug().
		Int("page", plan.Page.Page).
		Int("limit", plan.Page.Limit).
		Str("search", plan.Search).
		Str("sort", string(plan.Sort)).
		Bool("desc", plan.Desc).
		Time("from", deref(plan.From)).
		Time("to", deref(plan.To)).
		Msg("lab report query")

	if plan.Empty() {
		return pagination.NewPage([]View{}, plan.Page, 0), nil
	}

	rows, total, err := e.store.Search(ctx, plan)
	if err != nil {
		return nil, err
	}

	views := make([]View, len(rows))
	for i := range rows {
		views[i] = rows[i].View()
	}
	return pagination.NewPage(views, plan.Page, total), nil
}
