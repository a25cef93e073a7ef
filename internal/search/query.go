package search

import (
	"fmt"

	"github.com/aidanlsb/assetsearch/internal/assemble"
	"github.com/aidanlsb/assetsearch/internal/criteria"
	"github.com/aidanlsb/assetsearch/internal/searchstore"
)

// ToQuery converts request parameters to their stored form. Meta criteria
// are folded into the criteria list, tagged as meta.
func ToQuery(p Params) (searchstore.Query, error) {
	list := make([]criteria.Criterion, 0, len(p.Criteria)+len(p.MetaCriteria))
	list = append(list, p.Criteria...)
	list = append(list, criteria.MarkMeta(p.MetaCriteria)...)
	data, err := criteria.Marshal(list)
	if err != nil {
		return searchstore.Query{}, fmt.Errorf("failed to encode criteria: %w", err)
	}

	q := searchstore.Query{
		Itemtype: p.Itemtype,
		Criteria: data,
		Start:    p.Start,
		Limit:    p.Limit,
	}
	if p.Deleted != assemble.DeletedNo {
		q.Deleted = p.Deleted.String()
	}
	for _, s := range p.Sort {
		q.Sort = append(q.Sort, s.String())
	}
	return q, nil
}

// FromQuery converts a stored query back to request parameters.
func FromQuery(q searchstore.Query) (Params, error) {
	list, err := criteria.Parse(q.Criteria)
	if err != nil {
		return Params{}, err
	}
	deleted, err := assemble.ParseDeleted(q.Deleted)
	if err != nil {
		return Params{}, err
	}
	p := Params{
		Itemtype: q.Itemtype,
		Criteria: list,
		Start:    q.Start,
		Limit:    q.Limit,
		Deleted:  deleted,
	}
	for _, s := range q.Sort {
		spec, err := assemble.ParseSortSpec(s)
		if err != nil {
			return Params{}, err
		}
		p.Sort = append(p.Sort, spec)
	}
	return p, nil
}
