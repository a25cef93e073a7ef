package criteria

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Parse decodes a JSON criteria array:
//
//	[{"link":"AND","field":1,"searchtype":"contains","value":"pc"},
//	 {"link":"OR","criteria":[...]},
//	 {"link":"AND NOT","meta":true,"itemtype":"Software","field":1,"searchtype":"contains","value":"office"}]
func Parse(data []byte) ([]Criterion, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode criteria: %w", err)
	}
	return FromMaps(raw)
}

// FromMaps converts decoded criteria maps. A "criteria" key marks a group.
func FromMaps(raw []map[string]any) ([]Criterion, error) {
	out := make([]Criterion, 0, len(raw))
	for i, m := range raw {
		c, err := fromMap(m)
		if err != nil {
			return nil, fmt.Errorf("criterion %d: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// MarkMeta tags every leaf of a metacriteria list as meta so it can be
// merged into the main tree.
func MarkMeta(list []Criterion) []Criterion {
	for _, c := range list {
		switch n := c.(type) {
		case *Leaf:
			n.Meta = true
		case *Group:
			MarkMeta(n.Criteria)
		}
	}
	return list
}

func fromMap(m map[string]any) (Criterion, error) {
	link, err := ParseLink(stringValue(m["link"]))
	if err != nil {
		return nil, err
	}

	if sub, ok := m["criteria"]; ok {
		children, err := childMaps(sub)
		if err != nil {
			return nil, err
		}
		list, err := FromMaps(children)
		if err != nil {
			return nil, err
		}
		return &Group{Link: link, Criteria: list}, nil
	}

	field, err := ParseFieldRef(m["field"])
	if err != nil {
		return nil, err
	}
	st := SearchType(strings.ToLower(strings.TrimSpace(stringValue(m["searchtype"]))))
	if st == "" {
		st = Contains
	}
	return &Leaf{
		Link:       link,
		Field:      field,
		SearchType: st,
		Value:      stringValue(m["value"]),
		Itemtype:   strings.TrimSpace(stringValue(m["itemtype"])),
		Meta:       truthy(m["meta"]),
	}, nil
}

func childMaps(v any) ([]map[string]any, error) {
	switch x := v.(type) {
	case []map[string]any:
		return x, nil
	case []any:
		out := make([]map[string]any, 0, len(x))
		for _, item := range x {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("group entries must be objects")
			}
			out = append(out, m)
		}
		return out, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("criteria must be a list")
	}
}

func stringValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case bool:
		if x {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(x)
	}
}

func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		s := strings.ToLower(strings.TrimSpace(x))
		return s == "1" || s == "true" || s == "yes"
	case json.Number:
		return x.String() != "0"
	case float64:
		return x != 0
	case int:
		return x != 0
	default:
		return false
	}
}

// ToMaps is the inverse of FromMaps. Meta leaves carry "meta": true.
func ToMaps(list []Criterion) []map[string]any {
	out := make([]map[string]any, 0, len(list))
	for _, c := range list {
		switch n := c.(type) {
		case *Leaf:
			m := map[string]any{
				"link":       string(n.Link),
				"searchtype": string(n.SearchType),
				"value":      n.Value,
			}
			if n.Field.IsSynthetic() {
				m["field"] = n.Field.Special
			} else {
				m["field"] = n.Field.ID
			}
			if n.Itemtype != "" {
				m["itemtype"] = n.Itemtype
			}
			if n.Meta {
				m["meta"] = true
			}
			out = append(out, m)
		case *Group:
			out = append(out, map[string]any{
				"link":     string(n.Link),
				"criteria": ToMaps(n.Criteria),
			})
		}
	}
	return out
}

// Marshal encodes criteria in the form Parse reads.
func Marshal(list []Criterion) ([]byte, error) {
	if len(list) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(ToMaps(list))
}
