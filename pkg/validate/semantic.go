package validate

import (
	"fmt"
	"strconv"

	"github.com/ormasoftchile/modlint/pkg/condition"
	"github.com/ormasoftchile/modlint/pkg/locate"
	"github.com/ormasoftchile/modlint/pkg/rules"
)

// section is a list under module whose items are identified by one field.
type section struct {
	name  string
	field string
}

var uniqueSections = []section{
	{"arguments", "name"},
	{"datasets", "id"},
	{"collections", "id"},
	{"inputLayers", "id"},
	{"outputLayers", "id"},
}

// references are the identifiers declared by a manifest.
type references struct {
	arguments    map[string]bool
	datasets     map[string]bool
	collections  map[string]bool
	inputLayers  map[string]bool
	outputLayers map[string]bool
}

var modulePath = locate.Path{{Key: "module"}}

// item is one mapping entry of a module list with its position.
type item struct {
	index  int
	fields map[string]any
}

func sectionItems(module map[string]any, name string) []item {
	list, _ := module[name].([]any)
	out := make([]item, 0, len(list))
	for i, v := range list {
		if m, ok := v.(map[string]any); ok {
			out = append(out, item{index: i, fields: m})
		}
	}
	return out
}

// stringField returns the field as text. Non-string identifiers are
// formatted so that duplicate and reference checks still see them.
func stringField(m map[string]any, field string) (string, bool) {
	v, ok := m[field]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

func collectReferences(module map[string]any) references {
	ids := func(name, field string) map[string]bool {
		out := make(map[string]bool)
		for _, it := range sectionItems(module, name) {
			if id, ok := stringField(it.fields, field); ok {
				out[id] = true
			}
		}
		return out
	}
	return references{
		arguments:    ids("arguments", "name"),
		datasets:     ids("datasets", "id"),
		collections:  ids("collections", "id"),
		inputLayers:  ids("inputLayers", "id"),
		outputLayers: ids("outputLayers", "id"),
	}
}

// checkDuplicates reports every repeat of an identifier after its first
// occurrence.
func (r *run) checkDuplicates(module map[string]any) {
	for _, sec := range uniqueSections {
		seen := make(map[string]bool)
		for _, it := range sectionItems(module, sec.name) {
			id, ok := stringField(it.fields, sec.field)
			if !ok {
				continue
			}
			if !seen[id] {
				seen[id] = true
				continue
			}
			r.report(rules.NoDuplicatedObjectField,
				modulePath.Key(sec.name).Index(it.index).Key(sec.field),
				map[string]string{
					"field_name": sec.field,
					"value":      id,
					"section":    sec.name,
					"position":   strconv.Itoa(it.index + 1),
				})
		}
	}
}

func (r *run) checkCrossReferences(module map[string]any) {
	for _, it := range sectionItems(module, "collections") {
		id, ok := stringField(it.fields, "datasetId")
		if !ok || r.refs.datasets[id] {
			continue
		}
		r.report(rules.DatasetNotFound,
			modulePath.Key("collections").Index(it.index).Key("datasetId"),
			map[string]string{"dataset_id": id, "section": "datasets"})
	}
	for _, it := range sectionItems(module, "inputLayers") {
		id, ok := stringField(it.fields, "collectionId")
		if !ok || r.refs.collections[id] {
			continue
		}
		r.report(rules.CollectionNotFound,
			modulePath.Key("inputLayers").Index(it.index).Key("collectionId"),
			map[string]string{"collection_id": id, "section": "collections"})
	}
}

func (r *run) checkUnused(module map[string]any) {
	usedDatasets := make(map[string]bool)
	for _, it := range sectionItems(module, "collections") {
		if id, ok := stringField(it.fields, "datasetId"); ok {
			usedDatasets[id] = true
		}
	}
	usedCollections := make(map[string]bool)
	for _, it := range sectionItems(module, "inputLayers") {
		if id, ok := stringField(it.fields, "collectionId"); ok {
			usedCollections[id] = true
		}
	}

	for _, it := range sectionItems(module, "datasets") {
		id, ok := stringField(it.fields, "id")
		if !ok || usedDatasets[id] {
			continue
		}
		r.report(rules.UnusedDataset, modulePath.Key("datasets").Index(it.index).Key("id"),
			map[string]string{"dataset_id": id})
	}
	for _, it := range sectionItems(module, "collections") {
		id, ok := stringField(it.fields, "id")
		if !ok || usedCollections[id] {
			continue
		}
		r.report(rules.UnusedCollection, modulePath.Key("collections").Index(it.index).Key("id"),
			map[string]string{"collection_id": id})
	}
}

// checkConditions validates the conditions of every input layer that has
// them.
func (r *run) checkConditions(module map[string]any) {
	for _, it := range sectionItems(module, "inputLayers") {
		raw, ok := it.fields["conditions"]
		if !ok {
			continue
		}
		path := modulePath.Key("inputLayers").Index(it.index).Key("conditions")
		switch e := condition.Parse(raw).(type) {
		case condition.List:
			// A top-level list is accepted as is; only an empty one is
			// reported.
			if len(e.Items) == 0 {
				r.report(rules.EmptyConditionsList, path, nil)
			}
		default:
			r.checkExpr(e, path)
		}
	}
}

func (r *run) checkExpr(e condition.Expr, path locate.Path) {
	switch t := e.(type) {
	case condition.Ref:
		r.checkReference(t.Text, path)
	case condition.Or:
		r.checkJunction(condition.OpOr, t.Items, t.Malformed, path, rules.EmptyOrList, rules.RedundantOr)
	case condition.And:
		r.checkJunction(condition.OpAnd, t.Items, t.Malformed, path, rules.EmptyAndList, rules.RedundantAnd)
	case condition.Not:
		switch t.Operand.(type) {
		case condition.List, condition.Invalid:
		default:
			r.checkExpr(t.Operand, path.Key(condition.OpNot))
		}
	case condition.Equal:
		if ref, ok := t.Ref.(string); ok && condition.IsKnownReference(ref) {
			r.checkReference(ref, path.Key(condition.OpEqual))
		}
	case condition.Mixed:
		for _, op := range t.Ops {
			r.checkExpr(op, path)
		}
		for _, f := range t.Extra {
			if s, ok := f.Value.(string); ok {
				r.checkReference(s, path.Key(f.Key))
			}
		}
	case condition.Literal, condition.List, condition.Invalid:
	}
}

func (r *run) checkJunction(op string, items []condition.Expr, malformed bool, path locate.Path, empty, redundant rules.ID) {
	if malformed {
		return
	}
	opPath := path.Key(op)
	switch len(items) {
	case 0:
		r.report(empty, opPath, nil)
		return
	case 1:
		r.report(redundant, opPath, nil)
	}
	for i, it := range items {
		if m, ok := it.(condition.Mixed); ok && len(m.Ops) == 0 && !allReferences(m.Extra) {
			// Left to the structural schema.
			continue
		}
		r.checkExpr(it, opPath.Index(i))
	}
}

func allReferences(fields []condition.Field) bool {
	for _, f := range fields {
		s, ok := f.Value.(string)
		if !ok || !condition.IsKnownReference(s) {
			return false
		}
	}
	return len(fields) > 0
}

// checkReference resolves a reference string against the declared
// identifiers. Strings without a dot are not references.
func (r *run) checkReference(ref string, path locate.Path) {
	ns, name := condition.Classify(ref)
	var declared map[string]bool
	var kind, sec string
	switch ns {
	case condition.NamespaceArgs:
		declared, kind, sec = r.refs.arguments, "argument", "arguments"
	case condition.NamespaceInputs:
		declared, kind, sec = r.refs.inputLayers, "input layer", "inputLayers"
	case condition.NamespaceOutputs:
		declared, kind, sec = r.refs.outputLayers, "output layer", "outputLayers"
	case condition.NamespaceArgTypo:
		r.report(rules.InvalidReferenceFormat, path, map[string]string{"ref": ref, "name": name})
		return
	case condition.NamespaceUnknown:
		r.report(rules.UnknownReferenceFormat, path, map[string]string{"ref": ref})
		return
	default:
		return
	}
	if declared[name] {
		return
	}
	r.report(rules.ReferenceMustExist, path, map[string]string{
		"reference_type": kind,
		"name":           name,
		"section":        sec,
	})
}
