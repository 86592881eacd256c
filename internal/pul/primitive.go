package pul

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/ldoblies/ijsoniq/internal/docval"
	"github.com/ldoblies/ijsoniq/internal/ir"
	"github.com/ldoblies/ijsoniq/internal/target"
)

// IDField is the document field holding its identifier.
const IDField = "id"

// Primitive is one intended mutation. Which parameter fields are used
// depends on Kind:
//
//	insert              Docs
//	del                 IDs
//	insert_into_object  Source
//	delete_from_object  Names
//	replace_in_object   Name, Value
//	rename_in_object    Name, NewName
//	insert_into_array   Index, Items
//	delete_from_array   Index
//	replace_in_array    Index, Value
type Primitive struct {
	Kind   Kind
	Target target.Target

	Docs    []ir.Object
	IDs     []string
	Source  ir.Object
	Names   []string
	Name    string
	NewName string
	Value   ir.Value
	Index   int
	Items   ir.Array

	// docIDs indexes the identifiers in Docs.
	docIDs idSet
	// right holds identifiers contributed by the right-hand PUL while
	// composing; stripped when composition finishes.
	right idSet
	// fromRight marks a primitive accumulated from the right-hand PUL.
	fromRight bool
	// translated counts the leading path segments already rewritten to
	// their pre-rename names while composing.
	translated int
}

// NewInsert inserts whole documents into a collection.
func NewInsert(collection string, docs ...ir.Object) *Primitive {
	return &Primitive{Kind: KindInsert, Target: target.New(collection, "", ""), Docs: docs}
}

// NewDelete deletes documents by identifier.
func NewDelete(collection string, ids ...string) *Primitive {
	return &Primitive{Kind: KindDelete, Target: target.New(collection, "", ""), IDs: ids}
}

// NewInsertIntoObject merges source into the object at t.
func NewInsertIntoObject(t target.Target, source ir.Object) *Primitive {
	return &Primitive{Kind: KindInsertIntoObject, Target: t, Source: source}
}

// NewDeleteFromObject removes names from the object at t.
func NewDeleteFromObject(t target.Target, names ...string) *Primitive {
	return &Primitive{Kind: KindDeleteFromObject, Target: t, Names: names}
}

// NewReplaceInObject replaces the value of name in the object at t.
func NewReplaceInObject(t target.Target, name string, value ir.Value) *Primitive {
	return &Primitive{Kind: KindReplaceInObject, Target: t, Name: name, Value: value}
}

// NewRenameInObject renames key name to newName in the object at t.
func NewRenameInObject(t target.Target, name, newName string) *Primitive {
	return &Primitive{Kind: KindRenameInObject, Target: t, Name: name, NewName: newName}
}

// NewInsertIntoArray inserts items before position index of the array at t.
func NewInsertIntoArray(t target.Target, index int, items ...ir.Value) *Primitive {
	return &Primitive{Kind: KindInsertIntoArray, Target: t, Index: index, Items: ir.Arr(items...)}
}

// NewDeleteFromArray removes the element at index of the array at t.
func NewDeleteFromArray(t target.Target, index int) *Primitive {
	return &Primitive{Kind: KindDeleteFromArray, Target: t, Index: index}
}

// NewReplaceInArray replaces the element at index of the array at t.
func NewReplaceInArray(t target.Target, index int, value ir.Value) *Primitive {
	return &Primitive{Kind: KindReplaceInArray, Target: t, Index: index, Value: value}
}

// DocumentID returns the identifier of doc. String and integer ids are
// both accepted; integers use their decimal form, so 1 and "1" name the
// same document.
func DocumentID(doc ir.Object) (string, bool) {
	switch id := doc[IDField].(type) {
	case ir.String:
		return string(id), id != ""
	case ir.Int:
		return strconv.FormatInt(int64(id), 10), true
	}
	return "", false
}

// Clone returns a deep copy sharing no memory with u.
func (u *Primitive) Clone() *Primitive {
	c := *u
	if u.Docs != nil {
		c.Docs = make([]ir.Object, len(u.Docs))
		for i, d := range u.Docs {
			c.Docs[i] = d.Clone()
		}
	}
	c.IDs = slices.Clone(u.IDs)
	c.Source = u.Source.Clone()
	c.Names = slices.Clone(u.Names)
	c.Value = ir.Clone(u.Value)
	c.Items = u.Items.Clone()
	c.docIDs = u.docIDs.clone()
	c.right = u.right.clone()
	return &c
}

// Validate checks that the target shape and parameters fit the kind.
func (u *Primitive) Validate() error {
	if u.Kind < 0 || u.Kind >= numKinds {
		return &Error{Code: CodeInvalidInput, Kind: u.Kind, Message: "unknown kind"}
	}
	if u.Target.Collection == "" {
		return newError(CodeInvalidInput, u, "target has no collection")
	}
	if u.Kind.WholeDocument() {
		if u.Target.HasKey() || u.Target.HasPath() {
			return newError(CodeInvalidInput, u, "must target a collection only")
		}
	} else if !u.Target.HasKey() {
		return newError(CodeInvalidInput, u, "target has no document key")
	}
	if u.Kind.Array() {
		if !u.Target.HasPath() {
			return newError(CodeInvalidInput, u, "target has no array path")
		}
		if u.Index < 0 {
			return newError(CodeInvalidInput, u, "negative index %d", u.Index)
		}
	}

	switch u.Kind {
	case KindInsert:
		for i, d := range u.Docs {
			if d == nil {
				return newError(CodeInvalidInput, u, "item %d is not an object", i)
			}
			if raw, ok := d[IDField]; ok {
				if _, valid := DocumentID(d); !valid {
					return newError(CodeInvalidInput, u, "item %d has an unusable %s of type %s", i, IDField, ir.TypeName(raw))
				}
			}
		}
	case KindDelete:
		for _, id := range u.IDs {
			if id == "" {
				return newError(CodeInvalidInput, u, "empty document id")
			}
		}
	case KindDeleteFromObject:
		if len(u.Names) == 0 {
			return newError(CodeInvalidInput, u, "no names")
		}
		for _, n := range u.Names {
			if n == "" {
				return newError(CodeInvalidInput, u, "empty name")
			}
		}
	case KindReplaceInObject:
		if u.Name == "" || u.Value == nil {
			return newError(CodeInvalidInput, u, "needs a name and a value")
		}
	case KindRenameInObject:
		if u.Name == "" || u.NewName == "" {
			return newError(CodeInvalidInput, u, "needs a name and a new name")
		}
	case KindReplaceInArray:
		if u.Value == nil {
			return newError(CodeInvalidInput, u, "needs a value")
		}
	}
	return nil
}

// Location returns the serialized location u acts on, including its
// selector: the selected name for replace/rename, the index for the
// array kinds, the plain target otherwise.
func (u *Primitive) Location() string {
	switch u.Kind {
	case KindReplaceInObject, KindRenameInObject:
		return target.Serialize(u.Target, u.Name, false)
	case KindInsertIntoArray, KindDeleteFromArray, KindReplaceInArray:
		return target.SerializeIndex(u.Target, u.Index)
	}
	return u.Target.String()
}

// EffectiveTargets returns the serialized locations u affects: one per
// name for delete_from_object, Location otherwise.
func (u *Primitive) EffectiveTargets() []string {
	if u.Kind == KindDeleteFromObject {
		out := make([]string, len(u.Names))
		for i, n := range u.Names {
			out[i] = target.Serialize(u.Target, n, false)
		}
		return out
	}
	return []string{u.Location()}
}

// removedLocations returns the serialized locations whose contents u
// removes. A deleted array element is listed both as the index selector
// and as a path segment, the form paths crossing the array use.
func (u *Primitive) removedLocations() []string {
	switch u.Kind {
	case KindDeleteFromObject:
		return u.EffectiveTargets()
	case KindDeleteFromArray:
		return []string{u.Location(), u.Target.Child(strconv.Itoa(u.Index)).String()}
	}
	return nil
}

// removedLocations collects the locations every delete_from_object and
// delete_from_array of p removes.
func (p *PUL) removedLocations() []string {
	var out []string
	for _, k := range []Kind{KindDeleteFromObject, KindDeleteFromArray} {
		for _, u := range p.lists[k] {
			out = append(out, u.removedLocations()...)
		}
	}
	return out
}

// locationOf serializes u's target extended by one selected name.
func (u *Primitive) locationOf(name string) string {
	return target.Serialize(u.Target, name, false)
}

// selectorPath returns the in-document path of u's effective location
// for the given selected name (ignored by kinds without one).
func (u *Primitive) selectorPath(name string) docval.Path {
	segs := u.Target.Segments()
	switch u.Kind {
	case KindReplaceInObject, KindRenameInObject, KindDeleteFromObject:
		return segs.Child(name)
	}
	return segs
}

// document returns the collection/key reference u is scoped to.
func (u *Primitive) document() DocRef {
	return DocRef{Collection: u.Target.Collection, ID: u.Target.Key}
}

func (u *Primitive) String() string {
	switch u.Kind {
	case KindInsert:
		return fmt.Sprintf("%s %s (%d docs)", u.Kind, u.Target, len(u.Docs))
	case KindDelete:
		return fmt.Sprintf("%s %s %v", u.Kind, u.Target, u.IDs)
	case KindDeleteFromObject:
		return fmt.Sprintf("%s %s %v", u.Kind, u.Target, u.Names)
	case KindRenameInObject:
		return fmt.Sprintf("%s %s %s->%s", u.Kind, u.Target, u.Name, u.NewName)
	}
	return fmt.Sprintf("%s %s", u.Kind, u.Location())
}

// ensureDocIDs builds the identifier index of an insert.
func (u *Primitive) ensureDocIDs() {
	if u.docIDs != nil {
		return
	}
	u.docIDs = make(idSet, len(u.Docs))
	for _, d := range u.Docs {
		if id, ok := DocumentID(d); ok {
			u.docIDs.add(id)
		}
	}
}

func (u *Primitive) hasDoc(id string) bool {
	u.ensureDocIDs()
	return u.docIDs.has(id)
}

func (u *Primitive) appendDoc(d ir.Object) {
	u.ensureDocIDs()
	if id, ok := DocumentID(d); ok {
		u.docIDs.add(id)
	}
	u.Docs = append(u.Docs, d)
}

func (u *Primitive) replaceDoc(id string, d ir.Object) {
	for i, cur := range u.Docs {
		if cid, ok := DocumentID(cur); ok && cid == id {
			u.Docs[i] = d
			return
		}
	}
}

func (u *Primitive) removeDoc(id string) {
	u.ensureDocIDs()
	u.docIDs.remove(id)
	u.Docs = slices.DeleteFunc(u.Docs, func(d ir.Object) bool {
		did, ok := DocumentID(d)
		return ok && did == id
	})
}

func (u *Primitive) docByID(id string) (int, bool) {
	for i, d := range u.Docs {
		if did, ok := DocumentID(d); ok && did == id {
			return i, true
		}
	}
	return -1, false
}

// DocRef names one document.
type DocRef struct {
	Collection string
	ID         string
}

func (r DocRef) String() string {
	return target.New(r.Collection, r.ID, "").String()
}

// ApplyTo applies an in-place primitive to doc, the document its target
// key names, and returns the updated document. doc may be modified.
func (u *Primitive) ApplyTo(doc ir.Object) (ir.Object, error) {
	if !u.Kind.InPlace() {
		return nil, newError(CodeContractViolation, u, "only in-place primitives apply to a document")
	}
	root, err := applyRelative(doc, u, 0)
	if err != nil {
		return nil, wrapError(CodeDocumentOp, u, err, "cannot apply to %s", u.document())
	}
	out, ok := root.(ir.Object)
	if !ok {
		return nil, newError(CodeDocumentOp, u, "document %s is no longer an object", u.document())
	}
	if id, _ := DocumentID(out); id != u.Target.Key {
		return nil, newError(CodeDocumentOp, u, "would change the %s of document %s", IDField, u.document())
	}
	return out, nil
}
