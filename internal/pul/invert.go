package pul

import (
	"github.com/ldoblies/ijsoniq/internal/ir"
)

// inverter folds whole-document undo primitives. For a repeated document
// the first insert wins: it carries the oldest pre-image.
type inverter struct{}

func (inverter) add(p *PUL, u *Primitive) error {
	switch u.Kind {
	case KindInsert:
		cur := p.find(KindInsert, sameTarget(u))
		if cur == nil {
			cur = &Primitive{Kind: KindInsert, Target: u.Target}
			p.put(cur)
		}
		for _, d := range u.Docs {
			if id, ok := DocumentID(d); ok && cur.hasDoc(id) {
				continue
			}
			cur.appendDoc(d)
		}
		return nil
	case KindDelete:
		if cur := p.find(KindDelete, sameTarget(u)); cur != nil {
			cur.IDs = append(cur.IDs, u.IDs...)
			return nil
		}
		p.put(u)
		return nil
	}
	return newError(CodeContractViolation, u, "inversion only accepts insert and del")
}

// Invert folds undo primitives, oldest first, into a normalized PUL.
// Only insert and del are accepted; anything else poisons the result
// with a contract violation.
func Invert(undo ...*Primitive) *PUL {
	out := newWith(inverter{})
	for _, u := range undo {
		out.Add(u)
		if out.err != nil {
			return out
		}
	}
	out.strategy = normalizer{}
	finalize(out)
	return out
}

// PreImages maps each document touched by an applied PUL to its value
// before the PUL. A missing entry means the document did not exist.
type PreImages map[DocRef]ir.Object

// InvertApplied derives the undo PUL of applied from the pre-images the
// applier captured. Documents the PUL created are deleted; every other
// touched document is deleted and re-inserted from its pre-image.
func InvertApplied(applied *PUL, pre PreImages) *PUL {
	var undo []*Primitive
	restore := func(ref DocRef) {
		doc, ok := pre[ref]
		if !ok {
			return
		}
		undo = append(undo, NewDelete(ref.Collection, ref.ID), NewInsert(ref.Collection, doc))
	}

	for _, u := range ApplicationOrder(applied) {
		switch u.Kind {
		case KindDelete:
			for _, id := range u.IDs {
				restore(DocRef{Collection: u.Target.Collection, ID: id})
			}
		case KindInsert:
			for _, d := range u.Docs {
				id, ok := DocumentID(d)
				if !ok {
					continue
				}
				ref := DocRef{Collection: u.Target.Collection, ID: id}
				if _, existed := pre[ref]; existed {
					restore(ref)
					continue
				}
				undo = append(undo, NewDelete(ref.Collection, id))
			}
		default:
			restore(u.document())
		}
	}
	return Invert(undo...)
}
